package spectra

import (
	"math"
	"testing"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantSpectra(v float64) Distribution {
	d := NewDistribution(SpectraRepresentation)
	d.Fill(v)
	return d
}

func rampSpectra() Distribution {
	d := NewDistribution(SpectraRepresentation)
	for i := 0; i < SpectraSize; i++ {
		d.Set(i, float64(i+1))
	}
	return d
}

func TestWavelengthMapping(t *testing.T) {
	assert.Equal(t, 36, SpectraSize)
	assert.Equal(t, 0, WavelengthIndex(ShortestWavelength))
	assert.Equal(t, SpectraSize-1, WavelengthIndex(LongestWavelength))
	for i := 0; i < SpectraSize; i++ {
		assert.Equal(t, i, WavelengthIndex(Wavelength(i)))
	}

	assert.Equal(t, 0, RGBIndex(BlueWavelength))
	assert.Equal(t, 1, RGBIndex(GreenWavelength))
	assert.Equal(t, 2, RGBIndex(RedWavelength))
	assert.Equal(t, 2, RGBIndex(600))
}

func TestDistribution_Accessors(t *testing.T) {
	d := NewDistribution(SpectraRepresentation)
	d.SetByWavelength(550, 2.5)
	assert.Equal(t, 2.5, d.Get(WavelengthIndex(550)))
	assert.Equal(t, 2.5, d.GetByWavelength(550))
	d.AddAt(WavelengthIndex(550), 0.5)
	assert.Equal(t, 3.0, d.GetByWavelength(550))

	rgb := NewRGBDistribution(color.NewRGB(0.7, 0.2, 0.1))
	assert.Equal(t, 3, rgb.Size())
	assert.Equal(t, 0.1, rgb.GetByWavelength(BlueWavelength))
	assert.Equal(t, 0.2, rgb.GetByWavelength(GreenWavelength))
	assert.Equal(t, 0.7, rgb.GetByWavelength(RedWavelength))
	assert.Equal(t, color.NewRGB(0.7, 0.2, 0.1), rgb.RGB())
	assert.Equal(t, RedWavelength, rgb.WavelengthOf(2))
}

func TestDistribution_Arithmetic(t *testing.T) {
	a := rampSpectra()
	b := constantSpectra(2)

	sum := a.Add(b)
	diff := a.Sub(b)
	prod := a.Mul(b)
	quot := a.Div(b)
	for i := 0; i < SpectraSize; i++ {
		v := float64(i + 1)
		assert.Equal(t, v+2, sum.Get(i))
		assert.Equal(t, v-2, diff.Get(i))
		assert.Equal(t, v*2, prod.Get(i))
		assert.Equal(t, v/2, quot.Get(i))
	}

	// Operands are untouched
	assert.Equal(t, 1.0, a.Get(0))
	assert.Equal(t, 5.0, a.AddScalar(4).Get(0))
	assert.Equal(t, 0.5, a.DivScalar(2).Get(0))

	assert.Equal(t, float64(SpectraSize), a.Max())
	assert.Equal(t, 1.0, a.Min())
	assert.Equal(t, float64(SpectraSize*(SpectraSize+1)/2), a.Sum())

	assert.Panics(t, func() { a.Add(NewDistribution(RGBRepresentation)) })
}

func TestDistribution_Normalize(t *testing.T) {
	tests := []struct {
		name string
		d    Distribution
	}{
		{"ramp", rampSpectra()},
		{"constant", constantSpectra(0.3)},
		{"rgb", NewRGBDistribution(color.NewRGB(0.2, 0.5, 0.9))},
		{"plain summation", func() Distribution {
			d := NewDistributionWith(SpectraRepresentation, core.PlainSummation{})
			d.Fill(1e-3)
			return d
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.d.Normalize()
			assert.InDelta(t, 1.0, n.Sum(), 1e-12)
			assert.Equal(t, tt.d.Summation(), n.Summation())
		})
	}

	assert.Panics(t, func() { NewDistribution(SpectraRepresentation).Normalize() })
}

func TestDistribution_Diagnostics(t *testing.T) {
	d := constantSpectra(1)
	assert.False(t, d.HasNaN())
	assert.False(t, d.HasInf())
	assert.False(t, d.HasNegative())
	assert.False(t, d.IsAllZero())

	d.Set(3, math.NaN())
	assert.True(t, d.HasNaN())
	d.Set(3, math.Inf(1))
	assert.True(t, d.HasInf())
	d.Set(3, -1)
	assert.True(t, d.HasNegative())

	clamped := d.ClampAll(0, 0.5)
	assert.Equal(t, 0.0, clamped.Get(3))
	assert.Equal(t, 0.5, clamped.Get(0))

	assert.True(t, NewDistribution(SpectraRepresentation).IsAllZero())
}

func TestDistribution_CorrectGamma(t *testing.T) {
	d := constantSpectra(0.25).CorrectGamma(0.5)
	assert.InDelta(t, 0.5, d.Get(10), 1e-12)
}

func TestDistribution_IsRGBDistribution(t *testing.T) {
	spikes := func(values map[int]float64) Distribution {
		d := NewDistribution(SpectraRepresentation)
		for w, v := range values {
			d.SetByWavelength(w, v)
		}
		return d
	}

	tests := []struct {
		name     string
		d        Distribution
		expected bool
	}{
		{"three spikes", spikes(map[int]float64{440: 0.2, 550: 0.5, 700: 0.9}), true},
		{"extra bin", spikes(map[int]float64{440: 0.2, 550: 0.5, 700: 0.9, 600: 0.1}), false},
		{"missing spike", spikes(map[int]float64{440: 0.2, 700: 0.9}), false},
		{"single red spike", spikes(map[int]float64{700: 0.9}), false},
		{"all zero", NewDistribution(SpectraRepresentation), false},
		{"dense", constantSpectra(1), false},
		{"rgb representation", NewRGBDistribution(color.NewRGB(0.1, 0.2, 0.3)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.d.IsRGBDistribution())
		})
	}
}

func TestComputeSystemColor_Idempotent(t *testing.T) {
	rgbSystem := NewSystem(RGBMode, color.SRGBD65, 2.2)
	spectraSystem := NewSystem(SpectraMode, color.SRGBD65, 2.2)

	inputs := []Distribution{
		NewRGBDistribution(color.NewRGB(0.8, 0.3, 0.2)),
		rampSpectra().Normalize(),
		constantSpectra(0.5),
	}

	for _, system := range []*System{rgbSystem, spectraSystem} {
		for _, in := range inputs {
			once := in.ComputeSystemColor(system)
			twice := once.ComputeSystemColor(system)
			assert.Equal(t, system.Representation(), once.Representation())
			require.Equal(t, once.Size(), twice.Size())
			for i := 0; i < once.Size(); i++ {
				assert.Equal(t, once.Get(i), twice.Get(i))
			}
		}
	}
}

func TestComputeSystemColor_RGBModeDownsample(t *testing.T) {
	system := NewSystem(RGBMode, color.SRGBD65, 2.2)
	d := constantSpectra(1).ComputeSystemColor(system)

	rgb := d.RGB()
	expected := constantSpectra(1).ToXYZForReflector(system).ToRGB(color.SRGBD65)
	assert.Equal(t, expected, rgb)
	// Equal-energy white is slightly red of D65
	assert.Greater(t, rgb.Red(), rgb.Blue())
	for _, c := range rgb {
		assert.Greater(t, c, 0.8)
		assert.Less(t, c, 1.3)
	}
}

func TestComputeSystemColor_SpikesUpsample(t *testing.T) {
	system := NewSystem(SpectraMode, color.SRGBD65, 2.2)
	d := NewDistribution(SpectraRepresentation)
	d.SetByWavelength(BlueWavelength, 0.3)
	d.SetByWavelength(GreenWavelength, 0.4)
	d.SetByWavelength(RedWavelength, 0.5)

	up := d.ComputeSystemColor(system)
	assert.False(t, up.IsRGBDistribution())
	rgb := up.ToXYZForReflector(system).ToRGB(color.SRGBD65)
	assert.InDelta(t, 0.5, rgb.Red(), 1e-2)
	assert.InDelta(t, 0.4, rgb.Green(), 1e-2)
	assert.InDelta(t, 0.3, rgb.Blue(), 1e-2)
}

func TestSystem_ToXYZ(t *testing.T) {
	system := NewSystem(RGBMode, color.SRGBD65, 2.2)
	xyz := system.ToXYZ(NewRGBDistribution(color.Gray(1)))
	assert.InDelta(t, 1.0, xyz.Y(), 1e-5)

	spectral := NewSystem(SpectraMode, color.SRGBD65, 2.2)
	one := constantSpectra(1)
	assert.Equal(t, one.ToXYZForEmitter(spectral), spectral.ToXYZ(one))
}

func TestParseColorMode(t *testing.T) {
	m, err := ParseColorMode("RGB")
	require.NoError(t, err)
	assert.Equal(t, RGBMode, m)

	m, err = ParseColorMode("spectra")
	require.NoError(t, err)
	assert.Equal(t, SpectraMode, m)

	_, err = ParseColorMode("cmyk")
	assert.ErrorIs(t, err, ErrUnknownColorMode)
}
