package spectra

import (
	"math"
	"testing"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateSamples(t *testing.T) {
	d, err := InterpolateSamples([]WavelengthValue{
		{Wavelength: 600, Value: 1},
		{Wavelength: 400, Value: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, d.GetByWavelength(380))
	assert.Equal(t, 0.0, d.GetByWavelength(400))
	assert.InDelta(t, 0.5, d.GetByWavelength(500), 1e-12)
	assert.Equal(t, 1.0, d.GetByWavelength(600))
	assert.Equal(t, 1.0, d.GetByWavelength(730))
}

func TestInterpolateSamples_Errors(t *testing.T) {
	tests := []struct {
		name    string
		samples []WavelengthValue
	}{
		{"empty", nil},
		{"duplicate", []WavelengthValue{{500, 1}, {500, 2}}},
		{"nan", []WavelengthValue{{500, math.NaN()}}},
		{"inf", []WavelengthValue{{500, math.Inf(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InterpolateSamples(tt.samples)
			assert.ErrorIs(t, err, ErrInvalidSpectrum)
		})
	}
}

func TestMakeReflectiveDistribution(t *testing.T) {
	rgbSystem := NewSystem(RGBMode, color.SRGBD65, 1)
	d, err := MakeReflectiveDistribution(rgbSystem, RGBDefinition(color.NewRGB(1.5, 0.5, -0.2)))
	require.NoError(t, err)
	assert.Equal(t, color.NewRGB(1, 0.5, 0), d.RGB())

	spectraSystem := NewSystem(SpectraMode, color.SRGBD65, 1)
	d, err = MakeReflectiveDistribution(spectraSystem, RGBDefinition(color.NewRGB(0.6, 0.4, 0.2)))
	require.NoError(t, err)
	assert.Equal(t, SpectraRepresentation, d.Representation())
	assert.LessOrEqual(t, d.Max(), 1.0)
	assert.False(t, d.HasNegative())
	back := d.ToXYZForReflector(spectraSystem).ToRGB(color.SRGBD65)
	assert.InDelta(t, 0.6, back.Red(), 1e-2)
	assert.InDelta(t, 0.4, back.Green(), 1e-2)
	assert.InDelta(t, 0.2, back.Blue(), 1e-2)

	// Tabulated reflectance is used as is in spectra mode
	d, err = MakeReflectiveDistribution(spectraSystem, SpectraDefinition([]WavelengthValue{{380, 0.25}, {730, 0.25}}))
	require.NoError(t, err)
	assert.Equal(t, 0.25, d.GetByWavelength(550))

	_, err = MakeReflectiveDistribution(spectraSystem, ColorDefinition{})
	assert.ErrorIs(t, err, ErrEmptyDefinition)
}

func TestMakeReflectiveDistribution_Gamma(t *testing.T) {
	system := NewSystem(RGBMode, color.SRGBD65, 2.2)
	d, err := MakeReflectiveDistribution(system, RGBDefinition(color.Gray(0.5)))
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(0.5, 2.2), d.RGB().Green(), 1e-12)
}

func TestMakeEmissiveDistribution(t *testing.T) {
	rgbSystem := NewSystem(RGBMode, color.SRGBD65, 1)
	d, err := MakeEmissiveDistribution(rgbSystem, RGBDefinition(color.NewRGB(0.25, 0.5, 1)))
	require.NoError(t, err)
	assert.Equal(t, color.NewRGB(0.25, 0.5, 1), d.RGB())

	spectraSystem := NewSystem(SpectraMode, color.SRGBD65, 1)
	d, err = MakeEmissiveDistribution(spectraSystem, SpectraDefinition([]WavelengthValue{{400, 2}, {700, 2}}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d.Sum(), 1e-12)

	_, err = MakeEmissiveDistribution(rgbSystem, RGBDefinition(color.NewRGB(0, 0, 0)))
	assert.ErrorIs(t, err, ErrBlackEmitter)
	_, err = MakeEmissiveDistribution(rgbSystem, RGBDefinition(color.NewRGB(-1, -2, -3)))
	assert.ErrorIs(t, err, ErrBlackEmitter)
}

func TestMakeEmissiveDistribution_RGBKeepsMagnitude(t *testing.T) {
	rgb := color.NewRGB(0.9, 0.6, 0.3)
	for _, mode := range []ColorMode{RGBMode, SpectraMode} {
		system := NewSystem(mode, color.SRGBD65, 1)
		d, err := MakeEmissiveDistribution(system, RGBDefinition(rgb))
		require.NoError(t, err)

		back := d.ToXYZForReflector(system).ToRGB(color.SRGBD65)
		for c := 0; c < 3; c++ {
			assert.InDelta(t, rgb[c], back[c], 1e-2, "%v channel %d", mode, c)
		}
	}
}

func TestBlackbody(t *testing.T) {
	warm := Blackbody(3000)
	assert.Equal(t, 1.0, warm.Max())
	// The 3000K peak is in the infrared so the curve rises across the visible range
	for i := 1; i < SpectraSize; i++ {
		assert.Greater(t, warm.Get(i), warm.Get(i-1))
	}

	daylight := Blackbody(6500)
	peak := 0
	for i := range daylight.Values() {
		if daylight.Get(i) > daylight.Get(peak) {
			peak = i
		}
	}
	assert.InDelta(t, 446, Wavelength(peak), 10)

	cmf := DefaultCMF()
	warmXY := cmf.ToXYZForEmitter(warm).ToYxy()
	coolXY := cmf.ToXYZForEmitter(daylight).ToYxy()
	assert.Greater(t, warmXY.X(), coolXY.X())
}
