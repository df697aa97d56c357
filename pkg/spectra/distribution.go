package spectra

import (
	"fmt"
	"math"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
)

// Representation selects how a Distribution stores its samples
type Representation int

const (
	// RGBRepresentation stores three slots at the nominal blue, green and red wavelengths
	RGBRepresentation Representation = iota
	// SpectraRepresentation stores one sample per wavelength bin
	SpectraRepresentation
)

// Size returns the number of samples stored by the representation
func (r Representation) Size() int {
	switch r {
	case RGBRepresentation:
		return 3
	case SpectraRepresentation:
		return SpectraSize
	}
	panic(fmt.Sprintf("spectra: unknown representation %d", int(r)))
}

func (r Representation) String() string {
	if r == RGBRepresentation {
		return "rgb"
	}
	return "spectra"
}

// Distribution is a sampled spectral quantity (radiance, reflectance or
// weight) in either RGB or full spectral representation. The representation
// is fixed at construction. Distributions returned by arithmetic methods are
// new values; Set, AddAt and Fill mutate in place.
type Distribution struct {
	repr      Representation
	values    []float64
	summation core.Summation
}

// NewDistribution creates an all-zero distribution using compensated sums
func NewDistribution(repr Representation) Distribution {
	return NewDistributionWith(repr, core.KahanSummation{})
}

// NewDistributionWith creates an all-zero distribution with the given summation strategy
func NewDistributionWith(repr Representation, summation core.Summation) Distribution {
	if summation == nil {
		summation = core.KahanSummation{}
	}
	return Distribution{
		repr:      repr,
		values:    make([]float64, repr.Size()),
		summation: summation,
	}
}

// NewSpectraFrom creates a spectral distribution from per-bin values
func NewSpectraFrom(values []float64) Distribution {
	if len(values) != SpectraSize {
		panic(fmt.Sprintf("spectra: expected %d values, got %d", SpectraSize, len(values)))
	}
	d := NewDistribution(SpectraRepresentation)
	copy(d.values, values)
	return d
}

// NewRGBDistribution creates an RGB distribution from a linear RGB color
func NewRGBDistribution(rgb color.RGB) Distribution {
	d := NewDistribution(RGBRepresentation)
	d.SetRGB(rgb)
	return d
}

// Representation returns the storage representation
func (d Distribution) Representation() Representation { return d.repr }

// Size returns the number of stored samples
func (d Distribution) Size() int { return len(d.values) }

// Summation returns the accumulation strategy used by Sum
func (d Distribution) Summation() core.Summation { return d.summation }

// Values returns the underlying samples. The slice aliases the distribution.
func (d Distribution) Values() []float64 { return d.values }

// Clone returns a deep copy
func (d Distribution) Clone() Distribution {
	c := Distribution{repr: d.repr, values: make([]float64, len(d.values)), summation: d.summation}
	copy(c.values, d.values)
	return c
}

// Get returns sample i
func (d Distribution) Get(i int) float64 { return d.values[i] }

// Set replaces sample i
func (d Distribution) Set(i int, v float64) { d.values[i] = v }

// AddAt adds v to sample i
func (d Distribution) AddAt(i int, v float64) { d.values[i] += v }

// IndexOf maps a wavelength to a sample index of this representation
func (d Distribution) IndexOf(wavelength int) int {
	if d.repr == RGBRepresentation {
		return RGBIndex(wavelength)
	}
	return WavelengthIndex(wavelength)
}

// WavelengthOf returns the wavelength represented by sample i
func (d Distribution) WavelengthOf(i int) int {
	if d.repr == RGBRepresentation {
		return RGBWavelength(i)
	}
	return Wavelength(i)
}

// GetByWavelength returns the sample at the given wavelength
func (d Distribution) GetByWavelength(wavelength int) float64 {
	return d.values[d.IndexOf(wavelength)]
}

// SetByWavelength replaces the sample at the given wavelength
func (d Distribution) SetByWavelength(wavelength int, v float64) {
	d.values[d.IndexOf(wavelength)] = v
}

// RGB returns the three RGB slots as a color. Only valid for RGB distributions.
func (d Distribution) RGB() color.RGB {
	d.mustBe(RGBRepresentation)
	return color.RGB{d.values[2], d.values[1], d.values[0]}
}

// SetRGB stores a color in the three RGB slots. Only valid for RGB distributions.
func (d Distribution) SetRGB(rgb color.RGB) {
	d.mustBe(RGBRepresentation)
	d.values[0] = rgb.Blue()
	d.values[1] = rgb.Green()
	d.values[2] = rgb.Red()
}

func (d Distribution) mustBe(repr Representation) {
	if d.repr != repr {
		panic(fmt.Sprintf("spectra: expected %s distribution, got %s", repr, d.repr))
	}
}

func (d Distribution) binary(o Distribution, op func(a, b float64) float64) Distribution {
	if d.repr != o.repr {
		panic(fmt.Sprintf("spectra: mixing %s and %s distributions", d.repr, o.repr))
	}
	r := Distribution{repr: d.repr, values: make([]float64, len(d.values)), summation: d.summation}
	for i := range r.values {
		r.values[i] = op(d.values[i], o.values[i])
	}
	return r
}

func (d Distribution) unary(op func(a float64) float64) Distribution {
	r := Distribution{repr: d.repr, values: make([]float64, len(d.values)), summation: d.summation}
	for i := range r.values {
		r.values[i] = op(d.values[i])
	}
	return r
}

// Add returns d + o
func (d Distribution) Add(o Distribution) Distribution {
	return d.binary(o, func(a, b float64) float64 { return a + b })
}

// Sub returns d - o
func (d Distribution) Sub(o Distribution) Distribution {
	return d.binary(o, func(a, b float64) float64 { return a - b })
}

// Mul returns the sample-wise product
func (d Distribution) Mul(o Distribution) Distribution {
	return d.binary(o, func(a, b float64) float64 { return a * b })
}

// Div returns the sample-wise quotient
func (d Distribution) Div(o Distribution) Distribution {
	return d.binary(o, func(a, b float64) float64 { return a / b })
}

// AddScalar returns d + s
func (d Distribution) AddScalar(s float64) Distribution {
	return d.unary(func(a float64) float64 { return a + s })
}

// MulScalar returns d * s
func (d Distribution) MulScalar(s float64) Distribution {
	return d.unary(func(a float64) float64 { return a * s })
}

// DivScalar returns d / s
func (d Distribution) DivScalar(s float64) Distribution {
	return d.MulScalar(1.0 / s)
}

// Sum adds every sample with the distribution's summation strategy
func (d Distribution) Sum() float64 {
	return core.SumSlice(d.values, d.summation)
}

// CompensatedSum adds every sample with Kahan summation regardless of strategy
func (d Distribution) CompensatedSum() float64 {
	return core.SumSlice(d.values, core.KahanSummation{})
}

// Normalize returns d divided by its sum. Panics if every sample is zero.
func (d Distribution) Normalize() Distribution {
	if d.IsAllZero() {
		panic("spectra: normalize of an all-zero distribution")
	}
	return d.DivScalar(d.Sum())
}

// ClampAll returns d with every sample clamped to [lo, hi]
func (d Distribution) ClampAll(lo, hi float64) Distribution {
	return d.unary(func(a float64) float64 { return max(lo, min(hi, a)) })
}

// CorrectGamma returns d with every sample raised to gamma
func (d Distribution) CorrectGamma(gamma float64) Distribution {
	return d.unary(func(a float64) float64 { return math.Pow(a, gamma) })
}

// Fill sets every sample to v
func (d Distribution) Fill(v float64) {
	for i := range d.values {
		d.values[i] = v
	}
}

// Max returns the largest sample
func (d Distribution) Max() float64 {
	m := d.values[0]
	for _, v := range d.values[1:] {
		m = max(m, v)
	}
	return m
}

// Min returns the smallest sample
func (d Distribution) Min() float64 {
	m := d.values[0]
	for _, v := range d.values[1:] {
		m = min(m, v)
	}
	return m
}

// HasNaN reports whether any sample is NaN
func (d Distribution) HasNaN() bool {
	for _, v := range d.values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// HasInf reports whether any sample is infinite
func (d Distribution) HasInf() bool {
	for _, v := range d.values {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// HasNegative reports whether any sample is below zero
func (d Distribution) HasNegative() bool {
	for _, v := range d.values {
		if v < 0 {
			return true
		}
	}
	return false
}

// IsAllZero reports whether every sample is exactly zero
func (d Distribution) IsAllZero() bool {
	for _, v := range d.values {
		if v != 0 {
			return false
		}
	}
	return true
}

// IsRGBDistribution reports whether the spectrum consists of exactly three
// spikes at the nominal blue, green and red wavelengths. An RGB
// representation always qualifies.
func (d Distribution) IsRGBDistribution() bool {
	if d.repr == RGBRepresentation {
		return true
	}
	blue := WavelengthIndex(BlueWavelength)
	green := WavelengthIndex(GreenWavelength)
	red := WavelengthIndex(RedWavelength)
	for i, v := range d.values {
		spike := i == blue || i == green || i == red
		if spike != (v != 0) {
			return false
		}
	}
	return true
}

// spikeRGB reads the three canonical spikes of a spectral distribution as RGB
func (d Distribution) spikeRGB() color.RGB {
	return color.RGB{
		d.values[WavelengthIndex(RedWavelength)],
		d.values[WavelengthIndex(GreenWavelength)],
		d.values[WavelengthIndex(BlueWavelength)],
	}
}

// ToXYZForEmitter projects d onto XYZ without normalization. RGB
// distributions convert with the system color space matrix.
func (d Distribution) ToXYZForEmitter(system *System) color.XYZ {
	if d.repr == RGBRepresentation {
		return d.RGB().ToXYZ(system.ColorSpace)
	}
	return system.CMF().ToXYZForEmitter(d)
}

// ToXYZForReflector projects d onto XYZ normalized by the luminous
// efficiency integral, so a constant reflectance of 1 has Y = 1. RGB
// reflectances convert with the color space matrix, where white has Y = 1.
func (d Distribution) ToXYZForReflector(system *System) color.XYZ {
	if d.repr == RGBRepresentation {
		return d.RGB().ToXYZ(system.ColorSpace)
	}
	return system.CMF().ToXYZForReflector(d)
}

// ComputeSystemColor converts d into the representation required by the
// system's color mode:
//
//   - RGB data (an RGB distribution or three RGB spikes) in spectra mode is upsampled
//   - a dense spectrum in RGB mode is projected to XYZ then to RGB
//   - anything already in the target representation is copied
//
// Applying it twice gives the same result as applying it once.
func (d Distribution) ComputeSystemColor(system *System) Distribution {
	switch system.ColorMode {
	case RGBMode:
		if d.repr == RGBRepresentation {
			return d.Clone()
		}
		xyz := d.ToXYZForReflector(system)
		r := NewDistributionWith(RGBRepresentation, d.summation)
		r.SetRGB(xyz.ToRGB(system.ColorSpace))
		return r
	case SpectraMode:
		var rgb color.RGB
		switch {
		case d.repr == RGBRepresentation:
			rgb = d.RGB()
		case d.IsRGBDistribution():
			rgb = d.spikeRGB()
		default:
			return d.Clone()
		}
		s := system.Upsampler().ToSpectra(rgb.ToXYZ(system.ColorSpace))
		s.summation = d.summation
		return s
	}
	panic(fmt.Sprintf("spectra: unknown color mode %d", int(system.ColorMode)))
}
