package spectra

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/df07/go-spectral-film/pkg/color"
)

var (
	// ErrEmptyDefinition is returned when a color definition has neither RGB nor spectrum data
	ErrEmptyDefinition = errors.New("color definition has no data")
	// ErrInvalidSpectrum is returned for malformed (wavelength, value) data
	ErrInvalidSpectrum = errors.New("invalid spectrum data")
	// ErrBlackEmitter is returned when an emissive color is all zero
	ErrBlackEmitter = errors.New("emissive color is black")
)

// WavelengthValue is one (wavelength, value) sample of a tabulated spectrum
type WavelengthValue struct {
	Wavelength float64
	Value      float64
}

// ColorDefinition is a color as written in scene settings: either an RGB
// triple or a list of (wavelength, value) pairs
type ColorDefinition struct {
	RGB     *color.RGB
	Spectra []WavelengthValue
}

// RGBDefinition creates a definition from an RGB triple
func RGBDefinition(rgb color.RGB) ColorDefinition {
	return ColorDefinition{RGB: &rgb}
}

// SpectraDefinition creates a definition from tabulated samples
func SpectraDefinition(samples []WavelengthValue) ColorDefinition {
	return ColorDefinition{Spectra: samples}
}

// distribution converts the raw definition without any system conversion
func (def ColorDefinition) distribution(system *System) (Distribution, error) {
	switch {
	case def.RGB != nil:
		rgb := def.RGB.Clamp(0, 1).CorrectGamma(system.Gamma)
		d := NewDistributionWith(RGBRepresentation, system.Summation)
		d.SetRGB(rgb)
		return d, nil
	case len(def.Spectra) > 0:
		return InterpolateSamples(def.Spectra)
	}
	return Distribution{}, ErrEmptyDefinition
}

// InterpolateSamples linearly interpolates tabulated samples at every bin
// center. Bins outside the tabulated range take the nearest end value.
func InterpolateSamples(samples []WavelengthValue) (Distribution, error) {
	if len(samples) == 0 {
		return Distribution{}, fmt.Errorf("%w: no samples", ErrInvalidSpectrum)
	}
	sorted := make([]WavelengthValue, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Wavelength < sorted[j].Wavelength })
	for i, s := range sorted {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			return Distribution{}, fmt.Errorf("%w: non-finite value at %g nm", ErrInvalidSpectrum, s.Wavelength)
		}
		if i > 0 && s.Wavelength == sorted[i-1].Wavelength {
			return Distribution{}, fmt.Errorf("%w: duplicate wavelength %g nm", ErrInvalidSpectrum, s.Wavelength)
		}
	}

	d := NewDistribution(SpectraRepresentation)
	for i := 0; i < SpectraSize; i++ {
		d.values[i] = interpolateAt(sorted, float64(Wavelength(i)))
	}
	return d, nil
}

func interpolateAt(sorted []WavelengthValue, lambda float64) float64 {
	if lambda <= sorted[0].Wavelength {
		return sorted[0].Value
	}
	last := sorted[len(sorted)-1]
	if lambda >= last.Wavelength {
		return last.Value
	}
	j := sort.Search(len(sorted), func(k int) bool { return sorted[k].Wavelength >= lambda })
	a, b := sorted[j-1], sorted[j]
	t := (lambda - a.Wavelength) / (b.Wavelength - a.Wavelength)
	return a.Value + t*(b.Value-a.Value)
}

// MakeReflectiveDistribution converts a settings color into a reflectance in
// the system's representation, clamped to [0, 1]
func MakeReflectiveDistribution(system *System, def ColorDefinition) (Distribution, error) {
	d, err := def.distribution(system)
	if err != nil {
		return Distribution{}, err
	}
	d = d.ClampAll(0, 1).ComputeSystemColor(system)
	return d.ClampAll(0, 1), nil
}

// MakeEmissiveDistribution converts a settings color into an emission
// spectrum in the system's representation. Tabulated spectra are normalized
// to a unit sum; RGB colors keep their magnitude and are upsampled as is.
func MakeEmissiveDistribution(system *System, def ColorDefinition) (Distribution, error) {
	d, err := def.distribution(system)
	if err != nil {
		return Distribution{}, err
	}
	d = d.ClampAll(0, d.Max())
	if d.IsAllZero() {
		return Distribution{}, ErrBlackEmitter
	}
	if def.RGB == nil {
		d = d.Normalize()
	}
	return d.ComputeSystemColor(system), nil
}

// Blackbody returns Planck's law at the given temperature in kelvin,
// sampled at every bin and normalized to a maximum of 1
func Blackbody(temperature float64) Distribution {
	const (
		h = 6.62607015e-34
		c = 2.99792458e8
		k = 1.380649e-23
	)
	d := NewDistribution(SpectraRepresentation)
	for i := 0; i < SpectraSize; i++ {
		lambda := float64(Wavelength(i)) * 1e-9
		d.values[i] = 2 * h * c * c / (math.Pow(lambda, 5) * (math.Exp(h*c/(lambda*k*temperature)) - 1))
	}
	return d.MulScalar(1.0 / d.Max())
}
