package renderer

import (
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// Transport computes the radiance reaching the film. (u, v) is the sample
// position in [0,1)², with v growing downwards. The returned intensities must
// be finite and non-negative and are not yet weighted by the wavelength
// sampling probability.
type Transport interface {
	Radiance(u, v float64, wavelengths spectra.SampledWavelengths, sampler core.Sampler) spectra.SampledSpectra
}

// TransportFunc adapts an ordinary function to Transport
type TransportFunc func(u, v float64, wavelengths spectra.SampledWavelengths, sampler core.Sampler) spectra.SampledSpectra

// Radiance calls f
func (f TransportFunc) Radiance(u, v float64, wavelengths spectra.SampledWavelengths, sampler core.Sampler) spectra.SampledSpectra {
	return f(u, v, wavelengths, sampler)
}
