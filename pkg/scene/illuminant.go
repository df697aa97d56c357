package scene

import (
	"fmt"

	"github.com/df07/go-spectral-film/pkg/loaders"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// NewIlluminant builds the light falling on a test pattern in the system's
// representation, scaled by the intensity. Blackbody and tabulated spectra
// are normalized to a unit sum; RGB illuminants keep their magnitude.
func NewIlluminant(system *spectra.System, s loaders.IlluminantSettings) (spectra.Distribution, error) {
	var def spectra.ColorDefinition
	if s.Temperature > 0 {
		def = blackbodyDefinition(s.Temperature)
	} else {
		var err error
		def, err = s.Definition()
		if err != nil {
			return spectra.Distribution{}, fmt.Errorf("failed to read illuminant: %w", err)
		}
	}

	d, err := spectra.MakeEmissiveDistribution(system, def)
	if err != nil {
		return spectra.Distribution{}, fmt.Errorf("failed to build illuminant: %w", err)
	}
	return d.MulScalar(s.Intensity), nil
}

// blackbodyDefinition tabulates Planck's law at every bin center
func blackbodyDefinition(temperature float64) spectra.ColorDefinition {
	d := spectra.Blackbody(temperature)
	samples := make([]spectra.WavelengthValue, spectra.SpectraSize)
	for i := range samples {
		samples[i] = spectra.WavelengthValue{Wavelength: float64(spectra.Wavelength(i)), Value: d.Get(i)}
	}
	return spectra.SpectraDefinition(samples)
}
