// Package spectra holds spectral distributions, the CIE observer, spectral
// upsampling from tristimulus values and wavelength sampling.
package spectra

// Wavelength configuration shared by every spectral quantity. Wavelengths
// are in nanometers and bin i is centered at ShortestWavelength+i*WavelengthResolution.
const (
	ShortestWavelength   = 380
	LongestWavelength    = 730
	WavelengthResolution = 10
	SpectraSize          = (LongestWavelength-ShortestWavelength)/WavelengthResolution + 1

	// Nominal wavelengths of the three slots of an RGB distribution
	BlueWavelength  = 440
	GreenWavelength = 550
	RedWavelength   = 700

	// WavelengthSampleSize is the number of wavelengths traced per camera sample
	WavelengthSampleSize = 3
)

// WavelengthIndex maps a wavelength to its spectral bin
func WavelengthIndex(wavelength int) int {
	return (wavelength - ShortestWavelength) / WavelengthResolution
}

// Wavelength returns the center wavelength of bin index
func Wavelength(index int) int {
	return ShortestWavelength + index*WavelengthResolution
}

// RGBIndex maps a wavelength to a slot of an RGB distribution:
// blue is 0, green is 1 and any other wavelength is red.
func RGBIndex(wavelength int) int {
	switch wavelength {
	case BlueWavelength:
		return 0
	case GreenWavelength:
		return 1
	}
	return 2
}

// RGBWavelength returns the nominal wavelength of RGB slot index
func RGBWavelength(index int) int {
	switch index {
	case 0:
		return BlueWavelength
	case 1:
		return GreenWavelength
	}
	return RedWavelength
}
