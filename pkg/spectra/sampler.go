package spectra

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/df07/go-spectral-film/pkg/core"
)

// ErrUnknownSamplingMode is returned when a wavelength sampling name is not recognized
var ErrUnknownSamplingMode = errors.New("unknown wavelength sampling mode")

// SampledWavelengths is the set of wavelengths traced by one camera sample
type SampledWavelengths struct {
	wavelengths        [WavelengthSampleSize]int
	inverseProbability float64
}

// NewSampledWavelengths creates a wavelength set with the given inverse probability
func NewSampledWavelengths(wavelengths [WavelengthSampleSize]int, inverseProbability float64) SampledWavelengths {
	return SampledWavelengths{wavelengths: wavelengths, inverseProbability: inverseProbability}
}

// Wavelength returns the i-th sampled wavelength
func (w SampledWavelengths) Wavelength(i int) int { return w.wavelengths[i] }

// InverseProbability returns the weight that makes a bin estimate unbiased
func (w SampledWavelengths) InverseProbability() float64 { return w.inverseProbability }

// SampledSpectra holds intensities at a set of sampled wavelengths
type SampledSpectra struct {
	Wavelengths SampledWavelengths
	Intensities [WavelengthSampleSize]float64
}

// NewSampledSpectra creates zero intensities for the given wavelengths
func NewSampledSpectra(w SampledWavelengths) SampledSpectra {
	return SampledSpectra{Wavelengths: w}
}

// Sample reads d at every sampled wavelength
func Sample(d Distribution, w SampledWavelengths) SampledSpectra {
	s := SampledSpectra{Wavelengths: w}
	for i := range s.Intensities {
		s.Intensities[i] = d.GetByWavelength(w.wavelengths[i])
	}
	return s
}

// Mul returns the intensity-wise product. Both must share wavelengths.
func (s SampledSpectra) Mul(o SampledSpectra) SampledSpectra {
	r := s
	for i := range r.Intensities {
		r.Intensities[i] *= o.Intensities[i]
	}
	return r
}

// MulScalar returns s scaled by k
func (s SampledSpectra) MulScalar(k float64) SampledSpectra {
	r := s
	for i := range r.Intensities {
		r.Intensities[i] *= k
	}
	return r
}

// Weighted returns s multiplied by the inverse sampling probability
func (s SampledSpectra) Weighted() SampledSpectra {
	return s.MulScalar(s.Wavelengths.inverseProbability)
}

// IsValid reports whether every intensity is finite and non-negative
func (s SampledSpectra) IsValid() bool {
	for _, v := range s.Intensities {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// SamplingMode selects how wavelengths are drawn for each camera sample
type SamplingMode int

const (
	// RGBSampling always uses the nominal blue, green and red wavelengths
	RGBSampling SamplingMode = iota
	// RegularSampling uses evenly spaced bins with a random offset
	RegularSampling
	// RandomSampling draws independent uniform bins
	RandomSampling
	// StratifiedSampling draws one uniform bin per equal stratum
	StratifiedSampling
)

var samplingModeNames = map[SamplingMode]string{
	RGBSampling:        "rgb",
	RegularSampling:    "regular",
	RandomSampling:     "random",
	StratifiedSampling: "stratified",
}

func (m SamplingMode) String() string {
	if name, ok := samplingModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("SamplingMode(%d)", int(m))
}

// ParseSamplingMode resolves a settings name such as "stratified"
func ParseSamplingMode(name string) (SamplingMode, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for m, n := range samplingModeNames {
		if n == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSamplingMode, name)
}

// WavelengthSampler draws wavelength sets for camera samples
type WavelengthSampler struct {
	mode SamplingMode
}

// NewWavelengthSampler creates a sampler. RGB mode renders always use RGBSampling.
func NewWavelengthSampler(system *System, mode SamplingMode) *WavelengthSampler {
	if system.ColorMode == RGBMode {
		mode = RGBSampling
	}
	return &WavelengthSampler{mode: mode}
}

// Mode returns the sampling mode in use
func (ws *WavelengthSampler) Mode() SamplingMode { return ws.mode }

// Sample draws a wavelength set using random numbers from sampler
func (ws *WavelengthSampler) Sample(sampler core.Sampler) SampledWavelengths {
	var w [WavelengthSampleSize]int
	inverseProbability := float64(SpectraSize) / float64(WavelengthSampleSize)

	switch ws.mode {
	case RGBSampling:
		w = [WavelengthSampleSize]int{BlueWavelength, GreenWavelength, RedWavelength}
		inverseProbability = 1
	case RegularSampling:
		interval := SpectraSize / WavelengthSampleSize
		offset := randomBin(sampler, interval)
		for i := range w {
			w[i] = Wavelength(offset + i*interval)
		}
	case RandomSampling:
		bins := make([]int, WavelengthSampleSize)
		for i := range bins {
			bins[i] = randomBin(sampler, SpectraSize)
		}
		sort.Ints(bins)
		for i := range w {
			w[i] = Wavelength(bins[i])
		}
	case StratifiedSampling:
		for i := range w {
			begin := i * SpectraSize / WavelengthSampleSize
			end := (i + 1) * SpectraSize / WavelengthSampleSize
			w[i] = Wavelength(begin + randomBin(sampler, end-begin))
		}
	default:
		panic(fmt.Sprintf("spectra: unknown sampling mode %d", int(ws.mode)))
	}
	return SampledWavelengths{wavelengths: w, inverseProbability: inverseProbability}
}

// randomBin maps a uniform sample onto [0, n)
func randomBin(sampler core.Sampler, n int) int {
	return min(int(sampler.Get1D()*float64(n)), n-1)
}
