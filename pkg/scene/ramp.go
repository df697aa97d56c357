package scene

import (
	"fmt"
	"math"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// ExposureRamp shows the illuminant over a range of exposure stops centered
// on 1. The top half is split into one band per stop; the bottom half ramps
// continuously across the same range.
type ExposureRamp struct {
	illuminant spectra.Distribution
	stops      int
}

// NewExposureRamp creates a ramp spanning stops stops
func NewExposureRamp(illuminant spectra.Distribution, stops int) *ExposureRamp {
	if stops <= 0 {
		panic(fmt.Sprintf("scene: invalid ramp stops %d", stops))
	}
	return &ExposureRamp{illuminant: illuminant, stops: stops}
}

// Scale returns the multiplier applied to the illuminant at (u, v)
func (r *ExposureRamp) Scale(u, v float64) float64 {
	n := float64(r.stops)
	if v < 0.5 {
		band := math.Min(math.Floor(u*n), n-1)
		return math.Exp2(band - n/2)
	}
	return math.Exp2(u*n - n/2)
}

// Radiance returns the scaled illuminant
func (r *ExposureRamp) Radiance(u, v float64, w spectra.SampledWavelengths, _ core.Sampler) spectra.SampledSpectra {
	return spectra.Sample(r.illuminant, w).MulScalar(r.Scale(u, v))
}
