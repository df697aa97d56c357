// Package film holds the per-pixel accumulation buffers of a render and the
// HDR and LDR images they are reduced to.
package film

import (
	"fmt"
	"math"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// Film accumulates sampled radiance per pixel.
//
// AddContribution is not synchronized: a pixel must only be written by one
// goroutine at a time. The progressive renderer guarantees this by giving
// each tile a single owner per pass.
type Film interface {
	Width() int
	Height() int
	// AddContribution deposits one weighted sample into pixel (x, y).
	// Panics if an intensity is NaN, infinite or negative.
	AddContribution(x, y int, s spectra.SampledSpectra)
	// Clear resets every sum and correction term to zero
	Clear()
	// ToHDRImage writes the average of cycle samples per pixel into hdr as XYZ
	ToHDRImage(pool *core.WorkerPool, cycle int, hdr *HDRImage)
}

// NewFilm creates the buffer matching the system's color mode
func NewFilm(system *spectra.System, width, height int) Film {
	switch system.ColorMode {
	case spectra.RGBMode:
		return NewRGBSpectraImage(width, height, system.ColorSpace, system.Summation)
	case spectra.SpectraMode:
		return NewSpectraImage(width, height, system.CMF(), system.Summation)
	}
	panic(fmt.Sprintf("film: unknown color mode %d", int(system.ColorMode)))
}

// buffer is a flat array of slots per pixel plus one correction term per slot
type buffer struct {
	width, height int
	slots         int
	summation     core.Summation
	sums          []float64
	comp          []float64
}

func newBuffer(width, height, slots int, summation core.Summation) buffer {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("film: invalid resolution %dx%d", width, height))
	}
	if summation == nil {
		summation = core.KahanSummation{}
	}
	b := buffer{
		width:     width,
		height:    height,
		slots:     slots,
		summation: summation,
		sums:      make([]float64, width*height*slots),
	}
	if summation.Compensated() {
		b.comp = make([]float64, len(b.sums))
	}
	return b
}

func (b *buffer) Width() int  { return b.width }
func (b *buffer) Height() int { return b.height }

// Summation returns the accumulation strategy chosen at construction
func (b *buffer) Summation() core.Summation { return b.summation }

func (b *buffer) Clear() {
	clear(b.sums)
	clear(b.comp)
}

// pixel returns the accumulated slots of pixel index i
func (b *buffer) pixel(i int) []float64 {
	return b.sums[i*b.slots : (i+1)*b.slots]
}

func (b *buffer) add(x, y int, s spectra.SampledSpectra, slotOf func(wavelength int) int) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		panic(fmt.Sprintf("film: pixel (%d, %d) outside %dx%d", x, y, b.width, b.height))
	}
	base := (y*b.width + x) * b.slots
	for i, v := range s.Intensities {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			panic(fmt.Sprintf("film: invalid contribution %g at %d nm", v, s.Wavelengths.Wavelength(i)))
		}
		b.summation.AddTo(b.sums, b.comp, base+slotOf(s.Wavelengths.Wavelength(i)), v)
	}
}

func checkTarget(b *buffer, cycle int, hdr *HDRImage) {
	if hdr == nil {
		panic("film: nil HDR image")
	}
	if hdr.Width != b.width || hdr.Height != b.height {
		panic(fmt.Sprintf("film: HDR image is %dx%d, film is %dx%d", hdr.Width, hdr.Height, b.width, b.height))
	}
	if cycle <= 0 {
		panic(fmt.Sprintf("film: invalid sample cycle %d", cycle))
	}
}
