package film

import (
	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

// SpectraImage accumulates one slot per wavelength bin
type SpectraImage struct {
	buffer
	cmf *spectra.CMF
}

// NewSpectraImage creates an all-zero spectral film
func NewSpectraImage(width, height int, cmf *spectra.CMF, summation core.Summation) *SpectraImage {
	return &SpectraImage{
		buffer: newBuffer(width, height, spectra.SpectraSize, summation),
		cmf:    cmf,
	}
}

// AddContribution adds every sampled wavelength into its bin
func (si *SpectraImage) AddContribution(x, y int, s spectra.SampledSpectra) {
	si.add(x, y, s, spectra.WavelengthIndex)
}

// Spectrum returns a copy of the accumulated spectrum at (x, y)
func (si *SpectraImage) Spectrum(x, y int) spectra.Distribution {
	return spectra.NewSpectraFrom(si.pixel(y*si.width + x))
}

// ToHDRImage projects every pixel onto XYZ with the emitter convention
func (si *SpectraImage) ToHDRImage(pool *core.WorkerPool, cycle int, hdr *HDRImage) {
	checkTarget(&si.buffer, cycle, hdr)
	inv := 1.0 / float64(cycle)
	pool.ParallelRanges(si.width*si.height, func(_, begin, end int) {
		for i := begin; i < end; i++ {
			hdr.Pixels[i] = si.cmf.Project(si.pixel(i)).MulScalar(inv)
		}
	})
}

// RGBSpectraImage accumulates the three RGB slots of an RGB mode render
type RGBSpectraImage struct {
	buffer
	space color.ColorSpace
}

// NewRGBSpectraImage creates an all-zero RGB film
func NewRGBSpectraImage(width, height int, space color.ColorSpace, summation core.Summation) *RGBSpectraImage {
	return &RGBSpectraImage{
		buffer: newBuffer(width, height, 3, summation),
		space:  space,
	}
}

// AddContribution adds the blue, green and red samples into their slots
func (ri *RGBSpectraImage) AddContribution(x, y int, s spectra.SampledSpectra) {
	ri.add(x, y, s, spectra.RGBIndex)
}

// RGB returns the accumulated color at (x, y)
func (ri *RGBSpectraImage) RGB(x, y int) color.RGB {
	p := ri.pixel(y*ri.width + x)
	return color.RGB{p[2], p[1], p[0]}
}

// ToHDRImage converts every pixel with the color space matrix
func (ri *RGBSpectraImage) ToHDRImage(pool *core.WorkerPool, cycle int, hdr *HDRImage) {
	checkTarget(&ri.buffer, cycle, hdr)
	inv := 1.0 / float64(cycle)
	pool.ParallelRanges(ri.width*ri.height, func(_, begin, end int) {
		for i := begin; i < end; i++ {
			p := ri.pixel(i)
			rgb := color.RGB{p[2], p[1], p[0]}.MulScalar(inv)
			hdr.Pixels[i] = rgb.ToXYZ(ri.space)
		}
	})
}
