package spectra

import (
	"math"
	"sync"

	"github.com/df07/go-spectral-film/pkg/color"
)

// The basis spectra table is tabulated over its own wavelength range and
// interpolated onto the renderer bins on lookup.
const (
	tableShortestWavelength = ShortestWavelength
	tableLongestWavelength  = LongestWavelength
	tableSize               = SpectraSize
)

// upsamplePoint is a grid vertex with its basis spectrum
type upsamplePoint struct {
	uv       color.Vec2
	spectrum [tableSize]float64
}

// upsampleCell lists the vertices of a grid cell. Inside cells are full quads
// laid out as
//
//	2 3
//	0 1
//
// while boundary cells are a fan around vertex 0.
type upsampleCell struct {
	indices []int
	inside  bool
}

// Upsampler turns XYZ colors into smooth spectra that reproduce them under
// the observer. It is immutable once built.
type Upsampler struct {
	resolution [2]int
	xyToUV     color.Matrix3
	cells      []upsampleCell
	points     []upsamplePoint

	// equalEnergyScale maps an equal-energy reflector to a constant spectrum of 1
	equalEnergyScale float64
	broken           int
}

var (
	defaultUpsampler     *Upsampler
	defaultUpsamplerOnce sync.Once
)

// DefaultUpsampler returns the process-wide table built against DefaultCMF
func DefaultUpsampler() *Upsampler {
	defaultUpsamplerOnce.Do(func() {
		defaultUpsampler = NewUpsampler(DefaultCMF())
	})
	return defaultUpsampler
}

// Resolution returns the number of grid cells along u and v
func (u *Upsampler) Resolution() (int, int) {
	return u.resolution[0], u.resolution[1]
}

// NumPoints returns the number of basis spectra in the table
func (u *Upsampler) NumPoints() int { return len(u.points) }

// BrokenPoints returns how many basis spectra fell back to a clamped
// unconstrained solution while the table was built
func (u *Upsampler) BrokenPoints() int { return u.broken }

// ToUV maps xy chromaticity into grid coordinates
func (u *Upsampler) ToUV(x, y float64) color.Vec2 {
	return u.xyToUV.Apply2(color.Vec2{x, y})
}

// InGrid reports whether grid coordinates fall inside the table
func (u *Upsampler) InGrid(uv color.Vec2) bool {
	return 0 <= uv[0] && uv[0] < float64(u.resolution[0]) &&
		0 <= uv[1] && uv[1] < float64(u.resolution[1])
}

// ToSpectra returns a spectrum whose observer projection reproduces xyz.
// Black, non-positive and out-of-grid inputs give a zero spectrum.
func (u *Upsampler) ToSpectra(xyz color.XYZ) Distribution {
	spectra := NewDistribution(SpectraRepresentation)
	sum := xyz.Sum()
	if !(sum > 0) {
		return spectra
	}

	yxy := xyz.ToYxy()
	uv := u.ToUV(yxy.X(), yxy.SmallY())
	if !u.InGrid(uv) {
		return spectra
	}

	cell := &u.cells[int(uv[0])+u.resolution[0]*int(uv[1])]
	scale := sum * u.equalEnergyScale
	p := make([]float64, len(cell.indices))
	for i := 0; i < SpectraSize; i++ {
		spectra.values[i] = u.interpolate(Wavelength(i), cell, uv, p) * scale
	}
	return spectra
}

// interpolate evaluates the table at one wavelength. p is scratch space
// with one slot per cell vertex.
func (u *Upsampler) interpolate(lambda int, cell *upsampleCell, uv color.Vec2, p []float64) float64 {
	if len(cell.indices) == 0 {
		return 0
	}

	sb := float64(lambda-tableShortestWavelength) /
		float64(tableLongestWavelength-tableShortestWavelength) *
		float64(tableSize-1)
	sb0 := int(sb)
	sb1 := min(sb0+1, tableSize-1)
	sbf := sb - float64(sb0)
	for i, idx := range cell.indices {
		s := &u.points[idx].spectrum
		p[i] = (1.0-sbf)*s[sb0] + sbf*s[sb1]
	}

	if cell.inside {
		fu := uv[0] - math.Floor(uv[0])
		fv := uv[1] - math.Floor(uv[1])
		return p[0]*(1.0-fu)*(1.0-fv) +
			p[2]*(1.0-fu)*fv +
			p[3]*fu*fv +
			p[1]*fu*(1.0-fv)
	}

	// Walk the fan around vertex 0; the first triangle containing uv wins
	n := len(cell.indices)
	origin := u.points[cell.indices[0]].uv
	first := u.points[cell.indices[1]].uv.Sub(origin)
	e := uv.Sub(origin)
	e0 := first
	uu := e0.Cross(e)
	for i := 0; i < n-1; i++ {
		last := i == n-2
		var e1 color.Vec2
		if last {
			e1 = first
		} else {
			e1 = u.points[cell.indices[i+2]].uv.Sub(origin)
		}
		vv := e.Cross(e1)
		area := e0.Cross(e1)
		if area == 0 {
			uu = -vv
			e0 = e1
			continue
		}
		bu := uu / area
		bv := vv / area
		bw := 1.0 - (bu + bv)
		if bu < 0 || bv < 0 || bw < 0 {
			uu = -vv
			e0 = e1
			continue
		}
		third := i + 2
		if last {
			third = 1
		}
		return p[0]*bw + p[i+1]*bv + p[third]*bu
	}
	return 0
}
