package spectra

import (
	"math"
	"sort"

	"github.com/df07/go-spectral-film/pkg/color"
)

// Grid construction parameters
const (
	gridBaseResolutionX = 6
	gridBaseResolutionY = 4
	// gridScale pulls every vertex toward white to avoid singular spectra on the locus
	gridScale      = 0.97
	clipTolerance  = 1e-4
	locusTolerance = 1e-9
)

// gridPoint is a vertex while the grid is being built
type gridPoint struct {
	xystar color.Vec2
	inside bool
	white  bool
}

// gridCell is a cell while the grid is being built
type gridCell struct {
	indices []int
	inside  bool
}

// chromaticity returns the xy chromaticity of xyz
func chromaticity(xyz color.XYZ) color.Vec2 {
	s := xyz.Sum()
	return color.Vec2{xyz[0] / s, xyz[1] / s}
}

// spikeXYZ returns the observer response to a unit spike in bin i
func (c *CMF) spikeXYZ(i int) color.XYZ {
	return color.XYZ{c.xBar.values[i], c.yBar.values[i], c.zBar.values[i]}
}

// spectralHull returns the bins whose spikes span the convex hull of all
// monochromatic chromaticities, counter-clockwise from the leftmost. The
// fitted observer curls back on itself at both ends of the visible range, so
// the raw locus is not a simple polygon. The hull is exactly the set of
// chromaticities a non-negative spectrum can reach. red is the position of
// the reddest vertex; the purple line runs from the vertex before it.
func spectralHull(cmf *CMF) (hull []int, red int) {
	xy := make([]color.Vec2, SpectraSize)
	order := make([]int, SpectraSize)
	for i := range xy {
		xy[i] = chromaticity(cmf.spikeXYZ(i))
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		pa, pb := xy[order[a]], xy[order[b]]
		if pa[0] != pb[0] {
			return pa[0] < pb[0]
		}
		return pa[1] < pb[1]
	})

	turnsLeft := func(chain []int, i int) bool {
		o, a := xy[chain[len(chain)-2]], xy[chain[len(chain)-1]]
		return a.Sub(o).Cross(xy[i].Sub(o)) > 0
	}
	var lower, upper []int
	for _, i := range order {
		for len(lower) >= 2 && !turnsLeft(lower, i) {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, i)
	}
	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		for len(upper) >= 2 && !turnsLeft(upper, i) {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, i)
	}

	hull = append(lower[:len(lower)-1:len(lower)-1], upper[:len(upper)-1]...)
	return hull, len(lower) - 1
}

// xystarTransform maps xy into xy*, a plane with equal-energy white at the
// origin and the purple line horizontal
func xystarTransform(cmf *CMF, hull []int, red int) color.Matrix3 {
	white := chromaticity(cmf.equalEnergyXYZ())
	b := chromaticity(cmf.spikeXYZ(hull[red-1]))
	r := chromaticity(cmf.spikeXYZ(hull[red]))

	d := r.Sub(b)
	d = d.MulScalar(1.0 / d.Length())
	rotation := color.Matrix3{
		d[0], d[1], 0,
		-d[1], d[0], 0,
		0, 0, 1,
	}
	return rotation.Mul(color.Translate2(-white[0], -white[1]))
}

// spectralLocus returns the hull of monochromatic colors in xy*
func spectralLocus(cmf *CMF, hull []int, xyToXystar color.Matrix3) []color.Vec2 {
	locus := make([]color.Vec2, len(hull))
	for k, i := range hull {
		locus[k] = xyToXystar.Apply2(chromaticity(cmf.spikeXYZ(i)))
	}
	return locus
}

// onSegment reports whether p lies on the segment a-b
func onSegment(a, b, p color.Vec2) bool {
	ab := b.Sub(a)
	if math.Abs(ab.Cross(p.Sub(a))) > locusTolerance*max(1, ab.Length()) {
		return false
	}
	return min(a[0], b[0])-locusTolerance <= p[0] && p[0] <= max(a[0], b[0])+locusTolerance &&
		min(a[1], b[1])-locusTolerance <= p[1] && p[1] <= max(a[1], b[1])+locusTolerance
}

// containsPoint is an even-odd crossing test against a closed polygon.
// Points on an edge count as inside, which keeps the purple line in the grid.
func containsPoint(polygon []color.Vec2, p color.Vec2) bool {
	inside := false
	j := len(polygon) - 1
	for i := range polygon {
		a, b := polygon[i], polygon[j]
		if onSegment(a, b, p) {
			return true
		}
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := a[0] + (p[1]-a[1])*(b[0]-a[0])/(b[1]-a[1])
			if p[0] < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// findIntersection bisects the segment p0-p1 whose endpoints lie on
// different sides of the locus. The result is nudged to the inside.
func findIntersection(locus []color.Vec2, p0, p1 color.Vec2, i0, i1 bool) color.Vec2 {
	for {
		delta := p1.Sub(p0)
		if delta.Length() < clipTolerance {
			delta = delta.MulScalar(0.998)
			if i0 {
				return p1.Sub(delta)
			}
			return p0.Add(delta)
		}

		mid := p0.Add(p1).MulScalar(0.5)
		im := containsPoint(locus, mid)
		switch {
		case i0 != im:
			p1, i1 = mid, im
		case i1 != im:
			p0, i0 = mid, im
		default:
			return mid
		}
	}
}

// clipEdge returns a new vertex where the edge d0-d1 crosses the locus
func clipEdge(locus []color.Vec2, d0, d1 gridPoint) (gridPoint, bool) {
	if d0.inside == d1.inside {
		return gridPoint{}, false
	}
	p := findIntersection(locus, d0.xystar, d1.xystar, d0.inside, d1.inside)
	return gridPoint{xystar: p, inside: true}, true
}

// NewUpsampler builds the basis spectra grid for the given observer.
//
// A regular grid is laid over the spectral hull in xy*, with equal-energy white
// on a vertex. Cells crossing the locus are clipped to it and triangulated
// as fans. Every vertex gets the smoothest non-negative spectrum matching
// its chromaticity with X+Y+Z = 1.
func NewUpsampler(cmf *CMF) *Upsampler {
	hull, red := spectralHull(cmf)
	xyToXystar := xystarTransform(cmf, hull, red)
	locus := spectralLocus(cmf, hull, xyToXystar)

	bboxMin, bboxMax := locus[0], locus[0]
	for _, p := range locus[1:] {
		bboxMin = color.Vec2{min(bboxMin[0], p[0]), min(bboxMin[1], p[1])}
		bboxMax = color.Vec2{max(bboxMax[0], p[0]), max(bboxMax[1], p[1])}
	}

	// White sits at the origin; subdivide towards the reddest point, then
	// extend the grid until the whole hull is covered.
	stepX := math.Abs(bboxMax[0]) / gridBaseResolutionX
	stepY := math.Abs(bboxMin[1]) / gridBaseResolutionY
	addX := int(math.Ceil(math.Abs(bboxMin[0]) / stepX))
	addY := int(math.Ceil(math.Abs(bboxMax[1]) / stepY))
	whiteX, whiteY := addX, gridBaseResolutionY

	res := [2]int{gridBaseResolutionX + addX, gridBaseResolutionY + addY}
	bboxMin = color.Vec2{-stepX * float64(addX), bboxMin[1]}
	bboxMax = color.Vec2{bboxMax[0], stepY * float64(addY)}

	cells := make([]gridCell, res[0]*res[1])
	for i := range cells {
		cells[i].inside = true
	}
	var points []gridPoint

	for y := 0; y <= res[1]; y++ {
		for x := 0; x <= res[0]; x++ {
			p := gridPoint{
				xystar: color.Vec2{bboxMin[0] + stepX*float64(x), bboxMin[1] + stepY*float64(y)},
				white:  x == whiteX && y == whiteY,
			}
			p.inside = containsPoint(locus, p.xystar)

			idx := len(points)
			points = append(points, p)
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					cx, cy := x-dx, y-dy
					if cx < 0 || cx >= res[0] || cy < 0 || cy >= res[1] {
						continue
					}
					c := &cells[cy*res[0]+cx]
					c.indices = append(c.indices, idx)
					c.inside = c.inside && p.inside
				}
			}
		}
	}

	// Clip the bottom and left edge of every cell that is not fully inside
	//
	//	d2
	//	d0 d1
	stride := res[0] + 1
	for x := 0; x < res[0]; x++ {
		for y := 0; y < res[1]; y++ {
			if cells[y*res[0]+x].inside {
				continue
			}
			d0 := points[y*stride+x]
			d1 := points[y*stride+x+1]
			d2 := points[(y+1)*stride+x]

			if p, ok := clipEdge(locus, d0, d1); ok {
				idx := len(points)
				points = append(points, p)
				cells[y*res[0]+x].indices = append(cells[y*res[0]+x].indices, idx)
				if y > 0 {
					below := &cells[(y-1)*res[0]+x]
					below.indices = append(below.indices, idx)
				}
			}
			if p, ok := clipEdge(locus, d0, d2); ok {
				idx := len(points)
				points = append(points, p)
				cells[y*res[0]+x].indices = append(cells[y*res[0]+x].indices, idx)
				if x > 0 {
					left := &cells[y*res[0]+x-1]
					left.indices = append(left.indices, idx)
				}
			}
		}
	}

	points, cells = compactGrid(points, cells)

	for i := range points {
		points[i].xystar = points[i].xystar.MulScalar(gridScale)
	}
	bboxMin = bboxMin.MulScalar(gridScale)
	bboxMax = bboxMax.MulScalar(gridScale)

	w := bboxMax[0] - bboxMin[0]
	h := bboxMax[1] - bboxMin[1]
	xystarToUV := color.Scale2(float64(res[0])/w, float64(res[1])/h).
		Mul(color.Translate2(-bboxMin[0], -bboxMin[1]))
	xyToUV := xystarToUV.Mul(xyToXystar)
	uvToXY, _ := xyToUV.Inverse()

	points, cells = triangleFans(points, cells)

	u := &Upsampler{
		resolution:       res,
		xyToUV:           xyToUV,
		cells:            make([]upsampleCell, len(cells)),
		points:           make([]upsamplePoint, len(points)),
		equalEnergyScale: cmf.yBarSum,
	}
	for i, c := range cells {
		u.cells[i] = upsampleCell{indices: c.indices, inside: c.inside && len(c.indices) == 4}
	}

	white := 1.0 / cmf.equalEnergyXYZ().Sum()
	for i, p := range points {
		uv := xystarToUV.Apply2(p.xystar)
		u.points[i].uv = uv
		if p.white {
			for j := range u.points[i].spectrum {
				u.points[i].spectrum[j] = white
			}
			continue
		}

		// Luminance y makes X+Y+Z = 1
		xy := uvToXY.Apply2(uv)
		target := color.XYZ{xy[0], xy[1], 1.0 - xy[0] - xy[1]}
		spectrum, ok := smoothestSpectrum(cmf, target)
		if !ok {
			u.broken++
		}
		copy(u.points[i].spectrum[:], spectrum)
	}
	return u
}

// compactGrid drops outside vertices and remaps cell indices
func compactGrid(points []gridPoint, cells []gridCell) ([]gridPoint, []gridCell) {
	remap := make([]int, len(points))
	var kept []gridPoint
	for i, p := range points {
		if p.inside {
			remap[i] = len(kept)
			kept = append(kept, p)
		} else {
			remap[i] = -1
		}
	}

	for i := range cells {
		var indices []int
		for _, old := range cells[i].indices {
			if remap[old] >= 0 {
				indices = append(indices, remap[old])
			}
		}
		cells[i].indices = indices
	}
	return kept, cells
}

// triangleFans reorders every non-trivial cell into a fan around a new
// centroid vertex, with the remaining vertices sorted by angle
func triangleFans(points []gridPoint, cells []gridCell) ([]gridPoint, []gridCell) {
	for i := range cells {
		c := &cells[i]
		n := len(c.indices)
		if n == 0 || (n == 4 && c.inside) {
			continue
		}

		var centroid color.Vec2
		for _, idx := range c.indices {
			centroid = centroid.Add(points[idx].xystar)
		}
		centroid = centroid.MulScalar(1.0 / float64(n))

		type fanVertex struct {
			index int
			angle float64
		}
		fan := make([]fanVertex, n)
		for k, idx := range c.indices {
			d := points[idx].xystar.Sub(centroid)
			fan[k] = fanVertex{idx, math.Atan2(d[1], d[0])}
		}
		sort.SliceStable(fan, func(a, b int) bool { return fan[a].angle < fan[b].angle })

		center := len(points)
		points = append(points, gridPoint{xystar: centroid, inside: true})
		indices := make([]int, 0, n+1)
		indices = append(indices, center)
		for _, v := range fan {
			indices = append(indices, v.index)
		}
		c.indices = indices
	}
	return points, cells
}
