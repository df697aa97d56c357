package spectra

import (
	"math"
	"sync"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
)

// lobe is one asymmetric gaussian term of the multi-lobe observer fit
type lobe struct {
	weight, mu, sigma1, sigma2 float64
}

func (l lobe) eval(lambda float64) float64 {
	sigma := l.sigma2
	if lambda < l.mu {
		sigma = l.sigma1
	}
	t := (lambda - l.mu) / sigma
	return l.weight * math.Exp(-0.5*t*t)
}

// Wyman, Sloan and Shirley 2013, "Simple Analytic Approximations to the
// CIE XYZ Color Matching Functions", multi-lobe fit
var (
	xBarLobes = []lobe{
		{1.056, 599.8, 37.9, 31.0},
		{0.362, 442.0, 16.0, 26.7},
		{-0.065, 501.1, 20.4, 26.2},
	}
	yBarLobes = []lobe{
		{0.821, 568.8, 46.9, 40.5},
		{0.286, 530.9, 16.3, 31.1},
	}
	zBarLobes = []lobe{
		{1.217, 437.0, 11.8, 36.0},
		{0.681, 459.0, 26.0, 13.8},
	}
)

func evalLobes(lobes []lobe, lambda float64) float64 {
	v := 0.0
	for _, l := range lobes {
		v += l.eval(lambda)
	}
	return v
}

// CMF is the tabulated CIE 1931 2 degree standard observer. It is immutable
// after construction and safe to share between goroutines.
type CMF struct {
	xBar, yBar, zBar Distribution
	yBarSum          float64
}

// NewCMF tabulates the observer at every wavelength bin center
func NewCMF() *CMF {
	c := &CMF{
		xBar: NewDistribution(SpectraRepresentation),
		yBar: NewDistribution(SpectraRepresentation),
		zBar: NewDistribution(SpectraRepresentation),
	}
	for i := 0; i < SpectraSize; i++ {
		lambda := float64(Wavelength(i))
		c.xBar.Set(i, evalLobes(xBarLobes, lambda))
		c.yBar.Set(i, evalLobes(yBarLobes, lambda))
		c.zBar.Set(i, evalLobes(zBarLobes, lambda))
	}
	c.yBarSum = c.yBar.CompensatedSum()
	return c
}

var (
	defaultCMF     *CMF
	defaultCMFOnce sync.Once
)

// DefaultCMF returns the process-wide observer table
func DefaultCMF() *CMF {
	defaultCMFOnce.Do(func() {
		defaultCMF = NewCMF()
	})
	return defaultCMF
}

// XBar returns a copy of the x̄ curve
func (c *CMF) XBar() Distribution { return c.xBar.Clone() }

// YBar returns a copy of the ȳ curve
func (c *CMF) YBar() Distribution { return c.yBar.Clone() }

// ZBar returns a copy of the z̄ curve
func (c *CMF) ZBar() Distribution { return c.zBar.Clone() }

// YBarSum returns the sum of the ȳ curve over all bins
func (c *CMF) YBarSum() float64 { return c.yBarSum }

// ToXYZForEmitter returns Σ (x̄, ȳ, z̄)[i] * d[i]
func (c *CMF) ToXYZForEmitter(d Distribution) color.XYZ {
	return c.Project(d.values)
}

// ToXYZForReflector returns the emitter projection divided by Σ ȳ
func (c *CMF) ToXYZForReflector(d Distribution) color.XYZ {
	xyz := c.ToXYZForEmitter(d)
	return color.XYZ{xyz[0] / c.yBarSum, xyz[1] / c.yBarSum, xyz[2] / c.yBarSum}
}

// Project computes the emitter projection of raw per-bin values
func (c *CMF) Project(values []float64) color.XYZ {
	if len(values) != SpectraSize {
		panic("spectra: observer projection requires a spectral distribution")
	}
	var x, y, z core.CompensatedSum
	for i, v := range values {
		x.Add(c.xBar.values[i] * v)
		y.Add(c.yBar.values[i] * v)
		z.Add(c.zBar.values[i] * v)
	}
	return color.XYZ{x.Get(), y.Get(), z.Get()}
}

// equalEnergyXYZ returns the emitter projection of a constant spectrum of 1
func (c *CMF) equalEnergyXYZ() color.XYZ {
	return color.XYZ{c.xBar.CompensatedSum(), c.yBarSum, c.zBar.CompensatedSum()}
}
