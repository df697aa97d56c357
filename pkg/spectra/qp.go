package spectra

import (
	"errors"
	"math"

	"github.com/df07/go-spectral-film/pkg/color"
	"gonum.org/v1/gonum/mat"
)

const (
	qpTolerance     = 1e-12
	qpStepTolerance = 1e-14
)

// roughness returns element (j, k) of the Hessian of Σ (s[i] - s[i+1])²
// (up to a factor of two)
func roughness(j, k int) float64 {
	switch {
	case j == k:
		if j == 0 || j == SpectraSize-1 {
			return 1
		}
		return 2
	case j-k == 1 || k-j == 1:
		return -1
	}
	return 0
}

// feasibleSpectrum returns a non-negative spectrum whose observer projection
// is target. It mixes a constant spectrum with the two hull spikes where the
// ray from white through the target chromaticity leaves the hull. ok is false
// when the chromaticity lies outside the hull.
func feasibleSpectrum(cmf *CMF, target color.XYZ) ([]float64, bool) {
	hull, _ := spectralHull(cmf)
	white := chromaticity(cmf.equalEnergyXYZ())
	dir := chromaticity(target).Sub(white)

	// white + t*dir = a + v*(b - a), closest exit with t >= 1
	bestT, bestA, bestB, bestV := math.Inf(1), -1, -1, 0.0
	for k, a := range hull {
		b := hull[(k+1)%len(hull)]
		pa := chromaticity(cmf.spikeXYZ(a))
		edge := chromaticity(cmf.spikeXYZ(b)).Sub(pa)
		den := edge.Cross(dir)
		if den == 0 {
			continue
		}
		r := pa.Sub(white)
		t := edge.Cross(r) / den
		v := dir.Cross(r) / den
		if t >= 1 && v >= -qpTolerance && v <= 1+qpTolerance && t < bestT {
			bestT, bestA, bestB, bestV = t, a, b, min(1, max(0, v))
		}
	}

	whiteSum := cmf.equalEnergyXYZ().Sum()
	alpha := 0.0
	if bestA >= 0 {
		alpha = 1 / bestT
	} else if dir.Length() > qpTolerance {
		return nil, false
	}

	// Weights are fractions of X+Y+Z, each component scaled to a unit sum
	s := make([]float64, SpectraSize)
	for i := range s {
		s[i] = (1 - alpha) / whiteSum
	}
	if bestA >= 0 {
		s[bestA] += alpha * (1 - bestV) / cmf.spikeXYZ(bestA).Sum()
		s[bestB] += alpha * bestV / cmf.spikeXYZ(bestB).Sum()
	}
	sum := target.Sum()
	for i := range s {
		s[i] *= sum
	}
	return s, true
}

// smoothestSpectrum finds the spectrum s ≥ 0 minimizing Σ (s[i] - s[i+1])²
// subject to the observer projection of s being exactly target. It is a
// primal active set method over the non-negativity bounds started from a
// feasible spectrum; each step solves the equality constrained KKT system
// with the working set held at zero. ok is false when target is outside the
// reachable chromaticities or the iteration does not settle.
func smoothestSpectrum(cmf *CMF, target color.XYZ) ([]float64, bool) {
	bars := [3][]float64{cmf.xBar.values, cmf.yBar.values, cmf.zBar.values}
	s, ok := feasibleSpectrum(cmf, target)
	if !ok {
		return make([]float64, SpectraSize), false
	}
	fixed := make([]bool, SpectraSize)
	step := make([]float64, SpectraSize)

	for iter := 0; iter < 8*SpectraSize; iter++ {
		next, nu, ok := solveKKT(bars, target, fixed)
		if !ok {
			break
		}

		largest := 0.0
		for j := range step {
			step[j] = next[j] - s[j]
			largest = max(largest, math.Abs(step[j]))
		}

		if largest < qpStepTolerance {
			// Release the bound whose multiplier is most negative
			worst, worstMu := -1, -qpTolerance
			for j := range next {
				if !fixed[j] {
					continue
				}
				mu := 0.0
				for k := max(0, j-1); k <= min(SpectraSize-1, j+1); k++ {
					mu += roughness(j, k) * next[k]
				}
				for c := range bars {
					mu += bars[c][j] * nu[c]
				}
				if mu < worstMu {
					worst, worstMu = j, mu
				}
			}
			if worst < 0 {
				return clampNonNegative(next), true
			}
			fixed[worst] = false
			s = next
			continue
		}

		// Walk towards next until a free variable hits zero
		alpha, blocking := 1.0, -1
		for j, d := range step {
			if !fixed[j] && d < 0 {
				if a := -s[j] / d; a < alpha {
					alpha, blocking = a, j
				}
			}
		}
		for j, d := range step {
			s[j] += alpha * d
		}
		if blocking >= 0 {
			fixed[blocking] = true
			s[blocking] = 0
		}
	}
	return clampNonNegative(s), false
}

// solveKKT minimizes the roughness over the free variables with the fixed
// ones held at zero, returning the full spectrum and the three equality multipliers
func solveKKT(bars [3][]float64, target color.XYZ, fixed []bool) ([]float64, [3]float64, bool) {
	var free []int
	for j, f := range fixed {
		if !f {
			free = append(free, j)
		}
	}
	m := len(free)
	if m < 3 {
		return nil, [3]float64{}, false
	}

	kkt := mat.NewDense(m+3, m+3, nil)
	rhs := mat.NewVecDense(m+3, nil)
	for a, j := range free {
		for b, k := range free {
			kkt.Set(a, b, roughness(j, k))
		}
		for c := range bars {
			kkt.Set(a, m+c, bars[c][j])
			kkt.Set(m+c, a, bars[c][j])
		}
	}
	for c := range bars {
		rhs.SetVec(m+c, target[c])
	}

	var x mat.VecDense
	if err := x.SolveVec(kkt, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, [3]float64{}, false
		}
	}

	s := make([]float64, SpectraSize)
	for a, j := range free {
		s[j] = x.AtVec(a)
	}
	return s, [3]float64{x.AtVec(m), x.AtVec(m + 1), x.AtVec(m + 2)}, true
}

func clampNonNegative(s []float64) []float64 {
	for i, v := range s {
		s[i] = max(0, v)
	}
	return s
}
