package core

// CompensatedSum is a running total that carries a Kahan correction term.
// The zero value is an empty sum and it can be copied freely.
type CompensatedSum struct {
	sum        float64
	correction float64
}

// NewCompensatedSum creates a sum starting at value
func NewCompensatedSum(value float64) CompensatedSum {
	return CompensatedSum{sum: value}
}

// Add accumulates value into the sum
func (s *CompensatedSum) Add(value float64) {
	s.sum, s.correction = kahanAdd(s.sum, s.correction, value)
}

// Get returns the current estimate of the sum
func (s CompensatedSum) Get() float64 {
	return s.sum
}

// Set replaces the sum and drops the correction term
func (s *CompensatedSum) Set(value float64) {
	s.sum = value
	s.correction = 0
}

// Reset clears the sum to zero
func (s *CompensatedSum) Reset() {
	s.Set(0)
}

// kahanAdd returns the new (sum, correction) pair after adding value
func kahanAdd(sum, correction, value float64) (float64, float64) {
	t1 := value - correction
	t2 := sum + t1
	return t2, (t2 - sum) - t1
}

// Summation is an accumulation strategy over slot arrays.
// comp may be nil for strategies that do not need a correction term.
type Summation interface {
	// AddTo adds value into sums[i], updating comp[i] if the strategy uses it
	AddTo(sums, comp []float64, i int, value float64)
	// Compensated reports whether the strategy needs a correction buffer
	Compensated() bool
	Name() string
}

// PlainSummation adds values directly
type PlainSummation struct{}

// AddTo adds value into sums[i]
func (PlainSummation) AddTo(sums, _ []float64, i int, value float64) {
	sums[i] += value
}

// Compensated returns false
func (PlainSummation) Compensated() bool { return false }

// Name returns "plain"
func (PlainSummation) Name() string { return "plain" }

// KahanSummation adds values with a per-slot Kahan correction term
type KahanSummation struct{}

// AddTo adds value into sums[i] and updates comp[i]
func (KahanSummation) AddTo(sums, comp []float64, i int, value float64) {
	sums[i], comp[i] = kahanAdd(sums[i], comp[i], value)
}

// Compensated returns true
func (KahanSummation) Compensated() bool { return true }

// Name returns "compensated"
func (KahanSummation) Name() string { return "compensated" }

// SummationByName resolves a strategy name used in settings files.
func SummationByName(name string) (Summation, bool) {
	switch name {
	case "plain":
		return PlainSummation{}, true
	case "compensated", "kahan", "":
		return KahanSummation{}, true
	}
	return nil, false
}

// SumSlice sums values using the given strategy
func SumSlice(values []float64, strategy Summation) float64 {
	if !strategy.Compensated() {
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total
	}
	var s CompensatedSum
	for _, v := range values {
		s.Add(v)
	}
	return s.Get()
}
