package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompensatedSum_SmallIncrements(t *testing.T) {
	const n = 10_000_000
	const v = 0.1

	var compensated CompensatedSum
	plain := 0.0
	for i := 0; i < n; i++ {
		compensated.Add(v)
		plain += v
	}

	expected := float64(n) * v
	compensatedErr := math.Abs(compensated.Get() - expected)
	plainErr := math.Abs(plain - expected)

	assert.Less(t, compensatedErr, plainErr, "compensated sum should beat naive summation")
	assert.InDelta(t, expected, compensated.Get(), 1e-6)
}

func TestCompensatedSum_LargeThenSmall(t *testing.T) {
	s := NewCompensatedSum(1e16)
	for i := 0; i < 10; i++ {
		s.Add(1.0)
	}
	s.Add(-1e16)

	// Plain summation loses every 1.0 here
	assert.Equal(t, 10.0, s.Get())
}

func TestCompensatedSum_SetAndReset(t *testing.T) {
	var s CompensatedSum
	s.Add(3.5)
	s.Set(2.0)
	assert.Equal(t, 2.0, s.Get())

	s.Reset()
	assert.Equal(t, 0.0, s.Get())

	// Copies are independent
	s.Add(1.0)
	c := s
	c.Add(1.0)
	assert.Equal(t, 1.0, s.Get())
	assert.Equal(t, 2.0, c.Get())
}

func TestSummationStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy Summation
	}{
		{"plain", PlainSummation{}},
		{"compensated", KahanSummation{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sums := make([]float64, 2)
			comp := make([]float64, 2)
			for i := 0; i < 1000; i++ {
				tt.strategy.AddTo(sums, comp, 1, 0.5)
			}
			assert.Equal(t, 0.0, sums[0])
			assert.Equal(t, 500.0, sums[1])
			assert.Equal(t, tt.name, tt.strategy.Name())
		})
	}
}

func TestSummationByName(t *testing.T) {
	s, ok := SummationByName("plain")
	assert.True(t, ok)
	assert.False(t, s.Compensated())

	s, ok = SummationByName("compensated")
	assert.True(t, ok)
	assert.True(t, s.Compensated())

	_, ok = SummationByName("pairwise")
	assert.False(t, ok)
}

func TestSumSlice(t *testing.T) {
	values := []float64{1e16, 1, 1, 1, 1, -1e16}
	assert.Equal(t, 4.0, SumSlice(values, KahanSummation{}))
	assert.Equal(t, 6.0, SumSlice([]float64{1, 2, 3}, PlainSummation{}))
}
