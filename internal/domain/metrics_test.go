package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// series builds a yearly series starting in 1950 from the given values.
func series(values ...float64) []Point {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Label: fmt.Sprint(1950 + i), Value: v}
	}
	return points
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAmount(t *testing.T) {
	t.Run("short series averages available years", func(t *testing.T) {
		got := Amount(series(10, 10, 10, 10, 10))
		require.NotNil(t, got)
		assert.InDelta(t, 10.0, *got, 1e-9)
	})

	t.Run("uses trailing ten years", func(t *testing.T) {
		values := append(repeat(100, 5), repeat(20, 10)...)
		got := Amount(series(values...))
		require.NotNil(t, got)
		assert.InDelta(t, 20.0, *got, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, Amount(nil))
	})
}

func TestTrend(t *testing.T) {
	t.Run("fewer than forty years", func(t *testing.T) {
		assert.Nil(t, Trend(series(repeat(10, 39)...)))
	})

	t.Run("fifty percent increase", func(t *testing.T) {
		values := append(repeat(10, 20), repeat(15, 20)...)
		got := Trend(series(values...))
		require.NotNil(t, got)
		assert.InDelta(t, 50.0, *got, 1e-9)
	})

	t.Run("only the last forty years count", func(t *testing.T) {
		values := append(repeat(1000, 5), append(repeat(20, 20), repeat(15, 20)...)...)
		got := Trend(series(values...))
		require.NotNil(t, got)
		assert.InDelta(t, -25.0, *got, 1e-9)
	})

	t.Run("zero prior mean", func(t *testing.T) {
		values := append(repeat(0, 20), repeat(12, 20)...)
		got := Trend(series(values...))
		require.NotNil(t, got)
		assert.Equal(t, 0.0, *got)
	})
}

func TestVariability(t *testing.T) {
	got := Variability(series(1, 2, 3, 4, 5))
	require.NotNil(t, got)
	assert.InDelta(t, 1.4142, *got, 1e-4)

	assert.Nil(t, Variability(nil))

	single := Variability(series(7))
	require.NotNil(t, single)
	assert.Equal(t, 0.0, *single)
}

func TestComputeMetrics(t *testing.T) {
	values := append(repeat(10, 20), repeat(15, 20)...)
	m := ComputeMetrics(series(values...))

	require.NotNil(t, m.Amount)
	require.NotNil(t, m.Trend)
	require.NotNil(t, m.Variability)
	assert.InDelta(t, 15.0, *m.Amount, 1e-9)
	assert.InDelta(t, 50.0, *m.Trend, 1e-9)
	assert.InDelta(t, 2.5, *m.Variability, 1e-9)

	assert.Same(t, m.Amount, m.Value(MetricAmount))
	assert.Same(t, m.Trend, m.Value(MetricTrend))
	assert.Same(t, m.Variability, m.Value(MetricVariability))
	assert.Nil(t, m.Value(MetricKind(42)))
}
