package domain

import "math"

const (
	// amountWindow is the trailing window, in years, averaged by Amount.
	amountWindow = 10
	// trendWindow is the size of each of the two windows compared by Trend.
	trendWindow = 20
)

// ComputeMetrics derives the amount, trend and variability of a yearly series.
func ComputeMetrics(yearly []Point) MetricSet {
	return MetricSet{
		Amount:      Amount(yearly),
		Trend:       Trend(yearly),
		Variability: Variability(yearly),
	}
}

// Amount is the mean of the trailing (up to) ten yearly totals. Short series
// are averaged over the years they actually have.
func Amount(yearly []Point) *float64 {
	if len(yearly) == 0 {
		return nil
	}
	window := yearly
	if len(window) > amountWindow {
		window = window[len(window)-amountWindow:]
	}
	v := mean(window)
	return &v
}

// Trend is the percent change between the mean of the last 20 years and the
// mean of the 20 years before them. It is nil with fewer than 40 years and 0
// when the earlier mean is 0.
func Trend(yearly []Point) *float64 {
	n := len(yearly)
	if n < 2*trendWindow {
		return nil
	}
	recent := mean(yearly[n-trendWindow:])
	prior := mean(yearly[n-2*trendWindow : n-trendWindow])

	var v float64
	if prior != 0 {
		v = (recent - prior) / prior * 100
	}
	return &v
}

// Variability is the population standard deviation of the whole series.
func Variability(yearly []Point) *float64 {
	if len(yearly) == 0 {
		return nil
	}
	m := mean(yearly)
	var sq float64
	for _, p := range yearly {
		d := p.Value - m
		sq += d * d
	}
	v := math.Sqrt(sq / float64(len(yearly)))
	return &v
}

// mean returns the arithmetic mean of the point values. Callers guarantee a
// non-empty slice.
func mean(points []Point) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}
