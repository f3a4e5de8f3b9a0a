package domain

import (
	"math"
	"sort"
)

// AggregateYearly sums daily samples per calendar year.
func AggregateYearly(daily []DailySample) []Point {
	return aggregateByPrefix(daily, 4)
}

// AggregateMonthly sums daily samples per calendar month (YYYY-MM).
func AggregateMonthly(daily []DailySample) []Point {
	return aggregateByPrefix(daily, 7)
}

// aggregateByPrefix groups samples by the first n characters of their date,
// rounds each sum to two decimals and sorts by label. Fixed-width labels sort
// chronologically.
func aggregateByPrefix(daily []DailySample, n int) []Point {
	sums := make(map[string]float64)
	for _, d := range daily {
		if len(d.Date) < n {
			continue
		}
		sums[d.Date[:n]] += d.Value
	}

	points := make([]Point, 0, len(sums))
	for label, sum := range sums {
		points = append(points, Point{Label: label, Value: round2(sum)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points
}

// RecentDaily returns the trailing n samples.
func RecentDaily(daily []DailySample, n int) []DailySample {
	if n <= 0 {
		return nil
	}
	if len(daily) <= n {
		return append([]DailySample(nil), daily...)
	}
	return append([]DailySample(nil), daily[len(daily)-n:]...)
}

// DailyPoints converts daily samples into chart points labelled by date.
func DailyPoints(daily []DailySample) []Point {
	points := make([]Point, len(daily))
	for i, d := range daily {
		points[i] = Point{Label: d.Date, Value: d.Value}
	}
	return points
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
