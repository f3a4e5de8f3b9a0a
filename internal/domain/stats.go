package domain

import (
	"fmt"
	"strconv"
)

// Granularity is the time resolution of a charted series.
type Granularity string

const (
	Yearly  Granularity = "yearly"
	Monthly Granularity = "monthly"
	Daily   Granularity = "daily"
)

// ParseGranularity validates a granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Yearly, Monthly, Daily:
		return g, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// Unit is the singular period noun used in stat captions ("year", "month", "day").
func (g Granularity) Unit() string {
	switch g {
	case Yearly:
		return "year"
	case Monthly:
		return "month"
	default:
		return "day"
	}
}

const (
	changeWindow     = 10
	baselineYear     = 2000
	directionPercent = 5
)

// Extreme is the wettest or driest point of a series.
type Extreme struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// SummaryStats describes the series currently charted.
type SummaryStats struct {
	Title       string      `json:"title"`
	Granularity Granularity `json:"granularity"`
	Count       int         `json:"count"`
	Total       float64     `json:"total"`
	Average     float64     `json:"average"`
	Wettest     *Extreme    `json:"wettest"`
	Driest      *Extreme    `json:"driest"`

	// ChangePercent compares the mean of the last 10 points with the 10 before.
	ChangePercent *float64 `json:"change_percent"`
	// LongTermTrend compares the mean of the last 10 points with the mean of
	// every point dated before 2000.
	LongTermTrend *float64 `json:"long_term_trend"`
	// Direction is "up" or "down" when ChangePercent moves more than 5%.
	Direction string `json:"direction,omitempty"`
}

// Summarize computes descriptive statistics over a charted series. An empty
// series yields zero totals and nil extrema.
func Summarize(points []Point, granularity Granularity, title string) SummaryStats {
	stats := SummaryStats{Title: title, Granularity: granularity, Count: len(points)}
	if len(points) == 0 {
		return stats
	}

	var total float64
	wettest, driest := points[0], points[0]
	for _, p := range points {
		total += p.Value
		if p.Value > wettest.Value {
			wettest = p
		}
		if p.Value < driest.Value {
			driest = p
		}
	}

	stats.Total = round2(total)
	stats.Average = round2(total / float64(len(points)))
	stats.Wettest = &Extreme{Label: wettest.Label, Value: wettest.Value}
	stats.Driest = &Extreme{Label: driest.Label, Value: driest.Value}
	stats.ChangePercent = changePercent(points)
	stats.LongTermTrend = longTermTrend(points)

	if c := stats.ChangePercent; c != nil {
		switch {
		case *c > directionPercent:
			stats.Direction = "up"
		case *c < -directionPercent:
			stats.Direction = "down"
		}
	}
	return stats
}

func changePercent(points []Point) *float64 {
	n := len(points)
	if n < 2*changeWindow {
		return nil
	}
	last := mean(points[n-changeWindow:])
	prev := mean(points[n-2*changeWindow : n-changeWindow])
	if prev == 0 {
		return nil
	}
	v := (last - prev) / prev * 100
	return &v
}

func longTermTrend(points []Point) *float64 {
	n := len(points)
	if n < changeWindow {
		return nil
	}

	var early []Point
	for _, p := range points {
		if y, ok := labelYear(p.Label); ok && y < baselineYear {
			early = append(early, p)
		}
	}
	if len(early) == 0 {
		return nil
	}
	base := mean(early)
	if base == 0 {
		return nil
	}
	v := (mean(points[n-changeWindow:]) - base) / base * 100
	return &v
}

// labelYear extracts the year from a "YYYY", "YYYY-MM" or "YYYY-MM-DD" label.
func labelYear(label string) (int, bool) {
	if len(label) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(label[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}
