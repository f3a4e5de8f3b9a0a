package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoDataColor marks regions whose metric is missing.
const NoDataColor = "#e5e7eb"

// ErrUnknownMetric is returned when a metric name does not match any kind.
var ErrUnknownMetric = errors.New("unknown metric")

// MetricKind identifies one of the three derived metrics.
type MetricKind int

const (
	MetricAmount MetricKind = iota
	MetricTrend
	MetricVariability
)

// MetricKinds lists every kind in display order.
var MetricKinds = []MetricKind{MetricAmount, MetricTrend, MetricVariability}

// Band colors values strictly above Above.
type Band struct {
	Above float64
	Color string
}

// ThresholdTable maps a metric value to a color. Bands are ordered from the
// highest bound down; Floor colors everything at or below the last bound.
type ThresholdTable struct {
	Bands []Band
	Floor string
}

// Color returns the color of the first band the value strictly exceeds.
// NaN takes the no-data color.
func (t ThresholdTable) Color(v float64) string {
	if math.IsNaN(v) {
		return NoDataColor
	}
	for _, b := range t.Bands {
		if v > b.Above {
			return b.Color
		}
	}
	return t.Floor
}

type metricInfo struct {
	name   string
	title  string
	unit   string
	table  ThresholdTable
	grades []float64
}

var metricInfos = map[MetricKind]metricInfo{
	MetricAmount: {
		name:  "amount",
		title: "10-yr Avg (in)",
		unit:  " in/yr",
		table: ThresholdTable{
			Bands: []Band{
				{Above: 25, Color: "#08306b"},
				{Above: 20, Color: "#2171b5"},
				{Above: 15, Color: "#6baed6"},
				{Above: 10, Color: "#bdd7e7"},
			},
			Floor: "#eff3ff",
		},
		grades: []float64{0, 10, 15, 20, 25},
	},
	MetricTrend: {
		name:  "trend",
		title: "40-yr Trend (%)",
		unit:  "%",
		table: ThresholdTable{
			Bands: []Band{
				{Above: 20, Color: "#08306b"},
				{Above: 10, Color: "#2171b5"},
				{Above: 0, Color: "#6baed6"},
				{Above: -10, Color: "#fcae91"},
				{Above: -20, Color: "#fb6a4a"},
			},
			Floor: "#cb181d",
		},
		grades: []float64{-30, -15, 0, 15, 30},
	},
	MetricVariability: {
		name:  "variability",
		title: "Variability (std dev)",
		unit:  " std dev",
		table: ThresholdTable{
			Bands: []Band{
				{Above: 6, Color: "#4d004b"},
				{Above: 5, Color: "#810f7c"},
				{Above: 4, Color: "#8c6bb1"},
				{Above: 3, Color: "#9ebcda"},
				{Above: 2, Color: "#e7e1ef"},
			},
			Floor: "#ffffcc",
		},
		grades: []float64{0, 2, 3, 4, 5, 6},
	},
}

// ParseMetricKind maps a metric name ("amount", "trend", "variability") to its kind.
func ParseMetricKind(name string) (MetricKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, info := range metricInfos {
		if info.name == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

func (k MetricKind) String() string {
	if info, ok := metricInfos[k]; ok {
		return info.name
	}
	return "MetricKind(" + strconv.Itoa(int(k)) + ")"
}

// Title is the legend heading for the kind.
func (k MetricKind) Title() string { return metricInfos[k].title }

// Unit is the display suffix for values of the kind.
func (k MetricKind) Unit() string { return metricInfos[k].unit }

// Table returns the kind's threshold table.
func (k MetricKind) Table() ThresholdTable { return metricInfos[k].table }

// MarshalText encodes the kind by name.
func (k MetricKind) MarshalText() ([]byte, error) {
	if _, ok := metricInfos[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its name.
func (k *MetricKind) UnmarshalText(text []byte) error {
	kind, err := ParseMetricKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Classify colors a metric value; nil takes the no-data color.
func Classify(kind MetricKind, v *float64) string {
	if v == nil {
		return NoDataColor
	}
	return kind.Table().Color(*v)
}

// LegendEntry is one row of a map legend.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend lists the grades of a kind with their colors. Each grade is colored
// by the value one unit above it so it lands inside its band.
func Legend(kind MetricKind) []LegendEntry {
	grades := metricInfos[kind].grades
	entries := make([]LegendEntry, 0, len(grades))
	for i, g := range grades {
		label := formatGrade(g) + "+"
		if i+1 < len(grades) {
			label = formatGrade(g) + "–" + formatGrade(grades[i+1])
		}
		entries = append(entries, LegendEntry{
			Label: label,
			Color: kind.Table().Color(g + 1),
		})
	}
	return entries
}

func formatGrade(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}

// FormatValue renders a metric value with its unit, or "No data".
func FormatValue(kind MetricKind, v *float64) string {
	if v == nil {
		return "No data"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + kind.Unit()
}

// RegionStyle is the map fill of one region under a metric.
type RegionStyle struct {
	Metric MetricKind `json:"metric"`
	Color  string     `json:"fillColor"`
	Value  *float64   `json:"value"`
}

// StyleRegion colors a region from its metrics. A region with no cached entry
// passes a nil set and takes the no-data color.
func StyleRegion(kind MetricKind, metrics *MetricSet) RegionStyle {
	var v *float64
	if metrics != nil {
		v = metrics.Value(kind)
	}
	return RegionStyle{Metric: kind, Color: Classify(kind, v), Value: v}
}
