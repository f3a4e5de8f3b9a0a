package main

import (
	"encoding/json"
	"testing"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Deterministic(t *testing.T) {
	g := generator{at: domain.Coordinates{Lat: 43.54, Lon: -96.73}, nullRate: 0.05}

	a, err := g.archive("2020-01-01", "2021-12-31")
	require.NoError(t, err)
	b, err := g.archive("2020-01-01", "2021-12-31")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.Len(t, a.Daily.Time, 731)
	assert.Len(t, a.Daily.PrecipitationSum, 731)
	assert.Equal(t, "2020-01-01", a.Daily.Time[0])
	assert.Equal(t, "2021-12-31", a.Daily.Time[730])

	other := generator{at: domain.Coordinates{Lat: 45.46, Lon: -98.49}, nullRate: 0.05}
	c, err := other.archive("2020-01-01", "2021-12-31")
	require.NoError(t, err)
	assert.NotEqual(t, a.Daily.PrecipitationSum, c.Daily.PrecipitationSum)
}

func TestGenerator_PlausibleTotals(t *testing.T) {
	g := generator{at: domain.SouthDakotaCentroid}
	p, err := g.archive("2000-01-01", "2009-12-31")
	require.NoError(t, err)

	yearly := domain.AggregateYearly(p.samples())
	require.Len(t, yearly, 10)
	for _, y := range yearly {
		assert.Greater(t, y.Value, 5.0, y.Label)
		assert.Less(t, y.Value, 60.0, y.Label)
	}
}

func TestGenerator_PayloadShape(t *testing.T) {
	g := generator{at: domain.SouthDakotaCentroid, nullRate: 1}
	p, err := g.archive("2024-02-28", "2024-03-01")
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"latitude": 44.37, "longitude": -100.35, "timezone": "America/Chicago",
		"daily_units": {"time": "iso8601", "precipitation_sum": "inch"},
		"daily": {"time": ["2024-02-28", "2024-02-29", "2024-03-01"], "precipitation_sum": [null, null, null]}
	}`, string(data))

	for _, s := range p.samples() {
		assert.Zero(t, s.Value, "nulls read as zero")
	}
}

func TestGenerator_InvalidRange(t *testing.T) {
	g := generator{}
	_, err := g.archive("2024-01-02", "2024-01-01")
	require.Error(t, err)
	_, err = g.archive("yesterday", "2024-01-01")
	require.ErrorContains(t, err, "-start")
}
