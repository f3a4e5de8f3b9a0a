package boundary

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two South Dakota counties (one with a lowercase name property), one
// Minnesota county and a South Dakota feature with no name.
const countiesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "46011",
     "properties": {"STATE": "46", "NAME": "Brookings"},
     "geometry": {"type": "Polygon", "coordinates": [[[-97,44],[-96,44],[-96,45],[-97,45],[-97,44]]]}},
    {"type": "Feature", "id": "46013",
     "properties": {"STATE": 46, "name": "Brown"},
     "geometry": {"type": "Polygon", "coordinates": [[[-99,45],[-98,45],[-98,46],[-99,46],[-99,45]]]}},
    {"type": "Feature", "id": "27081",
     "properties": {"STATE": "27", "NAME": "Lincoln"},
     "geometry": {"type": "Polygon", "coordinates": [[[-96.5,44],[-96,44],[-96,44.5],[-96.5,44.5],[-96.5,44]]]}},
    {"type": "Feature",
     "properties": {"STATE": "46"},
     "geometry": {"type": "Point", "coordinates": [-100, 44]}}
  ]
}`

func testLoader() *Loader {
	l := NewLoader(2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
	}
	return l
}

func TestParse_FiltersState(t *testing.T) {
	c, err := Parse([]byte(countiesGeoJSON), "46")
	require.NoError(t, err)

	assert.Equal(t, []string{"Brookings", "Brown"}, c.Names())

	regions := c.Regions()
	require.Len(t, regions, 2)
	assert.InDelta(t, 44.5, regions[0].Center.Lat, 1e-9)
	assert.InDelta(t, -96.5, regions[0].Center.Lon, 1e-9)
}

func TestParse_NoFilter(t *testing.T) {
	c, err := Parse([]byte(countiesGeoJSON), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Brookings", "Brown", "Lincoln"}, c.Names())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`not json`), "46")
	require.Error(t, err)

	_, err = Parse([]byte(countiesGeoJSON), "02")
	require.ErrorIs(t, err, ErrNoRegions)
}

func TestCollection_Render(t *testing.T) {
	c, err := Parse([]byte(countiesGeoJSON), "46")
	require.NoError(t, err)

	amount := 22.5
	data, err := c.Render(map[string]domain.RegionStyle{
		"Brown": {Metric: domain.MetricAmount, Color: "#2171b5", Value: &amount},
	})
	require.NoError(t, err)

	var out struct {
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Features, 2)

	brookings, brown := out.Features[0], out.Features[1]
	assert.Equal(t, "46011", brookings.ID)
	assert.NotContains(t, brookings.Properties, "fillColor")

	assert.Equal(t, "46013", brown.ID)
	assert.Equal(t, "#2171b5", brown.Properties["fillColor"])
	assert.Equal(t, "amount", brown.Properties["metric"])
	assert.Equal(t, 22.5, brown.Properties["value"])

	// The source collection is left untouched.
	again, err := c.Render(nil)
	require.NoError(t, err)
	assert.NotContains(t, string(again), "fillColor")
}

func TestLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counties.geojson")
	require.NoError(t, os.WriteFile(path, []byte(countiesGeoJSON), 0o600))

	c, err := testLoader().Load(context.Background(), path, "46")
	require.NoError(t, err)
	assert.Len(t, c.Names(), 2)

	_, err = testLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.geojson"), "46")
	require.Error(t, err)
}

func TestLoader_URLRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(countiesGeoJSON))
	}))
	defer srv.Close()

	c, err := testLoader().Load(context.Background(), srv.URL, "46")
	require.NoError(t, err)
	assert.Equal(t, []string{"Brookings", "Brown"}, c.Names())
	assert.Equal(t, int32(3), hits.Load())
}

func TestLoader_URLNotFoundIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testLoader().Load(context.Background(), srv.URL, "46")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), hits.Load())
}

func TestCollection_RegisterMissing(t *testing.T) {
	c, err := Parse([]byte(countiesGeoJSON), "46")
	require.NoError(t, err)

	reg := domain.NewRegistry("South Dakota")
	reg.AddStatewide(domain.StatewideKey, domain.SouthDakotaCentroid)
	reg.AddCounty("Brown", domain.Coordinates{Lat: 45.57, Lon: -98.37})
	reg.SetFallback(domain.StatewideKey)

	added := c.RegisterMissing(reg)
	assert.Equal(t, []string{"Brookings"}, added)

	loc, err := reg.Lookup("Brookings")
	require.NoError(t, err)
	assert.False(t, loc.Fallback)
	assert.InDelta(t, 44.5, loc.Coords.Lat, 1e-9)

	brown, err := reg.Lookup("Brown")
	require.NoError(t, err)
	assert.InDelta(t, 45.57, brown.Coords.Lat, 1e-9, "registered counties keep their coordinates")

	assert.Empty(t, c.RegisterMissing(reg), "second pass adds nothing")
}
