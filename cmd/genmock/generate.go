package main

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/couchcryptid/rainfall-explorer/internal/adapter/openmeteo"
	"github.com/couchcryptid/rainfall-explorer/internal/domain"
)

// generator produces plains-like daily precipitation: wet late springs, dry
// winters, most days dry. Output depends only on the coordinate and dates.
type generator struct {
	at       domain.Coordinates
	nullRate float64
}

// payload wraps the archive response so the generated series can be reused.
type payload struct {
	openmeteo.ArchiveResponse
}

func (g generator) seed() int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.4f,%.4f", g.at.Lat, g.at.Lon)
	return int64(h.Sum64() & math.MaxInt64)
}

func (g generator) archive(start, end string) (payload, error) {
	from, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return payload{}, fmt.Errorf("invalid -start: %w", err)
	}
	to, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return payload{}, fmt.Errorf("invalid -end: %w", err)
	}
	if to.Before(from) {
		return payload{}, fmt.Errorf("-end %s is before -start %s", end, start)
	}

	rng := rand.New(rand.NewSource(g.seed())) //nolint:gosec // synthetic fixture data
	block := &openmeteo.DailyBlock{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		block.Time = append(block.Time, d.Format(time.DateOnly))
		if rng.Float64() < g.nullRate {
			block.PrecipitationSum = append(block.PrecipitationSum, nil)
			continue
		}
		v := g.daily(rng, d)
		block.PrecipitationSum = append(block.PrecipitationSum, &v)
	}

	return payload{openmeteo.ArchiveResponse{
		Latitude:   g.at.Lat,
		Longitude:  g.at.Lon,
		Timezone:   "America/Chicago",
		DailyUnits: &openmeteo.DailyUnits{Time: "iso8601", PrecipitationSum: "inch"},
		Daily:      block,
	}}, nil
}

// daily draws one day's total. Rain chance and intensity peak in early June.
func (g generator) daily(rng *rand.Rand, d time.Time) float64 {
	season := math.Cos(2 * math.Pi * float64(d.YearDay()-160) / 365)
	chance := 0.22 + 0.12*season
	if rng.Float64() >= chance {
		return 0
	}
	mean := 0.22 + 0.12*season
	return math.Round(rng.ExpFloat64()*mean*100) / 100
}

// samples converts the payload to daily samples, nulls as zero.
func (p payload) samples() []domain.DailySample {
	out := make([]domain.DailySample, len(p.Daily.Time))
	for i, date := range p.Daily.Time {
		out[i].Date = date
		if v := p.Daily.PrecipitationSum[i]; v != nil {
			out[i].Value = *v
		}
	}
	return out
}
