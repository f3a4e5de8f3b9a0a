// Command genmock writes a deterministic synthetic archive payload for one
// coordinate, in the shape the archive client decodes. The payload can back
// local runs (serve it from any static file server and point
// ARCHIVE_BASE_URL at it) or test fixtures. With -entry-out it also writes
// the RegionEntry the service would derive from it.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -lat 43.54 -lon -96.73 \
//	  -start 1980-01-01 -end 2024-12-31 \
//	  -out data/mock/archive_sioux_falls.json \
//	  -entry-out data/mock/region_sioux_falls.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	lat := flag.Float64("lat", domain.SouthDakotaCentroid.Lat, "latitude")
	lon := flag.Float64("lon", domain.SouthDakotaCentroid.Lon, "longitude")
	start := flag.String("start", "1980-01-01", "first date (YYYY-MM-DD)")
	end := flag.String("end", "2024-12-31", "last date (YYYY-MM-DD)")
	nullRate := flag.Float64("null-rate", 0.01, "fraction of days reported as null")
	out := flag.String("out", "", "output path for the archive payload")
	entryOut := flag.String("entry-out", "", "optional output path for the derived region entry")
	key := flag.String("key", "Mock Location", "region key for -entry-out")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	gen := generator{
		at:       domain.Coordinates{Lat: *lat, Lon: *lon},
		nullRate: *nullRate,
	}
	payload, err := gen.archive(*start, *end)
	if err != nil {
		return err
	}
	if err := writeJSON(*out, payload); err != nil {
		return fmt.Errorf("write archive payload: %w", err)
	}
	log.Printf("wrote archive payload: %s (%d days)", *out, len(payload.Daily.Time))

	if *entryOut == "" {
		return nil
	}

	// Fixed clock for a reproducible ComputedAt.
	endDate, _ := time.Parse(time.DateOnly, *end)
	domain.SetClock(clockwork.NewFakeClockAt(endDate.AddDate(0, 0, 1).Add(6 * time.Hour)))
	defer domain.SetClock(nil)

	entry := domain.BuildRegionEntry(*key, payload.samples())
	if err := writeJSON(*entryOut, entry); err != nil {
		return fmt.Errorf("write region entry: %w", err)
	}
	log.Printf("wrote region entry: %s (%d years)", *entryOut, len(entry.Yearly))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
