// Command validate cross-checks a county boundary file against the built-in
// location registry. It verifies that every in-state feature is named and
// locatable, that every registered county has a feature on the map, and that
// registered coordinates sit close to the feature they color.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -boundary data/counties-50m.geojson \
//	  -state 46
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/rainfall-explorer/internal/adapter/boundary"
	"github.com/couchcryptid/rainfall-explorer/internal/domain"
)

// maxCenterOffset is how far, in degrees, a registered county point may sit
// from its feature's center.
const maxCenterOffset = 0.75

// phase tracks pass/fail for a validation phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	source := flag.String("boundary", boundary.DefaultSource, "boundary GeoJSON file path or URL")
	state := flag.String("state", "46", "STATE property to keep")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	loader := boundary.NewLoader(time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	collection, err := loader.Load(ctx, *source, *state)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load boundaries: %v\n", err)
		os.Exit(1)
	}

	registry := domain.SouthDakota()
	if !report(collection.Regions(), registry) {
		os.Exit(1)
	}
}

// report runs every phase, prints a summary and returns whether all passed.
func report(regions []boundary.Region, registry *domain.Registry) bool {
	fmt.Println("=== Boundary / Registry Validation ===")
	fmt.Println()

	phases := []*phase{
		validateFeatures(regions),
		validateCoverage(regions, registry),
		validatePlacement(regions, registry),
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Regions: %d boundary features, %d registered counties\n", len(regions), len(registry.Counties()))

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		for _, w := range p.warnings {
			fmt.Printf("  Note: %s\n", w)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return true
	}
	fmt.Println("\nValidation FAILED.")
	return false
}

func validateFeatures(regions []boundary.Region) *phase {
	p := &phase{name: "Phase 1: Feature integrity"}
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if seen[r.Name] {
			p.errorf("duplicate feature name %q", r.Name)
		}
		seen[r.Name] = true

		c := r.Center
		if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || (c.Lat == 0 && c.Lon == 0) {
			p.errorf("%s: no usable center", r.Name)
		}
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			p.errorf("%s: center %.4f,%.4f out of range", r.Name, c.Lat, c.Lon)
		}
	}
	return p
}

func validateCoverage(regions []boundary.Region, registry *domain.Registry) *phase {
	p := &phase{name: "Phase 2: Registry coverage"}
	onMap := make(map[string]bool, len(regions))
	for _, r := range regions {
		onMap[r.Name] = true
	}
	for _, county := range registry.Counties() {
		if !onMap[county] {
			p.errorf("registered county %q has no boundary feature", county)
		}
	}
	for _, r := range regions {
		if _, err := registry.Lookup(r.Name); err != nil {
			p.warnf("%s is not registered; the service will use its center", r.Name)
		}
	}
	return p
}

func validatePlacement(regions []boundary.Region, registry *domain.Registry) *phase {
	p := &phase{name: "Phase 3: Coordinate placement"}
	for _, r := range regions {
		loc, err := registry.Lookup(r.Name)
		if err != nil {
			continue
		}
		d := math.Hypot(loc.Coords.Lat-r.Center.Lat, loc.Coords.Lon-r.Center.Lon)
		if d > maxCenterOffset {
			p.errorf("%s: registered point %.2f,%.2f is %.2f° from the feature center %.2f,%.2f",
				r.Name, loc.Coords.Lat, loc.Coords.Lon, d, r.Center.Lat, r.Center.Lon)
		}
	}
	return p
}
