package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownLocation is returned for keys with no registered coordinates.
var ErrUnknownLocation = errors.New("unknown location")

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationKind says what a registered location represents.
type LocationKind string

const (
	KindStatewide LocationKind = "statewide"
	KindCity      LocationKind = "city"
	KindCounty    LocationKind = "county"
	KindStation   LocationKind = "station"
)

// Location is a resolved registry entry.
type Location struct {
	Key    string       `json:"key"`
	Kind   LocationKind `json:"kind"`
	Label  string       `json:"label"`
	Coords Coordinates  `json:"coords"`

	// Station is set when a county resolves through a weather station.
	Station string `json:"station,omitempty"`
	// Fallback is true when an unregistered key resolved to the configured
	// fallback location. Key and Coords are then the fallback's.
	Fallback bool `json:"fallback,omitempty"`
}

type station struct {
	coords Coordinates
	label  string
}

// Registry maps location keys to coordinates. Counties may be registered
// directly by centroid or indirectly through a station key.
type Registry struct {
	mu        sync.RWMutex
	state     string
	locations map[string]Location
	stations  map[string]station
	byCounty  map[string]string // county -> station key
	fallback  string // registered key unknown lookups resolve to
}

// NewRegistry creates an empty registry for the named state.
func NewRegistry(state string) *Registry {
	return &Registry{
		state:     state,
		locations: make(map[string]Location),
		stations:  make(map[string]station),
		byCounty:  make(map[string]string),
	}
}

// State is the state the registry covers.
func (r *Registry) State() string { return r.state }

// AddStatewide registers the statewide reference point.
func (r *Registry) AddStatewide(key string, c Coordinates) {
	r.add(Location{Key: key, Kind: KindStatewide, Label: r.state + " " + key, Coords: c})
}

// AddCity registers a city.
func (r *Registry) AddCity(name string, c Coordinates) {
	r.add(Location{Key: name, Kind: KindCity, Label: name, Coords: c})
}

// AddCounty registers a county by centroid.
func (r *Registry) AddCounty(name string, c Coordinates) {
	r.add(Location{Key: name, Kind: KindCounty, Label: name + " County", Coords: c})
}

// AddStation registers a weather station and optionally assigns it to a county.
func (r *Registry) AddStation(key, label, county string, c Coordinates) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stations[key] = station{coords: c, label: label}
	r.locations[key] = Location{Key: key, Kind: KindStation, Label: label, Coords: c, Station: key}
	if county != "" {
		r.byCounty[county] = key
	}
}

// SetFallback makes Lookup resolve unknown keys to the registered location
// key instead of failing, so every unknown key shares that location's cache
// entry. Pass "" to restore strict lookups.
func (r *Registry) SetFallback(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = key
}

func (r *Registry) add(loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[loc.Key] = loc
}

// Lookup resolves a key. Counties assigned to a station resolve to the
// station's coordinates. Unknown keys fail with ErrUnknownLocation unless a
// fallback is configured.
func (r *Registry) Lookup(key string) (Location, error) {
	key = strings.TrimSpace(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if stKey, ok := r.byCounty[key]; ok {
		if st, ok := r.stations[stKey]; ok {
			return Location{
				Key:     key,
				Kind:    KindCounty,
				Label:   key + " County",
				Coords:  st.coords,
				Station: stKey,
			}, nil
		}
	}
	if loc, ok := r.locations[key]; ok {
		return loc, nil
	}
	if fb, ok := r.locations[r.fallback]; ok && r.fallback != "" {
		fb.Fallback = true
		return fb, nil
	}
	return Location{}, fmt.Errorf("%w: %q", ErrUnknownLocation, key)
}

// Counties lists every county key, whether registered by centroid or station.
func (r *Registry) Counties() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for key, loc := range r.locations {
		if loc.Kind == KindCounty {
			seen[key] = true
		}
	}
	for county := range r.byCounty {
		seen[county] = true
	}
	return sortedKeys(seen)
}

// All lists every registered location sorted by kind then key.
func (r *Registry) All() []Location {
	r.mu.RLock()
	keys := make(map[string]bool, len(r.locations))
	for k := range r.locations {
		keys[k] = true
	}
	for county := range r.byCounty {
		keys[county] = true
	}
	r.mu.RUnlock()

	out := make([]Location, 0, len(keys))
	for _, k := range sortedKeys(keys) {
		loc, err := r.Lookup(k)
		if err != nil {
			continue
		}
		out = append(out, loc)
	}
	sort.SliceStable(out, func(i, j int) bool { return kindOrder(out[i].Kind) < kindOrder(out[j].Kind) })
	return out
}

func kindOrder(k LocationKind) int {
	switch k {
	case KindStatewide:
		return 0
	case KindCity:
		return 1
	case KindCounty:
		return 2
	default:
		return 3
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StatewideKey is the registry key of the statewide reference point.
const StatewideKey = "Statewide Average"

// SouthDakotaCentroid is the statewide reference coordinate (Pierre).
var SouthDakotaCentroid = Coordinates{Lat: 44.37, Lon: -100.35}

// SouthDakota returns the default registry: the statewide point, the major
// cities and the county centroids the dashboard ships with.
func SouthDakota() *Registry {
	r := NewRegistry("South Dakota")
	r.AddStatewide(StatewideKey, SouthDakotaCentroid)

	for name, c := range map[string]Coordinates{
		"Sioux Falls": {Lat: 43.54, Lon: -96.73},
		"Rapid City":  {Lat: 44.08, Lon: -103.23},
		"Pierre":      {Lat: 44.37, Lon: -100.35},
		"Aberdeen":    {Lat: 45.46, Lon: -98.49},
		"Mitchell":    {Lat: 43.71, Lon: -98.03},
		"Watertown":   {Lat: 44.90, Lon: -97.12},
		"Huron":       {Lat: 44.36, Lon: -98.21},
		"Yankton":     {Lat: 42.87, Lon: -97.39},
	} {
		r.AddCity(name, c)
	}

	for name, c := range map[string]Coordinates{
		"Minnehaha":  {Lat: 43.67, Lon: -96.79},
		"Pennington": {Lat: 44.00, Lon: -103.45},
		"Hughes":     {Lat: 44.37, Lon: -100.37},
		"Brown":      {Lat: 45.57, Lon: -98.37},
		"Lincoln":    {Lat: 43.25, Lon: -96.70},
		"Codington":  {Lat: 44.97, Lon: -97.18},
		"Brookings":  {Lat: 44.31, Lon: -96.80},
	} {
		r.AddCounty(name, c)
	}
	return r
}
