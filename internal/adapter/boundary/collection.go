package boundary

import (
	"errors"
	"fmt"
	"sort"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrNoRegions is returned when a boundary file has no usable features.
var ErrNoRegions = errors.New("no boundary regions")

// Region is one named map feature with a representative point.
type Region struct {
	Name   string             `json:"name"`
	Center domain.Coordinates `json:"center"`
}

// Collection is a parsed set of region boundaries, optionally filtered to a
// single state.
type Collection struct {
	features *geojson.FeatureCollection
	regions  []Region
}

// Parse reads a GeoJSON FeatureCollection. When stateCode is set only features
// whose STATE property matches are kept. Features without a name or geometry
// are dropped.
func Parse(data []byte, stateCode string) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	kept := geojson.NewFeatureCollection()
	var regions []Region
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if stateCode != "" && !inState(f, stateCode) {
			continue
		}
		name := FeatureName(f)
		if name == "" {
			continue
		}
		kept.Append(f)
		regions = append(regions, Region{Name: name, Center: center(f.Geometry)})
	}
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
	return &Collection{features: kept, regions: regions}, nil
}

// FeatureName reads the region name from the "name" or "NAME" property.
func FeatureName(f *geojson.Feature) string {
	for _, key := range []string{"name", "NAME"} {
		if name, ok := f.Properties[key].(string); ok && name != "" {
			return name
		}
	}
	return ""
}

// inState compares the STATE property, which files encode as either a
// string ("46") or a number (46).
func inState(f *geojson.Feature, stateCode string) bool {
	v, ok := f.Properties["STATE"]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == stateCode
}

func center(g orb.Geometry) domain.Coordinates {
	var p orb.Point
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		p, _ = planar.CentroidArea(g)
	default:
		p = g.Bound().Center()
	}
	return domain.Coordinates{Lat: p.Lat(), Lon: p.Lon()}
}

// Regions lists the regions sorted by name.
func (c *Collection) Regions() []Region {
	return append([]Region(nil), c.regions...)
}

// Names lists the region names sorted.
func (c *Collection) Names() []string {
	names := make([]string, len(c.regions))
	for i, r := range c.regions {
		names[i] = r.Name
	}
	return names
}

// Render re-emits the collection with fillColor, value and metric properties
// set from styles. Features with no style keep their original properties.
func (c *Collection) Render(styles map[string]domain.RegionStyle) ([]byte, error) {
	out := geojson.NewFeatureCollection()
	for _, f := range c.features.Features {
		styled := geojson.NewFeature(f.Geometry)
		styled.ID = f.ID
		styled.Properties = f.Properties.Clone()
		if style, ok := styles[FeatureName(f)]; ok {
			styled.Properties["fillColor"] = style.Color
			styled.Properties["metric"] = style.Metric.String()
			if style.Value != nil {
				styled.Properties["value"] = *style.Value
			} else {
				styled.Properties["value"] = nil
			}
		}
		out.Append(styled)
	}
	return out.MarshalJSON()
}

// RegisterMissing adds every region the registry cannot resolve as a county at
// the region's center, so the whole map can be computed. It returns the names
// it added.
func (c *Collection) RegisterMissing(reg *domain.Registry) []string {
	var added []string
	for _, r := range c.regions {
		if loc, err := reg.Lookup(r.Name); err == nil && !loc.Fallback {
			continue
		}
		reg.AddCounty(r.Name, r.Center)
		added = append(added, r.Name)
	}
	return added
}
