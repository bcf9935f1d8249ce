package geo

import (
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/paulmach/orb/geojson"
)

// Boundaries is a loaded boundary FeatureCollection indexed by the feature's
// "nazwa" property.
type Boundaries struct {
	ids map[string]string
}

// LoadBoundaries reads a GeoJSON FeatureCollection whose features carry
// "nazwa" and "id" properties.
func LoadBoundaries(path string) (*Boundaries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundaries: %w", err)
	}
	return ParseBoundaries(data)
}

// ParseBoundaries is LoadBoundaries over an in-memory document.
func ParseBoundaries(data []byte) (*Boundaries, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing boundaries: %w", err)
	}

	b := &Boundaries{ids: make(map[string]string, len(fc.Features))}
	for _, f := range fc.Features {
		name := f.Properties.MustString("nazwa", "")
		if name == "" {
			continue
		}
		id, ok := f.Properties["id"]
		if !ok {
			id = f.ID
		}
		if id == nil {
			id = name
		}
		b.ids[name] = fmt.Sprint(id)
	}
	return b, nil
}

// Len returns the number of named features.
func (b *Boundaries) Len() int {
	return len(b.ids)
}

// ID returns the feature id for a boundary name. A nil Boundaries has no
// features.
func (b *Boundaries) ID(name string) (string, bool) {
	if b == nil {
		return "", false
	}
	id, ok := b.ids[name]
	return id, ok
}

// Coverage returns the given boundary names that have no feature, sorted and
// deduplicated.
func (b *Boundaries) Coverage(names []string) []string {
	var missing []string
	for _, n := range names {
		if _, ok := b.ids[n]; !ok {
			missing = append(missing, n)
		}
	}
	sort.Strings(missing)
	return slices.Compact(missing)
}

// DistrictGeoNames returns every boundary name the district table can
// produce.
func DistrictGeoNames() []string {
	seen := make(map[string]bool, len(districts))
	out := make([]string, 0, len(districts))
	for _, g := range districts {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// ProvinceGeoNames returns every boundary name the NUTS province table can
// produce.
func ProvinceGeoNames() []string {
	seen := make(map[string]bool, len(provinces))
	out := make([]string, 0, len(provinces))
	for _, g := range provinces {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}
