package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/sagip-ph/evaq-engine/internal/geo"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the read-only catalog of evacuation centers, built once at
// startup from the GeoJSON dataset.
type Repository interface {
	Get(id string) (types.Center, bool)
	All() []types.Center
	Provinces() []string
	Categories() []string
	Stats() types.CatalogStats
}

type RepositoryImpl struct {
	logger  *slog.Logger
	centers []types.Center
	byID    map[string]int
	stats   types.CatalogStats
}

// NewRepositoryFromFile loads the dataset at path.
func NewRepositoryFromFile(path string, logger *slog.Logger) (*RepositoryImpl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read dataset %s: %v", types.ErrInvalidDataset, path, err)
	}
	return NewRepository(data, logger)
}

// NewRepository parses a GeoJSON FeatureCollection into the catalog.
// A malformed collection or a record missing id/name is fatal and yields no
// partial catalog. Records with unsupported or empty geometries and records
// reusing an already-seen id are dropped with a warning (first occurrence
// wins), which keeps the load deterministic.
func NewRepository(data []byte, logger *slog.Logger) (*RepositoryImpl, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidDataset, err)
	}

	r := &RepositoryImpl{
		logger: logger,
		byID:   make(map[string]int, len(fc.Features)),
	}

	for i, f := range fc.Features {
		id := featureID(f)
		if id == "" {
			return nil, fmt.Errorf("%w: feature %d has no id", types.ErrInvalidDataset, i)
		}
		name := stringProp(f, "name")
		if name == "" {
			return nil, fmt.Errorf("%w: feature %q has no name", types.ErrInvalidDataset, id)
		}

		pos, ok := featurePosition(f, logger, id)
		if !ok {
			continue
		}

		if _, dup := r.byID[id]; dup {
			logger.Warn("Dropping duplicate catalog id", slog.String("id", id))
			continue
		}

		c := types.Center{
			ID:           id,
			Name:         name,
			Category:     stringProp(f, "type"),
			City:         stringProp(f, "city"),
			Municipality: stringProp(f, "municipality"),
			Province:     stringProp(f, "province"),
			Capacity:     capacityProp(f),
			Position:     pos,
		}
		r.byID[id] = len(r.centers)
		r.centers = append(r.centers, c)
	}

	r.stats = buildStats(r.centers)
	logger.Info("Catalog loaded",
		slog.Int("centers", len(r.centers)),
		slog.Int("features", len(fc.Features)),
	)
	return r, nil
}

// featurePosition extracts a display point from the feature's geometry.
// Points are taken directly; polygons are reduced to a vertex-mean centroid.
// Anything else fails closed: the record is excluded, never a crash.
func featurePosition(f *geojson.Feature, logger *slog.Logger, id string) (types.Position, bool) {
	switch g := f.Geometry.(type) {
	case nil:
		// RFC 7946 allows "geometry": null; there is nothing to place.
		logger.Warn("Dropping record with no geometry", slog.String("id", id))
		return types.Position{}, false
	case orb.Point:
		return types.Position{Lat: g.Lat(), Lon: g.Lon()}, true
	case orb.Polygon:
		if len(g) == 0 {
			logger.Warn("Dropping record with empty polygon", slog.String("id", id))
			return types.Position{}, false
		}
		pos, err := geo.Centroid(g[0])
		if err != nil {
			logger.Warn("Dropping record with uncentroidable geometry",
				slog.String("id", id), slog.Any("error", err))
			return types.Position{}, false
		}
		return pos, true
	default:
		logger.Warn("Dropping record with unsupported geometry",
			slog.String("id", id), slog.String("geometry", f.Geometry.GeoJSONType()))
		return types.Position{}, false
	}
}

func featureID(f *geojson.Feature) string {
	switch v := f.ID.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return stringProp(f, "id")
}

func stringProp(f *geojson.Feature, key string) string {
	if v, ok := f.Properties[key].(string); ok {
		return v
	}
	return ""
}

func capacityProp(f *geojson.Feature) *float64 {
	v, ok := f.Properties["capacity"].(float64)
	if !ok || v < 0 {
		return nil
	}
	return &v
}

func buildStats(centers []types.Center) types.CatalogStats {
	stats := types.CatalogStats{
		TotalCenters:      len(centers),
		CentersByCategory: make(map[string]int),
		CentersByProvince: make(map[string]int),
	}
	for _, c := range centers {
		stats.CentersByCategory[c.Category]++
		if c.Province != "" {
			stats.CentersByProvince[c.Province]++
		}
		if c.Capacity != nil {
			stats.CentersWithCapacity++
			stats.TotalCapacity += *c.Capacity
		}
	}
	return stats
}

// Get looks up a center by id. Absence is reported, not an error.
func (r *RepositoryImpl) Get(id string) (types.Center, bool) {
	i, ok := r.byID[id]
	if !ok {
		return types.Center{}, false
	}
	return r.centers[i], true
}

// All returns the catalog in load order. Callers receive a copy so the
// catalog stays immutable.
func (r *RepositoryImpl) All() []types.Center {
	out := make([]types.Center, len(r.centers))
	copy(out, r.centers)
	return out
}

// Provinces returns the sorted distinct non-empty province values, used to
// drive the filter dropdown.
func (r *RepositoryImpl) Provinces() []string {
	return distinctField(r.centers, func(c types.Center) string { return c.Province })
}

// Categories returns the sorted distinct non-empty category values.
func (r *RepositoryImpl) Categories() []string {
	return distinctField(r.centers, func(c types.Center) string { return c.Category })
}

func (r *RepositoryImpl) Stats() types.CatalogStats {
	return r.stats
}

func distinctField(centers []types.Center, field func(types.Center) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range centers {
		v := field(c)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
