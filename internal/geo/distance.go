// Package geo implements the pure distance primitives: haversine
// great-circle distance, the vertex-mean centroid approximation for polygon
// geometries, and catalog distance annotation.
package geo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/sagip-ph/evaq-engine/internal/types"
)

// EarthRadiusKm is the mean earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance between a and b in
// kilometers. Symmetric, and zero when a == b.
func DistanceKm(a, b types.Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Centroid returns the arithmetic mean of the ring's vertices. This is a
// cheap approximation of the true polygon centroid, good enough for placing
// a display point. Fails only on an empty ring.
func Centroid(ring orb.Ring) (types.Position, error) {
	if len(ring) == 0 {
		return types.Position{}, types.ErrEmptyGeometry
	}
	var sumLat, sumLon float64
	for _, p := range ring {
		sumLon += p[0]
		sumLat += p[1]
	}
	n := float64(len(ring))
	return types.Position{Lat: sumLat / n, Lon: sumLon / n}, nil
}

// Annotate sets DistanceKm on every center relative to the user position.
// It mutates the slice in place; callers own the copy they pass in.
func Annotate(centers []types.Center, user types.Position) {
	for i := range centers {
		d := DistanceKm(user, centers[i].Position)
		centers[i].DistanceKm = &d
	}
}

// Nearest returns up to limit centers closest to pos, optionally restricted
// to a category, ordered by ascending distance. The input slice is not
// modified; returned records carry their computed DistanceKm.
func Nearest(centers []types.Center, pos types.Position, limit int, category string) []types.Center {
	out := make([]types.Center, 0, len(centers))
	for _, c := range centers {
		if category != "" && c.Category != category {
			continue
		}
		d := DistanceKm(pos, c.Position)
		c.DistanceKm = &d
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceKm < *out[j].DistanceKm
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
