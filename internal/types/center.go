package types

// Position is a WGS84 latitude/longitude pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Center categories as they appear in the dataset. The catalog passes
// unknown values through verbatim; consumers treat them as an "other" bucket.
const (
	CategoryBarangayHall = "Barangay Hall"
	CategoryCampus       = "Campus"
	CategoryChurch       = "Church"
	CategoryField        = "Field"
	CategoryHospital     = "Hospital"
	CategoryShelter      = "Shelter"
	CategorySportsCenter = "Sports Center"
)

// Center is a single evacuation center record. Immutable after catalog load
// except for DistanceKm, which is derived from the user position and
// recomputed whenever that position changes.
type Center struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	City         string   `json:"city,omitempty"`
	Municipality string   `json:"municipality,omitempty"`
	Province     string   `json:"province,omitempty"`
	Capacity     *float64 `json:"capacity,omitempty"`
	Position     Position `json:"position"`
	DistanceKm   *float64 `json:"distance_km,omitempty"`
}

// FilterCriteria carries the three filter axes. An empty value means no
// constraint on that axis.
type FilterCriteria struct {
	Text     string `json:"text,omitempty"`
	Province string `json:"province,omitempty"`
	Category string `json:"category,omitempty"`
}

// IsZero reports whether no axis is constrained.
func (c FilterCriteria) IsZero() bool {
	return c.Text == "" && c.Province == "" && c.Category == ""
}

// CatalogStats summarizes the loaded catalog for dashboard-style views.
type CatalogStats struct {
	TotalCenters        int            `json:"total_centers"`
	CentersByCategory   map[string]int `json:"centers_by_category"`
	CentersByProvince   map[string]int `json:"centers_by_province"`
	CentersWithCapacity int            `json:"centers_with_capacity"`
	TotalCapacity       float64        `json:"total_reported_capacity"`
}

// DisplayResult is the composed, truncated list handed to the rendering
// collaborator. Total is the pre-truncation count so the caller can render
// "showing X of N".
type DisplayResult struct {
	Centers []Center `json:"centers"`
	Total   int      `json:"total"`
}
