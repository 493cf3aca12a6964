package types

import "github.com/google/uuid"

// Tab selects which base set the display list starts from.
type Tab string

const (
	TabAll       Tab = "all"
	TabFavorites Tab = "favorites"
)

// Engine-wide limits. MaxDistanceCeilingKm doubles as the "no cap" value:
// a max distance at the ceiling disables radius filtering entirely.
const (
	DefaultMaxDistanceKm = 50.0
	MaxDistanceCeilingKm = 100.0
	RecentSearchCap      = 5
	DisplayLimit         = 50
)

// UserState is the per-session mutable state. Favorites, recent searches and
// preferences persist across restarts; Selection and UserPosition are
// ephemeral.
type UserState struct {
	Favorites      []string  `json:"favorites"`
	RecentSearches []string  `json:"recent_searches"`
	Selection      []string  `json:"selection"`
	UserPosition   *Position `json:"user_position,omitempty"`
	ActiveTab      Tab       `json:"active_tab"`
	MaxDistanceKm  float64   `json:"max_distance_km"`
	Language       string    `json:"language,omitempty"`
	Theme          string    `json:"theme,omitempty"`
}

// Preferences is the persisted slice of UserState that is polish rather than
// core: tab, radius cap, language and theme.
type Preferences struct {
	ActiveTab     Tab     `json:"active_tab"`
	MaxDistanceKm float64 `json:"max_distance_km"`
	Language      string  `json:"language,omitempty"`
	Theme         string  `json:"theme,omitempty"`
}

// ClearStatus distinguishes an actual clear from a no-op on an already empty
// set, so the caller can surface "nothing to clear".
type ClearStatus string

const (
	ClearStatusCleared        ClearStatus = "cleared"
	ClearStatusNothingToClear ClearStatus = "nothing_to_clear"
)

// ClearResult reports the outcome of a clear operation.
type ClearResult struct {
	Status  ClearStatus `json:"status"`
	Removed int         `json:"removed"`
}

// ToggleResult reports whether a toggle added or removed the id.
type ToggleResult struct {
	ID    string `json:"id"`
	Added bool   `json:"added"`
}

// RoutePlan is an ordered waypoint sequence ready for an external
// route-rendering collaborator. When a user position is known it is the
// first waypoint.
type RoutePlan struct {
	ID        uuid.UUID  `json:"id"`
	Waypoints []Position `json:"waypoints"`
}
