package userstate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sagip-ph/evaq-engine/app/observability/metrics"
	"github.com/sagip-ph/evaq-engine/internal/api/catalog"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service owns the per-session user state. Durable pieces (favorites, recent
// searches, preferences) are written through the repository inside each
// mutating call; selection and user position live only in memory.
type Service interface {
	State(ctx context.Context) types.UserState

	ToggleFavorite(ctx context.Context, id string) (types.ToggleResult, error)
	IsFavorite(ctx context.Context, id string) bool
	ClearFavorites(ctx context.Context) (types.ClearResult, error)
	FavoriteCenters(ctx context.Context) []types.Center
	ExportFavoritesCSV(ctx context.Context) ([]byte, error)

	AddRecentSearch(ctx context.Context, text string) ([]string, error)
	RecentSearches(ctx context.Context) []string
	ClearRecentSearches(ctx context.Context) error

	ToggleSelection(ctx context.Context, id string) types.ToggleResult
	Selection(ctx context.Context) []string
	ClearSelection(ctx context.Context)

	SetUserPosition(ctx context.Context, pos types.Position)
	UserPosition(ctx context.Context) *types.Position

	SetActiveTab(ctx context.Context, tab types.Tab) error
	SetMaxDistance(ctx context.Context, km float64) (float64, error)
	UpdatePreferences(ctx context.Context, params UpdatePreferencesParams) (types.Preferences, error)
}

// UpdatePreferencesParams carries optional preference updates; nil means
// leave unchanged.
type UpdatePreferencesParams struct {
	Language *string `json:"language,omitempty"`
	Theme    *string `json:"theme,omitempty"`
}

type ServiceImpl struct {
	logger  *slog.Logger
	repo    Repository
	catalog catalog.Repository

	mu             sync.Mutex
	favorites      []string
	recentSearches []string
	selection      []string
	userPosition   *types.Position
	prefs          types.Preferences

	// onPositionChange lets the search engine re-annotate its snapshot when
	// the position moves. Wired once at startup, before traffic.
	onPositionChange func(types.Position)
}

// NewServiceImpl loads the persisted state (or defaults when absent) and
// returns the session store.
func NewServiceImpl(ctx context.Context, repo Repository, cat catalog.Repository, logger *slog.Logger) (*ServiceImpl, error) {
	favorites, err := repo.LoadFavorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore favorites: %w", err)
	}
	recents, err := repo.LoadRecentSearches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore recent searches: %w", err)
	}
	prefs, found, err := repo.LoadPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore preferences: %w", err)
	}
	if !found {
		prefs = types.Preferences{ActiveTab: types.TabAll, MaxDistanceKm: types.DefaultMaxDistanceKm}
	}

	logger.Info("User state restored",
		slog.Int("favorites", len(favorites)),
		slog.Int("recent_searches", len(recents)),
		slog.String("active_tab", string(prefs.ActiveTab)),
	)

	return &ServiceImpl{
		logger:         logger,
		repo:           repo,
		catalog:        cat,
		favorites:      favorites,
		recentSearches: recents,
		prefs:          prefs,
	}, nil
}

// OnPositionChange registers the re-annotation hook. Call before serving.
func (s *ServiceImpl) OnPositionChange(fn func(types.Position)) {
	s.onPositionChange = fn
}

func (s *ServiceImpl) State(ctx context.Context) types.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.UserState{
		Favorites:      append([]string(nil), s.favorites...),
		RecentSearches: append([]string(nil), s.recentSearches...),
		Selection:      append([]string(nil), s.selection...),
		UserPosition:   s.userPosition,
		ActiveTab:      s.prefs.ActiveTab,
		MaxDistanceKm:  s.prefs.MaxDistanceKm,
		Language:       s.prefs.Language,
		Theme:          s.prefs.Theme,
	}
}

// ToggleFavorite adds the id when absent and removes it when present.
// Unknown ids are accepted; they never render because display always
// intersects with catalog membership.
func (s *ServiceImpl) ToggleFavorite(ctx context.Context, id string) (types.ToggleResult, error) {
	ctx, span := otel.Tracer("UserStateService").Start(ctx, "ToggleFavorite")
	defer span.End()
	span.SetAttributes(attribute.String("center.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	next, added := toggle(s.favorites, id)
	if err := s.repo.SaveFavorites(ctx, next); err != nil {
		metrics.Get().StoreWriteErrorsTotal.Add(ctx, 1)
		s.logger.ErrorContext(ctx, "Failed to persist favorites", slog.Any("error", err))
		return types.ToggleResult{}, err
	}
	s.favorites = next
	return types.ToggleResult{ID: id, Added: added}, nil
}

func (s *ServiceImpl) IsFavorite(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return contains(s.favorites, id)
}

// ClearFavorites empties the set. Clearing an already empty set is not an
// error but is reported so the caller can say "nothing to clear".
func (s *ServiceImpl) ClearFavorites(ctx context.Context) (types.ClearResult, error) {
	ctx, span := otel.Tracer("UserStateService").Start(ctx, "ClearFavorites")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.favorites) == 0 {
		return types.ClearResult{Status: types.ClearStatusNothingToClear}, nil
	}
	removed := len(s.favorites)
	if err := s.repo.SaveFavorites(ctx, []string{}); err != nil {
		metrics.Get().StoreWriteErrorsTotal.Add(ctx, 1)
		s.logger.ErrorContext(ctx, "Failed to persist favorites", slog.Any("error", err))
		return types.ClearResult{}, err
	}
	s.favorites = nil
	return types.ClearResult{Status: types.ClearStatusCleared, Removed: removed}, nil
}

// FavoriteCenters resolves the favorites set against the catalog in
// insertion order. Unknown ids simply never render.
func (s *ServiceImpl) FavoriteCenters(ctx context.Context) []types.Center {
	s.mu.Lock()
	ids := append([]string(nil), s.favorites...)
	s.mu.Unlock()

	centers := make([]types.Center, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.catalog.Get(id); ok {
			centers = append(centers, c)
		}
	}
	return centers
}

// ExportFavoritesCSV renders the favorited records that resolve in the
// catalog, in favorites insertion order.
func (s *ServiceImpl) ExportFavoritesCSV(ctx context.Context) ([]byte, error) {
	_, span := otel.Tracer("UserStateService").Start(ctx, "ExportFavoritesCSV")
	defer span.End()

	s.mu.Lock()
	ids := append([]string(nil), s.favorites...)
	s.mu.Unlock()

	var centers []types.Center
	for _, id := range ids {
		if c, ok := s.catalog.Get(id); ok {
			centers = append(centers, c)
		}
	}
	return favoritesCSV(centers), nil
}

// AddRecentSearch records a user-submitted query in the MRU list: exact
// duplicates move to the front, the list is capped at five, and queries
// shorter than two characters after trimming are ignored.
func (s *ServiceImpl) AddRecentSearch(ctx context.Context, text string) ([]string, error) {
	ctx, span := otel.Tracer("UserStateService").Start(ctx, "AddRecentSearch")
	defer span.End()

	if len(strings.TrimSpace(text)) < 2 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return append([]string(nil), s.recentSearches...), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]string, 0, len(s.recentSearches)+1)
	next = append(next, text)
	for _, existing := range s.recentSearches {
		if existing != text {
			next = append(next, existing)
		}
	}
	if len(next) > types.RecentSearchCap {
		next = next[:types.RecentSearchCap]
	}

	if err := s.repo.SaveRecentSearches(ctx, next); err != nil {
		metrics.Get().StoreWriteErrorsTotal.Add(ctx, 1)
		s.logger.ErrorContext(ctx, "Failed to persist recent searches", slog.Any("error", err))
		return nil, err
	}
	s.recentSearches = next
	return append([]string(nil), next...), nil
}

func (s *ServiceImpl) RecentSearches(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recentSearches...)
}

func (s *ServiceImpl) ClearRecentSearches(ctx context.Context) error {
	ctx, span := otel.Tracer("UserStateService").Start(ctx, "ClearRecentSearches")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveRecentSearches(ctx, []string{}); err != nil {
		metrics.Get().StoreWriteErrorsTotal.Add(ctx, 1)
		s.logger.ErrorContext(ctx, "Failed to persist recent searches", slog.Any("error", err))
		return err
	}
	s.recentSearches = nil
	return nil
}

// ToggleSelection mirrors ToggleFavorite but over the ephemeral route
// selection, so there is nothing to persist.
func (s *ServiceImpl) ToggleSelection(ctx context.Context, id string) types.ToggleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var added bool
	s.selection, added = toggle(s.selection, id)
	return types.ToggleResult{ID: id, Added: added}
}

func (s *ServiceImpl) Selection(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

func (s *ServiceImpl) ClearSelection(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
}

// SetUserPosition overwrites the session position and triggers distance
// re-annotation downstream.
func (s *ServiceImpl) SetUserPosition(ctx context.Context, pos types.Position) {
	s.mu.Lock()
	s.userPosition = &pos
	hook := s.onPositionChange
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "User position updated",
		slog.Float64("lat", pos.Lat), slog.Float64("lon", pos.Lon))
	if hook != nil {
		hook(pos)
	}
}

func (s *ServiceImpl) UserPosition(ctx context.Context) *types.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userPosition
}

func (s *ServiceImpl) SetActiveTab(ctx context.Context, tab types.Tab) error {
	ctx, span := otel.Tracer("UserStateService").Start(ctx, "SetActiveTab")
	defer span.End()

	if tab != types.TabAll && tab != types.TabFavorites {
		return fmt.Errorf("unknown tab %q", tab)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	next.ActiveTab = tab
	if err := s.repo.SavePreferences(ctx, next); err != nil {
		metrics.Get().StoreWriteErrorsTotal.Add(ctx, 1)
		return err
	}
	s.prefs = next
	return nil
}

// SetMaxDistance clamps km to [0, 100] and returns the stored value.
func (s *ServiceImpl) SetMaxDistance(ctx context.Context, km float64) (float64, error) {
	ctx, span := otel.Tracer("UserStateService").Start(ctx, "SetMaxDistance")
	defer span.End()

	if km < 0 {
		km = 0
	}
	if km > types.MaxDistanceCeilingKm {
		km = types.MaxDistanceCeilingKm
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	next.MaxDistanceKm = km
	if err := s.repo.SavePreferences(ctx, next); err != nil {
		metrics.Get().StoreWriteErrorsTotal.Add(ctx, 1)
		return 0, err
	}
	s.prefs = next
	return km, nil
}

func (s *ServiceImpl) UpdatePreferences(ctx context.Context, params UpdatePreferencesParams) (types.Preferences, error) {
	ctx, span := otel.Tracer("UserStateService").Start(ctx, "UpdatePreferences")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	if params.Language != nil {
		next.Language = *params.Language
	}
	if params.Theme != nil {
		next.Theme = *params.Theme
	}
	if err := s.repo.SavePreferences(ctx, next); err != nil {
		metrics.Get().StoreWriteErrorsTotal.Add(ctx, 1)
		return types.Preferences{}, err
	}
	s.prefs = next
	return next, nil
}

// toggle applies symmetric difference with a singleton, preserving order of
// the surviving entries.
func toggle(ids []string, id string) ([]string, bool) {
	if contains(ids, id) {
		next := make([]string, 0, len(ids)-1)
		for _, v := range ids {
			if v != id {
				next = append(next, v)
			}
		}
		return next, false
	}
	return append(append([]string(nil), ids...), id), true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
