package userstate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagip-ph/evaq-engine/app/kvstore"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

// Persistence keys. Selection and user position are deliberately not here:
// they are ephemeral session state.
const (
	keyFavorites      = "favorites"
	keyRecentSearches = "recent_searches"
	keyPreferences    = "preferences"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists the durable slice of the user state. Every Save is
// synchronous: when it returns, the value is on disk.
type Repository interface {
	LoadFavorites(ctx context.Context) ([]string, error)
	SaveFavorites(ctx context.Context, ids []string) error
	LoadRecentSearches(ctx context.Context) ([]string, error)
	SaveRecentSearches(ctx context.Context, searches []string) error
	LoadPreferences(ctx context.Context) (types.Preferences, bool, error)
	SavePreferences(ctx context.Context, prefs types.Preferences) error
}

type RepositoryImpl struct {
	store  *kvstore.Store
	logger *slog.Logger
}

func NewRepository(store *kvstore.Store, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{store: store, logger: logger}
}

func (r *RepositoryImpl) LoadFavorites(ctx context.Context) ([]string, error) {
	return r.loadStrings(ctx, keyFavorites)
}

func (r *RepositoryImpl) SaveFavorites(ctx context.Context, ids []string) error {
	return r.store.Set(ctx, keyFavorites, ids)
}

func (r *RepositoryImpl) LoadRecentSearches(ctx context.Context) ([]string, error) {
	return r.loadStrings(ctx, keyRecentSearches)
}

func (r *RepositoryImpl) SaveRecentSearches(ctx context.Context, searches []string) error {
	return r.store.Set(ctx, keyRecentSearches, searches)
}

func (r *RepositoryImpl) LoadPreferences(ctx context.Context) (types.Preferences, bool, error) {
	var prefs types.Preferences
	found, err := r.store.Get(ctx, keyPreferences, &prefs)
	if err != nil {
		return types.Preferences{}, false, fmt.Errorf("failed to load preferences: %w", err)
	}
	return prefs, found, nil
}

func (r *RepositoryImpl) SavePreferences(ctx context.Context, prefs types.Preferences) error {
	return r.store.Set(ctx, keyPreferences, prefs)
}

func (r *RepositoryImpl) loadStrings(ctx context.Context, key string) ([]string, error) {
	var out []string
	if _, err := r.store.Get(ctx, key, &out); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return out, nil
}
