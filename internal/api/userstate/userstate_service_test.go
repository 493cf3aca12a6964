package userstate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagip-ph/evaq-engine/app/kvstore"
	"github.com/sagip-ph/evaq-engine/app/observability/metrics"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memCatalog is a fixed lookup table standing in for the dataset.
type memCatalog struct {
	centers []types.Center
}

func (m *memCatalog) Get(id string) (types.Center, bool) {
	for _, c := range m.centers {
		if c.ID == id {
			return c, true
		}
	}
	return types.Center{}, false
}

func (m *memCatalog) All() []types.Center {
	out := make([]types.Center, len(m.centers))
	copy(out, m.centers)
	return out
}

func (m *memCatalog) Provinces() []string       { return nil }
func (m *memCatalog) Categories() []string      { return nil }
func (m *memCatalog) Stats() types.CatalogStats { return types.CatalogStats{} }

func newTestService(t *testing.T) (*ServiceImpl, string) {
	t.Helper()
	dir := t.TempDir()
	return openService(t, dir), dir
}

func openService(t *testing.T, dir string) *ServiceImpl {
	t.Helper()
	store, err := kvstore.Open(filepath.Join(dir, "state.sqlite"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cap100 := 100.0
	cat := &memCatalog{centers: []types.Center{
		{ID: "A", Name: "Brgy Hall", Category: types.CategoryBarangayHall, Province: "Cebu", City: "Cebu City", Capacity: &cap100, Position: types.Position{Lat: 10.3, Lon: 123.9}},
		{ID: "B", Name: `St. "Nino" Church`, Category: types.CategoryChurch, Province: "Misamis Oriental", Municipality: "Tagoloan", Position: types.Position{Lat: 8.54, Lon: 124.75}},
	}}

	svc, err := NewServiceImpl(context.Background(), NewRepository(store, testLogger()), cat, testLogger())
	require.NoError(t, err)
	return svc
}

func TestToggleFavorite_IsAnInvolution(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.ToggleFavorite(ctx, "A")
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.True(t, svc.IsFavorite(ctx, "A"))

	res, err = svc.ToggleFavorite(ctx, "A")
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.False(t, svc.IsFavorite(ctx, "A"))
	assert.Empty(t, svc.State(ctx).Favorites)
}

func TestToggleFavorite_PreservesInsertionOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		_, err := svc.ToggleFavorite(ctx, id)
		require.NoError(t, err)
	}
	_, err := svc.ToggleFavorite(ctx, "B")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C"}, svc.State(ctx).Favorites)
}

func TestClearFavorites_ReportsNothingToClearOnEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.ClearFavorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ClearStatusNothingToClear, res.Status)
	assert.Zero(t, res.Removed)

	_, err = svc.ToggleFavorite(ctx, "A")
	require.NoError(t, err)
	_, err = svc.ToggleFavorite(ctx, "B")
	require.NoError(t, err)

	res, err = svc.ClearFavorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ClearStatusCleared, res.Status)
	assert.Equal(t, 2, res.Removed)
}

func TestFavoriteCenters_SkipsUnknownIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"ghost", "B", "A"} {
		_, err := svc.ToggleFavorite(ctx, id)
		require.NoError(t, err)
	}

	centers := svc.FavoriteCenters(ctx)
	require.Len(t, centers, 2)
	assert.Equal(t, "B", centers[0].ID)
	assert.Equal(t, "A", centers[1].ID)
}

func TestExportFavoritesCSV_ExactFormat(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ToggleFavorite(ctx, "A")
	require.NoError(t, err)
	_, err = svc.ToggleFavorite(ctx, "B")
	require.NoError(t, err)

	out, err := svc.ExportFavoritesCSV(ctx)
	require.NoError(t, err)

	want := "Name,Type,Province,Municipality,City,Capacity,Latitude,Longitude\n" +
		`"Brgy Hall","Barangay Hall","Cebu","","Cebu City","100",10.3,123.9` + "\n" +
		`"St. ""Nino"" Church","Church","Misamis Oriental","Tagoloan","","",8.54,124.75` + "\n"
	assert.Equal(t, want, string(out))
}

func TestAddRecentSearch_MostRecentFirstCappedAtFive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, q := range []string{"aa", "bb", "cc", "dd", "ee"} {
		_, err := svc.AddRecentSearch(ctx, q)
		require.NoError(t, err)
	}
	got, err := svc.AddRecentSearch(ctx, "ff")
	require.NoError(t, err)
	assert.Equal(t, []string{"ff", "ee", "dd", "cc", "bb"}, got)
}

func TestAddRecentSearch_DuplicateMovesToFront(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, q := range []string{"aa", "bb", "cc"} {
		_, err := svc.AddRecentSearch(ctx, q)
		require.NoError(t, err)
	}
	got, err := svc.AddRecentSearch(ctx, "bb")
	require.NoError(t, err)
	assert.Equal(t, []string{"bb", "cc", "aa"}, got)
}

func TestAddRecentSearch_IgnoresShortQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, q := range []string{"", " ", "a", " b "} {
		got, err := svc.AddRecentSearch(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	svc := openService(t, dir)
	_, err := svc.ToggleFavorite(ctx, "A")
	require.NoError(t, err)
	_, err = svc.AddRecentSearch(ctx, "cebu")
	require.NoError(t, err)
	require.NoError(t, svc.SetActiveTab(ctx, types.TabFavorites))
	_, err = svc.SetMaxDistance(ctx, 25)
	require.NoError(t, err)

	// Ephemeral pieces must not come back.
	svc.ToggleSelection(ctx, "B")
	svc.SetUserPosition(ctx, types.Position{Lat: 8.48, Lon: 124.64})

	reopened := openService(t, dir)
	state := reopened.State(ctx)
	assert.Equal(t, []string{"A"}, state.Favorites)
	assert.Equal(t, []string{"cebu"}, state.RecentSearches)
	assert.Equal(t, types.TabFavorites, state.ActiveTab)
	assert.Equal(t, 25.0, state.MaxDistanceKm)
	assert.Empty(t, state.Selection)
	assert.Nil(t, state.UserPosition)
}

func TestSetMaxDistance_ClampsToRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	got, err := svc.SetMaxDistance(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = svc.SetMaxDistance(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, types.MaxDistanceCeilingKm, got)

	got, err = svc.SetMaxDistance(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got)
}

func TestSetActiveTab_RejectsUnknownTab(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Error(t, svc.SetActiveTab(context.Background(), types.Tab("archive")))
}

func TestToggleSelection_EphemeralSymmetricDifference(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res := svc.ToggleSelection(ctx, "A")
	assert.True(t, res.Added)
	res = svc.ToggleSelection(ctx, "B")
	assert.True(t, res.Added)
	res = svc.ToggleSelection(ctx, "A")
	assert.False(t, res.Added)

	assert.Equal(t, []string{"B"}, svc.Selection(ctx))

	svc.ClearSelection(ctx)
	assert.Empty(t, svc.Selection(ctx))
}

func TestSetUserPosition_FiresRegisteredHook(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var got *types.Position
	svc.OnPositionChange(func(p types.Position) { got = &p })

	svc.SetUserPosition(ctx, types.Position{Lat: 8.48, Lon: 124.64})
	require.NotNil(t, got)
	assert.Equal(t, 8.48, got.Lat)
	require.NotNil(t, svc.UserPosition(ctx))
}

func TestUpdatePreferences_PartialUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lang := "fil"
	prefs, err := svc.UpdatePreferences(ctx, UpdatePreferencesParams{Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "fil", prefs.Language)

	theme := "dark"
	prefs, err = svc.UpdatePreferences(ctx, UpdatePreferencesParams{Theme: &theme})
	require.NoError(t, err)
	assert.Equal(t, "fil", prefs.Language)
	assert.Equal(t, "dark", prefs.Theme)
}
