package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sagip-ph/evaq-engine/app/kvstore"
	"github.com/sagip-ph/evaq-engine/app/observability/metrics"
	"github.com/sagip-ph/evaq-engine/internal/api/catalog"
	"github.com/sagip-ph/evaq-engine/internal/api/geolocate"
	"github.com/sagip-ph/evaq-engine/internal/api/routeplan"
	"github.com/sagip-ph/evaq-engine/internal/api/search"
	"github.com/sagip-ph/evaq-engine/internal/api/userstate"
	"github.com/sagip-ph/evaq-engine/internal/router"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

// benchmarkServer wires the engine over a synthetic catalog of n centers
// spread along the Philippine archipelago.
func benchmarkServer(b *testing.B, n int) *httptest.Server {
	b.Helper()
	metrics.InitAppMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	catalogRepo, err := catalog.NewRepository(syntheticDataset(n), logger)
	if err != nil {
		b.Fatalf("failed to build catalog: %v", err)
	}

	store, err := kvstore.Open(filepath.Join(b.TempDir(), "state.sqlite"), logger)
	if err != nil {
		b.Fatalf("failed to open store: %v", err)
	}
	b.Cleanup(func() { store.Close() })

	stateService, err := userstate.NewServiceImpl(ctx, userstate.NewRepository(store, logger), catalogRepo, logger)
	if err != nil {
		b.Fatalf("failed to build state service: %v", err)
	}

	searchService := search.NewServiceImpl(catalogRepo, stateService, time.Millisecond, time.Minute, logger)
	stateService.OnPositionChange(searchService.OnPositionChanged)
	stateService.SetUserPosition(ctx, types.Position{Lat: 8.4823, Lon: 124.6478})

	catalogService := catalog.NewServiceImpl(catalogRepo, logger)
	routeService := routeplan.NewServiceImpl(searchService, stateService, logger)
	geoService := geolocate.NewServiceImpl(geolocate.StaticProvider{
		Position: types.Position{Lat: 8.4823, Lon: 124.6478},
	}, time.Second, logger)

	srv := httptest.NewServer(router.SetupRouter(&router.Config{
		CatalogHandler:   catalog.NewHandler(catalogService, logger),
		SearchHandler:    search.NewHandler(searchService, logger),
		UserStateHandler: userstate.NewHandler(stateService, logger),
		RoutePlanHandler: routeplan.NewHandler(routeService, stateService, logger),
		GeolocateHandler: geolocate.NewHandler(geoService, stateService, logger),
	}))
	b.Cleanup(srv.Close)
	return srv
}

func syntheticDataset(n int) []byte {
	categories := []string{"Shelter", "Hospital", "Church", "Campus", "Field"}
	provinces := []string{"Cebu", "Misamis Oriental", "Leyte", "Bohol"}

	var buf []byte
	buf = append(buf, `{"type":"FeatureCollection","features":[`...)
	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		lat := 5.0 + float64(i%1000)*0.012
		lon := 120.0 + float64(i%700)*0.009
		feature := fmt.Sprintf(
			`{"type":"Feature","properties":{"id":"c%d","name":"Center %d","type":%q,"province":%q,"city":"City %d"},"geometry":{"type":"Point","coordinates":[%f,%f]}}`,
			i, i, categories[i%len(categories)], provinces[i%len(provinces)], i%50, lon, lat)
		buf = append(buf, feature...)
	}
	buf = append(buf, `]}`...)
	return buf
}

func benchmarkGet(b *testing.B, srv *httptest.Server, path string) {
	b.Helper()
	client := srv.Client()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			b.Fatalf("request failed: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b.Fatalf("unexpected status %d for %s", resp.StatusCode, path)
		}
	}
}

func BenchmarkSearchText(b *testing.B) {
	srv := benchmarkServer(b, 5000)
	benchmarkGet(b, srv, "/api/v1/search?text=center+4")
}

func BenchmarkSearchProvince(b *testing.B) {
	srv := benchmarkServer(b, 5000)
	benchmarkGet(b, srv, "/api/v1/search?province=Cebu")
}

func BenchmarkDisplayUnfiltered(b *testing.B) {
	srv := benchmarkServer(b, 5000)
	benchmarkGet(b, srv, "/api/v1/search")
}

func BenchmarkNearest(b *testing.B) {
	srv := benchmarkServer(b, 5000)
	benchmarkGet(b, srv, "/api/v1/search/nearest?lat=8.4823&lon=124.6478&limit=10")
}

func BenchmarkCatalogStats(b *testing.B) {
	srv := benchmarkServer(b, 5000)
	benchmarkGet(b, srv, "/api/v1/centers/stats")
}
