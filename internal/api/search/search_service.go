package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sagip-ph/evaq-engine/app/observability/metrics"
	"github.com/sagip-ph/evaq-engine/internal/api/catalog"
	"github.com/sagip-ph/evaq-engine/internal/api/userstate"
	"github.com/sagip-ph/evaq-engine/internal/geo"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the discovery engine: it composes the filter pipeline, the
// distance-annotated catalog snapshot and the user state into the display
// list.
type Service interface {
	// ComputeFiltered applies the current criteria over the annotated
	// catalog, preserving catalog order. It never records a search.
	ComputeFiltered(ctx context.Context, criteria types.FilterCriteria) []types.Center

	// SubmitInput is the live-typing path: it debounces rapid events, and
	// when the burst settles it records the query and recomputes the filter.
	SubmitInput(ctx context.Context, criteria types.FilterCriteria)

	// CurrentCriteria returns the last criteria submitted via SubmitInput.
	CurrentCriteria(ctx context.Context) types.FilterCriteria

	// DisplayList merges filtered set, active tab and distance cap into
	// the ordered, truncated list to render.
	DisplayList(ctx context.Context, criteria types.FilterCriteria) types.DisplayResult

	// Nearest returns the closest centers to an arbitrary position.
	Nearest(ctx context.Context, pos types.Position, limit int, category string) []types.Center

	// Get returns the annotated record for id, when the catalog has it.
	Get(ctx context.Context, id string) (types.Center, bool)

	// OnPositionChanged re-annotates the snapshot after a position update.
	OnPositionChanged(pos types.Position)
}

type ServiceImpl struct {
	logger  *slog.Logger
	catalog catalog.Repository
	state   userstate.Service

	// filtered sets are memoized per criteria and annotation generation; the
	// cache is flushed whenever the position (and with it every DistanceKm)
	// changes.
	results *cache.Cache

	debouncer *Debouncer

	mu        sync.RWMutex
	annotated []types.Center
	byID      map[string]int
	gen       uint64
	current   types.FilterCriteria
}

// NewServiceImpl builds the engine over an immutable catalog. debounce is
// the quiescent period for live input; resultTTL bounds how long a memoized
// filtered set may be served.
func NewServiceImpl(cat catalog.Repository, state userstate.Service, debounce, resultTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	s := &ServiceImpl{
		logger:    logger,
		catalog:   cat,
		state:     state,
		results:   cache.New(resultTTL, 2*resultTTL),
		debouncer: NewDebouncer(debounce),
	}
	s.resetSnapshot()
	return s
}

// resetSnapshot rebuilds the working copy of the catalog, unannotated.
func (s *ServiceImpl) resetSnapshot() {
	centers := s.catalog.All()
	byID := make(map[string]int, len(centers))
	for i, c := range centers {
		byID[c.ID] = i
	}
	s.mu.Lock()
	s.annotated = centers
	s.byID = byID
	s.mu.Unlock()
}

// OnPositionChanged recomputes every DistanceKm and invalidates memoized
// filtered sets. O(n) over the catalog.
func (s *ServiceImpl) OnPositionChanged(pos types.Position) {
	centers := s.catalog.All()
	geo.Annotate(centers, pos)
	byID := make(map[string]int, len(centers))
	for i, c := range centers {
		byID[c.ID] = i
	}

	s.mu.Lock()
	s.annotated = centers
	s.byID = byID
	s.gen++
	s.mu.Unlock()

	s.results.Flush()
	s.logger.Debug("Catalog re-annotated",
		slog.Float64("lat", pos.Lat), slog.Float64("lon", pos.Lon))
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (types.Center, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return types.Center{}, false
	}
	return s.annotated[i], true
}

// ComputeFiltered is the AND of three predicates: a case-insensitive
// substring match across name, city, municipality and province (OR across
// the four fields); exact province equality; exact category equality.
// Survivors keep catalog order.
func (s *ServiceImpl) ComputeFiltered(ctx context.Context, criteria types.FilterCriteria) []types.Center {
	_, span := otel.Tracer("SearchService").Start(ctx, "ComputeFiltered")
	defer span.End()
	span.SetAttributes(
		attribute.String("criteria.text", criteria.Text),
		attribute.String("criteria.province", criteria.Province),
		attribute.String("criteria.category", criteria.Category),
	)

	s.mu.RLock()
	source := s.annotated
	gen := s.gen
	s.mu.RUnlock()

	key := resultKey(gen, criteria)
	if cached, found := s.results.Get(key); found {
		return cached.([]types.Center)
	}

	start := time.Now()

	needle := strings.ToLower(criteria.Text)
	filtered := make([]types.Center, 0, len(source))
	for _, c := range source {
		if needle != "" && !matchesText(c, needle) {
			continue
		}
		if criteria.Province != "" && c.Province != criteria.Province {
			continue
		}
		if criteria.Category != "" && c.Category != criteria.Category {
			continue
		}
		filtered = append(filtered, c)
	}

	s.results.Set(key, filtered, cache.DefaultExpiration)
	metrics.Get().FilterRunsTotal.Add(ctx, 1)
	metrics.Get().FilterDurationSeconds.Record(ctx, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("filtered.count", len(filtered)))
	return filtered
}

func matchesText(c types.Center, needle string) bool {
	return strings.Contains(strings.ToLower(c.Name), needle) ||
		strings.Contains(strings.ToLower(c.City), needle) ||
		strings.Contains(strings.ToLower(c.Municipality), needle) ||
		strings.Contains(strings.ToLower(c.Province), needle)
}

// SubmitInput coalesces a burst of input events: only the last criteria in a
// quiescent window fires, and only that firing records the search term.
// Programmatic recomputation (tab or distance changes) must go through
// ComputeFiltered instead, which never touches the search history.
func (s *ServiceImpl) SubmitInput(ctx context.Context, criteria types.FilterCriteria) {
	s.mu.Lock()
	s.current = criteria
	s.mu.Unlock()

	s.debouncer.Trigger(func() {
		// Detached from the request context: the HTTP request that queued
		// this event has usually completed by the time the burst settles.
		bg := context.Background()
		if _, err := s.state.AddRecentSearch(bg, criteria.Text); err != nil {
			s.logger.Error("Failed to record search", slog.Any("error", err))
		}
		s.ComputeFiltered(bg, criteria)
	})
}

func (s *ServiceImpl) CurrentCriteria(ctx context.Context) types.FilterCriteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// DisplayList implements the view composition rules:
//  1. favorites tab intersects the filtered set with the favorites ids;
//  2. with a position and a cap below the ceiling, records over the cap are
//     dropped; a record with no computed distance always survives the cap;
//  3. with a position, sort ascending by distance, unknown distances last,
//     stable otherwise;
//  4. truncate to the display limit and report the true total.
func (s *ServiceImpl) DisplayList(ctx context.Context, criteria types.FilterCriteria) types.DisplayResult {
	ctx, span := otel.Tracer("SearchService").Start(ctx, "DisplayList")
	defer span.End()

	filtered := s.ComputeFiltered(ctx, criteria)
	state := s.state.State(ctx)

	result := composeDisplay(filtered, state)
	metrics.Get().DisplayListRunsTotal.Add(ctx, 1)
	span.SetAttributes(
		attribute.Int("display.count", len(result.Centers)),
		attribute.Int("display.total", result.Total),
	)
	return result
}

// composeDisplay is the pure composition step, split out so the truncation,
// cap and ordering rules are testable without wiring.
func composeDisplay(filtered []types.Center, state types.UserState) types.DisplayResult {
	base := filtered
	if state.ActiveTab == types.TabFavorites {
		favs := make(map[string]struct{}, len(state.Favorites))
		for _, id := range state.Favorites {
			favs[id] = struct{}{}
		}
		base = base[:0:0]
		for _, c := range filtered {
			if _, ok := favs[c.ID]; ok {
				base = append(base, c)
			}
		}
	}

	if state.UserPosition != nil && state.MaxDistanceKm < types.MaxDistanceCeilingKm {
		capped := make([]types.Center, 0, len(base))
		for _, c := range base {
			// A record with no computed distance bypasses the radius cap.
			if c.DistanceKm != nil && *c.DistanceKm > state.MaxDistanceKm {
				continue
			}
			capped = append(capped, c)
		}
		base = capped
	}

	if state.UserPosition != nil {
		sorted := append([]types.Center(nil), base...)
		sort.SliceStable(sorted, func(i, j int) bool {
			di, dj := sorted[i].DistanceKm, sorted[j].DistanceKm
			switch {
			case di == nil:
				return false
			case dj == nil:
				return true
			default:
				return *di < *dj
			}
		})
		base = sorted
	}

	total := len(base)
	if total > types.DisplayLimit {
		base = base[:types.DisplayLimit]
	}
	return types.DisplayResult{Centers: base, Total: total}
}

// Nearest answers "what is closest to here" over the raw catalog, without
// touching session state.
func (s *ServiceImpl) Nearest(ctx context.Context, pos types.Position, limit int, category string) []types.Center {
	_, span := otel.Tracer("SearchService").Start(ctx, "Nearest")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit), attribute.String("category", category))

	return geo.Nearest(s.catalog.All(), pos, limit, category)
}

// resultKey scopes a memoized filtered set to the annotation generation it
// was computed from. A recompute that loses the race with a position change
// writes under a retired key, so a stale set is never served after the
// flush.
func resultKey(gen uint64, c types.FilterCriteria) string {
	return fmt.Sprintf("%d\x00%s\x00%s\x00%s", gen, strings.ToLower(c.Text), c.Province, c.Category)
}
