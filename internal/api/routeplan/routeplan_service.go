package routeplan

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sagip-ph/evaq-engine/app/observability/metrics"
	"github.com/sagip-ph/evaq-engine/internal/api/search"
	"github.com/sagip-ph/evaq-engine/internal/api/userstate"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

// Records with no computed distance sort last in the waypoint order.
const unknownDistanceSentinelKm = 9999.0

var _ Service = (*ServiceImpl)(nil)

// Service turns the route-planning selection into an ordered waypoint
// sequence for the external navigation collaborator.
type Service interface {
	Plan(ctx context.Context) (types.RoutePlan, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	engine search.Service
	state  userstate.Service
}

func NewServiceImpl(engine search.Service, state userstate.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, engine: engine, state: state}
}

// Plan resolves the selection against the annotated catalog and orders it:
// nearest-first when a user position is known (with the user position
// prepended as the origin), selection order otherwise. Fails without
// mutating state when fewer than two centers are selected.
func (s *ServiceImpl) Plan(ctx context.Context) (types.RoutePlan, error) {
	ctx, span := otel.Tracer("RoutePlanService").Start(ctx, "Plan")
	defer span.End()

	selection := s.state.Selection(ctx)
	span.SetAttributes(attribute.Int("selection.count", len(selection)))

	if len(selection) < 2 {
		span.SetStatus(codes.Error, "insufficient selection")
		return types.RoutePlan{}, types.ErrInsufficientSelection
	}

	resolved := make([]types.Center, 0, len(selection))
	for _, id := range selection {
		c, ok := s.engine.Get(ctx, id)
		if !ok {
			s.logger.WarnContext(ctx, "Selected center not in catalog, skipping",
				slog.String("id", id))
			continue
		}
		resolved = append(resolved, c)
	}
	if len(resolved) < 2 {
		span.SetStatus(codes.Error, "insufficient selection")
		return types.RoutePlan{}, types.ErrInsufficientSelection
	}

	userPos := s.state.UserPosition(ctx)
	if userPos != nil {
		sort.SliceStable(resolved, func(i, j int) bool {
			return distanceOrSentinel(resolved[i]) < distanceOrSentinel(resolved[j])
		})
	}

	waypoints := make([]types.Position, 0, len(resolved)+1)
	if userPos != nil {
		waypoints = append(waypoints, *userPos)
	}
	for _, c := range resolved {
		waypoints = append(waypoints, c.Position)
	}

	plan := types.RoutePlan{ID: uuid.New(), Waypoints: waypoints}
	metrics.Get().RoutePlansTotal.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Route planned",
		slog.String("route_id", plan.ID.String()),
		slog.Int("waypoints", len(plan.Waypoints)),
	)
	span.SetStatus(codes.Ok, "route planned")
	return plan, nil
}

func distanceOrSentinel(c types.Center) float64 {
	if c.DistanceKm == nil {
		return unknownDistanceSentinelKm
	}
	return *c.DistanceKm
}
