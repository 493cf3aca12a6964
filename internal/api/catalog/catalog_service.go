package catalog

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sagip-ph/evaq-engine/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the read contract the handlers and other components use.
type Service interface {
	GetCenter(ctx context.Context, id string) (types.Center, bool)
	ListCenters(ctx context.Context) []types.Center
	ListProvinces(ctx context.Context) []string
	ListCategories(ctx context.Context) []string
	GetStats(ctx context.Context) types.CatalogStats
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewServiceImpl(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo}
}

func (s *ServiceImpl) GetCenter(ctx context.Context, id string) (types.Center, bool) {
	_, span := otel.Tracer("CatalogService").Start(ctx, "GetCenter")
	defer span.End()
	span.SetAttributes(attribute.String("center.id", id))

	c, ok := s.repo.Get(id)
	if !ok {
		s.logger.DebugContext(ctx, "Center not found", slog.String("id", id))
	}
	return c, ok
}

func (s *ServiceImpl) ListCenters(ctx context.Context) []types.Center {
	_, span := otel.Tracer("CatalogService").Start(ctx, "ListCenters")
	defer span.End()
	return s.repo.All()
}

func (s *ServiceImpl) ListProvinces(ctx context.Context) []string {
	_, span := otel.Tracer("CatalogService").Start(ctx, "ListProvinces")
	defer span.End()
	return s.repo.Provinces()
}

func (s *ServiceImpl) ListCategories(ctx context.Context) []string {
	_, span := otel.Tracer("CatalogService").Start(ctx, "ListCategories")
	defer span.End()
	return s.repo.Categories()
}

func (s *ServiceImpl) GetStats(ctx context.Context) types.CatalogStats {
	_, span := otel.Tracer("CatalogService").Start(ctx, "GetStats")
	defer span.End()
	return s.repo.Stats()
}
