package geolocate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/sagip-ph/evaq-engine/app/observability/metrics"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

// Provider is the actual position source (a GNSS bridge, an IP lookup, or a
// fixed kiosk coordinate).
type Provider interface {
	Current(ctx context.Context) (types.Position, error)
}

var _ Service = (*ServiceImpl)(nil)

// Service acquires the user position. At most one provider request is in
// flight: concurrent callers join the pending acquisition instead of issuing
// a second one.
type Service interface {
	Locate(ctx context.Context) (types.Position, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	provider Provider
	timeout  time.Duration
	group    singleflight.Group
}

func NewServiceImpl(provider Provider, timeout time.Duration, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, provider: provider, timeout: timeout}
}

// Locate resolves the current position within the acquisition timeout.
// Failures map onto the geolocation error taxonomy; the engine keeps
// operating without distance features when an error is returned.
func (s *ServiceImpl) Locate(ctx context.Context) (types.Position, error) {
	ctx, span := otel.Tracer("GeolocateService").Start(ctx, "Locate")
	defer span.End()

	metrics.Get().GeolocateRequestsTotal.Add(ctx, 1)

	ch := s.group.DoChan("position", func() (any, error) {
		// Detached from the caller: a joined caller going away must not
		// cancel the acquisition for the others.
		acqCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		return s.provider.Current(acqCtx)
	})

	select {
	case <-ctx.Done():
		// The acquisition keeps running for the remaining callers; this
		// caller just stops waiting for it.
		mapped := mapProviderError(ctx.Err())
		span.SetStatus(codes.Error, mapped.Error())
		return types.Position{}, mapped
	case res := <-ch:
		if res.Shared {
			s.logger.DebugContext(ctx, "Joined in-flight position acquisition")
		}
		if res.Err != nil {
			mapped := mapProviderError(res.Err)
			s.logger.WarnContext(ctx, "Position acquisition failed", slog.Any("error", mapped))
			span.SetStatus(codes.Error, mapped.Error())
			return types.Position{}, mapped
		}
		pos := res.Val.(types.Position)
		span.SetStatus(codes.Ok, "position acquired")
		return pos, nil
	}
}

func mapProviderError(err error) error {
	switch {
	case errors.Is(err, types.ErrGeolocationDenied),
		errors.Is(err, types.ErrGeolocationTimeout),
		errors.Is(err, types.ErrGeolocationUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return types.ErrGeolocationTimeout
	default:
		return types.ErrGeolocationUnavailable
	}
}

// StaticProvider returns a fixed coordinate, for kiosk deployments where the
// terminal location is known ahead of time.
type StaticProvider struct {
	Position types.Position
}

func (p StaticProvider) Current(ctx context.Context) (types.Position, error) {
	return p.Position, nil
}
