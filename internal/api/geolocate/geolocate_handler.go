package geolocate

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/sagip-ph/evaq-engine/internal/api"
	"github.com/sagip-ph/evaq-engine/internal/api/userstate"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

type Handler struct {
	service Service
	state   userstate.Service
	logger  *slog.Logger
}

func NewHandler(service Service, state userstate.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, state: state, logger: logger}
}

// Locate acquires the current position from the provider and stores it as
// the session position, which re-annotates distances downstream.
func (h *Handler) Locate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GeolocateHandler").Start(r.Context(), "Locate", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/position/locate"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Locate"))

	pos, err := h.service.Locate(ctx)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, types.ErrGeolocationDenied):
			status = http.StatusForbidden
		case errors.Is(err, types.ErrGeolocationTimeout):
			status = http.StatusGatewayTimeout
		}
		l.WarnContext(ctx, "Geolocation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, status, err.Error())
		return
	}

	h.state.SetUserPosition(ctx, pos)
	api.WriteJSONResponse(w, r, http.StatusOK, pos)
}

// SetPosition accepts a client-supplied fix instead of asking the provider.
func (h *Handler) SetPosition(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GeolocateHandler").Start(r.Context(), "SetPosition", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/position"),
	))
	defer span.End()

	var pos types.Position
	if err := api.DecodeJSONBody(w, r, &pos); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if pos.Lat < -90 || pos.Lat > 90 || pos.Lon < -180 || pos.Lon > 180 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Coordinates out of range")
		return
	}

	h.state.SetUserPosition(ctx, pos)
	api.WriteJSONResponse(w, r, http.StatusOK, pos)
}
