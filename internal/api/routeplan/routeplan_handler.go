package routeplan

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

// Plan produces the waypoint sequence and, on success, clears the selection
// and exits selection mode (the documented post-condition of planning).
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RoutePlanHandler").Start(r.Context(), "Plan", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/route/plan"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Plan"))

	plan, err := h.service.Plan(ctx)
	if err != nil {
		if errors.Is(err, types.ErrInsufficientSelection) {
			api.ErrorResponse(w, r, http.StatusConflict, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to plan route", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to plan route")
		return
	}

	h.state.ClearSelection(ctx)
	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}
