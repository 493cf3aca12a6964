package search

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/sagip-ph/evaq-engine/internal/api"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func criteriaFromQuery(r *http.Request) types.FilterCriteria {
	q := r.URL.Query()
	return types.FilterCriteria{
		Text:     q.Get("text"),
		Province: q.Get("province"),
		Category: q.Get("category"),
	}
}

// Search runs the filter pipeline synchronously with the query-string
// criteria. This is the programmatic path: it never touches the search
// history.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "Search", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/search"),
	))
	defer span.End()

	criteria := criteriaFromQuery(r)
	result := h.service.DisplayList(ctx, criteria)
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// SubmitInput accepts a live-typing event. The recompute is debounced: the
// handler acknowledges immediately and the burst settles in the background.
func (h *Handler) SubmitInput(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "SubmitInput", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/search/input"),
	))
	defer span.End()

	var criteria types.FilterCriteria
	if err := api.DecodeJSONBody(w, r, &criteria); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode input event", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.service.SubmitInput(ctx, criteria)
	api.WriteJSONResponse(w, r, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Display returns the display list for the most recently submitted criteria.
func (h *Handler) Display(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "Display", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/search/display"),
	))
	defer span.End()

	criteria := h.service.CurrentCriteria(ctx)
	api.WriteJSONResponse(w, r, http.StatusOK, h.service.DisplayList(ctx, criteria))
}

// Nearest returns the closest centers to the given coordinates.
func (h *Handler) Nearest(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "Nearest", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/search/nearest"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Nearest"))
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		l.ErrorContext(ctx, "Invalid latitude", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid or missing lat")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		l.ErrorContext(ctx, "Invalid longitude", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid or missing lon")
		return
	}

	limit := 5
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid limit")
			return
		}
	}
	// The nearest view caps out like the display list does.
	if limit > types.DisplayLimit {
		limit = types.DisplayLimit
	}

	pos := types.Position{Lat: lat, Lon: lon}
	api.WriteJSONResponse(w, r, http.StatusOK, h.service.Nearest(ctx, pos, limit, q.Get("category")))
}
