package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/sagip-ph/evaq-engine/internal/api"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// GetCenter returns a single catalog record by id.
func (h *Handler) GetCenter(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "GetCenter", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/centers/{centerID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetCenter"))

	id := chi.URLParam(r, "centerID")
	if id == "" {
		l.ErrorContext(ctx, "Center ID is required")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Center ID is required")
		return
	}

	center, ok := h.service.GetCenter(ctx, id)
	if !ok {
		api.ErrorResponse(w, r, http.StatusNotFound, "Center not found")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, center)
}

// ListCenters returns the whole catalog in load order.
func (h *Handler) ListCenters(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "ListCenters", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/centers"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.ListCenters(ctx))
}

// ListProvinces returns the distinct province values for the filter dropdown.
func (h *Handler) ListProvinces(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "ListProvinces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/centers/provinces"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.ListProvinces(ctx))
}

// ListCategories returns the distinct category values.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "ListCategories", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/centers/categories"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.ListCategories(ctx))
}

// GetStats returns dataset-wide summary statistics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "GetStats", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/centers/stats"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.GetStats(ctx))
}
