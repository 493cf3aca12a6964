package userstate

import (
	"log/slog"
	"net/http"

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

type idRequest struct {
	ID string `json:"id"`
}

// GetState returns the full session state for a display refresh.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "GetState", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/state"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.State(ctx))
}

// ToggleFavorite flips membership of the given id in the favorites set.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ToggleFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favorites/toggle"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ToggleFavorite"))

	var req idRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Center ID is required")
		return
	}

	result, err := h.service.ToggleFavorite(ctx, req.ID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to toggle favorite", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update favorites")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// ListFavorites returns the favorited centers resolved against the catalog.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ListFavorites", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favorites"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.FavoriteCenters(ctx))
}

// ClearFavorites empties the favorites set.
func (h *Handler) ClearFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ClearFavorites", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favorites"),
	))
	defer span.End()

	result, err := h.service.ClearFavorites(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to clear favorites", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to clear favorites")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// ExportFavorites streams the favorites as a CSV attachment.
func (h *Handler) ExportFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ExportFavorites", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favorites/export"),
	))
	defer span.End()

	data, err := h.service.ExportFavoritesCSV(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to export favorites", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to export favorites")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="favorites.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(ctx, "Failed to write CSV response", slog.Any("error", err))
	}
}

// ListRecentSearches returns the MRU search history, most recent first.
func (h *Handler) ListRecentSearches(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ListRecentSearches", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/searches/recent"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.RecentSearches(ctx))
}

// ClearRecentSearches empties the search history unconditionally.
func (h *Handler) ClearRecentSearches(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ClearRecentSearches", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/searches/recent"),
	))
	defer span.End()

	if err := h.service.ClearRecentSearches(ctx); err != nil {
		h.logger.ErrorContext(ctx, "Failed to clear recent searches", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to clear recent searches")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// ToggleSelection flips membership in the route-planning selection.
func (h *Handler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ToggleSelection", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/selection/toggle"),
	))
	defer span.End()

	var req idRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Center ID is required")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, h.service.ToggleSelection(ctx, req.ID))
}

// ListSelection returns the ids currently selected for route planning.
func (h *Handler) ListSelection(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ListSelection", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/selection"),
	))
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.service.Selection(ctx))
}

// ClearSelection exits selection mode.
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "ClearSelection", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/selection"),
	))
	defer span.End()

	h.service.ClearSelection(ctx)
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// SetActiveTab switches between the All and Favorites views.
func (h *Handler) SetActiveTab(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "SetActiveTab", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/preferences/tab"),
	))
	defer span.End()

	var req struct {
		Tab types.Tab `json:"tab"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.SetActiveTab(ctx, req.Tab); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]types.Tab{"active_tab": req.Tab})
}

// SetMaxDistance updates the radius cap; the stored (clamped) value is
// echoed back.
func (h *Handler) SetMaxDistance(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "SetMaxDistance", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/preferences/max-distance"),
	))
	defer span.End()

	var req struct {
		MaxDistanceKm float64 `json:"max_distance_km"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	km, err := h.service.SetMaxDistance(ctx, req.MaxDistanceKm)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to persist max distance", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update max distance")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]float64{"max_distance_km": km})
}

// UpdatePreferences updates the optional polish preferences (language,
// theme).
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserStateHandler").Start(r.Context(), "UpdatePreferences", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/preferences"),
	))
	defer span.End()

	var params UpdatePreferencesParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	prefs, err := h.service.UpdatePreferences(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to persist preferences", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update preferences")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, prefs)
}
