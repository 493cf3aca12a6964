package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sagip-ph/evaq-engine/internal/api/catalog"
	"github.com/sagip-ph/evaq-engine/internal/api/geolocate"
	"github.com/sagip-ph/evaq-engine/internal/api/routeplan"
	"github.com/sagip-ph/evaq-engine/internal/api/search"
	"github.com/sagip-ph/evaq-engine/internal/api/userstate"
)

// Config contains the handlers the router wires up. Server-wide middleware
// (logger, requestID, recoverer) is applied by main.go before mounting.
type Config struct {
	CatalogHandler   *catalog.Handler
	SearchHandler    *search.Handler
	UserStateHandler *userstate.Handler
	RoutePlanHandler *routeplan.Handler
	GeolocateHandler *geolocate.Handler
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/centers", func(r chi.Router) {
			r.Get("/", cfg.CatalogHandler.ListCenters)
			r.Get("/provinces", cfg.CatalogHandler.ListProvinces)
			r.Get("/categories", cfg.CatalogHandler.ListCategories)
			r.Get("/stats", cfg.CatalogHandler.GetStats)
			r.Get("/{centerID}", cfg.CatalogHandler.GetCenter)
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/", cfg.SearchHandler.Search)
			r.Post("/input", cfg.SearchHandler.SubmitInput)
			r.Get("/display", cfg.SearchHandler.Display)
			r.Get("/nearest", cfg.SearchHandler.Nearest)
		})

		r.Get("/state", cfg.UserStateHandler.GetState)

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", cfg.UserStateHandler.ListFavorites)
			r.Post("/toggle", cfg.UserStateHandler.ToggleFavorite)
			r.Delete("/", cfg.UserStateHandler.ClearFavorites)
			r.Get("/export", cfg.UserStateHandler.ExportFavorites)
		})

		r.Route("/searches/recent", func(r chi.Router) {
			r.Get("/", cfg.UserStateHandler.ListRecentSearches)
			r.Delete("/", cfg.UserStateHandler.ClearRecentSearches)
		})

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", cfg.UserStateHandler.ListSelection)
			r.Post("/toggle", cfg.UserStateHandler.ToggleSelection)
			r.Delete("/", cfg.UserStateHandler.ClearSelection)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Put("/", cfg.UserStateHandler.UpdatePreferences)
			r.Put("/tab", cfg.UserStateHandler.SetActiveTab)
			r.Put("/max-distance", cfg.UserStateHandler.SetMaxDistance)
		})

		r.Route("/position", func(r chi.Router) {
			r.Put("/", cfg.GeolocateHandler.SetPosition)
			r.Post("/locate", cfg.GeolocateHandler.Locate)
		})

		r.Post("/route/plan", cfg.RoutePlanHandler.Plan)
	})

	return r
}
