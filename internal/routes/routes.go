package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dronesight/dronesight-backend/internal/handlers"
	"github.com/dronesight/dronesight-backend/internal/middleware"
)

// Handlers groups every HTTP handler the router serves.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Sightings   *handlers.SightingHandler
	Discussions *handlers.DiscussionHandler
	Users       *handlers.UserHandler
	Media       *handlers.MediaHandler
	Screens     *handlers.ScreenHandler
}

// RequestTimeout bounds every /api request. Screen sockets are not bounded.
const RequestTimeout = 30 * time.Second

// SetupRoutes registers the API on r. Authenticate must already be installed
// for the routes that require a signed-in user.
func SetupRoutes(r chi.Router, h Handlers) {
	// Health check and metrics (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Screen sessions (WebSocket)
	r.Get("/ws/screens", h.Screens.Connect)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(RequestTimeout))
		apiRoutes(r, h)
	})
}

func apiRoutes(r chi.Router, h Handlers) {

	// Auth routes
	r.Post("/api/auth/signup", h.Auth.Signup)
	r.Post("/api/auth/signin", h.Auth.Signin)
	r.Post("/api/auth/signout", h.Auth.Signout)
	r.With(middleware.RequireAuth).Get("/api/auth/me", h.Auth.Me)

	// Sighting routes
	r.Route("/api/sightings", func(r chi.Router) {
		r.Get("/", h.Sightings.List)
		r.Get("/{id}", h.Sightings.Get)
		r.Get("/{id}/comments", h.Sightings.ListComments)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", h.Sightings.Create)
			r.Put("/{id}", h.Sightings.Update)
			r.Delete("/{id}", h.Sightings.Delete)
			r.Post("/{id}/comments", h.Sightings.CreateComment)
			r.Delete("/{id}/comments/{commentId}", h.Sightings.DeleteComment)
		})
	})

	// Discussion routes
	r.Route("/api/discussions", func(r chi.Router) {
		r.Get("/", h.Discussions.List)
		r.Get("/{id}", h.Discussions.Get)
		r.Get("/{id}/comments", h.Discussions.ListComments)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", h.Discussions.Create)
			r.Delete("/{id}", h.Discussions.Delete)
			r.Post("/{id}/comments", h.Discussions.CreateComment)
		})
	})

	// User profile routes
	r.Get("/api/users/{id}", h.Users.Get)
	r.With(middleware.RequireAuth).Put("/api/users/{id}", h.Users.Update)

	// File upload routes
	r.With(middleware.RequireAuth).Post("/api/upload", h.Media.UploadFile)
	r.With(middleware.RequireAuth).Post("/api/media/stage", h.Media.Stage)
}
