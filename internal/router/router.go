package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-timetable-admin/internal/config"
	"go-timetable-admin/internal/handler"
	"go-timetable-admin/internal/middleware"
	"go-timetable-admin/internal/model"
)

type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Download *handler.DownloadHandler
	Users    *handler.UserHandler
	Profile  *handler.ProfileHandler
	Activity *handler.ActivityHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Downloads stream past the request timeout, and the gate answers
	// anonymous callers itself.
	streaming := chi.Chain(
		authMiddleware.OptionalAuth,
		middleware.StreamingTimeout(cfg.DownloadMaxDuration, cfg.DownloadIdleTimeout),
	)
	r.With(streaming...).Get("/download", h.Download.Download)

	r.With(middleware.Timeout(cfg.RequestTimeout)).Get("/profile-images/{name}", h.Profile.ServeImage)

	r.Route("/api/v1", func(api chi.Router) {
		api.With(streaming...).Get("/exports/download", h.Download.Download)

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(cfg.RequestTimeout))

			api.Route("/auth", func(auth chi.Router) {
				auth.Post("/login", h.Auth.Login)
				auth.Post("/refresh", h.Auth.Refresh)
				auth.With(authMiddleware.OptionalAuth).Post("/logout", h.Auth.Logout)
				auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
			})

			api.With(authMiddleware.RequireAuth).Post("/users/{id}/profile-image", h.Profile.UploadImage)

			api.Route("/admin", func(admin chi.Router) {
				admin.Use(authMiddleware.RequireAuth, authMiddleware.RequireRoles(model.RoleAdmin))

				admin.Route("/users", func(users chi.Router) {
					users.Get("/", h.Users.List)
					users.Post("/", h.Users.Create)
					users.Post("/bulk", h.Users.Bulk)
					users.Get("/{id}", h.Users.Get)
					users.Put("/{id}", h.Users.Update)
					users.Delete("/{id}", h.Users.Delete)
					users.Post("/{id}/approve", h.Users.Transition("approve"))
					users.Post("/{id}/reject", h.Users.Transition("reject"))
					users.Post("/{id}/activate", h.Users.Transition("activate"))
					users.Post("/{id}/deactivate", h.Users.Transition("deactivate"))
				})

				admin.Get("/activity", h.Activity.List)
			})
		})
	})

	return r
}
