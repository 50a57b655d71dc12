package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slotline/slotline/libs/httpx"
	"github.com/slotline/slotline/libs/runtime"
)

type RouterConfig struct {
	AllowedOrigins []string
	// RateLimit guards the public booking surface; nil disables limiting.
	RateLimit *httpx.RedisRateLimiter
	Ready     []runtime.ReadyCheck
}

// NewRouter wires the HTTP surface. Public booking endpoints sit behind the
// rate limiter; everything under /api/staff requires a session token.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(httpx.WithRequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", runtime.HealthHandler())
	r.Get("/readyz", runtime.ReadyHandler(cfg.Ready...))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			if cfg.RateLimit != nil {
				r.Use(cfg.RateLimit.Middleware(h.logger, true))
			}
			r.Route("/locations/{locationID}/workers/{workerID}", func(r chi.Router) {
				r.Get("/slots", h.Slots)
				r.Post("/appointments", h.Book)
			})
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(h.RequireStaff)
			r.With(h.RequireOwner).Post("/locations", h.CreateLocation)
			r.Route("/locations/{locationID}", func(r chi.Router) {
				r.With(h.RequireOwner).Post("/staff", h.CreateStaff)
				r.Post("/shifts/swap", h.SwapShifts)
				r.Get("/shift-settings", h.GetShiftSettings)
				r.With(h.RequireOwner).Put("/shift-settings", h.PutShiftSettings)
				r.With(h.RequireOwner).Post("/services", h.CreateService)
				r.Post("/appointments/{appointmentID}/status", h.SetStatus)

				r.Route("/workers", func(r chi.Router) {
					r.Get("/", h.ListWorkers)
					r.With(h.RequireOwner).Post("/", h.CreateWorker)
					r.Route("/{workerID}", func(r chi.Router) {
						r.With(h.RequireOwner).Post("/activate", h.ActivateWorker)
						r.Post("/blocks", h.CreateBlock)
						r.Put("/blocks/{blockID}", h.UpdateBlock)
						r.Delete("/blocks/{blockID}", h.DeleteBlock)
						r.Post("/cancel-day", h.CancelDay)
						r.Post("/plan", h.PlanWeek)
						r.Get("/day", h.DaySchedule)
						r.Get("/day.xlsx", h.ExportDay)
						r.Put("/services", h.UpsertWorkerService)
					})
				})
			})
		})
	})

	return r
}
