package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl Limiter, idemp IdempotencyStore) *chi.Mux {
	r := chi.NewRouter()

	r.Use(PeerAddrMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)

		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(rl, logger))

			r.Get("/journeys", h.SearchJourneys)
			r.Get("/journeys/{id}", h.GetJourney)

			r.Get("/users/{userID}/bookings", h.ListUserBookings)
			r.Get("/users/{userID}/payments", h.ListUserPayments)
			r.Get("/users/{userID}/notifications", h.ListNotifications)
			r.Post("/users/{userID}/notifications/read", h.MarkAllNotificationsRead)
			r.Post("/notifications/{id}/read", h.MarkNotificationRead)

			r.Post("/payments/callback", h.PaymentCallback)

			r.Group(func(r chi.Router) {
				r.Use(IdempotencyMiddleware(idemp))

				r.Post("/sessions", h.CreateSession)
				r.Get("/sessions/{id}", h.GetSession)
				r.Post("/sessions/{id}/seats/{seatID}/toggle", h.ToggleSeat)
				r.Delete("/sessions/{id}/selection", h.ClearSelection)
				r.Delete("/sessions/{id}", h.DeleteSession)
				r.Post("/sessions/{id}/checkout", h.Checkout)

				r.Get("/bookings/{id}", h.GetBooking)
				r.Post("/bookings/{id}/cancel", h.CancelBooking)
			})
		})
	})

	return r
}
