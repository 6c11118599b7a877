// internal/httpapi/router.go
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"bloodlink/internal/donation"
	"bloodlink/internal/httpapi/respond"
	"bloodlink/internal/identity"
	"bloodlink/internal/journal"
	"bloodlink/internal/ledger"
	"bloodlink/internal/notification"
	"bloodlink/internal/request"
)

// Handlers bundles the feature handlers the router mounts.
type Handlers struct {
	Identity      *identity.Handler
	Ledger        *ledger.Handler
	Donations     *donation.Handler
	Requests      *request.Handler
	Notifications *notification.Handler
	Journal       *journal.Handler
}

// NewRouter wires the engine's HTTP surface.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(RequestLogger(log))
	r.Use(Authenticate)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.Message(w, http.StatusOK, "ok")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Identity.HandleRegister)
		r.Post("/auth/login", h.Identity.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole("donor", "recipient", "manager"))
			r.Get("/profile", h.Identity.HandleProfile)
			r.Put("/profile", h.Identity.HandleUpdateProfile)
			r.Get("/notifications", h.Notifications.HandleList)
			r.Post("/notifications/read", h.Notifications.HandleMarkAllRead)
			r.Post("/notifications/{id}/read", h.Notifications.HandleMarkRead)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole("donor"))
			r.Post("/donations", h.Donations.HandleSubmit)
			r.Post("/donors/{id}/availability", h.Identity.HandleSetAvailability)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole("donor", "manager"))
			r.Get("/donors/{id}/eligibility", h.Donations.HandleEligibility)
			r.Get("/donors/{id}/history", h.Donations.HandleHistory)
			r.Get("/requests/active", h.Requests.HandleListActive)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole("recipient"))
			r.Post("/requests", h.Requests.HandleCreate)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole("manager"))
			r.Get("/inventory", h.Ledger.HandleInventory)
			r.Get("/donors/search", h.Identity.HandleSearchDonors)
			r.Post("/requests/{id}/approve", h.Requests.HandleApprove)
			r.Post("/requests/{id}/fulfill", h.Requests.HandleFulfill)
			r.Post("/broadcasts", h.Notifications.HandleBroadcast)
			r.Get("/audit/events", h.Journal.HandleStream)
			r.Get("/audit/aggregates/{id}", h.Journal.HandleLoad)
		})
	})

	return r
}
