package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the payment analytics endpoints onto the router.
// The composite report and forecast fan out into several ledger scans per
// request, so they sit behind a tighter rate limit.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/kpis", h.handleKPIs)
		r.Get("/revenue", h.handleRevenue)
		r.Get("/cashflow", h.handleCashFlow)
		r.Get("/top-payments", h.handleTopPayments)
		r.Get("/trends", h.handleTrends)
		r.Get("/customers/{id}/behavior", h.handleCustomerBehavior)

		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/report", h.handleReport)
			gr.Get("/forecast", h.handleForecast)
		})
	})
}
