package web

import (
	"net/http"

	"gymdesk/internal/adapters/http/middleware"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	auth := middleware.BearerAuth(s.opts.JWTSecret)
	trigger := func(h http.HandlerFunc) http.Handler {
		return middleware.CORS(middleware.TriggerKey(s.opts.TriggerKeyHash)(h))
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.Handle("GET /api/calendar", auth(http.HandlerFunc(s.handleCalendar)))
	mux.Handle("GET /api/notifications", auth(http.HandlerFunc(s.handleNotifications)))
	mux.Handle("GET /api/perf", auth(http.HandlerFunc(s.handlePerf)))

	// No method in the pattern so CORS can answer the OPTIONS preflight.
	mux.Handle("/functions/v1/promote-waitlist", trigger(s.handlePromoteWaitlist))
	mux.Handle("/functions/v1/notify-class-cancellation", trigger(s.handleNotifyCancellation))
}
