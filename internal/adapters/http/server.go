package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"gymdesk/internal/adapters/email"
	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/adapters/http/perf"
	bookingStore "gymdesk/internal/adapters/storage/booking"
	notificationStore "gymdesk/internal/adapters/storage/notification"
	waitlistStore "gymdesk/internal/adapters/storage/waitlist"
	"gymdesk/internal/application/orchestrators"
)

// CalendarCache caches computed calendars and is invalidated on cancellation.
type CalendarCache interface {
	Get(ctx context.Context, key string, dest any) (bool, int64, error)
	Set(ctx context.Context, key string, generation int64, value any) error
	Invalidate(ctx context.Context) error
}

// Pinger reports database liveness for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds every collaborator the handlers use.
type Deps struct {
	BookingStore      bookingStore.Store
	WaitlistStore     waitlistStore.Store
	NotificationStore notificationStore.Store
	Cache             CalendarCache // optional
	EmailSender       email.Sender
	Outbox            orchestrators.OutboxStoreForOrchestrator // optional
	From              orchestrators.Sender
	Perf              *perf.Collector
	DB                Pinger // optional
	GenerateID        func() string
	Now               func() time.Time
}

// Options configures authentication and the middleware chain.
type Options struct {
	JWTSecret          []byte
	TriggerKeyHash     []byte // bcrypt hash; empty disables the check
	CSRFKey            []byte // 32 bytes
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond float64
	RateLimitBurst     int
	SlowRequestMs      int
}

// Server serves the calendar API and the workflow trigger endpoints.
type Server struct {
	deps    Deps
	opts    Options
	limiter *middleware.RateLimiter
}

// NewServer fills defaults and returns a server ready for Handler.
// PRE: deps stores and EmailSender are non-nil; opts.JWTSecret is set
// POST: Perf, GenerateID and Now are non-nil
func NewServer(deps Deps, opts Options) *Server {
	if deps.Perf == nil {
		deps.Perf = perf.NewCollector(perf.DefaultRingSize)
	}
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.RateLimitPerSecond <= 0 {
		opts.RateLimitPerSecond = 10
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 20
	}
	return &Server{
		deps:    deps,
		opts:    opts,
		limiter: middleware.NewRateLimiter(opts.RateLimitPerSecond, opts.RateLimitBurst),
	}
}

// triggerPathPrefix holds the server-to-server trigger endpoints. They are
// guarded by the trigger key and CORS, not by the CSRF cookie.
const triggerPathPrefix = "/functions/"

// Handler returns the routed handler wrapped in the middleware chain.
// Order, outermost first: Timing, RateLimit, CSRF, SecurityHeaders.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(s.opts.CSRFKey, s.opts.SecureCookies, s.opts.TrustedOrigins, triggerPathPrefix),
		middleware.RateLimit(s.limiter),
		middleware.Timing(s.deps.Perf, s.opts.SlowRequestMs),
	)
}

// Close releases background resources.
func (s *Server) Close() {
	s.limiter.Close()
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode_error", "error", err)
	}
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, msg string, err error) {
	slog.Error("internal_error", "message", msg, "error", err.Error())
	middleware.WriteError(w, http.StatusInternalServerError, msg)
}
