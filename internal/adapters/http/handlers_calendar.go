package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/booking"
	"gymdesk/internal/domain/calendar"
)

// queryList collects a repeatable, comma-separable query parameter.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// handleCalendar serves GET /api/calendar.
// Query: view=day|week|month (default week), date=YYYY-MM-DD (default today),
// class_id, instructor_id and status filters.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	view := q.Get("view")
	if view == "" {
		view = calendar.ViewWeek
	}

	anchor := s.deps.Now()
	if d := q.Get("date"); d != "" {
		parsed, err := time.Parse(booking.DateLayout, d)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		anchor = parsed
	}

	result, err := projections.QueryGetBookingCalendar(r.Context(), projections.GetBookingCalendarQuery{
		View:          view,
		Date:          anchor,
		ClassTypeIDs:  queryList(r, "class_id"),
		InstructorIDs: queryList(r, "instructor_id"),
		Statuses:      queryList(r, "status"),
	}, projections.GetBookingCalendarDeps{
		BookingStore: s.deps.BookingStore,
		Cache:        s.deps.Cache,
	})
	switch {
	case errors.Is(err, calendar.ErrInvalidView), errors.Is(err, booking.ErrInvalidStatus):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		internalError(w, "failed to load calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleNotifications serves GET /api/notifications for the token's member.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := projections.QueryGetMemberNotifications(r.Context(), claims.MemberID(), projections.GetMemberNotificationsDeps{
		NotificationStore: s.deps.NotificationStore,
		Page:              listutil.ParsePageParams(r.URL.Query()),
	})
	if err != nil {
		internalError(w, "failed to load notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHealthz reports liveness and database reachability.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// perfRoles may read the timing snapshot.
var perfRoles = map[string]bool{"admin": true, "service_role": true}

// handlePerf serves GET /api/perf?minutes=60&top=10.
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || !perfRoles[claims.Role] {
		middleware.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}
	minutes := 60
	if v, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && v > 0 {
		minutes = v
	}
	top := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && v > 0 {
		top = v
	}
	since := time.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, s.deps.Perf.Snapshot(since, top))
}
