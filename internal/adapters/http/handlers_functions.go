package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/booking"
)

// maxTriggerBody caps trigger payloads.
const maxTriggerBody = 64 << 10

// promoteWaitlistResponse adds the shared count fields to the workflow result.
type promoteWaitlistResponse struct {
	Recipients        int `json:"recipients"`
	NotificationsSent int `json:"notifications_sent"`
	EmailsSent        int `json:"emails_sent"`
	EmailsFailed      int `json:"emails_failed"`
	orchestrators.PromoteWaitlistResult
}

func newPromoteWaitlistResponse(res orchestrators.PromoteWaitlistResult) promoteWaitlistResponse {
	out := promoteWaitlistResponse{Recipients: res.Recipients(), PromoteWaitlistResult: res}
	if res.NotificationSent {
		out.NotificationsSent = 1
	}
	if res.Promoted {
		if res.EmailSent {
			out.EmailsSent = 1
		} else {
			out.EmailsFailed = 1
		}
	}
	if out.Steps == nil {
		out.Steps = []orchestrators.StepOutcome{}
	}
	return out
}

// decodeTrigger reads a JSON trigger payload. Unknown fields are ignored;
// trigger sources send whole database rows.
func decodeTrigger(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTriggerBody)).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// handlePromoteWaitlist serves POST /functions/v1/promote-waitlist.
func (s *Server) handlePromoteWaitlist(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.PromoteWaitlistInput
	if !decodeTrigger(w, r, &input) {
		return
	}
	if input.ScheduleID == "" {
		middleware.WriteError(w, http.StatusBadRequest, orchestrators.ErrScheduleIDRequired.Error())
		return
	}

	res, err := s.PromoteWaitlist(r.Context(), input)
	if err != nil {
		internalError(w, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, newPromoteWaitlistResponse(res))
}

// handleNotifyCancellation serves POST /functions/v1/notify-class-cancellation.
func (s *Server) handleNotifyCancellation(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.NotifyCancellationInput
	if !decodeTrigger(w, r, &input) {
		return
	}
	if input.ScheduleID == "" {
		middleware.WriteError(w, http.StatusBadRequest, orchestrators.ErrScheduleIDRequired.Error())
		return
	}

	res, err := s.NotifyCancellation(r.Context(), input)
	switch {
	case errors.Is(err, booking.ErrInvalidDate):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		internalError(w, err.Error(), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PromoteWaitlist runs the promotion workflow with the server's collaborators.
// The Kafka trigger consumer shares this entry point with the HTTP handler.
func (s *Server) PromoteWaitlist(ctx context.Context, input orchestrators.PromoteWaitlistInput) (orchestrators.PromoteWaitlistResult, error) {
	return orchestrators.ExecutePromoteWaitlist(ctx, input, orchestrators.PromoteWaitlistDeps{
		WaitlistStore:     s.deps.WaitlistStore,
		NotificationStore: s.deps.NotificationStore,
		EmailSender:       s.deps.EmailSender,
		Outbox:            s.deps.Outbox,
		From:              s.deps.From,
		Perf:              s.deps.Perf,
		GenerateID:        s.deps.GenerateID,
		Now:               s.deps.Now,
	})
}

// NotifyCancellation runs the cancellation fan-out with the server's collaborators.
func (s *Server) NotifyCancellation(ctx context.Context, input orchestrators.NotifyCancellationInput) (orchestrators.CancellationResult, error) {
	deps := orchestrators.NotifyCancellationDeps{
		BookingStore:      s.deps.BookingStore,
		NotificationStore: s.deps.NotificationStore,
		EmailSender:       s.deps.EmailSender,
		Outbox:            s.deps.Outbox,
		From:              s.deps.From,
		Perf:              s.deps.Perf,
		GenerateID:        s.deps.GenerateID,
		Now:               s.deps.Now,
	}
	if s.deps.Cache != nil {
		deps.Cache = s.deps.Cache
	}
	return orchestrators.ExecuteNotifyCancellation(ctx, input, deps)
}
