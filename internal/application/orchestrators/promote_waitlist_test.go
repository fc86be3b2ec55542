package orchestrators

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emailAdapter "gymdesk/internal/adapters/email"
	"gymdesk/internal/domain/notification"
	"gymdesk/internal/domain/waitlist"
)

func waitingHead() waitlist.Entry {
	return waitlist.Entry{
		ID:         "w1",
		MemberID:   "m1",
		ScheduleID: "s1",
		Position:   1,
		Status:     waitlist.StatusWaiting,
		CreatedAt:  fixedNow.Add(-time.Hour),
		Member:     contact("Aroha", "aroha@example.com"),
	}
}

func promoteInput() PromoteWaitlistInput {
	return PromoteWaitlistInput{ScheduleID: "s1", ClassName: "Spin", DayOfWeek: "monday", StartTime: "18:00", EndTime: "18:45"}
}

func promoteDeps(w *mockWaitlistStore, n *mockNotificationStore, e *mockEmailSender) PromoteWaitlistDeps {
	return PromoteWaitlistDeps{
		WaitlistStore:     w,
		NotificationStore: n,
		EmailSender:       e,
		From:              Sender{Name: "Gymdesk", Address: "hello@gymdesk.example"},
		GenerateID:        sequentialIDs(),
		Now:               fixedClock,
	}
}

func TestExecutePromoteWaitlist_NobodyWaiting(t *testing.T) {
	w := &mockWaitlistStore{}
	n := &mockNotificationStore{}
	e := &mockEmailSender{}

	res, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), promoteDeps(w, n, e))
	require.NoError(t, err)

	assert.False(t, res.Promoted)
	assert.Equal(t, 0, res.Recipients())
	assert.Nil(t, res.ExpiresAt)
	assert.Empty(t, w.marked)
	assert.Empty(t, n.saved)
	assert.Empty(t, e.attempts, "no email attempted")
	require.Len(t, res.Steps, 1)
	assert.Equal(t, StepQueryHead, res.Steps[0].Step)
	assert.True(t, res.Steps[0].OK)
}

func TestExecutePromoteWaitlist_PromotesHead(t *testing.T) {
	w := &mockWaitlistStore{head: waitingHead(), won: true}
	n := &mockNotificationStore{}
	e := &mockEmailSender{}

	res, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), promoteDeps(w, n, e))
	require.NoError(t, err)

	assert.True(t, res.Promoted)
	assert.Equal(t, "w1", res.EntryID)
	assert.Equal(t, "m1", res.MemberID)
	assert.True(t, res.NotificationSent)
	assert.True(t, res.EmailSent)
	require.NotNil(t, res.ExpiresAt)
	assert.True(t, res.ExpiresAt.Equal(fixedNow.Add(24*time.Hour)))

	require.Len(t, w.marked, 1)
	assert.Equal(t, "w1", w.marked[0].EntryID)
	assert.True(t, w.marked[0].NotifiedAt.Equal(fixedNow))
	assert.True(t, w.marked[0].ExpiresAt.Equal(*res.ExpiresAt))

	require.Len(t, n.saved, 1)
	assert.Equal(t, notification.TypeWaitlistSpotAvailable, n.saved[0].Type)
	assert.Equal(t, "m1", n.saved[0].UserID)
	assert.Equal(t, "s1", n.saved[0].RelatedID)
	assert.Contains(t, n.saved[0].Title, "Spin")

	require.Len(t, e.attempts, 1)
	sent := e.attempts[0]
	assert.Equal(t, "aroha@example.com", sent.To)
	assert.Equal(t, "Gymdesk", sent.FromName)
	assert.Contains(t, sent.Subject, "Spin")
	assert.Contains(t, sent.HTML, "<strong>Spin</strong>")
	assert.Contains(t, sent.HTML, "Monday 18:00 - 18:45")
	assert.Contains(t, sent.HTML, "Tuesday 20 October 2026, 09:00 UTC")
	assert.Contains(t, sent.Text, "**Spin**")
	assert.Equal(t, notification.TypeWaitlistSpotAvailable, sent.Category)

	var steps []string
	for _, s := range res.Steps {
		steps = append(steps, s.Step)
		assert.True(t, s.OK, s.Step)
	}
	assert.Equal(t, []string{StepQueryHead, StepMarkNotified, StepInsertNotice, StepSendEmail}, steps)
}

func TestExecutePromoteWaitlist_WallClockDeadline(t *testing.T) {
	w := &mockWaitlistStore{head: waitingHead(), won: true}
	deps := promoteDeps(w, &mockNotificationStore{}, &mockEmailSender{})
	deps.Now = time.Now

	res, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), deps)
	require.NoError(t, err)
	require.NotNil(t, res.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *res.ExpiresAt, 5*time.Second)
}

func TestExecutePromoteWaitlist_EmailFailureStillPromoted(t *testing.T) {
	w := &mockWaitlistStore{head: waitingHead(), won: true}
	n := &mockNotificationStore{}
	e := &mockEmailSender{failed: map[string]bool{"aroha@example.com": true}}

	res, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), promoteDeps(w, n, e))
	require.NoError(t, err)

	assert.True(t, res.Promoted)
	assert.True(t, res.NotificationSent)
	assert.False(t, res.EmailSent)
	assert.Len(t, e.attempts, 1)
	last := res.Steps[len(res.Steps)-1]
	assert.Equal(t, StepSendEmail, last.Step)
	assert.False(t, last.OK)
	assert.NotEmpty(t, last.Error)
}

func TestExecutePromoteWaitlist_NotificationFailureStillEmails(t *testing.T) {
	w := &mockWaitlistStore{head: waitingHead(), won: true}
	n := &mockNotificationStore{failed: map[string]bool{"m1": true}}
	e := &mockEmailSender{}

	res, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), promoteDeps(w, n, e))
	require.NoError(t, err)

	assert.True(t, res.Promoted)
	assert.False(t, res.NotificationSent)
	assert.True(t, res.EmailSent)
}

func TestExecutePromoteWaitlist_MissingContactCountsAsEmailFailure(t *testing.T) {
	head := waitingHead()
	head.Member = nil
	w := &mockWaitlistStore{head: head, won: true}
	e := &mockEmailSender{}

	res, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), promoteDeps(w, &mockNotificationStore{}, e))
	require.NoError(t, err)

	assert.True(t, res.Promoted)
	assert.True(t, res.NotificationSent)
	assert.False(t, res.EmailSent)
}

func TestExecutePromoteWaitlist_LostRace(t *testing.T) {
	w := &mockWaitlistStore{head: waitingHead(), won: false}
	n := &mockNotificationStore{}
	e := &mockEmailSender{}

	res, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), promoteDeps(w, n, e))
	require.NoError(t, err, "losing the race is not an error")

	assert.False(t, res.Promoted)
	assert.Len(t, w.marked, 1)
	assert.Empty(t, n.saved)
	assert.Empty(t, e.attempts)
}

func TestExecutePromoteWaitlist_RequiredStepFailures(t *testing.T) {
	tests := []struct {
		name  string
		store *mockWaitlistStore
		step  string
	}{
		{"head query fails", &mockWaitlistStore{headErr: errMockFailure}, StepQueryHead},
		{"conditional write fails", &mockWaitlistStore{head: waitingHead(), markErr: errMockFailure}, StepMarkNotified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &mockEmailSender{}
			res, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), promoteDeps(tt.store, &mockNotificationStore{}, e))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errMockFailure))
			assert.False(t, res.Promoted)
			assert.Empty(t, e.attempts)
			last := res.Steps[len(res.Steps)-1]
			assert.Equal(t, tt.step, last.Step)
			assert.False(t, last.OK)
		})
	}
}

func TestExecutePromoteWaitlist_RequiresScheduleID(t *testing.T) {
	_, err := ExecutePromoteWaitlist(context.Background(), PromoteWaitlistInput{}, promoteDeps(&mockWaitlistStore{}, &mockNotificationStore{}, &mockEmailSender{}))
	assert.ErrorIs(t, err, ErrScheduleIDRequired)
}

func TestRenderSpotAvailable_UnknownClassName(t *testing.T) {
	msg, err := renderSpotAvailable("there", ClassOccurrence{StartTime: "07:30"}, fixedNow)
	require.NoError(t, err)
	assert.Contains(t, msg.Title, "your class")
	assert.True(t, strings.HasPrefix(msg.HTML, "<p>Hi there,</p>"))
	assert.True(t, strings.HasPrefix(msg.Text, "Hi there,"))
	assert.Contains(t, msg.Text, "**your class**")
	assert.Equal(t, notification.TypeWaitlistSpotAvailable, msg.Category)
}

func TestClassOccurrence_When(t *testing.T) {
	tests := []struct {
		name string
		occ  ClassOccurrence
		want string
	}{
		{"day and range", ClassOccurrence{DayOfWeek: "monday", StartTime: "18:00", EndTime: "19:00"}, "Monday 18:00 - 19:00"},
		{"multibyte first rune", ClassOccurrence{DayOfWeek: "élundi", StartTime: "07:30"}, "Élundi 07:30"},
		{"date prefix", ClassOccurrence{Date: "2026-10-19", DayOfWeek: "monday", StartTime: "06:00"}, "2026-10-19 Monday 06:00"},
		{"start only", ClassOccurrence{StartTime: "06:00"}, "06:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.occ.When())
		})
	}
}

type mockStepRecorder struct {
	steps []string
	fails int
}

// RecordStep collects the step name.
// PRE: none
// POST: step appended; fails incremented when !ok
func (m *mockStepRecorder) RecordStep(step string, _ time.Duration, ok bool) {
	m.steps = append(m.steps, step)
	if !ok {
		m.fails++
	}
}

func TestExecutePromoteWaitlist_RecordsStepTimings(t *testing.T) {
	rec := &mockStepRecorder{}
	w := &mockWaitlistStore{head: waitingHead(), won: true}
	deps := promoteDeps(w, &mockNotificationStore{}, &mockEmailSender{failed: map[string]bool{"aroha@example.com": true}})
	deps.Perf = rec

	_, err := ExecutePromoteWaitlist(context.Background(), promoteInput(), deps)
	require.NoError(t, err)
	assert.Equal(t, []string{StepQueryHead, StepMarkNotified, StepInsertNotice, StepSendEmail}, rec.steps)
	assert.Equal(t, 1, rec.fails)
}

func TestExecutePromoteWaitlist_ConcurrentInvocationsPromoteOnce(t *testing.T) {
	s := newSeededStores(t)
	ctx := context.Background()
	_, err := ExecuteSeedDemo(ctx, s.deps)
	require.NoError(t, err)

	pilates := demoID("schedule", "Pilates", "friday", "18:00")
	head, err := s.waitlist.GetHead(ctx, pilates)
	require.NoError(t, err)

	const callers = 6
	var wg sync.WaitGroup
	results := make([]PromoteWaitlistResult, callers)
	errs := make([]error, callers)
	ids := sequentialIDs()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ExecutePromoteWaitlist(ctx, PromoteWaitlistInput{
				ScheduleID: pilates, ClassName: "Pilates", DayOfWeek: "friday", StartTime: "18:00", EndTime: "19:00",
			}, PromoteWaitlistDeps{
				WaitlistStore:     s.waitlist,
				NotificationStore: s.notifications,
				EmailSender:       &lockedSender{},
				From:              Sender{Name: "Gymdesk", Address: "hello@gymdesk.example"},
				GenerateID:        ids,
				Now:               fixedClock,
			})
		}(i)
	}
	wg.Wait()

	promoted := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Promoted {
			promoted++
			assert.Equal(t, head.ID, results[i].EntryID)
		}
	}
	assert.Equal(t, 1, promoted)

	got, err := s.waitlist.GetByID(ctx, head.ID)
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatusNotified, got.Status)

	notes, err := s.notifications.ListByUserID(ctx, head.MemberID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

// lockedSender is a goroutine-safe sender that always succeeds.
type lockedSender struct {
	mu    sync.Mutex
	count int
}

// Send counts the call.
// PRE: none
// POST: count incremented
func (l *lockedSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	return emailAdapter.SendResult{MessageID: req.To}, nil
}
