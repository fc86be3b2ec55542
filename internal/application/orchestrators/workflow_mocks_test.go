package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	emailAdapter "gymdesk/internal/adapters/email"
	waitlistStore "gymdesk/internal/adapters/storage/waitlist"
	"gymdesk/internal/domain/booking"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/notification"
	"gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/waitlist"
)

var errMockFailure = errors.New("mock failure")

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// --- Mock waitlist store ---

type mockWaitlistStore struct {
	head    waitlist.Entry
	headErr error
	won     bool
	markErr error
	marked  []waitlistStore.MarkNotifiedParams
}

// GetHead returns the configured head entry.
// PRE: none
// POST: Returns head or headErr; ErrNoWaitingEntry when head is unset
func (m *mockWaitlistStore) GetHead(_ context.Context, _ string) (waitlist.Entry, error) {
	if m.headErr != nil {
		return waitlist.Entry{}, m.headErr
	}
	if m.head.ID == "" {
		return waitlist.Entry{}, waitlist.ErrNoWaitingEntry
	}
	return m.head, nil
}

// MarkNotified records the params and returns the configured outcome.
// PRE: none
// POST: params appended to marked
func (m *mockWaitlistStore) MarkNotified(_ context.Context, params waitlistStore.MarkNotifiedParams) (bool, error) {
	m.marked = append(m.marked, params)
	return m.won, m.markErr
}

// --- Mock notification store ---

type mockNotificationStore struct {
	saved  []notification.Notification
	failed map[string]bool // user IDs whose insert fails
}

// Save records the notification unless its user is configured to fail.
// PRE: none
// POST: n appended to saved on success
func (m *mockNotificationStore) Save(_ context.Context, n notification.Notification) error {
	if m.failed[n.UserID] {
		return errMockFailure
	}
	m.saved = append(m.saved, n)
	return nil
}

// --- Mock email sender ---

type mockEmailSender struct {
	attempts []emailAdapter.SendRequest
	failed   map[string]bool // recipient addresses whose send fails
}

// Send records the attempt and fails for configured recipients.
// PRE: none
// POST: req appended to attempts
func (m *mockEmailSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	m.attempts = append(m.attempts, req)
	if m.failed[req.To] {
		return emailAdapter.SendResult{}, errMockFailure
	}
	return emailAdapter.SendResult{MessageID: "msg-" + req.To, SentAt: fixedNow}, nil
}

// --- Mock booking store ---

type mockBookingStore struct {
	bookings []booking.Booking
	err      error
	gotDate  string
}

// ListActiveBySchedule returns the configured bookings.
// PRE: none
// POST: Returns bookings or err
func (m *mockBookingStore) ListActiveBySchedule(_ context.Context, _ string, date string) ([]booking.Booking, error) {
	m.gotDate = date
	return m.bookings, m.err
}

// --- Mock cache ---

type mockInvalidator struct {
	calls int
	err   error
}

// Invalidate counts calls.
// PRE: none
// POST: calls incremented
func (m *mockInvalidator) Invalidate(_ context.Context) error {
	m.calls++
	return m.err
}

// --- Mock outbox store ---

type mockOutboxStore struct {
	mu        sync.Mutex
	entries   []outbox.Entry
	saveErr   error
	listErr   error
	returnAll bool // hand back entries that are not yet due
}

// Save upserts by ID.
// PRE: none
// POST: entry stored unless saveErr is set
func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	for i := range m.entries {
		if m.entries[i].ID == e.ID {
			m.entries[i] = e
			return nil
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

// ListDue returns due pending and retrying entries in insertion order.
// PRE: limit > 0
// POST: at most limit entries returned; with returnAll, due is not checked
func (m *mockOutboxStore) ListDue(_ context.Context, now time.Time, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.Status != outbox.StatusPending && e.Status != outbox.StatusRetrying {
			continue
		}
		if (m.returnAll || e.Due(now)) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockOutboxStore) get(id string) outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e
		}
	}
	return outbox.Entry{}
}

func contact(first, email string) *member.Contact {
	return &member.Contact{FirstName: first, LastName: "Test", Email: email}
}
