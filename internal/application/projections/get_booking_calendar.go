package projections

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	storageBooking "gymdesk/internal/adapters/storage/booking"
	domainBooking "gymdesk/internal/domain/booking"
	"gymdesk/internal/domain/calendar"
)

// BookingCalendarStore defines the row fetch needed by this projection.
type BookingCalendarStore interface {
	ListByDateRange(ctx context.Context, filter storageBooking.Filter) ([]domainBooking.Booking, error)
}

// CalendarCache is an optional read-through cache for computed calendars.
// Get returns the cache generation it read; Set writes under it.
type CalendarCache interface {
	Get(ctx context.Context, key string, dest any) (hit bool, generation int64, err error)
	Set(ctx context.Context, key string, generation int64, value any) error
}

// GetBookingCalendarDeps holds dependencies for the projection.
// Cache may be nil.
type GetBookingCalendarDeps struct {
	BookingStore BookingCalendarStore
	Cache        CalendarCache
}

// GetBookingCalendarQuery selects the view, anchor date and filters.
type GetBookingCalendarQuery struct {
	View          string
	Date          time.Time
	ClassTypeIDs  []string
	InstructorIDs []string
	Statuses      []string
}

// BookingCalendarResult is one rendered calendar view.
type BookingCalendarResult struct {
	View  string                       `json:"view"`
	From  string                       `json:"from"`
	To    string                       `json:"to"`
	Days  []calendar.DayBookingSummary `json:"days"`
	Stats calendar.CalendarStats       `json:"stats"`
}

// QueryGetBookingCalendar builds day summaries for every date in the view and
// the range statistics. A fetch failure is returned as is; the aggregation
// only ever sees a complete row set.
// PRE: query.View is day, week or month
// POST: Days has one entry per date in the range, in order
func QueryGetBookingCalendar(ctx context.Context, query GetBookingCalendarQuery, deps GetBookingCalendarDeps) (BookingCalendarResult, error) {
	dates, err := calendar.DateRange(query.View, query.Date)
	if err != nil {
		return BookingCalendarResult{}, err
	}
	for _, s := range query.Statuses {
		if !isBookingStatus(s) {
			return BookingCalendarResult{}, fmt.Errorf("%w: %q", domainBooking.ErrInvalidStatus, s)
		}
	}

	days := calendar.FormatDates(dates)
	filter := storageBooking.Filter{
		From:          days[0],
		To:            days[len(days)-1],
		ClassTypeIDs:  query.ClassTypeIDs,
		InstructorIDs: query.InstructorIDs,
		Statuses:      query.Statuses,
	}

	key := calendarCacheKey(query.View, filter)
	var (
		generation int64
		cacheable  bool
	)
	if deps.Cache != nil {
		var cached BookingCalendarResult
		hit, gen, err := deps.Cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			slog.Warn("calendar_event", "event", "cache_get_failed", "key", key, "error", err)
		case hit:
			return cached, nil
		default:
			generation, cacheable = gen, true
		}
	}

	bookings, err := deps.BookingStore.ListByDateRange(ctx, filter)
	if err != nil {
		return BookingCalendarResult{}, fmt.Errorf("fetch bookings: %w", err)
	}

	result := BookingCalendarResult{
		View: query.View,
		From: filter.From,
		To:   filter.To,
		Days: make([]calendar.DayBookingSummary, 0, len(days)),
	}
	for _, d := range days {
		result.Days = append(result.Days, calendar.CreateDayBookingSummary(d, bookings))
	}
	result.Stats = calendar.CalculateCalendarStats(result.Days)

	if cacheable {
		if err := deps.Cache.Set(ctx, key, generation, result); err != nil {
			slog.Warn("calendar_event", "event", "cache_set_failed", "key", key, "error", err)
		}
	}
	return result, nil
}

func isBookingStatus(s string) bool {
	for _, v := range domainBooking.ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// calendarCacheKey is stable under filter reordering.
func calendarCacheKey(view string, f storageBooking.Filter) string {
	norm := func(ids []string) string {
		c := append([]string(nil), ids...)
		sort.Strings(c)
		return strings.Join(c, ",")
	}
	return strings.Join([]string{
		view, f.From, f.To,
		"c=" + norm(f.ClassTypeIDs),
		"i=" + norm(f.InstructorIDs),
		"s=" + norm(f.Statuses),
	}, ":")
}
