package calendar

import (
	"math"
	"sort"
	"time"

	"gymdesk/internal/domain/booking"
	"gymdesk/internal/domain/schedule"
)

// CalculateUtilization returns count as a whole percentage of capacity.
// Rounds half up. Not clamped, so overbooked classes read above 100.
// PRE: count >= 0
// POST: Returns 0 when capacity <= 0
func CalculateUtilization(count, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(capacity)))
}

type groupKey struct {
	scheduleID string
	date       string
}

// GroupBookingsBySchedule folds bookings into one ClassWithBookings per
// (schedule, date) pair, ordered by start time. Groups with equal start
// times keep the order in which they first appear in the input.
// INVARIANT: bookings is not mutated
func GroupBookingsBySchedule(bookings []booking.Booking) []ClassWithBookings {
	classes := make([]ClassWithBookings, 0)
	index := make(map[groupKey]int)

	for _, b := range bookings {
		key := groupKey{scheduleID: b.ScheduleID, date: b.Date()}
		i, ok := index[key]
		if !ok {
			i = len(classes)
			index[key] = i
			classes = append(classes, ClassWithBookings{
				ScheduleID: b.ScheduleID,
				Date:       key.date,
				Bookings:   make([]booking.Booking, 0, 1),
			})
		}
		c := &classes[i]
		if b.Schedule != nil && c.StartTime == "" && c.ClassName == "" {
			applyScheduleDetails(c, b.Schedule)
		}
		c.Bookings = append(c.Bookings, b)
		if b.IsActive() {
			c.BookingCount++
		}
	}

	for i := range classes {
		finishClass(&classes[i])
	}

	sort.SliceStable(classes, func(a, b int) bool {
		return classes[a].StartTime < classes[b].StartTime
	})
	return classes
}

func applyScheduleDetails(c *ClassWithBookings, s *booking.ScheduleDetails) {
	c.ClassName = s.ClassName
	c.DayOfWeek = s.DayOfWeek
	c.StartTime = s.StartTime
	c.EndTime = s.EndTime
	c.Capacity = s.Capacity
	c.InstructorName = s.InstructorName
}

// finishClass fills defaults and derives the utilization flags.
func finishClass(c *ClassWithBookings) {
	if c.ClassName == "" {
		c.ClassName = UnknownClassName
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.DayOfWeek == "" {
		if d, err := time.Parse(booking.DateLayout, c.Date); err == nil {
			c.DayOfWeek = schedule.DayOf(d)
		}
	}
	c.UtilizationPercent = CalculateUtilization(c.BookingCount, c.Capacity)
	c.IsFull = c.Capacity > 0 && c.BookingCount >= c.Capacity
	c.IsNearlyFull = !c.IsFull && c.UtilizationPercent >= NearlyFullPercent
}

// CreateDayBookingSummary summarises the bookings that fall on date.
// Bookings for other dates are ignored, so the full range can be passed.
// POST: Always returns a summary; Classes is empty (not nil) when nothing matches
func CreateDayBookingSummary(date string, bookings []booking.Booking) DayBookingSummary {
	day := booking.DatePortion(date)

	onDay := make([]booking.Booking, 0)
	for _, b := range bookings {
		if b.Date() == day {
			onDay = append(onDay, b)
		}
	}

	summary := DayBookingSummary{
		Date:    day,
		Classes: GroupBookingsBySchedule(onDay),
	}
	active := 0
	for _, c := range summary.Classes {
		summary.TotalCapacity += c.Capacity
		summary.TotalBookings += len(c.Bookings)
		active += c.BookingCount
		for _, b := range c.Bookings {
			switch b.Status {
			case booking.StatusConfirmed:
				summary.ConfirmedBookings++
			case booking.StatusPending:
				summary.PendingBookings++
			case booking.StatusCancelled:
				summary.CancelledBookings++
			}
		}
	}
	summary.TotalClasses = len(summary.Classes)
	summary.UtilizationPercent = CalculateUtilization(active, summary.TotalCapacity)
	return summary
}

// CalculateCalendarStats reduces day summaries to range-level statistics.
// POST: Empty input returns zero totals with BusiestDay and MostPopularClass nil
func CalculateCalendarStats(days []DayBookingSummary) CalendarStats {
	var stats CalendarStats
	active := 0
	busiest := -1

	popularity := make(map[string]int)
	var classOrder []string

	for i, day := range days {
		stats.TotalBookings += day.TotalBookings
		stats.TotalCapacity += day.TotalCapacity
		if busiest < 0 || day.TotalBookings > days[busiest].TotalBookings {
			busiest = i
		}
		for j := range day.Classes {
			c := &day.Classes[j]
			active += c.BookingCount
			stats.AvailableSpots += c.AvailableSpots()
			if c.IsFull {
				stats.FullClasses++
			}
			if _, seen := popularity[c.ClassName]; !seen {
				classOrder = append(classOrder, c.ClassName)
			}
			popularity[c.ClassName] += c.BookingCount
		}
	}

	stats.AverageUtilization = CalculateUtilization(active, stats.TotalCapacity)
	if busiest >= 0 {
		date := days[busiest].Date
		stats.BusiestDay = &date
	}
	for _, name := range classOrder {
		if stats.MostPopularClass == nil || popularity[name] > stats.MostPopularClass.Bookings {
			stats.MostPopularClass = &PopularClass{Name: name, Bookings: popularity[name]}
		}
	}
	return stats
}
