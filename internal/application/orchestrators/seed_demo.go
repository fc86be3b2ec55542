package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gymdesk/internal/domain/booking"
	"gymdesk/internal/domain/calendar"
	"gymdesk/internal/domain/classtype"
	"gymdesk/internal/domain/instructor"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/schedule"
	"gymdesk/internal/domain/waitlist"
)

// demoNamespace derives stable IDs so re-seeding upserts the same rows.
var demoNamespace = uuid.MustParse("6f1c2f5e-4b7a-4f0e-9d43-2a9b8c1e7d55")

// DemoSeedDeps holds stores needed for demo data seeding.
type DemoSeedDeps struct {
	ClassTypeStore  demoClassTypeStore
	InstructorStore demoInstructorStore
	ScheduleStore   demoScheduleStore
	MemberStore     demoMemberStore
	BookingStore    demoBookingStore
	WaitlistStore   demoWaitlistStore
	Now             func() time.Time
}

type demoClassTypeStore interface {
	Save(ctx context.Context, c classtype.ClassType) error
}

type demoInstructorStore interface {
	Save(ctx context.Context, i instructor.Instructor) error
}

type demoScheduleStore interface {
	Save(ctx context.Context, s schedule.Schedule) error
}

type demoMemberStore interface {
	Save(ctx context.Context, m member.Member) error
	GetByEmail(ctx context.Context, email string) (member.Member, error)
}

type demoBookingStore interface {
	Save(ctx context.Context, b booking.Booking) error
}

type demoWaitlistStore interface {
	Save(ctx context.Context, e waitlist.Entry) error
}

// DemoSeedResult counts the rows written by a seed run.
type DemoSeedResult struct {
	Skipped   bool
	Schedules int
	Members   int
	Bookings  int
	Waitlist  int
}

type demoSlot struct {
	class      string
	instructor string
	day        string
	start, end string
	capacity   int
	booked     int // members booked into this week's occurrence
	waiting    int
}

var (
	demoClasses = []classtype.ClassType{
		{Name: "Spin", Description: "45 minutes on the bikes."},
		{Name: "HIIT", Description: "High intensity intervals."},
		{Name: "Yoga", Description: "Vinyasa flow, all levels."},
		{Name: "Pilates", Description: "Reformer pilates."},
	}
	demoInstructors = []instructor.Instructor{
		{FirstName: "Mere", LastName: "Tane", Email: "mere@gymdesk.example"},
		{FirstName: "Sam", LastName: "Okafor", Email: "sam@gymdesk.example"},
	}
	demoSlots = []demoSlot{
		{"Spin", "Mere", schedule.Monday, "07:30", "08:15", 10, 6, 0},
		{"HIIT", "Sam", schedule.Monday, "18:00", "18:45", 12, 10, 0},
		{"Yoga", "Mere", schedule.Wednesday, "09:00", "10:00", 15, 4, 0},
		{"Pilates", "Sam", schedule.Friday, "18:00", "19:00", 8, 8, 3},
		{"Spin", "Mere", schedule.Saturday, "09:00", "09:45", 10, 9, 0},
	}
	demoMembers = []string{
		"Aroha Ngata", "Ben Carter", "Chloe Wu", "Dev Patel", "Ella Brown", "Finn Murphy",
		"Grace Lee", "Hemi Walker", "Isla Smith", "Jack Wilson", "Kiri Tau", "Liam Chen",
		"Maya Singh", "Noah Taylor",
	}
)

func demoID(kind string, parts ...string) string {
	return uuid.NewSHA1(demoNamespace, []byte(kind+":"+strings.Join(parts, "/"))).String()
}

func demoEmail(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@demo.gymdesk.example"
}

// ExecuteSeedDemo loads a demo timetable, members, this week's bookings and
// a waitlist on the full class.
// It is idempotent: it skips when the first demo member already exists.
// PRE: Database is migrated
// POST: demo rows exist; a second call writes nothing
func ExecuteSeedDemo(ctx context.Context, deps DemoSeedDeps) (DemoSeedResult, error) {
	if _, err := deps.MemberStore.GetByEmail(ctx, demoEmail(demoMembers[0])); err == nil {
		return DemoSeedResult{Skipped: true}, nil
	}

	var result DemoSeedResult
	now := deps.Now()

	for _, c := range demoClasses {
		c.ID = demoID("class_type", c.Name)
		if err := deps.ClassTypeStore.Save(ctx, c); err != nil {
			return result, fmt.Errorf("seed class type %s: %w", c.Name, err)
		}
	}
	for _, i := range demoInstructors {
		i.ID = demoID("instructor", i.FirstName)
		if err := deps.InstructorStore.Save(ctx, i); err != nil {
			return result, fmt.Errorf("seed instructor %s: %w", i.FirstName, err)
		}
	}

	memberIDs := make([]string, 0, len(demoMembers))
	for _, name := range demoMembers {
		first, last, _ := strings.Cut(name, " ")
		m := member.Member{
			ID:        demoID("member", name),
			FirstName: first,
			LastName:  last,
			Email:     demoEmail(name),
			Status:    member.StatusActive,
		}
		if err := deps.MemberStore.Save(ctx, m); err != nil {
			return result, fmt.Errorf("seed member %s: %w", name, err)
		}
		memberIDs = append(memberIDs, m.ID)
		result.Members++
	}

	week := calendar.WeekDates(now)
	for _, slot := range demoSlots {
		sched := schedule.Schedule{
			ID:           demoID("schedule", slot.class, slot.day, slot.start),
			ClassTypeID:  demoID("class_type", slot.class),
			InstructorID: demoID("instructor", slot.instructor),
			Day:          slot.day,
			StartTime:    slot.start,
			EndTime:      slot.end,
			Capacity:     slot.capacity,
		}
		if err := sched.Validate(); err != nil {
			return result, fmt.Errorf("seed schedule %s: %w", sched.ID, err)
		}
		if err := deps.ScheduleStore.Save(ctx, sched); err != nil {
			return result, fmt.Errorf("seed schedule %s: %w", sched.ID, err)
		}
		result.Schedules++

		date := occurrenceIn(week, slot.day)
		for i := 0; i < slot.booked && i < len(memberIDs); i++ {
			status := booking.StatusConfirmed
			if i%4 == 3 {
				status = booking.StatusPending
			}
			b := booking.Booking{
				ID:          demoID("booking", sched.ID, date, memberIDs[i]),
				MemberID:    memberIDs[i],
				ScheduleID:  sched.ID,
				BookingDate: date,
				Status:      status,
				BookedAt:    now,
				CreatedAt:   now,
			}
			if err := deps.BookingStore.Save(ctx, b); err != nil {
				return result, fmt.Errorf("seed booking %s: %w", b.ID, err)
			}
			result.Bookings++
		}

		for pos := 1; pos <= slot.waiting; pos++ {
			idx := len(memberIDs) - pos
			e := waitlist.Entry{
				ID:         demoID("waitlist", sched.ID, memberIDs[idx]),
				MemberID:   memberIDs[idx],
				ScheduleID: sched.ID,
				Position:   pos,
				Status:     waitlist.StatusWaiting,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := deps.WaitlistStore.Save(ctx, e); err != nil {
				return result, fmt.Errorf("seed waitlist %s: %w", e.ID, err)
			}
			result.Waitlist++
		}
	}

	slog.Info("seed_event", "event", "demo_seeded",
		"schedules", result.Schedules,
		"members", result.Members,
		"bookings", result.Bookings,
		"waitlist", result.Waitlist,
	)
	return result, nil
}

// occurrenceIn returns the date in week falling on day.
func occurrenceIn(week []time.Time, day string) string {
	for _, d := range week {
		if schedule.DayOf(d) == day {
			return d.Format(booking.DateLayout)
		}
	}
	return ""
}
