package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending             Status = "pending"
	StatusAccepted            Status = "accepted"
	StatusDeclined            Status = "declined"
	StatusCancelled           Status = "cancelled"
	StatusRescheduleRequested Status = "reschedule_requested"
	StatusCompleted           Status = "completed"
	StatusExpired             Status = "expired"
)

// IsTerminal reports whether no further transition may leave the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDeclined, StatusCancelled, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Actor identifies which side of a booking performs an operation.
type Actor string

const (
	ActorLearner  Actor = "learner"
	ActorProvider Actor = "provider"
	// ActorSystem is used by the background sweep for expire/complete.
	ActorSystem Actor = "system"
)

// Booking is an immutable snapshot of a session booking. Transition
// methods return a new value; persistence applies them with a
// compare-and-swap on the current status.
type Booking struct {
	ID         uuid.UUID
	LearnerID  uuid.UUID
	ProviderID uuid.UUID
	SkillID    uuid.UUID
	Status     Status

	// The last confirmed slot, in the provider's local calendar.
	RequestedDate   time.Time // date component only
	RequestedTime   TimeOfDay
	DurationMinutes int

	// Populated only while Status == StatusRescheduleRequested.
	ProposedDate *time.Time
	ProposedTime *TimeOfDay
	ProposedBy   *Actor

	CreditsCost int

	// Resolved instants of the confirmed slot in the provider's
	// timezone, denormalized at write time so the sweep and the cancel
	// cutoff never need to re-resolve timezones per row.
	StartsAt time.Time
	EndsAt   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleOf maps a caller id to its side of the booking.
func (b Booking) RoleOf(actorID uuid.UUID) (Actor, bool) {
	switch actorID {
	case b.LearnerID:
		return ActorLearner, true
	case b.ProviderID:
		return ActorProvider, true
	}
	return "", false
}

// SlotRange is a contiguous bookable interval within one day.
type SlotRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// DaySchedule is one weekday's declared availability.
type DaySchedule struct {
	Enabled bool        `json:"enabled"`
	Slots   []SlotRange `json:"slots"`
}

// WeeklySchedule maps lowercase weekday names ("monday" .. "sunday")
// to their schedules. Missing days are treated as disabled.
type WeeklySchedule map[string]DaySchedule

// Day returns the schedule for the given weekday.
func (ws WeeklySchedule) Day(weekday time.Weekday) DaySchedule {
	return ws[strings.ToLower(weekday.String())]
}

// BlockedDate marks one calendar date as unbookable regardless of the
// weekly schedule.
type BlockedDate struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Reason string `json:"reason,omitempty"`
}

// Defaults applied when a provider creates a profile without
// overriding the policy fields.
const (
	DefaultBufferMinutes     = 0
	DefaultMinAdvanceHours   = 1
	DefaultMaxAdvanceDays    = 60
	DefaultTimezone          = "UTC"
	DefaultMaxSessionsPerDay = 0 // 0 = no cap
)

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

// AvailabilityProfile is a provider's declared bookable windows and
// booking policy. One profile per provider; the weekly schedule is
// normalized through MergeDaySlots before every write.
type AvailabilityProfile struct {
	ProviderID        uuid.UUID
	Weekly            WeeklySchedule
	Timezone          string
	BufferMinutes     int
	MinAdvanceHours   int
	MaxAdvanceDays    int
	AutoAccept        bool
	BlockedDates      []BlockedDate
	MaxSessionsPerDay int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Location resolves the profile's IANA timezone.
func (p *AvailabilityProfile) Location() (*time.Location, error) {
	tz := p.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	return time.LoadLocation(tz)
}

// IsBlocked reports whether the given calendar date (YYYY-MM-DD) is on
// the profile's blocked list.
func (p *AvailabilityProfile) IsBlocked(date string) bool {
	for _, bd := range p.BlockedDates {
		if bd.Date == date {
			return true
		}
	}
	return false
}

type EventLog struct {
	ID        int64
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
