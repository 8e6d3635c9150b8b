package booking

import (
	"time"

	"github.com/google/uuid"
)

// Reason codes surfaced by ValidateSessionRequest, in check order.
const (
	ReasonMissingField    = "missing_required_field"
	ReasonInvalidFormat   = "invalid_format"
	ReasonInPast          = "requested_time_in_past"
	ReasonTooSoon         = "too_soon"
	ReasonTooFarOut       = "too_far_out"
	ReasonDateBlocked     = "date_blocked"
	ReasonOutsideHours    = "outside_working_hours"
	ReasonCrossesMidnight = "crosses_midnight"
	ReasonSelfBooking     = "self_booking"
)

// SessionRequest is the candidate slot a learner (or a reschedule
// proposal) wants to book, in primitive form.
type SessionRequest struct {
	LearnerID       uuid.UUID
	ProviderID      uuid.UUID
	SkillID         uuid.UUID
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	DurationMinutes int
}

// ValidateSessionRequest runs the fixed check sequence against the
// provider's profile and the current time, failing fast with the first
// violated check. Every check is pure: no repository access, only the
// arguments given. On success it returns the session start resolved as
// an instant in the profile's timezone.
func ValidateSessionRequest(req SessionRequest, profile *AvailabilityProfile, now time.Time) (time.Time, error) {
	// 1. Required fields.
	switch {
	case req.LearnerID == uuid.Nil:
		return time.Time{}, validationErr(ReasonMissingField, "learner id is required")
	case req.SkillID == uuid.Nil:
		return time.Time{}, validationErr(ReasonMissingField, "skill id is required")
	case req.ProviderID == uuid.Nil:
		return time.Time{}, validationErr(ReasonMissingField, "provider id is required")
	case req.Date == "":
		return time.Time{}, validationErr(ReasonMissingField, "date is required")
	case req.Time == "":
		return time.Time{}, validationErr(ReasonMissingField, "time is required")
	}

	// 2. Formats.
	loc, err := profile.Location()
	if err != nil {
		return time.Time{}, validationErr(ReasonInvalidFormat, "profile timezone %q is invalid", profile.Timezone)
	}
	day, err := time.ParseInLocation(DateFormat, req.Date, loc)
	if err != nil {
		return time.Time{}, validationErr(ReasonInvalidFormat, "date %q is not a valid YYYY-MM-DD date", req.Date)
	}
	startTime, err := ParseTimeOfDay(req.Time)
	if err != nil {
		return time.Time{}, validationErr(ReasonInvalidFormat, "%v", err)
	}
	if req.DurationMinutes <= 0 {
		return time.Time{}, validationErr(ReasonInvalidFormat, "duration must be positive")
	}

	start := day.Add(time.Duration(startTime.Minutes()) * time.Minute)

	// 3. Strictly in the future, in the profile's timezone.
	if !start.After(now) {
		return time.Time{}, validationErr(ReasonInPast, "requested slot %s %s is not in the future", req.Date, req.Time)
	}

	// 4. Advance-booking window.
	lead := start.Sub(now)
	if lead < time.Duration(profile.MinAdvanceHours)*time.Hour {
		return time.Time{}, validationErr(ReasonTooSoon, "sessions must be requested at least %d hours in advance", profile.MinAdvanceHours)
	}
	if lead > time.Duration(profile.MaxAdvanceDays)*24*time.Hour {
		return time.Time{}, validationErr(ReasonTooFarOut, "sessions may be requested at most %d days in advance", profile.MaxAdvanceDays)
	}

	// 5. Blocked dates override the weekly schedule.
	if profile.IsBlocked(req.Date) {
		return time.Time{}, validationErr(ReasonDateBlocked, "provider is not available on %s", req.Date)
	}

	// 6. The whole session must fit inside one merged slot.
	sched := profile.Weekly.Day(day.Weekday())
	if !sched.Enabled {
		return time.Time{}, validationErr(ReasonOutsideHours, "provider does not work on %ss", day.Weekday())
	}
	end := startTime.Add(req.DurationMinutes)
	if !fitsWithinSlot(startTime, end, MergeDaySlots(sched.Slots)) {
		return time.Time{}, validationErr(ReasonOutsideHours, "slot %s-%s is outside the provider's working hours", startTime, end)
	}

	// 7. Sessions never straddle two calendar dates.
	if end.Minutes() > minutesPerDay {
		return time.Time{}, validationErr(ReasonCrossesMidnight, "session would cross midnight into the next day")
	}

	// 8. A provider cannot book themselves.
	if req.LearnerID == req.ProviderID {
		return time.Time{}, validationErr(ReasonSelfBooking, "learner and provider must be different users")
	}

	return start, nil
}

// fitsWithinSlot reports whether [start, end] is entirely contained in
// a single merged slot. Spanning two disjoint slots never qualifies.
func fitsWithinSlot(start, end TimeOfDay, merged []SlotRange) bool {
	for _, s := range merged {
		if start >= s.Start && end <= s.End {
			return true
		}
	}
	return false
}
