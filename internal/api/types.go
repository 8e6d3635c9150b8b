package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/session-scheduling/internal/booking"
)

type CreateBookingRequest struct {
	LearnerID     string  `json:"learner_id"`
	SkillID       string  `json:"skill_id"`
	ProviderID    string  `json:"provider_id"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	DurationHours float64 `json:"duration_hours"`
}

type ProviderActionRequest struct {
	ProviderID string `json:"provider_id"`
}

type ActorActionRequest struct {
	ActorID string `json:"actor_id"`
}

type RescheduleRequest struct {
	ActorID string `json:"actor_id"`
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

type BookingResponse struct {
	ID            uuid.UUID `json:"id"`
	LearnerID     uuid.UUID `json:"learner_id"`
	ProviderID    uuid.UUID `json:"provider_id"`
	SkillID       uuid.UUID `json:"skill_id"`
	Status        string    `json:"status"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	DurationHours float64   `json:"duration_hours"`
	ProposedDate  *string   `json:"proposed_date,omitempty"`
	ProposedTime  *string   `json:"proposed_time,omitempty"`
	ProposedBy    *string   `json:"proposed_by,omitempty"`
	CreditsCost   int       `json:"credits_cost"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:            b.ID,
		LearnerID:     b.LearnerID,
		ProviderID:    b.ProviderID,
		SkillID:       b.SkillID,
		Status:        string(b.Status),
		Date:          b.RequestedDate.Format(booking.DateFormat),
		Time:          b.RequestedTime.String(),
		DurationHours: float64(b.DurationMinutes) / 60,
		CreditsCost:   b.CreditsCost,
		StartsAt:      b.StartsAt,
		EndsAt:        b.EndsAt,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}

	if b.ProposedDate != nil {
		d := b.ProposedDate.Format(booking.DateFormat)
		resp.ProposedDate = &d
	}
	if b.ProposedTime != nil {
		t := b.ProposedTime.String()
		resp.ProposedTime = &t
	}
	if b.ProposedBy != nil {
		by := string(*b.ProposedBy)
		resp.ProposedBy = &by
	}

	return resp
}

// AvailabilityRequest serves both profile creation (POST) and partial
// update (PUT); on create, absent fields fall back to domain defaults.
type AvailabilityRequest struct {
	WeeklySchedule    *booking.WeeklySchedule `json:"weekly_schedule"`
	Timezone          *string                 `json:"timezone"`
	BufferMinutes     *int                    `json:"buffer_minutes"`
	MinAdvanceHours   *int                    `json:"min_advance_booking_hours"`
	MaxAdvanceDays    *int                    `json:"max_advance_booking_days"`
	AutoAccept        *bool                   `json:"auto_accept"`
	BlockedDates      *[]booking.BlockedDate  `json:"blocked_dates"`
	MaxSessionsPerDay *int                    `json:"max_sessions_per_day"`
}

type AvailabilityResponse struct {
	ProviderID        uuid.UUID              `json:"provider_id"`
	WeeklySchedule    booking.WeeklySchedule `json:"weekly_schedule"`
	Timezone          string                 `json:"timezone"`
	BufferMinutes     int                    `json:"buffer_minutes"`
	MinAdvanceHours   int                    `json:"min_advance_booking_hours"`
	MaxAdvanceDays    int                    `json:"max_advance_booking_days"`
	AutoAccept        bool                   `json:"auto_accept"`
	BlockedDates      []booking.BlockedDate  `json:"blocked_dates"`
	MaxSessionsPerDay int                    `json:"max_sessions_per_day"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func toAvailabilityResponse(p *booking.AvailabilityProfile) AvailabilityResponse {
	blocked := p.BlockedDates
	if blocked == nil {
		blocked = []booking.BlockedDate{}
	}
	return AvailabilityResponse{
		ProviderID:        p.ProviderID,
		WeeklySchedule:    p.Weekly,
		Timezone:          p.Timezone,
		BufferMinutes:     p.BufferMinutes,
		MinAdvanceHours:   p.MinAdvanceHours,
		MaxAdvanceDays:    p.MaxAdvanceDays,
		AutoAccept:        p.AutoAccept,
		BlockedDates:      blocked,
		MaxSessionsPerDay: p.MaxSessionsPerDay,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
