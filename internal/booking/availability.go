package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProfileInput carries the full set of profile fields for creation.
// Zero policy values fall back to the package defaults.
type ProfileInput struct {
	Weekly            WeeklySchedule
	Timezone          string
	BufferMinutes     int
	MinAdvanceHours   int
	MaxAdvanceDays    int
	AutoAccept        bool
	BlockedDates      []BlockedDate
	MaxSessionsPerDay int
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Weekly            *WeeklySchedule
	Timezone          *string
	BufferMinutes     *int
	MinAdvanceHours   *int
	MaxAdvanceDays    *int
	AutoAccept        *bool
	BlockedDates      *[]BlockedDate
	MaxSessionsPerDay *int
}

// GetAvailability retrieves a provider's profile
func (s *Service) GetAvailability(ctx context.Context, providerID uuid.UUID) (*AvailabilityProfile, error) {
	p, err := s.repo.GetProfile(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get availability profile: %w", err)
	}
	return p, nil
}

// CreateAvailability creates a provider's profile on first write. The
// weekly schedule is normalized through MergeDaySlots per day before
// storage, so the stored slots never overlap or touch.
func (s *Service) CreateAvailability(ctx context.Context, providerID uuid.UUID, in ProfileInput) (*AvailabilityProfile, error) {
	if providerID == uuid.Nil {
		return nil, validationErr(ReasonMissingField, "provider id is required")
	}

	profile := AvailabilityProfile{
		ProviderID:        providerID,
		Weekly:            in.Weekly,
		Timezone:          in.Timezone,
		BufferMinutes:     in.BufferMinutes,
		MinAdvanceHours:   in.MinAdvanceHours,
		MaxAdvanceDays:    in.MaxAdvanceDays,
		AutoAccept:        in.AutoAccept,
		BlockedDates:      in.BlockedDates,
		MaxSessionsPerDay: in.MaxSessionsPerDay,
	}
	applyProfileDefaults(&profile)

	if err := validateProfile(&profile); err != nil {
		return nil, err
	}
	profile.Weekly = NormalizeWeekly(profile.Weekly)

	created, err := s.repo.CreateProfile(ctx, profile)
	if err != nil {
		if errors.Is(err, ErrProfileExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create availability profile: %w", err)
	}

	s.logEvent(ctx, uuid.Nil, EventAvailabilityChanged, map[string]any{
		"provider_id": providerID.String(),
		"action":      "created",
	})

	return created, nil
}

// UpdateAvailability applies a partial update to an existing profile.
// Updating a provider that has no profile is a not-found failure, never
// an implicit create; the HTTP layer composes create-vs-update by
// looking the profile up first.
func (s *Service) UpdateAvailability(ctx context.Context, providerID uuid.UUID, patch ProfileUpdate) (*AvailabilityProfile, error) {
	profile, err := s.repo.GetProfile(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load availability profile: %w", err)
	}

	if patch.Weekly != nil {
		profile.Weekly = *patch.Weekly
	}
	if patch.Timezone != nil {
		profile.Timezone = *patch.Timezone
	}
	if patch.BufferMinutes != nil {
		profile.BufferMinutes = *patch.BufferMinutes
	}
	if patch.MinAdvanceHours != nil {
		profile.MinAdvanceHours = *patch.MinAdvanceHours
	}
	if patch.MaxAdvanceDays != nil {
		profile.MaxAdvanceDays = *patch.MaxAdvanceDays
	}
	if patch.AutoAccept != nil {
		profile.AutoAccept = *patch.AutoAccept
	}
	if patch.BlockedDates != nil {
		profile.BlockedDates = *patch.BlockedDates
	}
	if patch.MaxSessionsPerDay != nil {
		profile.MaxSessionsPerDay = *patch.MaxSessionsPerDay
	}

	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	profile.Weekly = NormalizeWeekly(profile.Weekly)

	updated, err := s.repo.UpdateProfile(ctx, *profile)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update availability profile: %w", err)
	}

	s.logEvent(ctx, uuid.Nil, EventAvailabilityChanged, map[string]any{
		"provider_id": providerID.String(),
		"action":      "updated",
	})

	return updated, nil
}

func applyProfileDefaults(p *AvailabilityProfile) {
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if p.MinAdvanceHours == 0 {
		p.MinAdvanceHours = DefaultMinAdvanceHours
	}
	if p.MaxAdvanceDays == 0 {
		p.MaxAdvanceDays = DefaultMaxAdvanceDays
	}
	if p.Weekly == nil {
		p.Weekly = WeeklySchedule{}
	}
}

var weekdayNames = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func validateProfile(p *AvailabilityProfile) error {
	if _, err := p.Location(); err != nil {
		return validationErr(ReasonInvalidFormat, "timezone %q is not a valid IANA zone", p.Timezone)
	}

	for day := range p.Weekly {
		if !weekdayNames[day] {
			return validationErr(ReasonInvalidFormat, "%q is not a weekday name", day)
		}
	}

	if p.BufferMinutes < 0 {
		return validationErr(ReasonInvalidFormat, "buffer minutes must not be negative")
	}
	if p.MinAdvanceHours < 0 {
		return validationErr(ReasonInvalidFormat, "min advance hours must not be negative")
	}
	if p.MaxAdvanceDays < 0 {
		return validationErr(ReasonInvalidFormat, "max advance days must not be negative")
	}
	if p.MaxSessionsPerDay < 0 {
		return validationErr(ReasonInvalidFormat, "max sessions per day must not be negative")
	}

	for _, bd := range p.BlockedDates {
		if _, err := time.Parse(DateFormat, bd.Date); err != nil {
			return validationErr(ReasonInvalidFormat, "blocked date %q is not a valid YYYY-MM-DD date", bd.Date)
		}
	}

	return nil
}
