package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/session-scheduling/internal/config"
	redisclient "github.com/skillswap/session-scheduling/internal/redis"
)

const (
	EventBookingRequested    = "BOOKING_REQUESTED"
	EventBookingAccepted     = "BOOKING_ACCEPTED"
	EventBookingDeclined     = "BOOKING_DECLINED"
	EventBookingCancelled    = "BOOKING_CANCELLED"
	EventRescheduleRequested = "RESCHEDULE_REQUESTED"
	EventRescheduleAccepted  = "RESCHEDULE_ACCEPTED"
	EventRescheduleDeclined  = "RESCHEDULE_DECLINED"
	EventBookingCompleted    = "BOOKING_COMPLETED"
	EventBookingExpired      = "BOOKING_EXPIRED"
	EventAvailabilityChanged = "AVAILABILITY_CHANGED"
)

// Guard names for conflicts that arise outside the transition table.
const (
	GuardDayCapacity      = "day_capacity_reached"
	GuardSlotConflict     = "slot_conflict"
	GuardSlotBusy         = "slot_being_booked"
	GuardCancelWindow     = "cancel_window_closed"
	GuardConcurrentUpdate = "concurrent_update"
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier
	ledger   CreditLedger
	catalog  SkillCatalog
	cfg      config.Config
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the service's time source, used by tests to pin
// the advance-window and cutoff checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, ledger CreditLedger, catalog SkillCatalog, cfg config.Config, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		ledger:   ledger,
		catalog:  catalog,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking validates a learner's session request against the
// provider's availability and creates the booking in pending state, or
// directly in accepted when the profile auto-accepts. The capacity and
// overlap checks run inside a distributed per provider/day lock so two
// learners racing for the same window cannot both pass them; the
// partial unique index in the repository backstops the exact-slot case.
func (s *Service) CreateBooking(ctx context.Context, req SessionRequest) (*Booking, error) {
	profile, err := s.repo.GetProfile(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load availability profile: %w", err)
	}

	now := s.now()
	start, err := ValidateSessionRequest(req, profile, now)
	if err != nil {
		return nil, err
	}
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	rate, err := s.catalog.SessionRate(ctx, req.SkillID)
	if err != nil {
		return nil, fmt.Errorf("resolve session rate: %w", err)
	}
	credits := rate * req.DurationMinutes / 60

	status := StatusPending
	if profile.AutoAccept {
		status = StatusAccepted
	}

	// Validated above, cannot fail here.
	day, _ := time.ParseInLocation(DateFormat, req.Date, time.UTC)
	startTime, _ := ParseTimeOfDay(req.Time)

	var created *Booking

	err = s.locker.WithProviderDayLock(ctx, req.ProviderID, req.Date, func(lockCtx context.Context) error {
		existing, err := s.repo.ListActiveForProviderDate(lockCtx, req.ProviderID, day)
		if err != nil {
			return fmt.Errorf("list active bookings: %w", err)
		}

		if profile.MaxSessionsPerDay > 0 && len(existing) >= profile.MaxSessionsPerDay {
			return conflictErr(GuardDayCapacity, "provider already has %d sessions on %s", len(existing), req.Date)
		}

		if clashesWithExisting(startTime, req.DurationMinutes, profile.BufferMinutes, existing) {
			return conflictErr(GuardSlotConflict, "slot %s on %s collides with an existing session", req.Time, req.Date)
		}

		b, err := s.repo.CreateBooking(lockCtx, Booking{
			LearnerID:       req.LearnerID,
			ProviderID:      req.ProviderID,
			SkillID:         req.SkillID,
			Status:          status,
			RequestedDate:   day,
			RequestedTime:   startTime,
			DurationMinutes: req.DurationMinutes,
			CreditsCost:     credits,
			StartsAt:        start,
			EndsAt:          end,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateSlot) {
				return conflictErr(GuardSlotConflict, "provider already has an active booking at %s on %s", req.Time, req.Date)
			}
			return fmt.Errorf("create booking: %w", err)
		}

		created = b
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, conflictErr(GuardSlotBusy, "this provider's calendar is being booked, please retry")
		}
		return nil, err
	}

	if err := s.ledger.Hold(ctx, created.LearnerID, created.ID, created.CreditsCost); err != nil {
		// Settlement is owned by the ledger service; a failed hold is
		// reconciled there, not by rolling back the booking.
		log.Printf("failed to hold %d credits for booking %s: %v", created.CreditsCost, created.ID, err)
	}

	s.logEvent(ctx, created.ID, EventBookingRequested, map[string]any{
		"learner_id":  created.LearnerID.String(),
		"provider_id": created.ProviderID.String(),
		"skill_id":    created.SkillID.String(),
		"starts_at":   created.StartsAt,
		"status":      created.Status,
	})
	s.notifier.BookingChanged(ctx, *created, EventBookingRequested)

	return created, nil
}

// AcceptBooking moves a pending booking to accepted. Provider only.
func (s *Service) AcceptBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*Booking, error) {
	b, _, err := s.loadGuarded(ctx, bookingID, providerID, TransitionAccept)
	if err != nil {
		return nil, err
	}

	updated, err := s.save(ctx, b.withStatus(StatusAccepted, s.now()), b.Status, TransitionAccept)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventBookingAccepted, map[string]any{})
	s.notifier.BookingChanged(ctx, *updated, EventBookingAccepted)

	return updated, nil
}

// DeclineBooking moves a pending booking to declined and releases the
// learner's escrowed credits. Provider only.
func (s *Service) DeclineBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*Booking, error) {
	b, _, err := s.loadGuarded(ctx, bookingID, providerID, TransitionDecline)
	if err != nil {
		return nil, err
	}

	updated, err := s.save(ctx, b.withStatus(StatusDeclined, s.now()), b.Status, TransitionDecline)
	if err != nil {
		return nil, err
	}

	s.releaseCredits(ctx, updated.ID)
	s.logEvent(ctx, updated.ID, EventBookingDeclined, map[string]any{})
	s.notifier.BookingChanged(ctx, *updated, EventBookingDeclined)

	return updated, nil
}

// CancelBooking cancels a pending or accepted booking. Either party may
// cancel, but only while the session start is further away than the
// configured cutoff.
func (s *Service) CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*Booking, error) {
	b, _, err := s.loadGuarded(ctx, bookingID, actorID, TransitionCancel)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !now.Before(b.StartsAt.Add(-s.cfg.CancelCutoff)) {
		return nil, conflictErr(GuardCancelWindow, "session starts at %s, too late to cancel", b.StartsAt.Format(time.RFC3339))
	}

	updated, err := s.save(ctx, b.withStatus(StatusCancelled, now), b.Status, TransitionCancel)
	if err != nil {
		return nil, err
	}

	s.releaseCredits(ctx, updated.ID)
	s.logEvent(ctx, updated.ID, EventBookingCancelled, map[string]any{
		"cancelled_by": actorID.String(),
	})
	s.notifier.BookingChanged(ctx, *updated, EventBookingCancelled)

	return updated, nil
}

// RequestReschedule proposes a new slot for an accepted booking. The
// proposal must itself pass full validation against the provider's
// current profile; the confirmed slot stays untouched until the
// counter-party accepts.
func (s *Service) RequestReschedule(ctx context.Context, bookingID, actorID uuid.UUID, newDate, newTime string) (*Booking, error) {
	b, role, err := s.loadGuarded(ctx, bookingID, actorID, TransitionRequestReschedule)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, b.ProviderID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load availability profile: %w", err)
	}

	now := s.now()
	proposal := SessionRequest{
		LearnerID:       b.LearnerID,
		ProviderID:      b.ProviderID,
		SkillID:         b.SkillID,
		Date:            newDate,
		Time:            newTime,
		DurationMinutes: b.DurationMinutes,
	}
	if _, err := ValidateSessionRequest(proposal, profile, now); err != nil {
		return nil, err
	}

	day, _ := time.ParseInLocation(DateFormat, newDate, time.UTC)
	proposedTime, _ := ParseTimeOfDay(newTime)

	updated, err := s.save(ctx, b.withProposal(day, proposedTime, role, now), b.Status, TransitionRequestReschedule)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventRescheduleRequested, map[string]any{
		"proposed_by":   string(role),
		"proposed_date": newDate,
		"proposed_time": newTime,
	})
	s.notifier.BookingChanged(ctx, *updated, EventRescheduleRequested)

	return updated, nil
}

// AcceptReschedule confirms a pending proposal: the proposed slot
// becomes the booking's confirmed slot. Only the counter-party of the
// proposer may accept.
func (s *Service) AcceptReschedule(ctx context.Context, bookingID, actorID uuid.UUID) (*Booking, error) {
	b, _, err := s.loadGuarded(ctx, bookingID, actorID, TransitionAcceptReschedule)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, b.ProviderID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load availability profile: %w", err)
	}

	loc, err := profile.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve profile timezone: %w", err)
	}

	pd := *b.ProposedDate
	start := time.Date(pd.Year(), pd.Month(), pd.Day(), 0, 0, 0, 0, loc).
		Add(time.Duration(b.ProposedTime.Minutes()) * time.Minute)
	end := start.Add(time.Duration(b.DurationMinutes) * time.Minute)

	updated, err := s.save(ctx, b.withProposalApplied(start, end, s.now()), b.Status, TransitionAcceptReschedule)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventRescheduleAccepted, map[string]any{
		"starts_at": updated.StartsAt,
	})
	s.notifier.BookingChanged(ctx, *updated, EventRescheduleAccepted)

	return updated, nil
}

// DeclineReschedule discards the pending proposal and returns the
// booking to accepted with the prior confirmed slot. Declining a
// reschedule never cancels the booking.
func (s *Service) DeclineReschedule(ctx context.Context, bookingID, actorID uuid.UUID) (*Booking, error) {
	b, _, err := s.loadGuarded(ctx, bookingID, actorID, TransitionDeclineReschedule)
	if err != nil {
		return nil, err
	}

	updated, err := s.save(ctx, b.withProposalDiscarded(s.now()), b.Status, TransitionDeclineReschedule)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventRescheduleDeclined, map[string]any{})
	s.notifier.BookingChanged(ctx, *updated, EventRescheduleDeclined)

	return updated, nil
}

// ExpireStaleBookings is run by the sweep worker: pending bookings
// whose session start has elapsed without a provider response become
// expired. Per-booking failures are logged and retried next cycle.
func (s *Service) ExpireStaleBookings(ctx context.Context) error {
	now := s.now()
	stale, err := s.repo.FindExpiredPending(ctx, now)
	if err != nil {
		return fmt.Errorf("find stale pending bookings: %w", err)
	}

	for _, b := range stale {
		if err := b.Guard(TransitionExpire, ActorSystem); err != nil {
			continue
		}
		updated, err := s.repo.SaveTransition(ctx, b.withStatus(StatusExpired, now), b.Status)
		if err != nil {
			if !errors.Is(err, ErrBookingNotFound) {
				log.Printf("failed to expire booking %s: %v", b.ID, err)
			}
			continue
		}
		s.releaseCredits(ctx, updated.ID)
		s.logEvent(ctx, updated.ID, EventBookingExpired, map[string]any{
			"reason": "no provider response before session start",
		})
		s.notifier.BookingChanged(ctx, *updated, EventBookingExpired)
	}

	return nil
}

// CompleteElapsedBookings is run by the sweep worker: accepted bookings
// whose session end has passed become completed and their escrowed
// credits are captured for the provider.
func (s *Service) CompleteElapsedBookings(ctx context.Context) error {
	now := s.now()
	elapsed, err := s.repo.FindElapsedAccepted(ctx, now)
	if err != nil {
		return fmt.Errorf("find elapsed accepted bookings: %w", err)
	}

	for _, b := range elapsed {
		if err := b.Guard(TransitionComplete, ActorSystem); err != nil {
			continue
		}
		updated, err := s.repo.SaveTransition(ctx, b.withStatus(StatusCompleted, now), b.Status)
		if err != nil {
			if !errors.Is(err, ErrBookingNotFound) {
				log.Printf("failed to complete booking %s: %v", b.ID, err)
			}
			continue
		}
		if err := s.ledger.Capture(ctx, updated.ID); err != nil {
			log.Printf("failed to capture credits for booking %s: %v", updated.ID, err)
		}
		s.logEvent(ctx, updated.ID, EventBookingCompleted, map[string]any{})
		s.notifier.BookingChanged(ctx, *updated, EventBookingCompleted)
	}

	return nil
}

// GetBooking retrieves a booking by ID
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListBookingsByLearner retrieves a learner's bookings, newest first
func (s *Service) ListBookingsByLearner(ctx context.Context, learnerID uuid.UUID, limit, offset int) ([]Booking, error) {
	limit, offset = clampPage(limit, offset)
	bookings, err := s.repo.ListBookingsByLearner(ctx, learnerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bookings by learner: %w", err)
	}
	return bookings, nil
}

// ListBookingsByProvider retrieves a provider's bookings, newest first
func (s *Service) ListBookingsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]Booking, error) {
	limit, offset = clampPage(limit, offset)
	bookings, err := s.repo.ListBookingsByProvider(ctx, providerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bookings by provider: %w", err)
	}
	return bookings, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Internal helpers

// loadGuarded loads the booking, resolves the caller's role and checks
// the transition table. The returned booking is the pre-transition
// snapshot; save applies the transitioned value with a CAS.
func (s *Service) loadGuarded(ctx context.Context, bookingID, actorID uuid.UUID, t Transition) (*Booking, Actor, error) {
	b, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("load booking: %w", err)
	}

	role, _ := b.RoleOf(actorID)
	if err := b.Guard(t, role); err != nil {
		return nil, "", err
	}

	return b, role, nil
}

func (s *Service) save(ctx context.Context, next Booking, from Status, t Transition) (*Booking, error) {
	updated, err := s.repo.SaveTransition(ctx, next, from)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			// The booking existed a moment ago; a concurrent
			// transition won the CAS.
			return nil, conflictErr(GuardConcurrentUpdate, "booking changed concurrently, re-fetch and retry")
		}
		return nil, fmt.Errorf("%s booking: %w", t, err)
	}
	return updated, nil
}

func (s *Service) releaseCredits(ctx context.Context, bookingID uuid.UUID) {
	if err := s.ledger.Release(ctx, bookingID); err != nil {
		log.Printf("failed to release credits for booking %s: %v", bookingID, err)
	}
}

func (s *Service) logEvent(ctx context.Context, bookingID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	var id *uuid.UUID
	if bookingID != uuid.Nil {
		v := bookingID
		id = &v
	}

	ev := EventLog{
		EventType: eventType,
		BookingID: id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for booking %s: %v", eventType, bookingID, err)
	}
}

// clashesWithExisting reports whether the candidate session, padded by
// the provider's buffer on both sides, overlaps any active booking on
// the same day. Boundary touching (back-to-back with zero buffer) does
// not count as a clash.
func clashesWithExisting(start TimeOfDay, durationMinutes, bufferMinutes int, existing []Booking) bool {
	newStart := start.Minutes() - bufferMinutes
	newEnd := start.Minutes() + durationMinutes + bufferMinutes

	for _, b := range existing {
		existingStart := b.RequestedTime.Minutes()
		existingEnd := existingStart + b.DurationMinutes
		if existingStart < newEnd && existingEnd > newStart {
			return true
		}
	}
	return false
}
