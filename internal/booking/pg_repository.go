package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// activeSlotConstraint is the partial unique index guarding
// (provider_id, requested_date, requested_time) for non-terminal
// bookings. See migrations/001_init.sql.
const activeSlotConstraint = "bookings_provider_active_slot_key"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const bookingColumns = `
	id, learner_id, provider_id, skill_id, status,
	requested_date, requested_time, duration_minutes,
	proposed_date, proposed_time, proposed_by,
	credits_cost, starts_at, ends_at, created_at, updated_at
`

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b            Booking
		reqTime      string
		proposedTime *string
		proposedBy   *string
	)

	err := row.Scan(
		&b.ID,
		&b.LearnerID,
		&b.ProviderID,
		&b.SkillID,
		&b.Status,
		&b.RequestedDate,
		&reqTime,
		&b.DurationMinutes,
		&b.ProposedDate,
		&proposedTime,
		&proposedBy,
		&b.CreditsCost,
		&b.StartsAt,
		&b.EndsAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if b.RequestedTime, err = ParseTimeOfDay(reqTime); err != nil {
		return nil, fmt.Errorf("stored requested_time: %w", err)
	}
	if proposedTime != nil {
		t, err := ParseTimeOfDay(*proposedTime)
		if err != nil {
			return nil, fmt.Errorf("stored proposed_time: %w", err)
		}
		b.ProposedTime = &t
	}
	if proposedBy != nil {
		a := Actor(*proposedBy)
		b.ProposedBy = &a
	}

	return &b, nil
}

func scanProfile(row pgx.Row) (*AvailabilityProfile, error) {
	var (
		p       AvailabilityProfile
		weekly  []byte
		blocked []byte
	)

	err := row.Scan(
		&p.ProviderID,
		&weekly,
		&p.Timezone,
		&p.BufferMinutes,
		&p.MinAdvanceHours,
		&p.MaxAdvanceDays,
		&p.AutoAccept,
		&blocked,
		&p.MaxSessionsPerDay,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(weekly, &p.Weekly); err != nil {
		return nil, fmt.Errorf("stored weekly schedule: %w", err)
	}
	if len(blocked) > 0 {
		if err := json.Unmarshal(blocked, &p.BlockedDates); err != nil {
			return nil, fmt.Errorf("stored blocked dates: %w", err)
		}
	}

	return &p, nil
}

func timeOfDayPtr(t *TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}

func actorPtr(a *Actor) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

// Interface methods

func (r *PgRepository) CreateBooking(ctx context.Context, b Booking) (*Booking, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (
			id, learner_id, provider_id, skill_id, status,
			requested_date, requested_time, duration_minutes,
			credits_cost, starts_at, ends_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+bookingColumns,
		b.ID, b.LearnerID, b.ProviderID, b.SkillID, b.Status,
		b.RequestedDate, b.RequestedTime.String(), b.DurationMinutes,
		b.CreditsCost, b.StartsAt, b.EndsAt,
	)

	created, err := scanBooking(row)
	if err != nil {
		if isUniqueViolation(err, activeSlotConstraint) {
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}
	return created, nil
}

// SaveTransition applies a transitioned booking value with a
// compare-and-swap on the prior status. Zero matched rows means the
// booking vanished or a concurrent transition won; both surface as
// ErrBookingNotFound for the service to classify.
func (r *PgRepository) SaveTransition(ctx context.Context, next Booking, from Status) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    requested_date = $3,
		    requested_time = $4,
		    proposed_date = $5,
		    proposed_time = $6,
		    proposed_by = $7,
		    starts_at = $8,
		    ends_at = $9,
		    updated_at = now()
		WHERE id = $1
		  AND status = $10
		RETURNING `+bookingColumns,
		next.ID, next.Status,
		next.RequestedDate, next.RequestedTime.String(),
		next.ProposedDate, timeOfDayPtr(next.ProposedTime), actorPtr(next.ProposedBy),
		next.StartsAt, next.EndsAt,
		from,
	)
	return scanBooking(row)
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) ListBookingsByLearner(ctx context.Context, learnerID uuid.UUID, limit, offset int) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE learner_id = $1
		ORDER BY starts_at DESC
		LIMIT $2 OFFSET $3
	`, learnerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PgRepository) ListBookingsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
		ORDER BY starts_at DESC
		LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PgRepository) ListActiveForProviderDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
		  AND requested_date = $2
		  AND status IN ('pending', 'accepted', 'reschedule_requested')
		ORDER BY requested_time
	`, providerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PgRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'pending'
		  AND starts_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PgRepository) FindElapsedAccepted(ctx context.Context, now time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'accepted'
		  AND ends_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

const profileColumns = `
	provider_id, weekly_schedule, timezone, buffer_minutes,
	min_advance_hours, max_advance_days, auto_accept,
	blocked_dates, max_sessions_per_day, created_at, updated_at
`

func (r *PgRepository) GetProfile(ctx context.Context, providerID uuid.UUID) (*AvailabilityProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM availability_profiles
		WHERE provider_id = $1
	`, providerID)
	return scanProfile(row)
}

func (r *PgRepository) CreateProfile(ctx context.Context, p AvailabilityProfile) (*AvailabilityProfile, error) {
	weekly, blocked, err := marshalProfileJSON(p)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_profiles (
			provider_id, weekly_schedule, timezone, buffer_minutes,
			min_advance_hours, max_advance_days, auto_accept,
			blocked_dates, max_sessions_per_day, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+profileColumns,
		p.ProviderID, weekly, p.Timezone, p.BufferMinutes,
		p.MinAdvanceHours, p.MaxAdvanceDays, p.AutoAccept,
		blocked, p.MaxSessionsPerDay,
	)

	created, err := scanProfile(row)
	if err != nil {
		if isUniqueViolation(err, "availability_profiles_pkey") {
			return nil, ErrProfileExists
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateProfile(ctx context.Context, p AvailabilityProfile) (*AvailabilityProfile, error) {
	weekly, blocked, err := marshalProfileJSON(p)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE availability_profiles
		SET weekly_schedule = $2,
		    timezone = $3,
		    buffer_minutes = $4,
		    min_advance_hours = $5,
		    max_advance_days = $6,
		    auto_accept = $7,
		    blocked_dates = $8,
		    max_sessions_per_day = $9,
		    updated_at = now()
		WHERE provider_id = $1
		RETURNING `+profileColumns,
		p.ProviderID, weekly, p.Timezone, p.BufferMinutes,
		p.MinAdvanceHours, p.MaxAdvanceDays, p.AutoAccept,
		blocked, p.MaxSessionsPerDay,
	)
	return scanProfile(row)
}

func marshalProfileJSON(p AvailabilityProfile) (weekly, blocked []byte, err error) {
	weekly, err = json.Marshal(p.Weekly)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal weekly schedule: %w", err)
	}

	if p.BlockedDates == nil {
		blocked = []byte("[]")
	} else {
		blocked, err = json.Marshal(p.BlockedDates)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal blocked dates: %w", err)
		}
	}

	return weekly, blocked, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
