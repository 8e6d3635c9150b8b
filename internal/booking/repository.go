package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Booking writes. CreateBooking maps the partial unique index
	// violation on (provider_id, requested_date, requested_time) to
	// ErrDuplicateSlot. SaveTransition compare-and-swaps on the prior
	// status and returns ErrBookingNotFound when no row matched, so a
	// lost race surfaces instead of silently double-applying.
	CreateBooking(ctx context.Context, b Booking) (*Booking, error)
	SaveTransition(ctx context.Context, next Booking, from Status) (*Booking, error)

	// Booking reads.
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListBookingsByLearner(ctx context.Context, learnerID uuid.UUID, limit, offset int) ([]Booking, error)
	ListBookingsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]Booking, error)
	// ListActiveForProviderDate returns non-terminal bookings for the
	// capacity and overlap checks inside the creation critical section.
	ListActiveForProviderDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Booking, error)

	// Sweep queries.
	FindExpiredPending(ctx context.Context, now time.Time) ([]Booking, error)
	FindElapsedAccepted(ctx context.Context, now time.Time) ([]Booking, error)

	// Availability profiles.
	GetProfile(ctx context.Context, providerID uuid.UUID) (*AvailabilityProfile, error)
	CreateProfile(ctx context.Context, p AvailabilityProfile) (*AvailabilityProfile, error)
	UpdateProfile(ctx context.Context, p AvailabilityProfile) (*AvailabilityProfile, error)

	// Event logging.
	InsertEvent(ctx context.Context, ev EventLog) error
}
