package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/skillswap/session-scheduling/internal/booking"
)

// BookingService is the slice of the booking service the HTTP layer
// depends on; handler tests substitute a mock.
type BookingService interface {
	CreateBooking(ctx context.Context, req booking.SessionRequest) (*booking.Booking, error)
	AcceptBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*booking.Booking, error)
	DeclineBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*booking.Booking, error)
	CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error)
	RequestReschedule(ctx context.Context, bookingID, actorID uuid.UUID, newDate, newTime string) (*booking.Booking, error)
	AcceptReschedule(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error)
	DeclineReschedule(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	ListBookingsByLearner(ctx context.Context, learnerID uuid.UUID, limit, offset int) ([]booking.Booking, error)
	ListBookingsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]booking.Booking, error)
	GetAvailability(ctx context.Context, providerID uuid.UUID) (*booking.AvailabilityProfile, error)
	CreateAvailability(ctx context.Context, providerID uuid.UUID, in booking.ProfileInput) (*booking.AvailabilityProfile, error)
	UpdateAvailability(ctx context.Context, providerID uuid.UUID, patch booking.ProfileUpdate) (*booking.AvailabilityProfile, error)
}

type RouterConfig struct {
	Service BookingService
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Booking endpoints
	r.Post("/bookings", createBookingHandler(cfg.Service))
	r.Get("/bookings", listBookingsHandler(cfg.Service))
	r.Get("/bookings/{id}", getBookingHandler(cfg.Service))
	r.Post("/bookings/{id}/accept", acceptBookingHandler(cfg.Service))
	r.Post("/bookings/{id}/decline", declineBookingHandler(cfg.Service))
	r.Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Service))
	r.Post("/bookings/{id}/reschedule", requestRescheduleHandler(cfg.Service))
	r.Post("/bookings/{id}/reschedule/accept", acceptRescheduleHandler(cfg.Service))
	r.Post("/bookings/{id}/reschedule/decline", declineRescheduleHandler(cfg.Service))

	// Provider availability endpoints
	r.Get("/providers/{id}/availability", getAvailabilityHandler(cfg.Service))
	r.Post("/providers/{id}/availability", createAvailabilityHandler(cfg.Service))
	r.Put("/providers/{id}/availability", updateAvailabilityHandler(cfg.Service))

	return r
}
