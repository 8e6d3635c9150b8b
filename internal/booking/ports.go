package booking

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Notifier is the delivery port fired after every successful
// transition. Delivery (push, email, websocket) lives outside this
// service; failures here never fail the transition that triggered them.
type Notifier interface {
	BookingChanged(ctx context.Context, b Booking, event string)
}

// CreditLedger is the wallet port. The settlement policy is owned by
// the ledger service; this core only signals when credits should move.
type CreditLedger interface {
	// Hold escrows the learner's credits when a booking is created.
	Hold(ctx context.Context, learnerID, bookingID uuid.UUID, credits int) error
	// Release returns escrowed credits (decline, cancel, expire).
	Release(ctx context.Context, bookingID uuid.UUID) error
	// Capture pays the provider when a session completes.
	Capture(ctx context.Context, bookingID uuid.UUID) error
}

// SkillCatalog resolves the credit rate of a skill listing so the cost
// can be snapshotted onto the booking at request time.
type SkillCatalog interface {
	SessionRate(ctx context.Context, skillID uuid.UUID) (creditsPerHour int, err error)
}

// LogNotifier writes transition notifications to the process log. Used
// until a real delivery channel is wired in by the surrounding app.
type LogNotifier struct{}

func (LogNotifier) BookingChanged(_ context.Context, b Booking, event string) {
	log.Printf("notify event=%s booking=%s status=%s learner=%s provider=%s",
		event, b.ID, b.Status, b.LearnerID, b.ProviderID)
}

// NopLedger satisfies CreditLedger without moving credits.
type NopLedger struct{}

func (NopLedger) Hold(context.Context, uuid.UUID, uuid.UUID, int) error { return nil }
func (NopLedger) Release(context.Context, uuid.UUID) error              { return nil }
func (NopLedger) Capture(context.Context, uuid.UUID) error              { return nil }

// FlatRateCatalog prices every skill at a fixed hourly rate.
type FlatRateCatalog struct {
	CreditsPerHour int
}

func (c FlatRateCatalog) SessionRate(context.Context, uuid.UUID) (int, error) {
	return c.CreditsPerHour, nil
}
