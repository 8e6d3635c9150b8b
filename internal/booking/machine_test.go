package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guardOf(t *testing.T, err error) string {
	t.Helper()
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	return cerr.Guard
}

func bookingIn(status Status) Booking {
	return Booking{
		ID:              uuid.New(),
		LearnerID:       uuid.New(),
		ProviderID:      uuid.New(),
		SkillID:         uuid.New(),
		Status:          status,
		RequestedDate:   time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		RequestedTime:   TimeOfDay(9 * 60),
		DurationMinutes: 60,
	}
}

func TestGuard_StatusRules(t *testing.T) {
	cases := []struct {
		name       string
		status     Status
		transition Transition
		role       Actor
		ok         bool
	}{
		{name: "provider accepts pending", status: StatusPending, transition: TransitionAccept, role: ActorProvider, ok: true},
		{name: "provider declines pending", status: StatusPending, transition: TransitionDecline, role: ActorProvider, ok: true},
		{name: "accept from declined", status: StatusDeclined, transition: TransitionAccept, role: ActorProvider},
		{name: "accept from accepted", status: StatusAccepted, transition: TransitionAccept, role: ActorProvider},
		{name: "learner cancels pending", status: StatusPending, transition: TransitionCancel, role: ActorLearner, ok: true},
		{name: "provider cancels accepted", status: StatusAccepted, transition: TransitionCancel, role: ActorProvider, ok: true},
		{name: "cancel from completed", status: StatusCompleted, transition: TransitionCancel, role: ActorLearner},
		{name: "cancel from expired", status: StatusExpired, transition: TransitionCancel, role: ActorLearner},
		{name: "reschedule from pending", status: StatusPending, transition: TransitionRequestReschedule, role: ActorLearner},
		{name: "reschedule from accepted", status: StatusAccepted, transition: TransitionRequestReschedule, role: ActorLearner, ok: true},
		{name: "system expires pending", status: StatusPending, transition: TransitionExpire, role: ActorSystem, ok: true},
		{name: "system completes accepted", status: StatusAccepted, transition: TransitionComplete, role: ActorSystem, ok: true},
		{name: "system completes pending", status: StatusPending, transition: TransitionComplete, role: ActorSystem},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := bookingIn(tc.status).Guard(tc.transition, tc.role)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, string(tc.transition), guardOf(t, err))
			}
		})
	}
}

func TestGuard_ActorRules(t *testing.T) {
	t.Run("learner cannot accept", func(t *testing.T) {
		err := bookingIn(StatusPending).Guard(TransitionAccept, ActorLearner)
		assert.Equal(t, string(TransitionAccept), guardOf(t, err))
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		err := bookingIn(StatusPending).Guard(TransitionCancel, Actor(""))
		assert.Equal(t, string(TransitionCancel), guardOf(t, err))
	})

	t.Run("caller cannot expire", func(t *testing.T) {
		err := bookingIn(StatusPending).Guard(TransitionExpire, ActorProvider)
		assert.Equal(t, string(TransitionExpire), guardOf(t, err))
	})
}

func TestGuard_CounterpartyRule(t *testing.T) {
	proposer := ActorLearner
	b := bookingIn(StatusRescheduleRequested)
	b.ProposedBy = &proposer

	t.Run("proposer cannot accept own proposal", func(t *testing.T) {
		err := b.Guard(TransitionAcceptReschedule, ActorLearner)
		assert.Equal(t, string(TransitionAcceptReschedule), guardOf(t, err))
	})

	t.Run("counterparty may accept", func(t *testing.T) {
		assert.NoError(t, b.Guard(TransitionAcceptReschedule, ActorProvider))
	})

	t.Run("counterparty may decline", func(t *testing.T) {
		assert.NoError(t, b.Guard(TransitionDeclineReschedule, ActorProvider))
	})

	t.Run("no proposal recorded", func(t *testing.T) {
		orphan := bookingIn(StatusRescheduleRequested)
		err := orphan.Guard(TransitionAcceptReschedule, ActorProvider)
		assert.Equal(t, string(TransitionAcceptReschedule), guardOf(t, err))
	})
}

func TestWithProposalApplied(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	proposer := ActorLearner
	newDate := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	newTime := TimeOfDay(11 * 60)

	b := bookingIn(StatusAccepted)
	proposed := b.withProposal(newDate, newTime, proposer, now)

	require.Equal(t, StatusRescheduleRequested, proposed.Status)
	require.NotNil(t, proposed.ProposedBy)
	assert.Equal(t, proposer, *proposed.ProposedBy)
	// The confirmed slot is untouched while the proposal is pending.
	assert.Equal(t, b.RequestedDate, proposed.RequestedDate)
	assert.Equal(t, b.RequestedTime, proposed.RequestedTime)

	starts := time.Date(2026, 9, 8, 11, 0, 0, 0, time.UTC)
	ends := starts.Add(time.Hour)
	applied := proposed.withProposalApplied(starts, ends, now)

	assert.Equal(t, StatusAccepted, applied.Status)
	assert.Equal(t, newDate, applied.RequestedDate)
	assert.Equal(t, newTime, applied.RequestedTime)
	assert.Equal(t, starts, applied.StartsAt)
	assert.Equal(t, ends, applied.EndsAt)
	assert.Nil(t, applied.ProposedDate)
	assert.Nil(t, applied.ProposedTime)
	assert.Nil(t, applied.ProposedBy)
}

func TestWithProposalDiscarded(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	proposer := ActorProvider

	b := bookingIn(StatusAccepted)
	proposed := b.withProposal(time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), TimeOfDay(11*60), proposer, now)
	discarded := proposed.withProposalDiscarded(now)

	// Declining a reschedule keeps the booking alive at the prior slot.
	assert.Equal(t, StatusAccepted, discarded.Status)
	assert.Equal(t, b.RequestedDate, discarded.RequestedDate)
	assert.Equal(t, b.RequestedTime, discarded.RequestedTime)
	assert.Nil(t, discarded.ProposedDate)
	assert.Nil(t, discarded.ProposedBy)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusDeclined.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusAccepted.IsTerminal())
	assert.False(t, StatusRescheduleRequested.IsTerminal())
}
