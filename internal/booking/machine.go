package booking

import "time"

// Transition names double as the guard identifiers in ConflictError.
type Transition string

const (
	TransitionAccept            Transition = "accept"
	TransitionDecline           Transition = "decline"
	TransitionCancel            Transition = "cancel"
	TransitionRequestReschedule Transition = "request_reschedule"
	TransitionAcceptReschedule  Transition = "accept_reschedule"
	TransitionDeclineReschedule Transition = "decline_reschedule"
	TransitionComplete          Transition = "complete"
	TransitionExpire            Transition = "expire"
)

type actorRule int

const (
	providerOnly actorRule = iota
	eitherParty
	// counterparty: only the side that did NOT propose the pending
	// reschedule may respond to it.
	counterparty
	systemOnly
)

type transitionRule struct {
	from  []Status
	to    Status
	actor actorRule
}

// transitions is the single source of truth for which actor may move a
// booking between which states. Everything else (service methods, the
// sweep, the CAS predicates in the repository) derives from this table.
var transitions = map[Transition]transitionRule{
	TransitionAccept:            {from: []Status{StatusPending}, to: StatusAccepted, actor: providerOnly},
	TransitionDecline:           {from: []Status{StatusPending}, to: StatusDeclined, actor: providerOnly},
	TransitionCancel:            {from: []Status{StatusPending, StatusAccepted}, to: StatusCancelled, actor: eitherParty},
	TransitionRequestReschedule: {from: []Status{StatusAccepted}, to: StatusRescheduleRequested, actor: eitherParty},
	TransitionAcceptReschedule:  {from: []Status{StatusRescheduleRequested}, to: StatusAccepted, actor: counterparty},
	TransitionDeclineReschedule: {from: []Status{StatusRescheduleRequested}, to: StatusAccepted, actor: counterparty},
	TransitionComplete:          {from: []Status{StatusAccepted}, to: StatusCompleted, actor: systemOnly},
	TransitionExpire:            {from: []Status{StatusPending}, to: StatusExpired, actor: systemOnly},
}

// Target returns the destination status of a transition.
func (t Transition) Target() Status {
	return transitions[t].to
}

// Guard checks whether role may apply t to the booking in its current
// state. A nil return means the transition is legal; otherwise the
// ConflictError names the violated guard.
func (b Booking) Guard(t Transition, role Actor) error {
	rule, ok := transitions[t]
	if !ok {
		return conflictErr(string(t), "unknown transition")
	}

	if !statusIn(b.Status, rule.from) {
		return conflictErr(string(t), "booking is %s, transition requires %s", b.Status, statusList(rule.from))
	}

	switch rule.actor {
	case providerOnly:
		if role != ActorProvider {
			return conflictErr(string(t), "only the provider may %s a booking", t)
		}
	case eitherParty:
		if role != ActorLearner && role != ActorProvider {
			return conflictErr(string(t), "actor is not a participant of this booking")
		}
	case counterparty:
		if role != ActorLearner && role != ActorProvider {
			return conflictErr(string(t), "actor is not a participant of this booking")
		}
		if b.ProposedBy == nil || role == *b.ProposedBy {
			return conflictErr(string(t), "only the counter-party may respond to a reschedule proposal")
		}
	case systemOnly:
		if role != ActorSystem {
			return conflictErr(string(t), "transition %s is system-driven", t)
		}
	}

	return nil
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func statusList(set []Status) string {
	out := ""
	for i, s := range set {
		if i > 0 {
			out += " or "
		}
		out += string(s)
	}
	return out
}

// withStatus returns a copy in the new status.
func (b Booking) withStatus(s Status, now time.Time) Booking {
	b.Status = s
	b.UpdatedAt = now
	return b
}

// withProposal returns a copy carrying a pending reschedule proposal.
// The confirmed slot is left untouched until the proposal is accepted.
func (b Booking) withProposal(date time.Time, t TimeOfDay, by Actor, now time.Time) Booking {
	b.Status = StatusRescheduleRequested
	b.ProposedDate = &date
	b.ProposedTime = &t
	b.ProposedBy = &by
	b.UpdatedAt = now
	return b
}

// withProposalApplied promotes the pending proposal to the confirmed
// slot and clears the proposal fields.
func (b Booking) withProposalApplied(startsAt, endsAt, now time.Time) Booking {
	b.RequestedDate = *b.ProposedDate
	b.RequestedTime = *b.ProposedTime
	b.StartsAt = startsAt
	b.EndsAt = endsAt
	b.Status = StatusAccepted
	b.ProposedDate = nil
	b.ProposedTime = nil
	b.ProposedBy = nil
	b.UpdatedAt = now
	return b
}

// withProposalDiscarded drops the pending proposal, keeping the prior
// confirmed slot alive.
func (b Booking) withProposalDiscarded(now time.Time) Booking {
	b.Status = StatusAccepted
	b.ProposedDate = nil
	b.ProposedTime = nil
	b.ProposedBy = nil
	b.UpdatedAt = now
	return b
}
