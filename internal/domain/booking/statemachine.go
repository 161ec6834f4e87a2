package booking

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is a trigger that moves a booking between statuses
type Event string

const (
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventConfirm Event = "confirm"
	EventExpire  Event = "expire"
)

// transitions encodes the forward-only booking lifecycle. Anything not
// listed here is an illegal transition, including every edge out of a
// terminal status.
var transitions = map[Status]map[Event]Status{
	StatusPendingApproval: {
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
	},
	StatusApproved: {
		EventConfirm: StatusConfirmed,
		EventExpire:  StatusExpired,
	},
}

// Next returns the status the event leads to from the given status,
// or ErrIllegalTransition when the edge does not exist.
func Next(from Status, event Event) (Status, error) {
	to, ok := transitions[from][event]
	if !ok {
		return "", ErrIllegalTransition
	}
	return to, nil
}

// Transition validates the edge and returns an updated copy of the booking
// with the decision audit stamps set. The caller persists it with a
// compare-and-swap on the previous status so concurrent actors cannot both
// win the same edge.
func Transition(b *Booking, event Event, actor uuid.UUID, now time.Time) (*Booking, error) {
	next, err := Next(b.Status, event)
	if err != nil {
		return nil, err
	}
	nb := *b
	nb.Status = next
	nb.DecidedAt = sql.NullTime{Time: now, Valid: true}
	if actor != uuid.Nil {
		nb.DecidedBy = uuid.NullUUID{UUID: actor, Valid: true}
	}
	nb.UpdatedAt = now
	return &nb, nil
}
