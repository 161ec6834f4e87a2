package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNextAllowedEdges(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
		want  Status
	}{
		{StatusPendingApproval, EventApprove, StatusApproved},
		{StatusPendingApproval, EventReject, StatusRejected},
		{StatusApproved, EventConfirm, StatusConfirmed},
		{StatusApproved, EventExpire, StatusExpired},
	}
	for _, c := range cases {
		got, err := Next(c.from, c.event)
		if err != nil {
			t.Errorf("Next(%s, %s): unexpected error %v", c.from, c.event, err)
			continue
		}
		if got != c.want {
			t.Errorf("Next(%s, %s) = %s, want %s", c.from, c.event, got, c.want)
		}
	}
}

func TestNextRejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
	}{
		{StatusPendingApproval, EventConfirm},
		{StatusPendingApproval, EventExpire},
		{StatusApproved, EventApprove},
		{StatusApproved, EventReject},
		{StatusRejected, EventApprove},
		{StatusRejected, EventConfirm},
		{StatusConfirmed, EventExpire},
		{StatusConfirmed, EventReject},
		{StatusExpired, EventConfirm},
		{StatusExpired, EventApprove},
	}
	for _, c := range cases {
		if _, err := Next(c.from, c.event); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("Next(%s, %s): expected ErrIllegalTransition, got %v", c.from, c.event, err)
		}
	}
}

func TestTransitionStampsDecision(t *testing.T) {
	admin := uuid.New()
	now := time.Now()
	b := &Booking{ID: uuid.New(), Status: StatusPendingApproval}

	nb, err := Transition(b, EventApprove, admin, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nb.Status != StatusApproved {
		t.Errorf("expected approved, got %s", nb.Status)
	}
	if !nb.DecidedAt.Valid || !nb.DecidedAt.Time.Equal(now) {
		t.Errorf("decided_at not stamped")
	}
	if !nb.DecidedBy.Valid || nb.DecidedBy.UUID != admin {
		t.Errorf("decided_by not stamped")
	}
	if b.Status != StatusPendingApproval {
		t.Errorf("original booking mutated")
	}
}

func TestTransitionSystemActorLeavesDecidedByEmpty(t *testing.T) {
	b := &Booking{ID: uuid.New(), Status: StatusApproved}

	nb, err := Transition(b, EventExpire, uuid.Nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nb.Status != StatusExpired {
		t.Errorf("expected expired, got %s", nb.Status)
	}
	if nb.DecidedBy.Valid {
		t.Errorf("system transition should not stamp decided_by")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusConfirmed, StatusExpired} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPendingApproval, StatusApproved} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
