package timeoff

import (
	"context"
	"time"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// CHANGE EVENTS - Consumed by streaming layers (see events/nats.go)
// =============================================================================

type EventType string

const (
	EventRequestCreated            EventType = "request.created"
	EventRequestApproved           EventType = "request.approved"
	EventRequestDenied             EventType = "request.denied"
	EventRequestWithdrawn          EventType = "request.withdrawn"
	EventRequestEdited             EventType = "request.edited"
	EventRequestCancelled          EventType = "request.cancelled"
	EventRequestPartiallyCancelled EventType = "request.partially_cancelled"
	EventBalanceAdjusted           EventType = "balance.adjusted"
	EventSweepCompleted            EventType = "sweep.completed"
)

// Event is emitted after a transition has committed.
type Event struct {
	Type       EventType
	RequestID  generic.RequestID
	EmployeeID generic.EmployeeID
	Kind       generic.RequestKind
	State      generic.RequestState
	Hours      int
	Balance    *generic.Balance
	ActorID    string
	At         time.Time
	// Sweep is set on EventSweepCompleted.
	Sweep *generic.SweepRun
}

// Notifier delivers events. Delivery failures never undo a transition.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event) error

func (f NotifierFunc) Notify(ctx context.Context, e Event) error { return f(ctx, e) }

func requestEvent(typ EventType, res *Result, actor Actor, at time.Time) Event {
	b := res.Balance
	return Event{
		Type:       typ,
		RequestID:  res.Request.ID,
		EmployeeID: res.Request.RequesterID,
		Kind:       res.Request.Kind(),
		State:      res.Request.State,
		Hours:      res.Request.HoursRequested,
		Balance:    &b,
		ActorID:    actor.ID,
		At:         at,
	}
}
