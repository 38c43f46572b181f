/*
request.go - Leave requests and their partial cancellations

PURPOSE:
  Defines the LeaveRequest envelope shared by every kind of ledger-affecting
  request, the kind-specific payloads, and the append-only
  PartialCancellation children of approved day requests.

REQUEST KINDS:
  DaysPayload:        whole days off, 8 hours per date
  HoursPayload:       part of a single day, fewer than 8 hours
  SalePayload:        hours converted into a cash payout, no dates
  AdjustmentPayload:  admin balance correction, created already approved

STATES:
  ┌─────────┐  approve   ┌──────────┐  cancel   ┌───────────┐
  │ pending │──────────▶ │ approved │─────────▶ │ cancelled │
  └─────────┘            └──────────┘           └───────────┘
     │   ▲ edit               │                       ▲
     │   └────────────────────┘                       │
     │ deny        ┌────────┐                         │
     ├───────────▶ │ denied │     cancel (pending)    │
     │             └────────┘                         │
     └────────────────────────────────────────────────┘
  Withdrawing a pending request deletes it.

LIVE DATES:
  PartialCancellations narrow an approved request's date set without
  changing its state. Children are scoped to the request Revision they
  were created against; editing a request starts a new revision.

SEE ALSO:
  - timeoff/service.go: Lifecycle transitions
  - ledger.go: Balance movements paired with each transition
*/
package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// KIND / STATE
// =============================================================================

type RequestKind string

const (
	KindDays       RequestKind = "days"
	KindHours      RequestKind = "hours"
	KindSale       RequestKind = "sale"
	KindAdjustment RequestKind = "balanceAdjustment"
)

type RequestState string

const (
	StatePending   RequestState = "pending"
	StateApproved  RequestState = "approved"
	StateDenied    RequestState = "denied"
	StateCancelled RequestState = "cancelled"
)

// ParseRequestState validates a state name.
func ParseRequestState(s string) (RequestState, error) {
	switch st := RequestState(s); st {
	case StatePending, StateApproved, StateDenied, StateCancelled:
		return st, nil
	}
	return "", Invalid("state", "unknown request state %q", s)
}

type AdjustmentType string

const (
	AdjustAdd      AdjustmentType = "add"
	AdjustSubtract AdjustmentType = "subtract"
	AdjustSet      AdjustmentType = "set"
)

// =============================================================================
// PAYLOADS - Kind-specific data of a request
// =============================================================================

// Payload is implemented only by the payload types of this package, so
// switches over it are exhaustive.
type Payload interface {
	Kind() RequestKind
	payload()
}

type DaysPayload struct {
	Dates []TimePoint
}

type HoursPayload struct {
	Date  TimePoint
	Hours int
}

type SalePayload struct {
	Hours int
}

type AdjustmentPayload struct {
	Type   AdjustmentType
	Hours  int
	Reason string
}

func (DaysPayload) Kind() RequestKind       { return KindDays }
func (HoursPayload) Kind() RequestKind      { return KindHours }
func (SalePayload) Kind() RequestKind       { return KindSale }
func (AdjustmentPayload) Kind() RequestKind { return KindAdjustment }

func (DaysPayload) payload()       {}
func (HoursPayload) payload()      {}
func (SalePayload) payload()       {}
func (AdjustmentPayload) payload() {}

// PayloadHours returns the hours a payload asks for.
func PayloadHours(p Payload) int {
	switch p := p.(type) {
	case DaysPayload:
		return len(p.Dates) * HoursPerDay
	case HoursPayload:
		return p.Hours
	case SalePayload:
		return p.Hours
	case AdjustmentPayload:
		return p.Hours
	}
	return 0
}

// PayloadDates returns the calendar days a payload covers, sorted.
func PayloadDates(p Payload) []TimePoint {
	switch p := p.(type) {
	case DaysPayload:
		out := append([]TimePoint(nil), p.Dates...)
		SortDates(out)
		return out
	case HoursPayload:
		return []TimePoint{p.Date}
	}
	return nil
}

// =============================================================================
// LEAVE REQUEST - Common envelope
// =============================================================================

type LeaveRequest struct {
	ID             RequestID
	RequesterID    EmployeeID
	Payload        Payload
	HoursRequested int
	State          RequestState
	Revision       int

	RequesterComment   string
	AdminComment       string
	ResolvedBy         string
	CancellationReason string

	RequestedAt time.Time
	ResolvedAt  *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time

	// Balance snapshot of the transition that last moved available hours.
	AvailableBefore *Amount
	AvailableAfter  *Amount
}

func (r *LeaveRequest) Kind() RequestKind { return r.Payload.Kind() }

// Dates returns the request's original calendar days (empty for sales
// and adjustments).
func (r *LeaveRequest) Dates() []TimePoint { return PayloadDates(r.Payload) }

// FirstDate returns the earliest requested day, or false when the request
// has no dates.
func (r *LeaveRequest) FirstDate() (TimePoint, bool) {
	dates := r.Dates()
	if len(dates) == 0 {
		return TimePoint{}, false
	}
	return dates[0], true
}

// IsOpen reports whether the request still holds or consumes hours.
func (r *LeaveRequest) IsOpen() bool {
	return r.State == StatePending || r.State == StateApproved
}

// SetSnapshot records the available balance around a transition.
func (r *LeaveRequest) SetSnapshot(before, after Amount) {
	r.AvailableBefore = &before
	r.AvailableAfter = &after
}

// Validate checks the hour/date invariants of each kind.
func (r *LeaveRequest) Validate() error {
	if r.Payload == nil {
		return Invalid("kind", "request has no payload")
	}
	switch p := r.Payload.(type) {
	case DaysPayload:
		if len(p.Dates) == 0 {
			return Invalid("dates", "select at least one date")
		}
		if r.HoursRequested != len(p.Dates)*HoursPerDay {
			return Invalid("hours", "a %d-day request must be %d hours, got %d",
				len(p.Dates), len(p.Dates)*HoursPerDay, r.HoursRequested)
		}
	case HoursPayload:
		if p.Date.IsZero() {
			return Invalid("dates", "an hours request needs exactly one date")
		}
		if p.Hours <= 0 || p.Hours >= HoursPerDay {
			return Invalid("hours", "an hours request must be between 1 and %d hours", HoursPerDay-1)
		}
		if r.HoursRequested != p.Hours {
			return Invalid("hours", "hours mismatch: %d != %d", r.HoursRequested, p.Hours)
		}
	case SalePayload:
		if p.Hours <= 0 {
			return Invalid("hours", "a sale must be for a positive number of hours")
		}
		if r.HoursRequested != p.Hours {
			return Invalid("hours", "hours mismatch: %d != %d", r.HoursRequested, p.Hours)
		}
	case AdjustmentPayload:
		switch p.Type {
		case AdjustAdd, AdjustSubtract:
			if p.Hours <= 0 {
				return Invalid("hours", "an adjustment must be for a positive number of hours")
			}
		case AdjustSet:
			if p.Hours < 0 {
				return Invalid("hours", "a balance cannot be set below zero")
			}
		default:
			return Invalid("adjustment_type", "unknown adjustment type %q", p.Type)
		}
	default:
		return Invalid("kind", "unsupported payload %T", p)
	}
	return nil
}

// =============================================================================
// PARTIAL CANCELLATION - Append-only child of an approved day request
// =============================================================================

type PartialCancellation struct {
	ID              string
	RequestID       RequestID
	Revision        int
	CancelledDates  []TimePoint
	HoursReturned   int
	Reason          string
	ProcessedBy     string
	IsAdminAction   bool
	AvailableBefore Amount
	AvailableAfter  Amount
	CreatedAt       time.Time
}

// CancelledDatesOf collects the days removed from a request by the children
// of its current revision.
func CancelledDatesOf(r *LeaveRequest, children []PartialCancellation) []TimePoint {
	var out []TimePoint
	for _, pc := range children {
		if pc.RequestID != r.ID || pc.Revision != r.Revision {
			continue
		}
		out = append(out, pc.CancelledDates...)
	}
	SortDates(out)
	return out
}

// HoursReturnedOf sums hours refunded by the children of the current revision.
func HoursReturnedOf(r *LeaveRequest, children []PartialCancellation) int {
	total := 0
	for _, pc := range children {
		if pc.RequestID == r.ID && pc.Revision == r.Revision {
			total += pc.HoursReturned
		}
	}
	return total
}

// LiveDates returns the request's dates not removed by partial cancellations.
func LiveDates(r *LeaveRequest, children []PartialCancellation) []TimePoint {
	cancelled := CancelledDatesOf(r, children)
	var live []TimePoint
	for _, d := range r.Dates() {
		if !ContainsDate(cancelled, d) {
			live = append(live, d)
		}
	}
	return live
}

func (pc PartialCancellation) String() string {
	return fmt.Sprintf("%s: %v (%dh)", pc.RequestID, DateStrings(pc.CancelledDates), pc.HoursReturned)
}
