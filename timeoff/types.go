/*
Package timeoff implements the vacation request lifecycle on top of the
generic balance ledger.

PURPOSE:
  The Service turns caller intents (create, approve, deny, withdraw, edit,
  cancel, adjust) into state transitions of a LeaveRequest paired with the
  balance movement each transition implies. It also answers the read-only
  questions the admin views ask: coverage conflicts per role, availability
  on a date, and the pending queue (swept of expired requests).

KEY CONCEPTS IN THIS FILE (types.go):
  - Actor: Who performs an operation; admins may do more
  - Result: The request and the requester's balance after an operation
  - EditInput / BulkResult / RequestDetail / Availability

SEE ALSO:
  - service.go: Service construction, transactions, queries
  - request.go: Lifecycle transitions
  - autoapprove.go, coverage.go, sweeper.go, calendar.go
*/
package timeoff

import (
	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// ACTOR
// =============================================================================

// Actor identifies the caller. Authentication happens outside the engine.
type Actor struct {
	ID    string
	Admin bool
}

// SystemActor performs automatic transitions (auto-approval, sweeps).
var SystemActor = Actor{ID: "system", Admin: true}

func (a Actor) owns(r *generic.LeaveRequest) bool {
	return a.ID == string(r.RequesterID)
}

// =============================================================================
// RESULTS
// =============================================================================

// Result is returned by every lifecycle operation.
type Result struct {
	Request      generic.LeaveRequest
	Balance      generic.Balance
	AutoApproved bool
	// Partial is set by CancelRequestPartial.
	Partial *generic.PartialCancellation
}

// EditInput replaces the editable parts of a request. Dates apply to day
// requests, Date and Hours to hour requests, Hours to sales. A nil Comment
// keeps the current requester comment.
type EditInput struct {
	Dates   []generic.TimePoint
	Date    generic.TimePoint
	Hours   int
	Comment *string
}

// BulkFailure is one request a bulk operation could not process.
type BulkFailure struct {
	RequestID generic.RequestID
	Err       error
}

// BulkResult reports a bulk operation per id. Successes are kept even
// when other ids fail.
type BulkResult struct {
	Succeeded []generic.RequestID
	Failed    []BulkFailure
}

// RequestDetail is a request with its partial cancellations.
type RequestDetail struct {
	Request   generic.LeaveRequest
	Partials  []generic.PartialCancellation
	LiveDates []generic.TimePoint
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// Absence is one employee on approved leave on a date.
type Absence struct {
	EmployeeID generic.EmployeeID
	Name       string
	Role       string
	RequestID  generic.RequestID
	Kind       generic.RequestKind
	Hours      int
}

// RoleAvailability counts staff of one role on a date.
type RoleAvailability struct {
	Role      string
	Total     int
	OnLeave   int
	Available int
	Threshold int
}

// Availability describes staffing on a single date.
type Availability struct {
	Date      generic.TimePoint
	Weekend   bool
	Holiday   string
	Absences  []Absence
	Roles     []RoleAvailability
	Conflicts []Conflict
}
