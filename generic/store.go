/*
store.go - Persistence interfaces for balances, requests and configuration

PURPOSE:
  Defines the interface between the domain logic and the document store.
  Implementations: SQLite (store/sqlite) and in-memory (generic/store).

KEY INTERFACES:
  Store:         Employees, balances, requests, partial cancellations, ledger
  TxStore:       Store + atomic multi-document transactions
  HolidayStore:  Holidays per year
  ConfigStore:   The vacation policy document
  SweepRunStore: History of expired-request sweeps

BALANCE WRITES:
  UpdateBalance is a compare-and-swap on the employee's Version. A stale
  version returns ErrConcurrentModification; callers re-run the whole
  transaction (see WithRetry in ledger.go).

APPEND-ONLY RECORDS:
  Ledger entries and partial cancellations have no Update or Delete.
  Ledger entries carry an idempotency key; a duplicate key is rejected
  with ErrDuplicateIdempotencyKey so a retried refund is never applied twice.

SEE ALSO:
  - ledger.go: BalanceLedger built on Store
  - store/sqlite/sqlite.go: Production implementation
  - generic/store/memory.go: In-memory implementation for tests
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Documents the engine reads and writes
// =============================================================================

type Store interface {
	// GetEmployee returns the employee or a NotFoundError.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	// CreateEmployee inserts a new employee with an initial balance.
	CreateEmployee(ctx context.Context, e Employee) error
	// UpdateBalance writes b if the stored version equals expectedVersion,
	// and increments the version.
	UpdateBalance(ctx context.Context, id EmployeeID, expectedVersion int64, b Balance) error

	// GetRequest returns the request or a NotFoundError.
	GetRequest(ctx context.Context, id RequestID) (*LeaveRequest, error)
	// SaveRequest inserts or replaces a request document.
	SaveRequest(ctx context.Context, r LeaveRequest) error
	// DeleteRequest removes a withdrawn pending request.
	DeleteRequest(ctx context.Context, id RequestID) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)

	AppendPartialCancellation(ctx context.Context, pc PartialCancellation) error
	ListPartialCancellations(ctx context.Context, requestID RequestID) ([]PartialCancellation, error)

	// AppendEntry persists a ledger entry. Returns ErrDuplicateIdempotencyKey
	// if the key exists.
	AppendEntry(ctx context.Context, e LedgerEntry) error
	ListEntries(ctx context.Context, employeeID EmployeeID) ([]LedgerEntry, error)
}

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	RequesterID EmployeeID
	States      []RequestState
	Kinds       []RequestKind
}

// Matches reports whether r passes the filter.
func (f RequestFilter) Matches(r *LeaveRequest) bool {
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if len(f.States) > 0 {
		ok := false
		for _, s := range f.States {
			if r.State == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if r.Kind() == k {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// HOLIDAYS / CONFIG / SWEEP RUNS
// =============================================================================

type HolidayStore interface {
	// SaveHoliday inserts or renames the holiday on h.Date.
	SaveHoliday(ctx context.Context, h Holiday) error
	// DeleteHoliday removes the holiday on date or returns a NotFoundError.
	DeleteHoliday(ctx context.Context, date TimePoint) error
	HolidaysForYear(ctx context.Context, year int) ([]Holiday, error)
}

type ConfigStore interface {
	// GetVacationPolicy returns the stored policy, or DefaultVacationPolicy
	// when none was saved.
	GetVacationPolicy(ctx context.Context) (VacationPolicy, error)
	SaveVacationPolicy(ctx context.Context, p VacationPolicy) error
}

type SweepRunStatus string

const (
	SweepRunning   SweepRunStatus = "running"
	SweepCompleted SweepRunStatus = "completed"
	SweepFailed    SweepRunStatus = "failed"
)

// SweepRun records one pass of the expired-request sweeper.
type SweepRun struct {
	ID          string
	Trigger     string // "scheduler", "admin_view", "manual"
	Status      SweepRunStatus
	Scanned     int
	Cancelled   int
	Failed      int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

type SweepRunStore interface {
	SaveSweepRun(ctx context.Context, run SweepRun) error
	ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error)
}
