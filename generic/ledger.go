/*
ledger.go - Per-employee balance ledger

PURPOSE:
  The BalanceLedger owns every change to an employee's three-bucket
  balance. Each operation reads the balance, computes the new value,
  checks the invariants, writes it back with compare-and-swap on the
  employee version, and appends an immutable LedgerEntry carrying the
  before/after snapshot.

OPERATIONS:
  Hold(h):    pending += h             (requires available - pending >= h)
  Release(h): pending -= h             (deny, withdraw, cancel pending)
  Consume(h): available -= h, pending -= h   (approve)
  Refund(h):  available += h           (cancel approved, partial cancel)
  Adjust:     available += / -= / = h  (admin correction)

CRITICAL INVARIANTS:
  1. available >= 0 and pending >= 0 after every operation
  2. APPEND-ONLY entries: no Update, no Delete
  3. IDEMPOTENT: an entry with an existing idempotency key is rejected
     before the balance is written

CONCURRENCY:
  Run the ledger against the Store handed to TxStore.WithTx so the request
  document, partial cancellation, balance and entry commit together. A
  concurrent writer makes UpdateBalance fail with ErrConcurrentModification;
  WithRetry re-runs the whole transaction.

EXAMPLE FLOW:
  1. Employee has available=160, pending=0
  2. Requests 3 days: Hold(24)     -> available=160, pending=24
  3. Admin approves: Consume(24)   -> available=136, pending=0
  4. Cancels one day: Refund(8)    -> available=144, pending=0

SEE ALSO:
  - store.go: Store.UpdateBalance compare-and-swap contract
  - timeoff/service.go: Lifecycle transitions driving the ledger
*/
package generic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// EntryRef describes why a movement happened.
type EntryRef struct {
	RequestID      RequestID
	ActorID        string
	Reason         string
	IdempotencyKey string
}

// Movement is the result of one ledger operation.
type Movement struct {
	Before Balance
	After  Balance
	Entry  LedgerEntry
}

type BalanceLedger struct {
	Store Store
	Clock Clock
}

func NewBalanceLedger(store Store, clock Clock) *BalanceLedger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BalanceLedger{Store: store, Clock: clock}
}

// Hold reserves hours for an unresolved request.
func (l *BalanceLedger) Hold(ctx context.Context, id EmployeeID, hours Amount, ref EntryRef) (Movement, error) {
	return l.apply(ctx, id, EntryHold, hours, ref, func(b Balance) (Balance, error) {
		if hours.GreaterThan(b.Free()) {
			return b, &InsufficientBalanceError{EmployeeID: id, Free: b.Free(), Requested: hours}
		}
		b.Pending = b.Pending.Add(hours)
		return b, nil
	})
}

// Release returns held hours without consuming them.
func (l *BalanceLedger) Release(ctx context.Context, id EmployeeID, hours Amount, ref EntryRef) (Movement, error) {
	return l.apply(ctx, id, EntryRelease, hours, ref, func(b Balance) (Balance, error) {
		if hours.GreaterThan(b.Pending) {
			return b, fmt.Errorf("%w: release of %s hours exceeds pending %s", ErrLedgerInvariant, hours, b.Pending)
		}
		b.Pending = b.Pending.Sub(hours)
		return b, nil
	})
}

// Consume converts held hours into used hours.
func (l *BalanceLedger) Consume(ctx context.Context, id EmployeeID, hours Amount, ref EntryRef) (Movement, error) {
	return l.apply(ctx, id, EntryConsume, hours, ref, func(b Balance) (Balance, error) {
		if hours.GreaterThan(b.Pending) {
			return b, fmt.Errorf("%w: consume of %s hours exceeds pending %s", ErrLedgerInvariant, hours, b.Pending)
		}
		if hours.GreaterThan(b.Available) {
			return b, &InsufficientBalanceError{EmployeeID: id, Free: b.Available, Requested: hours}
		}
		b.Available = b.Available.Sub(hours)
		b.Pending = b.Pending.Sub(hours)
		return b, nil
	})
}

// Refund returns consumed hours to available.
func (l *BalanceLedger) Refund(ctx context.Context, id EmployeeID, hours Amount, ref EntryRef) (Movement, error) {
	return l.apply(ctx, id, EntryRefund, hours, ref, func(b Balance) (Balance, error) {
		b.Available = b.Available.Add(hours)
		return b, nil
	})
}

// Adjust applies an admin correction to available. Holds of open requests
// must stay covered, so available may not drop below pending.
func (l *BalanceLedger) Adjust(ctx context.Context, id EmployeeID, typ AdjustmentType, hours Amount, ref EntryRef) (Movement, error) {
	return l.apply(ctx, id, EntryAdjustment, hours, ref, func(b Balance) (Balance, error) {
		switch typ {
		case AdjustAdd:
			b.Available = b.Available.Add(hours)
		case AdjustSubtract:
			if hours.GreaterThan(b.Free()) {
				return b, &InsufficientBalanceError{EmployeeID: id, Free: b.Free(), Requested: hours}
			}
			b.Available = b.Available.Sub(hours)
		case AdjustSet:
			if hours.LessThan(b.Pending) {
				return b, Invalid("hours", "cannot set available to %s hours while %s hours are pending", hours, b.Pending)
			}
			b.Available = hours
		default:
			return b, Invalid("adjustment_type", "unknown adjustment type %q", typ)
		}
		return b, nil
	})
}

func (l *BalanceLedger) apply(
	ctx context.Context,
	id EmployeeID,
	typ EntryType,
	hours Amount,
	ref EntryRef,
	fn func(Balance) (Balance, error),
) (Movement, error) {
	if hours.IsNegative() {
		return Movement{}, fmt.Errorf("%w: negative %s of %s hours", ErrLedgerInvariant, typ, hours)
	}

	emp, err := l.Store.GetEmployee(ctx, id)
	if err != nil {
		return Movement{}, err
	}

	before := emp.Balance
	after, err := fn(before)
	if err != nil {
		return Movement{}, err
	}
	if !after.Valid() {
		return Movement{}, fmt.Errorf("%w: %s would leave available=%s pending=%s",
			ErrLedgerInvariant, typ, after.Available, after.Pending)
	}

	entry := LedgerEntry{
		ID:             EntryID(uuid.NewString()),
		EmployeeID:     id,
		RequestID:      ref.RequestID,
		Type:           typ,
		Hours:          hours,
		Before:         before,
		After:          after,
		Reason:         ref.Reason,
		IdempotencyKey: ref.IdempotencyKey,
		ActorID:        ref.ActorID,
		CreatedAt:      l.Clock.Now(),
	}

	// Entry first: a duplicate key must stop the balance write.
	if err := l.Store.AppendEntry(ctx, entry); err != nil {
		return Movement{}, err
	}
	if err := l.Store.UpdateBalance(ctx, id, emp.Version, after); err != nil {
		return Movement{}, err
	}

	return Movement{Before: before, After: after, Entry: entry}, nil
}

// =============================================================================
// RETRY
// =============================================================================

// DefaultRetryAttempts bounds how often a conflicting transaction is re-run.
const DefaultRetryAttempts = 5

// WithRetry runs fn until it succeeds, fails with a non-retryable error,
// or attempts are exhausted.
func WithRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !IsRetryable(err) {
			return err
		}
	}
	return err
}
