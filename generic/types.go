/*
Package generic provides the core vacation ledger engine.

PURPOSE:
  This package contains the storage-agnostic types and algorithms behind
  employee leave: hour amounts, the three-bucket balance, the immutable
  ledger of balance movements, leave requests and their partial
  cancellations, and the store interfaces the engine runs against.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity of hours (decimal, never float)
  - Balance: available / pending / assigned buckets of one employee
  - Employee: The balance owner, with role and optimistic-lock version
  - LedgerEntry: An immutable record of one balance movement

DESIGN PRINCIPLES:
  1. Immutability: Ledger entries are never modified, only appended
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing employee/request IDs
  4. Auditability: Every movement has actor, reason, reference and idempotency key

USAGE:
  b := generic.Balance{Available: generic.Hours(160), Assigned: generic.Hours(160)}
  b.Free() // 160 hours requestable

SEE ALSO:
  - ledger.go: BalanceLedger operations (hold, release, consume, refund, adjust)
  - request.go: LeaveRequest and PartialCancellation
  - store.go: Persistence interfaces
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoursPerDay is the length of a full workday in hours.
const HoursPerDay = 8

// =============================================================================
// AMOUNT - Quantity of hours
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours Unit = "hours"
	UnitDays  Unit = "days"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Hours is shorthand for an integral amount of hours.
func Hours(n int) Amount { return NewAmountFromInt(n, UnitHours) }

// ZeroHours is an empty amount of hours.
func ZeroHours() Amount { return Hours(0) }

// ParseHours parses a decimal string such as "136" or "7.5".
func ParseHours(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d, Unit: UnitHours}, nil
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) String() string               { return a.Value.String() }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Float returns the amount as float64 for presentation only.
func (a Amount) Float() float64 {
	f, _ := a.Value.Float64()
	return f
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RequestID string
type EntryID string

// =============================================================================
// BALANCE - Three-bucket vacation balance of one employee
// =============================================================================

// Balance holds an employee's vacation hours.
//
// INVARIANTS:
//   - Available >= 0
//   - Pending >= 0
//   - Pending equals the sum of holds of the employee's open requests
//
// Assigned is the informational annual allotment and is never enforced.
type Balance struct {
	Available Amount
	Pending   Amount
	Assigned  Amount
}

// NewBalance creates a balance with the given available and assigned hours.
func NewBalance(available, assigned Amount) Balance {
	return Balance{Available: available, Pending: ZeroHours(), Assigned: assigned}
}

// Free returns hours that a new request may still hold.
func (b Balance) Free() Amount { return b.Available.Sub(b.Pending) }

// Valid reports whether both buckets are non-negative.
func (b Balance) Valid() bool {
	return !b.Available.IsNegative() && !b.Pending.IsNegative()
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the owner of a balance. Version increments on every balance
// write and is used for compare-and-swap updates.
type Employee struct {
	ID        EmployeeID
	Name      string
	Role      string
	Balance   Balance
	Version   int64
	CreatedAt time.Time
}

// =============================================================================
// LEDGER ENTRY - Immutable record of a balance movement
// =============================================================================

type EntryType string

const (
	EntryHold       EntryType = "hold"       // hours reserved by a new or edited request
	EntryRelease    EntryType = "release"    // hold returned (deny, withdraw, cancel pending)
	EntryConsume    EntryType = "consume"    // hold converted into consumed hours (approve)
	EntryRefund     EntryType = "refund"     // consumed hours returned (cancel approved, partial cancel)
	EntryAdjustment EntryType = "adjustment" // manual admin correction
)

type LedgerEntry struct {
	ID             EntryID
	EmployeeID     EmployeeID
	RequestID      RequestID
	Type           EntryType
	Hours          Amount
	Before         Balance
	After          Balance
	Reason         string
	IdempotencyKey string

	// Audit fields
	ActorID   string
	CreatedAt time.Time
}
