package timeoff_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/generic/store"
	"github.com/warp/vacation-engine/timeoff"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Friday 2026-10-16, 09:00. Mon 19 .. Fri 23 are the next workdays.
var now = time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)

var (
	mon = generic.MustParseDate("2026-10-19")
	tue = generic.MustParseDate("2026-10-20")
	wed = generic.MustParseDate("2026-10-21")
	thu = generic.MustParseDate("2026-10-22")
	fri = generic.MustParseDate("2026-10-23")
)

var admin = timeoff.Actor{ID: "admin-1", Admin: true}

func employee(id string) timeoff.Actor { return timeoff.Actor{ID: id} }

type fixture struct {
	svc   *timeoff.Service
	store *store.Memory
	clock *generic.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	clock := generic.NewManualClock(now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{svc: timeoff.NewService(mem, clock, logger), store: mem, clock: clock}
}

func (f *fixture) hire(t *testing.T, id, role string, hours int) {
	t.Helper()
	_, err := f.svc.CreateEmployee(context.Background(), admin, generic.Employee{
		ID:      generic.EmployeeID(id),
		Name:    "Employee " + id,
		Role:    role,
		Balance: generic.NewBalance(generic.Hours(hours), generic.Hours(hours)),
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, id string) generic.Balance {
	t.Helper()
	emp, err := f.svc.GetEmployee(context.Background(), generic.EmployeeID(id))
	require.NoError(t, err)
	return emp.Balance
}

func (f *fixture) requestDays(t *testing.T, id string, dates ...generic.TimePoint) *timeoff.Result {
	t.Helper()
	res, err := f.svc.CreateRequest(context.Background(), employee(id), generic.EmployeeID(id), generic.DaysPayload{Dates: dates}, "")
	require.NoError(t, err)
	return res
}

func (f *fixture) approvedDays(t *testing.T, id string, dates ...generic.TimePoint) generic.RequestID {
	t.Helper()
	res := f.requestDays(t, id, dates...)
	_, err := f.svc.ApproveRequest(context.Background(), admin, res.Request.ID, "ok")
	require.NoError(t, err)
	return res.Request.ID
}

func assertBalance(t *testing.T, b generic.Balance, available, pending int) {
	t.Helper()
	assert.True(t, b.Available.Equal(generic.Hours(available)), "available: want %d, got %s", available, b.Available)
	assert.True(t, b.Pending.Equal(generic.Hours(pending)), "pending: want %d, got %s", pending, b.Pending)
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreateRequest_HoldsEightHoursPerDay(t *testing.T) {
	// GIVEN: An employee with 160 hours
	// WHEN: They request 3 selectable days
	// THEN: 24 hours are held, available is untouched
	f := newFixture(t)
	f.hire(t, "ana", "Fresador", 160)

	res := f.requestDays(t, "ana", mon, tue, wed)

	assert.Equal(t, generic.StatePending, res.Request.State)
	assert.Equal(t, 24, res.Request.HoursRequested)
	assertBalance(t, res.Balance, 160, 24)
	assertBalance(t, f.balance(t, "ana"), 160, 24)
}

func TestCreateRequest_RejectsUnselectableDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	require.NoError(t, f.svc.Calendar.Add(ctx, generic.Holiday{Date: thu, Name: "Fiesta local"}))

	cases := map[string]generic.TimePoint{
		"today":     generic.MustParseDate("2026-10-16"),
		"yesterday": generic.MustParseDate("2026-10-15"),
		"weekend":   generic.MustParseDate("2026-10-24"),
		"holiday":   thu,
	}
	for name, date := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.DaysPayload{Dates: []generic.TimePoint{date}}, "")
			assert.ErrorIs(t, err, generic.ErrValidation)
		})
	}
	assertBalance(t, f.balance(t, "ana"), 160, 0)
}

func TestCreateRequest_RejectsDuplicateAndAlreadyRequestedDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	f.requestDays(t, "ana", mon, tue)

	_, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.DaysPayload{Dates: []generic.TimePoint{tue, wed}}, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.DaysPayload{Dates: []generic.TimePoint{wed, wed}}, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.HoursPayload{Date: mon, Hours: 4}, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	assertBalance(t, f.balance(t, "ana"), 160, 16)
}

func TestCreateRequest_KindRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)

	_, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.HoursPayload{Date: mon, Hours: 8}, "")
	assert.ErrorIs(t, err, generic.ErrValidation, "a full day must be a days request")

	_, err = f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.DaysPayload{}, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.AdjustmentPayload{Type: generic.AdjustAdd, Hours: 8}, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	res, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.HoursPayload{Date: mon, Hours: 3}, "doctor")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Request.HoursRequested)

	res, err = f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.SalePayload{Hours: 40}, "")
	require.NoError(t, err)
	assert.Empty(t, res.Request.Dates())
	assertBalance(t, res.Balance, 160, 43)
}

func TestCreateRequest_InsufficientBalance(t *testing.T) {
	// GIVEN: 16 hours available
	// WHEN: Requesting 3 days
	// THEN: InsufficientBalance, nothing held, nothing stored
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 16)

	_, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.DaysPayload{Dates: []generic.TimePoint{mon, tue, wed}}, "")
	var insufficient *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Free.Equal(generic.Hours(16)))

	assertBalance(t, f.balance(t, "ana"), 16, 0)
	reqs, err := f.svc.ListRequests(ctx, generic.RequestFilter{RequesterID: "ana"})
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestCreateRequest_ForSomeoneElse(t *testing.T) {
	f := newFixture(t)
	f.hire(t, "ana", "Fresador", 160)

	_, err := f.svc.CreateRequest(context.Background(), employee("luis"), "ana", generic.DaysPayload{Dates: []generic.TimePoint{mon}}, "")
	assert.ErrorIs(t, err, generic.ErrPermission)
}

func TestCreateRequest_UnknownEmployee(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRequest(context.Background(), admin, "ghost", generic.DaysPayload{Dates: []generic.TimePoint{mon}}, "")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// APPROVE / DENY / WITHDRAW
// =============================================================================

func TestExampleScenario_ApproveThenPartialCancel(t *testing.T) {
	// GIVEN: available=160, pending=0
	// WHEN: 3-day request, admin approves, employee cancels one future day
	// THEN: 160/24 -> 136/0 -> 144/0, request still approved with 2 live dates
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)

	created := f.requestDays(t, "ana", mon, tue, wed)
	assertBalance(t, created.Balance, 160, 24)

	approved, err := f.svc.ApproveRequest(ctx, admin, created.Request.ID, "enjoy")
	require.NoError(t, err)
	assertBalance(t, approved.Balance, 136, 0)
	assert.Equal(t, generic.StateApproved, approved.Request.State)
	require.NotNil(t, approved.Request.AvailableBefore)
	assert.True(t, approved.Request.AvailableBefore.Equal(generic.Hours(160)))
	assert.True(t, approved.Request.AvailableAfter.Equal(generic.Hours(136)))
	assert.Equal(t, "enjoy", approved.Request.AdminComment)
	assert.NotNil(t, approved.Request.ResolvedAt)

	partial, err := f.svc.CancelRequestPartial(ctx, employee("ana"), created.Request.ID, []generic.TimePoint{tue}, "plans changed")
	require.NoError(t, err)
	assertBalance(t, partial.Balance, 144, 0)
	assert.Equal(t, generic.StateApproved, partial.Request.State)
	require.NotNil(t, partial.Partial)
	assert.Equal(t, 8, partial.Partial.HoursReturned)
	assert.False(t, partial.Partial.IsAdminAction)
	assert.True(t, partial.Partial.AvailableBefore.Equal(generic.Hours(136)))
	assert.True(t, partial.Partial.AvailableAfter.Equal(generic.Hours(144)))

	detail, err := f.svc.GetRequest(ctx, created.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-10-19", "2026-10-21"}, generic.DateStrings(detail.LiveDates))
	assert.Len(t, detail.Partials, 1)
}

func TestApproveRequest_AdminOnlyAndPendingOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	res := f.requestDays(t, "ana", mon)

	_, err := f.svc.ApproveRequest(ctx, employee("ana"), res.Request.ID, "")
	assert.ErrorIs(t, err, generic.ErrPermission)

	_, err = f.svc.ApproveRequest(ctx, admin, res.Request.ID, "")
	require.NoError(t, err)

	_, err = f.svc.ApproveRequest(ctx, admin, res.Request.ID, "")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	assertBalance(t, f.balance(t, "ana"), 152, 0)

	_, err = f.svc.ApproveRequest(ctx, admin, "ghost", "")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestDenyRequest_ReleasesExactHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	res := f.requestDays(t, "ana", mon, tue)

	_, err := f.svc.DenyRequest(ctx, admin, res.Request.ID, "  ")
	assert.ErrorIs(t, err, generic.ErrValidation, "reason is required")

	denied, err := f.svc.DenyRequest(ctx, admin, res.Request.ID, "peak season")
	require.NoError(t, err)
	assert.Equal(t, generic.StateDenied, denied.Request.State)
	assert.Equal(t, "peak season", denied.Request.AdminComment)
	assertBalance(t, denied.Balance, 160, 0)

	_, err = f.svc.DenyRequest(ctx, admin, res.Request.ID, "again")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestDenyRequest_ApprovedIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	f.hire(t, "ana", "Fresador", 160)
	id := f.approvedDays(t, "ana", mon)

	_, err := f.svc.DenyRequest(context.Background(), admin, id, "too late")
	var transition *generic.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "deny", transition.Action)
}

func TestWithdrawRequest_DeletesAndReleases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	res := f.requestDays(t, "ana", mon, tue)

	_, err := f.svc.WithdrawRequest(ctx, employee("luis"), res.Request.ID)
	assert.ErrorIs(t, err, generic.ErrPermission)

	out, err := f.svc.WithdrawRequest(ctx, employee("ana"), res.Request.ID)
	require.NoError(t, err)
	assertBalance(t, out.Balance, 160, 0)

	_, err = f.svc.GetRequest(ctx, res.Request.ID)
	assert.ErrorIs(t, err, generic.ErrNotFound)

	// the dates are free again
	f.requestDays(t, "ana", mon)
}

func TestWithdrawRequest_ApprovedRejected(t *testing.T) {
	f := newFixture(t)
	f.hire(t, "ana", "Fresador", 160)
	id := f.approvedDays(t, "ana", mon)

	_, err := f.svc.WithdrawRequest(context.Background(), employee("ana"), id)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

// =============================================================================
// CANCEL
// =============================================================================

func TestCancelFull_RoundTripRestoresAvailable(t *testing.T) {
	// GIVEN: An approved 3-day request with no elapsed dates
	// WHEN: It is cancelled in full
	// THEN: available returns to its pre-approval value
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	id := f.approvedDays(t, "ana", mon, tue, wed)
	assertBalance(t, f.balance(t, "ana"), 136, 0)

	_, err := f.svc.CancelRequestFull(ctx, employee("ana"), id, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	res, err := f.svc.CancelRequestFull(ctx, employee("ana"), id, "surgery moved")
	require.NoError(t, err)
	assert.Equal(t, generic.StateCancelled, res.Request.State)
	assert.Equal(t, "surgery moved", res.Request.CancellationReason)
	assert.NotNil(t, res.Request.CancelledAt)
	assertBalance(t, res.Balance, 160, 0)

	_, err = f.svc.CancelRequestFull(ctx, employee("ana"), id, "twice")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestCancelFull_PendingReleasesHold(t *testing.T) {
	f := newFixture(t)
	f.hire(t, "ana", "Fresador", 160)
	res := f.requestDays(t, "ana", mon, tue)

	out, err := f.svc.CancelRequestFull(context.Background(), admin, res.Request.ID, "no longer needed")
	require.NoError(t, err)
	assertBalance(t, out.Balance, 160, 0)
}

func TestCancelFull_EnjoyedDatesAreNotRefunded(t *testing.T) {
	// GIVEN: Approved Mon+Tue+Wed, one of them cancelled, and it is now Monday
	// WHEN: The request is cancelled in full
	// THEN: Only the remaining future live date (Wed) is refunded
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	id := f.approvedDays(t, "ana", mon, tue, wed)
	_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{tue}, "x")
	require.NoError(t, err)
	assertBalance(t, f.balance(t, "ana"), 144, 0)

	f.clock.AddDays(3) // Monday 19th

	res, err := f.svc.CancelRequestFull(ctx, employee("ana"), id, "sick")
	require.NoError(t, err)
	assertBalance(t, res.Balance, 152, 0)
}

func TestCancelFull_SaleRefundsConsumedHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	sale, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.SalePayload{Hours: 40}, "")
	require.NoError(t, err)
	_, err = f.svc.ApproveRequest(ctx, admin, sale.Request.ID, "")
	require.NoError(t, err)
	assertBalance(t, f.balance(t, "ana"), 120, 0)

	res, err := f.svc.CancelRequestFull(ctx, admin, sale.Request.ID, "payroll closed")
	require.NoError(t, err)
	assertBalance(t, res.Balance, 160, 0)
}

func TestCancelPartial_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	id := f.approvedDays(t, "ana", mon, tue, wed)

	_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{tue}, "x")
	require.NoError(t, err)

	t.Run("already cancelled date", func(t *testing.T) {
		_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{tue}, "again")
		assert.ErrorIs(t, err, generic.ErrValidation)
	})
	t.Run("foreign date", func(t *testing.T) {
		_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{fri}, "x")
		assert.ErrorIs(t, err, generic.ErrValidation)
	})
	t.Run("all remaining dates", func(t *testing.T) {
		_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{mon, wed}, "x")
		assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	})
	t.Run("empty selection", func(t *testing.T) {
		_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, nil, "x")
		assert.ErrorIs(t, err, generic.ErrValidation)
	})
	t.Run("missing reason", func(t *testing.T) {
		_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{mon}, "")
		assert.ErrorIs(t, err, generic.ErrValidation)
	})

	assertBalance(t, f.balance(t, "ana"), 144, 0)
}

func TestCancelPartial_HoursAndPendingRequestsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)

	hours, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.HoursPayload{Date: fri, Hours: 2}, "")
	require.NoError(t, err)
	_, err = f.svc.ApproveRequest(ctx, admin, hours.Request.ID, "")
	require.NoError(t, err)
	_, err = f.svc.CancelRequestPartial(ctx, employee("ana"), hours.Request.ID, []generic.TimePoint{fri}, "x")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	pending := f.requestDays(t, "ana", mon, tue)
	_, err = f.svc.CancelRequestPartial(ctx, employee("ana"), pending.Request.ID, []generic.TimePoint{mon}, "x")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestCancelPartial_ElapsedDatesAdminOnly(t *testing.T) {
	// GIVEN: Approved Mon..Wed, and it is now Tuesday
	// WHEN: The employee tries to cancel Monday
	// THEN: PermissionError; an admin may do it and gets a refund
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	id := f.approvedDays(t, "ana", mon, tue, wed)
	f.clock.AddDays(4) // Tuesday 20th

	_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{mon}, "x")
	assert.ErrorIs(t, err, generic.ErrPermission)

	res, err := f.svc.CancelRequestPartial(ctx, admin, id, []generic.TimePoint{mon}, "was on site")
	require.NoError(t, err)
	assert.True(t, res.Partial.IsAdminAction)
	assertBalance(t, res.Balance, 144, 0)
}

// =============================================================================
// EDIT
// =============================================================================

func TestEditRequest_PendingAppliesDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	res := f.requestDays(t, "ana", mon, tue)

	comment := "longer trip"
	out, err := f.svc.EditRequest(ctx, employee("ana"), res.Request.ID, timeoff.EditInput{
		Dates: []generic.TimePoint{wed, tue, mon, thu}, Comment: &comment,
	})
	require.NoError(t, err)
	assert.Equal(t, 32, out.Request.HoursRequested)
	assert.Equal(t, "longer trip", out.Request.RequesterComment)
	assert.Equal(t, generic.StatePending, out.Request.State)
	assertBalance(t, out.Balance, 160, 32)

	out, err = f.svc.EditRequest(ctx, employee("ana"), res.Request.ID, timeoff.EditInput{Dates: []generic.TimePoint{fri}})
	require.NoError(t, err)
	assertBalance(t, out.Balance, 160, 8)
	assert.Equal(t, "longer trip", out.Request.RequesterComment)
}

func TestEditRequest_ApprovedRevertsToPending(t *testing.T) {
	// GIVEN: Approved Mon..Wed with Tue partially cancelled (available 144)
	// WHEN: The request is edited to Thu+Fri
	// THEN: The 16 live hours are refunded, 16 new hours held, state pending
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	id := f.approvedDays(t, "ana", mon, tue, wed)
	_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{tue}, "x")
	require.NoError(t, err)

	out, err := f.svc.EditRequest(ctx, employee("ana"), id, timeoff.EditInput{Dates: []generic.TimePoint{thu, fri}})
	require.NoError(t, err)
	assert.Equal(t, generic.StatePending, out.Request.State)
	assert.Empty(t, out.Request.AdminComment)
	assert.Nil(t, out.Request.ResolvedAt)
	assertBalance(t, out.Balance, 160, 16)

	detail, err := f.svc.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-10-22", "2026-10-23"}, generic.DateStrings(detail.LiveDates))

	// pending again: a full cancellation releases exactly hoursRequested
	cancelled, err := f.svc.CancelRequestFull(ctx, employee("ana"), id, "nope")
	require.NoError(t, err)
	assertBalance(t, cancelled.Balance, 160, 0)
}

func TestEditRequest_StartedOrForeignRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	res := f.requestDays(t, "ana", mon, tue)

	_, err := f.svc.EditRequest(ctx, employee("luis"), res.Request.ID, timeoff.EditInput{Dates: []generic.TimePoint{wed}})
	assert.ErrorIs(t, err, generic.ErrPermission)

	f.clock.AddDays(3) // Monday: the request started
	_, err = f.svc.EditRequest(ctx, employee("ana"), res.Request.ID, timeoff.EditInput{Dates: []generic.TimePoint{thu}})
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

// =============================================================================
// BALANCE ADJUSTMENT
// =============================================================================

func TestAdjustBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	f.requestDays(t, "ana", mon, tue) // 16 pending

	_, err := f.svc.AdjustBalance(ctx, employee("ana"), "ana", generic.AdjustAdd, 8, "bonus")
	assert.ErrorIs(t, err, generic.ErrPermission)

	_, err = f.svc.AdjustBalance(ctx, admin, "ana", generic.AdjustAdd, 8, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	res, err := f.svc.AdjustBalance(ctx, admin, "ana", generic.AdjustAdd, 8, "overtime compensation")
	require.NoError(t, err)
	assert.Equal(t, generic.StateApproved, res.Request.State)
	assert.Equal(t, generic.KindAdjustment, res.Request.Kind())
	assertBalance(t, res.Balance, 168, 16)

	_, err = f.svc.AdjustBalance(ctx, admin, "ana", generic.AdjustSubtract, 160, "too much")
	assert.ErrorIs(t, err, generic.ErrInsufficientBalance)

	res, err = f.svc.AdjustBalance(ctx, admin, "ana", generic.AdjustSubtract, 152, "correction")
	require.NoError(t, err)
	assertBalance(t, res.Balance, 16, 16)

	_, err = f.svc.AdjustBalance(ctx, admin, "ana", generic.AdjustSet, 8, "below pending")
	assert.ErrorIs(t, err, generic.ErrValidation)

	res, err = f.svc.AdjustBalance(ctx, admin, "ana", generic.AdjustSet, 120, "new year")
	require.NoError(t, err)
	assertBalance(t, res.Balance, 120, 16)
	require.NotNil(t, res.Request.AvailableBefore)
	assert.True(t, res.Request.AvailableBefore.Equal(generic.Hours(16)))

	_, err = f.svc.CancelRequestFull(ctx, admin, res.Request.ID, "undo")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

// =============================================================================
// BULK
// =============================================================================

func TestBulkApprove_KeepsSuccessesReportsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	f.hire(t, "luis", "Tornero", 160)
	a := f.requestDays(t, "ana", mon)
	l := f.requestDays(t, "luis", mon)
	done := f.approvedDays(t, "ana", tue)

	out, err := f.svc.BulkApprove(ctx, admin, []generic.RequestID{a.Request.ID, done, "ghost", l.Request.ID}, "ok")
	require.NoError(t, err)
	assert.Equal(t, []generic.RequestID{a.Request.ID, l.Request.ID}, out.Succeeded)
	require.Len(t, out.Failed, 2)
	assert.ErrorIs(t, out.Failed[0].Err, generic.ErrInvalidTransition)
	assert.ErrorIs(t, out.Failed[1].Err, generic.ErrNotFound)

	assertBalance(t, f.balance(t, "ana"), 144, 0)
	assertBalance(t, f.balance(t, "luis"), 152, 0)

	_, err = f.svc.BulkApprove(ctx, employee("ana"), []generic.RequestID{a.Request.ID}, "")
	assert.ErrorIs(t, err, generic.ErrPermission)
}

func TestBulkDeny_RequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	a := f.requestDays(t, "ana", mon)
	b := f.requestDays(t, "ana", tue)

	_, err := f.svc.BulkDeny(ctx, admin, []generic.RequestID{a.Request.ID}, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	out, err := f.svc.BulkDeny(ctx, admin, []generic.RequestID{a.Request.ID, b.Request.ID}, "shutdown week")
	require.NoError(t, err)
	assert.Len(t, out.Succeeded, 2)
	assert.Empty(t, out.Failed)
	assertBalance(t, f.balance(t, "ana"), 160, 0)
}

// =============================================================================
// AUTO-APPROVAL
// =============================================================================

func TestAutoApprove_ByHoursBoundary(t *testing.T) {
	// GIVEN: mode=byHours, maxHours=8
	// WHEN: 8 hours and 9 hours are requested
	// THEN: 8 is approved automatically with the policy message, 9 waits
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	require.NoError(t, f.svc.SavePolicy(ctx, admin, generic.VacationPolicy{
		AutoApprove: generic.AutoApprovalPolicy{Enabled: true, Mode: generic.AutoApproveByHours, MaxHours: 8, Message: "Auto OK"},
	}))

	eight := f.requestDays(t, "ana", mon)
	assert.True(t, eight.AutoApproved)
	assert.Equal(t, generic.StateApproved, eight.Request.State)
	assert.Equal(t, "Auto OK", eight.Request.AdminComment)
	assert.Equal(t, timeoff.SystemActor.ID, eight.Request.ResolvedBy)

	nine, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.SalePayload{Hours: 9}, "")
	require.NoError(t, err)
	assert.False(t, nine.AutoApproved)
	assert.Equal(t, generic.StatePending, nine.Request.State)

	assertBalance(t, f.balance(t, "ana"), 152, 9)
}

func TestAutoApprove_NoConflictsChecksRequesterRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	f.hire(t, "bea", "Fresador", 160)
	f.hire(t, "luis", "Tornero", 160)
	f.approvedDays(t, "ana", mon)

	require.NoError(t, f.svc.SavePolicy(ctx, admin, generic.VacationPolicy{
		AutoApprove: generic.AutoApprovalPolicy{Enabled: true, Mode: generic.AutoApproveNoConflicts},
	}))

	// one Fresador is already away on Monday: threshold 1 is met
	bea := f.requestDays(t, "bea", mon)
	assert.False(t, bea.AutoApproved)

	luis := f.requestDays(t, "luis", mon)
	assert.True(t, luis.AutoApproved)
	assert.Equal(t, generic.DefaultAutoApproveMessage, luis.Request.AdminComment)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestConcurrentCreates_NeverOverdraw(t *testing.T) {
	// GIVEN: 40 hours available
	// WHEN: 10 one-day requests race
	// THEN: Exactly 5 succeed and pending equals the sum of their holds
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 40)

	var dates []generic.TimePoint
	for d := mon; len(dates) < 10; d = d.AddDays(1) {
		if !d.IsWeekend() {
			dates = append(dates, d)
		}
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, d := range dates {
		wg.Add(1)
		go func(d generic.TimePoint) {
			defer wg.Done()
			_, err := f.svc.CreateRequest(ctx, employee("ana"), "ana", generic.DaysPayload{Dates: []generic.TimePoint{d}}, "")
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, generic.ErrInsufficientBalance)
		}(d)
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assertBalance(t, f.balance(t, "ana"), 40, 40)

	entries, err := f.svc.Ledger(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

// =============================================================================
// LEDGER HISTORY
// =============================================================================

func TestLedger_RecordsEveryMovement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hire(t, "ana", "Fresador", 160)
	id := f.approvedDays(t, "ana", mon, tue, wed)
	_, err := f.svc.CancelRequestPartial(ctx, employee("ana"), id, []generic.TimePoint{wed}, "x")
	require.NoError(t, err)

	entries, err := f.svc.Ledger(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, generic.EntryHold, entries[0].Type)
	assert.Equal(t, generic.EntryConsume, entries[1].Type)
	assert.Equal(t, generic.EntryRefund, entries[2].Type)
	assert.True(t, entries[2].Before.Available.Equal(generic.Hours(136)))
	assert.True(t, entries[2].After.Available.Equal(generic.Hours(144)))

	_, err = f.svc.Ledger(ctx, "ghost")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}
