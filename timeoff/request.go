package timeoff

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// CREATE
// =============================================================================

// CreateRequest validates payload, holds its hours and stores a pending
// request. The auto-approval policy is then evaluated and, if it approves,
// the request is approved in a second transaction.
//
// Balance adjustments are not created here; see AdjustBalance.
func (s *Service) CreateRequest(
	ctx context.Context,
	actor Actor,
	requesterID generic.EmployeeID,
	payload generic.Payload,
	comment string,
) (*Result, error) {
	if !actor.Admin && actor.ID != string(requesterID) {
		return nil, &generic.PermissionError{ActorID: actor.ID, Action: "create requests", Message: "employees may only request for themselves"}
	}
	if _, ok := payload.(generic.AdjustmentPayload); ok {
		return nil, generic.Invalid("kind", "balance adjustments are recorded with AdjustBalance")
	}

	now := s.Clock.Now()
	r := generic.LeaveRequest{
		ID:               generic.RequestID(uuid.NewString()),
		RequesterID:      requesterID,
		Payload:          payload,
		HoursRequested:   generic.PayloadHours(payload),
		State:            generic.StatePending,
		Revision:         1,
		RequesterComment: strings.TrimSpace(comment),
		RequestedAt:      now,
		UpdatedAt:        now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkSelectable(ctx, r.Dates()); err != nil {
		return nil, err
	}

	var res *Result
	err := s.inTx(ctx, func(tx generic.Store, ledger *generic.BalanceLedger) error {
		if _, err := tx.GetEmployee(ctx, requesterID); err != nil {
			return err
		}
		if err := checkNotRequested(ctx, tx, &r, r.Dates()); err != nil {
			return err
		}
		if _, err := ledger.Hold(ctx, requesterID, generic.Hours(r.HoursRequested), generic.EntryRef{
			RequestID:      r.ID,
			ActorID:        actor.ID,
			Reason:         "request created",
			IdempotencyKey: key("hold", r.ID, r.Revision),
		}); err != nil {
			return err
		}
		if err := tx.SaveRequest(ctx, r); err != nil {
			return err
		}
		var err error
		res, err = result(ctx, tx, r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("request created",
		"request", r.ID, "employee", requesterID, "kind", r.Kind(), "hours", r.HoursRequested)
	s.emit(ctx, requestEvent(EventRequestCreated, res, actor, now))

	return s.autoApprove(ctx, res), nil
}

// autoApprove applies the vacation policy to a freshly created request.
// Failures leave the request pending; creation already succeeded.
func (s *Service) autoApprove(ctx context.Context, created *Result) *Result {
	policy, err := s.Config.GetVacationPolicy(ctx)
	if err != nil {
		s.Logger.Warn("auto-approve skipped: policy unavailable", "request", created.Request.ID, "error", err)
		return created
	}
	if !policy.AutoApprove.Enabled {
		return created
	}

	emp, err := s.Store.GetEmployee(ctx, created.Request.RequesterID)
	if err != nil {
		s.Logger.Warn("auto-approve skipped", "request", created.Request.ID, "error", err)
		return created
	}
	ok, err := Evaluate(policy.AutoApprove, &created.Request, s.conflictProbe(ctx, emp.Role))
	if err != nil {
		s.Logger.Warn("auto-approve evaluation failed", "request", created.Request.ID, "error", err)
		return created
	}
	if !ok {
		return created
	}

	approved, err := s.ApproveRequest(ctx, SystemActor, created.Request.ID, approvalMessage(policy.AutoApprove))
	if err != nil {
		s.Logger.Warn("auto-approve failed", "request", created.Request.ID, "error", err)
		return created
	}
	approved.AutoApproved = true
	return approved
}

// =============================================================================
// APPROVE / DENY / WITHDRAW
// =============================================================================

// ApproveRequest consumes the held hours of a pending request.
func (s *Service) ApproveRequest(ctx context.Context, actor Actor, id generic.RequestID, comment string) (*Result, error) {
	if err := s.requireAdmin(actor, "approve requests"); err != nil {
		return nil, err
	}

	var res *Result
	err := s.inTx(ctx, func(tx generic.Store, ledger *generic.BalanceLedger) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if r.State != generic.StatePending {
			return &generic.InvalidTransitionError{RequestID: id, Action: "approve", Message: fmt.Sprintf("request is %s", r.State)}
		}

		mv, err := ledger.Consume(ctx, r.RequesterID, generic.Hours(r.HoursRequested), generic.EntryRef{
			RequestID:      r.ID,
			ActorID:        actor.ID,
			Reason:         "request approved",
			IdempotencyKey: key("consume", r.ID, r.Revision),
		})
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		r.State = generic.StateApproved
		r.AdminComment = strings.TrimSpace(comment)
		r.ResolvedBy = actor.ID
		r.ResolvedAt = &now
		r.UpdatedAt = now
		r.SetSnapshot(mv.Before.Available, mv.After.Available)
		if err := tx.SaveRequest(ctx, *r); err != nil {
			return err
		}
		res, err = result(ctx, tx, *r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("request approved", "request", id, "by", actor.ID)
	s.emit(ctx, requestEvent(EventRequestApproved, res, actor, s.Clock.Now()))
	return res, nil
}

// DenyRequest releases the hold of a pending request. reason is required.
func (s *Service) DenyRequest(ctx context.Context, actor Actor, id generic.RequestID, reason string) (*Result, error) {
	if err := s.requireAdmin(actor, "deny requests"); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, generic.Invalid("reason", "a reason is required to deny a request")
	}

	var res *Result
	err := s.inTx(ctx, func(tx generic.Store, ledger *generic.BalanceLedger) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if r.State != generic.StatePending {
			return &generic.InvalidTransitionError{RequestID: id, Action: "deny", Message: fmt.Sprintf("request is %s", r.State)}
		}

		mv, err := ledger.Release(ctx, r.RequesterID, generic.Hours(r.HoursRequested), generic.EntryRef{
			RequestID:      r.ID,
			ActorID:        actor.ID,
			Reason:         reason,
			IdempotencyKey: key("release", r.ID, r.Revision),
		})
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		r.State = generic.StateDenied
		r.AdminComment = reason
		r.ResolvedBy = actor.ID
		r.ResolvedAt = &now
		r.UpdatedAt = now
		r.SetSnapshot(mv.Before.Available, mv.After.Available)
		if err := tx.SaveRequest(ctx, *r); err != nil {
			return err
		}
		res, err = result(ctx, tx, *r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("request denied", "request", id, "by", actor.ID)
	s.emit(ctx, requestEvent(EventRequestDenied, res, actor, s.Clock.Now()))
	return res, nil
}

// WithdrawRequest deletes a pending request and releases its hold.
func (s *Service) WithdrawRequest(ctx context.Context, actor Actor, id generic.RequestID) (*Result, error) {
	var res *Result
	err := s.inTx(ctx, func(tx generic.Store, ledger *generic.BalanceLedger) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := s.requireOwnerOrAdmin(actor, r, "withdraw"); err != nil {
			return err
		}
		if r.State != generic.StatePending {
			return &generic.InvalidTransitionError{RequestID: id, Action: "withdraw", Message: fmt.Sprintf("request is %s; only pending requests can be withdrawn", r.State)}
		}

		if _, err := ledger.Release(ctx, r.RequesterID, generic.Hours(r.HoursRequested), generic.EntryRef{
			RequestID:      r.ID,
			ActorID:        actor.ID,
			Reason:         "request withdrawn",
			IdempotencyKey: key("release", r.ID, r.Revision),
		}); err != nil {
			return err
		}
		if err := tx.DeleteRequest(ctx, id); err != nil {
			return err
		}
		res, err = result(ctx, tx, *r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("request withdrawn", "request", id, "by", actor.ID)
	s.emit(ctx, requestEvent(EventRequestWithdrawn, res, actor, s.Clock.Now()))
	return res, nil
}

// =============================================================================
// EDIT
// =============================================================================

// EditRequest replaces the dates/hours of a request that has not started.
// An approved request goes back to pending: its live hours are refunded and
// the new total is held. A pending request only moves the difference.
// Editing starts a new revision, so earlier partial cancellations stop
// applying. Auto-approval is not re-run.
func (s *Service) EditRequest(ctx context.Context, actor Actor, id generic.RequestID, in EditInput) (*Result, error) {
	current, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrAdmin(actor, current, "edit"); err != nil {
		return nil, err
	}
	payload, err := editedPayload(current, in)
	if err != nil {
		return nil, err
	}
	probe := generic.LeaveRequest{ID: id, Payload: payload, HoursRequested: generic.PayloadHours(payload)}
	if err := probe.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkSelectable(ctx, probe.Dates()); err != nil {
		return nil, err
	}

	var res *Result
	err = s.inTx(ctx, func(tx generic.Store, ledger *generic.BalanceLedger) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if r.State != generic.StatePending && r.State != generic.StateApproved {
			return &generic.InvalidTransitionError{RequestID: id, Action: "edit", Message: fmt.Sprintf("request is %s", r.State)}
		}
		if first, ok := r.FirstDate(); ok && s.Calendar.IsPastOrToday(first) {
			return &generic.InvalidTransitionError{RequestID: id, Action: "edit", Message: "the request has already started"}
		}
		if err := checkNotRequested(ctx, tx, r, probe.Dates()); err != nil {
			return err
		}

		newHours := probe.HoursRequested
		nextRev := r.Revision + 1
		ref := func(kind, reason string) generic.EntryRef {
			return generic.EntryRef{RequestID: r.ID, ActorID: actor.ID, Reason: reason, IdempotencyKey: key(kind, r.ID, nextRev)}
		}

		switch r.State {
		case generic.StateApproved:
			children, err := tx.ListPartialCancellations(ctx, r.ID)
			if err != nil {
				return err
			}
			live := r.HoursRequested - generic.HoursReturnedOf(r, children)
			refund, err := ledger.Refund(ctx, r.RequesterID, generic.Hours(live), ref("edit-refund", "approved request edited"))
			if err != nil {
				return err
			}
			if _, err := ledger.Hold(ctx, r.RequesterID, generic.Hours(newHours), ref("hold", "approved request edited")); err != nil {
				return err
			}
			r.SetSnapshot(refund.Before.Available, refund.After.Available)
			r.State = generic.StatePending
			r.AdminComment = ""
			r.ResolvedBy = ""
			r.ResolvedAt = nil

		case generic.StatePending:
			delta := newHours - r.HoursRequested
			if delta > 0 {
				if _, err := ledger.Hold(ctx, r.RequesterID, generic.Hours(delta), ref("hold", "pending request edited")); err != nil {
					return err
				}
			} else if delta < 0 {
				if _, err := ledger.Release(ctx, r.RequesterID, generic.Hours(-delta), ref("edit-release", "pending request edited")); err != nil {
					return err
				}
			}
		}

		r.Payload = payload
		r.HoursRequested = newHours
		r.Revision = nextRev
		if in.Comment != nil {
			r.RequesterComment = strings.TrimSpace(*in.Comment)
		}
		r.UpdatedAt = s.Clock.Now()
		if err := tx.SaveRequest(ctx, *r); err != nil {
			return err
		}
		res, err = result(ctx, tx, *r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("request edited", "request", id, "by", actor.ID, "hours", res.Request.HoursRequested)
	s.emit(ctx, requestEvent(EventRequestEdited, res, actor, s.Clock.Now()))
	return res, nil
}

func editedPayload(r *generic.LeaveRequest, in EditInput) (generic.Payload, error) {
	switch r.Payload.(type) {
	case generic.DaysPayload:
		dates := append([]generic.TimePoint(nil), in.Dates...)
		generic.SortDates(dates)
		return generic.DaysPayload{Dates: dates}, nil
	case generic.HoursPayload:
		date := in.Date
		if date.IsZero() && len(in.Dates) == 1 {
			date = in.Dates[0]
		}
		return generic.HoursPayload{Date: date, Hours: in.Hours}, nil
	case generic.SalePayload:
		return generic.SalePayload{Hours: in.Hours}, nil
	}
	return nil, &generic.InvalidTransitionError{RequestID: r.ID, Action: "edit", Message: fmt.Sprintf("%s requests cannot be edited", r.Kind())}
}

// =============================================================================
// CANCEL
// =============================================================================

// CancelRequestFull cancels a pending or approved request. A pending
// request releases its hold. An approved request refunds its live dates
// that have not elapsed yet; enjoyed days stay consumed.
func (s *Service) CancelRequestFull(ctx context.Context, actor Actor, id generic.RequestID, reason string) (*Result, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, generic.Invalid("reason", "a reason is required to cancel a request")
	}

	var res *Result
	err := s.inTx(ctx, func(tx generic.Store, ledger *generic.BalanceLedger) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := s.requireOwnerOrAdmin(actor, r, "cancel"); err != nil {
			return err
		}
		if r.Kind() == generic.KindAdjustment {
			return &generic.InvalidTransitionError{RequestID: id, Action: "cancel", Message: "balance adjustments cannot be cancelled"}
		}
		children, err := tx.ListPartialCancellations(ctx, r.ID)
		if err != nil {
			return err
		}

		ref := generic.EntryRef{RequestID: r.ID, ActorID: actor.ID, Reason: reason, IdempotencyKey: key("cancel", r.ID, r.Revision)}
		var mv generic.Movement
		switch r.State {
		case generic.StatePending:
			held := r.HoursRequested - generic.HoursReturnedOf(r, children)
			if mv, err = ledger.Release(ctx, r.RequesterID, generic.Hours(held), ref); err != nil {
				return err
			}
		case generic.StateApproved:
			refund := s.refundableHours(r, children)
			if refund > 0 {
				if mv, err = ledger.Refund(ctx, r.RequesterID, generic.Hours(refund), ref); err != nil {
					return err
				}
			} else {
				emp, err := tx.GetEmployee(ctx, r.RequesterID)
				if err != nil {
					return err
				}
				mv = generic.Movement{Before: emp.Balance, After: emp.Balance}
			}
		default:
			return &generic.InvalidTransitionError{RequestID: id, Action: "cancel", Message: fmt.Sprintf("request is %s", r.State)}
		}

		now := s.Clock.Now()
		r.State = generic.StateCancelled
		r.CancellationReason = reason
		r.CancelledAt = &now
		r.UpdatedAt = now
		r.SetSnapshot(mv.Before.Available, mv.After.Available)
		if err := tx.SaveRequest(ctx, *r); err != nil {
			return err
		}
		res, err = result(ctx, tx, *r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("request cancelled", "request", id, "by", actor.ID, "reason", reason)
	s.emit(ctx, requestEvent(EventRequestCancelled, res, actor, s.Clock.Now()))
	return res, nil
}

// refundableHours is what cancelling an approved request gives back.
func (s *Service) refundableHours(r *generic.LeaveRequest, children []generic.PartialCancellation) int {
	switch p := r.Payload.(type) {
	case generic.DaysPayload:
		n := 0
		for _, d := range generic.LiveDates(r, children) {
			if !s.Calendar.IsPastOrToday(d) {
				n++
			}
		}
		return n * generic.HoursPerDay
	case generic.HoursPayload:
		if s.Calendar.IsPastOrToday(p.Date) {
			return 0
		}
		return p.Hours
	case generic.SalePayload:
		return r.HoursRequested
	}
	return 0
}

// CancelRequestPartial removes some live dates from an approved day
// request and refunds 8 hours per date. At least one live date must
// remain. Only admins may select dates that have already elapsed.
func (s *Service) CancelRequestPartial(
	ctx context.Context,
	actor Actor,
	id generic.RequestID,
	dates []generic.TimePoint,
	reason string,
) (*Result, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, generic.Invalid("reason", "a reason is required to cancel dates")
	}
	selected := uniqueDates(dates)
	if len(selected) == 0 {
		return nil, generic.Invalid("dates", "select at least one date to cancel")
	}

	var res *Result
	err := s.inTx(ctx, func(tx generic.Store, ledger *generic.BalanceLedger) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := s.requireOwnerOrAdmin(actor, r, "cancel dates of"); err != nil {
			return err
		}
		if r.Kind() != generic.KindDays {
			return &generic.InvalidTransitionError{RequestID: id, Action: "partially cancel", Message: fmt.Sprintf("%s requests can only be cancelled in full", r.Kind())}
		}
		if r.State != generic.StateApproved {
			return &generic.InvalidTransitionError{RequestID: id, Action: "partially cancel", Message: fmt.Sprintf("request is %s", r.State)}
		}

		children, err := tx.ListPartialCancellations(ctx, r.ID)
		if err != nil {
			return err
		}
		cancelled := generic.CancelledDatesOf(r, children)
		live := generic.LiveDates(r, children)
		for _, d := range selected {
			if generic.ContainsDate(cancelled, d) {
				return generic.Invalid("dates", "%s was already cancelled", d)
			}
			if !generic.ContainsDate(live, d) {
				return generic.Invalid("dates", "%s is not part of this request", d)
			}
			if !actor.Admin && s.Calendar.IsPastOrToday(d) {
				return &generic.PermissionError{ActorID: actor.ID, Action: "cancel elapsed dates", Message: fmt.Sprintf("%s has already been taken", d)}
			}
		}
		if len(selected) >= len(live) {
			return &generic.InvalidTransitionError{RequestID: id, Action: "partially cancel", Message: "no dates would remain; cancel the whole request instead"}
		}

		pc := generic.PartialCancellation{
			ID:             uuid.NewString(),
			RequestID:      r.ID,
			Revision:       r.Revision,
			CancelledDates: selected,
			HoursReturned:  len(selected) * generic.HoursPerDay,
			Reason:         reason,
			ProcessedBy:    actor.ID,
			IsAdminAction:  actor.Admin,
			CreatedAt:      s.Clock.Now(),
		}
		mv, err := ledger.Refund(ctx, r.RequesterID, generic.Hours(pc.HoursReturned), generic.EntryRef{
			RequestID:      r.ID,
			ActorID:        actor.ID,
			Reason:         reason,
			IdempotencyKey: "partial:" + pc.ID,
		})
		if err != nil {
			return err
		}
		pc.AvailableBefore = mv.Before.Available
		pc.AvailableAfter = mv.After.Available
		if err := tx.AppendPartialCancellation(ctx, pc); err != nil {
			return err
		}

		r.UpdatedAt = pc.CreatedAt
		if err := tx.SaveRequest(ctx, *r); err != nil {
			return err
		}
		res, err = result(ctx, tx, *r)
		if err != nil {
			return err
		}
		res.Partial = &pc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("request partially cancelled",
		"request", id, "by", actor.ID, "dates", generic.DateStrings(res.Partial.CancelledDates))
	s.emit(ctx, requestEvent(EventRequestPartiallyCancelled, res, actor, s.Clock.Now()))
	return res, nil
}

// =============================================================================
// BALANCE ADJUSTMENT
// =============================================================================

// AdjustBalance corrects an employee's available hours and records the
// correction as an already-approved balanceAdjustment request.
func (s *Service) AdjustBalance(
	ctx context.Context,
	actor Actor,
	employeeID generic.EmployeeID,
	typ generic.AdjustmentType,
	hours int,
	reason string,
) (*Result, error) {
	if err := s.requireAdmin(actor, "adjust balances"); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, generic.Invalid("reason", "a reason is required to adjust a balance")
	}

	now := s.Clock.Now()
	r := generic.LeaveRequest{
		ID:             generic.RequestID(uuid.NewString()),
		RequesterID:    employeeID,
		Payload:        generic.AdjustmentPayload{Type: typ, Hours: hours, Reason: reason},
		HoursRequested: hours,
		State:          generic.StateApproved,
		Revision:       1,
		AdminComment:   reason,
		ResolvedBy:     actor.ID,
		RequestedAt:    now,
		ResolvedAt:     &now,
		UpdatedAt:      now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var res *Result
	err := s.inTx(ctx, func(tx generic.Store, ledger *generic.BalanceLedger) error {
		mv, err := ledger.Adjust(ctx, employeeID, typ, generic.Hours(hours), generic.EntryRef{
			RequestID:      r.ID,
			ActorID:        actor.ID,
			Reason:         reason,
			IdempotencyKey: key("adjust", r.ID, r.Revision),
		})
		if err != nil {
			return err
		}
		adj := r
		adj.SetSnapshot(mv.Before.Available, mv.After.Available)
		if err := tx.SaveRequest(ctx, adj); err != nil {
			return err
		}
		res, err = result(ctx, tx, adj)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("balance adjusted", "employee", employeeID, "type", typ, "hours", hours, "by", actor.ID)
	s.emit(ctx, requestEvent(EventBalanceAdjusted, res, actor, now))
	return res, nil
}

// =============================================================================
// BULK
// =============================================================================

// BulkApprove approves each id independently.
func (s *Service) BulkApprove(ctx context.Context, actor Actor, ids []generic.RequestID, comment string) (*BulkResult, error) {
	if err := s.requireAdmin(actor, "approve requests"); err != nil {
		return nil, err
	}
	return s.bulk(ids, func(id generic.RequestID) error {
		_, err := s.ApproveRequest(ctx, actor, id, comment)
		return err
	}), nil
}

// BulkDeny denies each id independently with the same reason.
func (s *Service) BulkDeny(ctx context.Context, actor Actor, ids []generic.RequestID, reason string) (*BulkResult, error) {
	if err := s.requireAdmin(actor, "deny requests"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, generic.Invalid("reason", "a reason is required to deny requests")
	}
	return s.bulk(ids, func(id generic.RequestID) error {
		_, err := s.DenyRequest(ctx, actor, id, reason)
		return err
	}), nil
}

func (s *Service) bulk(ids []generic.RequestID, fn func(generic.RequestID) error) *BulkResult {
	out := &BulkResult{}
	seen := make(map[generic.RequestID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := fn(id); err != nil {
			out.Failed = append(out.Failed, BulkFailure{RequestID: id, Err: err})
			continue
		}
		out.Succeeded = append(out.Succeeded, id)
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

func key(kind string, id generic.RequestID, revision int) string {
	return fmt.Sprintf("%s:%s:%d", kind, id, revision)
}

func result(ctx context.Context, tx generic.Store, r generic.LeaveRequest) (*Result, error) {
	emp, err := tx.GetEmployee(ctx, r.RequesterID)
	if err != nil {
		return nil, err
	}
	return &Result{Request: r, Balance: emp.Balance}, nil
}

// checkSelectable validates every date with the calendar. It reads holidays
// through the outer store and must run before a transaction opens.
func (s *Service) checkSelectable(ctx context.Context, dates []generic.TimePoint) error {
	for i, d := range dates {
		if i > 0 && d.Equal(dates[i-1]) {
			return generic.Invalid("dates", "%s is listed twice", d)
		}
		if err := s.Calendar.Selectable(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// checkNotRequested rejects dates already covered by another open request
// of the same employee.
func checkNotRequested(ctx context.Context, tx generic.Store, self *generic.LeaveRequest, dates []generic.TimePoint) error {
	if len(dates) == 0 {
		return nil
	}
	open, err := tx.ListRequests(ctx, generic.RequestFilter{
		RequesterID: self.RequesterID,
		States:      []generic.RequestState{generic.StatePending, generic.StateApproved},
		Kinds:       []generic.RequestKind{generic.KindDays, generic.KindHours},
	})
	if err != nil {
		return err
	}
	for i := range open {
		other := &open[i]
		if other.ID == self.ID {
			continue
		}
		taken := other.Dates()
		if other.State == generic.StateApproved && other.Kind() == generic.KindDays {
			children, err := tx.ListPartialCancellations(ctx, other.ID)
			if err != nil {
				return err
			}
			taken = generic.LiveDates(other, children)
		}
		for _, d := range dates {
			if generic.ContainsDate(taken, d) {
				return generic.Invalid("dates", "%s is already requested", d)
			}
		}
	}
	return nil
}

func uniqueDates(dates []generic.TimePoint) []generic.TimePoint {
	var out []generic.TimePoint
	for _, d := range dates {
		if !generic.ContainsDate(out, d) {
			out = append(out, d)
		}
	}
	generic.SortDates(out)
	return out
}
