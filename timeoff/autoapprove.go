package timeoff

import (
	"fmt"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// AUTO-APPROVAL - Decides, never applies
// =============================================================================

// ConflictProbe returns how many coverage conflicts the given dates would
// hit. Evaluate calls it only for modes that look at conflicts.
type ConflictProbe func(dates []generic.TimePoint) (int, error)

// Evaluate reports whether policy approves r automatically.
func Evaluate(policy generic.AutoApprovalPolicy, r *generic.LeaveRequest, probe ConflictProbe) (bool, error) {
	if !policy.Enabled {
		return false, nil
	}

	switch policy.Mode {
	case generic.AutoApproveAll:
		return true, nil
	case generic.AutoApproveByHours:
		return withinHours(policy, r), nil
	case generic.AutoApproveNoConflicts:
		return noConflicts(r, probe)
	case generic.AutoApproveByHoursAndNoConflicts:
		if !withinHours(policy, r) {
			return false, nil
		}
		return noConflicts(r, probe)
	}
	return false, fmt.Errorf("unknown auto-approve mode %q", policy.Mode)
}

func withinHours(policy generic.AutoApprovalPolicy, r *generic.LeaveRequest) bool {
	return r.HoursRequested <= policy.MaxHours
}

func noConflicts(r *generic.LeaveRequest, probe ConflictProbe) (bool, error) {
	dates := r.Dates()
	if len(dates) == 0 {
		return true, nil
	}
	if probe == nil {
		return false, fmt.Errorf("auto-approve mode needs a conflict probe")
	}
	n, err := probe(dates)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// approvalMessage is the admin comment written on automatic approvals.
func approvalMessage(policy generic.AutoApprovalPolicy) string {
	if policy.Message == "" {
		return generic.DefaultAutoApproveMessage
	}
	return policy.Message
}
