package timeoff

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// COVERAGE CONFLICTS - Too many people of one role away on the same day
// =============================================================================

type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// highFactor: a conflict is high when countOnLeave >= threshold * 1.5.
var highFactor = decimal.NewFromFloat(1.5)

// Conflict is a role whose approved absences on a date meet its threshold.
type Conflict struct {
	Role         string
	CountOnLeave int
	Threshold    int
	Severity     Severity
}

// SeverityFor classifies count against threshold. ok is false below the
// threshold.
func SeverityFor(count, threshold int) (Severity, bool) {
	if threshold <= 0 {
		threshold = generic.DefaultCoverageThreshold
	}
	if count < threshold {
		return "", false
	}
	high := decimal.NewFromInt(int64(threshold)).Mul(highFactor)
	if decimal.NewFromInt(int64(count)).GreaterThanOrEqual(high) {
		return SeverityHigh, true
	}
	return SeverityMedium, true
}

// Detector reads approved requests and never writes. It must be called
// outside of a store transaction.
type Detector struct {
	Store  generic.Store
	Config generic.ConfigStore
}

func NewDetector(store generic.Store, config generic.ConfigStore) *Detector {
	return &Detector{Store: store, Config: config}
}

// Detect returns the conflicts on date, sorted by role.
func (d *Detector) Detect(ctx context.Context, date generic.TimePoint) ([]Conflict, error) {
	absences, err := d.Absences(ctx, date)
	if err != nil {
		return nil, err
	}
	policy, err := d.Config.GetVacationPolicy(ctx)
	if err != nil {
		return nil, err
	}
	return conflictsFor(absences, policy.CoverageThresholds), nil
}

// Absences lists the employees on approved leave on date, one per employee.
func (d *Detector) Absences(ctx context.Context, date generic.TimePoint) ([]Absence, error) {
	approved, err := d.Store.ListRequests(ctx, generic.RequestFilter{
		States: []generic.RequestState{generic.StateApproved},
		Kinds:  []generic.RequestKind{generic.KindDays, generic.KindHours},
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[generic.EmployeeID]bool)
	employees := make(map[generic.EmployeeID]*generic.Employee)
	var out []Absence
	for i := range approved {
		r := &approved[i]
		if seen[r.RequesterID] {
			continue
		}
		covers, err := d.covers(ctx, r, date)
		if err != nil {
			return nil, err
		}
		if !covers {
			continue
		}

		emp, ok := employees[r.RequesterID]
		if !ok {
			emp, err = d.Store.GetEmployee(ctx, r.RequesterID)
			if err != nil {
				return nil, err
			}
			employees[r.RequesterID] = emp
		}
		seen[r.RequesterID] = true
		out = append(out, Absence{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			Role:       emp.Role,
			RequestID:  r.ID,
			Kind:       r.Kind(),
			Hours:      hoursOnDate(r),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

// covers reports whether date is one of r's live dates.
func (d *Detector) covers(ctx context.Context, r *generic.LeaveRequest, date generic.TimePoint) (bool, error) {
	if !generic.ContainsDate(r.Dates(), date) {
		return false, nil
	}
	if r.Kind() != generic.KindDays {
		return true, nil
	}
	children, err := d.Store.ListPartialCancellations(ctx, r.ID)
	if err != nil {
		return false, err
	}
	return generic.ContainsDate(generic.LiveDates(r, children), date), nil
}

func hoursOnDate(r *generic.LeaveRequest) int {
	if p, ok := r.Payload.(generic.HoursPayload); ok {
		return p.Hours
	}
	return generic.HoursPerDay
}

func conflictsFor(absences []Absence, thresholds generic.CoverageThresholds) []Conflict {
	counts := make(map[string]int)
	for _, a := range absences {
		counts[a.Role]++
	}
	roles := make([]string, 0, len(counts))
	for role := range counts {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	var out []Conflict
	for _, role := range roles {
		threshold := thresholds.For(role)
		sev, ok := SeverityFor(counts[role], threshold)
		if !ok {
			continue
		}
		out = append(out, Conflict{Role: role, CountOnLeave: counts[role], Threshold: threshold, Severity: sev})
	}
	return out
}
