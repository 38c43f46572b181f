/*
policy.go - Vacation policy configuration

PURPOSE:
  The read-mostly configuration document that tunes the engine:
  whether and when requests are approved automatically, and how many
  simultaneous absences per role count as a staffing conflict.

AUTO-APPROVAL MODES:
  all                    - every request is approved on creation
  byHours                - approved when hoursRequested <= MaxHours
  noConflicts            - approved when no requested date has a coverage
                           conflict for the requester's role
  byHoursAndNoConflicts  - both conditions must hold

COVERAGE THRESHOLDS:
  Role name -> minimum simultaneous absences that constitute a conflict.
  Roles without an entry use DefaultCoverageThreshold.

SEE ALSO:
  - factory/policy.go: JSON parsing and validation
  - timeoff/autoapprove.go: Evaluator
  - timeoff/coverage.go: Conflict detector
*/
package generic

type AutoApproveMode string

const (
	AutoApproveAll                   AutoApproveMode = "all"
	AutoApproveByHours               AutoApproveMode = "byHours"
	AutoApproveNoConflicts           AutoApproveMode = "noConflicts"
	AutoApproveByHoursAndNoConflicts AutoApproveMode = "byHoursAndNoConflicts"
)

// Valid reports whether the mode is one of the known modes.
func (m AutoApproveMode) Valid() bool {
	switch m {
	case AutoApproveAll, AutoApproveByHours, AutoApproveNoConflicts, AutoApproveByHoursAndNoConflicts:
		return true
	}
	return false
}

// DefaultAutoApproveMessage is used as the admin comment when the policy
// does not define one.
const DefaultAutoApproveMessage = "Approved automatically by vacation policy"

// DefaultCoverageThreshold applies to roles without a configured threshold.
const DefaultCoverageThreshold = 1

type AutoApprovalPolicy struct {
	Enabled  bool
	Mode     AutoApproveMode
	MaxHours int
	Message  string
}

// CoverageThresholds maps a role name to its conflict threshold.
type CoverageThresholds map[string]int

// For returns the threshold of a role, falling back to the default.
func (c CoverageThresholds) For(role string) int {
	if n, ok := c[role]; ok && n > 0 {
		return n
	}
	return DefaultCoverageThreshold
}

// VacationPolicy is the Config/VacationPolicy document.
type VacationPolicy struct {
	AutoApprove        AutoApprovalPolicy
	CoverageThresholds CoverageThresholds
}

// DefaultVacationPolicy disables auto-approval and configures no thresholds.
func DefaultVacationPolicy() VacationPolicy {
	return VacationPolicy{
		AutoApprove:        AutoApprovalPolicy{Mode: AutoApproveByHours, Message: DefaultAutoApproveMessage},
		CoverageThresholds: CoverageThresholds{},
	}
}
