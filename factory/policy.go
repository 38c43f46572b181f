/*
Package factory provides JSON to Go vacation policy conversion.

PURPOSE:
  Converts the Config/VacationPolicy JSON document into a
  generic.VacationPolicy and back. The admin UI edits this document, the
  SQLite store persists it in this shape, and demo scenarios build it from
  presets.

JSON SCHEMA:
  {
    "autoApprove": {
      "enabled": true,
      "mode": "byHoursAndNoConflicts",
      "maxHours": 16,
      "message": "Approved automatically"
    },
    "coverageThresholds": {
      "Fresador": 4,
      "Tornero": 2
    }
  }

KEY FEATURES:
  - Validates structure with go-playground/validator tags
  - Sets defaults (mode byHours, default message, empty thresholds)
  - Round-trips: ToJSON(ParsePolicy(x)) is stable

USAGE:
  pf := factory.NewPolicyFactory()
  policy, err := pf.ParsePolicy(jsonString)
  jsonStr, err := pf.ToJSON(policy)

SEE ALSO:
  - generic/policy.go: VacationPolicy type definition
  - timeoff/autoapprove.go: Evaluator
  - store/sqlite/sqlite.go: Persistence of the document
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// VacationPolicyJSON is the JSON representation of the policy document.
type VacationPolicyJSON struct {
	AutoApprove        AutoApproveJSON `json:"autoApprove"`
	CoverageThresholds map[string]int  `json:"coverageThresholds,omitempty" validate:"omitempty,dive,keys,required,endkeys,min=1"`
}

// AutoApproveJSON represents the auto-approval rule.
type AutoApproveJSON struct {
	Enabled  bool   `json:"enabled"`
	Mode     string `json:"mode,omitempty" validate:"omitempty,oneof=all byHours noConflicts byHoursAndNoConflicts"`
	MaxHours int    `json:"maxHours" validate:"min=0"`
	Message  string `json:"message,omitempty" validate:"max=200"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory creates policies from JSON.
type PolicyFactory struct {
	validate *validator.Validate
}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{validate: validator.New()}
}

// ParsePolicy parses and validates a policy document.
func (pf *PolicyFactory) ParsePolicy(jsonStr string) (generic.VacationPolicy, error) {
	var pj VacationPolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return generic.VacationPolicy{}, generic.Invalid("policy", "invalid JSON: %v", err)
	}
	return pf.FromJSON(pj)
}

// FromJSON validates a decoded document and applies defaults.
func (pf *PolicyFactory) FromJSON(pj VacationPolicyJSON) (generic.VacationPolicy, error) {
	if err := pf.validate.Struct(pj); err != nil {
		return generic.VacationPolicy{}, validationError(err)
	}

	policy := generic.DefaultVacationPolicy()
	policy.AutoApprove.Enabled = pj.AutoApprove.Enabled
	policy.AutoApprove.MaxHours = pj.AutoApprove.MaxHours
	if pj.AutoApprove.Mode != "" {
		policy.AutoApprove.Mode = generic.AutoApproveMode(pj.AutoApprove.Mode)
	}
	if pj.AutoApprove.Message != "" {
		policy.AutoApprove.Message = pj.AutoApprove.Message
	}
	for role, n := range pj.CoverageThresholds {
		policy.CoverageThresholds[role] = n
	}
	return policy, nil
}

// ToJSON converts a policy to its document shape.
func (pf *PolicyFactory) ToJSON(p generic.VacationPolicy) (string, error) {
	data, err := json.Marshal(Document(p))
	if err != nil {
		return "", fmt.Errorf("marshal policy: %w", err)
	}
	return string(data), nil
}

// Document converts a policy to its JSON document type.
func Document(p generic.VacationPolicy) VacationPolicyJSON {
	pj := VacationPolicyJSON{
		AutoApprove: AutoApproveJSON{
			Enabled:  p.AutoApprove.Enabled,
			Mode:     string(p.AutoApprove.Mode),
			MaxHours: p.AutoApprove.MaxHours,
			Message:  p.AutoApprove.Message,
		},
	}
	if len(p.CoverageThresholds) > 0 {
		pj.CoverageThresholds = make(map[string]int, len(p.CoverageThresholds))
		for role, n := range p.CoverageThresholds {
			pj.CoverageThresholds[role] = n
		}
	}
	return pj
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return generic.Invalid("policy", "%v", err)
	}
	fe := verrs[0]
	return generic.Invalid(fe.Namespace(), "failed %q constraint (value %v)", fe.Tag(), fe.Value())
}

// =============================================================================
// PRESETS
// =============================================================================

// PlantPolicyJSON returns the policy used by the manufacturing plant demo:
// short requests approve themselves unless they hit a coverage conflict.
func PlantPolicyJSON(maxHours int, thresholds map[string]int) string {
	pj := VacationPolicyJSON{
		AutoApprove: AutoApproveJSON{
			Enabled:  true,
			Mode:     string(generic.AutoApproveByHoursAndNoConflicts),
			MaxHours: maxHours,
			Message:  "Approved automatically: short request without coverage conflicts",
		},
		CoverageThresholds: thresholds,
	}
	data, _ := json.Marshal(pj)
	return string(data)
}
