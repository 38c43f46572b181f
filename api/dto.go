/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model (which carries no JSON tags) from the external API
  contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags. Handlers decode, then
  call validate.Struct before touching the service. Domain rules (balance,
  selectability, transitions) stay in the service.

DATES AND TIMES:
  Calendar days are "YYYY-MM-DD". Instants are RFC 3339 in UTC.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: VacationPolicyJSON, used as-is for the policy document
*/
package api

import (
	"time"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/timeoff"
)

// =============================================================================
// REQUEST BODIES
// =============================================================================

type CreateEmployeeRequest struct {
	ID             string  `json:"id" validate:"required,max=64"`
	Name           string  `json:"name" validate:"required,min=1,max=200"`
	Role           string  `json:"role" validate:"required,min=1,max=100"`
	AvailableHours float64 `json:"available_hours" validate:"min=0"`
	AssignedHours  float64 `json:"assigned_hours" validate:"min=0"`
}

// CreateRequestRequest submits a days, hours or sale request. Dates apply
// to days, Date and Hours to hours, Hours to sale.
type CreateRequestRequest struct {
	Kind    string   `json:"kind" validate:"required,oneof=days hours sale"`
	Dates   []string `json:"dates" validate:"required_if=Kind days,dive,datetime=2006-01-02"`
	Date    string   `json:"date" validate:"required_if=Kind hours,omitempty,datetime=2006-01-02"`
	Hours   int      `json:"hours" validate:"min=0"`
	Comment string   `json:"comment" validate:"max=500"`
}

type EditRequestRequest struct {
	Dates   []string `json:"dates" validate:"omitempty,dive,datetime=2006-01-02"`
	Date    string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Hours   int      `json:"hours" validate:"min=0"`
	Comment *string  `json:"comment" validate:"omitempty,max=500"`
}

type ApproveRequest struct {
	Comment string `json:"comment" validate:"max=500"`
}

// ReasonRequest is the body of deny and full cancellation.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type PartialCancelRequest struct {
	Dates  []string `json:"dates" validate:"required,min=1,dive,datetime=2006-01-02"`
	Reason string   `json:"reason" validate:"required,max=500"`
}

type AdjustBalanceRequest struct {
	Type   string `json:"type" validate:"required,oneof=add subtract set"`
	Hours  int    `json:"hours" validate:"min=0"`
	Reason string `json:"reason" validate:"required,max=500"`
}

type BulkRequest struct {
	IDs     []string `json:"ids" validate:"required,min=1,dive,required"`
	Comment string   `json:"comment" validate:"max=500"`
	Reason  string   `json:"reason" validate:"max=500"`
}

type CreateHolidayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" validate:"required,max=100"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type BalanceDTO struct {
	Available float64 `json:"available"`
	Pending   float64 `json:"pending"`
	Assigned  float64 `json:"assigned"`
	Free      float64 `json:"free"`
}

type EmployeeDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Balance   BalanceDTO `json:"balance"`
	Version   int64      `json:"version"`
	CreatedAt string     `json:"created_at,omitempty"`
}

type PartialCancellationDTO struct {
	ID              string   `json:"id"`
	Dates           []string `json:"dates"`
	HoursReturned   int      `json:"hours_returned"`
	Reason          string   `json:"reason"`
	ProcessedBy     string   `json:"processed_by"`
	IsAdminAction   bool     `json:"is_admin_action"`
	AvailableBefore float64  `json:"available_before"`
	AvailableAfter  float64  `json:"available_after"`
	CreatedAt       string   `json:"created_at"`
}

type RequestDTO struct {
	ID                 string   `json:"id"`
	EmployeeID         string   `json:"employee_id"`
	Kind               string   `json:"kind"`
	State              string   `json:"state"`
	Revision           int      `json:"revision"`
	Dates              []string `json:"dates,omitempty"`
	HoursRequested     int      `json:"hours_requested"`
	AdjustmentType     string   `json:"adjustment_type,omitempty"`
	RequesterComment   string   `json:"requester_comment,omitempty"`
	AdminComment       string   `json:"admin_comment,omitempty"`
	ResolvedBy         string   `json:"resolved_by,omitempty"`
	CancellationReason string   `json:"cancellation_reason,omitempty"`
	RequestedAt        string   `json:"requested_at"`
	ResolvedAt         string   `json:"resolved_at,omitempty"`
	CancelledAt        string   `json:"cancelled_at,omitempty"`
	AvailableBefore    *float64 `json:"available_before,omitempty"`
	AvailableAfter     *float64 `json:"available_after,omitempty"`

	// Set on detail responses.
	LiveDates            []string                 `json:"live_dates,omitempty"`
	PartialCancellations []PartialCancellationDTO `json:"partial_cancellations,omitempty"`
}

// ResultDTO is returned by every lifecycle operation.
type ResultDTO struct {
	Request      RequestDTO              `json:"request"`
	Balance      BalanceDTO              `json:"balance"`
	AutoApproved bool                    `json:"auto_approved"`
	Partial      *PartialCancellationDTO `json:"partial,omitempty"`
}

type BulkFailureDTO struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

type BulkResultDTO struct {
	Succeeded []string         `json:"succeeded"`
	Failed    []BulkFailureDTO `json:"failed"`
}

type LedgerEntryDTO struct {
	ID              string  `json:"id"`
	RequestID       string  `json:"request_id,omitempty"`
	Type            string  `json:"type"`
	Hours           float64 `json:"hours"`
	AvailableBefore float64 `json:"available_before"`
	AvailableAfter  float64 `json:"available_after"`
	PendingBefore   float64 `json:"pending_before"`
	PendingAfter    float64 `json:"pending_after"`
	Reason          string  `json:"reason,omitempty"`
	ActorID         string  `json:"actor_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type ConflictDTO struct {
	Role         string `json:"role"`
	CountOnLeave int    `json:"count_on_leave"`
	Threshold    int    `json:"threshold"`
	Severity     string `json:"severity"`
}

type AbsenceDTO struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	RequestID  string `json:"request_id"`
	Kind       string `json:"kind"`
	Hours      int    `json:"hours"`
}

type RoleAvailabilityDTO struct {
	Role      string `json:"role"`
	Total     int    `json:"total"`
	OnLeave   int    `json:"on_leave"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
}

type AvailabilityDTO struct {
	Date      string                `json:"date"`
	Weekend   bool                  `json:"weekend"`
	Holiday   string                `json:"holiday,omitempty"`
	Absences  []AbsenceDTO          `json:"absences"`
	Roles     []RoleAvailabilityDTO `json:"roles"`
	Conflicts []ConflictDTO         `json:"conflicts"`
}

type SweepRunDTO struct {
	ID          string `json:"id"`
	Trigger     string `json:"trigger"`
	Status      string `json:"status"`
	Scanned     int    `json:"scanned"`
	Cancelled   int    `json:"cancelled"`
	Failed      int    `json:"failed"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatInstant(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatInstant(*t)
}

func toBalanceDTO(b generic.Balance) BalanceDTO {
	return BalanceDTO{
		Available: b.Available.Float(),
		Pending:   b.Pending.Float(),
		Assigned:  b.Assigned.Float(),
		Free:      b.Free().Float(),
	}
}

func toEmployeeDTO(e generic.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		Role:      e.Role,
		Balance:   toBalanceDTO(e.Balance),
		Version:   e.Version,
		CreatedAt: formatInstant(e.CreatedAt),
	}
}

func toRequestDTO(r generic.LeaveRequest) RequestDTO {
	dto := RequestDTO{
		ID:                 string(r.ID),
		EmployeeID:         string(r.RequesterID),
		Kind:               string(r.Kind()),
		State:              string(r.State),
		Revision:           r.Revision,
		Dates:              generic.DateStrings(r.Dates()),
		HoursRequested:     r.HoursRequested,
		RequesterComment:   r.RequesterComment,
		AdminComment:       r.AdminComment,
		ResolvedBy:         r.ResolvedBy,
		CancellationReason: r.CancellationReason,
		RequestedAt:        formatInstant(r.RequestedAt),
		ResolvedAt:         formatOptional(r.ResolvedAt),
		CancelledAt:        formatOptional(r.CancelledAt),
	}
	if adj, ok := r.Payload.(generic.AdjustmentPayload); ok {
		dto.AdjustmentType = string(adj.Type)
	}
	if r.AvailableBefore != nil {
		v := r.AvailableBefore.Float()
		dto.AvailableBefore = &v
	}
	if r.AvailableAfter != nil {
		v := r.AvailableAfter.Float()
		dto.AvailableAfter = &v
	}
	return dto
}

func toRequestDTOs(rs []generic.LeaveRequest) []RequestDTO {
	out := make([]RequestDTO, len(rs))
	for i, r := range rs {
		out[i] = toRequestDTO(r)
	}
	return out
}

func toDetailDTO(d *timeoff.RequestDetail) RequestDTO {
	dto := toRequestDTO(d.Request)
	dto.LiveDates = generic.DateStrings(d.LiveDates)
	for _, pc := range d.Partials {
		dto.PartialCancellations = append(dto.PartialCancellations, toPartialDTO(pc))
	}
	return dto
}

func toPartialDTO(pc generic.PartialCancellation) PartialCancellationDTO {
	return PartialCancellationDTO{
		ID:              pc.ID,
		Dates:           generic.DateStrings(pc.CancelledDates),
		HoursReturned:   pc.HoursReturned,
		Reason:          pc.Reason,
		ProcessedBy:     pc.ProcessedBy,
		IsAdminAction:   pc.IsAdminAction,
		AvailableBefore: pc.AvailableBefore.Float(),
		AvailableAfter:  pc.AvailableAfter.Float(),
		CreatedAt:       formatInstant(pc.CreatedAt),
	}
}

func toResultDTO(res *timeoff.Result) ResultDTO {
	dto := ResultDTO{
		Request:      toRequestDTO(res.Request),
		Balance:      toBalanceDTO(res.Balance),
		AutoApproved: res.AutoApproved,
	}
	if res.Partial != nil {
		p := toPartialDTO(*res.Partial)
		dto.Partial = &p
	}
	return dto
}

func toBulkResultDTO(res *timeoff.BulkResult) BulkResultDTO {
	dto := BulkResultDTO{Succeeded: []string{}, Failed: []BulkFailureDTO{}}
	for _, id := range res.Succeeded {
		dto.Succeeded = append(dto.Succeeded, string(id))
	}
	for _, f := range res.Failed {
		dto.Failed = append(dto.Failed, BulkFailureDTO{RequestID: string(f.RequestID), Error: f.Err.Error()})
	}
	return dto
}

func toLedgerEntryDTO(e generic.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:              string(e.ID),
		RequestID:       string(e.RequestID),
		Type:            string(e.Type),
		Hours:           e.Hours.Float(),
		AvailableBefore: e.Before.Available.Float(),
		AvailableAfter:  e.After.Available.Float(),
		PendingBefore:   e.Before.Pending.Float(),
		PendingAfter:    e.After.Pending.Float(),
		Reason:          e.Reason,
		ActorID:         e.ActorID,
		CreatedAt:       formatInstant(e.CreatedAt),
	}
}

func toConflictDTOs(cs []timeoff.Conflict) []ConflictDTO {
	out := make([]ConflictDTO, len(cs))
	for i, c := range cs {
		out[i] = ConflictDTO{Role: c.Role, CountOnLeave: c.CountOnLeave, Threshold: c.Threshold, Severity: string(c.Severity)}
	}
	return out
}

func toAvailabilityDTO(a *timeoff.Availability) AvailabilityDTO {
	dto := AvailabilityDTO{
		Date:      a.Date.String(),
		Weekend:   a.Weekend,
		Holiday:   a.Holiday,
		Absences:  make([]AbsenceDTO, len(a.Absences)),
		Roles:     make([]RoleAvailabilityDTO, len(a.Roles)),
		Conflicts: toConflictDTOs(a.Conflicts),
	}
	for i, ab := range a.Absences {
		dto.Absences[i] = AbsenceDTO{
			EmployeeID: string(ab.EmployeeID), Name: ab.Name, Role: ab.Role,
			RequestID: string(ab.RequestID), Kind: string(ab.Kind), Hours: ab.Hours,
		}
	}
	for i, ra := range a.Roles {
		dto.Roles[i] = RoleAvailabilityDTO(ra)
	}
	return dto
}

func toSweepRunDTO(run generic.SweepRun) SweepRunDTO {
	return SweepRunDTO{
		ID:          run.ID,
		Trigger:     run.Trigger,
		Status:      string(run.Status),
		Scanned:     run.Scanned,
		Cancelled:   run.Cancelled,
		Failed:      run.Failed,
		Error:       run.Error,
		StartedAt:   formatInstant(run.StartedAt),
		CompletedAt: formatOptional(run.CompletedAt),
	}
}
