/*
handlers.go - HTTP API handlers for the vacation engine

PURPOSE:
  Exposes the request lifecycle, balances, holidays, policy and coverage
  views via REST API. Handles HTTP request/response, JSON serialization,
  and delegates to timeoff.Service.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List employees
    POST   /api/employees                       Create employee (admin)
    GET    /api/employees/{id}                  Employee with balance
    GET    /api/employees/{id}/ledger           Balance movements
    GET    /api/employees/{id}/requests         Requests of an employee
    POST   /api/employees/{id}/requests         Submit a request
    POST   /api/employees/{id}/adjustments      Balance adjustment (admin)

  Requests:
    GET    /api/requests?employee=&state=&kind=  Filtered list
    GET    /api/requests/{id}                   Detail with partial cancellations
    PUT    /api/requests/{id}                   Edit
    DELETE /api/requests/{id}                   Withdraw (pending only)
    POST   /api/requests/{id}/approve           Approve (admin)
    POST   /api/requests/{id}/deny              Deny with reason (admin)
    POST   /api/requests/{id}/cancel            Full cancellation
    POST   /api/requests/{id}/partial-cancellations  Cancel some dates
    POST   /api/requests/bulk/approve           Bulk approve (admin)
    POST   /api/requests/bulk/deny              Bulk deny (admin)

  Admin:
    GET    /api/admin/pending                   Review queue (sweeps first)
    GET    /api/admin/sweeps                    Sweep run history
    POST   /api/admin/sweeps                    Run the sweeper now

  Calendar, policy, coverage:
    GET    /api/holidays?year=                  Holidays of a year
    POST   /api/holidays                        Add holiday (admin)
    DELETE /api/holidays/{date}                 Remove holiday (admin)
    GET    /api/policy                          Vacation policy document
    PUT    /api/policy                          Replace it (admin)
    GET    /api/coverage/conflicts?date=        Conflicts on a date
    GET    /api/coverage/availability?date=     Staffing on a date

ACTOR:
  The caller is identified by the X-Actor-ID header; X-Actor-Role: admin
  grants admin rights. Authentication happens in front of this service.
  Read endpoints do not require an actor.

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"} with status:
  - 400: Validation errors, invalid input
  - 401: Missing actor on a mutating endpoint
  - 403: Permission denied
  - 404: Resource not found
  - 409: Invalid transition, concurrent modification
  - 422: Insufficient balance
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/vacation-engine/factory"
	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/timeoff"
)

// Actor headers.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
	RoleAdmin       = "admin"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter clears all stored data. Used by demo scenarios.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *timeoff.Service
	Store    Resetter
	Policies *factory.PolicyFactory
	Logger   *slog.Logger

	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over a service. store is the service's
// backing store, reset by scenario loading.
func NewHandler(svc *timeoff.Service, store Resetter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Service:  svc,
		Store:    store,
		Policies: factory.NewPolicyFactory(),
		Logger:   logger,
		validate: validator.New(),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.ListEmployees(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp, err := h.Service.CreateEmployee(r.Context(), actor, generic.Employee{
		ID:   generic.EmployeeID(req.ID),
		Name: req.Name,
		Role: req.Role,
		Balance: generic.NewBalance(
			generic.NewAmount(req.AvailableHours, generic.UnitHours),
			generic.NewAmount(req.AssignedHours, generic.UnitHours),
		),
	})
	if err != nil {
		h.fail(w, r, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*emp))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.GetEmployee(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// GetLedger returns the employee's balance movements, oldest first.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.Ledger(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get ledger", err)
		return
	}

	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := requestFilter(r)
	if err != nil {
		h.fail(w, r, "Invalid filter", err)
		return
	}
	filter.RequesterID = generic.EmployeeID(chi.URLParam(r, "id"))
	h.listRequests(w, r, filter)
}

// CreateRequest submits a days, hours or sale request for the employee in
// the path.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	payload, err := requestPayload(req)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}

	res, err := h.Service.CreateRequest(r.Context(), actor, generic.EmployeeID(chi.URLParam(r, "id")), payload, req.Comment)
	if err != nil {
		h.fail(w, r, "Failed to create request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(res))
}

func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req AdjustBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.Service.AdjustBalance(r.Context(), actor, generic.EmployeeID(chi.URLParam(r, "id")),
		generic.AdjustmentType(req.Type), req.Hours, req.Reason)
	if err != nil {
		h.fail(w, r, "Failed to adjust balance", err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(res))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := requestFilter(r)
	if err != nil {
		h.fail(w, r, "Invalid filter", err)
		return
	}
	h.listRequests(w, r, filter)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request, filter generic.RequestFilter) {
	requests, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.GetRequest(r.Context(), requestID(r))
	if err != nil {
		h.fail(w, r, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailDTO(detail))
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ApproveRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	res, err := h.Service.ApproveRequest(r.Context(), actor, requestID(r), req.Comment)
	h.writeResult(w, r, "Failed to approve request", res, err)
}

func (h *Handler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Service.DenyRequest(r.Context(), actor, requestID(r), req.Reason)
	h.writeResult(w, r, "Failed to deny request", res, err)
}

// WithdrawRequest deletes a pending request and releases its hold.
func (h *Handler) WithdrawRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	res, err := h.Service.WithdrawRequest(r.Context(), actor, requestID(r))
	h.writeResult(w, r, "Failed to withdraw request", res, err)
}

func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req EditRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := timeoff.EditInput{Hours: req.Hours, Comment: req.Comment}
	var err error
	if len(req.Dates) > 0 {
		if in.Dates, err = generic.ParseDates(req.Dates); err != nil {
			h.fail(w, r, "Invalid request", generic.Invalid("dates", "%v", err))
			return
		}
	}
	if req.Date != "" {
		if in.Date, err = generic.ParseDate(req.Date); err != nil {
			h.fail(w, r, "Invalid request", generic.Invalid("date", "%v", err))
			return
		}
	}

	res, err := h.Service.EditRequest(r.Context(), actor, requestID(r), in)
	h.writeResult(w, r, "Failed to edit request", res, err)
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Service.CancelRequestFull(r.Context(), actor, requestID(r), req.Reason)
	h.writeResult(w, r, "Failed to cancel request", res, err)
}

func (h *Handler) CancelRequestPartial(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req PartialCancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	dates, err := generic.ParseDates(req.Dates)
	if err != nil {
		h.fail(w, r, "Invalid request", generic.Invalid("dates", "%v", err))
		return
	}

	res, err := h.Service.CancelRequestPartial(r.Context(), actor, requestID(r), dates, req.Reason)
	h.writeResult(w, r, "Failed to cancel dates", res, err)
}

func (h *Handler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req BulkRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Service.BulkApprove(r.Context(), actor, requestIDs(req.IDs), req.Comment)
	if err != nil {
		h.fail(w, r, "Failed to approve requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResultDTO(res))
}

func (h *Handler) BulkDeny(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req BulkRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Service.BulkDeny(r.Context(), actor, requestIDs(req.IDs), req.Reason)
	if err != nil {
		h.fail(w, r, "Failed to deny requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResultDTO(res))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ListPendingRequests returns the review queue. Loading it sweeps expired
// requests first.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.Admin {
		h.fail(w, r, "Forbidden", &generic.PermissionError{ActorID: actor.ID, Action: "review requests"})
		return
	}

	requests, err := h.Service.PendingForReview(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to get pending requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.fail(w, r, "Invalid limit", generic.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := h.Service.SweepRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "Failed to list sweep runs", err)
		return
	}
	dtos := make([]SweepRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toSweepRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.Admin {
		h.fail(w, r, "Forbidden", &generic.PermissionError{ActorID: actor.ID, Action: "run the sweeper"})
		return
	}

	run, err := h.Service.SweepExpiredRequests(r.Context(), timeoff.TriggerManual)
	if err != nil {
		h.fail(w, r, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSweepRunDTO(run))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := generic.Today(h.Service.Clock).Year()
	if s := r.URL.Query().Get("year"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.fail(w, r, "Invalid year", generic.Invalid("year", "must be a number"))
			return
		}
		year = n
	}

	holidays, err := h.Service.Calendar.List(r.Context(), year)
	if err != nil {
		h.fail(w, r, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{Date: hol.Date.String(), Name: hol.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r, "manage holidays") {
		return
	}
	var req CreateHolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid request", generic.Invalid("date", "%v", err))
		return
	}

	if err := h.Service.Calendar.Add(r.Context(), generic.Holiday{Date: date, Name: req.Name}); err != nil {
		h.fail(w, r, "Failed to add holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{Date: date.String(), Name: req.Name})
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r, "manage holidays") {
		return
	}
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, "Invalid date", generic.Invalid("date", "%v", err))
		return
	}
	if err := h.Service.Calendar.Remove(r.Context(), date); err != nil {
		h.fail(w, r, "Failed to remove holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Policy(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to get policy", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.Document(p))
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var doc factory.VacationPolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Policies.FromJSON(doc)
	if err != nil {
		h.fail(w, r, "Invalid policy", err)
		return
	}

	if err := h.Service.SavePolicy(r.Context(), actor, p); err != nil {
		h.fail(w, r, "Failed to save policy", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.Document(p))
}

// =============================================================================
// COVERAGE HANDLERS
// =============================================================================

func (h *Handler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	conflicts, err := h.Service.DetectConflicts(r.Context(), date)
	if err != nil {
		h.fail(w, r, "Failed to detect conflicts", err)
		return
	}
	writeJSON(w, http.StatusOK, toConflictDTOs(conflicts))
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	a, err := h.Service.CalculateAvailabilityForDate(r.Context(), date)
	if err != nil {
		h.fail(w, r, "Failed to calculate availability", err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityDTO(a))
}

// =============================================================================
// HELPERS
// =============================================================================

// actor reads the caller from the actor headers. It writes 401 and returns
// false when the id is missing.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (timeoff.Actor, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if id == "" {
		writeError(w, http.StatusUnauthorized, "Missing actor", errors.New(HeaderActorID+" header is required"))
		return timeoff.Actor{}, false
	}
	return timeoff.Actor{
		ID:    id,
		Admin: strings.EqualFold(r.Header.Get(HeaderActorRole), RoleAdmin),
	}, true
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request, action string) bool {
	actor, ok := h.actor(w, r)
	if !ok {
		return false
	}
	if !actor.Admin {
		h.fail(w, r, "Forbidden", &generic.PermissionError{ActorID: actor.ID, Action: action})
		return false
	}
	return true
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error", err)
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be empty.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return h.decode(w, r, v)
}

func (h *Handler) queryDate(w http.ResponseWriter, r *http.Request) (generic.TimePoint, bool) {
	s := r.URL.Query().Get("date")
	if s == "" {
		h.fail(w, r, "Invalid date", generic.Invalid("date", "date query parameter is required"))
		return generic.TimePoint{}, false
	}
	date, err := generic.ParseDate(s)
	if err != nil {
		h.fail(w, r, "Invalid date", generic.Invalid("date", "%v", err))
		return generic.TimePoint{}, false
	}
	return date, true
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, message string, res *timeoff.Result, err error) {
	if err != nil {
		h.fail(w, r, message, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(res))
}

// fail maps a service error to its HTTP status. Unexpected errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, generic.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrInvalidTransition),
		errors.Is(err, generic.ErrConcurrentModification),
		errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		return http.StatusConflict
	case errors.Is(err, generic.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func requestID(r *http.Request) generic.RequestID {
	return generic.RequestID(chi.URLParam(r, "id"))
}

func requestIDs(ids []string) []generic.RequestID {
	out := make([]generic.RequestID, len(ids))
	for i, id := range ids {
		out[i] = generic.RequestID(id)
	}
	return out
}

func requestPayload(req CreateRequestRequest) (generic.Payload, error) {
	switch generic.RequestKind(req.Kind) {
	case generic.KindDays:
		dates, err := generic.ParseDates(req.Dates)
		if err != nil {
			return nil, generic.Invalid("dates", "%v", err)
		}
		return generic.DaysPayload{Dates: dates}, nil
	case generic.KindHours:
		date, err := generic.ParseDate(req.Date)
		if err != nil {
			return nil, generic.Invalid("date", "%v", err)
		}
		return generic.HoursPayload{Date: date, Hours: req.Hours}, nil
	case generic.KindSale:
		return generic.SalePayload{Hours: req.Hours}, nil
	}
	return nil, generic.Invalid("kind", "unknown request kind %q", req.Kind)
}

// requestFilter reads ?employee=, ?state= and ?kind= (the last two may be
// comma-separated).
func requestFilter(r *http.Request) (generic.RequestFilter, error) {
	q := r.URL.Query()
	filter := generic.RequestFilter{RequesterID: generic.EmployeeID(q.Get("employee"))}
	for _, s := range splitList(q.Get("state")) {
		state, err := generic.ParseRequestState(s)
		if err != nil {
			return filter, err
		}
		filter.States = append(filter.States, state)
	}
	for _, s := range splitList(q.Get("kind")) {
		filter.Kinds = append(filter.Kinds, generic.RequestKind(s))
	}
	return filter, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
