/*
handlers_test.go - HTTP tests for the API handlers

Tests run the real router over an in-memory store with a manual clock
fixed on Friday 2026-10-16, so the next workdays are Mon 19 .. Fri 23.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
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

var testNow = time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)

type testAPI struct {
	t       *testing.T
	router  http.Handler
	handler *Handler
	svc     *timeoff.Service
	clock   *generic.ManualClock
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mem := store.NewMemory()
	clock := generic.NewManualClock(testNow)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := timeoff.NewService(mem, clock, logger)
	h := NewHandler(svc, mem, logger)
	return &testAPI{t: t, router: NewRouter(h, nil), handler: h, svc: svc, clock: clock}
}

type caller struct {
	id    string
	admin bool
}

var (
	adminCaller = caller{id: "boss", admin: true}
	anonymous   = caller{}
)

func as(id string) caller { return caller{id: id} }

func (a *testAPI) do(c caller, method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.id != "" {
		req.Header.Set(HeaderActorID, c.id)
	}
	if c.admin {
		req.Header.Set(HeaderActorRole, RoleAdmin)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) hire(id, role string, hours float64) {
	a.t.Helper()
	rec := a.do(adminCaller, http.MethodPost, "/api/employees", CreateEmployeeRequest{
		ID: id, Name: "Employee " + id, Role: role, AvailableHours: hours, AssignedHours: hours,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (a *testAPI) requestDays(id string, dates ...string) ResultDTO {
	a.t.Helper()
	rec := a.do(as(id), http.MethodPost, "/api/employees/"+id+"/requests", CreateRequestRequest{Kind: "days", Dates: dates})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[ResultDTO](a.t, rec)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestCreateEmployee(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)

	rec := api.do(anonymous, http.MethodGet, "/api/employees/ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decodeBody[EmployeeDTO](t, rec)
	assert.Equal(t, "Fresador", emp.Role)
	assert.Equal(t, BalanceDTO{Available: 160, Pending: 0, Assigned: 160, Free: 160}, emp.Balance)

	list := decodeBody[[]EmployeeDTO](t, api.do(anonymous, http.MethodGet, "/api/employees", nil))
	assert.Len(t, list, 1)
}

func TestCreateEmployee_Errors(t *testing.T) {
	api := newTestAPI(t)
	body := CreateEmployeeRequest{ID: "ana", Name: "Ana", Role: "Fresador", AvailableHours: 160}

	assert.Equal(t, http.StatusUnauthorized, api.do(anonymous, http.MethodPost, "/api/employees", body).Code)
	assert.Equal(t, http.StatusForbidden, api.do(as("ana"), http.MethodPost, "/api/employees", body).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(adminCaller, http.MethodPost, "/api/employees",
		CreateEmployeeRequest{ID: "x", Role: "Fresador"}).Code, "name is required")
	assert.Equal(t, http.StatusNotFound, api.do(anonymous, http.MethodGet, "/api/employees/nobody", nil).Code)
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

func TestRequestLifecycle_OverHTTP(t *testing.T) {
	// GIVEN: An employee with 160 hours
	// WHEN: They request three days, an admin approves, and one day is cancelled
	// THEN: Balances follow 160 -> (160, 24 pending) -> 136 -> 144
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)

	created := api.requestDays("ana", "2026-10-19", "2026-10-20", "2026-10-21")
	assert.Equal(t, "pending", created.Request.State)
	assert.Equal(t, 24, created.Request.HoursRequested)
	assert.Equal(t, 160.0, created.Balance.Available)
	assert.Equal(t, 24.0, created.Balance.Pending)
	id := created.Request.ID

	rec := api.do(adminCaller, http.MethodPost, "/api/requests/"+id+"/approve", ApproveRequest{Comment: "enjoy"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decodeBody[ResultDTO](t, rec)
	assert.Equal(t, "approved", approved.Request.State)
	assert.Equal(t, 136.0, approved.Balance.Available)
	assert.Equal(t, 0.0, approved.Balance.Pending)
	require.NotNil(t, approved.Request.AvailableBefore)
	assert.Equal(t, 160.0, *approved.Request.AvailableBefore)

	rec = api.do(as("ana"), http.MethodPost, "/api/requests/"+id+"/partial-cancellations",
		PartialCancelRequest{Dates: []string{"2026-10-21"}, Reason: "back early"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	partial := decodeBody[ResultDTO](t, rec)
	assert.Equal(t, 144.0, partial.Balance.Available)
	require.NotNil(t, partial.Partial)
	assert.Equal(t, 8, partial.Partial.HoursReturned)

	detail := decodeBody[RequestDTO](t, api.do(anonymous, http.MethodGet, "/api/requests/"+id, nil))
	assert.Equal(t, []string{"2026-10-19", "2026-10-20"}, detail.LiveDates)
	assert.Len(t, detail.PartialCancellations, 1)

	ledger := decodeBody[[]LedgerEntryDTO](t, api.do(anonymous, http.MethodGet, "/api/employees/ana/ledger", nil))
	types := make([]string, len(ledger))
	for i, e := range ledger {
		types[i] = e.Type
	}
	assert.Equal(t, []string{"hold", "consume", "refund"}, types)
}

func TestCreateRequest_InsufficientBalance(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 8)

	rec := api.do(as("ana"), http.MethodPost, "/api/employees/ana/requests",
		CreateRequestRequest{Kind: "days", Dates: []string{"2026-10-19", "2026-10-20"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Failed to create request", decodeBody[ErrorResponse](t, rec).Error)
}

func TestCreateRequest_Validation(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)

	tests := []struct {
		name string
		body CreateRequestRequest
	}{
		{"unknown kind", CreateRequestRequest{Kind: "sabbatical"}},
		{"days without dates", CreateRequestRequest{Kind: "days"}},
		{"malformed date", CreateRequestRequest{Kind: "days", Dates: []string{"19/10/2026"}}},
		{"weekend", CreateRequestRequest{Kind: "days", Dates: []string{"2026-10-17"}}},
		{"today", CreateRequestRequest{Kind: "days", Dates: []string{"2026-10-16"}}},
		{"full day as hours", CreateRequestRequest{Kind: "hours", Date: "2026-10-19", Hours: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(as("ana"), http.MethodPost, "/api/employees/ana/requests", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateRequest_ForSomeoneElse(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)

	rec := api.do(as("luis"), http.MethodPost, "/api/employees/ana/requests",
		CreateRequestRequest{Kind: "sale", Hours: 8})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDenyAndWithdraw(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)
	first := api.requestDays("ana", "2026-10-19")
	second := api.requestDays("ana", "2026-10-20")

	assert.Equal(t, http.StatusBadRequest,
		api.do(adminCaller, http.MethodPost, "/api/requests/"+first.Request.ID+"/deny", ReasonRequest{}).Code,
		"a reason is required")

	rec := api.do(adminCaller, http.MethodPost, "/api/requests/"+first.Request.ID+"/deny", ReasonRequest{Reason: "busy week"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "denied", decodeBody[ResultDTO](t, rec).Request.State)

	rec = api.do(as("ana"), http.MethodDelete, "/api/requests/"+second.Request.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0.0, decodeBody[ResultDTO](t, rec).Balance.Pending)

	assert.Equal(t, http.StatusNotFound, api.do(anonymous, http.MethodGet, "/api/requests/"+second.Request.ID, nil).Code)
	assert.Equal(t, http.StatusConflict,
		api.do(adminCaller, http.MethodPost, "/api/requests/"+first.Request.ID+"/approve", nil).Code,
		"a denied request cannot be approved")
}

func TestEditRequest_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)
	created := api.requestDays("ana", "2026-10-19")

	rec := api.do(as("ana"), http.MethodPut, "/api/requests/"+created.Request.ID,
		EditRequestRequest{Dates: []string{"2026-10-22", "2026-10-23"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decodeBody[ResultDTO](t, rec)
	assert.Equal(t, []string{"2026-10-22", "2026-10-23"}, edited.Request.Dates)
	assert.Equal(t, 2, edited.Request.Revision)
	assert.Equal(t, 16.0, edited.Balance.Pending)
}

func TestCancelRequest_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)
	created := api.requestDays("ana", "2026-10-19", "2026-10-20")
	api.do(adminCaller, http.MethodPost, "/api/requests/"+created.Request.ID+"/approve", nil)

	rec := api.do(as("ana"), http.MethodPost, "/api/requests/"+created.Request.ID+"/cancel", ReasonRequest{Reason: "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[ResultDTO](t, rec)
	assert.Equal(t, "cancelled", res.Request.State)
	assert.Equal(t, "plans changed", res.Request.CancellationReason)
	assert.Equal(t, 160.0, res.Balance.Available)
}

func TestBulkApprove_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)
	a := api.requestDays("ana", "2026-10-19")
	b := api.requestDays("ana", "2026-10-20")

	rec := api.do(adminCaller, http.MethodPost, "/api/requests/bulk/approve",
		BulkRequest{IDs: []string{a.Request.ID, b.Request.ID, "missing"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[BulkResultDTO](t, rec)
	assert.ElementsMatch(t, []string{a.Request.ID, b.Request.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "missing", res.Failed[0].RequestID)

	assert.Equal(t, http.StatusBadRequest,
		api.do(adminCaller, http.MethodPost, "/api/requests/bulk/deny", BulkRequest{}).Code)
}

func TestListRequests_Filters(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)
	api.hire("luis", "Tornero", 160)
	a := api.requestDays("ana", "2026-10-19")
	api.requestDays("luis", "2026-10-19")
	api.do(adminCaller, http.MethodPost, "/api/requests/"+a.Request.ID+"/approve", nil)

	all := decodeBody[[]RequestDTO](t, api.do(anonymous, http.MethodGet, "/api/requests", nil))
	assert.Len(t, all, 2)

	approved := decodeBody[[]RequestDTO](t, api.do(anonymous, http.MethodGet, "/api/requests?state=approved", nil))
	require.Len(t, approved, 1)
	assert.Equal(t, a.Request.ID, approved[0].ID)

	luis := decodeBody[[]RequestDTO](t, api.do(anonymous, http.MethodGet, "/api/employees/luis/requests?state=pending,approved", nil))
	require.Len(t, luis, 1)
	assert.Equal(t, "luis", luis[0].EmployeeID)

	assert.Equal(t, http.StatusBadRequest, api.do(anonymous, http.MethodGet, "/api/requests?state=lost", nil).Code)
}

func TestAdjustBalance_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 40)

	rec := api.do(adminCaller, http.MethodPost, "/api/employees/ana/adjustments",
		AdjustBalanceRequest{Type: "add", Hours: 16, Reason: "overtime"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decodeBody[ResultDTO](t, rec)
	assert.Equal(t, "balanceAdjustment", res.Request.Kind)
	assert.Equal(t, "add", res.Request.AdjustmentType)
	assert.Equal(t, 56.0, res.Balance.Available)

	assert.Equal(t, http.StatusForbidden, api.do(as("ana"), http.MethodPost, "/api/employees/ana/adjustments",
		AdjustBalanceRequest{Type: "add", Hours: 16, Reason: "self service"}).Code)
}

// =============================================================================
// ADMIN, CALENDAR, POLICY, COVERAGE
// =============================================================================

func TestPendingQueue_SweepsExpired(t *testing.T) {
	// GIVEN: A pending request for Monday and a clock moved to Monday
	// WHEN: The admin loads the review queue
	// THEN: The request is swept, its hold released, and a run recorded
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)
	api.requestDays("ana", "2026-10-19")
	api.clock.AddDays(3)

	assert.Equal(t, http.StatusForbidden, api.do(as("ana"), http.MethodGet, "/api/admin/pending", nil).Code)

	rec := api.do(adminCaller, http.MethodGet, "/api/admin/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]RequestDTO](t, rec))

	emp := decodeBody[EmployeeDTO](t, api.do(anonymous, http.MethodGet, "/api/employees/ana", nil))
	assert.Equal(t, 0.0, emp.Balance.Pending)

	runs := decodeBody[[]SweepRunDTO](t, api.do(anonymous, http.MethodGet, "/api/admin/sweeps", nil))
	require.Len(t, runs, 1)
	assert.Equal(t, timeoff.TriggerAdminView, runs[0].Trigger)
	assert.Equal(t, 1, runs[0].Cancelled)
}

func TestRunSweep_Manual(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(adminCaller, http.MethodPost, "/api/admin/sweeps", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run := decodeBody[SweepRunDTO](t, rec)
	assert.Equal(t, "manual", run.Trigger)
	assert.Equal(t, "completed", run.Status)

	assert.Equal(t, http.StatusBadRequest, api.do(anonymous, http.MethodGet, "/api/admin/sweeps?limit=zero", nil).Code)
}

func TestHolidays_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)

	rec := api.do(adminCaller, http.MethodPost, "/api/holidays", CreateHolidayRequest{Date: "2026-10-19", Name: "Fiesta local"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	list := decodeBody[[]HolidayDTO](t, api.do(anonymous, http.MethodGet, "/api/holidays?year=2026", nil))
	assert.Equal(t, []HolidayDTO{{Date: "2026-10-19", Name: "Fiesta local"}}, list)

	// The holiday can no longer be requested.
	rec = api.do(as("ana"), http.MethodPost, "/api/employees/ana/requests",
		CreateRequestRequest{Kind: "days", Dates: []string{"2026-10-19"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, api.do(adminCaller, http.MethodDelete, "/api/holidays/2026-10-19", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(adminCaller, http.MethodDelete, "/api/holidays/2026-10-19", nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(as("ana"), http.MethodPost, "/api/holidays",
		CreateHolidayRequest{Date: "2026-10-20", Name: "Mine"}).Code)
}

func TestPolicy_OverHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(anonymous, http.MethodGet, "/api/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[map[string]any](t, rec)["autoApprove"].(map[string]any)["enabled"].(bool))

	doc := map[string]any{
		"autoApprove":        map[string]any{"enabled": true, "mode": "byHours", "maxHours": 8},
		"coverageThresholds": map[string]int{"Fresador": 2},
	}
	rec = api.do(adminCaller, http.MethodPut, "/api/policy", doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p, err := api.svc.Policy(context.Background())
	require.NoError(t, err)
	assert.True(t, p.AutoApprove.Enabled)
	assert.Equal(t, 2, p.CoverageThresholds.For("Fresador"))

	bad := map[string]any{"autoApprove": map[string]any{"enabled": true, "mode": "whenever"}}
	assert.Equal(t, http.StatusBadRequest, api.do(adminCaller, http.MethodPut, "/api/policy", bad).Code)
	assert.Equal(t, http.StatusForbidden, api.do(as("ana"), http.MethodPut, "/api/policy", doc).Code)
}

func TestAutoApproval_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.hire("ana", "Fresador", 160)
	api.do(adminCaller, http.MethodPut, "/api/policy", map[string]any{
		"autoApprove": map[string]any{"enabled": true, "mode": "byHours", "maxHours": 8},
	})

	short := api.requestDays("ana", "2026-10-19")
	assert.True(t, short.AutoApproved)
	assert.Equal(t, "approved", short.Request.State)

	long := api.requestDays("ana", "2026-10-20", "2026-10-21")
	assert.False(t, long.AutoApproved)
	assert.Equal(t, "pending", long.Request.State)
}

func TestCoverage_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	for _, id := range []string{"ana", "bea", "carla"} {
		api.hire(id, "Fresador", 160)
		res := api.requestDays(id, "2026-10-19")
		api.do(adminCaller, http.MethodPost, "/api/requests/"+res.Request.ID+"/approve", nil)
	}
	api.do(adminCaller, http.MethodPut, "/api/policy", map[string]any{
		"autoApprove":        map[string]any{"enabled": false},
		"coverageThresholds": map[string]int{"Fresador": 2},
	})

	rec := api.do(anonymous, http.MethodGet, "/api/coverage/conflicts?date=2026-10-19", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conflicts := decodeBody[[]ConflictDTO](t, rec)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictDTO{Role: "Fresador", CountOnLeave: 3, Threshold: 2, Severity: "high"}, conflicts[0])

	avail := decodeBody[AvailabilityDTO](t, api.do(anonymous, http.MethodGet, "/api/coverage/availability?date=2026-10-19", nil))
	assert.Len(t, avail.Absences, 3)
	require.Len(t, avail.Roles, 1)
	assert.Equal(t, 0, avail.Roles[0].Available)

	assert.Equal(t, http.StatusBadRequest, api.do(anonymous, http.MethodGet, "/api/coverage/conflicts", nil).Code)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{generic.Invalid("x", "bad"), http.StatusBadRequest},
		{&generic.PermissionError{ActorID: "a", Action: "b"}, http.StatusForbidden},
		{&generic.NotFoundError{Kind: "request", ID: "r"}, http.StatusNotFound},
		{generic.ErrInvalidTransition, http.StatusConflict},
		{generic.ErrConcurrentModification, http.StatusConflict},
		{generic.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
