/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with a realistic
	manufacturing plant: machinists of four roles, national holidays, a
	vacation policy with coverage thresholds, and requests in every state.

AVAILABLE SCENARIOS:

	plant:            Twelve employees, holidays, policy, a few open requests
	coverage-crunch:  The plant with too many Fresadores and Montadores away
	                  on the same day
	empty:            Holidays and policy only

HOW SCENARIOS WORK:
 1. Reset the store (clear all data) and the holiday cache
 2. Add holidays for this year and the next
 3. Save the vacation policy built by factory.PlantPolicyJSON
 4. Create employees
 5. Submit requests through the service, so balances and ledger entries
    are exactly what real usage would produce

Requests are placed on the next selectable workdays, so a scenario loads
the same way on any date.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "coverage-crunch"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - factory/policy.go: Policy presets
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/warp/vacation-engine/factory"
	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/timeoff"
)

// =============================================================================
// SCENARIO REGISTRY
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "plant",
		Name:        "Manufacturing plant",
		Description: "Twelve employees across Fresador, Tornero, Soldador and Montador with pending and approved requests",
	},
	{
		ID:          "coverage-crunch",
		Name:        "Coverage crunch",
		Description: "Three Fresadores and two Montadores approved on the same day: one high and one medium conflict",
	},
	{
		ID:          "empty",
		Name:        "Empty plant",
		Description: "Holidays and vacation policy only, no employees",
	},
}

// plantThresholds are the coverage thresholds of the demo policy.
var plantThresholds = map[string]int{
	"Fresador": 2,
	"Tornero":  1,
	"Soldador": 1,
	"Montador": 2,
}

type plantEmployee struct {
	id, name, role  string
	available, year int
}

var plantEmployees = []plantEmployee{
	{"fre-01", "Lucía Fernández", "Fresador", 160, 160},
	{"fre-02", "Javier Moreno", "Fresador", 120, 160},
	{"fre-03", "Marta Ruiz", "Fresador", 96, 160},
	{"tor-01", "Carlos Gómez", "Tornero", 160, 160},
	{"tor-02", "Elena Navarro", "Tornero", 64, 160},
	{"sol-01", "Andrés Romero", "Soldador", 144, 160},
	{"sol-02", "Pilar Ortega", "Soldador", 40, 160},
	{"mon-01", "Sergio Castillo", "Montador", 160, 160},
	{"mon-02", "Nuria Delgado", "Montador", 136, 160},
	{"mon-03", "Raúl Vidal", "Montador", 112, 160},
	{"mon-04", "Irene Molina", "Montador", 8, 160},
	{"adm-01", "Teresa Campos", "Administración", 160, 160},
}

// nationalHolidays are the fixed-date national holidays.
var nationalHolidays = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 1, "Año Nuevo"},
	{time.January, 6, "Epifanía del Señor"},
	{time.May, 1, "Fiesta del Trabajo"},
	{time.August, 15, "Asunción de la Virgen"},
	{time.October, 12, "Fiesta Nacional de España"},
	{time.November, 1, "Todos los Santos"},
	{time.December, 6, "Día de la Constitución"},
	{time.December, 8, "Inmaculada Concepción"},
	{time.December, 25, "Navidad"},
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r, "load scenarios") {
		return
	}
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r, "reset the database") {
		return
	}
	if err := h.reset(r.Context()); err != nil {
		h.fail(w, r, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddDefaultHolidays adds the national holidays of ?year= (default: this
// year). Existing holidays on those dates are overwritten.
func (h *Handler) AddDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r, "manage holidays") {
		return
	}
	year := generic.Today(h.Service.Clock).Year()
	if s := r.URL.Query().Get("year"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.fail(w, r, "Invalid year", generic.Invalid("year", "must be a number"))
			return
		}
		year = n
	}

	n, err := h.addNationalHolidays(r.Context(), year)
	if err != nil {
		h.fail(w, r, "Failed to add holidays", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "created",
		"count":  n,
	})
}

// LoadScenarioByID resets the store and loads a scenario.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "plant":
		load = h.loadPlantScenario
	case "coverage-crunch":
		load = h.loadCoverageCrunchScenario
	case "empty":
		load = h.loadPlantBasics
	default:
		return generic.Invalid("scenario_id", "unknown scenario %q", id)
	}

	if err := h.reset(ctx); err != nil {
		return err
	}
	if err := load(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	h.Logger.Info("scenario loaded", "scenario", id)
	return nil
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	h.Service.Calendar.InvalidateAll()

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadPlantBasics adds holidays for this year and the next, and the plant
// vacation policy.
func (h *Handler) loadPlantBasics(ctx context.Context) error {
	year := generic.Today(h.Service.Clock).Year()
	for _, y := range []int{year, year + 1} {
		if _, err := h.addNationalHolidays(ctx, y); err != nil {
			return err
		}
	}

	policy, err := h.Policies.ParsePolicy(factory.PlantPolicyJSON(16, plantThresholds))
	if err != nil {
		return err
	}
	return h.Service.SavePolicy(ctx, timeoff.SystemActor, policy)
}

func (h *Handler) loadPlantEmployees(ctx context.Context) error {
	for _, pe := range plantEmployees {
		_, err := h.Service.CreateEmployee(ctx, timeoff.SystemActor, generic.Employee{
			ID:      generic.EmployeeID(pe.id),
			Name:    pe.name,
			Role:    pe.role,
			Balance: generic.NewBalance(generic.Hours(pe.available), generic.Hours(pe.year)),
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", pe.id, err)
		}
	}
	return nil
}

// loadPlantScenario: a working plant with requests in every open state.
//   - fre-01: three days pending (over the auto-approval limit)
//   - tor-01: one day, approved automatically
//   - sol-01: four hours on the first workday, approved automatically
//   - mon-02: a week approved by an admin, then one day cancelled
//   - sol-02: 24 hours sold back, pending
func (h *Handler) loadPlantScenario(ctx context.Context) error {
	if err := h.loadPlantBasics(ctx); err != nil {
		return err
	}
	if err := h.loadPlantEmployees(ctx); err != nil {
		return err
	}

	days, err := h.upcomingWorkdays(ctx, 10)
	if err != nil {
		return err
	}

	steps := []struct {
		employee string
		payload  generic.Payload
		comment  string
	}{
		{"fre-01", generic.DaysPayload{Dates: days[2:5]}, "Family trip"},
		{"tor-01", generic.DaysPayload{Dates: days[0:1]}, "Medical appointment"},
		{"sol-01", generic.HoursPayload{Date: days[0], Hours: 4}, "School event"},
		{"sol-02", generic.SalePayload{Hours: 24}, ""},
	}
	for _, s := range steps {
		if _, err := h.submit(ctx, s.employee, s.payload, s.comment); err != nil {
			return err
		}
	}

	week, err := h.submit(ctx, "mon-02", generic.DaysPayload{Dates: days[5:10]}, "Summer holidays")
	if err != nil {
		return err
	}
	if err := h.approve(ctx, week); err != nil {
		return err
	}
	_, err = h.Service.CancelRequestPartial(ctx, timeoff.SystemActor, week.Request.ID,
		days[9:10], "Needed for the line changeover")
	return err
}

// loadCoverageCrunchScenario: on the first workday three of three
// Fresadores (threshold 2, high) and two of four Montadores (threshold 2,
// medium) are away.
func (h *Handler) loadCoverageCrunchScenario(ctx context.Context) error {
	if err := h.loadPlantBasics(ctx); err != nil {
		return err
	}
	if err := h.loadPlantEmployees(ctx); err != nil {
		return err
	}

	days, err := h.upcomingWorkdays(ctx, 3)
	if err != nil {
		return err
	}
	crunch := days[0]

	for _, id := range []string{"fre-01", "fre-02", "fre-03", "mon-01", "mon-02"} {
		res, err := h.submit(ctx, id, generic.DaysPayload{Dates: []generic.TimePoint{crunch}}, "")
		if err != nil {
			return err
		}
		if err := h.approve(ctx, res); err != nil {
			return err
		}
	}

	// Still pending: conflicts with the crunch day.
	_, err = h.submit(ctx, "mon-03", generic.DaysPayload{Dates: []generic.TimePoint{crunch, days[1]}}, "Moving house")
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) addNationalHolidays(ctx context.Context, year int) (int, error) {
	for _, d := range nationalHolidays {
		holiday := generic.Holiday{Date: generic.NewTimePoint(year, d.month, d.day), Name: d.name}
		if err := h.Service.Calendar.Add(ctx, holiday); err != nil {
			return 0, fmt.Errorf("add holiday %s: %w", holiday.Date, err)
		}
	}
	return len(nationalHolidays), nil
}

// upcomingWorkdays returns the next n dates a request may use.
func (h *Handler) upcomingWorkdays(ctx context.Context, n int) ([]generic.TimePoint, error) {
	var out []generic.TimePoint
	day := generic.Today(h.Service.Clock)
	for len(out) < n {
		day = day.AddDays(1)
		err := h.Service.Calendar.Selectable(ctx, day)
		if generic.IsClientError(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, nil
}

func (h *Handler) submit(ctx context.Context, employee string, p generic.Payload, comment string) (*timeoff.Result, error) {
	res, err := h.Service.CreateRequest(ctx, timeoff.SystemActor, generic.EmployeeID(employee), p, comment)
	if err != nil {
		return nil, fmt.Errorf("request for %s: %w", employee, err)
	}
	return res, nil
}

// approve approves res unless the policy already did.
func (h *Handler) approve(ctx context.Context, res *timeoff.Result) error {
	if res.Request.State == generic.StateApproved {
		return nil
	}
	_, err := h.Service.ApproveRequest(ctx, timeoff.SystemActor, res.Request.ID, "Approved for the demo")
	return err
}
