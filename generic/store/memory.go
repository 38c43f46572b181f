// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.TxStore, generic.HolidayStore,
// generic.ConfigStore and generic.SweepRunStore.
type Memory struct {
	mu   sync.RWMutex
	data *memoryData
}

type memoryData struct {
	employees   map[generic.EmployeeID]generic.Employee
	requests    map[generic.RequestID]generic.LeaveRequest
	partials    map[generic.RequestID][]generic.PartialCancellation
	entries     map[generic.EmployeeID][]generic.LedgerEntry
	idempotency map[string]bool
	holidays    map[string]generic.Holiday
	policy      *generic.VacationPolicy
	sweepRuns   []generic.SweepRun
}

func newMemoryData() *memoryData {
	return &memoryData{
		employees:   make(map[generic.EmployeeID]generic.Employee),
		requests:    make(map[generic.RequestID]generic.LeaveRequest),
		partials:    make(map[generic.RequestID][]generic.PartialCancellation),
		entries:     make(map[generic.EmployeeID][]generic.LedgerEntry),
		idempotency: make(map[string]bool),
		holidays:    make(map[string]generic.Holiday),
	}
}

func NewMemory() *Memory {
	return &Memory{data: newMemoryData()}
}

var (
	_ generic.TxStore       = (*Memory)(nil)
	_ generic.HolidayStore  = (*Memory)(nil)
	_ generic.ConfigStore   = (*Memory)(nil)
	_ generic.SweepRunStore = (*Memory)(nil)
)

func (m *Memory) view() memoryView { return memoryView{d: m.data} }

// =============================================================================
// generic.Store (locked wrappers around memoryView)
// =============================================================================

func (m *Memory) GetEmployee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetEmployee(ctx, id)
}

func (m *Memory) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListEmployees(ctx)
}

func (m *Memory) CreateEmployee(ctx context.Context, e generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateEmployee(ctx, e)
}

func (m *Memory) UpdateBalance(ctx context.Context, id generic.EmployeeID, expectedVersion int64, b generic.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateBalance(ctx, id, expectedVersion, b)
}

func (m *Memory) GetRequest(ctx context.Context, id generic.RequestID) (*generic.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetRequest(ctx, id)
}

func (m *Memory) SaveRequest(ctx context.Context, r generic.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().SaveRequest(ctx, r)
}

func (m *Memory) DeleteRequest(ctx context.Context, id generic.RequestID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeleteRequest(ctx, id)
}

func (m *Memory) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListRequests(ctx, filter)
}

func (m *Memory) AppendPartialCancellation(ctx context.Context, pc generic.PartialCancellation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().AppendPartialCancellation(ctx, pc)
}

func (m *Memory) ListPartialCancellations(ctx context.Context, requestID generic.RequestID) ([]generic.PartialCancellation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListPartialCancellations(ctx, requestID)
}

func (m *Memory) AppendEntry(ctx context.Context, e generic.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().AppendEntry(ctx, e)
}

func (m *Memory) ListEntries(ctx context.Context, employeeID generic.EmployeeID) ([]generic.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListEntries(ctx, employeeID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()

	if err := fn(memoryView{d: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// Reset clears all data (demo scenarios).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = newMemoryData()
	return nil
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.employees {
		c.employees[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = cloneRequest(v)
	}
	for k, v := range d.partials {
		c.partials[k] = append([]generic.PartialCancellation(nil), v...)
	}
	for k, v := range d.entries {
		c.entries[k] = append([]generic.LedgerEntry(nil), v...)
	}
	for k, v := range d.idempotency {
		c.idempotency[k] = v
	}
	for k, v := range d.holidays {
		c.holidays[k] = v
	}
	if d.policy != nil {
		p := clonePolicy(*d.policy)
		c.policy = &p
	}
	c.sweepRuns = append([]generic.SweepRun(nil), d.sweepRuns...)
	return c
}

// =============================================================================
// HOLIDAYS / CONFIG / SWEEP RUNS
// =============================================================================

func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.holidays[h.Date.String()] = h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, date generic.TimePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data.holidays[date.String()]; !ok {
		return &generic.NotFoundError{Kind: "holiday", ID: date.String()}
	}
	delete(m.data.holidays, date.String())
	return nil
}

func (m *Memory) HolidaysForYear(_ context.Context, year int) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.Holiday
	for _, h := range m.data.holidays {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) GetVacationPolicy(_ context.Context) (generic.VacationPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data.policy == nil {
		return generic.DefaultVacationPolicy(), nil
	}
	return clonePolicy(*m.data.policy), nil
}

func (m *Memory) SaveVacationPolicy(_ context.Context, p generic.VacationPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := clonePolicy(p)
	m.data.policy = &c
	return nil
}

func (m *Memory) SaveSweepRun(_ context.Context, run generic.SweepRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.data.sweepRuns {
		if r.ID == run.ID {
			m.data.sweepRuns[i] = run
			return nil
		}
	}
	m.data.sweepRuns = append(m.data.sweepRuns, run)
	return nil
}

// ListSweepRuns returns the most recent runs first.
func (m *Memory) ListSweepRuns(_ context.Context, limit int) ([]generic.SweepRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.SweepRun
	for i := len(m.data.sweepRuns) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.data.sweepRuns[i])
	}
	return out, nil
}

// =============================================================================
// VIEW - Unlocked access used by the locked wrappers and inside WithTx
// =============================================================================

type memoryView struct {
	d *memoryData
}

func (v memoryView) GetEmployee(_ context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	e, ok := v.d.employees[id]
	if !ok {
		return nil, &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return &e, nil
}

func (v memoryView) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	out := make([]generic.Employee, 0, len(v.d.employees))
	for _, e := range v.d.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v memoryView) CreateEmployee(_ context.Context, e generic.Employee) error {
	if _, ok := v.d.employees[e.ID]; ok {
		return generic.Invalid("id", "employee %s already exists", e.ID)
	}
	e.Version = 1
	v.d.employees[e.ID] = e
	return nil
}

func (v memoryView) UpdateBalance(_ context.Context, id generic.EmployeeID, expectedVersion int64, b generic.Balance) error {
	e, ok := v.d.employees[id]
	if !ok {
		return &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	if e.Version != expectedVersion {
		return generic.ErrConcurrentModification
	}
	e.Balance = b
	e.Version++
	v.d.employees[id] = e
	return nil
}

func (v memoryView) GetRequest(_ context.Context, id generic.RequestID) (*generic.LeaveRequest, error) {
	r, ok := v.d.requests[id]
	if !ok {
		return nil, &generic.NotFoundError{Kind: "request", ID: string(id)}
	}
	c := cloneRequest(r)
	return &c, nil
}

func (v memoryView) SaveRequest(_ context.Context, r generic.LeaveRequest) error {
	v.d.requests[r.ID] = cloneRequest(r)
	return nil
}

func (v memoryView) DeleteRequest(_ context.Context, id generic.RequestID) error {
	if _, ok := v.d.requests[id]; !ok {
		return &generic.NotFoundError{Kind: "request", ID: string(id)}
	}
	delete(v.d.requests, id)
	return nil
}

func (v memoryView) ListRequests(_ context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	var out []generic.LeaveRequest
	for _, r := range v.d.requests {
		if filter.Matches(&r) {
			out = append(out, cloneRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v memoryView) AppendPartialCancellation(_ context.Context, pc generic.PartialCancellation) error {
	if _, ok := v.d.requests[pc.RequestID]; !ok {
		return &generic.NotFoundError{Kind: "request", ID: string(pc.RequestID)}
	}
	pc.CancelledDates = append([]generic.TimePoint(nil), pc.CancelledDates...)
	v.d.partials[pc.RequestID] = append(v.d.partials[pc.RequestID], pc)
	return nil
}

func (v memoryView) ListPartialCancellations(_ context.Context, requestID generic.RequestID) ([]generic.PartialCancellation, error) {
	return append([]generic.PartialCancellation(nil), v.d.partials[requestID]...), nil
}

func (v memoryView) AppendEntry(_ context.Context, e generic.LedgerEntry) error {
	if e.IdempotencyKey != "" {
		if v.d.idempotency[e.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		v.d.idempotency[e.IdempotencyKey] = true
	}
	v.d.entries[e.EmployeeID] = append(v.d.entries[e.EmployeeID], e)
	return nil
}

func (v memoryView) ListEntries(_ context.Context, employeeID generic.EmployeeID) ([]generic.LedgerEntry, error) {
	return append([]generic.LedgerEntry(nil), v.d.entries[employeeID]...), nil
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func cloneRequest(r generic.LeaveRequest) generic.LeaveRequest {
	if p, ok := r.Payload.(generic.DaysPayload); ok {
		r.Payload = generic.DaysPayload{Dates: append([]generic.TimePoint(nil), p.Dates...)}
	}
	return r
}

func clonePolicy(p generic.VacationPolicy) generic.VacationPolicy {
	th := make(generic.CoverageThresholds, len(p.CoverageThresholds))
	for k, v := range p.CoverageThresholds {
		th[k] = v
	}
	p.CoverageThresholds = th
	return p
}
