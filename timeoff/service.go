package timeoff

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// SERVICE - Request lifecycle with transactional guarantees
// =============================================================================

// Stores groups the persistence collaborators of a Service. The SQLite and
// in-memory stores implement all of them.
type Stores interface {
	generic.TxStore
	generic.HolidayStore
	generic.ConfigStore
	generic.SweepRunStore
}

// Service exposes the lifecycle operations. Every mutating operation runs
// in one store transaction that covers the request document, its partial
// cancellations, the employee balance and the ledger entries, and is
// re-run when the balance compare-and-swap loses a race.
//
// The Calendar and the coverage Detector read through the outer store, so
// they are consulted before a transaction opens, never inside one.
type Service struct {
	Store    generic.TxStore
	Config   generic.ConfigStore
	Runs     generic.SweepRunStore
	Calendar *Calendar
	Coverage *Detector
	Clock    generic.Clock
	Notifier Notifier // optional
	Logger   *slog.Logger
	Retries  int

	sweepMu sync.Mutex
}

// NewService wires a Service over stores. clock may be nil.
func NewService(stores Stores, clock generic.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Store:    stores,
		Config:   stores,
		Runs:     stores,
		Calendar: NewCalendar(stores, clock),
		Coverage: NewDetector(stores, stores),
		Clock:    clock,
		Logger:   logger,
		Retries:  generic.DefaultRetryAttempts,
	}
}

// inTx runs fn in a transaction with a ledger bound to it, retrying on
// concurrent balance modification.
func (s *Service) inTx(ctx context.Context, fn func(tx generic.Store, ledger *generic.BalanceLedger) error) error {
	return generic.WithRetry(ctx, s.Retries, func() error {
		return s.Store.WithTx(ctx, func(tx generic.Store) error {
			return fn(tx, generic.NewBalanceLedger(tx, s.Clock))
		})
	})
}

func (s *Service) emit(ctx context.Context, e Event) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, e); err != nil {
		s.Logger.Warn("event delivery failed", "event", e.Type, "request", e.RequestID, "error", err)
	}
}

func (s *Service) requireAdmin(actor Actor, action string) error {
	if actor.Admin {
		return nil
	}
	return &generic.PermissionError{ActorID: actor.ID, Action: action, Message: "administrator role required"}
}

func (s *Service) requireOwnerOrAdmin(actor Actor, r *generic.LeaveRequest, action string) error {
	if actor.Admin || actor.owns(r) {
		return nil
	}
	return &generic.PermissionError{ActorID: actor.ID, Action: action, Message: "request belongs to another employee"}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee registers an employee with an initial balance.
func (s *Service) CreateEmployee(ctx context.Context, actor Actor, e generic.Employee) (*generic.Employee, error) {
	if err := s.requireAdmin(actor, "create employees"); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, generic.Invalid("id", "employee id is required")
	}
	if e.Name == "" {
		return nil, generic.Invalid("name", "employee name is required")
	}
	if e.Balance.Pending.Unit == "" {
		e.Balance.Pending = generic.ZeroHours()
	}
	if !e.Balance.Valid() || !e.Balance.Pending.IsZero() {
		return nil, generic.Invalid("balance", "a new employee starts with a non-negative available balance and nothing pending")
	}
	e.CreatedAt = s.Clock.Now()
	if err := s.Store.CreateEmployee(ctx, e); err != nil {
		return nil, err
	}
	return s.Store.GetEmployee(ctx, e.ID)
}

func (s *Service) GetEmployee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	return s.Store.GetEmployee(ctx, id)
}

func (s *Service) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	return s.Store.ListEmployees(ctx)
}

// Ledger returns the balance movements of an employee, oldest first.
func (s *Service) Ledger(ctx context.Context, id generic.EmployeeID) ([]generic.LedgerEntry, error) {
	if _, err := s.Store.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListEntries(ctx, id)
}

// =============================================================================
// REQUEST QUERIES
// =============================================================================

func (s *Service) GetRequest(ctx context.Context, id generic.RequestID) (*RequestDetail, error) {
	r, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	children, err := s.Store.ListPartialCancellations(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RequestDetail{Request: *r, Partials: children, LiveDates: generic.LiveDates(r, children)}, nil
}

func (s *Service) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	return s.Store.ListRequests(ctx, filter)
}

// PendingForReview returns the admin queue. Expired requests are swept
// first so the queue only shows requests that can still be decided.
func (s *Service) PendingForReview(ctx context.Context) ([]generic.LeaveRequest, error) {
	if _, err := s.SweepExpiredRequests(ctx, TriggerAdminView); err != nil {
		s.Logger.Warn("opportunistic sweep failed", "error", err)
	}
	return s.Store.ListRequests(ctx, generic.RequestFilter{States: []generic.RequestState{generic.StatePending}})
}

// =============================================================================
// POLICY
// =============================================================================

func (s *Service) Policy(ctx context.Context) (generic.VacationPolicy, error) {
	return s.Config.GetVacationPolicy(ctx)
}

func (s *Service) SavePolicy(ctx context.Context, actor Actor, p generic.VacationPolicy) error {
	if err := s.requireAdmin(actor, "change the vacation policy"); err != nil {
		return err
	}
	if !p.AutoApprove.Mode.Valid() {
		return generic.Invalid("autoApprove.mode", "unknown mode %q", p.AutoApprove.Mode)
	}
	if p.AutoApprove.MaxHours < 0 {
		return generic.Invalid("autoApprove.maxHours", "must not be negative")
	}
	for role, n := range p.CoverageThresholds {
		if n < 1 {
			return generic.Invalid("coverageThresholds", "threshold of %s must be at least 1", role)
		}
	}
	return s.Config.SaveVacationPolicy(ctx, p)
}

// =============================================================================
// COVERAGE / AVAILABILITY
// =============================================================================

// DetectConflicts returns the coverage conflicts on date.
func (s *Service) DetectConflicts(ctx context.Context, date generic.TimePoint) ([]Conflict, error) {
	return s.Coverage.Detect(ctx, date)
}

// CalculateAvailabilityForDate reports who is away on date and how many
// people of each role remain.
func (s *Service) CalculateAvailabilityForDate(ctx context.Context, date generic.TimePoint) (*Availability, error) {
	if date.IsZero() {
		return nil, generic.Invalid("date", "date is required")
	}
	employees, err := s.Store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	absences, err := s.Coverage.Absences(ctx, date)
	if err != nil {
		return nil, err
	}
	policy, err := s.Config.GetVacationPolicy(ctx)
	if err != nil {
		return nil, err
	}
	holiday, _, err := s.Calendar.HolidayName(ctx, date)
	if err != nil {
		return nil, err
	}

	byRole := make(map[string]*RoleAvailability)
	for _, e := range employees {
		ra, ok := byRole[e.Role]
		if !ok {
			ra = &RoleAvailability{Role: e.Role, Threshold: policy.CoverageThresholds.For(e.Role)}
			byRole[e.Role] = ra
		}
		ra.Total++
	}
	for _, a := range absences {
		if ra, ok := byRole[a.Role]; ok {
			ra.OnLeave++
		}
	}

	av := &Availability{
		Date:      date,
		Weekend:   s.Calendar.IsWeekend(date),
		Holiday:   holiday,
		Absences:  absences,
		Conflicts: conflictsFor(absences, policy.CoverageThresholds),
	}
	for _, ra := range byRole {
		ra.Available = ra.Total - ra.OnLeave
		av.Roles = append(av.Roles, *ra)
	}
	sort.Slice(av.Roles, func(i, j int) bool { return av.Roles[i].Role < av.Roles[j].Role })
	return av, nil
}

// conflictProbe counts conflicts for role across dates among approved
// absences that already exist.
func (s *Service) conflictProbe(ctx context.Context, role string) ConflictProbe {
	return func(dates []generic.TimePoint) (int, error) {
		total := 0
		for _, d := range dates {
			conflicts, err := s.Coverage.Detect(ctx, d)
			if err != nil {
				return 0, err
			}
			for _, c := range conflicts {
				if c.Role == role {
					total++
				}
			}
		}
		return total, nil
	}
}
