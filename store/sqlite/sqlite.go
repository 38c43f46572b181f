/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface of the engine (Store, TxStore,
  HolidayStore, ConfigStore, SweepRunStore) on a single SQLite database.
  The same statements run on PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  generic.TxStore:       Employees, requests, partial cancellations, ledger
  generic.HolidayStore:  Holiday calendar
  generic.ConfigStore:   Config/VacationPolicy document
  generic.SweepRunStore: Sweeper run history

KEY TABLES:
  employees:              Balance buckets + version for compare-and-swap
  leave_requests:         Request envelopes (one row per request)
  partial_cancellations:  Append-only children of approved day requests
  ledger_entries:         Immutable balance movements
  holidays, config, sweep_runs

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on ledger_entries or partial_cancellations
  - ledger_entries.idempotency_key is UNIQUE; a violation surfaces as
    generic.ErrDuplicateIdempotencyKey

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection. WithTx holds
  the write lock for the whole transaction, so code running inside fn must
  only use the Store it is handed. Balance writes are additionally guarded
  by the employee version (UPDATE ... WHERE version = ?).

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

MIGRATION:
  Versioned migrations live in migrations/*.sql and are embedded into the
  binary. New() runs them with goose before returning.

USAGE:
  store, err := sqlite.New("./data/vacation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/warp/vacation-engine/factory"
	"github.com/warp/vacation-engine/generic"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ generic.TxStore       = (*Store)(nil)
	_ generic.HolidayStore  = (*Store)(nil)
	_ generic.ConfigStore   = (*Store)(nil)
	_ generic.SweepRunStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{
		"ledger_entries", "partial_cancellations", "leave_requests",
		"employees", "holidays", "config", "sweep_runs",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// QUERIER - Shared by *sql.DB and *sql.Tx
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// docs implements generic.Store over a querier. The Store methods take the
// lock and delegate here; WithTx hands out a docs bound to the transaction.
type docs struct {
	q querier
}

func (s *Store) docs() docs { return docs{q: s.db} }

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(docs{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs().GetEmployee(ctx, id)
}

func (s *Store) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs().ListEmployees(ctx)
}

func (s *Store) CreateEmployee(ctx context.Context, e generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs().CreateEmployee(ctx, e)
}

func (s *Store) UpdateBalance(ctx context.Context, id generic.EmployeeID, expectedVersion int64, b generic.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs().UpdateBalance(ctx, id, expectedVersion, b)
}

func (s *Store) GetRequest(ctx context.Context, id generic.RequestID) (*generic.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs().GetRequest(ctx, id)
}

func (s *Store) SaveRequest(ctx context.Context, r generic.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs().SaveRequest(ctx, r)
}

func (s *Store) DeleteRequest(ctx context.Context, id generic.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs().DeleteRequest(ctx, id)
}

func (s *Store) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs().ListRequests(ctx, filter)
}

func (s *Store) AppendPartialCancellation(ctx context.Context, pc generic.PartialCancellation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs().AppendPartialCancellation(ctx, pc)
}

func (s *Store) ListPartialCancellations(ctx context.Context, requestID generic.RequestID) ([]generic.PartialCancellation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs().ListPartialCancellations(ctx, requestID)
}

func (s *Store) AppendEntry(ctx context.Context, e generic.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs().AppendEntry(ctx, e)
}

func (s *Store) ListEntries(ctx context.Context, employeeID generic.EmployeeID) ([]generic.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs().ListEntries(ctx, employeeID)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, role, available, pending, assigned, version, created_at`

func (d docs) GetEmployee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	row := d.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, string(id))
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (d docs) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	rows, err := d.q.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d docs) CreateEmployee(ctx context.Context, e generic.Employee) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, string(e.ID), e.Name, e.Role,
		e.Balance.Available.String(), e.Balance.Pending.String(), e.Balance.Assigned.String(),
		formatTime(e.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return generic.Invalid("id", "employee %s already exists", e.ID)
	}
	return err
}

func (d docs) UpdateBalance(ctx context.Context, id generic.EmployeeID, expectedVersion int64, b generic.Balance) error {
	res, err := d.q.ExecContext(ctx, `
		UPDATE employees
		SET available = ?, pending = ?, assigned = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, b.Available.String(), b.Pending.String(), b.Assigned.String(), string(id), expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := d.GetEmployee(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: employee %s is no longer at version %d",
			generic.ErrConcurrentModification, id, expectedVersion)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (generic.Employee, error) {
	var (
		e                            generic.Employee
		id                           string
		available, pending, assigned string
		createdAt                    string
	)
	if err := row.Scan(&id, &e.Name, &e.Role, &available, &pending, &assigned, &e.Version, &createdAt); err != nil {
		return e, err
	}
	e.ID = generic.EmployeeID(id)
	e.Balance = generic.Balance{
		Available: parseHours(available),
		Pending:   parseHours(pending),
		Assigned:  parseHours(assigned),
	}
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, requester_id, kind, dates_json, hours_requested, state, revision,
	requester_comment, admin_comment, resolved_by, cancellation_reason,
	adjustment_type, adjustment_reason,
	requested_at, resolved_at, cancelled_at, updated_at,
	available_before, available_after`

func (d docs) GetRequest(ctx context.Context, id generic.RequestID) (*generic.LeaveRequest, error) {
	row := d.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, string(id))
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "request", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d docs) SaveRequest(ctx context.Context, r generic.LeaveRequest) error {
	if r.Payload == nil {
		return generic.Invalid("kind", "request %s has no payload", r.ID)
	}
	datesJSON, err := json.Marshal(generic.DateStrings(r.Dates()))
	if err != nil {
		return err
	}

	var adjType, adjReason sql.NullString
	if p, ok := r.Payload.(generic.AdjustmentPayload); ok {
		adjType = nullString(string(p.Type))
		adjReason = nullString(p.Reason)
	}

	_, err = d.q.ExecContext(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			dates_json = excluded.dates_json,
			hours_requested = excluded.hours_requested,
			state = excluded.state,
			revision = excluded.revision,
			requester_comment = excluded.requester_comment,
			admin_comment = excluded.admin_comment,
			resolved_by = excluded.resolved_by,
			cancellation_reason = excluded.cancellation_reason,
			adjustment_type = excluded.adjustment_type,
			adjustment_reason = excluded.adjustment_reason,
			resolved_at = excluded.resolved_at,
			cancelled_at = excluded.cancelled_at,
			updated_at = excluded.updated_at,
			available_before = excluded.available_before,
			available_after = excluded.available_after
	`,
		string(r.ID), string(r.RequesterID), string(r.Kind()), string(datesJSON),
		r.HoursRequested, string(r.State), r.Revision,
		nullString(r.RequesterComment), nullString(r.AdminComment),
		nullString(r.ResolvedBy), nullString(r.CancellationReason),
		adjType, adjReason,
		formatTime(r.RequestedAt), nullTime(r.ResolvedAt), nullTime(r.CancelledAt), formatTime(r.UpdatedAt),
		nullAmount(r.AvailableBefore), nullAmount(r.AvailableAfter),
	)
	return err
}

func (d docs) DeleteRequest(ctx context.Context, id generic.RequestID) error {
	res, err := d.q.ExecContext(ctx, `DELETE FROM leave_requests WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "request", ID: string(id)}
	}
	return nil
}

func (d docs) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests`
	var (
		where []string
		args  []any
	)
	if filter.RequesterID != "" {
		where = append(where, "requester_id = ?")
		args = append(args, string(filter.RequesterID))
	}
	if len(filter.States) > 0 {
		where = append(where, "state IN ("+placeholders(len(filter.States))+")")
		for _, st := range filter.States {
			args = append(args, string(st))
		}
	}
	if len(filter.Kinds) > 0 {
		where = append(where, "kind IN ("+placeholders(len(filter.Kinds))+")")
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY requested_at, id"

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row scanner) (generic.LeaveRequest, error) {
	var (
		r                                     generic.LeaveRequest
		id, requesterID, kind, datesJSON      string
		state                                 string
		requesterComment, adminComment        sql.NullString
		resolvedBy, cancellationReason        sql.NullString
		adjType, adjReason                    sql.NullString
		requestedAt, updatedAt                string
		resolvedAt, cancelledAt               sql.NullString
		availableBefore, availableAfter       sql.NullString
	)
	err := row.Scan(
		&id, &requesterID, &kind, &datesJSON, &r.HoursRequested, &state, &r.Revision,
		&requesterComment, &adminComment, &resolvedBy, &cancellationReason,
		&adjType, &adjReason,
		&requestedAt, &resolvedAt, &cancelledAt, &updatedAt,
		&availableBefore, &availableAfter,
	)
	if err != nil {
		return r, err
	}

	var dateStrs []string
	if err := json.Unmarshal([]byte(datesJSON), &dateStrs); err != nil {
		return r, fmt.Errorf("request %s: bad dates: %w", id, err)
	}
	dates, err := generic.ParseDates(dateStrs)
	if err != nil {
		return r, fmt.Errorf("request %s: %w", id, err)
	}

	switch generic.RequestKind(kind) {
	case generic.KindDays:
		r.Payload = generic.DaysPayload{Dates: dates}
	case generic.KindHours:
		if len(dates) != 1 {
			return r, fmt.Errorf("request %s: hours request stored with %d dates", id, len(dates))
		}
		r.Payload = generic.HoursPayload{Date: dates[0], Hours: r.HoursRequested}
	case generic.KindSale:
		r.Payload = generic.SalePayload{Hours: r.HoursRequested}
	case generic.KindAdjustment:
		r.Payload = generic.AdjustmentPayload{
			Type:   generic.AdjustmentType(adjType.String),
			Hours:  r.HoursRequested,
			Reason: adjReason.String,
		}
	default:
		return r, fmt.Errorf("request %s: unknown kind %q", id, kind)
	}

	r.ID = generic.RequestID(id)
	r.RequesterID = generic.EmployeeID(requesterID)
	r.State = generic.RequestState(state)
	r.RequesterComment = requesterComment.String
	r.AdminComment = adminComment.String
	r.ResolvedBy = resolvedBy.String
	r.CancellationReason = cancellationReason.String
	r.RequestedAt = parseTime(requestedAt)
	r.UpdatedAt = parseTime(updatedAt)
	r.ResolvedAt = parseNullTime(resolvedAt)
	r.CancelledAt = parseNullTime(cancelledAt)
	r.AvailableBefore = parseNullAmount(availableBefore)
	r.AvailableAfter = parseNullAmount(availableAfter)
	return r, nil
}

// =============================================================================
// PARTIAL CANCELLATIONS (append-only)
// =============================================================================

func (d docs) AppendPartialCancellation(ctx context.Context, pc generic.PartialCancellation) error {
	datesJSON, err := json.Marshal(generic.DateStrings(pc.CancelledDates))
	if err != nil {
		return err
	}
	_, err = d.q.ExecContext(ctx, `
		INSERT INTO partial_cancellations (
			id, request_id, revision, cancelled_dates_json, hours_returned, reason,
			processed_by, is_admin_action, available_before, available_after, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pc.ID, string(pc.RequestID), pc.Revision, string(datesJSON), pc.HoursReturned, pc.Reason,
		pc.ProcessedBy, pc.IsAdminAction, pc.AvailableBefore.String(), pc.AvailableAfter.String(),
		formatTime(pc.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return &generic.NotFoundError{Kind: "request", ID: string(pc.RequestID)}
	}
	return err
}

func (d docs) ListPartialCancellations(ctx context.Context, requestID generic.RequestID) ([]generic.PartialCancellation, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT id, request_id, revision, cancelled_dates_json, hours_returned, reason,
			processed_by, is_admin_action, available_before, available_after, created_at
		FROM partial_cancellations
		WHERE request_id = ?
		ORDER BY created_at, id
	`, string(requestID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.PartialCancellation
	for rows.Next() {
		var (
			pc                       generic.PartialCancellation
			reqID, datesJSON         string
			availBefore, availAfter  string
			createdAt                string
		)
		if err := rows.Scan(&pc.ID, &reqID, &pc.Revision, &datesJSON, &pc.HoursReturned, &pc.Reason,
			&pc.ProcessedBy, &pc.IsAdminAction, &availBefore, &availAfter, &createdAt); err != nil {
			return nil, err
		}
		var dateStrs []string
		if err := json.Unmarshal([]byte(datesJSON), &dateStrs); err != nil {
			return nil, fmt.Errorf("partial cancellation %s: bad dates: %w", pc.ID, err)
		}
		if pc.CancelledDates, err = generic.ParseDates(dateStrs); err != nil {
			return nil, err
		}
		pc.RequestID = generic.RequestID(reqID)
		pc.AvailableBefore = parseHours(availBefore)
		pc.AvailableAfter = parseHours(availAfter)
		pc.CreatedAt = parseTime(createdAt)
		out = append(out, pc)
	}
	return out, rows.Err()
}

// =============================================================================
// LEDGER ENTRIES (append-only)
// =============================================================================

func (d docs) AppendEntry(ctx context.Context, e generic.LedgerEntry) error {
	var key sql.NullString
	if e.IdempotencyKey != "" {
		key = nullString(e.IdempotencyKey)
	}
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO ledger_entries (
			id, employee_id, request_id, entry_type, hours,
			available_before, pending_before, available_after, pending_after,
			reason, actor_id, idempotency_key, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(e.ID), string(e.EmployeeID), nullString(string(e.RequestID)), string(e.Type), e.Hours.String(),
		e.Before.Available.String(), e.Before.Pending.String(),
		e.After.Available.String(), e.After.Pending.String(),
		nullString(e.Reason), nullString(e.ActorID), key, formatTime(e.CreatedAt),
	)
	if isUniqueConstraintError(err) && strings.Contains(err.Error(), "idempotency_key") {
		return fmt.Errorf("%w: %s", generic.ErrDuplicateIdempotencyKey, e.IdempotencyKey)
	}
	return err
}

func (d docs) ListEntries(ctx context.Context, employeeID generic.EmployeeID) ([]generic.LedgerEntry, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT id, employee_id, request_id, entry_type, hours,
			available_before, pending_before, available_after, pending_after,
			reason, actor_id, idempotency_key, created_at
		FROM ledger_entries
		WHERE employee_id = ?
		ORDER BY rowid
	`, string(employeeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.LedgerEntry
	for rows.Next() {
		var (
			e                                  generic.LedgerEntry
			id, empID, typ, hours              string
			availBefore, pendBefore            string
			availAfter, pendAfter              string
			requestID, reason, actorID, key    sql.NullString
			createdAt                          string
		)
		if err := rows.Scan(&id, &empID, &requestID, &typ, &hours,
			&availBefore, &pendBefore, &availAfter, &pendAfter,
			&reason, &actorID, &key, &createdAt); err != nil {
			return nil, err
		}
		e.ID = generic.EntryID(id)
		e.EmployeeID = generic.EmployeeID(empID)
		e.RequestID = generic.RequestID(requestID.String)
		e.Type = generic.EntryType(typ)
		e.Hours = parseHours(hours)
		e.Before = generic.Balance{Available: parseHours(availBefore), Pending: parseHours(pendBefore)}
		e.After = generic.Balance{Available: parseHours(availAfter), Pending: parseHours(pendAfter)}
		e.Reason = reason.String
		e.ActorID = actorID.String
		e.IdempotencyKey = key.String
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, year, name) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name
	`, h.Date.String(), h.Date.Year(), h.Name)
	return err
}

func (s *Store) DeleteHoliday(ctx context.Context, date generic.TimePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE date = ?`, date.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "holiday", ID: date.String()}
	}
	return nil
}

func (s *Store) HolidaysForYear(ctx context.Context, year int) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT date, name FROM holidays WHERE year = ? ORDER BY date`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.Holiday
	for rows.Next() {
		var date, name string
		if err := rows.Scan(&date, &name); err != nil {
			return nil, err
		}
		d, err := generic.ParseDate(date)
		if err != nil {
			return nil, err
		}
		out = append(out, generic.Holiday{Date: d, Name: name})
	}
	return out, rows.Err()
}

// =============================================================================
// CONFIG STORE
// =============================================================================

const vacationPolicyKey = "vacationPolicy"

// The policy is stored in its JSON document shape (see factory/policy.go).
var policies = factory.NewPolicyFactory()

func (s *Store) GetVacationPolicy(ctx context.Context) (generic.VacationPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value_json FROM config WHERE key = ?`, vacationPolicyKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.DefaultVacationPolicy(), nil
	}
	if err != nil {
		return generic.VacationPolicy{}, err
	}

	p, err := policies.ParsePolicy(raw)
	if err != nil {
		return generic.VacationPolicy{}, fmt.Errorf("stored vacation policy is corrupt: %w", err)
	}
	return p, nil
}

func (s *Store) SaveVacationPolicy(ctx context.Context, p generic.VacationPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := policies.ToJSON(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config (key, value_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, vacationPolicyKey, raw, formatTime(time.Now()))
	return err
}

// =============================================================================
// SWEEP RUN STORE
// =============================================================================

func (s *Store) SaveSweepRun(ctx context.Context, run generic.SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweep_runs (id, trigger, status, scanned, cancelled, failed, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			scanned = excluded.scanned,
			cancelled = excluded.cancelled,
			failed = excluded.failed,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, run.ID, run.Trigger, string(run.Status), run.Scanned, run.Cancelled, run.Failed,
		nullString(run.Error), formatTime(run.StartedAt), nullTime(run.CompletedAt),
	)
	return err
}

func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]generic.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trigger, status, scanned, cancelled, failed, error, started_at, completed_at
		FROM sweep_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.SweepRun
	for rows.Next() {
		var (
			run                  generic.SweepRun
			status, startedAt    string
			runErr, completedAt  sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Trigger, &status, &run.Scanned, &run.Cancelled, &run.Failed,
			&runErr, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		run.Status = generic.SweepRunStatus(status)
		run.Error = runErr.String
		run.StartedAt = parseTime(startedAt)
		run.CompletedAt = parseNullTime(completedAt)
		out = append(out, run)
	}
	return out, rows.Err()
}

// =============================================================================
// Helper functions
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullString(formatTime(*t))
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func parseHours(s string) generic.Amount {
	a, err := generic.ParseHours(s)
	if err != nil {
		return generic.ZeroHours()
	}
	return a
}

func nullAmount(a *generic.Amount) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return nullString(a.String())
}

func parseNullAmount(s sql.NullString) *generic.Amount {
	if !s.Valid {
		return nil
	}
	a := parseHours(s.String)
	return &a
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
