package timeoff

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// EXPIRED REQUEST SWEEPER
// =============================================================================

// SweepReason is the cancellation reason written by the sweeper.
const SweepReason = "could not be reviewed before its dates"

// Sweep triggers recorded on each run.
const (
	TriggerScheduler = "scheduler"
	TriggerAdminView = "admin_view"
	TriggerManual    = "manual"
)

// SweepExpiredRequests cancels every pending request whose first date is
// today or earlier, releasing its hold. Running it again is harmless: the
// state is re-checked inside each cancellation's transaction and the
// release entry carries an idempotency key.
//
// Requests without dates (sales) never expire.
func (s *Service) SweepExpiredRequests(ctx context.Context, trigger string) (generic.SweepRun, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	run := generic.SweepRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    generic.SweepRunning,
		StartedAt: s.Clock.Now(),
	}
	s.saveRun(ctx, run)

	pending, err := s.Store.ListRequests(ctx, generic.RequestFilter{States: []generic.RequestState{generic.StatePending}})
	if err != nil {
		return s.finishRun(ctx, run, err), err
	}

	for i := range pending {
		r := &pending[i]
		first, ok := r.FirstDate()
		if !ok || !s.Calendar.IsPastOrToday(first) {
			continue
		}
		run.Scanned++

		_, err := s.CancelRequestFull(ctx, SystemActor, r.ID, SweepReason)
		switch {
		case err == nil:
			run.Cancelled++
		case errors.Is(err, generic.ErrInvalidTransition), errors.Is(err, generic.ErrNotFound),
			errors.Is(err, generic.ErrDuplicateIdempotencyKey):
			// resolved by someone else since the scan
		default:
			run.Failed++
			s.Logger.Error("sweep could not cancel request", "component", "sweeper", "request", r.ID, "error", err)
		}
	}

	run = s.finishRun(ctx, run, nil)
	if run.Cancelled > 0 || run.Failed > 0 {
		s.Logger.Info("sweep completed", "component", "sweeper", "trigger", trigger,
			"expired", run.Scanned, "cancelled", run.Cancelled, "failed", run.Failed)
	}
	s.emit(ctx, Event{Type: EventSweepCompleted, ActorID: SystemActor.ID, At: s.Clock.Now(), Sweep: &run})
	return run, nil
}

// SweepRuns lists recorded runs, newest first.
func (s *Service) SweepRuns(ctx context.Context, limit int) ([]generic.SweepRun, error) {
	if s.Runs == nil {
		return nil, nil
	}
	return s.Runs.ListSweepRuns(ctx, limit)
}

func (s *Service) finishRun(ctx context.Context, run generic.SweepRun, err error) generic.SweepRun {
	now := s.Clock.Now()
	run.CompletedAt = &now
	run.Status = generic.SweepCompleted
	if err != nil {
		run.Status = generic.SweepFailed
		run.Error = err.Error()
	}
	s.saveRun(ctx, run)
	return run
}

func (s *Service) saveRun(ctx context.Context, run generic.SweepRun) {
	if s.Runs == nil {
		return
	}
	if err := s.Runs.SaveSweepRun(ctx, run); err != nil {
		s.Logger.Warn("could not record sweep run", "component", "sweeper", "run", run.ID, "error", err)
	}
}
