package worker

import (
	"context"
	"errors"

	"github.com/robfig/cron"
	"go.uber.org/zap"

	"github.com/spec-kit/team-hierarchy-service/internal/config"
	"github.com/spec-kit/team-hierarchy-service/internal/events"
	"github.com/spec-kit/team-hierarchy-service/internal/service"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

// ReconcileWorker keeps the graph projection converged: inline after every
// ledger mutation (via domain events) and on a schedule as a safety net for
// runs that were skipped or rolled back.
type ReconcileWorker struct {
	reconcile *service.ReconcileService
	logger    *zap.Logger
	cron      *cron.Cron
}

// StartReconcileWorker subscribes to ledger events and starts the schedule.
func StartReconcileWorker(dispatcher events.Dispatcher, reconcile *service.ReconcileService, cfg config.ReconcileConfig, logger *zap.Logger) (*ReconcileWorker, error) {
	w := &ReconcileWorker{reconcile: reconcile, logger: logger}

	if cfg.InlineEnabled && dispatcher != nil {
		for _, eventType := range []events.EventType{
			events.EventTeamCreated,
			events.EventTeamUpdated,
			events.EventTeamDeleted,
			events.EventMembershipAdded,
			events.EventMembershipUpdated,
			events.EventMembershipRemoved,
		} {
			dispatcher.Subscribe(eventType, w.handleLedgerChange)
		}
	}

	if cfg.Schedule != "" {
		w.cron = cron.New()
		if err := w.cron.AddFunc(cfg.Schedule, w.runScheduled); err != nil {
			return nil, err
		}
		w.cron.Start()
		logger.Info("reconcile schedule started", zap.String("schedule", cfg.Schedule))
	}

	return w, nil
}

// Stop halts the schedule. In-flight runs finish on their own.
func (w *ReconcileWorker) Stop() {
	if w.cron != nil {
		w.cron.Stop()
	}
}

func (w *ReconcileWorker) handleLedgerChange(ctx context.Context, event events.Event) error {
	if _, err := w.reconcile.ReconcileAll(ctx); err != nil {
		if isLockHeld(err) {
			// another run is converging the same state
			return nil
		}
		w.logger.Error("inline reconcile failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (w *ReconcileWorker) runScheduled() {
	if _, err := w.reconcile.ReconcileAll(context.Background()); err != nil && !isLockHeld(err) {
		w.logger.Error("scheduled reconcile failed", zap.Error(err))
	}
}

func isLockHeld(err error) bool {
	var domainErr *apperrors.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "CONFLICT"
}
