package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/observability"
	"github.com/spec-kit/team-hierarchy-service/internal/repository"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

// Locker serializes reconciliation runs. The engine's set-based statements
// are not safe to interleave, so overlapping runs are skipped, not queued.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ReconcileService drives the projection reconciliation engine. Nodes are
// always reconciled before edges, since edges resolve their endpoints
// against the node projection.
type ReconcileService struct {
	reconciler repository.GraphReconciler
	lock       Locker
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// ReconcileDependencies bundles collaborators.
type ReconcileDependencies struct {
	Reconciler repository.GraphReconciler
	Lock       Locker
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewReconcileService creates the service.
func NewReconcileService(deps ReconcileDependencies) *ReconcileService {
	return &ReconcileService{
		reconciler: deps.Reconciler,
		lock:       deps.Lock,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// ReconcileNodes converges the node projection onto the team ledger.
func (s *ReconcileService) ReconcileNodes(ctx context.Context) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult
	err := s.withLock(ctx, func() error {
		var err error
		result, err = s.runPass(ctx, "nodes", s.reconciler.ReconcileNodes)
		return err
	})
	return result, err
}

// ReconcileEdges converges the edge projection onto the membership ledger.
func (s *ReconcileService) ReconcileEdges(ctx context.Context) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult
	err := s.withLock(ctx, func() error {
		var err error
		result, err = s.runPass(ctx, "edges", s.reconciler.ReconcileEdges)
		return err
	})
	return result, err
}

// ReconcileAll runs the node pass then the edge pass under one lock.
func (s *ReconcileService) ReconcileAll(ctx context.Context) (domain.ReconcileSummary, error) {
	var summary domain.ReconcileSummary
	err := s.withLock(ctx, func() error {
		nodes, err := s.runPass(ctx, "nodes", s.reconciler.ReconcileNodes)
		if err != nil {
			return err
		}
		summary.Nodes = nodes

		edges, err := s.runPass(ctx, "edges", s.reconciler.ReconcileEdges)
		if err != nil {
			return err
		}
		summary.Edges = edges
		return nil
	})
	return summary, err
}

func (s *ReconcileService) runPass(ctx context.Context, pass string, fn func(context.Context) (domain.ReconcileResult, error)) (domain.ReconcileResult, error) {
	result, err := fn(ctx)
	if err != nil {
		s.metrics.RecordReconcileFailure(pass)
		s.logger.Error("reconcile pass failed", zap.String("pass", pass), zap.Error(err))
		return result, apperrors.MapError(err)
	}
	s.metrics.RecordReconcile(pass, result)
	s.logger.Info("reconcile pass completed",
		zap.String("pass", pass),
		zap.Int64("deleted", result.Deleted),
		zap.Int64("updated", result.Updated),
		zap.Int64("inserted", result.Inserted),
	)
	return result, nil
}

func (s *ReconcileService) withLock(ctx context.Context, fn func() error) error {
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !ok {
			return apperrors.NewConflict("reconciliation already running", nil)
		}
		defer func() {
			if err := s.lock.Release(ctx); err != nil {
				s.logger.Warn("failed to release reconcile lock", zap.Error(err))
			}
		}()
	}
	return fn()
}
