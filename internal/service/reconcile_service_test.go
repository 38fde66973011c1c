package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/observability"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

type fakeReconciler struct {
	calls       []string
	nodesResult domain.ReconcileResult
	edgesResult domain.ReconcileResult
	nodesErr    error
	edgesErr    error
}

func (r *fakeReconciler) ReconcileNodes(context.Context) (domain.ReconcileResult, error) {
	r.calls = append(r.calls, "nodes")
	return r.nodesResult, r.nodesErr
}

func (r *fakeReconciler) ReconcileEdges(context.Context) (domain.ReconcileResult, error) {
	r.calls = append(r.calls, "edges")
	return r.edgesResult, r.edgesErr
}

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	return !l.held, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.releases++
	return nil
}

func newReconcileFixture(reconciler *fakeReconciler, lock *fakeLock) *ReconcileService {
	return NewReconcileService(ReconcileDependencies{
		Reconciler: reconciler,
		Lock:       lock,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
}

func TestReconcileAllRunsNodesBeforeEdges(t *testing.T) {
	reconciler := &fakeReconciler{
		nodesResult: domain.ReconcileResult{Deleted: 1, Updated: 2, Inserted: 3},
		edgesResult: domain.ReconcileResult{Inserted: 4},
	}
	lock := &fakeLock{}
	svc := newReconcileFixture(reconciler, lock)

	summary, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"nodes", "edges"}, reconciler.calls)
	assert.Equal(t, domain.ReconcileResult{Deleted: 1, Updated: 2, Inserted: 3}, summary.Nodes)
	assert.Equal(t, domain.ReconcileResult{Inserted: 4}, summary.Edges)
	assert.Equal(t, 1, lock.acquires)
	assert.Equal(t, 1, lock.releases)
}

func TestReconcileAllSkipsWhenLockHeld(t *testing.T) {
	reconciler := &fakeReconciler{}
	lock := &fakeLock{held: true}
	svc := newReconcileFixture(reconciler, lock)

	_, err := svc.ReconcileAll(context.Background())
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Empty(t, reconciler.calls)
	assert.Zero(t, lock.releases)
}

func TestReconcileAllStopsAfterNodeFailure(t *testing.T) {
	reconciler := &fakeReconciler{nodesErr: errors.New("boom")}
	lock := &fakeLock{}
	svc := newReconcileFixture(reconciler, lock)

	_, err := svc.ReconcileAll(context.Background())
	require.Error(t, err)
	// the edge pass must not run against a node projection that failed to converge
	assert.Equal(t, []string{"nodes"}, reconciler.calls)
	assert.Equal(t, 1, lock.releases)
}

func TestReconcileEdgesReportsFailure(t *testing.T) {
	reconciler := &fakeReconciler{edgesErr: errors.New("deadlock")}
	svc := newReconcileFixture(reconciler, &fakeLock{})

	_, err := svc.ReconcileEdges(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"edges"}, reconciler.calls)
}

func TestReconcileNodesRunsSinglePass(t *testing.T) {
	reconciler := &fakeReconciler{nodesResult: domain.ReconcileResult{Updated: 7}}
	lock := &fakeLock{}
	svc := newReconcileFixture(reconciler, lock)

	result, err := svc.ReconcileNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Updated)
	assert.Equal(t, []string{"nodes"}, reconciler.calls)
	assert.Equal(t, 1, lock.releases)
}
