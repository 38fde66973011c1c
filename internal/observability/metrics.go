package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	reconcileRuns  map[string]int64
	reconcileRows  map[string]int64
	reconcileFails map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		reconcileRuns:  make(map[string]int64),
		reconcileRows:  make(map[string]int64),
		reconcileFails: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordReconcile increments counters for one reconciliation pass.
func (m *Metrics) RecordReconcile(pass string, result domain.ReconcileResult) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconcileRuns[pass]++
	m.reconcileRows[pass+"|deleted"] += result.Deleted
	m.reconcileRows[pass+"|updated"] += result.Updated
	m.reconcileRows[pass+"|inserted"] += result.Inserted
}

// RecordReconcileFailure increments the failure counter for a pass.
func (m *Metrics) RecordReconcileFailure(pass string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconcileFails[pass]++
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
