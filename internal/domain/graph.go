package domain

import "time"

// TeamNode is the graph projection of a Team. Rows are written exclusively
// by the reconciliation engine; ID mirrors Team.ID and Key is the unique
// alternate key edge reconciliation resolves endpoints through.
type TeamNode struct {
	ID                string
	Key               string
	Name              string
	Code              string
	Type              TeamType
	ActiveTimestamp   time.Time
	InactiveTimestamp *time.Time
	IsActive          bool
	IsDeleted         bool
}

// TeamMembershipEdge is the graph projection of a TeamMembership. ID mirrors
// TeamMembership.ID and is the join key reconciliation matches rows on.
type TeamMembershipEdge struct {
	ID         string
	FromNodeID string
	ToNodeID   string
	StartDate  time.Time
	EndDate    *time.Time
}

// HierarchyMember is one traversal result: a node plus its distance from
// the starting team.
type HierarchyMember struct {
	Node  TeamNode
	Depth int
}

// ReconcileResult reports the row counts of one reconciliation pass.
type ReconcileResult struct {
	Deleted  int64 `json:"deleted"`
	Updated  int64 `json:"updated"`
	Inserted int64 `json:"inserted"`
}

// IsNoop reports whether the pass changed nothing.
func (r ReconcileResult) IsNoop() bool {
	return r.Deleted == 0 && r.Updated == 0 && r.Inserted == 0
}

// ReconcileSummary reports a full node-then-edge reconciliation run.
type ReconcileSummary struct {
	Nodes ReconcileResult `json:"nodes"`
	Edges ReconcileResult `json:"edges"`
}
