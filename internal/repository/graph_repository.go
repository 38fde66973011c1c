package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
)

// GraphRepository serves traversal queries against the projection tables.
// It never reads the ledger.
type GraphRepository interface {
	GetNode(ctx context.Context, id string) (*domain.TeamNode, error)
	Ancestors(ctx context.Context, nodeID string, on time.Time, maxDepth int) ([]domain.HierarchyMember, error)
	Descendants(ctx context.Context, nodeID string, on time.Time, maxDepth int) ([]domain.HierarchyMember, error)
}

type graphRepository struct {
	pool *pgxpool.Pool
}

// NewGraphRepository constructs repository.
func NewGraphRepository(pool *pgxpool.Pool) GraphRepository {
	return &graphRepository{pool: pool}
}

func (r *graphRepository) GetNode(ctx context.Context, id string) (*domain.TeamNode, error) {
	const query = `
        SELECT id, key, name, code, type, active_timestamp, inactive_timestamp, is_active, is_deleted
        FROM team_nodes WHERE id=$1`
	return scanNode(r.pool.QueryRow(ctx, query, id))
}

// The ledger invariants guarantee cycle freedom, but the walk is still
// depth-bounded as a guard against invariant regressions.
const ancestorsSQL = `
        WITH RECURSIVE walk AS (
            SELECT e.to_node_id AS node_id, 1 AS depth
            FROM team_membership_edges e
            WHERE e.from_node_id = $1
              AND e.start_date <= $2 AND (e.end_date IS NULL OR e.end_date > $2)
            UNION ALL
            SELECT e.to_node_id, w.depth + 1
            FROM team_membership_edges e
            JOIN walk w ON e.from_node_id = w.node_id
            WHERE e.start_date <= $2 AND (e.end_date IS NULL OR e.end_date > $2)
              AND w.depth < $3
        )
        SELECT n.id, n.key, n.name, n.code, n.type, n.active_timestamp, n.inactive_timestamp,
               n.is_active, n.is_deleted, w.depth
        FROM walk w
        JOIN team_nodes n ON n.id = w.node_id
        ORDER BY w.depth ASC, n.code ASC`

const descendantsSQL = `
        WITH RECURSIVE walk AS (
            SELECT e.from_node_id AS node_id, 1 AS depth
            FROM team_membership_edges e
            WHERE e.to_node_id = $1
              AND e.start_date <= $2 AND (e.end_date IS NULL OR e.end_date > $2)
            UNION ALL
            SELECT e.from_node_id, w.depth + 1
            FROM team_membership_edges e
            JOIN walk w ON e.to_node_id = w.node_id
            WHERE e.start_date <= $2 AND (e.end_date IS NULL OR e.end_date > $2)
              AND w.depth < $3
        )
        SELECT n.id, n.key, n.name, n.code, n.type, n.active_timestamp, n.inactive_timestamp,
               n.is_active, n.is_deleted, w.depth
        FROM walk w
        JOIN team_nodes n ON n.id = w.node_id
        ORDER BY w.depth ASC, n.code ASC`

func (r *graphRepository) Ancestors(ctx context.Context, nodeID string, on time.Time, maxDepth int) ([]domain.HierarchyMember, error) {
	return r.walk(ctx, ancestorsSQL, nodeID, on, maxDepth)
}

func (r *graphRepository) Descendants(ctx context.Context, nodeID string, on time.Time, maxDepth int) ([]domain.HierarchyMember, error) {
	return r.walk(ctx, descendantsSQL, nodeID, on, maxDepth)
}

func (r *graphRepository) walk(ctx context.Context, query, nodeID string, on time.Time, maxDepth int) ([]domain.HierarchyMember, error) {
	rows, err := r.pool.Query(ctx, query, nodeID, domain.TruncateToDay(on), maxDepth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.HierarchyMember, 0, 8)
	for rows.Next() {
		var member domain.HierarchyMember
		if err := rows.Scan(
			&member.Node.ID,
			&member.Node.Key,
			&member.Node.Name,
			&member.Node.Code,
			&member.Node.Type,
			&member.Node.ActiveTimestamp,
			&member.Node.InactiveTimestamp,
			&member.Node.IsActive,
			&member.Node.IsDeleted,
			&member.Depth,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func scanNode(row pgx.Row) (*domain.TeamNode, error) {
	var node domain.TeamNode
	if err := row.Scan(
		&node.ID,
		&node.Key,
		&node.Name,
		&node.Code,
		&node.Type,
		&node.ActiveTimestamp,
		&node.InactiveTimestamp,
		&node.IsActive,
		&node.IsDeleted,
	); err != nil {
		return nil, err
	}
	return &node, nil
}
