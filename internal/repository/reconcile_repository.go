package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
)

// GraphReconciler converges the graph projection tables onto the ledger.
// Each pass runs its delete, update and insert phases as single set-based
// statements inside one transaction, so a re-run against an unchanged ledger
// is a strict no-op and any failure leaves the previous projection intact.
type GraphReconciler interface {
	ReconcileNodes(ctx context.Context) (domain.ReconcileResult, error)
	ReconcileEdges(ctx context.Context) (domain.ReconcileResult, error)
}

type graphReconciler struct {
	pool *pgxpool.Pool
}

// NewGraphReconciler constructs the reconciler.
func NewGraphReconciler(pool *pgxpool.Pool) GraphReconciler {
	return &graphReconciler{pool: pool}
}

// Node pass. Rows match on the surrogate id; every tracked column difference
// triggers a full tracked-column rewrite. Audit columns are not compared.
const (
	deleteNodesSQL = `
        DELETE FROM team_nodes n
        WHERE NOT EXISTS (
            SELECT 1 FROM teams t
            WHERE t.id = n.id AND t.is_deleted = FALSE
        )`

	updateNodesSQL = `
        UPDATE team_nodes n
        SET key = t.key,
            name = t.name,
            code = t.code,
            type = t.type,
            active_timestamp = t.activated_at,
            inactive_timestamp = t.deactivated_at,
            is_active = t.is_active,
            is_deleted = FALSE
        FROM teams t
        WHERE t.id = n.id
          AND t.is_deleted = FALSE
          AND (n.key IS DISTINCT FROM t.key
            OR n.name IS DISTINCT FROM t.name
            OR n.code IS DISTINCT FROM t.code
            OR n.type IS DISTINCT FROM t.type
            OR n.active_timestamp IS DISTINCT FROM t.activated_at
            OR n.inactive_timestamp IS DISTINCT FROM t.deactivated_at
            OR n.is_active IS DISTINCT FROM t.is_active)`

	insertNodesSQL = `
        INSERT INTO team_nodes (id, key, name, code, type, active_timestamp, inactive_timestamp, is_active, is_deleted)
        SELECT t.id, t.key, t.name, t.code, t.type, t.activated_at, t.deactivated_at, t.is_active, FALSE
        FROM teams t
        WHERE t.is_deleted = FALSE
          AND NOT EXISTS (SELECT 1 FROM team_nodes n WHERE n.id = t.id)`
)

// Edge pass. Rows match on the membership id; endpoints resolve through the
// team's natural key so edges survive node re-projection. The delete phase
// also clears edges whose endpoint node is missing, which makes referential
// anomalies self-healing.
const (
	deleteEdgesSQL = `
        DELETE FROM team_membership_edges e
        WHERE NOT EXISTS (
            SELECT 1
            FROM team_memberships m
            JOIN teams s ON s.id = m.source_id AND s.is_deleted = FALSE
            JOIN teams p ON p.id = m.target_id AND p.is_deleted = FALSE
            WHERE m.id = e.id AND m.is_deleted = FALSE
        )
        OR NOT EXISTS (SELECT 1 FROM team_nodes fn WHERE fn.id = e.from_node_id)
        OR NOT EXISTS (SELECT 1 FROM team_nodes tn WHERE tn.id = e.to_node_id)`

	updateEdgesSQL = `
        UPDATE team_membership_edges e
        SET from_node_id = fn.id,
            to_node_id = tn.id,
            start_date = m.start_date,
            end_date = m.end_date
        FROM team_memberships m
        JOIN teams s ON s.id = m.source_id AND s.is_deleted = FALSE
        JOIN teams p ON p.id = m.target_id AND p.is_deleted = FALSE
        JOIN team_nodes fn ON fn.key = s.key
        JOIN team_nodes tn ON tn.key = p.key
        WHERE m.id = e.id
          AND m.is_deleted = FALSE
          AND (e.from_node_id IS DISTINCT FROM fn.id
            OR e.to_node_id IS DISTINCT FROM tn.id
            OR e.start_date IS DISTINCT FROM m.start_date
            OR e.end_date IS DISTINCT FROM m.end_date)`

	insertEdgesSQL = `
        INSERT INTO team_membership_edges (id, from_node_id, to_node_id, start_date, end_date)
        SELECT m.id, fn.id, tn.id, m.start_date, m.end_date
        FROM team_memberships m
        JOIN teams s ON s.id = m.source_id AND s.is_deleted = FALSE
        JOIN teams p ON p.id = m.target_id AND p.is_deleted = FALSE
        JOIN team_nodes fn ON fn.key = s.key
        JOIN team_nodes tn ON tn.key = p.key
        WHERE m.is_deleted = FALSE
          AND NOT EXISTS (SELECT 1 FROM team_membership_edges e WHERE e.id = m.id)`
)

func (r *graphReconciler) ReconcileNodes(ctx context.Context) (domain.ReconcileResult, error) {
	return r.runPass(ctx, deleteNodesSQL, updateNodesSQL, insertNodesSQL)
}

func (r *graphReconciler) ReconcileEdges(ctx context.Context) (domain.ReconcileResult, error) {
	return r.runPass(ctx, deleteEdgesSQL, updateEdgesSQL, insertEdgesSQL)
}

func (r *graphReconciler) runPass(ctx context.Context, deleteSQL, updateSQL, insertSQL string) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, deleteSQL)
	if err != nil {
		return result, err
	}
	result.Deleted = cmd.RowsAffected()

	cmd, err = tx.Exec(ctx, updateSQL)
	if err != nil {
		return result, err
	}
	result.Updated = cmd.RowsAffected()

	cmd, err = tx.Exec(ctx, insertSQL)
	if err != nil {
		return result, err
	}
	result.Inserted = cmd.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return domain.ReconcileResult{}, err
	}
	return result, nil
}
