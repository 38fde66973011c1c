package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
)

// ErrCycleDetected indicates the mutation would close a loop in the
// open-membership chain. Raised by the in-transaction re-check, which sees
// rows the service's advisory walk may have missed.
var ErrCycleDetected = errors.New("membership chain is cyclic")

// MembershipRepository manages the membership ledger rows. Every mutation
// bumps the child team's version inside the same transaction, so two
// concurrent edits of one team's memberships serialize: the loser sees
// ErrVersionConflict. Mutations that touch the open chain additionally run
// at serializable isolation and re-walk the chain before commit, so
// concurrent edits of different teams cannot jointly commit a cycle.
type MembershipRepository interface {
	ListByTeam(ctx context.Context, sourceID string) ([]domain.TeamMembership, error)
	GetByID(ctx context.Context, id string) (*domain.TeamMembership, error)
	GetOpenByTeam(ctx context.Context, sourceID string) (*domain.TeamMembership, error)
	Insert(ctx context.Context, m *domain.TeamMembership, teamVersion int64) error
	Update(ctx context.Context, m *domain.TeamMembership, teamVersion int64) error
	SoftDelete(ctx context.Context, m *domain.TeamMembership, teamVersion int64) error
}

type membershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository constructs repository.
func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{pool: pool}
}

const membershipColumns = `id, source_id, target_id, start_date, end_date, is_deleted, created_at, updated_at`

// openChainCycleSQL walks the open-membership chain upward from the given
// team inside the mutating transaction. Depth is bounded by the team count
// so a pre-existing loop elsewhere in the ledger cannot hang the walk.
const openChainCycleSQL = `
        WITH RECURSIVE chain AS (
            SELECT m.target_id, 1 AS depth
            FROM team_memberships m
            WHERE m.source_id = $1 AND m.end_date IS NULL AND m.is_deleted = FALSE
            UNION ALL
            SELECT m.target_id, c.depth + 1
            FROM team_memberships m
            JOIN chain c ON m.source_id = c.target_id
            WHERE m.end_date IS NULL AND m.is_deleted = FALSE
              AND c.depth < (SELECT COUNT(*) FROM teams)
        )
        SELECT EXISTS (SELECT 1 FROM chain WHERE target_id = $1)`

// ListByTeam returns the team's non-deleted ledger rows ordered by start date.
func (r *membershipRepository) ListByTeam(ctx context.Context, sourceID string) ([]domain.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + `
        FROM team_memberships
        WHERE source_id=$1 AND is_deleted=FALSE
        ORDER BY start_date ASC`
	rows, err := r.pool.Query(ctx, query, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := make([]domain.TeamMembership, 0, 4)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, *m)
	}
	return memberships, rows.Err()
}

func (r *membershipRepository) GetByID(ctx context.Context, id string) (*domain.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_memberships WHERE id=$1 AND is_deleted=FALSE`
	return scanMembership(r.pool.QueryRow(ctx, query, id))
}

// GetOpenByTeam returns the team's current parent link, or nil when the team
// is a root.
func (r *membershipRepository) GetOpenByTeam(ctx context.Context, sourceID string) (*domain.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + `
        FROM team_memberships
        WHERE source_id=$1 AND end_date IS NULL AND is_deleted=FALSE`
	m, err := scanMembership(r.pool.QueryRow(ctx, query, sourceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *membershipRepository) Insert(ctx context.Context, m *domain.TeamMembership, teamVersion int64) error {
	return r.inTeamTx(ctx, m.SourceID, teamVersion, m.DateRange.IsOpen(), func(tx pgx.Tx) error {
		const query = `
            INSERT INTO team_memberships (id, source_id, target_id, start_date, end_date)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING created_at, updated_at`
		return tx.QueryRow(ctx, query,
			m.ID,
			m.SourceID,
			m.TargetID,
			m.DateRange.Start,
			m.DateRange.End,
		).Scan(&m.CreatedAt, &m.UpdatedAt)
	})
}

func (r *membershipRepository) Update(ctx context.Context, m *domain.TeamMembership, teamVersion int64) error {
	return r.inTeamTx(ctx, m.SourceID, teamVersion, m.DateRange.IsOpen(), func(tx pgx.Tx) error {
		const query = `
            UPDATE team_memberships
            SET start_date=$1, end_date=$2, updated_at=NOW()
            WHERE id=$3 AND is_deleted=FALSE
            RETURNING updated_at`
		err := tx.QueryRow(ctx, query, m.DateRange.Start, m.DateRange.End, m.ID).Scan(&m.UpdatedAt)
		return err
	})
}

func (r *membershipRepository) SoftDelete(ctx context.Context, m *domain.TeamMembership, teamVersion int64) error {
	return r.inTeamTx(ctx, m.SourceID, teamVersion, false, func(tx pgx.Tx) error {
		const query = `
            UPDATE team_memberships
            SET is_deleted=TRUE, updated_at=NOW()
            WHERE id=$1 AND is_deleted=FALSE
            RETURNING updated_at`
		return tx.QueryRow(ctx, query, m.ID).Scan(&m.UpdatedAt)
	})
}

// inTeamTx runs fn after bumping the owning team's version with an optimistic
// check, all in one transaction. With guardChain set the transaction runs at
// serializable isolation and re-walks the open chain before commit; a
// serialization abort surfaces as ErrVersionConflict so the caller retries.
func (r *membershipRepository) inTeamTx(ctx context.Context, teamID string, version int64, guardChain bool, fn func(pgx.Tx) error) error {
	opts := pgx.TxOptions{}
	if guardChain {
		opts.IsoLevel = pgx.Serializable
	}
	err := r.runTeamTx(ctx, opts, teamID, version, guardChain, fn)
	if isSerializationFailure(err) {
		return ErrVersionConflict
	}
	return err
}

func (r *membershipRepository) runTeamTx(ctx context.Context, opts pgx.TxOptions, teamID string, version int64, guardChain bool, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE teams SET version=version+1, updated_at=NOW()
        WHERE id=$1 AND version=$2 AND is_deleted=FALSE`, teamID, version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM teams WHERE id=$1 AND is_deleted=FALSE)`, teamID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrVersionConflict
		}
		return pgx.ErrNoRows
	}

	if err := fn(tx); err != nil {
		return err
	}

	if guardChain {
		var cyclic bool
		if err := tx.QueryRow(ctx, openChainCycleSQL, teamID).Scan(&cyclic); err != nil {
			return err
		}
		if cyclic {
			return ErrCycleDetected
		}
	}
	return tx.Commit(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func scanMembership(row pgx.Row) (*domain.TeamMembership, error) {
	var m domain.TeamMembership
	if err := row.Scan(
		&m.ID,
		&m.SourceID,
		&m.TargetID,
		&m.DateRange.Start,
		&m.DateRange.End,
		&m.IsDeleted,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
