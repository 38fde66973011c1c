package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
)

// ErrVersionConflict indicates an optimistic concurrency check failed; the
// caller should reload the aggregate and retry.
var ErrVersionConflict = errors.New("stale aggregate version")

// TeamFilter narrows team listings.
type TeamFilter struct {
	Type     *domain.TeamType
	IsActive *bool
	Limit    int
	Offset   int
}

// TeamRepository manages persistence for the team identity side of the ledger.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	SoftDelete(ctx context.Context, id string, version int64) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context, filter TeamFilter) ([]domain.Team, error)
	CodeOrNameTaken(ctx context.Context, code, name, excludeID string) (bool, bool, error)
	Count(ctx context.Context) (int64, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

const teamColumns = `id, key, name, code, type, is_active, activated_at, deactivated_at, is_deleted, version, created_at, updated_at`

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (key, name, code, type, is_active, activated_at, deactivated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		team.Key,
		team.Name,
		team.Code,
		team.Type,
		team.IsActive,
		team.ActivatedAt,
		team.DeactivatedAt,
	).Scan(&team.ID, &team.Version, &team.CreatedAt, &team.UpdatedAt)
}

// Update persists identity fields and bumps the aggregate version. A stale
// version surfaces as ErrVersionConflict.
func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	const query = `
        UPDATE teams
        SET key=$1, name=$2, code=$3, type=$4, is_active=$5, activated_at=$6, deactivated_at=$7,
            version=version+1, updated_at=NOW()
        WHERE id=$8 AND version=$9 AND is_deleted=FALSE
        RETURNING version, updated_at`
	err := r.pool.QueryRow(ctx, query,
		team.Key,
		team.Name,
		team.Code,
		team.Type,
		team.IsActive,
		team.ActivatedAt,
		team.DeactivatedAt,
		team.ID,
		team.Version,
	).Scan(&team.Version, &team.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.classifyMiss(ctx, team.ID)
	}
	return err
}

func (r *teamRepository) SoftDelete(ctx context.Context, id string, version int64) error {
	const query = `
        UPDATE teams
        SET is_deleted=TRUE, is_active=FALSE, version=version+1, updated_at=NOW()
        WHERE id=$1 AND version=$2 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id, version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id=$1 AND is_deleted=FALSE`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTeam(row)
}

func (r *teamRepository) List(ctx context.Context, filter TeamFilter) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE is_deleted=FALSE`
	args := make([]any, 0, 4)
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += ` AND type=$` + itoa(len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += ` AND is_active=$` + itoa(len(args))
	}
	query += ` ORDER BY code ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0, 16)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *team)
	}
	return teams, rows.Err()
}

// CodeOrNameTaken checks uniqueness among non-deleted teams, optionally
// excluding the team being edited.
func (r *teamRepository) CodeOrNameTaken(ctx context.Context, code, name, excludeID string) (bool, bool, error) {
	const query = `
        SELECT
            EXISTS (SELECT 1 FROM teams WHERE code=$1 AND is_deleted=FALSE AND id::text<>$3),
            EXISTS (SELECT 1 FROM teams WHERE name=$2 AND is_deleted=FALSE AND id::text<>$3)`
	var codeTaken, nameTaken bool
	err := r.pool.QueryRow(ctx, query, code, name, excludeID).Scan(&codeTaken, &nameTaken)
	return codeTaken, nameTaken, err
}

// Count returns the number of non-deleted teams; the cycle walk uses it as
// its iteration bound.
func (r *teamRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM teams WHERE is_deleted=FALSE`).Scan(&count)
	return count, err
}

func (r *teamRepository) classifyMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE id=$1 AND is_deleted=FALSE)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return pgx.ErrNoRows
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	if err := row.Scan(
		&team.ID,
		&team.Key,
		&team.Name,
		&team.Code,
		&team.Type,
		&team.IsActive,
		&team.ActivatedAt,
		&team.DeactivatedAt,
		&team.IsDeleted,
		&team.Version,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
