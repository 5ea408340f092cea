package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

const teamColumns = `id, name, description, created_at, created_by, updated_at, updated_by`

// SaveTeam inserts a team without id or updates an existing one.
func (r *Repository) SaveTeam(ctx context.Context, team *domain.Team) error {
	audit := team.Audit
	audit.Stamp(r.actor, r.stamp())

	if team.ID == "" {
		id := uuid.NewString()
		const query = `INSERT INTO teams (` + teamColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := r.db(ctx).Exec(ctx, query, id, team.Name, nilIfEmpty(team.Description),
			audit.CreatedAt, audit.CreatedBy, audit.UpdatedAt, audit.UpdatedBy); err != nil {
			return mapErr(err)
		}
		team.ID = id
		team.Audit = audit
		return nil
	}

	const query = `UPDATE teams SET name = $2, description = $3, updated_at = $4, updated_by = $5
		WHERE id = $1 RETURNING created_at, created_by`
	if err := r.db(ctx).QueryRow(ctx, query, team.ID, team.Name, nilIfEmpty(team.Description),
		audit.UpdatedAt, audit.UpdatedBy).Scan(&audit.CreatedAt, &audit.CreatedBy); err != nil {
		return fmt.Errorf("update team %s: %w", team.ID, mapErr(err))
	}
	team.Audit = audit
	return nil
}

// FindTeamByID returns a team by identifier.
func (r *Repository) FindTeamByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	team, err := scanTeam(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return team, nil
}

// TeamExists reports whether the team is stored.
func (r *Repository) TeamExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, id)
}

// DeleteTeam removes the team row.
func (r *Repository) DeleteTeam(ctx context.Context, id string) error {
	return r.deleteOne(ctx, `DELETE FROM teams WHERE id = $1`, id)
}

// ListTeams pages all teams.
func (r *Repository) ListTeams(ctx context.Context, page repository.PageRequest) (repository.Page[domain.Team], error) {
	total, err := r.count(ctx, `SELECT COUNT(1) FROM teams`)
	if err != nil {
		return repository.Page[domain.Team]{}, err
	}
	const query = `SELECT ` + teamColumns + ` FROM teams
		ORDER BY created_at, id LIMIT $1 OFFSET $2`
	teams, err := r.queryTeams(ctx, query, page.Size, page.Offset())
	if err != nil {
		return repository.Page[domain.Team]{}, err
	}
	return repository.NewPage(teams, page, total), nil
}

// ListTeamsByMember pages teams having any member row for userID.
func (r *Repository) ListTeamsByMember(ctx context.Context, userID string, page repository.PageRequest) (repository.Page[domain.Team], error) {
	const where = ` WHERE EXISTS (SELECT 1 FROM team_members tm WHERE tm.team_id = t.id AND tm.user_id = $1)`
	total, err := r.count(ctx, `SELECT COUNT(1) FROM teams t`+where, userID)
	if err != nil {
		return repository.Page[domain.Team]{}, err
	}
	const query = `SELECT t.id, t.name, t.description, t.created_at, t.created_by, t.updated_at, t.updated_by
		FROM teams t` + where + `
		ORDER BY t.created_at, t.id LIMIT $2 OFFSET $3`
	teams, err := r.queryTeams(ctx, query, userID, page.Size, page.Offset())
	if err != nil {
		return repository.Page[domain.Team]{}, err
	}
	return repository.NewPage(teams, page, total), nil
}

func (r *Repository) queryTeams(ctx context.Context, query string, args ...any) ([]domain.Team, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *team)
	}
	return teams, rows.Err()
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var (
		id, name    string
		description sql.NullString
		audit       domain.Audit
	)
	if err := row.Scan(&id, &name, &description, &audit.CreatedAt, &audit.CreatedBy, &audit.UpdatedAt, &audit.UpdatedBy); err != nil {
		return nil, err
	}
	return domain.RehydrateTeam(id, name, description.String, audit), nil
}
