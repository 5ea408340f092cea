package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

const memberColumns = `id, team_id, card_id, user_id, role, status, joined_at, created_at, created_by, updated_at, updated_by`

// SaveMember inserts or updates a membership. A second active row for the
// same team and user violates team_members_active_team_user_uidx.
func (r *Repository) SaveMember(ctx context.Context, member *domain.TeamMember) error {
	audit := member.Audit
	audit.Stamp(r.actor, r.stamp())

	if member.ID == "" {
		id := uuid.NewString()
		const query = `INSERT INTO team_members (` + memberColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		if _, err := r.db(ctx).Exec(ctx, query, id, member.TeamID, nilIfEmpty(member.CardID), member.UserID,
			member.Role, string(member.Status), timePtrToNil(member.JoinedAt),
			audit.CreatedAt, audit.CreatedBy, audit.UpdatedAt, audit.UpdatedBy); err != nil {
			return fmt.Errorf("insert member: %w", mapErr(err))
		}
		member.ID = id
		member.Audit = audit
		return nil
	}

	const query = `UPDATE team_members SET team_id = $2, card_id = $3, role = $4, status = $5, joined_at = $6,
			updated_at = $7, updated_by = $8
		WHERE id = $1 RETURNING created_at, created_by`
	if err := r.db(ctx).QueryRow(ctx, query, member.ID, member.TeamID, nilIfEmpty(member.CardID), member.Role,
		string(member.Status), timePtrToNil(member.JoinedAt), audit.UpdatedAt, audit.UpdatedBy).
		Scan(&audit.CreatedAt, &audit.CreatedBy); err != nil {
		return fmt.Errorf("update member %s: %w", member.ID, mapErr(err))
	}
	member.Audit = audit
	return nil
}

// FindMemberByID returns a membership by identifier.
func (r *Repository) FindMemberByID(ctx context.Context, id string) (*domain.TeamMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM team_members WHERE id = $1`
	member, err := scanMember(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return member, nil
}

// DeleteMember removes one membership.
func (r *Repository) DeleteMember(ctx context.Context, id string) error {
	return r.deleteOne(ctx, `DELETE FROM team_members WHERE id = $1`, id)
}

// DeleteMembersByCard removes every membership created through the card.
func (r *Repository) DeleteMembersByCard(ctx context.Context, cardID string) error {
	return r.deleteMany(ctx, `DELETE FROM team_members WHERE card_id = $1`, cardID)
}

// DeleteMembersByTeam removes every membership of the team.
func (r *Repository) DeleteMembersByTeam(ctx context.Context, teamID string) error {
	return r.deleteMany(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID)
}

// FindMemberByCardAndUser returns the newest membership for the pair.
func (r *Repository) FindMemberByCardAndUser(ctx context.Context, cardID, userID string) (*domain.TeamMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM team_members
		WHERE card_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC LIMIT 1`
	member, err := scanMember(r.db(ctx).QueryRow(ctx, query, cardID, userID))
	if err != nil {
		return nil, mapErr(err)
	}
	return member, nil
}

// FindMemberByTeamAndUser returns the newest membership for the pair.
func (r *Repository) FindMemberByTeamAndUser(ctx context.Context, teamID, userID string) (*domain.TeamMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM team_members
		WHERE team_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC LIMIT 1`
	member, err := scanMember(r.db(ctx).QueryRow(ctx, query, teamID, userID))
	if err != nil {
		return nil, mapErr(err)
	}
	return member, nil
}

// ListMembersByCard pages memberships created through the card.
func (r *Repository) ListMembersByCard(ctx context.Context, cardID string, page repository.PageRequest) (repository.Page[domain.TeamMember], error) {
	return r.pageMembers(ctx, "card_id", cardID, page)
}

// ListMembersByTeam pages memberships of the team.
func (r *Repository) ListMembersByTeam(ctx context.Context, teamID string, page repository.PageRequest) (repository.Page[domain.TeamMember], error) {
	return r.pageMembers(ctx, "team_id", teamID, page)
}

// pageMembers filters on column, which is always a package constant.
func (r *Repository) pageMembers(ctx context.Context, column, value string, page repository.PageRequest) (repository.Page[domain.TeamMember], error) {
	total, err := r.count(ctx, `SELECT COUNT(1) FROM team_members WHERE `+column+` = $1`, value)
	if err != nil {
		return repository.Page[domain.TeamMember]{}, err
	}
	query := `SELECT ` + memberColumns + ` FROM team_members WHERE ` + column + ` = $1
		ORDER BY created_at, id LIMIT $2 OFFSET $3`
	rows, err := r.db(ctx).Query(ctx, query, value, page.Size, page.Offset())
	if err != nil {
		return repository.Page[domain.TeamMember]{}, mapErr(err)
	}
	defer rows.Close()

	members := make([]domain.TeamMember, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return repository.Page[domain.TeamMember]{}, err
		}
		members = append(members, *member)
	}
	if err := rows.Err(); err != nil {
		return repository.Page[domain.TeamMember]{}, err
	}
	return repository.NewPage(members, page, total), nil
}

func scanMember(row pgx.Row) (*domain.TeamMember, error) {
	var (
		id, teamID, userID, role, status string
		cardID                           *string
		joinedAt                         *time.Time
		audit                            domain.Audit
	)
	if err := row.Scan(&id, &teamID, &cardID, &userID, &role, &status, &joinedAt,
		&audit.CreatedAt, &audit.CreatedBy, &audit.UpdatedAt, &audit.UpdatedBy); err != nil {
		return nil, err
	}
	var card string
	if cardID != nil {
		card = *cardID
	}
	if joinedAt != nil {
		utc := joinedAt.UTC()
		joinedAt = &utc
	}
	return domain.RehydrateTeamMember(id, teamID, card, userID, role, domain.MemberStatus(status), joinedAt, audit), nil
}
