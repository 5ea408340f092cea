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

const cardColumns = `id, title, description, poster_url, team_id, owner_id, created_at, created_by, updated_at, updated_by`

// SaveCard inserts or updates a card. A missing team surfaces as ErrNotFound
// through the foreign key.
func (r *Repository) SaveCard(ctx context.Context, card *domain.Card) error {
	audit := card.Audit
	audit.Stamp(r.actor, r.stamp())

	if card.ID == "" {
		id := uuid.NewString()
		const query = `INSERT INTO cards (` + cardColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		if _, err := r.db(ctx).Exec(ctx, query, id, card.Title, nilIfEmpty(card.Description), nilIfEmpty(card.PosterURL),
			card.TeamID, card.OwnerID, audit.CreatedAt, audit.CreatedBy, audit.UpdatedAt, audit.UpdatedBy); err != nil {
			return fmt.Errorf("insert card: %w", mapErr(err))
		}
		card.ID = id
		card.Audit = audit
		return nil
	}

	const query = `UPDATE cards SET title = $2, description = $3, poster_url = $4, team_id = $5,
			updated_at = $6, updated_by = $7
		WHERE id = $1 RETURNING created_at, created_by`
	if err := r.db(ctx).QueryRow(ctx, query, card.ID, card.Title, nilIfEmpty(card.Description), nilIfEmpty(card.PosterURL),
		card.TeamID, audit.UpdatedAt, audit.UpdatedBy).Scan(&audit.CreatedAt, &audit.CreatedBy); err != nil {
		return fmt.Errorf("update card %s: %w", card.ID, mapErr(err))
	}
	card.Audit = audit
	return nil
}

// FindCardByID returns a card by identifier.
func (r *Repository) FindCardByID(ctx context.Context, id string) (*domain.Card, error) {
	const query = `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	card, err := scanCard(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return card, nil
}

// CardExists reports whether the card is stored.
func (r *Repository) CardExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, id)
}

// DeleteCard removes the card row.
func (r *Repository) DeleteCard(ctx context.Context, id string) error {
	return r.deleteOne(ctx, `DELETE FROM cards WHERE id = $1`, id)
}

// DeleteCardsByTeam removes every card of the team.
func (r *Repository) DeleteCardsByTeam(ctx context.Context, teamID string) error {
	return r.deleteMany(ctx, `DELETE FROM cards WHERE team_id = $1`, teamID)
}

// FindCardsByOwner lists the owner's cards in creation order.
func (r *Repository) FindCardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	const query = `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 ORDER BY created_at, id`
	return r.queryCards(ctx, query, ownerID)
}

// FindCards pages cards matching every predicate.
func (r *Repository) FindCards(ctx context.Context, preds []repository.CardPredicate, page repository.PageRequest) (repository.Page[domain.Card], error) {
	where, args, err := renderCardPredicates(preds)
	if err != nil {
		return repository.Page[domain.Card]{}, err
	}
	total, err := r.count(ctx, `SELECT COUNT(1) FROM cards WHERE `+where, args...)
	if err != nil {
		return repository.Page[domain.Card]{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		cardColumns, where, len(args)+1, len(args)+2)
	cards, err := r.queryCards(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return repository.Page[domain.Card]{}, err
	}
	return repository.NewPage(cards, page, total), nil
}

func (r *Repository) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	cards := make([]domain.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var (
		id, title, teamID, ownerID string
		description, posterURL     sql.NullString
		audit                      domain.Audit
	)
	if err := row.Scan(&id, &title, &description, &posterURL, &teamID, &ownerID,
		&audit.CreatedAt, &audit.CreatedBy, &audit.UpdatedAt, &audit.UpdatedBy); err != nil {
		return nil, err
	}
	return domain.RehydrateCard(id, title, description.String, posterURL.String, teamID, ownerID, audit), nil
}
