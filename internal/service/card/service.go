package card

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/identity"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

// CreateInput encapsulates card creation attributes.
type CreateInput struct {
	Title       string
	Description string
	PosterURL   string
	TeamID      string
	OwnerID     string
}

// UpdateInput carries the mutable card attributes. The owner never changes.
type UpdateInput struct {
	Title       string
	Description string
	PosterURL   string
	TeamID      string
}

// Service orchestrates card management.
type Service struct {
	cards   repository.CardRepository
	teams   repository.TeamRepository
	members repository.MemberRepository
	tx      repository.Transactor
	users   identity.Resolver
	logger  *slog.Logger
}

// New returns a card service.
func New(store repository.Store, users identity.Resolver, logger *slog.Logger) Service {
	return Service{
		cards:   store,
		teams:   store,
		members: store,
		tx:      store,
		users:   users,
		logger:  logger,
	}
}

var (
	errMissingCardID  = fmt.Errorf("%w: card id is required", domain.ErrInvalidArgument)
	errMissingTeamID  = fmt.Errorf("%w: team id is required", domain.ErrInvalidArgument)
	errMissingOwnerID = fmt.Errorf("%w: owner id is required", domain.ErrInvalidArgument)
)

// Create validates the card, resolves the owner, then checks the team and
// saves. Nothing is written when any step fails.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Card, error) {
	card, err := domain.NewCard(input.Title, input.Description, input.PosterURL, input.TeamID, input.OwnerID)
	if err != nil {
		return nil, err
	}
	if _, err := identity.RequireUser(ctx, s.users, card.OwnerID); err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireTeam(ctx, card.TeamID); err != nil {
			return err
		}
		return notFoundAs(s.cards.SaveCard(ctx, card), "Team", "id", card.TeamID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("card created", "card_id", card.ID, "team_id", card.TeamID, "owner_id", card.OwnerID)
	return card, nil
}

// Get fetches a card by id.
func (s Service) Get(ctx context.Context, cardID string) (*domain.Card, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, errMissingCardID
	}
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, notFoundAs(err, "Card", "id", cardID)
	}
	return card, nil
}

// ListByOwner returns every card owned by the user, oldest first.
func (s Service) ListByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errMissingOwnerID
	}
	return s.cards.FindCardsByOwner(ctx, ownerID)
}

// ListByTeam pages the cards of an existing team.
func (s Service) ListByTeam(ctx context.Context, teamID string, page repository.PageRequest) (repository.Page[domain.Card], error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return repository.Page[domain.Card]{}, errMissingTeamID
	}
	req, err := repository.NewPageRequest(page.Number, page.Size)
	if err != nil {
		return repository.Page[domain.Card]{}, err
	}
	if err := s.requireTeam(ctx, teamID); err != nil {
		return repository.Page[domain.Card]{}, err
	}
	return s.cards.FindCards(ctx, []repository.CardPredicate{repository.TeamIs(teamID)}, req)
}

// List pages cards matching the filter. Empty filter fields match everything.
func (s Service) List(ctx context.Context, filter repository.CardFilter, page repository.PageRequest) (repository.Page[domain.Card], error) {
	req, err := repository.NewPageRequest(page.Number, page.Size)
	if err != nil {
		return repository.Page[domain.Card]{}, err
	}
	return s.cards.FindCards(ctx, filter.Predicates(), req)
}

// Update replaces the card's mutable fields. The target team must exist.
func (s Service) Update(ctx context.Context, cardID string, input UpdateInput) (*domain.Card, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, errMissingCardID
	}
	var card *domain.Card
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		card, err = s.cards.FindCardByID(ctx, cardID)
		if err != nil {
			return notFoundAs(err, "Card", "id", cardID)
		}
		teamID := strings.TrimSpace(input.TeamID)
		if teamID == "" {
			return errMissingTeamID
		}
		if err := s.requireTeam(ctx, teamID); err != nil {
			return err
		}
		if err := card.Update(input.Title, input.Description, input.PosterURL, teamID); err != nil {
			return err
		}
		return notFoundAs(s.cards.SaveCard(ctx, card), "Card", "id", cardID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("card updated", "card_id", card.ID, "team_id", card.TeamID)
	return card, nil
}

// Delete removes the card and every membership created through it.
func (s Service) Delete(ctx context.Context, cardID string) error {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return errMissingCardID
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.cards.CardExists(ctx, cardID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("Card", "id", cardID)
		}
		if err := s.members.DeleteMembersByCard(ctx, cardID); err != nil {
			return err
		}
		return notFoundAs(s.cards.DeleteCard(ctx, cardID), "Card", "id", cardID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("card deleted", "card_id", cardID)
	return nil
}

func (s Service) requireTeam(ctx context.Context, teamID string) error {
	ok, err := s.teams.TeamExists(ctx, teamID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("Team", "id", teamID)
	}
	return nil
}

// notFoundAs turns a repository miss into a typed domain error.
func notFoundAs(err error, kind, key, value string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(kind, key, value)
	}
	return err
}
