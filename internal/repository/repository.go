package repository

import (
	"context"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
)

// TeamRepository persists teams.
type TeamRepository interface {
	SaveTeam(ctx context.Context, team *domain.Team) error
	FindTeamByID(ctx context.Context, id string) (*domain.Team, error)
	TeamExists(ctx context.Context, id string) (bool, error)
	DeleteTeam(ctx context.Context, id string) error
	ListTeams(ctx context.Context, page PageRequest) (Page[domain.Team], error)
	// ListTeamsByMember returns teams with at least one member row for userID, any status.
	ListTeamsByMember(ctx context.Context, userID string, page PageRequest) (Page[domain.Team], error)
}

// CardRepository persists cards and evaluates card predicates.
type CardRepository interface {
	SaveCard(ctx context.Context, card *domain.Card) error
	FindCardByID(ctx context.Context, id string) (*domain.Card, error)
	CardExists(ctx context.Context, id string) (bool, error)
	DeleteCard(ctx context.Context, id string) error
	DeleteCardsByTeam(ctx context.Context, teamID string) error
	FindCardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error)
	FindCards(ctx context.Context, preds []CardPredicate, page PageRequest) (Page[domain.Card], error)
}

// MemberRepository persists team memberships.
//
// The pair finders return the most recently created row for the pair, so a
// rejected row followed by a fresh invite resolves to the fresh one.
type MemberRepository interface {
	SaveMember(ctx context.Context, member *domain.TeamMember) error
	FindMemberByID(ctx context.Context, id string) (*domain.TeamMember, error)
	DeleteMember(ctx context.Context, id string) error
	DeleteMembersByCard(ctx context.Context, cardID string) error
	DeleteMembersByTeam(ctx context.Context, teamID string) error
	FindMemberByCardAndUser(ctx context.Context, cardID, userID string) (*domain.TeamMember, error)
	FindMemberByTeamAndUser(ctx context.Context, teamID, userID string) (*domain.TeamMember, error)
	ListMembersByCard(ctx context.Context, cardID string, page PageRequest) (Page[domain.TeamMember], error)
	ListMembersByTeam(ctx context.Context, teamID string, page PageRequest) (Page[domain.TeamMember], error)
}

// Transactor runs fn inside one storage transaction. Repositories invoked with
// the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every port; both adapters implement it.
type Store interface {
	TeamRepository
	CardRepository
	MemberRepository
	Transactor
}
