package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/events"
	"github.com/Nikita-Hritsay/TeamUp/internal/identity"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

// Service handles team and membership workflows.
type Service struct {
	teams   repository.TeamRepository
	cards   repository.CardRepository
	members repository.MemberRepository
	tx      repository.Transactor
	users   identity.Resolver
	events  events.Publisher
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a Service. A nil publisher discards events.
func New(store repository.Store, users identity.Resolver, publisher events.Publisher, logger *slog.Logger) Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return Service{
		teams:   store,
		cards:   store,
		members: store,
		tx:      store,
		users:   users,
		events:  publisher,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var (
	errMissingTeamID = fmt.Errorf("%w: team id is required", domain.ErrInvalidArgument)
	errMissingCardID = fmt.Errorf("%w: card id is required", domain.ErrInvalidArgument)
	errMissingUserID = fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	errActiveMember  = fmt.Errorf("%w: user already has a pending or joined membership in this team", domain.ErrConflict)
)

// CreateTeam registers a team.
func (s Service) CreateTeam(ctx context.Context, name, description string) (*domain.Team, error) {
	team, err := domain.NewTeam(name, description)
	if err != nil {
		return nil, err
	}
	if err := s.teams.SaveTeam(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Info("team created", "team_id", team.ID)
	return team, nil
}

// UpdateTeam replaces the team's name and description.
func (s Service) UpdateTeam(ctx context.Context, teamID, name, description string) (*domain.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, errMissingTeamID
	}
	var team *domain.Team
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		team, err = s.teams.FindTeamByID(ctx, teamID)
		if err != nil {
			return notFoundAs(err, "Team", "id", teamID)
		}
		if err := team.Update(name, description); err != nil {
			return err
		}
		return notFoundAs(s.teams.SaveTeam(ctx, team), "Team", "id", teamID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team updated", "team_id", team.ID)
	return team, nil
}

// DeleteTeam removes the team with its cards and memberships in one transaction.
func (s Service) DeleteTeam(ctx context.Context, teamID string) error {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return errMissingTeamID
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireTeam(ctx, teamID); err != nil {
			return err
		}
		if err := s.members.DeleteMembersByTeam(ctx, teamID); err != nil {
			return err
		}
		if err := s.cards.DeleteCardsByTeam(ctx, teamID); err != nil {
			return err
		}
		return notFoundAs(s.teams.DeleteTeam(ctx, teamID), "Team", "id", teamID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("team deleted", "team_id", teamID)
	s.publish(events.Event{Type: events.TeamDeleted, TeamID: teamID})
	return nil
}

// FetchTeam returns a team by id.
func (s Service) FetchTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, errMissingTeamID
	}
	team, err := s.teams.FindTeamByID(ctx, teamID)
	if err != nil {
		return nil, notFoundAs(err, "Team", "id", teamID)
	}
	return team, nil
}

// ListTeams pages all teams, or with userID set, the teams in which the user
// has a membership row of any status.
func (s Service) ListTeams(ctx context.Context, page repository.PageRequest, userID string) (repository.Page[domain.Team], error) {
	req, err := repository.NewPageRequest(page.Number, page.Size)
	if err != nil {
		return repository.Page[domain.Team]{}, err
	}
	if userID = strings.TrimSpace(userID); userID != "" {
		return s.teams.ListTeamsByMember(ctx, userID, req)
	}
	return s.teams.ListTeams(ctx, req)
}

// JoinTeam files a PENDING request for userID to join teamID.
func (s Service) JoinTeam(ctx context.Context, teamID, userID, role string) (*domain.TeamMember, error) {
	member, err := domain.NewTeamMember(teamID, "", userID, role)
	if err != nil {
		return nil, err
	}
	if _, err := identity.RequireUser(ctx, s.users, member.UserID); err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireTeam(ctx, member.TeamID); err != nil {
			return err
		}
		existing, err := s.members.FindMemberByTeamAndUser(ctx, member.TeamID, member.UserID)
		if err := activeConflict(existing, err); err != nil {
			return err
		}
		return s.saveNew(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("join requested", "team_id", member.TeamID, "user_id", member.UserID, "member_id", member.ID)
	s.publish(memberEvent(events.MemberJoinRequested, member))
	return member, nil
}

// InviteToTeam invites userID to the team owning cardID. teamID must match
// the card's team.
func (s Service) InviteToTeam(ctx context.Context, cardID, teamID, userID, role string) (*domain.TeamMember, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, errMissingCardID
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, errMissingTeamID
	}
	card, err := s.findCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.TeamID != teamID {
		return nil, fmt.Errorf("%w: team %s does not own card %s", domain.ErrInvalidArgument, teamID, cardID)
	}
	member, err := domain.NewTeamMember(card.TeamID, card.ID, userID, role)
	if err != nil {
		return nil, err
	}
	if _, err := identity.RequireUser(ctx, s.users, member.UserID); err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// the card may have moved or vanished while the identity call ran
		current, err := s.findCard(ctx, cardID)
		if err != nil {
			return err
		}
		if current.TeamID != card.TeamID {
			return fmt.Errorf("%w: card %s moved to another team", domain.ErrConflict, cardID)
		}
		existing, err := s.members.FindMemberByCardAndUser(ctx, cardID, member.UserID)
		if err := activeConflict(existing, err); err != nil {
			return err
		}
		return s.saveNew(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("member invited", "team_id", member.TeamID, "card_id", cardID, "user_id", member.UserID, "member_id", member.ID)
	s.publish(memberEvent(events.MemberInvited, member))
	return member, nil
}

// UpdateMemberStatus accepts or rejects the user's membership on cardID.
func (s Service) UpdateMemberStatus(ctx context.Context, cardID, userID, status string) (*domain.TeamMember, error) {
	cardID, userID = strings.TrimSpace(cardID), strings.TrimSpace(userID)
	if cardID == "" {
		return nil, errMissingCardID
	}
	if userID == "" {
		return nil, errMissingUserID
	}
	var member *domain.TeamMember
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		card, err := s.findCard(ctx, cardID)
		if err != nil {
			return err
		}
		member, err = s.members.FindMemberByCardAndUser(ctx, cardID, userID)
		if err != nil {
			return notFoundAs(err, "TeamMember", "cardId and userId", cardID+" and "+userID)
		}
		member.RestampTeam(card.TeamID)
		target, err := domain.ParseMemberStatus(status)
		if err != nil {
			return err
		}
		if err := member.Transition(target, s.now()); err != nil {
			return err
		}
		return duplicateAsConflict(s.members.SaveMember(ctx, member))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("member status updated", "card_id", cardID, "user_id", userID, "status", member.Status)
	s.publish(memberEvent(events.MemberStatusChanged, member))
	return member, nil
}

// RemoveMember deletes the user's newest membership on cardID.
func (s Service) RemoveMember(ctx context.Context, cardID, userID string) error {
	cardID, userID = strings.TrimSpace(cardID), strings.TrimSpace(userID)
	if cardID == "" {
		return errMissingCardID
	}
	if userID == "" {
		return errMissingUserID
	}
	var removed *domain.TeamMember
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.findCard(ctx, cardID); err != nil {
			return err
		}
		member, err := s.members.FindMemberByCardAndUser(ctx, cardID, userID)
		if err != nil {
			return notFoundAs(err, "TeamMember", "cardId and userId", cardID+" and "+userID)
		}
		removed = member
		return notFoundAs(s.members.DeleteMember(ctx, member.ID), "TeamMember", "id", member.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("member removed", "card_id", cardID, "user_id", userID, "member_id", removed.ID)
	s.publish(memberEvent(events.MemberRemoved, removed))
	return nil
}

// MembersByCard pages the memberships created through cardID.
func (s Service) MembersByCard(ctx context.Context, cardID string, page repository.PageRequest) (repository.Page[domain.TeamMember], error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return repository.Page[domain.TeamMember]{}, errMissingCardID
	}
	req, err := repository.NewPageRequest(page.Number, page.Size)
	if err != nil {
		return repository.Page[domain.TeamMember]{}, err
	}
	ok, err := s.cards.CardExists(ctx, cardID)
	if err != nil {
		return repository.Page[domain.TeamMember]{}, err
	}
	if !ok {
		return repository.Page[domain.TeamMember]{}, domain.NotFound("Card", "id", cardID)
	}
	return s.members.ListMembersByCard(ctx, cardID, req)
}

// MembersByTeam pages the memberships of teamID.
func (s Service) MembersByTeam(ctx context.Context, teamID string, page repository.PageRequest) (repository.Page[domain.TeamMember], error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return repository.Page[domain.TeamMember]{}, errMissingTeamID
	}
	req, err := repository.NewPageRequest(page.Number, page.Size)
	if err != nil {
		return repository.Page[domain.TeamMember]{}, err
	}
	if err := s.requireTeam(ctx, teamID); err != nil {
		return repository.Page[domain.TeamMember]{}, err
	}
	return s.members.ListMembersByTeam(ctx, teamID, req)
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

func (s Service) findCard(ctx context.Context, cardID string) (*domain.Card, error) {
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, notFoundAs(err, "Card", "id", cardID)
	}
	return card, nil
}

func (s Service) saveNew(ctx context.Context, member *domain.TeamMember) error {
	err := s.members.SaveMember(ctx, member)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound("Team", "id", member.TeamID)
	}
	return duplicateAsConflict(err)
}

func (s Service) publish(e events.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	if err := s.events.Publish(e); err != nil {
		s.logger.Warn("membership event dropped", "type", e.Type, "team_id", e.TeamID, "error", err)
	}
}

func memberEvent(t events.Type, m *domain.TeamMember) events.Event {
	return events.Event{
		Type:     t,
		TeamID:   m.TeamID,
		CardID:   m.CardID,
		UserID:   m.UserID,
		MemberID: m.ID,
		Status:   string(m.Status),
	}
}

// activeConflict interprets a pair lookup: an active row is a conflict, a
// miss or a terminal row is not.
func activeConflict(existing *domain.TeamMember, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Status.Active() {
		return errActiveMember
	}
	return nil
}

func duplicateAsConflict(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %v", errActiveMember, err)
	}
	return err
}

func notFoundAs(err error, kind, key, value string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(kind, key, value)
	}
	return err
}
