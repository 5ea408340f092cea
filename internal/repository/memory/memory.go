// Package memory is an in-process implementation of the repository ports.
// Predicates are evaluated row by row; transactions are serialized and roll
// back by replaying an undo log of the rows they touched.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the audit clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithActor overrides the audit actor.
func WithActor(actor string) Option {
	return func(s *Store) {
		if actor != "" {
			s.actor = actor
		}
	}
}

// Store keeps every aggregate in maps guarded by a single lock.
type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state state
	seq   int64
	actor string
	now   func() time.Time
}

type state struct {
	teams   map[string]domain.Team
	cards   map[string]domain.Card
	members map[string]domain.TeamMember
	order   map[string]int64
}

type txKey struct{}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		state: state{
			teams:   make(map[string]domain.Team),
			cards:   make(map[string]domain.Card),
			members: make(map[string]domain.TeamMember),
			order:   make(map[string]int64),
		},
		actor: "TEAMS_MS",
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// journal collects the undo steps of one transaction. Only rows written
// through the transaction's ctx are journaled, so concurrent writes outside it
// survive a rollback.
type journal struct {
	undo []func()
}

// WithinTx serializes fn against other transactions and undoes its writes on error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// remember journals the current value of rows[id] when ctx carries a
// transaction. Caller holds mu.
func remember[T any](ctx context.Context, rows map[string]T, order map[string]int64, id string) {
	j, ok := ctx.Value(txKey{}).(*journal)
	if !ok {
		return
	}
	prev, had := rows[id]
	seq, hadSeq := order[id]
	j.undo = append(j.undo, func() {
		if had {
			rows[id] = prev
		} else {
			delete(rows, id)
		}
		if hadSeq {
			order[id] = seq
		} else {
			delete(order, id)
		}
	})
}

// put stores row under id; a new row gets an insertion sequence. Caller holds mu.
func put[T any](ctx context.Context, s *Store, rows map[string]T, id string, row T, inserted bool) {
	remember(ctx, rows, s.state.order, id)
	if inserted {
		s.seq++
		s.state.order[id] = s.seq
	}
	rows[id] = row
}

// drop removes rows[id]. Caller holds mu.
func drop[T any](ctx context.Context, s *Store, rows map[string]T, id string) {
	remember(ctx, rows, s.state.order, id)
	delete(rows, id)
	delete(s.state.order, id)
}

// less orders rows by creation time, then insertion sequence.
func (s *Store) less(a, b domain.Audit, idA, idB string) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return s.state.order[idA] < s.state.order[idB]
}

// SaveTeam inserts a team without id or updates an existing one.
func (s *Store) SaveTeam(ctx context.Context, team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := team.ID == ""
	if inserted {
		team.ID = uuid.NewString()
	} else if _, ok := s.state.teams[team.ID]; !ok {
		return fmt.Errorf("update team %s: %w", team.ID, repository.ErrNotFound)
	}
	team.Stamp(s.actor, s.now())
	put(ctx, s, s.state.teams, team.ID, *team, inserted)
	return nil
}

// FindTeamByID returns a copy of the stored team.
func (s *Store) FindTeamByID(ctx context.Context, id string) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.state.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &team, nil
}

// TeamExists reports whether the team is stored.
func (s *Store) TeamExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.teams[id]
	return ok, nil
}

// DeleteTeam removes the team row only.
func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.teams[id]; !ok {
		return repository.ErrNotFound
	}
	drop(ctx, s, s.state.teams, id)
	return nil
}

// ListTeams pages all teams.
func (s *Store) ListTeams(ctx context.Context, page repository.PageRequest) (repository.Page[domain.Team], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Slice(s.sortedTeams(func(domain.Team) bool { return true }), page), nil
}

// ListTeamsByMember pages teams having any member row for userID.
func (s *Store) ListTeamsByMember(ctx context.Context, userID string, page repository.PageRequest) (repository.Page[domain.Team], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teamIDs := make(map[string]struct{})
	for _, m := range s.state.members {
		if m.UserID == userID {
			teamIDs[m.TeamID] = struct{}{}
		}
	}
	teams := s.sortedTeams(func(t domain.Team) bool {
		_, ok := teamIDs[t.ID]
		return ok
	})
	return repository.Slice(teams, page), nil
}

func (s *Store) sortedTeams(keep func(domain.Team) bool) []domain.Team {
	out := make([]domain.Team, 0, len(s.state.teams))
	for _, t := range s.state.teams {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.less(out[i].Audit, out[j].Audit, out[i].ID, out[j].ID)
	})
	return out
}

// SaveCard inserts or updates a card. The referenced team must exist.
func (s *Store) SaveCard(ctx context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.teams[card.TeamID]; !ok {
		return fmt.Errorf("card team %s: %w", card.TeamID, repository.ErrNotFound)
	}
	inserted := card.ID == ""
	if inserted {
		card.ID = uuid.NewString()
	} else if _, ok := s.state.cards[card.ID]; !ok {
		return fmt.Errorf("update card %s: %w", card.ID, repository.ErrNotFound)
	}
	card.Stamp(s.actor, s.now())
	put(ctx, s, s.state.cards, card.ID, *card, inserted)
	return nil
}

// FindCardByID returns a copy of the stored card.
func (s *Store) FindCardByID(ctx context.Context, id string) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.state.cards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &card, nil
}

// CardExists reports whether the card is stored.
func (s *Store) CardExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.cards[id]
	return ok, nil
}

// DeleteCard removes the card row only.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.cards[id]; !ok {
		return repository.ErrNotFound
	}
	drop(ctx, s, s.state.cards, id)
	return nil
}

// DeleteCardsByTeam removes every card of the team.
func (s *Store) DeleteCardsByTeam(ctx context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.state.cards {
		if c.TeamID == teamID {
			drop(ctx, s, s.state.cards, id)
		}
	}
	return nil
}

// FindCardsByOwner lists the owner's cards in creation order.
func (s *Store) FindCardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCards([]repository.CardPredicate{repository.OwnerIs(ownerID)}), nil
}

// FindCards pages cards matching every predicate.
func (s *Store) FindCards(ctx context.Context, preds []repository.CardPredicate, page repository.PageRequest) (repository.Page[domain.Card], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Slice(s.sortedCards(preds), page), nil
}

func (s *Store) sortedCards(preds []repository.CardPredicate) []domain.Card {
	out := make([]domain.Card, 0)
	for _, c := range s.state.cards {
		if repository.MatchAll(c, preds) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.less(out[i].Audit, out[j].Audit, out[i].ID, out[j].ID)
	})
	return out
}

// SaveMember inserts or updates a membership, enforcing one active row per (team, user).
func (s *Store) SaveMember(ctx context.Context, member *domain.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member.ID != "" {
		if _, ok := s.state.members[member.ID]; !ok {
			return fmt.Errorf("update member %s: %w", member.ID, repository.ErrNotFound)
		}
	}
	if member.Status.Active() {
		for id, other := range s.state.members {
			if id == member.ID || !other.Status.Active() {
				continue
			}
			if other.TeamID == member.TeamID && other.UserID == member.UserID {
				return fmt.Errorf("active membership for team %s user %s: %w", member.TeamID, member.UserID, repository.ErrDuplicate)
			}
		}
	}
	inserted := member.ID == ""
	if inserted {
		member.ID = uuid.NewString()
	}
	member.Stamp(s.actor, s.now())
	put(ctx, s, s.state.members, member.ID, *member, inserted)
	return nil
}

// FindMemberByID returns a copy of the stored membership.
func (s *Store) FindMemberByID(ctx context.Context, id string) (*domain.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

// DeleteMember removes one membership.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.members[id]; !ok {
		return repository.ErrNotFound
	}
	drop(ctx, s, s.state.members, id)
	return nil
}

// DeleteMembersByCard removes every membership created through the card.
func (s *Store) DeleteMembersByCard(ctx context.Context, cardID string) error {
	return s.deleteMembers(ctx, func(m domain.TeamMember) bool { return m.CardID == cardID })
}

// DeleteMembersByTeam removes every membership of the team.
func (s *Store) DeleteMembersByTeam(ctx context.Context, teamID string) error {
	return s.deleteMembers(ctx, func(m domain.TeamMember) bool { return m.TeamID == teamID })
}

func (s *Store) deleteMembers(ctx context.Context, match func(domain.TeamMember) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.state.members {
		if match(m) {
			drop(ctx, s, s.state.members, id)
		}
	}
	return nil
}

// FindMemberByCardAndUser returns the newest membership for the pair.
func (s *Store) FindMemberByCardAndUser(ctx context.Context, cardID, userID string) (*domain.TeamMember, error) {
	return s.latestMember(func(m domain.TeamMember) bool { return m.CardID == cardID && m.UserID == userID })
}

// FindMemberByTeamAndUser returns the newest membership for the pair.
func (s *Store) FindMemberByTeamAndUser(ctx context.Context, teamID, userID string) (*domain.TeamMember, error) {
	return s.latestMember(func(m domain.TeamMember) bool { return m.TeamID == teamID && m.UserID == userID })
}

func (s *Store) latestMember(match func(domain.TeamMember) bool) (*domain.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.sortedMembers(match)
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	latest := rows[len(rows)-1]
	return &latest, nil
}

// ListMembersByCard pages memberships created through the card.
func (s *Store) ListMembersByCard(ctx context.Context, cardID string, page repository.PageRequest) (repository.Page[domain.TeamMember], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Slice(s.sortedMembers(func(m domain.TeamMember) bool { return m.CardID == cardID }), page), nil
}

// ListMembersByTeam pages memberships of the team.
func (s *Store) ListMembersByTeam(ctx context.Context, teamID string, page repository.PageRequest) (repository.Page[domain.TeamMember], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Slice(s.sortedMembers(func(m domain.TeamMember) bool { return m.TeamID == teamID }), page), nil
}

func (s *Store) sortedMembers(match func(domain.TeamMember) bool) []domain.TeamMember {
	out := make([]domain.TeamMember, 0)
	for _, m := range s.state.members {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.less(out[i].Audit, out[j].Audit, out[i].ID, out[j].ID)
	})
	return out
}

// Counts reports stored rows per collection.
func (s *Store) Counts() (teams, cards, members int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.teams), len(s.state.cards), len(s.state.members)
}
