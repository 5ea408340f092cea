package repository

import (
	"strings"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
)

// CardPredicate is a pure condition over a card row. Adapters either call
// Match or translate the concrete type into their own query language.
type CardPredicate interface {
	Match(card domain.Card) bool
}

// Always matches every card. It stands in for an absent filter.
type Always struct{}

func (Always) Match(domain.Card) bool { return true }

// OwnerIs matches cards owned by the given user.
type OwnerIs string

func (p OwnerIs) Match(card domain.Card) bool { return card.OwnerID == string(p) }

// TeamIs matches cards attached to the given team.
type TeamIs string

func (p TeamIs) Match(card domain.Card) bool { return card.TeamID == string(p) }

// TitleContains matches titles containing the value, ignoring case.
type TitleContains string

func (p TitleContains) Match(card domain.Card) bool {
	return strings.Contains(strings.ToLower(card.Title), strings.ToLower(string(p)))
}

// OwnerFilter returns OwnerIs for a non-empty id and Always otherwise.
func OwnerFilter(ownerID string) CardPredicate {
	if ownerID = strings.TrimSpace(ownerID); ownerID == "" {
		return Always{}
	}
	return OwnerIs(ownerID)
}

// TeamFilter returns TeamIs for a non-empty id and Always otherwise.
func TeamFilter(teamID string) CardPredicate {
	if teamID = strings.TrimSpace(teamID); teamID == "" {
		return Always{}
	}
	return TeamIs(teamID)
}

// TitleFilter returns TitleContains for non-blank text and Always otherwise.
func TitleFilter(title string) CardPredicate {
	if title = strings.TrimSpace(title); title == "" {
		return Always{}
	}
	return TitleContains(title)
}

// CardFilter holds the optional card query parameters.
type CardFilter struct {
	OwnerID string
	Title   string
	TeamID  string
}

// Predicates returns one predicate per parameter; absent ones are Always.
func (f CardFilter) Predicates() []CardPredicate {
	return []CardPredicate{
		OwnerFilter(f.OwnerID),
		TitleFilter(f.Title),
		TeamFilter(f.TeamID),
	}
}

// MatchAll is the AND of preds. An empty list matches everything.
func MatchAll(card domain.Card, preds []CardPredicate) bool {
	for _, p := range preds {
		if p != nil && !p.Match(card) {
			return false
		}
	}
	return true
}
