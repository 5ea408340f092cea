package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	maxTeamNameLength    = 100
	maxDescriptionLength = 500
)

// Team groups cards and members. It holds no references to either.
type Team struct {
	ID          string
	Name        string
	Description string
	Audit
}

// NewTeam validates and returns an unsaved team.
func NewTeam(name, description string) (*Team, error) {
	t := &Team{}
	if err := t.Update(name, description); err != nil {
		return nil, err
	}
	return t, nil
}

// RehydrateTeam rebuilds a team loaded from storage.
func RehydrateTeam(id, name, description string, audit Audit) *Team {
	return &Team{ID: id, Name: name, Description: description, Audit: audit}
}

// Update replaces the mutable fields after validating them.
func (t *Team) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("team name is required")
	}
	if utf8.RuneCountInString(name) > maxTeamNameLength {
		return invalid("team name must be at most %d characters", maxTeamNameLength)
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return invalid("team description must be at most %d characters", maxDescriptionLength)
	}
	t.Name = name
	t.Description = description
	return nil
}

// SameIdentity reports whether both teams are the same persisted aggregate.
func (t *Team) SameIdentity(other *Team) bool {
	return sameID(t, other, func(x *Team) string { return x.ID })
}

func sameID[T any](a, b *T, id func(*T) string) bool {
	if a == nil || b == nil {
		return false
	}
	if id(a) == "" || id(b) == "" {
		return a == b
	}
	return id(a) == id(b)
}
