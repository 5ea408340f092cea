package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewCardValidatesFields(t *testing.T) {
	cases := []struct {
		name   string
		title  string
		desc   string
		poster string
		team   string
		owner  string
	}{
		{name: "short title", title: "ab", team: "t", owner: "o"},
		{name: "long title", title: strings.Repeat("x", 101), team: "t", owner: "o"},
		{name: "long description", title: "valid", desc: strings.Repeat("d", 501), team: "t", owner: "o"},
		{name: "relative poster", title: "valid", poster: "/img.png", team: "t", owner: "o"},
		{name: "ftp poster", title: "valid", poster: "ftp://host/img.png", team: "t", owner: "o"},
		{name: "missing team", title: "valid", owner: "o"},
		{name: "missing owner", title: "valid", team: "t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCard(tc.title, tc.desc, tc.poster, tc.team, tc.owner)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestNewCardLeavesAuditUnset(t *testing.T) {
	c, err := NewCard("  Hackathon  ", "desc", "https://cdn.example.com/p.png", "team-1", "user-1")
	if err != nil {
		t.Fatalf("NewCard returned error: %v", err)
	}
	if c.Title != "Hackathon" {
		t.Fatalf("expected trimmed title, got %q", c.Title)
	}
	if c.ID != "" || !c.CreatedAt.IsZero() || c.CreatedBy != "" {
		t.Fatalf("expected id and audit unset, got %+v", c)
	}
}

func TestCardUpdateKeepsOwner(t *testing.T) {
	c := RehydrateCard("c-1", "Title", "", "", "team-1", "owner-1", Audit{})
	if err := c.Update("New title", "d", "", "team-2"); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if c.OwnerID != "owner-1" || c.TeamID != "team-2" {
		t.Fatalf("unexpected card after update: %+v", c)
	}
	if err := c.Update("x", "", "", "team-3"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if c.TeamID != "team-2" {
		t.Fatalf("failed update must not mutate the card")
	}
}

func TestNotFoundErrorMatchesSentinel(t *testing.T) {
	err := error(NotFound("Team", "id", "42"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is to match ErrNotFound")
	}
	if !IsNotFoundKind(err, "Team") || IsNotFoundKind(err, "User") {
		t.Fatalf("unexpected kind matching for %v", err)
	}
}
