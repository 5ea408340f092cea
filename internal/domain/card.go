package domain

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	minCardTitleLength = 3
	maxCardTitleLength = 100
)

// Card is a project owned by a user and attached to exactly one team.
type Card struct {
	ID          string
	Title       string
	Description string
	PosterURL   string
	TeamID      string
	OwnerID     string
	Audit
}

// NewCard validates and returns an unsaved card.
func NewCard(title, description, posterURL, teamID, ownerID string) (*Card, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, invalid("card owner id is required")
	}
	c := &Card{OwnerID: ownerID}
	if err := c.Update(title, description, posterURL, teamID); err != nil {
		return nil, err
	}
	return c, nil
}

// RehydrateCard rebuilds a card loaded from storage.
func RehydrateCard(id, title, description, posterURL, teamID, ownerID string, audit Audit) *Card {
	return &Card{
		ID:          id,
		Title:       title,
		Description: description,
		PosterURL:   posterURL,
		TeamID:      teamID,
		OwnerID:     ownerID,
		Audit:       audit,
	}
}

// Update replaces the mutable fields. The owner never changes.
func (c *Card) Update(title, description, posterURL, teamID string) error {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	if n < minCardTitleLength || n > maxCardTitleLength {
		return invalid("title must be between %d and %d characters", minCardTitleLength, maxCardTitleLength)
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return invalid("description cannot be longer than %d characters", maxDescriptionLength)
	}
	posterURL = strings.TrimSpace(posterURL)
	if posterURL != "" {
		if err := validatePosterURL(posterURL); err != nil {
			return err
		}
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return invalid("card team id is required")
	}
	c.Title = title
	c.Description = description
	c.PosterURL = posterURL
	c.TeamID = teamID
	return nil
}

// SameIdentity reports whether both cards are the same persisted aggregate.
func (c *Card) SameIdentity(other *Card) bool {
	return sameID(c, other, func(x *Card) string { return x.ID })
}

func validatePosterURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return invalid("poster url must be an absolute URI")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("poster url scheme must be http or https")
	}
	return nil
}
