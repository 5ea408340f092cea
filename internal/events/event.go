// Package events fans membership lifecycle events out to streaming clients
// subscribed by team id.
package events

import (
	"encoding/json"
	"time"
)

// Type names a membership lifecycle event.
type Type string

const (
	MemberJoinRequested Type = "member.join_requested"
	MemberInvited       Type = "member.invited"
	MemberStatusChanged Type = "member.status_changed"
	MemberRemoved       Type = "member.removed"
	TeamDeleted         Type = "team.deleted"
)

// Event is emitted after the writing transaction commits.
type Event struct {
	Type       Type      `json:"type"`
	TeamID     string    `json:"teamId"`
	CardID     string    `json:"cardId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	MemberID   string    `json:"memberId,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher accepts events. Implementations must not block on slow subscribers.
type Publisher interface {
	Publish(Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) error { return nil }

func encode(e Event) ([]byte, error) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(e)
}
