package domain

import (
	"strings"
	"time"
)

// MemberStatus is the membership lifecycle state.
type MemberStatus string

const (
	StatusPending  MemberStatus = "PENDING"
	StatusJoined   MemberStatus = "JOINED"
	StatusRejected MemberStatus = "REJECTED"
)

// Roles used by the web client. Role stays free-form.
const (
	RoleCreator     = "CREATOR"
	RoleParticipant = "PARTICIPANT"
	RoleLeader      = "LEADER"
)

// canonicalRole upper-cases the roles the web client knows and keeps any
// other value as given. Blank means RoleParticipant.
func canonicalRole(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RoleParticipant
	}
	for _, known := range []string{RoleCreator, RoleParticipant, RoleLeader} {
		if strings.EqualFold(raw, known) {
			return known
		}
	}
	return raw
}

// ParseMemberStatus accepts any letter case.
func ParseMemberStatus(raw string) (MemberStatus, error) {
	switch MemberStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusJoined:
		return StatusJoined, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", invalid("invalid status: %s", raw)
}

// Active reports whether the status counts toward the (team, user) uniqueness rule.
func (s MemberStatus) Active() bool {
	return s == StatusPending || s == StatusJoined
}

// TeamMember associates an external user with a team, optionally through a card invite.
type TeamMember struct {
	ID       string
	TeamID   string
	CardID   string
	UserID   string
	Role     string
	Status   MemberStatus
	JoinedAt *time.Time
	Audit
}

// NewTeamMember returns an unsaved PENDING membership.
func NewTeamMember(teamID, cardID, userID, role string) (*TeamMember, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, invalid("team id is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("user id is required")
	}
	role = canonicalRole(role)
	return &TeamMember{
		TeamID: teamID,
		CardID: strings.TrimSpace(cardID),
		UserID: userID,
		Role:   role,
		Status: StatusPending,
	}, nil
}

// RehydrateTeamMember rebuilds a membership loaded from storage.
func RehydrateTeamMember(id, teamID, cardID, userID, role string, status MemberStatus, joinedAt *time.Time, audit Audit) *TeamMember {
	return &TeamMember{
		ID:       id,
		TeamID:   teamID,
		CardID:   cardID,
		UserID:   userID,
		Role:     role,
		Status:   status,
		JoinedAt: joinedAt,
		Audit:    audit,
	}
}

// Join moves a PENDING membership to JOINED. JoinedAt never precedes CreatedAt.
func (m *TeamMember) Join(at time.Time) error {
	if m.Status != StatusPending {
		return conflict("membership is %s and can no longer be joined", m.Status)
	}
	if !m.CreatedAt.IsZero() && at.Before(m.CreatedAt) {
		at = m.CreatedAt
	}
	at = at.UTC()
	m.Status = StatusJoined
	m.JoinedAt = &at
	return nil
}

// Reject moves a PENDING membership to REJECTED.
func (m *TeamMember) Reject() error {
	if m.Status != StatusPending {
		return conflict("membership is %s and can no longer be rejected", m.Status)
	}
	m.Status = StatusRejected
	return nil
}

// Transition applies the change named by status. Only JOINED and REJECTED are targets.
func (m *TeamMember) Transition(status MemberStatus, at time.Time) error {
	switch status {
	case StatusJoined:
		return m.Join(at)
	case StatusRejected:
		return m.Reject()
	}
	return invalid("invalid status: %s", status)
}

// RestampTeam copies the authoritative team id from the owning card.
func (m *TeamMember) RestampTeam(teamID string) {
	if teamID != "" {
		m.TeamID = teamID
	}
}

// SameIdentity reports whether both memberships are the same persisted aggregate.
func (m *TeamMember) SameIdentity(other *TeamMember) bool {
	return sameID(m, other, func(x *TeamMember) string { return x.ID })
}
