package httpx

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

// flexID accepts an id sent as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type teamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type memberRequest struct {
	TeamID flexID `json:"teamId"`
	UserID flexID `json:"userId"`
	Role   string `json:"role"`
}

type cardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PosterURL   string `json:"posterUrl"`
	TeamID      flexID `json:"teamId"`
	OwnerID     flexID `json:"ownerId"`
}

type auditResponse struct {
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

func newAudit(a domain.Audit) auditResponse {
	return auditResponse{
		CreatedAt: a.CreatedAt.UTC(),
		CreatedBy: a.CreatedBy,
		UpdatedAt: a.UpdatedAt.UTC(),
		UpdatedBy: a.UpdatedBy,
	}
}

type teamResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	auditResponse
}

func newTeamResponse(t domain.Team) teamResponse {
	return teamResponse{ID: t.ID, Name: t.Name, Description: t.Description, auditResponse: newAudit(t.Audit)}
}

type cardResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PosterURL   string `json:"posterUrl,omitempty"`
	TeamID      string `json:"teamId"`
	OwnerID     string `json:"ownerId"`
	auditResponse
}

func newCardResponse(c domain.Card) cardResponse {
	return cardResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		PosterURL:     c.PosterURL,
		TeamID:        c.TeamID,
		OwnerID:       c.OwnerID,
		auditResponse: newAudit(c.Audit),
	}
}

type memberResponse struct {
	ID       string     `json:"id"`
	TeamID   string     `json:"teamId"`
	CardID   string     `json:"cardId,omitempty"`
	UserID   string     `json:"userId"`
	Role     string     `json:"role"`
	Status   string     `json:"status"`
	JoinedAt *time.Time `json:"joinedAt,omitempty"`
	auditResponse
}

func newMemberResponse(m domain.TeamMember) memberResponse {
	return memberResponse{
		ID:            m.ID,
		TeamID:        m.TeamID,
		CardID:        m.CardID,
		UserID:        m.UserID,
		Role:          m.Role,
		Status:        string(m.Status),
		JoinedAt:      m.JoinedAt,
		auditResponse: newAudit(m.Audit),
	}
}

type pageResponse[T any] struct {
	Content       []T   `json:"content"`
	PageNumber    int   `json:"pageNumber"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
}

func newPageResponse[T, U any](p repository.Page[T], fn func(T) U) pageResponse[U] {
	mapped := repository.Map(p, fn)
	return pageResponse[U]{
		Content:       mapped.Content,
		PageNumber:    mapped.Number,
		PageSize:      mapped.Size,
		TotalElements: mapped.TotalElements,
		TotalPages:    mapped.TotalPages,
		Last:          mapped.Last(),
	}
}
