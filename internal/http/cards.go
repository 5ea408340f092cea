package httpx

import (
	"net/http"
	"strings"

	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
	"github.com/Nikita-Hritsay/TeamUp/internal/service/card"
)

func (r *Router) handleCreateCard(w http.ResponseWriter, req *http.Request) {
	var payload cardRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	created, err := r.cards.Create(req.Context(), card.CreateInput{
		Title:       payload.Title,
		Description: payload.Description,
		PosterURL:   payload.PosterURL,
		TeamID:      string(payload.TeamID),
		OwnerID:     string(payload.OwnerID),
	})
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCardResponse(*created))
}

func (r *Router) handleFetchCard(w http.ResponseWriter, req *http.Request) {
	cardID, ok := queryID(w, req, "cardId")
	if !ok {
		return
	}
	found, err := r.cards.Get(req.Context(), cardID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardResponse(*found))
}

func (r *Router) handleCardsByUser(w http.ResponseWriter, req *http.Request) {
	userID, ok := queryUser(w, req)
	if !ok {
		return
	}
	owned, err := r.cards.ListByOwner(req.Context(), userID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	out := make([]cardResponse, 0, len(owned))
	for _, c := range owned {
		out = append(out, newCardResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (r *Router) handleCardsByTeam(w http.ResponseWriter, req *http.Request) {
	teamID, ok := queryID(w, req, "teamId")
	if !ok {
		return
	}
	page, ok := pageRequest(w, req)
	if !ok {
		return
	}
	result, err := r.cards.ListByTeam(req.Context(), teamID, page)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(result, newCardResponse))
}

func (r *Router) handleListCards(w http.ResponseWriter, req *http.Request) {
	page, ok := pageRequest(w, req)
	if !ok {
		return
	}
	query := req.URL.Query()
	filter := repository.CardFilter{
		OwnerID: strings.TrimSpace(query.Get("ownerId")),
		Title:   strings.TrimSpace(query.Get("title")),
	}
	if raw := strings.TrimSpace(query.Get("teamId")); raw != "" {
		if filter.TeamID, ok = requireUUID(w, "teamId", raw); !ok {
			return
		}
	}
	result, err := r.cards.List(req.Context(), filter, page)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(result, newCardResponse))
}

func (r *Router) handleUpdateCard(w http.ResponseWriter, req *http.Request) {
	cardID, ok := pathID(w, req, "cardId")
	if !ok {
		return
	}
	var payload cardRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	updated, err := r.cards.Update(req.Context(), cardID, card.UpdateInput{
		Title:       payload.Title,
		Description: payload.Description,
		PosterURL:   payload.PosterURL,
		TeamID:      string(payload.TeamID),
	})
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardResponse(*updated))
}

func (r *Router) handleDeleteCard(w http.ResponseWriter, req *http.Request) {
	cardID, ok := pathID(w, req, "cardId")
	if !ok {
		return
	}
	if err := r.cards.Delete(req.Context(), cardID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
