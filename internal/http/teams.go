package httpx

import (
	"net/http"
	"strings"
)

func (r *Router) handleCreateTeam(w http.ResponseWriter, req *http.Request) {
	var payload teamRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	created, err := r.teams.CreateTeam(req.Context(), payload.Name, payload.Description)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTeamResponse(*created))
}

func (r *Router) handleListTeams(w http.ResponseWriter, req *http.Request) {
	page, ok := pageRequest(w, req)
	if !ok {
		return
	}
	userID := strings.TrimSpace(req.URL.Query().Get("userId"))
	result, err := r.teams.ListTeams(req.Context(), page, userID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(result, newTeamResponse))
}

func (r *Router) handleFetchTeam(w http.ResponseWriter, req *http.Request) {
	teamID, ok := queryID(w, req, "teamId")
	if !ok {
		return
	}
	found, err := r.teams.FetchTeam(req.Context(), teamID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newTeamResponse(*found))
}

func (r *Router) handleUpdateTeam(w http.ResponseWriter, req *http.Request) {
	teamID, ok := pathID(w, req, "teamId")
	if !ok {
		return
	}
	var payload teamRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	updated, err := r.teams.UpdateTeam(req.Context(), teamID, payload.Name, payload.Description)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newTeamResponse(*updated))
}

func (r *Router) handleDeleteTeam(w http.ResponseWriter, req *http.Request) {
	teamID, ok := pathID(w, req, "teamId")
	if !ok {
		return
	}
	if err := r.teams.DeleteTeam(req.Context(), teamID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleJoinTeam(w http.ResponseWriter, req *http.Request) {
	var payload memberRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	teamID, ok := requireUUID(w, "teamId", string(payload.TeamID))
	if !ok {
		return
	}
	member, err := r.teams.JoinTeam(req.Context(), teamID, string(payload.UserID), payload.Role)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMemberResponse(*member))
}

func (r *Router) handleInvite(w http.ResponseWriter, req *http.Request) {
	cardID, ok := pathID(w, req, "cardId")
	if !ok {
		return
	}
	var payload memberRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	teamID, ok := requireUUID(w, "teamId", string(payload.TeamID))
	if !ok {
		return
	}
	member, err := r.teams.InviteToTeam(req.Context(), cardID, teamID, string(payload.UserID), payload.Role)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMemberResponse(*member))
}

func (r *Router) handleMemberStatus(w http.ResponseWriter, req *http.Request) {
	cardID, ok := pathID(w, req, "cardId")
	if !ok {
		return
	}
	userID, ok := queryUser(w, req)
	if !ok {
		return
	}
	member, err := r.teams.UpdateMemberStatus(req.Context(), cardID, userID, req.URL.Query().Get("status"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberResponse(*member))
}

func (r *Router) handleRemoveMember(w http.ResponseWriter, req *http.Request) {
	cardID, ok := pathID(w, req, "cardId")
	if !ok {
		return
	}
	userID, ok := queryUser(w, req)
	if !ok {
		return
	}
	if err := r.teams.RemoveMember(req.Context(), cardID, userID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleMembersByCard(w http.ResponseWriter, req *http.Request) {
	cardID, ok := pathID(w, req, "cardId")
	if !ok {
		return
	}
	page, ok := pageRequest(w, req)
	if !ok {
		return
	}
	result, err := r.teams.MembersByCard(req.Context(), cardID, page)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(result, newMemberResponse))
}

func (r *Router) handleMembersByTeam(w http.ResponseWriter, req *http.Request) {
	teamID, ok := pathID(w, req, "teamId")
	if !ok {
		return
	}
	page, ok := pageRequest(w, req)
	if !ok {
		return
	}
	result, err := r.teams.MembersByTeam(req.Context(), teamID, page)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(result, newMemberResponse))
}

// memberFeedTeam resolves the team a realtime subscriber listens to.
func (r *Router) memberFeedTeam(w http.ResponseWriter, req *http.Request) (string, bool) {
	teamID, ok := queryID(w, req, "teamId")
	if !ok {
		return "", false
	}
	if _, err := r.teams.FetchTeam(req.Context(), teamID); err != nil {
		r.writeServiceError(w, req, err)
		return "", false
	}
	return teamID, true
}
