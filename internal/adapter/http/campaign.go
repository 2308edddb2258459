package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"follow-exchange/internal/core/domain"
)

type createCampaignRequest struct {
	URL    string `json:"url"`
	Target int    `json:"target"`
}

// handleCreateCampaign spends the caller's points on a new follow campaign.
// Rule violations map to 400 or 409 by error kind.
func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid JSON")
		return
	}
	camp, err := h.svc.CreateCampaign(r.Context(), userFrom(r.Context()), req.URL, req.Target)
	if err != nil {
		h.writeError(w, r, "create campaign", err)
		return
	}
	writeJSON(w, http.StatusCreated, newCampaignResponse(camp))
}

func (h *Handler) handleListOpenCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}
	cs, err := h.svc.ListOpenCampaigns(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		h.writeError(w, r, "list open campaigns", err)
		return
	}
	writeJSON(w, http.StatusOK, newCampaignList(cs))
}

func (h *Handler) handleListOwnCampaigns(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.ListOwnCampaigns(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, "list own campaigns", err)
		return
	}
	writeJSON(w, http.StatusOK, newCampaignList(cs))
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	camp, err := h.svc.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, newCampaignResponse(camp))
}

// handleCompletions lists who completed the campaign. Only its owner may
// see the list.
func (h *Handler) handleCompletions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	camp, err := h.svc.GetCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "completions", err)
		return
	}
	if camp.OwnerID != userFrom(r.Context()) {
		h.writeError(w, r, "completions", domain.ErrCampaignNotFound)
		return
	}
	users, err := h.svc.Completions(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "completions", err)
		return
	}
	writeJSON(w, http.StatusOK, completionsResponse{CampaignID: id, Users: users})
}

// handleCompleteTask settles one follow action. The body carries the token of
// a resolved task verification for this campaign.
func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req proofRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid JSON")
		return
	}
	s, err := h.svc.CompleteTask(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"), req.proof())
	if err != nil {
		h.writeError(w, r, "complete task", err)
		return
	}
	writeJSON(w, http.StatusOK, newSettlementResponse(s))
}
