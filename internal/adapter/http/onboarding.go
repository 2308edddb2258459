package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"follow-exchange/internal/core/port"
)

// handleOnboarding lists the checklist with the caller's progress.
func (h *Handler) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.GetAccount(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, "onboarding", err)
		return
	}
	writeJSON(w, http.StatusOK, h.onboardingResponse(&port.OnboardingStatus{
		Items:    h.checklist.Progress(acc),
		Complete: acc.OnboardingComplete,
		Balance:  acc.Balance,
	}))
}

func (h *Handler) handleMarkOnboarding(w http.ResponseWriter, r *http.Request) {
	var req proofRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid JSON")
		return
	}
	st, err := h.svc.MarkOnboardingItem(r.Context(), userFrom(r.Context()), chi.URLParam(r, "item"), req.proof())
	if err != nil {
		h.writeError(w, r, "mark onboarding item", err)
		return
	}
	writeJSON(w, http.StatusOK, h.onboardingResponse(st))
}

func (h *Handler) handleClaimOnboarding(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.ClaimOnboarding(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, "claim onboarding", err)
		return
	}
	writeJSON(w, http.StatusOK, h.onboardingResponse(st))
}

func (h *Handler) onboardingResponse(st *port.OnboardingStatus) onboardingResponse {
	items := make([]onboardingItemResponse, 0, len(h.checklist.Items()))
	for _, it := range h.checklist.Items() {
		items = append(items, onboardingItemResponse{
			ID:   it.ID,
			Name: it.Name,
			URL:  it.URL,
			Done: st.Items[it.ID],
		})
	}
	return onboardingResponse{
		Items:    items,
		Complete: st.Complete,
		Rewarded: st.Rewarded,
		Balance:  st.Balance,
	}
}
