package httpadapter

import (
	"net/http"

	"follow-exchange/internal/core/domain"
)

type issueVerificationRequest struct {
	Purpose string `json:"purpose"`
	Subject string `json:"subject"`
}

// handleIssueVerification starts a verification. Ad verifications block
// until the ad network resolved and come back ready; the others become
// ready after the gate delay.
func (h *Handler) handleIssueVerification(w http.ResponseWriter, r *http.Request) {
	var req issueVerificationRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid JSON")
		return
	}
	userID := userFrom(r.Context())

	var (
		ticket *domain.Ticket
		err    error
	)
	if domain.Purpose(req.Purpose) == domain.PurposeAd {
		if h.ads == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "ads_unavailable", Message: "no ad network configured"})
			return
		}
		ticket, err = h.gate.ConfirmAd(r.Context(), userID, h.ads)
	} else {
		ticket, err = h.gate.Issue(r.Context(), userID, domain.Purpose(req.Purpose), req.Subject)
	}
	if err != nil {
		h.writeError(w, r, "issue verification", err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleWatchAd(w http.ResponseWriter, r *http.Request) {
	var req proofRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid JSON")
		return
	}
	acc, err := h.svc.WatchAd(r.Context(), userFrom(r.Context()), req.proof())
	if err != nil {
		h.writeError(w, r, "watch ad", err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acc, h.adCap))
}

func (h *Handler) handleDailyBonus(w http.ResponseWriter, r *http.Request) {
	var req proofRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid JSON")
		return
	}
	acc, err := h.svc.ClaimDailyBonus(r.Context(), userFrom(r.Context()), req.proof())
	if err != nil {
		h.writeError(w, r, "daily bonus", err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acc, h.adCap))
}
