package httpadapter

import (
	"net/http"
)

type ensureAccountRequest struct {
	Email string `json:"email"`
}

// handleEnsureAccount creates the caller's account on first sign-in and
// returns it; later calls return the existing account.
func (h *Handler) handleEnsureAccount(w http.ResponseWriter, r *http.Request) {
	var req ensureAccountRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "invalid JSON")
		return
	}
	acc, err := h.svc.EnsureAccount(r.Context(), userFrom(r.Context()), req.Email)
	if err != nil {
		h.writeError(w, r, "ensure account", err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acc, h.adCap))
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.GetAccount(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acc, h.adCap))
}

// handleHistory returns the caller's newest ledger entries.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}
	entries, err := h.svc.History(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		h.writeError(w, r, "history", err)
		return
	}
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryResponse{
			ID:           e.ID,
			Kind:         string(e.Kind),
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			Ref:          e.Ref,
			CreatedAt:    e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
