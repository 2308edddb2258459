package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
	"follow-exchange/internal/core/quota"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type accountResponse struct {
	ID                 string          `json:"id"`
	Email              string          `json:"email,omitempty"`
	Balance            decimal.Decimal `json:"balance"`
	ActiveCampaigns    int             `json:"active_campaigns"`
	Onboarding         map[string]bool `json:"onboarding"`
	OnboardingComplete bool            `json:"onboarding_complete"`
	AdsWatchedToday    int             `json:"ads_watched_today"`
	BonusClaimedToday  bool            `json:"bonus_claimed_today"`
	AdsRemainingToday  int             `json:"ads_remaining_today"`
	CreatedAt          time.Time       `json:"created_at"`
}

// newAccountResponse renders acc, whose daily counters the engine already
// brought up to date.
func newAccountResponse(acc *domain.Account, adCap int) accountResponse {
	return accountResponse{
		ID:                 acc.ID,
		Email:              acc.Email,
		Balance:            acc.Balance,
		ActiveCampaigns:    acc.ActiveCampaigns,
		Onboarding:         acc.Onboarding,
		OnboardingComplete: acc.OnboardingComplete,
		AdsWatchedToday:    acc.Quota.AdsWatched,
		BonusClaimedToday:  acc.Quota.BonusClaimed,
		AdsRemainingToday:  quota.Remaining(acc.Quota, acc.Quota.LastReset, adCap),
		CreatedAt:          acc.CreatedAt,
	}
}

type campaignResponse struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	TargetURL       string          `json:"target_url"`
	BudgetTotal     int             `json:"budget_total"`
	BudgetRemaining int             `json:"budget_remaining"`
	Cost            decimal.Decimal `json:"cost"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

func newCampaignResponse(c *domain.Campaign) campaignResponse {
	return campaignResponse{
		ID:              c.ID,
		OwnerID:         c.OwnerID,
		TargetURL:       c.TargetURL,
		BudgetTotal:     c.BudgetTotal,
		BudgetRemaining: c.BudgetRemaining,
		Cost:            c.Cost,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt,
	}
}

func newCampaignList(cs []domain.Campaign) []campaignResponse {
	out := make([]campaignResponse, 0, len(cs))
	for i := range cs {
		out = append(out, newCampaignResponse(&cs[i]))
	}
	return out
}

type completionsResponse struct {
	CampaignID string   `json:"campaign_id"`
	Users      []string `json:"users"`
}

type ledgerEntryResponse struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Ref          string          `json:"ref,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type settlementResponse struct {
	CampaignID      string          `json:"campaign_id"`
	Reward          decimal.Decimal `json:"reward"`
	Balance         decimal.Decimal `json:"balance"`
	BudgetRemaining int             `json:"budget_remaining"`
	Exhausted       bool            `json:"exhausted"`
}

func newSettlementResponse(s *port.Settlement) settlementResponse {
	return settlementResponse{
		CampaignID:      s.CampaignID,
		Reward:          s.Reward,
		Balance:         s.Balance,
		BudgetRemaining: s.BudgetRemaining,
		Exhausted:       s.Exhausted,
	}
}

type onboardingItemResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Done bool   `json:"done"`
}

type onboardingResponse struct {
	Items    []onboardingItemResponse `json:"items"`
	Complete bool                     `json:"complete"`
	Rewarded bool                     `json:"rewarded,omitempty"`
	Balance  decimal.Decimal          `json:"balance"`
}

// proofRequest is the body of every reward operation.
type proofRequest struct {
	Token string `json:"token"`
}

func (p proofRequest) proof() domain.Proof {
	return domain.Proof{Token: p.Token}
}

// statusOf maps an error to its HTTP status by kind. Unclassified errors,
// such as an unreachable store, are transient.
func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindStateConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusOf(err)
	if status == http.StatusServiceUnavailable {
		h.logger.Error(op+" error",
			slog.String("user_id", userFrom(r.Context())),
			slog.Any("error", err))
	}
	var derr *domain.Error
	if !errors.As(err, &derr) {
		writeJSON(w, status, errorResponse{Error: domain.ErrTransient.Code, Message: domain.ErrTransient.Msg})
		return
	}
	writeJSON(w, status, errorResponse{Error: derr.Code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads an optional JSON body into v. An empty body leaves v as is.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: msg})
}

// queryLimit parses ?limit=; zero means the engine default.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}
