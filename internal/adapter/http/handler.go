package httpadapter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/onboarding"
	"follow-exchange/internal/core/port"
	"follow-exchange/internal/metrics"
)

// UserHeader carries the authenticated user id set by the identity proxy.
const UserHeader = "X-User-ID"

// Verifications issues gate tickets on behalf of the API.
type Verifications interface {
	Issue(ctx context.Context, userID string, purpose domain.Purpose, subject string) (*domain.Ticket, error)
	ConfirmAd(ctx context.Context, userID string, ads port.AdNetwork) (*domain.Ticket, error)
}

// Handler contains dependencies and routes. It is an inbound adapter for HTTP:
// it decodes requests, calls the exchange engine and encodes its results, and
// holds no business rules of its own.
type Handler struct {
	svc       port.ExchangeUseCase
	gate      Verifications
	ads       port.AdNetwork
	checklist onboarding.Checklist
	adCap     int
	metrics   *metrics.Metrics
	health    func(ctx context.Context) error
	origins   []string
	logger    *slog.Logger
	router    chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithAdNetwork enables ad tickets through ads.
func WithAdNetwork(ads port.AdNetwork) Option {
	return func(h *Handler) { h.ads = ads }
}

// WithChecklist sets the checklist served by GET /onboarding.
func WithChecklist(c onboarding.Checklist) Option {
	return func(h *Handler) { h.checklist = c }
}

// WithDailyAdCap sets the cap used to report the remaining ads of the day.
func WithDailyAdCap(n int) Option {
	return func(h *Handler) { h.adCap = n }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithHealthCheck makes /health report check failures as 503.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(h *Handler) { h.health = check }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) { h.origins = origins }
}

// NewHandler creates a handler with all routes configured.
func NewHandler(svc port.ExchangeUseCase, gate Verifications, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		svc:       svc,
		gate:      gate,
		checklist: onboarding.Default(),
		adCap:     domain.DefaultRules().DailyAdCap,
		origins:   []string{"*"},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", UserHeader},
		MaxAge:         300,
	}))
	r.Use(tracingMiddleware())
	r.Use(h.metricsMiddleware)

	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.identify)

		r.Post("/accounts", h.handleEnsureAccount)
		r.Get("/accounts/me", h.handleGetAccount)
		r.Get("/accounts/me/history", h.handleHistory)

		r.Post("/verifications", h.handleIssueVerification)

		r.Post("/campaigns", h.handleCreateCampaign)
		r.Get("/campaigns/open", h.handleListOpenCampaigns)
		r.Get("/campaigns/mine", h.handleListOwnCampaigns)
		r.Get("/campaigns/{id}", h.handleGetCampaign)
		r.Get("/campaigns/{id}/completions", h.handleCompletions)
		r.Post("/campaigns/{id}/complete", h.handleCompleteTask)

		r.Post("/ads/watch", h.handleWatchAd)
		r.Post("/bonus/daily", h.handleDailyBonus)

		r.Get("/onboarding", h.handleOnboarding)
		r.Post("/onboarding/claim", h.handleClaimOnboarding)
		r.Post("/onboarding/{item}", h.handleMarkOnboarding)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn("health check failed", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
