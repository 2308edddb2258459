package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"follow-exchange/internal/core/domain"
)

// EventType represents the type of event.
type EventType string

const (
	// EventAccountChanged is emitted after a transaction committed a new
	// version of an account.
	EventAccountChanged EventType = "account.changed"
	// EventCampaignChanged is emitted after a campaign was created or settled.
	EventCampaignChanged EventType = "campaign.changed"
	// EventTaskSettled is emitted once per successful completion settlement.
	EventTaskSettled EventType = "task.settled"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

// AccountChangedData carries the committed account.
type AccountChangedData struct {
	Account domain.Account
}

// CampaignChangedData carries the committed campaign.
type CampaignChangedData struct {
	Campaign domain.Campaign
}

// TaskSettledData describes one settlement.
type TaskSettledData struct {
	CampaignID string
	UserID     string
	Exhausted  bool
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager fans committed changes out to subscribers. Events are only
// published after the transaction that produced them committed, so handlers
// never observe rolled back state. Handlers run in the publisher's goroutine,
// in subscription order.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a new event manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe subscribes a handler to a specific event type. The returned
// function removes the subscription.
func (m *Manager) Subscribe(eventType EventType, handler Handler) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
	idx := len(m.handlers[eventType]) - 1
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			hs := m.handlers[eventType]
			if idx < len(hs) {
				// keep indexes of other subscriptions stable
				hs[idx] = nil
			}
		})
	}
}

// Publish publishes an event to all subscribed handlers. Handler errors are
// logged and do not stop delivery to the remaining handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data any) {
	if m == nil {
		return
	}

	m.mu.RLock()
	handlers := append([]Handler(nil), m.handlers[eventType]...)
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: m.now(),
		Data:      data,
	}

	for _, h := range handlers {
		if h == nil {
			continue
		}
		if err := h(ctx, event); err != nil {
			m.logger.Warn("event handler failed",
				slog.String("event", string(eventType)),
				slog.Any("error", err))
		}
	}
}

// PublishAccountChanged publishes an account changed event.
func (m *Manager) PublishAccountChanged(ctx context.Context, acc *domain.Account) {
	if m == nil || acc == nil {
		return
	}
	m.Publish(ctx, EventAccountChanged, AccountChangedData{Account: *acc.Clone()})
}

// PublishCampaignChanged publishes a campaign changed event.
func (m *Manager) PublishCampaignChanged(ctx context.Context, c *domain.Campaign) {
	if m == nil || c == nil {
		return
	}
	m.Publish(ctx, EventCampaignChanged, CampaignChangedData{Campaign: *c})
}

// PublishTaskSettled publishes a task settled event.
func (m *Manager) PublishTaskSettled(ctx context.Context, campaignID, userID string, exhausted bool) {
	m.Publish(ctx, EventTaskSettled, TaskSettledData{
		CampaignID: campaignID,
		UserID:     userID,
		Exhausted:  exhausted,
	})
}

// Shutdown drops every subscription.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = make(map[EventType][]Handler)
}
