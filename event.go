package storefront

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gofalre.io/storefront/cart"
	"gofalre.io/storefront/models"
)

const subjectPrefix = "storefront.cart."

// Publisher is the part of *nats.Conn the EventManager needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// EventManager forwards cart activity to the message bus. It is a plain
// store listener, so publishing never blocks or fails a cart operation.
type EventManager struct {
	publisher Publisher
	users     func() string
	now       func() time.Time
	logger    *zap.Logger
}

// NewEventManager publishes through publisher; users reports the current
// user id for each event and may be nil.
func NewEventManager(publisher Publisher, users func() string, logger *zap.Logger) *EventManager {
	if users == nil {
		users = func() string { return "" }
	}
	return &EventManager{
		publisher: publisher,
		users:     users,
		now:       time.Now,
		logger:    logger,
	}
}

// Attach subscribes to store and returns the unsubscribe func.
func (em *EventManager) Attach(store cart.Service) (detach func()) {
	return store.Subscribe(em.Handle)
}

func (em *EventManager) Handle(change cart.Change) {
	if !change.Event.Published() {
		return
	}

	event := models.CartEvent{
		ID:            uuid.NewString(),
		Type:          change.Event,
		UserID:        em.users(),
		LineID:        change.LineID,
		LineCount:     len(change.State.Lines),
		SelectedCount: len(change.State.Selected),
		Currency:      change.State.Totals.CurrencyCode(),
		Total:         change.State.Totals.Total,
		OccurredAt:    em.now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		em.logger.Error("Failed to marshal cart event", zap.Error(err))
		return
	}

	subject := subjectPrefix + string(event.Type)
	if err := em.publisher.Publish(subject, data); err != nil {
		em.logger.Warn("Failed to publish cart event",
			zap.String("subject", subject),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}

	em.logger.Debug("Cart event published", zap.String("subject", subject), zap.String("event_id", event.ID))
}
