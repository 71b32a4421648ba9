package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conti/internal/cache"
)

// InvalidationMessage tells consumers which cached query families are stale.
// It carries no data; consumers refetch what they need.
type InvalidationMessage struct {
	ID        uuid.UUID   `json:"id"`
	Tags      []cache.Tag `json:"tags"`
	Reason    string      `json:"reason"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewInvalidationMessage creates a message with a fresh ID. reason is a short
// "entity:action" label such as "transaction:add".
func NewInvalidationMessage(reason string, tags ...cache.Tag) *InvalidationMessage {
	return &InvalidationMessage{
		ID:        uuid.New(),
		Tags:      tags,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

func (m *InvalidationMessage) Validate() error {
	if m.ID == uuid.Nil {
		return errors.New("missing message id")
	}
	if len(m.Tags) == 0 {
		return errors.New("no tags to invalidate")
	}
	for _, t := range m.Tags {
		if _, err := cache.ParseTag(string(t)); err != nil {
			return err
		}
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *InvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvalidationMessageFromJSON decodes and validates a message body.
func InvalidationMessageFromJSON(data []byte) (*InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &msg, nil
}
