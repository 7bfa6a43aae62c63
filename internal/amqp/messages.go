package amqp

import (
	"encoding/json"
	"time"
)

// ModificationMessage is the lightweight export trigger. It carries only the
// modification id; the worker fetches the full record from the database.
type ModificationMessage struct {
	ModificationID string    `json:"modification_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewModificationMessage creates a new export message for a modification id
func NewModificationMessage(modificationID string) *ModificationMessage {
	return &ModificationMessage{
		ModificationID: modificationID,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ModificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ModificationMessageFromJSON creates a message from JSON bytes
func ModificationMessageFromJSON(data []byte) (*ModificationMessage, error) {
	var msg ModificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ModificationID == "" {
		return nil, errEmptyModificationID
	}
	return &msg, nil
}
