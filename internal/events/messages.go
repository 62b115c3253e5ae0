package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mmynk/hearth/internal/ledger"
)

// ChangeMessage announces that one document of a household changed. It
// carries ids only; consumers re-read the document they care about.
type ChangeMessage struct {
	HouseholdID string    `json:"householdId"`
	Collection  string    `json:"collection"`
	DocumentID  string    `json:"documentId"`
	Action      string    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewChangeMessage converts a ledger change.
func NewChangeMessage(c ledger.Change) *ChangeMessage {
	return &ChangeMessage{
		HouseholdID: c.HouseholdID,
		Collection:  c.Collection,
		DocumentID:  c.DocumentID,
		Action:      c.Action,
		Timestamp:   c.At.UTC(),
	}
}

// RoutingKey is "household.<id>.<collection>.<action>", so consumers can
// bind to one household with "household.<id>.#".
func (m *ChangeMessage) RoutingKey() string {
	return strings.Join([]string{"household", m.HouseholdID, m.Collection, m.Action}, ".")
}

// ToJSON converts the message to JSON bytes.
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
