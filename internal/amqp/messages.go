package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExportJobMessage asks a worker to render one report and write it to a
// target. Dates are YYYY-MM-DD and optional.
type ExportJobMessage struct {
	ID        string    `json:"id"`
	Report    string    `json:"report"`
	Search    string    `json:"search,omitempty"`
	Period    string    `json:"period,omitempty"`
	Start     string    `json:"start,omitempty"`
	End       string    `json:"end,omitempty"`
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExportJobMessage creates a message with a fresh ID.
func NewExportJobMessage(report, target string) *ExportJobMessage {
	return &ExportJobMessage{
		ID:        uuid.NewString(),
		Report:    report,
		Target:    target,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportJobMessageFromJSON creates a message from JSON bytes
func ExportJobMessageFromJSON(data []byte) (*ExportJobMessage, error) {
	var msg ExportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
