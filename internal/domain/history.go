package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PredictionHistoryEntry is the append-only audit record of one prediction
// attempt. Created once per attempt, never updated or deleted by this
// service. FarmID is a loose reference — the farm may be deleted later and
// the entry survives.
type PredictionHistoryEntry struct {
	ID       string          `gorm:"primaryKey" json:"id"`
	FarmID   string          `gorm:"index" json:"farmId"`
	Input    FeatureVector   `gorm:"embedded;embeddedPrefix:input_" json:"input"`
	Response json.RawMessage `json:"response"`
	Success  bool            `json:"success"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName keeps the table name stable regardless of struct naming.
func (PredictionHistoryEntry) TableName() string { return "prediction_history" }

// NewHistoryEntry stamps a fresh audit record from the package clock.
func NewHistoryEntry(farmID string, input FeatureVector, response json.RawMessage, success bool) PredictionHistoryEntry {
	return PredictionHistoryEntry{
		ID:        uuid.NewString(),
		FarmID:    farmID,
		Input:     input,
		Response:  response,
		Success:   success,
		CreatedAt: clock.Now().UTC(),
	}
}

// ErrorDescriptor encodes a failed attempt's error as the response payload.
func ErrorDescriptor(err error) json.RawMessage {
	desc, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return json.RawMessage(`{"error":"unserializable error"}`)
	}
	return desc
}
