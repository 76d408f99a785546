package models

import (
	"time"

	"github.com/google/uuid"
)

// BroadcastTypeBulk is the only broadcast type: every registrant on one channel.
const BroadcastTypeBulk = "bulk_broadcast"

// BroadcastLog is the immutable summary of one broadcast run.
type BroadcastLog struct {
	ID           uuid.UUID `json:"id"`
	Channel      string    `json:"channel"`
	Type         string    `json:"type"`
	SentAt       time.Time `json:"sent_at"`
	SuccessCount int       `json:"success_count"`
	Attempted    int       `json:"attempted"`
	Skipped      int       `json:"skipped"`
	EventDate    string    `json:"event_date,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}
