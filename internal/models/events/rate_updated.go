package events

import "time"

type RateUpdated struct {
	EventID    string    `json:"event_id"`
	OldRate    string    `json:"old_rate"`
	NewRate    string    `json:"new_rate"`
	OccurredAt time.Time `json:"occurred_at"`
}
