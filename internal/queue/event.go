// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer for them.
package queue

// ScreeningQueueName is the durable queue screening events travel on.
const ScreeningQueueName = "screening.scheduled"

// ScreeningScheduledEvent is published whenever a movie night is created or
// rescheduled.  It carries enough for consumers to log or notify without
// querying the primary database.
type ScreeningScheduledEvent struct {
	Action       string `json:"action"` // "created" or "rescheduled"
	ScreeningID  uint64 `json:"screening_id"`
	MovieID      uint64 `json:"movie_id"`
	MovieTitle   string `json:"movie_title"`
	CreatorID    uint64 `json:"creator_id"`
	CreatorEmail string `json:"creator_email"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}
