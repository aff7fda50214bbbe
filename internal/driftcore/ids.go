package driftcore

import "github.com/google/uuid"

// NewEventID returns a new opaque, time-ordered identifier for a Drift Event.
// UUIDv7 embeds a millisecond timestamp in its high bits, so lexicographic
// and chronological order coincide -- the property the store and the drift
// engine rely on when breaking severity ties by ascending event id, and
// when callers sort events by recency without a separate column.
func NewEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the system clock/random source is broken;
		// fall back to a random v4 rather than panic mid-scan.
		return uuid.New().String()
	}
	return id.String()
}

// NewScanID returns a new opaque identifier for a Scan Record.
func NewScanID() string {
	return NewEventID()
}
