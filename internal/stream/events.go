// Package stream defines the ordered event vocabulary of one generation
// session. Events are append-only and totally ordered: the server assigns
// each a monotonically increasing index that clients use for resumption.
package stream

type EventName string

const (
	EventProgress       EventName = "progress"
	EventClassification EventName = "classification"
	EventHero           EventName = "hero"
	EventRetrieval      EventName = "retrieval"
	EventGeneration     EventName = "generation"
	EventLayout         EventName = "layout"
	EventBlock          EventName = "block"
	EventBlockErrors    EventName = "block-errors"
	EventImageReady     EventName = "image-ready"
	EventComplete       EventName = "complete"
	EventError          EventName = "error"
)

// Event is one entry of a session's event stream. Index is server-assigned
// and strictly increasing within the session.
type Event struct {
	Name  EventName   `json:"event"`
	Index int         `json:"event_index"`
	Data  interface{} `json:"data,omitempty"`
}

// ProgressPayload announces that a stage is starting.
type ProgressPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

// BlockPayload carries one rendered block. BlockIndex increases
// monotonically across the session's block events and, with Name, forms the
// client's dedup key.
type BlockPayload struct {
	Name       string `json:"name"`
	BlockIndex int    `json:"block_index"`
	HTML       string `json:"html"`
	Error      bool   `json:"error,omitempty"`
}

// ImagePayload carries one generated image. ID is stable for the session
// so a resumed stream re-delivers the same key.
type ImagePayload struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Hint string `json:"hint,omitempty"`
}

// ErrorPayload terminates a session.
type ErrorPayload struct {
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}
