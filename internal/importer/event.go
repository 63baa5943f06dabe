package importer

import "catalog-service/internal/models"

// ImportEvent is one entry in the execution event stream. It is a closed set:
// ProgressEvent, SuccessEvent, SkippedEvent, ErrorEvent, CompleteEvent.
// Consumers type-switch on the variant instead of sniffing a type string.
type ImportEvent interface {
	EventType() string
}

// ProgressEvent reports rows processed so far; fired once per row after the
// row's outcome event, regardless of outcome.
type ProgressEvent struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Slug    string `json:"slug"`
}

func (ProgressEvent) EventType() string { return "progress" }

// SuccessEvent reports a written row
type SuccessEvent struct {
	Slug   string `json:"slug"`
	Action string `json:"action"` // "created" or "updated"
}

func (SuccessEvent) EventType() string { return "success" }

// SkippedEvent reports a row that was not written
type SkippedEvent struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

func (SkippedEvent) EventType() string { return "skipped" }

// ErrorEvent reports a row whose execution failed
type ErrorEvent struct {
	Slug    string `json:"slug"`
	Message string `json:"message"`
}

func (ErrorEvent) EventType() string { return "error" }

// CompleteEvent is the terminal event, emitted exactly once per run
type CompleteEvent struct {
	Stats models.ImportStats `json:"stats"`
}

func (CompleteEvent) EventType() string { return "complete" }

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)
