package models

type EventType string

const (
	EventProgress EventType = "progress"
	EventPartial  EventType = "partial"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// GenerationEvent is one frame of the course-generation stream. It exists
// only on the wire; nothing persists it.
type GenerationEvent struct {
	Type     EventType   `json:"type"`
	Step     string      `json:"step,omitempty"`
	Progress int         `json:"progress,omitempty"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// CompleteData is the payload of the terminal complete event.
type CompleteData struct {
	CourseID      string `json:"courseId"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
}
