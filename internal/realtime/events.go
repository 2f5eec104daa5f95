package realtime

import "illyrian_project/internal/domain"

const (
	// server -> client
	EventDocument  = "document"
	EventTick      = "tick"
	EventCompleted = "completed"
	EventError     = "error"
	EventPong      = "pong"

	// client -> server
	MsgPing    = "ping"
	MsgRefresh = "refresh"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type CompletedPayload struct {
	Lane   domain.Lane   `json:"lane"`
	Status domain.Status `json:"status"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type clientMessage struct {
	Type string `json:"type"`
}
