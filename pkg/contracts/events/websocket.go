// Package events contains the WebSocket message contracts of the dashboard.
package events

import (
	"time"

	"abpulse/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client -> server
	MessageTypeFilter    MessageType = "filter"
	MessageTypeHeartbeat MessageType = "heartbeat"

	// Server -> client
	MessageTypeConnect         MessageType = "connect"
	MessageTypeSummary         MessageType = "summary"
	MessageTypeDatasetReloaded MessageType = "dataset:reloaded"
	MessageTypeError           MessageType = "error"
)

// Message is the envelope of every frame in both directions
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// FilterRequest is the payload of a filter message. Dates are YYYY-MM-DD.
type FilterRequest struct {
	Platform string `json:"platform"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// SummaryPayload answers a filter message
type SummaryPayload struct {
	Summary  domain.Summary  `json:"summary"`
	Insights domain.Insights `json:"insights"`
}

// ErrorPayload reports a rejected client message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReloadPayload announces a new dataset snapshot
type ReloadPayload struct {
	Fingerprint string `json:"fingerprint"`
	Records     int    `json:"records"`
}
