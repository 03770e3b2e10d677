package models

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "SENT"
	DeliveryStatusQueued DeliveryStatus = "QUEUED"
	DeliveryStatusFailed DeliveryStatus = "FAILED"
)

// IsKnown reports whether the status is one the device is expected to report
func (s DeliveryStatus) IsKnown() bool {
	switch s {
	case DeliveryStatusSent, DeliveryStatusQueued, DeliveryStatusFailed:
		return true
	}
	return false
}

// OutboundSMS is a single line headed for the SMS transport
type OutboundSMS struct {
	Destination   string
	Body          string
	CorrelationID uuid.UUID
	EnqueuedAt    time.Time
}

// NewOutboundSMS stamps a message with a fresh correlation id
func NewOutboundSMS(destination, body string) *OutboundSMS {
	return &OutboundSMS{
		Destination:   destination,
		Body:          body,
		CorrelationID: uuid.New(),
		EnqueuedAt:    time.Now(),
	}
}

// InboundSMS is the normalized webhook payload from the SMS transport
type InboundSMS struct {
	From    string `json:"from_number"`
	Content string `json:"content"`
	Event   string `json:"event,omitempty"`
	Secret  string `json:"secret,omitempty"`
}

// StatusReport is a delivery status callback from the pull device
type StatusReport struct {
	CorrelationID string         `json:"uuid"`
	Status        DeliveryStatus `json:"status"`
	ReceivedAt    time.Time      `json:"-"`
}

// ChatMessage is an inbound chat platform event reduced to what the relay needs
type ChatMessage struct {
	ID          string
	AuthorID    string
	AuthorName  string
	ChannelID   string
	ChannelName string
	GuildID     string
	Direct      bool
	Content     string
}

// QueueTask is one outbound SMS as handed to the pull device
type QueueTask struct {
	To      string `json:"to"`
	Message string `json:"message"`
	UUID    string `json:"uuid"`
}

// QueueFetchResponse is the body returned to the pull device's fetch call
type QueueFetchResponse struct {
	Payload QueueFetchPayload `json:"payload"`
}

type QueueFetchPayload struct {
	Success bool        `json:"success"`
	Task    []QueueTask `json:"task"`
}

// NewQueueFetchResponse converts a drained batch, keeping its order. An
// empty batch encodes as an empty task list, never null.
func NewQueueFetchResponse(batch []*OutboundSMS) QueueFetchResponse {
	tasks := make([]QueueTask, 0, len(batch))
	for _, msg := range batch {
		tasks = append(tasks, QueueTask{
			To:      msg.Destination,
			Message: msg.Body,
			UUID:    msg.CorrelationID.String(),
		})
	}
	return QueueFetchResponse{Payload: QueueFetchPayload{Success: true, Task: tasks}}
}
