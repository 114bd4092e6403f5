package project

import "time"

// Message is one entry of a project's chat transcript. Sequence numbers are
// strictly increasing per project and allocated by the store.
type Message struct {
	ID             int64
	ProjectID      string
	SequenceNumber int64
	Role           string // "user" or "assistant"
	Content        string
	CreatedAt      time.Time
}

// AppendMessageRequest is the body for POST /v1/projects/{id}/messages.
type AppendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageResponse is the JSON shape for transcript entries.
type MessageResponse struct {
	SequenceNumber int64  `json:"sequence_number"`
	Role           string `json:"role"`
	Content        string `json:"content"`
}

// ToMessageResponse converts a Message to its JSON shape.
func ToMessageResponse(m *Message) *MessageResponse {
	return &MessageResponse{
		SequenceNumber: m.SequenceNumber,
		Role:           m.Role,
		Content:        m.Content,
	}
}
