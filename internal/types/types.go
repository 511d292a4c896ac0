package types

import "time"

// TitleRequest is the body of POST /api/v1/titles
type TitleRequest struct {
	Content string `json:"content"`
}

// TitleResponse carries a generated (or fallback) title
type TitleResponse struct {
	Title string `json:"title"`
}

// VisitorRequest is the body of POST /api/v1/moderation and POST /api/v1/visitors
type VisitorRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewVisitorMessage is a moderated message about to be recorded
type NewVisitorMessage struct {
	Name      string
	Message   string
	Allowed   bool
	Reason    string
	Sentiment string
}

// VisitorMessage is a recorded visitor log entry.
// Message is empty for rejected entries; only the decision is kept.
type VisitorMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message,omitempty"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
	Sentiment string    `json:"sentiment"`
	CreatedAt time.Time `json:"created_at"`
}

// VisitorListResponse is the body of GET /api/v1/visitors
type VisitorListResponse struct {
	Messages []VisitorMessage `json:"messages"`
	Total    int              `json:"total"`
}

// StoreStats contains visitor log counters
type StoreStats struct {
	MessageCount  int64      `json:"message_count"`
	AllowedCount  int64      `json:"allowed_count"`
	RejectedCount int64      `json:"rejected_count"`
	LastMessage   *time.Time `json:"last_message,omitempty"`
}

// HealthResponse is the body of GET /api/v1/health
type HealthResponse struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	Model         string     `json:"model,omitempty"`
	LLMConfigured bool       `json:"llm_configured"`
	MessageCount  int64      `json:"message_count"`
	LastMessage   *time.Time `json:"last_message,omitempty"`
}
