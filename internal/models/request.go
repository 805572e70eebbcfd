package models

// Chat message roles accepted from callers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message
type Message struct {
	Role    string `json:"role" binding:"required"` // "system", "user", "assistant"
	Content string `json:"content" binding:"required"`
}

// Request represents an incoming chat request
type Request struct {
	Messages      []Message `json:"messages" binding:"required"`
	SelectedModel string    `json:"selectedModel,omitempty"` // e.g. "gpt-4o-mini"
}

// ErrorResponse is the JSON body returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// LastUserContent returns the content of the newest message, or "" for an
// empty conversation. The gateway classifies topics against this.
func (r *Request) LastUserContent() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}
