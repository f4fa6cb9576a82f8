package models

// Chat roles accepted by the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of a transcript. Timestamp is epoch milliseconds.
type ChatMessage struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp int64             `json:"timestamp"`
	Query     string            `json:"query,omitempty"`
	Articles  []AnalyzedArticle `json:"articles,omitempty"`
}

// ValidRole reports whether role is one the transcript accepts.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
