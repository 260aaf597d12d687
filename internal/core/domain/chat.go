package domain

import "time"

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatTurn is one prior turn of the conversation, supplied by the caller.
// The pipeline itself holds no conversation state.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// SourceRef is one ranked source returned to the caller.
type SourceRef struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	DocType     string  `json:"doc_type"`
	Score       float64 `json:"score"`
	MatchReason string  `json:"match_reason"`
}

// ChatResult is the full outcome of one handled message.
type ChatResult struct {
	AnswerText     string              `json:"answer_text"`
	Sources        []SourceRef         `json:"sources"`
	Classification QueryClassification `json:"classification"`
	Metadata       map[string]any      `json:"metadata,omitempty"`
}

// ClassificationEvent is the fire-and-forget analytics record published
// after each handled request.
type ClassificationEvent struct {
	RequestID      string         `json:"request_id"`
	Intent         IntentType     `json:"intent"`
	Confidence     float64        `json:"confidence"`
	SourceCount    int            `json:"source_count"`
	StrategyCounts map[string]int `json:"strategy_counts,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
