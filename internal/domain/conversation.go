package domain

import "time"

const (
	// AnonymousUserID keys conversations for callers that send no userId.
	AnonymousUserID = "anonymous_user"
	// BotUser tags replies in the live message log.
	BotUser = "Bot"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleModel is the chat API name for assistant turns.
	RoleModel Role = "model"
)

// Turn is a single persisted conversation entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LogEntry is one append-only message shown in the live chat view.
type LogEntry struct {
	Text      string    `json:"text"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}
