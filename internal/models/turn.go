// ABOUTME: ChatTurn represents a single message in a chat session
// ABOUTME: Roles are restricted to user and assistant
package models

// Role tags who authored a chat turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatTurn is one message of a conversation
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
