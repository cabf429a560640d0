package message

// Role represents the role of the message sender
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat message as sent on the wire.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// System creates a system message.
func System(content string) Message {
	return NewMessage(RoleSystem, content)
}

// User creates a user message.
func User(content string) Message {
	return NewMessage(RoleUser, content)
}

// Conversation returns the system/user pair a single prompt call sends,
// system first.
func Conversation(systemPrompt, userContent string) []Message {
	return []Message{System(systemPrompt), User(userContent)}
}
