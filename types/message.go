// Package types provides core types shared across the roundtable framework.
// This package has ZERO dependencies on other roundtable packages to avoid
// circular imports.
package types

// Role represents the role of a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message represents a single conversation message. Messages are ordered by
// insertion within a session; once appended, their order never changes.
//
// Content may be empty: an empty-content user message is the "continue
// without new input" signal used to prime a fresh conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Name optionally attributes the message to a named participant,
	// which matters once several agents share one conversation.
	Name string `json:"name,omitempty"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// WithName attributes the message to a named participant.
func (m Message) WithName(name string) Message {
	m.Name = name
	return m
}

// Fragment is one incremental piece of a participant's output, delivered to
// the caller as soon as it is produced. Role is set on the first fragment of
// each participant turn and omitted afterwards.
type Fragment struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}
