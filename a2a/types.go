// Package a2a implements the agent-to-agent protocol surface: capability
// discovery through agent cards and the remote participant proxy that
// presents a remote agent behind the local Participant interface.
package a2a

import "errors"

// WellKnownCardPath is the default location of an agent's capability
// descriptor relative to its base URL.
const WellKnownCardPath = "/.well-known/agent-card.json"

// Agent card validation errors.
var (
	// ErrMissingName indicates the agent card is missing a name.
	ErrMissingName = errors.New("agent card: missing name")
	// ErrMissingURL indicates the agent card is missing a URL.
	ErrMissingURL = errors.New("agent card: missing url")
	// ErrMissingVersion indicates the agent card is missing a version.
	ErrMissingVersion = errors.New("agent card: missing version")
)

// Capabilities advertises the interaction modes an agent supports.
type Capabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// Skill describes one capability an agent advertises for discovery.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// AgentCard is the capability descriptor an agent serves for discovery.
// The wire shape matches what remote agents publish at their well-known
// path, so cards we serve and cards we consume are interchangeable and
// orchestrators compose recursively.
type AgentCard struct {
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	URL                string       `json:"url"`
	Version            string       `json:"version"`
	ProtocolVersion    string       `json:"protocolVersion,omitempty"`
	DefaultInputModes  []string     `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string     `json:"defaultOutputModes,omitempty"`
	Capabilities       Capabilities `json:"capabilities"`
	Skills             []Skill      `json:"skills,omitempty"`
}

// Validate checks the card's required fields.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return ErrMissingName
	}
	if c.URL == "" {
		return ErrMissingURL
	}
	if c.Version == "" {
		return ErrMissingVersion
	}
	return nil
}

// TurnRequest is the wire form of one forwarded turn. Context carries the
// shared transcript so the remote agent can reply stateless, or ignore it
// and resume from its own store keyed by the conversation identity.
type TurnRequest struct {
	ConversationID string        `json:"conversation_id,omitempty"`
	Message        WireMessage   `json:"message"`
	Context        []WireMessage `json:"context,omitempty"`
}

// WireMessage is the protocol form of a conversation message.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// TurnResponse is the remote agent's full reply to a forwarded turn.
type TurnResponse struct {
	ConversationID string      `json:"conversation_id,omitempty"`
	Message        WireMessage `json:"message"`
}
