// Package api defines the HTTP wire types of the conversation service.
package api

// MessagePayload is one message on the wire.
type MessagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// TurnRequest asks for one turn. An empty ConversationID starts a new
// conversation; empty Messages prime it with the participant's greeting.
// When several messages are sent, the last one is the turn's input; the
// durable transcript lives server side.
type TurnRequest struct {
	ConversationID string           `json:"conversation_id,omitempty"`
	Messages       []MessagePayload `json:"messages"`
}

// TurnResponse is the assembled outcome of a non-streaming turn.
type TurnResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	Turns          int    `json:"turns"`
	Status         string `json:"status"`
}

// StreamDelta is the incremental payload of one SSE chunk. Role is set on
// the first chunk of a speaker's reply.
type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// StreamChunk is one SSE data event.
type StreamChunk struct {
	ConversationID string      `json:"conversation_id"`
	Delta          StreamDelta `json:"delta"`
}
