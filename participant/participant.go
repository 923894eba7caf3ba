// Package participant defines the uniform contract over conversational
// agents. A Participant consumes one conversation turn and produces a
// streamed reply, regardless of whether it runs in-process, wraps a remote
// agent, or orchestrates a whole group. Orchestrators implement the same
// interface as leaf agents, so composition is structural.
package participant

import (
	"context"
	"errors"

	"github.com/roundtable-ai/roundtable/types"
)

// Participant is any entity capable of taking a conversation turn.
//
// Send must never mutate the caller-held state; all mutation happens on the
// cloned state delivered through the returned TurnStream once the turn
// completes. An empty-content message is the "continue without new input"
// signal: on a fresh state it produces the participant's greeting.
type Participant interface {
	// Name returns the participant's stable identity. It is one half of the
	// session key, so it must not change between process restarts.
	Name() string

	// StateKind returns the tagged kind of session state this participant
	// produces and accepts.
	StateKind() string

	// NewState returns an empty session state for a fresh conversation.
	NewState() *State

	// Send runs one turn against the given state and returns the reply as
	// a stream of fragments. A nil state is treated as a fresh session.
	// The message role must be non-empty; content may be empty.
	Send(ctx context.Context, msg types.Message, state *State) (*TurnStream, error)
}

// ValidateIncoming checks the invariants every Send implementation shares:
// a non-empty, known role. Content is deliberately allowed to be empty.
func ValidateIncoming(msg types.Message) error {
	if msg.Role == "" {
		return types.NewError(types.ErrInvalidRequest, "message role must not be empty")
	}
	if !msg.Role.Valid() {
		return types.NewError(types.ErrInvalidRequest, "unknown message role: "+string(msg.Role))
	}
	return nil
}

// UpstreamCode maps a failed remote or provider call onto the matching
// error code: a blown deadline is UPSTREAM_TIMEOUT, anything else at the
// transport level is UPSTREAM_UNAVAILABLE.
func UpstreamCode(err error) types.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ErrUpstreamTimeout
	}
	return types.ErrUpstreamUnavailable
}
