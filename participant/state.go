package participant

import (
	"encoding/json"
	"fmt"

	"github.com/roundtable-ai/roundtable/types"
)

// Known state kinds. Each participant type tags the state it produces so a
// blob written by one topology is never silently fed into another.
const (
	StateKindSingleAgent = "single-agent"
	StateKindGroupChat   = "group-chat"
)

// StateVersion is the schema version written into every serialized state.
// Loading a blob with any other version fails with INVALID_STATE.
const StateVersion = 1

// State is everything a participant needs to resume a conversation: the
// ordered transcript plus participant-private bookkeeping. It is replaced
// wholesale at the end of every successfully completed turn, never patched.
type State struct {
	Kind     string          `json:"kind"`
	Version  int             `json:"version"`
	Messages []types.Message `json:"messages"`
	// Turns counts completed turns. Private bookkeeping; callers should
	// treat it as opaque.
	Turns int `json:"turns"`
}

// NewState returns an empty state tagged with the given kind.
func NewState(kind string) *State {
	return &State{Kind: kind, Version: StateVersion}
}

// Clone returns a deep copy. Send implementations clone the caller's state
// before touching it so the caller never observes partial mutation.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{
		Kind:    s.Kind,
		Version: s.Version,
		Turns:   s.Turns,
	}
	if s.Messages != nil {
		out.Messages = make([]types.Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

// Append adds messages to the transcript in insertion order.
func (s *State) Append(msgs ...types.Message) {
	s.Messages = append(s.Messages, msgs...)
}

// LastContent returns the content of the most recent message, or "" for an
// empty transcript.
func (s *State) LastContent() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Content
}

// UserMessageCount returns the number of user-authored messages.
func (s *State) UserMessageCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == types.RoleUser {
			n++
		}
	}
	return n
}

// MarshalState serializes a state into its opaque stored form.
func MarshalState(s *State) ([]byte, error) {
	if s == nil {
		return nil, types.NewError(types.ErrInvalidState, "cannot marshal nil state")
	}
	if s.Kind == "" {
		return nil, types.NewError(types.ErrInvalidState, "state kind must not be empty")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidState, "marshal state").WithCause(err)
	}
	return data, nil
}

// UnmarshalState parses a stored blob and validates its tag. wantKind is the
// kind the loading participant expects; a mismatch, an unknown version, or a
// corrupt blob all fail with INVALID_STATE.
func UnmarshalState(data []byte, wantKind string) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, types.NewError(types.ErrInvalidState, "corrupt state blob").WithCause(err)
	}
	if s.Version != StateVersion {
		return nil, types.NewError(types.ErrInvalidState,
			fmt.Sprintf("unsupported state version %d, want %d", s.Version, StateVersion))
	}
	if s.Kind != wantKind {
		return nil, types.NewError(types.ErrInvalidState,
			fmt.Sprintf("state kind %q does not match expected %q", s.Kind, wantKind))
	}
	return &s, nil
}
