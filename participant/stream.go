package participant

import (
	"context"

	"github.com/roundtable-ai/roundtable/types"
)

// TurnStream is the lazy, ordered, finite sequence of fragments produced
// during one turn. Fragments are delivered strictly in production order over
// an unbuffered channel: the producer cannot move on to the next fragment
// until the consumer has taken the current one, which is the backpressure
// point the executor relies on.
//
// After Fragments() is drained the terminal outcome is available: State()
// holds the updated session state on clean completion, Err() the failure
// otherwise. A stream is not replayable; restarting means re-invoking the
// turn.
type TurnStream struct {
	fragments chan types.Fragment

	// terminal outcome, written exactly once before fragments is closed,
	// read only after it is drained.
	final *State
	err   error
}

// NewTurnStream creates an open stream. The producer must finish it with
// exactly one Complete or Fail call.
func NewTurnStream() *TurnStream {
	return &TurnStream{fragments: make(chan types.Fragment)}
}

// Fragments returns the ordered fragment channel. It is closed when the
// turn ends, cleanly or not.
func (t *TurnStream) Fragments() <-chan types.Fragment {
	return t.fragments
}

// Err returns the terminal failure, or nil for a clean completion. Only
// valid after Fragments() has been drained.
func (t *TurnStream) Err() error {
	return t.err
}

// State returns the updated session state of a cleanly completed turn, nil
// otherwise. Only valid after Fragments() has been drained.
func (t *TurnStream) State() *State {
	return t.final
}

// Completed reports whether the turn ended cleanly. Only valid after
// Fragments() has been drained.
func (t *TurnStream) Completed() bool {
	return t.err == nil
}

// Push delivers one fragment, blocking until the consumer takes it or the
// context is cancelled.
func (t *TurnStream) Push(ctx context.Context, frag types.Fragment) error {
	select {
	case t.fragments <- frag:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Complete finishes the stream cleanly with the updated state.
func (t *TurnStream) Complete(final *State) {
	t.final = final
	close(t.fragments)
}

// Fail finishes the stream with a terminal error. No state is attached:
// a failed turn must not look resumable.
func (t *TurnStream) Fail(err error) {
	t.err = err
	close(t.fragments)
}

// Drain consumes the remaining fragments, concatenating their content, and
// returns the assembled text together with the terminal error. Used by the
// non-streaming call path and by orchestrators that forward whole replies.
func (t *TurnStream) Drain() (string, error) {
	var out []byte
	for frag := range t.fragments {
		out = append(out, frag.Content...)
	}
	return string(out), t.err
}
