// Package groupchat orchestrates turns among a fixed list of participants.
// The orchestrator is itself a participant, so callers cannot tell a plain
// agent from an orchestrated group, and groups nest structurally.
package groupchat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/participant"
	"github.com/roundtable-ai/roundtable/types"
)

// Status models the orchestrator run state machine.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusAborted    Status = "aborted"
)

// Config configures a round-robin group chat.
type Config struct {
	// Name is the group's participant identity.
	Name string `yaml:"name"`
	// MaxIterations bounds the run: one iteration is a full pass giving
	// each participant one turn, so the total number of individual turns
	// is exactly MaxIterations multiplied by the participant count.
	// Exhausting the bound is the expected way a run ends, not an error.
	MaxIterations int `yaml:"max_iterations"`
}

// DefaultConfig returns the shipped defaults.
func DefaultConfig(name string) Config {
	return Config{Name: name, MaxIterations: 3}
}

// RoundRobin sequences turns over a fixed, ordered participant list. The
// whole orchestrated session stores one shared state blob under the group's
// own identity; member participants are fed the shared transcript and keep
// no independent stored state.
type RoundRobin struct {
	config       Config
	participants []participant.Participant
	logger       *zap.Logger
}

// New creates a round-robin orchestrator over the given participants.
func New(config Config, participants []participant.Participant, logger *zap.Logger) (*RoundRobin, error) {
	if len(participants) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "group chat needs at least one participant")
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultConfig(config.Name).MaxIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoundRobin{
		config:       config,
		participants: participants,
		logger:       logger.With(zap.String("component", "round_robin"), zap.String("group", config.Name)),
	}, nil
}

// Name returns the group's identity.
func (g *RoundRobin) Name() string { return g.config.Name }

// StateKind returns the group-chat state tag.
func (g *RoundRobin) StateKind() string { return participant.StateKindGroupChat }

// NewState returns an empty group session state.
func (g *RoundRobin) NewState() *participant.State {
	return participant.NewState(participant.StateKindGroupChat)
}

// Send runs one orchestrated turn: up to MaxIterations full passes over the
// participant list, merging every member's fragments into a single stream in
// production order. A member failure aborts the whole run; there is no
// skip-and-continue.
func (g *RoundRobin) Send(ctx context.Context, msg types.Message, state *participant.State) (*participant.TurnStream, error) {
	if err := participant.ValidateIncoming(msg); err != nil {
		return nil, err
	}
	if state == nil {
		state = g.NewState()
	}
	if state.Kind != participant.StateKindGroupChat {
		return nil, types.NewError(types.ErrInvalidState,
			fmt.Sprintf("group chat cannot resume %q state", state.Kind))
	}

	st := state.Clone()
	stream := participant.NewTurnStream()
	go g.run(ctx, msg, st, stream)
	return stream, nil
}

func (g *RoundRobin) run(ctx context.Context, msg types.Message, st *participant.State, stream *participant.TurnStream) {
	cur := msg
	// mirrored tracks whether cur also sits at the tail of the shared
	// transcript. An empty priming message is never appended.
	mirrored := cur.Content != ""
	if mirrored {
		st.Append(cur)
	}

	g.logger.Debug("group chat started",
		zap.String("status", string(StatusRunning)),
		zap.Int("participants", len(g.participants)),
		zap.Int("max_iterations", g.config.MaxIterations),
	)

	for iteration := 0; iteration < g.config.MaxIterations; iteration++ {
		for index, p := range g.participants {
			seed := st.Messages
			if mirrored {
				seed = seed[:len(seed)-1]
			}
			reply, err := g.takeTurn(ctx, p, cur, seed, stream)
			if err != nil {
				g.logger.Warn("group chat aborted",
					zap.String("status", string(StatusAborted)),
					zap.String("participant", p.Name()),
					zap.Int("iteration", iteration),
					zap.Int("index", index),
					zap.Error(err),
				)
				stream.Fail(fmt.Errorf("participant %s: %w", p.Name(), err))
				return
			}

			st.Append(types.NewAssistantMessage(reply).WithName(p.Name()))
			st.Turns++
			// The next participant sees the previous reply as its input.
			cur = types.NewUserMessage(reply).WithName(p.Name())
			mirrored = true
		}
	}

	g.logger.Debug("group chat completed",
		zap.String("status", string(StatusCompleted)),
		zap.Int("turns", st.Turns),
	)
	stream.Complete(st)
}

// takeTurn runs a single member turn, relaying its fragments onto the merged
// stream, and returns the member's full reply text.
func (g *RoundRobin) takeTurn(
	ctx context.Context,
	p participant.Participant,
	cur types.Message,
	seed []types.Message,
	stream *participant.TurnStream,
) (string, error) {
	// Members see the shared transcript up to the current message, which
	// travels separately as the turn input.
	inner := p.NewState()
	inner.Append(seed...)

	ts, err := p.Send(ctx, cur, inner)
	if err != nil {
		return "", err
	}

	var reply []byte
	for frag := range ts.Fragments() {
		if err := stream.Push(ctx, frag); err != nil {
			return "", err
		}
		reply = append(reply, frag.Content...)
	}
	if err := ts.Err(); err != nil {
		return "", err
	}
	return string(reply), nil
}

var _ participant.Participant = (*RoundRobin)(nil)
