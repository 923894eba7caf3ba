package participant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/llm"
	"github.com/roundtable-ai/roundtable/types"
)

// ChatConfig configures a ChatParticipant.
type ChatConfig struct {
	// Name is the participant's stable identity.
	Name string `yaml:"name"`
	// Model is passed through to the provider.
	Model string `yaml:"model"`
	// SystemPrompt is prepended to every generation request. It is not
	// stored in the session transcript.
	SystemPrompt string `yaml:"system_prompt"`
	// Greeting is produced when a fresh conversation is primed with an
	// empty message, without consulting the provider.
	Greeting string `yaml:"greeting"`
	// Timeout is the budget for one provider call.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultChatConfig returns the shipped defaults.
func DefaultChatConfig(name string) ChatConfig {
	return ChatConfig{
		Name:     name,
		Greeting: fmt.Sprintf("Hi, I'm %s! What would you like to discuss today?", name),
		Timeout:  60 * time.Second,
	}
}

// ChatParticipant is an LLM-backed leaf participant. It owns no transport
// and no storage: the provider generates text, the state carries history.
type ChatParticipant struct {
	config   ChatConfig
	provider llm.Provider
	logger   *zap.Logger
}

// NewChatParticipant creates a participant over the given provider.
func NewChatParticipant(config ChatConfig, provider llm.Provider, logger *zap.Logger) *ChatParticipant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Greeting == "" {
		config.Greeting = DefaultChatConfig(config.Name).Greeting
	}
	return &ChatParticipant{
		config:   config,
		provider: provider,
		logger:   logger.With(zap.String("component", "chat_participant"), zap.String("participant", config.Name)),
	}
}

// Name returns the participant's identity.
func (p *ChatParticipant) Name() string { return p.config.Name }

// StateKind returns the single-agent state tag.
func (p *ChatParticipant) StateKind() string { return StateKindSingleAgent }

// NewState returns an empty single-agent session state.
func (p *ChatParticipant) NewState() *State { return NewState(StateKindSingleAgent) }

// Send runs one turn. The caller-held state is cloned up front; the updated
// clone is only published through the stream once the turn completes.
func (p *ChatParticipant) Send(ctx context.Context, msg types.Message, state *State) (*TurnStream, error) {
	if err := ValidateIncoming(msg); err != nil {
		return nil, err
	}
	if state == nil {
		state = p.NewState()
	}
	if state.Kind != StateKindSingleAgent {
		return nil, types.NewError(types.ErrInvalidState,
			fmt.Sprintf("chat participant cannot resume %q state", state.Kind))
	}

	st := state.Clone()
	stream := NewTurnStream()

	// Priming: an empty message against an untouched conversation yields
	// the greeting without a provider round trip, so the stored state ends
	// up holding the greeting exchange and zero user-authored messages.
	if msg.Content == "" && len(st.Messages) == 0 {
		go p.greet(ctx, st, stream)
		return stream, nil
	}

	go p.generate(ctx, msg, st, stream)
	return stream, nil
}

func (p *ChatParticipant) greet(ctx context.Context, st *State, stream *TurnStream) {
	frag := types.Fragment{Role: types.RoleAssistant, Content: p.config.Greeting}
	if err := stream.Push(ctx, frag); err != nil {
		stream.Fail(types.NewError(UpstreamCode(err), "turn cancelled while greeting").WithCause(err))
		return
	}
	st.Append(types.NewAssistantMessage(p.config.Greeting).WithName(p.config.Name))
	st.Turns++
	stream.Complete(st)
}

func (p *ChatParticipant) generate(ctx context.Context, msg types.Message, st *State, stream *TurnStream) {
	if msg.Content != "" {
		st.Append(msg)
	}

	req := &llm.ChatRequest{
		Model:    p.config.Model,
		Messages: p.requestMessages(st),
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	chunks, err := p.provider.Stream(ctx, req)
	if err != nil {
		stream.Fail(p.upstreamError(err))
		return
	}

	var reply strings.Builder
	first := true
	for chunk := range chunks {
		if chunk.Err != nil {
			stream.Fail(chunk.Err)
			return
		}
		if chunk.Delta == "" {
			continue
		}
		frag := types.Fragment{Content: chunk.Delta}
		if first {
			frag.Role = types.RoleAssistant
			first = false
		}
		if err := stream.Push(ctx, frag); err != nil {
			stream.Fail(p.upstreamError(err))
			return
		}
		reply.WriteString(chunk.Delta)
	}
	if err := ctx.Err(); err != nil {
		stream.Fail(p.upstreamError(err))
		return
	}

	st.Append(types.NewAssistantMessage(reply.String()).WithName(p.config.Name))
	st.Turns++

	p.logger.Debug("turn completed",
		zap.Int("transcript_len", len(st.Messages)),
		zap.Int("turns", st.Turns),
	)
	stream.Complete(st)
}

// requestMessages builds the provider request: the configured system prompt
// followed by the full transcript.
func (p *ChatParticipant) requestMessages(st *State) []types.Message {
	msgs := make([]types.Message, 0, len(st.Messages)+1)
	if p.config.SystemPrompt != "" {
		msgs = append(msgs, types.NewSystemMessage(p.config.SystemPrompt))
	}
	return append(msgs, st.Messages...)
}

func (p *ChatParticipant) upstreamError(err error) error {
	if code := types.GetErrorCode(err); code != "" {
		return err
	}
	code := UpstreamCode(err)
	msg := "text generation backend unreachable"
	if code == types.ErrUpstreamTimeout {
		msg = "text generation exceeded its budget"
	}
	return types.NewError(code, msg).WithCause(err)
}

var _ Participant = (*ChatParticipant)(nil)
