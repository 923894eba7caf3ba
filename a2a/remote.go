package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/participant"
	"github.com/roundtable-ai/roundtable/types"
)

// messagesPath is the turn endpoint relative to the remote agent's URL.
const messagesPath = "/a2a/messages"

// RemoteConfig configures a remote participant proxy.
type RemoteConfig struct {
	// Name overrides the participant identity; when empty, the resolved
	// card's name is used, falling back to the endpoint host.
	Name string `yaml:"name"`
	// Resolver configures capability discovery for the endpoint.
	Resolver ResolverConfig `yaml:"resolver"`
	// Timeout is the fixed budget for one forwarded turn.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultRemoteConfig returns the shipped defaults: a 60 second turn budget
// against the well-known card path.
func DefaultRemoteConfig(baseURL string) RemoteConfig {
	return RemoteConfig{
		Resolver: DefaultResolverConfig(baseURL),
		Timeout:  60 * time.Second,
	}
}

// RemoteParticipant presents a remote agent as a local Participant. The
// proxy holds no conversation state of its own: the transcript lives in the
// local thread store, everything else with the remote agent. Send is
// forwarded as a network call under a fixed budget; a blown budget surfaces
// as UPSTREAM_TIMEOUT, a transport failure as UPSTREAM_UNAVAILABLE, and a
// failed capability resolution as AGENT_UNREACHABLE.
type RemoteParticipant struct {
	config     RemoteConfig
	resolver   *Resolver
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRemoteParticipant creates a proxy for the remote endpoint described by
// config.
func NewRemoteParticipant(config RemoteConfig, logger *zap.Logger) *RemoteParticipant {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := &http.Client{Timeout: config.Timeout}
	return &RemoteParticipant{
		config:     config,
		resolver:   NewResolver(config.Resolver, httpClient, logger),
		httpClient: httpClient,
		logger: logger.With(
			zap.String("component", "remote_participant"),
			zap.String("endpoint", config.Resolver.BaseURL),
		),
	}
}

// Name returns the configured identity, falling back to the endpoint host.
// Identity must be stable before the card is resolved, so the resolved
// card's name is only used when explicitly configured names are absent and
// resolution has already happened.
func (p *RemoteParticipant) Name() string {
	if p.config.Name != "" {
		return p.config.Name
	}
	p.resolver.mu.Lock()
	card := p.resolver.card
	p.resolver.mu.Unlock()
	if card != nil && card.Name != "" {
		return card.Name
	}
	if u, err := url.Parse(p.config.Resolver.BaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return p.config.Resolver.BaseURL
}

// StateKind returns the single-agent state tag; the local transcript of a
// remote conversation is shaped exactly like a local one.
func (p *RemoteParticipant) StateKind() string { return participant.StateKindSingleAgent }

// NewState returns an empty session state.
func (p *RemoteParticipant) NewState() *participant.State {
	return participant.NewState(participant.StateKindSingleAgent)
}

// Card resolves and returns the remote agent's capability descriptor.
func (p *RemoteParticipant) Card(ctx context.Context) (*AgentCard, error) {
	return p.resolver.Resolve(ctx)
}

// Send forwards one turn to the remote agent.
func (p *RemoteParticipant) Send(ctx context.Context, msg types.Message, state *participant.State) (*participant.TurnStream, error) {
	if err := participant.ValidateIncoming(msg); err != nil {
		return nil, err
	}
	if state == nil {
		state = p.NewState()
	}
	if state.Kind != participant.StateKindSingleAgent {
		return nil, types.NewError(types.ErrInvalidState,
			fmt.Sprintf("remote participant cannot resume %q state", state.Kind))
	}

	st := state.Clone()
	stream := participant.NewTurnStream()
	go p.forward(ctx, msg, st, stream)
	return stream, nil
}

func (p *RemoteParticipant) forward(ctx context.Context, msg types.Message, st *participant.State, stream *participant.TurnStream) {
	card, err := p.resolver.Resolve(ctx)
	if err != nil {
		stream.Fail(err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	reply, err := p.post(ctx, card, msg, st)
	if err != nil {
		stream.Fail(err)
		return
	}

	frag := types.Fragment{Role: types.RoleAssistant, Content: reply.Message.Content}
	if err := stream.Push(ctx, frag); err != nil {
		stream.Fail(types.NewError(participant.UpstreamCode(err), "turn cancelled while relaying reply").WithCause(err))
		return
	}

	if msg.Content != "" {
		st.Append(msg)
	}
	st.Append(types.NewAssistantMessage(reply.Message.Content).WithName(p.Name()))
	st.Turns++
	stream.Complete(st)
}

func (p *RemoteParticipant) post(ctx context.Context, card *AgentCard, msg types.Message, st *participant.State) (*TurnResponse, error) {
	turnReq := TurnRequest{
		Message: WireMessage{Role: string(msg.Role), Content: msg.Content, Name: msg.Name},
		Context: toWire(st.Messages),
	}
	body, err := json.Marshal(turnReq)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "serialize turn request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, card.URL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "build turn request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, types.NewError(types.ErrUpstreamUnavailable,
			fmt.Sprintf("remote agent returned status %d: %s", resp.StatusCode, respBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.transportError(ctx, err)
	}

	var turnResp TurnResponse
	if err := json.Unmarshal(respBody, &turnResp); err != nil {
		return nil, types.NewError(types.ErrUpstreamUnavailable, "unparseable remote reply").WithCause(err)
	}
	return &turnResp, nil
}

// transportError distinguishes a blown turn budget from a refused or broken
// connection.
func (p *RemoteParticipant) transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.NewError(types.ErrUpstreamTimeout, "remote turn exceeded its budget").WithCause(err)
	}
	return types.NewError(types.ErrUpstreamUnavailable, "remote agent unreachable").WithCause(err)
}

func toWire(msgs []types.Message) []WireMessage {
	out := make([]WireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = WireMessage{Role: string(m.Role), Content: m.Content, Name: m.Name}
	}
	return out
}

var _ participant.Participant = (*RemoteParticipant)(nil)
