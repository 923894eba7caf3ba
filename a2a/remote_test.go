package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/participant"
	"github.com/roundtable-ai/roundtable/types"
)

// remoteAgent is a minimal in-process A2A endpoint: it serves its card and
// answers every forwarded turn with a canned reply that records how much
// context it was given.
func remoteAgent(t *testing.T, reply func(TurnRequest) string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc(WellKnownCardPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testCard(srv.URL))
	})
	mux.HandleFunc(messagesPath, func(w http.ResponseWriter, r *http.Request) {
		var req TurnRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(TurnResponse{
			ConversationID: req.ConversationID,
			Message:        WireMessage{Role: "assistant", Content: reply(req)},
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteParticipantForwardsTurn(t *testing.T) {
	srv := remoteAgent(t, func(req TurnRequest) string {
		return fmt.Sprintf("saw %q with %d context messages", req.Message.Content, len(req.Context))
	})

	p := NewRemoteParticipant(DefaultRemoteConfig(srv.URL), zap.NewNop())

	st := p.NewState()
	st.Append(types.NewUserMessage("earlier question"))
	st.Append(types.NewAssistantMessage("earlier answer"))

	stream, err := p.Send(context.Background(), types.NewUserMessage("what is the travel policy?"), st)
	require.NoError(t, err)

	text, err := stream.Drain()
	require.NoError(t, err)
	assert.Equal(t, `saw "what is the travel policy?" with 2 context messages`, text)

	after := stream.State()
	require.NotNil(t, after)
	require.Len(t, after.Messages, 4)
	assert.Equal(t, types.RoleUser, after.Messages[2].Role)
	assert.Equal(t, types.RoleAssistant, after.Messages[3].Role)
	assert.Equal(t, 1, after.Turns)

	// The caller's state is untouched; the stream carries the successor.
	assert.Len(t, st.Messages, 2)
}

func TestRemoteParticipantName(t *testing.T) {
	srv := remoteAgent(t, func(TurnRequest) string { return "ok" })

	p := NewRemoteParticipant(DefaultRemoteConfig(srv.URL), zap.NewNop())
	hostOnly := p.Name()
	assert.NotEmpty(t, hostOnly)
	assert.NotEqual(t, "policy-agent", hostOnly, "card name is unknown before resolution")

	_, err := p.Card(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "policy-agent", p.Name())

	cfg := DefaultRemoteConfig(srv.URL)
	cfg.Name = "hr"
	named := NewRemoteParticipant(cfg, zap.NewNop())
	assert.Equal(t, "hr", named.Name())
}

func TestRemoteParticipantTimeout(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc(WellKnownCardPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testCard(srv.URL))
	})
	mux.HandleFunc(messagesPath, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	cfg := DefaultRemoteConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond
	p := NewRemoteParticipant(cfg, zap.NewNop())

	stream, err := p.Send(context.Background(), types.NewUserMessage("slow"), nil)
	require.NoError(t, err)
	stream.Drain()

	require.Error(t, stream.Err())
	assert.Equal(t, types.ErrUpstreamTimeout, types.GetErrorCode(stream.Err()))
	assert.Nil(t, stream.State(), "a failed turn produces no successor state")
}

func TestRemoteParticipantUnavailable(t *testing.T) {
	srv := remoteAgent(t, func(TurnRequest) string { return "ok" })
	p := NewRemoteParticipant(DefaultRemoteConfig(srv.URL), zap.NewNop())

	// Resolve the card while the agent is up, then take it down so only
	// the turn call fails.
	_, err := p.Card(context.Background())
	require.NoError(t, err)
	srv.Close()

	stream, err := p.Send(context.Background(), types.NewUserMessage("anyone there?"), nil)
	require.NoError(t, err)
	stream.Drain()

	require.Error(t, stream.Err())
	assert.Equal(t, types.ErrUpstreamUnavailable, types.GetErrorCode(stream.Err()))
}

func TestRemoteParticipantUnreachableCard(t *testing.T) {
	cfg := DefaultRemoteConfig("http://127.0.0.1:1")
	cfg.Resolver.RetryCount = 0
	cfg.Resolver.RetryDelay = time.Millisecond
	p := NewRemoteParticipant(cfg, zap.NewNop())

	stream, err := p.Send(context.Background(), types.NewUserMessage("hello"), nil)
	require.NoError(t, err)
	stream.Drain()

	require.Error(t, stream.Err())
	assert.Equal(t, types.ErrAgentUnreachable, types.GetErrorCode(stream.Err()))
}

func TestRemoteParticipantRejectsForeignState(t *testing.T) {
	srv := remoteAgent(t, func(TurnRequest) string { return "ok" })
	p := NewRemoteParticipant(DefaultRemoteConfig(srv.URL), zap.NewNop())

	group := participant.NewState(participant.StateKindGroupChat)
	_, err := p.Send(context.Background(), types.NewUserMessage("hi"), group)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidState, types.GetErrorCode(err))
}
