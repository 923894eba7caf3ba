package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/llm"
	"github.com/roundtable-ai/roundtable/participant"
	"github.com/roundtable-ai/roundtable/thread"
	"github.com/roundtable-ai/roundtable/types"
)

func newChatExecutor(t *testing.T, store thread.Store, replies ...string) *Executor {
	t.Helper()
	provider := llm.NewScriptedProvider("scripted", replies)
	p := participant.NewChatParticipant(participant.DefaultChatConfig("assistant"), provider, zap.NewNop())
	return New(DefaultConfig(), store, p, nil, zap.NewNop())
}

func TestExecuteGeneratesConversationID(t *testing.T) {
	e := newChatExecutor(t, thread.NewMemoryStore(), "hello")

	turn, err := e.Execute(context.Background(), Request{Message: types.NewUserMessage("hi")})
	require.NoError(t, err)
	_, parseErr := uuid.Parse(turn.ConversationID)
	assert.NoError(t, parseErr)

	_, err = turn.Stream.Drain()
	require.NoError(t, err)
}

func TestTurnPersistsAndResumes(t *testing.T) {
	store := thread.NewMemoryStore()
	e := newChatExecutor(t, store, "pong", "pong again")

	first, err := e.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        types.NewUserMessage("ping"),
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", first.ConversationID)
	assert.Equal(t, "pong", first.Reply)
	assert.Equal(t, 1, first.Turns)

	second, err := e.Run(context.Background(), Request{
		ConversationID: "conv-1",
		Message:        types.NewUserMessage("ping again"),
	})
	require.NoError(t, err)
	assert.Equal(t, "pong again", second.Reply)
	assert.Equal(t, 2, second.Turns, "second turn resumes the saved state")

	blob, err := store.Load(context.Background(), thread.Key{ParticipantID: "assistant", ConversationID: "conv-1"})
	require.NoError(t, err)
	st, err := participant.UnmarshalState(blob, participant.StateKindSingleAgent)
	require.NoError(t, err)
	assert.Len(t, st.Messages, 4)
	assert.Equal(t, 2, st.Turns)
}

func TestPrimingTurn(t *testing.T) {
	store := thread.NewMemoryStore()
	e := newChatExecutor(t, store, "unused")

	res, err := e.Run(context.Background(), Request{ConversationID: "fresh"})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Hi, I'm assistant!")

	blob, err := store.Load(context.Background(), thread.Key{ParticipantID: "assistant", ConversationID: "fresh"})
	require.NoError(t, err)
	st, err := participant.UnmarshalState(blob, participant.StateKindSingleAgent)
	require.NoError(t, err)
	assert.Equal(t, 0, st.UserMessageCount(), "priming stores no user-authored message")
}

// flakyParticipant streams a few fragments and then fails the turn.
type flakyParticipant struct {
	fragments int
}

func (p *flakyParticipant) Name() string      { return "flaky" }
func (p *flakyParticipant) StateKind() string { return participant.StateKindSingleAgent }
func (p *flakyParticipant) NewState() *participant.State {
	return participant.NewState(participant.StateKindSingleAgent)
}

func (p *flakyParticipant) Send(ctx context.Context, msg types.Message, state *participant.State) (*participant.TurnStream, error) {
	stream := participant.NewTurnStream()
	go func() {
		for i := 0; i < p.fragments; i++ {
			if err := stream.Push(ctx, types.Fragment{Role: types.RoleAssistant, Content: "partial "}); err != nil {
				stream.Fail(err)
				return
			}
		}
		stream.Fail(types.NewError(types.ErrUpstreamUnavailable, "backend dropped the connection"))
	}()
	return stream, nil
}

func TestFailedTurnSkipsSaveAndEmitsDiagnostic(t *testing.T) {
	store := thread.NewMemoryStore()
	e := New(DefaultConfig(), store, &flakyParticipant{fragments: 3}, nil, zap.NewNop())

	turn, err := e.Execute(context.Background(), Request{
		ConversationID: "doomed",
		Message:        types.NewUserMessage("hi"),
	})
	require.NoError(t, err)

	var contents []string
	for frag := range turn.Stream.Fragments() {
		contents = append(contents, frag.Content)
	}
	require.Error(t, turn.Stream.Err())
	assert.Equal(t, types.ErrUpstreamUnavailable, types.GetErrorCode(turn.Stream.Err()))

	require.Len(t, contents, 4, "three partial fragments plus the diagnostic")
	assert.True(t, strings.HasPrefix(contents[3], "An error occurred while processing your request:"))

	_, err = store.Load(context.Background(), thread.Key{ParticipantID: "flaky", ConversationID: "doomed"})
	assert.ErrorIs(t, err, thread.ErrNotFound, "a failed turn leaves no state behind")
}

func TestCorruptStateFailsTurn(t *testing.T) {
	store := thread.NewMemoryStore()
	key := thread.Key{ParticipantID: "assistant", ConversationID: "mangled"}
	require.NoError(t, store.Save(context.Background(), key, []byte("not json")))

	e := newChatExecutor(t, store, "unused")
	_, err := e.Run(context.Background(), Request{
		ConversationID: "mangled",
		Message:        types.NewUserMessage("hi"),
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidState, types.GetErrorCode(err))
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Save(ctx context.Context, key thread.Key, blob []byte) error {
	return types.NewError(types.ErrStoreFailure, "save thread: disk on fire")
}

func (brokenStore) Load(ctx context.Context, key thread.Key) ([]byte, error) {
	return nil, types.NewError(types.ErrStoreFailure, "load thread: disk on fire")
}

func (brokenStore) Ping(ctx context.Context) error { return errors.New("disk on fire") }
func (brokenStore) Close() error                   { return nil }

func TestStoreFailureSurfaces(t *testing.T) {
	e := newChatExecutor(t, brokenStore{}, "unused")

	_, err := e.Run(context.Background(), Request{
		ConversationID: "conv",
		Message:        types.NewUserMessage("hi"),
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrStoreFailure, types.GetErrorCode(err))
}

func TestSameConversationSerializes(t *testing.T) {
	store := thread.NewMemoryStore()
	e := newChatExecutor(t, store, "one", "two", "three", "four")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Run(context.Background(), Request{
				ConversationID: "busy",
				Message:        types.NewUserMessage("go"),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	blob, err := store.Load(context.Background(), thread.Key{ParticipantID: "assistant", ConversationID: "busy"})
	require.NoError(t, err)
	st, err := participant.UnmarshalState(blob, participant.StateKindSingleAgent)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Turns, "every turn sees its predecessor's save")
	assert.Len(t, st.Messages, 8)
}

func TestDistinctConversationsIsolated(t *testing.T) {
	store := thread.NewMemoryStore()
	e := newChatExecutor(t, store, "r1", "r2")

	_, err := e.Run(context.Background(), Request{ConversationID: "a", Message: types.NewUserMessage("x")})
	require.NoError(t, err)
	_, err = e.Run(context.Background(), Request{ConversationID: "b", Message: types.NewUserMessage("y")})
	require.NoError(t, err)

	for _, conv := range []string{"a", "b"} {
		blob, err := store.Load(context.Background(), thread.Key{ParticipantID: "assistant", ConversationID: conv})
		require.NoError(t, err)
		st, err := participant.UnmarshalState(blob, participant.StateKindSingleAgent)
		require.NoError(t, err)
		assert.Equal(t, 1, st.Turns)
	}
}

func TestExecuteRejectsBadRole(t *testing.T) {
	e := newChatExecutor(t, thread.NewMemoryStore(), "unused")
	_, err := e.Execute(context.Background(), Request{
		Message: types.Message{Role: "moderator", Content: "hi"},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestCancelledCallerAbandonsTurn(t *testing.T) {
	store := thread.NewMemoryStore()
	e := newChatExecutor(t, store, strings.Repeat("long reply ", 50))

	ctx, cancel := context.WithCancel(context.Background())
	turn, err := e.Execute(ctx, Request{
		ConversationID: "gone",
		Message:        types.NewUserMessage("hi"),
	})
	require.NoError(t, err)

	// Take one fragment, then walk away.
	<-turn.Stream.Fragments()
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-turn.Stream.Fragments():
			if !ok {
				require.Error(t, turn.Stream.Err())
				_, err := store.Load(context.Background(), thread.Key{ParticipantID: "assistant", ConversationID: "gone"})
				assert.ErrorIs(t, err, thread.ErrNotFound)
				return
			}
		case <-deadline:
			t.Fatal("stream did not terminate after cancellation")
		}
	}
}
