package participant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-ai/roundtable/types"
)

func TestTurnStreamOrderAndCompletion(t *testing.T) {
	stream := NewTurnStream()
	final := NewState(StateKindSingleAgent)

	go func() {
		ctx := context.Background()
		_ = stream.Push(ctx, types.Fragment{Role: types.RoleAssistant, Content: "a"})
		_ = stream.Push(ctx, types.Fragment{Content: "b"})
		_ = stream.Push(ctx, types.Fragment{Content: "c"})
		stream.Complete(final)
	}()

	var got []string
	for frag := range stream.Fragments() {
		got = append(got, frag.Content)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.True(t, stream.Completed())
	assert.NoError(t, stream.Err())
	assert.Same(t, final, stream.State())
}

func TestTurnStreamFail(t *testing.T) {
	stream := NewTurnStream()
	boom := errors.New("boom")

	go func() {
		_ = stream.Push(context.Background(), types.Fragment{Content: "partial"})
		stream.Fail(boom)
	}()

	text, err := stream.Drain()
	assert.Equal(t, "partial", text)
	require.ErrorIs(t, err, boom)
	assert.False(t, stream.Completed())
	assert.Nil(t, stream.State())
}

func TestTurnStreamPushRespectsCancellation(t *testing.T) {
	stream := NewTurnStream()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nobody is consuming; a cancelled context must unblock the producer.
	err := stream.Push(ctx, types.Fragment{Content: "x"})
	require.ErrorIs(t, err, context.Canceled)
}
