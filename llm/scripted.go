package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/roundtable-ai/roundtable/types"
)

// ScriptedProvider replays a fixed sequence of replies, one per Completion or
// Stream call, cycling when the script is exhausted. It backs demo servers
// and tests that need a deterministic generator instead of a live backend.
type ScriptedProvider struct {
	name      string
	replies   []string
	chunkSize int

	mu   sync.Mutex
	next int
}

// ScriptedOption mutates a ScriptedProvider under construction.
type ScriptedOption func(*ScriptedProvider)

// WithChunkSize sets the delta size used when streaming replies.
func WithChunkSize(n int) ScriptedOption {
	return func(p *ScriptedProvider) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// NewScriptedProvider creates a provider that replays the given replies.
func NewScriptedProvider(name string, replies []string, opts ...ScriptedOption) *ScriptedProvider {
	p := &ScriptedProvider{
		name:      name,
		replies:   replies,
		chunkSize: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider's identifier.
func (p *ScriptedProvider) Name() string { return p.name }

func (p *ScriptedProvider) take() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.replies) == 0 {
		return ""
	}
	reply := p.replies[p.next%len(p.replies)]
	p.next++
	return reply
}

// Completion returns the next scripted reply in full.
func (p *ScriptedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrUpstreamUnavailable, "scripted provider cancelled").WithCause(err)
	}
	return &ChatResponse{Text: p.take()}, nil
}

// Stream returns the next scripted reply sliced into fixed-size deltas.
func (p *ScriptedProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrUpstreamUnavailable, "scripted provider cancelled").WithCause(err)
	}

	reply := p.take()
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		var sb strings.Builder
		for _, r := range reply {
			sb.WriteRune(r)
			if sb.Len() < p.chunkSize {
				continue
			}
			select {
			case out <- StreamChunk{Delta: sb.String()}:
				sb.Reset()
			case <-ctx.Done():
				return
			}
		}
		if sb.Len() > 0 {
			select {
			case out <- StreamChunk{Delta: sb.String()}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

var _ Provider = (*ScriptedProvider)(nil)
