// Package roundtable provides a top-level convenience entry point for
// running conversations with minimal boilerplate.
//
// Usage:
//
//	import "github.com/roundtable-ai/roundtable"
//
//	exec, err := roundtable.New(roundtable.WithParticipant(myParticipant))
//	result, err := exec.Run(ctx, executor.Request{Message: types.NewUserMessage("hello")})
//
// The executor keeps session state in an in-memory store unless a durable
// one is supplied via [WithStore]. Use the cmd/roundtable binary for the
// full HTTP service.
package roundtable

import (
	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/executor"
	"github.com/roundtable-ai/roundtable/llm"
	"github.com/roundtable-ai/roundtable/participant"
	"github.com/roundtable-ai/roundtable/thread"
	"github.com/roundtable-ai/roundtable/types"
)

// Option configures the executor created by [New].
type Option func(*options)

type options struct {
	participant participant.Participant
	provider    llm.Provider
	name        string
	store       thread.Store
	logger      *zap.Logger
	config      executor.Config
}

// WithParticipant sets a pre-built participant.
func WithParticipant(p participant.Participant) Option {
	return func(o *options) { o.participant = p }
}

// WithProvider builds a chat participant over the given provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithName sets the participant name used when [WithProvider] builds one.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithStore sets the session store. Defaults to in-memory.
func WithStore(s thread.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxConcurrentTurns bounds simultaneous turn execution.
func WithMaxConcurrentTurns(n int64) Option {
	return func(o *options) { o.config.MaxConcurrentTurns = n }
}

// New creates a ready-to-use turn executor. At minimum a participant must
// be supplied, either directly via [WithParticipant] or as a provider via
// [WithProvider].
func New(opts ...Option) (*executor.Executor, error) {
	o := options{
		name:   "assistant",
		config: executor.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.participant == nil {
		if o.provider == nil {
			return nil, types.NewError(types.ErrInvalidRequest,
				"a participant or a provider is required")
		}
		o.participant = participant.NewChatParticipant(
			participant.DefaultChatConfig(o.name), o.provider, o.logger)
	}
	if o.store == nil {
		o.store = thread.NewMemoryStore()
	}
	return executor.New(o.config, o.store, o.participant, nil, o.logger), nil
}
