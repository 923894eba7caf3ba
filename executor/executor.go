// Package executor runs turns against a participant with durable session
// state: it loads the conversation's state from the thread store, streams
// the participant's reply through to the caller, and persists the updated
// state once the turn completes cleanly.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/roundtable-ai/roundtable/internal/metrics"
	"github.com/roundtable-ai/roundtable/participant"
	"github.com/roundtable-ai/roundtable/thread"
	"github.com/roundtable-ai/roundtable/types"
)

// diagnosticPrefix opens the single reply fragment emitted when a turn
// fails mid-stream, so the caller always receives well-formed output.
const diagnosticPrefix = "An error occurred while processing your request: "

// Config tunes the executor.
type Config struct {
	// MaxConcurrentTurns bounds turns executing at once across
	// conversations. Waiters for a conversation's own previous turn do
	// not consume a slot.
	MaxConcurrentTurns int64
	// StoreBackend labels store metrics; informational only.
	StoreBackend string
}

// DefaultConfig returns the shipped executor defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrentTurns: 64, StoreBackend: "memory"}
}

// Request is one turn to execute.
type Request struct {
	// ConversationID continues an existing conversation; empty starts a
	// new one under a generated ID.
	ConversationID string
	// Message is the caller's message. A zero message is the priming
	// turn: an empty user message that elicits the opening reply.
	Message types.Message
}

// Turn is an accepted, executing turn. The stream delivers the reply; the
// conversation ID is known up front so callers can correlate fragments.
type Turn struct {
	ConversationID string
	Stream         *participant.TurnStream
}

// Result is the assembled outcome of a non-streaming turn.
type Result struct {
	ConversationID string
	Reply          string
	Turns          int
}

// Executor drives turns for one participant, which may itself be a group.
// Turns for the same conversation are serialized: the next turn starts only
// after the previous turn's state is saved. Distinct conversations run
// concurrently up to the configured bound.
type Executor struct {
	config      Config
	store       thread.Store
	participant participant.Participant
	locks       *keyedMutex
	sem         *semaphore.Weighted
	collector   *metrics.Collector
	tracer      trace.Tracer
	logger      *zap.Logger
}

// New creates an executor for p backed by store. collector may be nil.
func New(config Config, store thread.Store, p participant.Participant, collector *metrics.Collector, logger *zap.Logger) *Executor {
	if config.MaxConcurrentTurns <= 0 {
		config.MaxConcurrentTurns = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		config:      config,
		store:       store,
		participant: p,
		locks:       newKeyedMutex(),
		sem:         semaphore.NewWeighted(config.MaxConcurrentTurns),
		collector:   collector,
		tracer:      otel.Tracer("roundtable/executor"),
		logger:      logger.With(zap.String("component", "executor"), zap.String("participant", p.Name())),
	}
}

// Execute starts one turn and returns its stream. The caller must drain the
// stream; the producer blocks on each fragment until it is taken.
func (e *Executor) Execute(ctx context.Context, req Request) (*Turn, error) {
	msg := req.Message
	if msg.Role == "" && msg.Content == "" {
		// Priming turn: an empty user message opens the conversation.
		msg = types.NewUserMessage("")
	}
	if err := participant.ValidateIncoming(msg); err != nil {
		return nil, err
	}

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	stream := participant.NewTurnStream()
	go e.run(ctx, convID, msg, stream)
	return &Turn{ConversationID: convID, Stream: stream}, nil
}

// Run executes one turn to completion and returns the assembled reply.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	turn, err := e.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	reply, err := turn.Stream.Drain()
	if err != nil {
		return nil, err
	}
	return &Result{
		ConversationID: turn.ConversationID,
		Reply:          reply,
		Turns:          turn.Stream.State().Turns,
	}, nil
}

func (e *Executor) run(ctx context.Context, convID string, msg types.Message, out *participant.TurnStream) {
	start := time.Now()
	key := thread.Key{ParticipantID: e.participant.Name(), ConversationID: convID}

	ctx, span := e.tracer.Start(ctx, "turn.execute", trace.WithAttributes(
		attribute.String("participant", e.participant.Name()),
		attribute.String("state.kind", e.participant.StateKind()),
		attribute.String("conversation.id", convID),
	))
	defer span.End()

	unlock, err := e.locks.Lock(ctx, key.String())
	if err != nil {
		e.fail(ctx, out, span, convID, start, fmt.Errorf("turn cancelled while queued: %w", err))
		return
	}
	defer unlock()
	if e.collector != nil {
		e.collector.RecordConversationWait(e.participant.Name(), time.Since(start))
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		e.fail(ctx, out, span, convID, start, fmt.Errorf("turn cancelled while queued: %w", err))
		return
	}
	defer e.sem.Release(1)
	if e.collector != nil {
		defer e.collector.TurnStarted()()
	}

	st, err := e.loadState(ctx, key)
	if err != nil {
		e.fail(ctx, out, span, convID, start, err)
		return
	}

	inner, err := e.participant.Send(ctx, msg, st)
	if err != nil {
		e.fail(ctx, out, span, convID, start, err)
		return
	}

	for frag := range inner.Fragments() {
		if e.collector != nil {
			e.collector.RecordFragment(e.participant.Name())
		}
		if err := out.Push(ctx, frag); err != nil {
			// Caller is gone; drain the producer so it can finish.
			for range inner.Fragments() {
			}
			e.fail(ctx, out, span, convID, start, fmt.Errorf("caller disconnected mid-turn: %w", err))
			return
		}
	}
	if err := inner.Err(); err != nil {
		e.fail(ctx, out, span, convID, start, err)
		return
	}

	if err := e.saveState(ctx, key, inner.State()); err != nil {
		e.fail(ctx, out, span, convID, start, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	if e.collector != nil {
		e.collector.RecordTurn(e.participant.Name(), e.participant.StateKind(), "completed", time.Since(start))
	}
	e.logger.Info("turn completed",
		zap.String("conversation_id", convID),
		zap.Int("turns", inner.State().Turns),
		zap.Duration("duration", time.Since(start)),
	)
	out.Complete(inner.State())
}

// fail ends the stream with a single diagnostic fragment and the terminal
// error. The state save is skipped: turn N remains the conversation's last
// durable turn.
func (e *Executor) fail(ctx context.Context, out *participant.TurnStream, span trace.Span, convID string, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if e.collector != nil {
		e.collector.RecordTurn(e.participant.Name(), e.participant.StateKind(), "failed", time.Since(start))
	}
	e.logger.Warn("turn failed",
		zap.String("conversation_id", convID),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)

	diag := types.Fragment{Role: types.RoleAssistant, Content: diagnosticPrefix + err.Error()}
	// Best effort: the caller may already be gone.
	_ = out.Push(ctx, diag)
	out.Fail(err)
}

func (e *Executor) loadState(ctx context.Context, key thread.Key) (*participant.State, error) {
	opStart := time.Now()
	blob, err := e.store.Load(ctx, key)
	e.recordStoreOp("load", err, time.Since(opStart))
	if errors.Is(err, thread.ErrNotFound) {
		return e.participant.NewState(), nil
	}
	if err != nil {
		return nil, err
	}
	st, err := participant.UnmarshalState(blob, e.participant.StateKind())
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (e *Executor) saveState(ctx context.Context, key thread.Key, st *participant.State) error {
	blob, err := participant.MarshalState(st)
	if err != nil {
		return err
	}
	opStart := time.Now()
	err = e.store.Save(ctx, key, blob)
	e.recordStoreOp("save", err, time.Since(opStart))
	return err
}

func (e *Executor) recordStoreOp(op string, err error, d time.Duration) {
	if e.collector == nil {
		return
	}
	status := "ok"
	if err != nil && !errors.Is(err, thread.ErrNotFound) {
		status = "error"
	}
	e.collector.RecordStoreOp(e.config.StoreBackend, op, status, d)
}
