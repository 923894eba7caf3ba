package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/api"
	"github.com/roundtable-ai/roundtable/executor"
	"github.com/roundtable-ai/roundtable/types"
)

// TurnHandler serves the turn endpoints.
type TurnHandler struct {
	executor *executor.Executor
	logger   *zap.Logger
}

// NewTurnHandler creates a turn handler backed by exec.
func NewTurnHandler(exec *executor.Executor, logger *zap.Logger) *TurnHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnHandler{
		executor: exec,
		logger:   logger.With(zap.String("component", "turn_handler")),
	}
}

// HandleTurn handles POST /v1/turns: one turn, assembled reply.
func (h *TurnHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req api.TurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	start := time.Now()
	res, err := h.executor.Run(r.Context(), toExecutorRequest(req))
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}

	h.logger.Info("turn served",
		zap.String("conversation_id", res.ConversationID),
		zap.Duration("duration", time.Since(start)),
	)
	WriteSuccess(w, api.TurnResponse{
		ConversationID: res.ConversationID,
		Reply:          res.Reply,
		Turns:          res.Turns,
		Status:         "completed",
	})
}

// HandleStream handles POST /v1/turns/stream: one turn as an SSE stream of
// reply deltas, finished by a [DONE] marker.
func (h *TurnHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	var req api.TurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, types.NewError(types.ErrInternalError, "streaming not supported"), h.logger)
		return
	}

	turn, err := h.executor.Execute(r.Context(), toExecutorRequest(req))
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for frag := range turn.Stream.Fragments() {
		chunk := api.StreamChunk{
			ConversationID: turn.ConversationID,
			Delta:          api.StreamDelta{Role: string(frag.Role), Content: frag.Content},
		}
		payload, err := json.Marshal(chunk)
		if err != nil {
			h.logger.Error("serialize chunk", zap.Error(err))
			return
		}
		w.Write([]byte("data: "))
		w.Write(payload)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	if err := turn.Stream.Err(); err != nil {
		h.logger.Warn("stream ended in error",
			zap.String("conversation_id", turn.ConversationID),
			zap.Error(err),
		)
		errPayload, _ := json.Marshal(map[string]string{
			"code":    string(types.GetErrorCode(err)),
			"message": err.Error(),
		})
		w.Write([]byte("event: error\ndata: "))
		w.Write(errPayload)
		w.Write([]byte("\n\n"))
		flusher.Flush()
		return
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

// toExecutorRequest maps the wire request onto an executor request. The
// last message is the turn input; no messages means a priming turn.
func toExecutorRequest(req api.TurnRequest) executor.Request {
	out := executor.Request{ConversationID: req.ConversationID}
	if n := len(req.Messages); n > 0 {
		last := req.Messages[n-1]
		out.Message = types.Message{
			Role:    types.Role(last.Role),
			Content: last.Content,
			Name:    last.Name,
		}
	}
	return out
}
