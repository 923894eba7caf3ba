package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/a2a"
	"github.com/roundtable-ai/roundtable/participant"
	"github.com/roundtable-ai/roundtable/types"
)

// A2AHandler serves the agent-to-agent turn endpoint, making this service
// callable as another instance's remote participant. A2A turns are
// stateless on this side: the caller's proxy owns the durable transcript
// and sends it as context with every turn.
type A2AHandler struct {
	participant participant.Participant
	logger      *zap.Logger
}

// NewA2AHandler creates the handler answering with p.
func NewA2AHandler(p participant.Participant, logger *zap.Logger) *A2AHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &A2AHandler{
		participant: p,
		logger:      logger.With(zap.String("component", "a2a_handler")),
	}
}

// HandleMessages handles POST /a2a/messages: one turn seeded from the
// caller's transcript context, answered with the whole reply.
func (h *A2AHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	var req a2a.TurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	st := h.participant.NewState()
	for _, m := range req.Context {
		st.Append(types.Message{Role: types.Role(m.Role), Content: m.Content, Name: m.Name})
	}
	msg := types.Message{
		Role:    types.Role(req.Message.Role),
		Content: req.Message.Content,
		Name:    req.Message.Name,
	}
	if msg.Role == "" && msg.Content == "" {
		msg = types.NewUserMessage("")
	}

	stream, err := h.participant.Send(r.Context(), msg, st)
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}
	reply, err := stream.Drain()
	if err != nil {
		WriteFailure(w, err, h.logger)
		return
	}

	h.logger.Info("a2a turn served",
		zap.String("conversation_id", req.ConversationID),
		zap.Int("context_messages", len(req.Context)),
	)
	WriteJSON(w, http.StatusOK, a2a.TurnResponse{
		ConversationID: req.ConversationID,
		Message:        a2a.WireMessage{Role: string(types.RoleAssistant), Content: reply},
	})
}
