package a2a

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// CardHandler serves this service's own agent card, in the same shape the
// resolver consumes. Serving it makes the service joinable as a remote
// participant of another instance.
type CardHandler struct {
	card   AgentCard
	logger *zap.Logger
}

// NewCardHandler creates a handler serving card.
func NewCardHandler(card AgentCard, logger *zap.Logger) *CardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardHandler{
		card:   card,
		logger: logger.With(zap.String("component", "card_handler")),
	}
}

// ServeHTTP serves the card as JSON.
func (h *CardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(h.card); err != nil {
		h.logger.Error("serialize agent card", zap.Error(err))
	}
}
