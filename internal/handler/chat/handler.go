package chat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	chatmodel "github.com/soralis/avatarchat/internal/model/chat"
	"github.com/soralis/avatarchat/pkg/utils"
)

// Responder runs one chat turn; satisfied by the pipeline service.
type Responder interface {
	Respond(ctx context.Context, userMessage string) ([]chatmodel.Message, error)
}

// Handler serves the chat endpoint.
type Handler struct {
	pipeline Responder
	logger   zerolog.Logger
}

// New creates the chat handler.
func New(pipeline Responder, logger zerolog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		logger:   logger.With().Str("component", "chat-handler").Logger(),
	}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Messages []chatmodel.Message `json:"messages"`
}

// handleChat runs the pipeline for one user message. An absent body or empty
// message triggers the scripted greeting. Stage failures still carry a
// fallback message list in the body, with a failure status.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if r.Body != nil {
		// Empty or malformed bodies are treated as the greeting trigger.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	messages, err := h.pipeline.Respond(r.Context(), req.Message)
	if err != nil {
		h.logger.Error().Err(err).Msg("chat turn failed")
		utils.RespondJSON(w, http.StatusInternalServerError, chatResponse{Messages: messages})
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{Messages: messages})
}
