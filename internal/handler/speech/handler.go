package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	speechmodel "github.com/soralis/avatarchat/internal/model/speech"
	speechsvc "github.com/soralis/avatarchat/internal/service/speech"
	"github.com/soralis/avatarchat/pkg/utils"
)

// SpeechClient abstracts the provider proxy for testing.
type SpeechClient interface {
	ListVoices(ctx context.Context) (*speechmodel.VoiceList, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Enabled() bool
}

// Handler proxies the speech provider endpoints.
type Handler struct {
	client SpeechClient
	logger zerolog.Logger
}

// New creates the speech handler.
func New(client SpeechClient, logger zerolog.Logger) *Handler {
	return &Handler{
		client: client,
		logger: logger.With().Str("component", "speech-handler").Logger(),
	}
}

// RegisterRoutes mounts the speech routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/voices", h.handleVoices)
	r.Post("/transcribe", h.handleTranscribe)
}

func (h *Handler) handleVoices(w http.ResponseWriter, r *http.Request) {
	if !h.client.Enabled() {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech provider not configured")
		return
	}

	voices, err := h.client.ListVoices(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("voice listing failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to list voices")
		return
	}

	utils.RespondJSON(w, http.StatusOK, voices)
}

type transcribeRequest struct {
	AudioBase64 string `json:"audioBase64"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// handleTranscribe decodes the uploaded audio and proxies it to the
// provider. Missing audio or credentials fail fast with no upstream call.
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.AudioBase64) == "" {
		utils.RespondError(w, http.StatusBadRequest, "audioBase64 is required")
		return
	}
	if !h.client.Enabled() {
		utils.RespondError(w, http.StatusBadRequest, "speech provider not configured")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audioBase64 is not valid base64")
		return
	}

	text, err := h.client.Transcribe(r.Context(), audio)
	if err != nil {
		if errors.Is(err, speechsvc.ErrNotConfigured) {
			utils.RespondError(w, http.StatusBadRequest, "speech provider not configured")
			return
		}
		h.logger.Error().Err(err).Msg("transcription failed")
		utils.RespondError(w, http.StatusInternalServerError, "transcription failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, transcribeResponse{Text: text})
}
