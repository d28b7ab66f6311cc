// Package speech is the REST client for the speech provider: voice listing,
// transcription and synthesis. All calls share one keep-alive HTTP client so
// a burst of per-message synthesis calls reuses connections.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	speechmodel "github.com/soralis/avatarchat/internal/model/speech"
)

// ErrNotConfigured is returned when an operation needs the provider
// credential and none is set.
var ErrNotConfigured = errors.New("speech provider credential not configured")

// Client proxies the three provider endpoints with no local retries.
type Client struct {
	cfg        *speechmodel.SpeechConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a speech client with a shared keep-alive transport.
func NewClient(cfg *speechmodel.SpeechConfig, logger zerolog.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger.With().Str("component", "speech").Logger(),
	}
}

// Enabled reports whether the provider credential is usable.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != "" && c.cfg.APIKey != "-"
}

// VoiceID returns the fixed synthesis voice for this deployment.
func (c *Client) VoiceID() string {
	return c.cfg.VoiceID
}

// ListVoices fetches the provider voice catalog.
func (c *Client) ListVoices(ctx context.Context) (*speechmodel.VoiceList, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("create voices request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voices request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("voices", resp)
	}

	var list speechmodel.VoiceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode voices response: %w", err)
	}
	return &list, nil
}

// Transcribe uploads raw audio bytes and returns the recognized text. It
// fails immediately, without an upstream call, when audio or the credential
// is missing.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	if len(audio) == 0 {
		return "", errors.New("audio data is required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "recording.webm")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("model_id", c.cfg.STTModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if c.cfg.Language != "" {
		if err := writer.WriteField("language_code", c.cfg.Language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/speech-to-text", &buf)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("transcription", resp)
	}

	var asr speechmodel.ASRResponse
	if err := json.NewDecoder(resp.Body).Decode(&asr); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	c.logger.Debug().Int("audioBytes", len(audio)).Int("textLength", len(asr.Text)).Msg("transcription complete")
	return asr.Text, nil
}

// Synthesize converts text to speech with the given voice and returns the
// encoded audio bytes.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if voiceID == "" {
		voiceID = c.cfg.VoiceID
	}

	payload := speechmodel.TTSRequest{
		Text:    text,
		ModelID: c.cfg.TTSModel,
		VoiceSettings: speechmodel.VoiceSettings{
			Stability:  c.cfg.Stability,
			Similarity: c.cfg.Similarity,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", c.cfg.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("synthesis", resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis audio: %w", err)
	}

	c.logger.Debug().Str("voice", voiceID).Int("audioBytes", len(audio)).Msg("synthesis complete")
	return audio, nil
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s request returned %d: %s", operation, resp.StatusCode, bytes.TrimSpace(body))
}
