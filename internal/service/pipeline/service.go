// Package pipeline sequences one chat turn: cache lookup, completion,
// reply parsing, per-message speech synthesis, media conversion and lip-sync
// extraction, and cache write-back.
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/soralis/avatarchat/internal/cache"
	"github.com/soralis/avatarchat/internal/model/chat"
	"github.com/soralis/avatarchat/internal/service/ai"
)

// Stage errors. The handler maps any of them to the static error fallback
// with a failure status; the distinction stays visible in logs and callers.
var (
	ErrCompletion    = errors.New("completion request failed")
	ErrBadCompletion = errors.New("completion reply is not parseable")
	ErrSynthesis     = errors.New("speech synthesis failed")
)

// Completer produces the raw model reply for one user message.
type Completer interface {
	Complete(ctx context.Context, userMessage string) (string, error)
}

// Synthesizer converts reply text into encoded speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Converter adapts synthesized audio for the lip-sync tool and runs it.
type Converter interface {
	ToWAV(ctx context.Context, src, dst string) error
	ExtractLipSync(ctx context.Context, wav, dst string) error
}

// Options bound the pipeline's cache and fan-out and fix its voice.
type Options struct {
	Degraded    bool
	VoiceID     string
	AudioDir    string
	FanOutLimit int
	CacheSize   int
	CacheTTL    time.Duration
}

// Service is the orchestrator behind POST /chat. All collaborators are
// injected; the service holds no process-global state.
type Service struct {
	completer Completer
	speech    Synthesizer
	converter Converter
	fallbacks *FallbackSet
	replies   *cache.Store[[]chat.Message]
	lipsync   *cache.Store[json.RawMessage]
	opts      Options
	logger    zerolog.Logger
}

// NewService wires the pipeline. completer may be nil when the completion
// model is unavailable; every such turn degrades to the noApiKey fallback.
func NewService(completer Completer, speech Synthesizer, converter Converter, fallbacks *FallbackSet, opts Options, logger zerolog.Logger) *Service {
	if opts.FanOutLimit <= 0 {
		opts.FanOutLimit = 4
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if err := os.MkdirAll(opts.AudioDir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", opts.AudioDir).Msg("cannot create audio directory")
	}

	return &Service{
		completer: completer,
		speech:    speech,
		converter: converter,
		fallbacks: fallbacks,
		replies:   cache.New[[]chat.Message](opts.CacheSize, opts.CacheTTL),
		lipsync:   cache.New[json.RawMessage](opts.CacheSize, opts.CacheTTL),
		opts:      opts,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Respond runs one chat turn. On stage failure it returns the static error
// fallback list together with the typed stage error so the handler can keep
// a response body while signaling failure.
func (s *Service) Respond(ctx context.Context, userMessage string) ([]chat.Message, error) {
	message := strings.TrimSpace(userMessage)
	if message == "" {
		return s.fallbacks.Greeting, nil
	}

	key := cache.Key(message)
	if cached, ok := s.replies.Get(key); ok {
		s.logger.Debug().Str("key", key).Msg("cache hit")
		return cached, nil
	}

	if s.opts.Degraded || s.completer == nil {
		s.logger.Warn().Msg("no completion credential, serving noApiKey fallback")
		return s.fallbacks.NoAPIKey, nil
	}

	turnID := uuid.NewString()[:8]

	raw, err := s.completer.Complete(ctx, message)
	if err != nil {
		s.logger.Error().Err(err).Str("turn", turnID).Msg("completion call failed")
		return s.fallbacks.Error, fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	messages, err := ai.ParseMessages(raw)
	if err != nil {
		s.logger.Error().Err(err).Str("turn", turnID).Msg("completion reply rejected")
		return s.fallbacks.Error, fmt.Errorf("%w: %v", ErrBadCompletion, err)
	}

	if err := s.synthesizeAll(ctx, turnID, messages); err != nil {
		s.logger.Error().Err(err).Str("turn", turnID).Msg("synthesis stage failed")
		return s.fallbacks.Error, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	s.attachMediaAll(ctx, turnID, messages)

	s.replies.Add(key, messages)
	s.logger.Info().Str("turn", turnID).Int("messages", len(messages)).Msg("turn complete")
	return messages, nil
}

// synthesizeAll requests speech for every message concurrently, bounded by
// the fan-out limit, writing one audio file per message index. Any failure
// aborts the stage.
func (s *Service) synthesizeAll(ctx context.Context, turnID string, messages []chat.Message) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FanOutLimit)

	for i := range messages {
		i := i
		g.Go(func() error {
			audio, err := s.speech.Synthesize(gctx, messages[i].Text, s.opts.VoiceID)
			if err != nil {
				return fmt.Errorf("message %d: %w", i, err)
			}
			if err := os.WriteFile(s.stagePath(turnID, i, "mp3"), audio, 0o644); err != nil {
				return fmt.Errorf("message %d: write audio: %w", i, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// attachMediaAll converts each audio file and extracts lip-sync timing,
// concurrently per message. Failures degrade only the affected message to
// empty timing data; siblings and the turn itself proceed.
func (s *Service) attachMediaAll(ctx context.Context, turnID string, messages []chat.Message) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FanOutLimit)

	for i := range messages {
		i := i
		g.Go(func() error {
			s.attachMedia(ctx, turnID, i, &messages[i])
			return nil
		})
	}

	_ = g.Wait()
}

func (s *Service) attachMedia(ctx context.Context, turnID string, index int, m *chat.Message) {
	m.Lipsync = chat.EmptyLipSync

	mp3 := s.stagePath(turnID, index, "mp3")
	audio, err := os.ReadFile(mp3)
	if err != nil {
		s.logger.Warn().Err(err).Str("turn", turnID).Int("message", index).Msg("reading synthesized audio failed")
		return
	}
	m.Audio = base64.StdEncoding.EncodeToString(audio)

	// Identical reply text reuses cached timing; audio above is still fresh.
	if cached, ok := s.lipsync.Get(m.Text); ok {
		m.Lipsync = cached
		return
	}

	wav := s.stagePath(turnID, index, "wav")
	if err := s.converter.ToWAV(ctx, mp3, wav); err != nil {
		s.logger.Warn().Err(err).Str("turn", turnID).Int("message", index).Msg("audio conversion failed")
		return
	}

	timingPath := s.stagePath(turnID, index, "json")
	if err := s.converter.ExtractLipSync(ctx, wav, timingPath); err != nil {
		s.logger.Warn().Err(err).Str("turn", turnID).Int("message", index).Msg("lip-sync extraction failed")
		return
	}

	timing, err := os.ReadFile(timingPath)
	if err != nil || !json.Valid(timing) {
		s.logger.Warn().Err(err).Str("turn", turnID).Int("message", index).Msg("lip-sync timing unreadable")
		return
	}

	m.Lipsync = timing
	s.lipsync.Add(m.Text, timing)
}

// stagePath names per-turn artifacts by stage extension and message index.
func (s *Service) stagePath(turnID string, index int, ext string) string {
	return filepath.Join(s.opts.AudioDir, fmt.Sprintf("message_%s_%d.%s", turnID, index, ext))
}
