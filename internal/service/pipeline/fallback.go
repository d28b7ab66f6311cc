package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/soralis/avatarchat/internal/model/chat"
)

// FallbackSet holds the pre-baked message lists served when the live
// pipeline cannot run: the idle greeting, the missing-credential notice and
// the generic error reply. Loaded once at startup and reused immutably.
type FallbackSet struct {
	Greeting []chat.Message
	NoAPIKey []chat.Message
	Error    []chat.Message
}

// LoadFallbacks reads the static audio and timing pairs from dir. Missing or
// unreadable files degrade the message to text-only with a warning; startup
// never fails over fallback assets.
func LoadFallbacks(dir string, logger zerolog.Logger) *FallbackSet {
	log := logger.With().Str("component", "fallback").Logger()

	return &FallbackSet{
		Greeting: []chat.Message{
			loadStatic(dir, "greeting_0", "Hey there! How was your day?", "smile", "Talking_1", log),
		},
		NoAPIKey: []chat.Message{
			loadStatic(dir, "no_api_key_0", "Please add your API keys so we can keep talking!", "sad", "Idle", log),
		},
		Error: []chat.Message{
			loadStatic(dir, "error_0", "I'm having trouble thinking right now. Give me a moment and try again.", "sad", "Crying", log),
		},
	}
}

func loadStatic(dir, name, text, expression, animation string, log zerolog.Logger) chat.Message {
	m := chat.Message{
		Text:             text,
		FacialExpression: expression,
		Animation:        animation,
	}

	audioPath := filepath.Join(dir, name+".wav")
	if audio, err := os.ReadFile(audioPath); err == nil {
		m.Audio = base64.StdEncoding.EncodeToString(audio)
	} else {
		log.Warn().Str("file", audioPath).Msg("fallback audio missing, serving text only")
	}

	timingPath := filepath.Join(dir, name+".json")
	if timing, err := os.ReadFile(timingPath); err == nil && json.Valid(timing) {
		m.Lipsync = timing
	} else {
		log.Warn().Str("file", timingPath).Msg("fallback lip-sync timing missing")
	}

	m.Normalize()
	return m
}
