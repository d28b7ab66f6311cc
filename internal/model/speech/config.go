package speech

import "time"

// SpeechConfig carries the provider credentials and fixed synthesis settings
// shared by all speech client calls.
type SpeechConfig struct {
	APIKey     string
	BaseURL    string
	VoiceID    string
	TTSModel   string
	STTModel   string
	Language   string
	Stability  float64
	Similarity float64
	Timeout    time.Duration
}
