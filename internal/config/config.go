package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates all service configuration.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Speech   SpeechConfig
	Media    MediaConfig
	Pipeline PipelineConfig
	LogLevel string
}

// Load reads configuration from environment variables. Credentials have no
// embedded defaults: a missing key disables the corresponding service.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipelineConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Speech:   speech,
		Media:    loadMediaConfig(),
		Pipeline: pipeline,
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	if strings.Contains(port, ":") {
		// Allow ":3000" or "127.0.0.1:3000" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat-completion model.
type AIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature float64
	MaxTokens   int
}

// Degraded reports whether the operator explicitly selected no-credential
// mode with a literal "-" key.
func (c AIConfig) Degraded() bool {
	return c.APIKey == "-"
}

// Enabled reports whether a usable completion credential is configured.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && c.APIKey != "" && !c.Degraded()
}

// NewChatModel builds the completion model from this configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("completion credentials missing: set ARK_API_KEY and ARK_MODEL")
	}

	temperature := float32(c.Temperature)
	maxTokens := c.MaxTokens

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	// Reply sampling is fixed per deployment; these defaults bound every call.
	temp := 0.6
	if temperature != nil {
		temp = *temperature
	}

	maxTokens := 1000
	if override, err := parseOptionalIntEnv("ARK_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		maxTokens = *override
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temp,
		MaxTokens:   maxTokens,
	}, nil
}

// SpeechConfig describes the speech provider endpoints.
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

// Enabled reports whether the speech provider credential is configured.
func (c SpeechConfig) Enabled() bool {
	return c.APIKey != "" && c.APIKey != "-"
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("SPEECH_TIMEOUT"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	stability := 0.5
	if override, err := parseOptionalFloatEnv("SPEECH_TTS_STABILITY"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		stability = *override
	}

	similarity := 0.75
	if override, err := parseOptionalFloatEnv("SPEECH_TTS_SIMILARITY"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		similarity = *override
	}

	return SpeechConfig{
		APIKey:     strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		BaseURL:    getEnvOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		VoiceID:    getEnvOrDefault("ELEVENLABS_VOICE_ID", "cgSgspJ2msm6clMCkdW9"),
		TTSModel:   getEnvOrDefault("SPEECH_TTS_MODEL", "eleven_monolingual_v1"),
		STTModel:   getEnvOrDefault("SPEECH_STT_MODEL", "scribe_v1"),
		Language:   getEnvOrDefault("SPEECH_LANGUAGE", "en"),
		Stability:  stability,
		Similarity: similarity,
		Timeout:    time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// MediaConfig locates the external media tools and the working directory for
// per-turn audio artifacts.
type MediaConfig struct {
	FFmpegPath  string
	RhubarbPath string
	AudioDir    string
}

func loadMediaConfig() MediaConfig {
	return MediaConfig{
		FFmpegPath:  getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		RhubarbPath: getEnvOrDefault("RHUBARB_PATH", "rhubarb"),
		AudioDir:    getEnvOrDefault("AUDIO_DIR", "audios"),
	}
}

// PipelineConfig bounds the orchestrator's cache and fan-out.
type PipelineConfig struct {
	CacheTTL    time.Duration
	CacheSize   int
	FanOutLimit int
}

func loadPipelineConfig() (PipelineConfig, error) {
	ttlMinutes := 60
	if override, err := parseOptionalIntEnv("CACHE_TTL_MINUTES"); err != nil {
		return PipelineConfig{}, err
	} else if override != nil && *override > 0 {
		ttlMinutes = *override
	}

	cacheSize := 1024
	if override, err := parseOptionalIntEnv("CACHE_SIZE"); err != nil {
		return PipelineConfig{}, err
	} else if override != nil && *override > 0 {
		cacheSize = *override
	}

	fanOut := 4
	if override, err := parseOptionalIntEnv("PIPELINE_FANOUT_LIMIT"); err != nil {
		return PipelineConfig{}, err
	} else if override != nil && *override > 0 {
		fanOut = *override
	}

	return PipelineConfig{
		CacheTTL:    time.Duration(ttlMinutes) * time.Minute,
		CacheSize:   cacheSize,
		FanOutLimit: fanOut,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
