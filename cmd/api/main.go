package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/soralis/avatarchat/internal/config"
	"github.com/soralis/avatarchat/internal/handler"
	"github.com/soralis/avatarchat/internal/logging"
	"github.com/soralis/avatarchat/internal/media"
	speechmodel "github.com/soralis/avatarchat/internal/model/speech"
	"github.com/soralis/avatarchat/internal/service/ai"
	"github.com/soralis/avatarchat/internal/service/pipeline"
	speechsvc "github.com/soralis/avatarchat/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info")
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.LogLevel)
	if envErr != nil {
		logger.Debug().Msg("no .env file, using system environment only")
	}

	// Initialize AI service
	var completer pipeline.Completer
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("AI service unavailable, serving fallback replies")
		} else {
			completer = aiService
			logger.Info().Str("model", cfg.AI.Model).Msg("AI service initialized")
		}
	} else if cfg.AI.Degraded() {
		logger.Warn().Msg("completion credential set to '-': degraded mode selected")
	} else {
		logger.Warn().Msg("completion credentials not configured, serving fallback replies")
	}

	// Initialize speech client
	speechConfig := &speechmodel.SpeechConfig{
		APIKey:     cfg.Speech.APIKey,
		BaseURL:    cfg.Speech.BaseURL,
		VoiceID:    cfg.Speech.VoiceID,
		TTSModel:   cfg.Speech.TTSModel,
		STTModel:   cfg.Speech.STTModel,
		Language:   cfg.Speech.Language,
		Stability:  cfg.Speech.Stability,
		Similarity: cfg.Speech.Similarity,
		Timeout:    cfg.Speech.Timeout,
	}
	speechClient := speechsvc.NewClient(speechConfig, logger)
	if !speechClient.Enabled() {
		logger.Warn().Msg("speech provider credential not configured, voice endpoints disabled")
	}

	converter := media.NewConverter(cfg.Media, logger)
	fallbacks := pipeline.LoadFallbacks(cfg.Media.AudioDir, logger)

	pipelineSvc := pipeline.NewService(completer, speechClient, converter, fallbacks, pipeline.Options{
		Degraded:    cfg.AI.Degraded(),
		VoiceID:     cfg.Speech.VoiceID,
		AudioDir:    cfg.Media.AudioDir,
		FanOutLimit: cfg.Pipeline.FanOutLimit,
		CacheSize:   cfg.Pipeline.CacheSize,
		CacheTTL:    cfg.Pipeline.CacheTTL,
	}, logger)

	var speechForRouter *speechsvc.Client
	if speechClient.Enabled() {
		speechForRouter = speechClient
	}
	router := handler.NewRouter(pipelineSvc, speechForRouter, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger zerolog.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", serverCfg.Addr).Msg("avatar chat backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
