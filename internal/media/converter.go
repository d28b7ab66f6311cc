// Package media wraps the two external media tools the pipeline shells out
// to: ffmpeg for audio container conversion and rhubarb for phoneme-based
// lip-sync extraction.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/soralis/avatarchat/internal/config"
)

// Runner executes an external command; split out so converter behavior is
// testable without the real binaries installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(out))
	}
	return nil
}

// Converter invokes the external media tools with fixed argument templates.
type Converter struct {
	ffmpeg  string
	rhubarb string
	runner  Runner
	logger  zerolog.Logger
}

// NewConverter builds a converter using the configured tool paths.
func NewConverter(cfg config.MediaConfig, logger zerolog.Logger) *Converter {
	return &Converter{
		ffmpeg:  cfg.FFmpegPath,
		rhubarb: cfg.RhubarbPath,
		runner:  execRunner{},
		logger:  logger.With().Str("component", "media").Logger(),
	}
}

// SetRunner swaps the command runner; used by tests.
func (c *Converter) SetRunner(r Runner) {
	c.runner = r
}

// ToWAV converts src into the WAV container rhubarb requires.
func (c *Converter) ToWAV(ctx context.Context, src, dst string) error {
	if err := c.runner.Run(ctx, c.ffmpeg, "-y", "-i", src, dst); err != nil {
		return fmt.Errorf("convert %s: %w", src, err)
	}
	return nil
}

// ExtractLipSync runs rhubarb over a WAV file, writing mouth-cue timing JSON
// to dst. The phonetic recognizer trades accuracy for speed, which suits
// short conversational replies.
func (c *Converter) ExtractLipSync(ctx context.Context, wav, dst string) error {
	if err := c.runner.Run(ctx, c.rhubarb, "-f", "json", "-o", dst, wav, "-r", "phonetic"); err != nil {
		return fmt.Errorf("extract lip sync from %s: %w", wav, err)
	}
	c.logger.Debug().Str("wav", wav).Str("out", dst).Msg("lip-sync timing extracted")
	return nil
}
