package media

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/soralis/avatarchat/internal/config"
)

type recordingRunner struct {
	name string
	args []string
	err  error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) error {
	r.name = name
	r.args = args
	return r.err
}

func newTestConverter(runner Runner) *Converter {
	c := NewConverter(config.MediaConfig{
		FFmpegPath:  "ffmpeg",
		RhubarbPath: "rhubarb",
		AudioDir:    "audios",
	}, zerolog.Nop())
	c.SetRunner(runner)
	return c
}

func TestToWAVArguments(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestConverter(runner)

	if err := c.ToWAV(context.Background(), "in.mp3", "out.wav"); err != nil {
		t.Fatalf("ToWAV err: %v", err)
	}

	if runner.name != "ffmpeg" {
		t.Fatalf("unexpected command: %q", runner.name)
	}
	want := []string{"-y", "-i", "in.mp3", "out.wav"}
	if len(runner.args) != len(want) {
		t.Fatalf("unexpected args: %v", runner.args)
	}
	for i := range want {
		if runner.args[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, runner.args[i], want[i])
		}
	}
}

func TestExtractLipSyncArguments(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestConverter(runner)

	if err := c.ExtractLipSync(context.Background(), "in.wav", "out.json"); err != nil {
		t.Fatalf("ExtractLipSync err: %v", err)
	}

	if runner.name != "rhubarb" {
		t.Fatalf("unexpected command: %q", runner.name)
	}
	want := []string{"-f", "json", "-o", "out.json", "in.wav", "-r", "phonetic"}
	if len(runner.args) != len(want) {
		t.Fatalf("unexpected args: %v", runner.args)
	}
	for i := range want {
		if runner.args[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, runner.args[i], want[i])
		}
	}
}

func TestConverterPropagatesFailure(t *testing.T) {
	runner := &recordingRunner{err: errors.New("exit status 1")}
	c := newTestConverter(runner)

	if err := c.ToWAV(context.Background(), "in.mp3", "out.wav"); err == nil {
		t.Fatal("expected conversion error")
	}
	if err := c.ExtractLipSync(context.Background(), "in.wav", "out.json"); err == nil {
		t.Fatal("expected extraction error")
	}
}
