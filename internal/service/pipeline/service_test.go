package pipeline_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/soralis/avatarchat/internal/model/chat"
	"github.com/soralis/avatarchat/internal/service/pipeline"
)

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3-bytes"), nil
}

func (f *fakeSynthesizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeConverter struct {
	mu           sync.Mutex
	convertErr   error
	extractErr   error
	extractCalls int
}

func (f *fakeConverter) ToWAV(_ context.Context, _, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convertErr != nil {
		return f.convertErr
	}
	return os.WriteFile(dst, []byte("wav-bytes"), 0o644)
}

func (f *fakeConverter) ExtractLipSync(_ context.Context, _, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractCalls++
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(dst, []byte(`{"mouthCues":[{"start":0,"end":0.4,"value":"A"}]}`), 0o644)
}

func (f *fakeConverter) extractCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extractCalls
}

func testFallbacks() *pipeline.FallbackSet {
	greeting := chat.Message{Text: "Hey there! How was your day?", FacialExpression: "smile", Animation: "Talking_1"}
	greeting.Normalize()
	noKey := chat.Message{Text: "Please add your API keys!", FacialExpression: "sad", Animation: "Idle"}
	noKey.Normalize()
	errMsg := chat.Message{Text: "Something went wrong.", FacialExpression: "sad", Animation: "Crying"}
	errMsg.Normalize()

	return &pipeline.FallbackSet{
		Greeting: []chat.Message{greeting},
		NoAPIKey: []chat.Message{noKey},
		Error:    []chat.Message{errMsg},
	}
}

type fixture struct {
	svc       *pipeline.Service
	completer *fakeCompleter
	synth     *fakeSynthesizer
	converter *fakeConverter
	fallbacks *pipeline.FallbackSet
	audioDir  string
}

func newFixture(t *testing.T, opts pipeline.Options) *fixture {
	t.Helper()

	completer := &fakeCompleter{reply: `[{"text":"Hi!","facialExpression":"smile","animation":"Talking_1"}]`}
	synth := &fakeSynthesizer{}
	converter := &fakeConverter{}
	fallbacks := testFallbacks()

	opts.AudioDir = t.TempDir()
	opts.VoiceID = "test-voice"
	opts.CacheSize = 16
	opts.CacheTTL = time.Minute

	svc := pipeline.NewService(completer, synth, converter, fallbacks, opts, zerolog.Nop())
	return &fixture{
		svc:       svc,
		completer: completer,
		synth:     synth,
		converter: converter,
		fallbacks: fallbacks,
		audioDir:  opts.AudioDir,
	}
}

func TestRespondEmptyMessageReturnsGreeting(t *testing.T) {
	f := newFixture(t, pipeline.Options{})

	messages, err := f.svc.Respond(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}

	if len(messages) != 1 {
		t.Fatalf("expected 1 greeting message, got %d", len(messages))
	}
	if messages[0].Text != f.fallbacks.Greeting[0].Text {
		t.Fatalf("unexpected greeting text: %q", messages[0].Text)
	}
	if messages[0].FacialExpression != "smile" {
		t.Fatalf("greeting expression: %q", messages[0].FacialExpression)
	}
	if f.completer.callCount() != 0 || f.synth.callCount() != 0 {
		t.Fatal("greeting must not trigger external calls")
	}
}

func TestRespondDegradedModeSkipsNetwork(t *testing.T) {
	f := newFixture(t, pipeline.Options{Degraded: true})

	messages, err := f.svc.Respond(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}

	if messages[0].Text != f.fallbacks.NoAPIKey[0].Text {
		t.Fatalf("expected noApiKey fallback, got %q", messages[0].Text)
	}
	if f.completer.callCount() != 0 || f.synth.callCount() != 0 {
		t.Fatal("degraded mode must not touch the network")
	}
}

func TestRespondSuccessPopulatesMedia(t *testing.T) {
	f := newFixture(t, pipeline.Options{})

	messages, err := f.svc.Respond(context.Background(), "How are you?")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	m := messages[0]
	if m.Text != "Hi!" || m.FacialExpression != "smile" || m.Animation != "Talking_1" {
		t.Fatalf("completion fields not preserved: %+v", m)
	}
	audio, err := base64.StdEncoding.DecodeString(m.Audio)
	if err != nil || string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio payload: %q err=%v", m.Audio, err)
	}
	if string(m.Lipsync) == "{}" || len(m.Lipsync) == 0 {
		t.Fatalf("lipsync not populated: %s", m.Lipsync)
	}
}

func TestRespondSecondCallServedFromCache(t *testing.T) {
	f := newFixture(t, pipeline.Options{})
	ctx := context.Background()

	first, err := f.svc.Respond(ctx, "How are you?")
	if err != nil {
		t.Fatalf("first Respond err: %v", err)
	}
	completerCalls := f.completer.callCount()
	synthCalls := f.synth.callCount()

	second, err := f.svc.Respond(ctx, "how are you") // key-equivalent variant
	if err != nil {
		t.Fatalf("second Respond err: %v", err)
	}

	if f.completer.callCount() != completerCalls || f.synth.callCount() != synthCalls {
		t.Fatal("cache hit must not trigger external calls")
	}
	if len(first) != len(second) || first[0].Audio != second[0].Audio || first[0].Text != second[0].Text {
		t.Fatal("cached reply differs from original")
	}
}

func TestRespondBadCompletionReturnsErrorFallback(t *testing.T) {
	f := newFixture(t, pipeline.Options{})
	f.completer.reply = "I refuse to speak JSON"

	messages, err := f.svc.Respond(context.Background(), "hello")
	if !errors.Is(err, pipeline.ErrBadCompletion) {
		t.Fatalf("expected ErrBadCompletion, got %v", err)
	}
	if messages[0].Text != f.fallbacks.Error[0].Text {
		t.Fatalf("expected error fallback, got %q", messages[0].Text)
	}

	entries, readErr := os.ReadDir(f.audioDir)
	if readErr != nil {
		t.Fatalf("read audio dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("no audio files should be written for a rejected turn, found %d", len(entries))
	}
	if f.synth.callCount() != 0 {
		t.Fatal("synthesis must not run for a rejected turn")
	}
}

func TestRespondCompletionFailure(t *testing.T) {
	f := newFixture(t, pipeline.Options{})
	f.completer.err = errors.New("upstream 500")

	messages, err := f.svc.Respond(context.Background(), "hello")
	if !errors.Is(err, pipeline.ErrCompletion) {
		t.Fatalf("expected ErrCompletion, got %v", err)
	}
	if messages[0].Text != f.fallbacks.Error[0].Text {
		t.Fatalf("expected error fallback, got %q", messages[0].Text)
	}
}

func TestRespondSynthesisFailureFailsTurn(t *testing.T) {
	f := newFixture(t, pipeline.Options{})
	f.synth.err = errors.New("tts unavailable")

	messages, err := f.svc.Respond(context.Background(), "hello")
	if !errors.Is(err, pipeline.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if messages[0].Text != f.fallbacks.Error[0].Text {
		t.Fatalf("expected error fallback, got %q", messages[0].Text)
	}
}

func TestRespondExtractionFailureDegradesMessageOnly(t *testing.T) {
	f := newFixture(t, pipeline.Options{})
	f.converter.extractErr = errors.New("rhubarb crashed")

	messages, err := f.svc.Respond(context.Background(), "hello")
	if err != nil {
		t.Fatalf("extraction failure must not fail the turn: %v", err)
	}

	m := messages[0]
	if m.Audio == "" {
		t.Fatal("audio should survive extraction failure")
	}
	if string(m.Lipsync) != "{}" {
		t.Fatalf("expected empty lipsync, got %s", m.Lipsync)
	}
}

func TestRespondReusesLipSyncForIdenticalReplyText(t *testing.T) {
	f := newFixture(t, pipeline.Options{})
	ctx := context.Background()

	if _, err := f.svc.Respond(ctx, "first question"); err != nil {
		t.Fatalf("first Respond err: %v", err)
	}
	if f.converter.extractCount() != 1 {
		t.Fatalf("expected 1 extraction, got %d", f.converter.extractCount())
	}

	// A different question with the same reply text hits the lip-sync cache.
	messages, err := f.svc.Respond(ctx, "second question")
	if err != nil {
		t.Fatalf("second Respond err: %v", err)
	}
	if f.converter.extractCount() != 1 {
		t.Fatalf("extraction should be skipped on cache hit, got %d calls", f.converter.extractCount())
	}
	if messages[0].Audio == "" {
		t.Fatal("audio must still be re-encoded from the fresh file")
	}
	if string(messages[0].Lipsync) == "{}" {
		t.Fatal("cached lip-sync timing should be attached")
	}
}

func TestRespondMultipleMessagesKeepOrder(t *testing.T) {
	f := newFixture(t, pipeline.Options{FanOutLimit: 2})
	f.completer.reply = `[` +
		`{"text":"one","facialExpression":"smile","animation":"Talking_1"},` +
		`{"text":"two","facialExpression":"sad","animation":"Crying"},` +
		`{"text":"three","facialExpression":"angry","animation":"Angry"}]`

	messages, err := f.svc.Respond(context.Background(), "tell me a story")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}

	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"one", "two", "three"} {
		if messages[i].Text != want {
			t.Fatalf("message %d out of order: got %q want %q", i, messages[i].Text, want)
		}
		if messages[i].Audio == "" {
			t.Fatalf("message %d missing audio", i)
		}
	}
}
