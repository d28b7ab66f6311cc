// Package session holds per-connection front-end chat state: the pending
// message queue, the loading flag and the voice-capture state machine.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/soralis/avatarchat/internal/model/chat"
)

// DefaultNoSpeechTimeout finalizes a capture that heard nothing new.
const DefaultNoSpeechTimeout = 5 * time.Second

// Responder runs one chat turn; satisfied by the pipeline service.
type Responder interface {
	Respond(ctx context.Context, userMessage string) ([]chat.Message, error)
}

// Session is the state holder behind one front-end connection. The avatar
// plays messages front-to-back; MessagePlayed pops the finished one.
type Session struct {
	mu        sync.Mutex
	responder Responder
	queue     []chat.Message
	loading   bool
	capture   *captureMachine
	logger    zerolog.Logger
}

// New creates a session with the given no-speech timeout; zero selects the
// default.
func New(responder Responder, noSpeechTimeout time.Duration, logger zerolog.Logger) *Session {
	if noSpeechTimeout <= 0 {
		noSpeechTimeout = DefaultNoSpeechTimeout
	}
	return &Session{
		responder: responder,
		capture:   newCaptureMachine(noSpeechTimeout),
		logger:    logger.With().Str("component", "session").Logger(),
	}
}

// Submit runs the pipeline for text and appends the resulting messages to
// the queue. The returned slice is the full pending queue. A pipeline error
// still enqueues the fallback messages it carried.
func (s *Session) Submit(ctx context.Context, text string) ([]chat.Message, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	messages, err := s.responder.Respond(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("turn degraded to fallback")
	}

	s.mu.Lock()
	s.loading = false
	s.queue = append(s.queue, messages...)
	queue := append([]chat.Message(nil), s.queue...)
	s.mu.Unlock()

	return queue, err
}

// Queue returns a copy of the pending messages in presentation order.
func (s *Session) Queue() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.queue...)
}

// Current returns the message the avatar should be speaking, if any.
func (s *Session) Current() (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return chat.Message{}, false
	}
	return s.queue[0], true
}

// MessagePlayed pops the front of the queue after playback completes.
func (s *Session) MessagePlayed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		s.queue = s.queue[1:]
	}
}

// Loading reports whether a turn is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// StartCapture begins a voice capture. Only valid from idle.
func (s *Session) StartCapture() Transition {
	return s.capture.start()
}

// HandleCaptureEvent advances the capture machine with one discrete
// recognition event and returns the resulting transition.
func (s *Session) HandleCaptureEvent(ev Event) Transition {
	return s.capture.handle(ev)
}

// CaptureState exposes the current capture state.
func (s *Session) CaptureState() CaptureState {
	return s.capture.state()
}

// SetTimeoutHook registers a callback invoked when the no-speech timer fires
// and forces a transition; the websocket layer uses it to act on
// timer-driven finalization.
func (s *Session) SetTimeoutHook(hook func(Transition)) {
	s.capture.setTimeoutHook(hook)
}
