package session

import (
	"sync"
	"time"
)

// CaptureState enumerates the voice-capture machine states.
type CaptureState int

const (
	CaptureIdle CaptureState = iota
	CaptureListening
	CaptureFinalizing
)

func (s CaptureState) String() string {
	switch s {
	case CaptureListening:
		return "listening"
	case CaptureFinalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

// EventKind enumerates the discrete recognition events driving the machine.
type EventKind int

const (
	// EventPartial carries an interim transcript from the recognizer.
	EventPartial EventKind = iota
	// EventFinal carries a final transcript.
	EventFinal
	// EventEnded signals the recognizer session closed on its own.
	EventEnded
	// EventTimeout is the no-speech timer firing.
	EventTimeout
	// EventError signals a recognizer failure.
	EventError
	// EventStop is an explicit stop request from the user.
	EventStop
)

// Event is one discrete input to the capture machine.
type Event struct {
	Kind       EventKind
	Transcript string
}

// Transition is the outcome of one event: the new state, whether the
// recognizer should be restarted, and the transcript to submit when the
// capture finished with usable speech.
type Transition struct {
	State      CaptureState
	Restart    bool
	Transcript string
	Submit     bool
}

// captureMachine is the explicit {idle, listening, finalizing} machine. The
// restart-vs-finish decision is made on the transition for EventEnded: a
// session that closed with a final transcript finishes, one that closed
// mid-utterance restarts.
type captureMachine struct {
	mu      sync.Mutex
	current CaptureState
	interim string
	final   string

	timeout     time.Duration
	timer       *time.Timer
	generation  int
	timeoutHook func(Transition)
}

func newCaptureMachine(timeout time.Duration) *captureMachine {
	return &captureMachine{timeout: timeout}
}

func (c *captureMachine) state() CaptureState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *captureMachine) setTimeoutHook(hook func(Transition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeoutHook = hook
}

func (c *captureMachine) start() Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != CaptureIdle {
		return Transition{State: c.current}
	}

	c.current = CaptureListening
	c.interim = ""
	c.final = ""
	c.armTimerLocked()
	return Transition{State: CaptureListening, Restart: true}
}

func (c *captureMachine) handle(ev Event) Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handleLocked(ev)
}

func (c *captureMachine) handleLocked(ev Event) Transition {
	if c.current != CaptureListening {
		// Events arriving outside a capture are stale; ignore them.
		return Transition{State: c.current}
	}

	switch ev.Kind {
	case EventPartial:
		if ev.Transcript != "" {
			c.interim = ev.Transcript
		}
		c.armTimerLocked()
		return Transition{State: CaptureListening}

	case EventFinal:
		if ev.Transcript != "" {
			c.final = ev.Transcript
		}
		return c.finalizeLocked()

	case EventEnded:
		if c.final != "" {
			return c.finalizeLocked()
		}
		// Closed without a final result: keep listening.
		c.armTimerLocked()
		return Transition{State: CaptureListening, Restart: true}

	case EventTimeout, EventError, EventStop:
		return c.finalizeLocked()

	default:
		return Transition{State: c.current}
	}
}

// finalizeLocked passes through finalizing and settles back to idle,
// preferring the final transcript over the best interim one.
func (c *captureMachine) finalizeLocked() Transition {
	c.current = CaptureFinalizing
	c.stopTimerLocked()

	transcript := c.final
	if transcript == "" {
		transcript = c.interim
	}
	c.interim = ""
	c.final = ""
	c.current = CaptureIdle

	return Transition{
		State:      CaptureIdle,
		Transcript: transcript,
		Submit:     transcript != "",
	}
}

func (c *captureMachine) armTimerLocked() {
	c.stopTimerLocked()
	c.generation++
	gen := c.generation
	c.timer = time.AfterFunc(c.timeout, func() {
		c.fireTimeout(gen)
	})
}

func (c *captureMachine) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *captureMachine) fireTimeout(gen int) {
	c.mu.Lock()
	if gen != c.generation || c.current != CaptureListening {
		c.mu.Unlock()
		return
	}
	transition := c.handleLocked(Event{Kind: EventTimeout})
	hook := c.timeoutHook
	c.mu.Unlock()

	if hook != nil {
		hook(transition)
	}
}
