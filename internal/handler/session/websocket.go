// Package session exposes the front-end chat session over a websocket: the
// browser sends typed submit, playback and speech-recognition events, the
// backend pushes queue and capture-state updates.
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	chatmodel "github.com/soralis/avatarchat/internal/model/chat"
	"github.com/soralis/avatarchat/internal/session"
)

// Handler upgrades connections and binds each to its own chat session.
type Handler struct {
	responder session.Responder
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

// New creates the session websocket handler.
func New(responder session.Responder, logger zerolog.Logger) *Handler {
	return &Handler{
		responder: responder,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With().Str("component", "session-handler").Logger(),
	}
}

// RegisterRoutes mounts the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type submitPayload struct {
	Text string `json:"text"`
}

type capturePayload struct {
	Action string `json:"action"`
}

type recognitionPayload struct {
	Kind       string `json:"kind"`
	Transcript string `json:"transcript"`
}

type outboundMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type queueUpdate struct {
	Messages []chatmodel.Message `json:"messages"`
	Loading  bool                `json:"loading"`
}

type captureUpdate struct {
	State   string `json:"state"`
	Restart bool   `json:"restart,omitempty"`
}

// wsConn serializes writes; queue pushes race with timer-driven capture
// transitions otherwise.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msgType string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(outboundMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()[:8]
	log := h.logger.With().Str("conn", connID).Logger()
	c := &wsConn{conn: conn}
	sess := session.New(h.responder, 0, log)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess.SetTimeoutHook(func(t session.Transition) {
		h.applyTransition(ctx, c, sess, t, log)
	})

	log.Info().Msg("session connected")
	h.pushQueue(c, sess)

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("session read failed")
			}
			return
		}
		h.dispatch(ctx, c, sess, in, log)
	}
}

func (h *Handler) dispatch(ctx context.Context, c *wsConn, sess *session.Session, in inboundMessage, log zerolog.Logger) {
	switch in.Type {
	case "submit":
		var payload submitPayload
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			_ = c.send("error", map[string]string{"message": "invalid submit payload"})
			return
		}
		// Turns take seconds; keep the read loop responsive.
		go h.runTurn(ctx, c, sess, payload.Text, log)

	case "played":
		sess.MessagePlayed()
		h.pushQueue(c, sess)

	case "capture":
		var payload capturePayload
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			_ = c.send("error", map[string]string{"message": "invalid capture payload"})
			return
		}
		switch payload.Action {
		case "start":
			h.applyTransition(ctx, c, sess, sess.StartCapture(), log)
		case "stop":
			h.applyTransition(ctx, c, sess, sess.HandleCaptureEvent(session.Event{Kind: session.EventStop}), log)
		default:
			_ = c.send("error", map[string]string{"message": "unknown capture action"})
		}

	case "recognition":
		var payload recognitionPayload
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			_ = c.send("error", map[string]string{"message": "invalid recognition payload"})
			return
		}
		h.applyTransition(ctx, c, sess, sess.HandleCaptureEvent(recognitionEvent(payload)), log)

	default:
		_ = c.send("error", map[string]string{"message": "unknown message type"})
	}
}

func recognitionEvent(p recognitionPayload) session.Event {
	ev := session.Event{Transcript: p.Transcript}
	switch p.Kind {
	case "final":
		ev.Kind = session.EventFinal
	case "ended":
		ev.Kind = session.EventEnded
	case "error":
		ev.Kind = session.EventError
	default:
		ev.Kind = session.EventPartial
	}
	return ev
}

func (h *Handler) applyTransition(ctx context.Context, c *wsConn, sess *session.Session, t session.Transition, log zerolog.Logger) {
	if err := c.send("capture", captureUpdate{State: t.State.String(), Restart: t.Restart}); err != nil {
		log.Warn().Err(err).Msg("capture push failed")
		return
	}
	if t.Submit {
		go h.runTurn(ctx, c, sess, t.Transcript, log)
	}
}

func (h *Handler) runTurn(ctx context.Context, c *wsConn, sess *session.Session, text string, log zerolog.Logger) {
	_ = c.send("queue", queueUpdate{Messages: sess.Queue(), Loading: true})

	if _, err := sess.Submit(ctx, text); err != nil {
		log.Warn().Err(err).Msg("turn failed")
	}
	h.pushQueue(c, sess)
}

func (h *Handler) pushQueue(c *wsConn, sess *session.Session) {
	_ = c.send("queue", queueUpdate{Messages: sess.Queue(), Loading: sess.Loading()})
}
