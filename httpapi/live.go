package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/codeyard/internal/eventbus"
	"pkt.systems/codeyard/internal/logx"
	"pkt.systems/codeyard/schema"
)

const (
	liveReadDeadline  = 60 * time.Second
	livePingInterval  = 30 * time.Second
	liveWriteDeadline = 10 * time.Second
	liveMaxMessage    = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// liveFrame is one server-to-client websocket message.
type liveFrame struct {
	Type  string               `json:"type"`
	State *schema.SessionState `json:"state,omitempty"`
	Event *schema.SessionEvent `json:"event,omitempty"`
	Ack   *schema.UpdateAck    `json:"ack,omitempty"`
	Error string               `json:"error,omitempty"`
}

// liveCommand is one client-to-server websocket message.
type liveCommand struct {
	Type          string                `json:"type"`
	ParticipantID schema.ParticipantID  `json:"participant_id"`
	Code          string                `json:"code"`
	Position      schema.CursorPosition `json:"position"`
}

// handleLive streams session events over a websocket and accepts code and
// cursor updates from the client.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	log := logx.WithSession(r.Context(), id)
	if s.bus == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("live updates unavailable"))
		return
	}

	events, unsubscribe := s.bus.Subscribe(eventbus.SessionTopic(id))
	defer unsubscribe()
	state, err := s.service.GetSessionState(r.Context(), schema.GetSessionStateRequest{SessionID: id})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("http live upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(liveMaxMessage)

	ctx, cancel := context.WithCancel(logx.ContextWithSessionLogger(r.Context(), log, id))
	defer cancel()
	replies := make(chan liveFrame, 16)
	go s.readLive(ctx, cancel, conn, id, replies)

	if err := writeFrame(conn, liveFrame{Type: "snapshot", State: &state.State}); err != nil {
		return
	}
	log.Info("http live opened")

	order := revisionGate{last: state.State.Session.Revision}
	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("http live closed")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			sessionEvent := event.Session
			if !order.admit(sessionEvent) {
				log.Debug("http live dropped stale code update", "revision", sessionEvent.Revision, "last_revision", order.last)
				continue
			}
			if err := writeFrame(conn, liveFrame{Type: "event", Event: &sessionEvent}); err != nil {
				return
			}
			if sessionEvent.Type == schema.SessionEventReaped {
				closeLive(conn, "session reaped")
				log.Info("http live closed", "reason", "reaped")
				return
			}
		case frame := <-replies:
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// revisionGate drops code_updated events that do not advance the revision
// already delivered on the connection. Sinks are invoked after the session
// lock is released, so two writers can publish out of order.
type revisionGate struct {
	last uint64
}

func (g *revisionGate) admit(event schema.SessionEvent) bool {
	if event.Type != schema.SessionEventCodeUpdated {
		return true
	}
	if event.Revision <= g.last {
		return false
	}
	g.last = event.Revision
	return true
}

// readLive owns the read side of the connection. Replies are handed to the
// writer loop because a websocket allows one concurrent writer.
func (s *Server) readLive(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, id schema.SessionID, replies chan<- liveFrame) {
	defer cancel()
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(liveReadDeadline))
	})
	for {
		if err := conn.SetReadDeadline(time.Now().Add(liveReadDeadline)); err != nil {
			return
		}
		var cmd liveCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logx.WithSession(ctx, id).Debug("http live read failed", "err", err)
			}
			return
		}
		frame := s.applyLive(ctx, id, cmd)
		if frame == nil {
			continue
		}
		select {
		case replies <- *frame:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) applyLive(ctx context.Context, id schema.SessionID, cmd liveCommand) *liveFrame {
	switch cmd.Type {
	case "code":
		resp, err := s.service.UpdateCode(ctx, schema.UpdateCodeRequest{SessionID: id, ParticipantID: cmd.ParticipantID, Code: cmd.Code})
		if err != nil {
			return &liveFrame{Type: "error", Error: err.Error()}
		}
		return &liveFrame{Type: "ack", Ack: &resp.Ack}
	case "cursor":
		resp, err := s.service.UpdateCursor(ctx, schema.UpdateCursorRequest{SessionID: id, ParticipantID: cmd.ParticipantID, Position: cmd.Position})
		if err != nil {
			return &liveFrame{Type: "error", Error: err.Error()}
		}
		if !resp.Updated {
			return &liveFrame{Type: "error", Error: schema.ErrParticipantNotFound.Error()}
		}
		return nil
	default:
		return &liveFrame{Type: "error", Error: fmt.Sprintf("unknown command %q", cmd.Type)}
	}
}

func writeFrame(conn *websocket.Conn, frame liveFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteDeadline)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

func closeLive(conn *websocket.Conn, reason string) {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(liveWriteDeadline))
}
