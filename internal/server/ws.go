package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/livespell/internal/spellcheck"
)

// Client → server message types.
const (
	MsgEdit    = "edit"
	MsgSetText = "set_text"
	MsgBlur    = "blur"
	MsgApply   = "apply"
	MsgDismiss = "dismiss"
)

// Server → client message types.
const (
	MsgState = "state"
	MsgError = "error"
)

const writeTimeout = 5 * time.Second

// ClientMessage is one instruction from the editor.
//
//	{"type":"edit","text":"helo ","inserted":" "}
//	{"type":"set_text","text":"whole document"}
//	{"type":"blur"}
//	{"type":"apply","target":"helo","replacement":"hello"}
//	{"type":"dismiss","id":3}
type ClientMessage struct {
	Type string `json:"type"`

	// Text is the full buffer after the edit (edit, set_text).
	Text string `json:"text,omitempty"`

	// Inserted is the text the keystroke produced; derived from the previous
	// buffer when empty (edit).
	Inserted string `json:"inserted,omitempty"`

	Target      string `json:"target,omitempty"`
	Replacement string `json:"replacement,omitempty"`

	// ID selects the notice to dismiss.
	ID uint64 `json:"id,omitempty"`
}

// ServerMessage is pushed to the editor.
type ServerMessage struct {
	Type  string               `json:"type"`
	State *spellcheck.Snapshot `json:"state,omitempty"`
	Error string               `json:"error,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Open()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer func() { _ = s.deps.Sessions.Close(sess.ID()) }()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.deps.AllowedOrigins,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "session", sess.ID(), "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(s.deps.MaxTextBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		s.pushStates(ctx, conn, updates)
	}()

	err = s.readLoop(ctx, conn, sess)
	cancel()
	<-writerDone

	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure, status == websocket.StatusGoingAway:
		_ = conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, context.Canceled):
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		slog.Debug("websocket closed", "session", sess.ID(), "err", err)
	}
}

// pushStates forwards session snapshots until updates closes or ctx ends.
func (s *Server) pushStates(ctx context.Context, conn *websocket.Conn, updates <-chan spellcheck.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := write(ctx, conn, ServerMessage{Type: MsgState, State: &snap}); err != nil {
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *spellcheck.Session) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		if err := dispatch(sess, msg); err != nil {
			if werr := write(ctx, conn, ServerMessage{Type: MsgError, Error: err.Error()}); werr != nil {
				return werr
			}
		}
	}
}

// dispatch applies one client message to sess. Returned errors are reported
// to the client; the connection stays open.
func dispatch(sess *spellcheck.Session, msg ClientMessage) error {
	switch msg.Type {
	case MsgEdit:
		sess.Edit(msg.Text, spellcheck.EditEvent{Kind: spellcheck.EventInput, Inserted: msg.Inserted})
	case MsgSetText:
		sess.SetText(msg.Text)
	case MsgBlur:
		sess.Blur()
	case MsgApply:
		// Failures surface as a notice in the next state push.
		_, err := sess.ApplyCorrection(msg.Target, msg.Replacement)
		if err != nil && !errors.Is(err, spellcheck.ErrMalformedPattern) {
			return err
		}
	case MsgDismiss:
		if !sess.DismissNotice(msg.ID) {
			return fmt.Errorf("no notice with id %d", msg.ID)
		}
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func write(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
