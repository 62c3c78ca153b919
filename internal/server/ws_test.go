package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/livespell/internal/server"
	"github.com/MrWong99/livespell/pkg/provider/analysis/mock"
	langmock "github.com/MrWong99/livespell/pkg/provider/langdetect/mock"
	"github.com/MrWong99/livespell/pkg/types"
)

type wsClient struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func dialWS(t *testing.T, deps server.Deps) (*wsClient, *sessions) {
	t.Helper()
	return dialWSSessions(t, deps, &sessions{})
}

// dialWSSessions is dialWS with a preconfigured session factory.
func dialWSSessions(t *testing.T, deps server.Deps, sess *sessions) (*wsClient, *sessions) {
	t.Helper()
	if deps.Observe == nil {
		deps.Observe = testMetrics(t)
	}
	sess.analyzer, sess.metrics = deps.Analyzer, deps.Observe
	deps.Sessions = sess
	ts := httptest.NewServer(newServer(t, deps))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return &wsClient{t: t, ctx: ctx, conn: conn}, sess
}

func (c *wsClient) send(msg server.ClientMessage) {
	c.t.Helper()
	if err := wsjson.Write(c.ctx, c.conn, msg); err != nil {
		c.t.Fatalf("write %s: %v", msg.Type, err)
	}
}

// next reads messages until one satisfies match.
func (c *wsClient) next(match func(server.ServerMessage) bool) server.ServerMessage {
	c.t.Helper()
	for {
		var msg server.ServerMessage
		if err := wsjson.Read(c.ctx, c.conn, &msg); err != nil {
			c.t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isError(msg server.ServerMessage) bool { return msg.Type == server.MsgError }

func TestWS_InitialState(t *testing.T) {
	t.Parallel()
	c, _ := dialWS(t, server.Deps{Analyzer: &mock.Provider{}})

	msg := c.next(func(server.ServerMessage) bool { return true })
	if msg.Type != server.MsgState || msg.State == nil {
		t.Fatalf("first message = %+v, want state", msg)
	}
	if msg.State.SessionID == "" || msg.State.Text != "" {
		t.Errorf("initial state = %+v", msg.State)
	}
}

func TestWS_EditAnalyzesOnBoundary(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{Responses: map[string][]types.WordFinding{
		"helo ": {{Word: "helo", Suggestions: []string{"hello"}}, {Word: " ", IsCorrect: true}},
	}}
	c, _ := dialWS(t, server.Deps{Analyzer: p})

	c.send(server.ClientMessage{Type: server.MsgEdit, Text: "helo"})
	c.send(server.ClientMessage{Type: server.MsgEdit, Text: "helo ", Inserted: " "})

	msg := c.next(func(m server.ServerMessage) bool {
		return m.State != nil && len(m.State.Findings) > 0
	})
	if msg.State.Text != "helo " || msg.State.Findings[0].Word != "helo" {
		t.Errorf("state = %+v", msg.State)
	}
	if got := p.Texts(); len(got) != 1 || got[0] != "helo " {
		t.Errorf("analysed texts = %q, want only the boundary edit", got)
	}
}

func TestWS_LanguageName(t *testing.T) {
	t.Parallel()
	c, _ := dialWSSessions(t, server.Deps{Analyzer: &mock.Provider{}}, &sessions{
		language: &langmock.Provider{Language: "de"},
	})

	c.send(server.ClientMessage{Type: server.MsgSetText, Text: "guten Tag "})

	msg := c.next(func(m server.ServerMessage) bool {
		return m.State != nil && m.State.Language != ""
	})
	if msg.State.Language != "de" || msg.State.LanguageName != "German" {
		t.Errorf("language = %q (%q), want de (German)", msg.State.Language, msg.State.LanguageName)
	}
}

func TestWS_ApplyCorrection(t *testing.T) {
	t.Parallel()
	c, _ := dialWS(t, server.Deps{Analyzer: &mock.Provider{}})

	c.send(server.ClientMessage{Type: server.MsgSetText, Text: "helo world, helo"})
	c.send(server.ClientMessage{Type: server.MsgApply, Target: "helo", Replacement: "hello"})

	msg := c.next(func(m server.ServerMessage) bool {
		return m.State != nil && m.State.Text == "hello world, hello"
	})
	if msg.Type != server.MsgState {
		t.Errorf("type = %q", msg.Type)
	}
}

func TestWS_Errors(t *testing.T) {
	t.Parallel()
	c, _ := dialWS(t, server.Deps{Analyzer: &mock.Provider{}})

	c.send(server.ClientMessage{Type: server.MsgDismiss, ID: 99})
	if msg := c.next(isError); !strings.Contains(msg.Error, "99") {
		t.Errorf("dismiss error = %q", msg.Error)
	}

	c.send(server.ClientMessage{Type: "bogus"})
	if msg := c.next(isError); !strings.Contains(msg.Error, "bogus") {
		t.Errorf("unknown type error = %q", msg.Error)
	}

	// The connection survives both errors.
	c.send(server.ClientMessage{Type: server.MsgSetText, Text: "still here"})
	c.next(func(m server.ServerMessage) bool { return m.State != nil && m.State.Text == "still here" })
}

func TestWS_FailedAnalysisBecomesNotice(t *testing.T) {
	t.Parallel()
	c, _ := dialWS(t, server.Deps{Analyzer: &mock.Provider{Err: errors.New("backend down")}})

	c.send(server.ClientMessage{Type: server.MsgSetText, Text: "some text"})
	msg := c.next(func(m server.ServerMessage) bool { return m.State != nil && len(m.State.Notices) > 0 })

	id := msg.State.Notices[0].ID
	c.send(server.ClientMessage{Type: server.MsgDismiss, ID: id})
	c.next(func(m server.ServerMessage) bool { return m.State != nil && len(m.State.Notices) == 0 })
}

func TestWS_CloseReleasesSession(t *testing.T) {
	t.Parallel()
	c, sess := dialWS(t, server.Deps{Analyzer: &mock.Provider{}})
	c.next(func(server.ServerMessage) bool { return true })
	if sess.count() != 1 {
		t.Fatalf("open sessions = %d, want 1", sess.count())
	}

	if err := c.conn.Close(websocket.StatusNormalClosure, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for sess.count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session not released after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWS_OpenFailure(t *testing.T) {
	t.Parallel()
	m := testMetrics(t)
	srv := newServer(t, server.Deps{
		Analyzer: &mock.Provider{},
		Sessions: &sessions{openErr: errors.New("too many sessions")},
		Observe:  m,
	})
	rec := do(t, srv, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
