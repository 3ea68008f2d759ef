package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/catalogs"
	"inventors.io/internal/sim/lobby"
	"inventors.io/internal/sim/session"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func startServer(t *testing.T, replyTimeout time.Duration) *httptest.Server {
	t.Helper()
	cat, err := catalogs.Load("../../../configs/catalog")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	l, err := lobby.New(lobby.Config{
		PlayersPerSession: 2,
		Seed:              7,
		Provider:          catalogs.NewProvider(cat),
		Log:               quietLogger(),
		SessionLog:        func(string) *log.Logger { return quietLogger() },
	})
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()

	srv := NewServer(l, quietLogger(), Options{ReplyTimeout: replyTimeout, HandshakeTimeout: time.Second})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func hello(t *testing.T, c *websocket.Conn, version string) {
	t.Helper()
	if err := c.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: version, AgentName: "bot"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
}

type outcome struct {
	welcomed bool
	started  bool
	kicked   *protocol.KickedMsg
	ended    *protocol.GameEndedMsg
	err      error
}

// play reads frames until KICKED or GAME_ENDED. On TURN_STARTED it answers
// with whatever reply builds, unless reply is nil.
func play(c *websocket.Conn, reply func(reqID string) any) outcome {
	var out outcome
	_ = c.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			out.err = err
			return out
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			out.err = err
			return out
		}
		switch base.Type {
		case protocol.TypeWelcome:
			out.welcomed = true
		case protocol.TypeGameStarted:
			out.started = true
		case protocol.TypeTurnStarted:
			if reply != nil {
				_ = c.WriteJSON(reply(base.ReqID))
			}
		case protocol.TypeKicked:
			var k protocol.KickedMsg
			_ = json.Unmarshal(msg, &k)
			out.kicked = &k
			return out
		case protocol.TypeGameEnded:
			var e protocol.GameEndedMsg
			_ = json.Unmarshal(msg, &e)
			out.ended = &e
			return out
		}
	}
}

func playBoth(t *testing.T, ts *httptest.Server, reply func(reqID string) any) []outcome {
	t.Helper()
	conns := []*websocket.Conn{dial(t, ts), dial(t, ts)}
	for _, c := range conns {
		hello(t, c, protocol.Version)
	}
	outs := make([]outcome, len(conns))
	var wg sync.WaitGroup
	for i, c := range conns {
		wg.Add(1)
		go func(i int, c *websocket.Conn) {
			defer wg.Done()
			outs[i] = play(c, reply)
		}(i, c)
	}
	wg.Wait()
	return outs
}

// checkOneKickedOneWon asserts the player holding the first turn was kicked
// with code and the other one won.
func checkOneKickedOneWon(t *testing.T, outs []outcome, code string) {
	t.Helper()
	kicked, won := 0, 0
	for i, o := range outs {
		if o.err != nil {
			t.Fatalf("client %d: %v", i, o.err)
		}
		if !o.welcomed || !o.started {
			t.Fatalf("client %d: welcomed=%v started=%v", i, o.welcomed, o.started)
		}
		if o.kicked != nil {
			kicked++
			if o.kicked.Code != code {
				t.Fatalf("client %d kicked with %q, want %q", i, o.kicked.Code, code)
			}
		}
		if o.ended != nil && o.ended.Victory {
			won++
		}
	}
	if kicked != 1 || won != 1 {
		t.Fatalf("kicked=%d won=%d", kicked, won)
	}
}

func TestServer_InvalidReplyKicksAndOtherWins(t *testing.T) {
	ts := startServer(t, 2*time.Second)
	outs := playBoth(t, ts, func(reqID string) any {
		return protocol.ReplyMsg{
			Type:            protocol.TypeReply,
			ProtocolVersion: protocol.Version,
			ReqID:           reqID,
			Action:          &protocol.ActionReply{Kind: protocol.ActionWork, Inventor: "Nobody", Invention: "Nothing"},
		}
	})
	checkOneKickedOneWon(t, outs, protocol.ErrUnknownTarget)
}

func TestServer_ReplyTimeoutKicks(t *testing.T) {
	ts := startServer(t, 100*time.Millisecond)
	outs := playBoth(t, ts, nil)
	checkOneKickedOneWon(t, outs, protocol.ErrNotResponding)
}

func TestServer_BadVersionCloses(t *testing.T) {
	ts := startServer(t, time.Second)
	c := dial(t, ts)
	hello(t, c, "0.1")
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

type closedLobby struct{}

func (closedLobby) Join(context.Context, session.Conn, string) error { return lobby.ErrClosed }
func (closedLobby) Leave(string)                                    {}

func TestServer_DeniedWhenLobbyClosed(t *testing.T) {
	srv := NewServer(closedLobby{}, quietLogger(), Options{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := dial(t, ts)
	hello(t, c, protocol.Version)
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))

	var denied protocol.GameDeniedMsg
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, _ := protocol.DecodeBase(msg)
		if base.Type == protocol.TypeGameDenied {
			_ = json.Unmarshal(msg, &denied)
			break
		}
	}
	if denied.Code != protocol.ErrLobbyClosed {
		t.Fatalf("code=%q", denied.Code)
	}
}

func TestConn_LateReplyIsDropped(t *testing.T) {
	c := newConn("p1", "bot", nil, quietLogger(), 20*time.Millisecond, 4)
	got := make(chan error, 2)
	if err := c.Request(func(reqID string) any { return map[string]string{"req_id": reqID} }, func(_ []byte, err error) {
		got <- err
	}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	select {
	case err := <-got:
		if !errors.Is(err, ErrReplyTimeout) {
			t.Fatalf("expected timeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ack never called")
	}
	if err := c.resolve("p1-1", []byte(`{}`)); !errors.Is(err, errUnknownRequest) {
		t.Fatalf("late reply should be unknown, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("ack called twice")
	}
}
