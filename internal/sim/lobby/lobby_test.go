package lobby

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/bridge"
	"inventors.io/internal/sim/catalogs"
	"inventors.io/internal/sim/session"
)

// silentConn never answers: every request times out right away.
type silentConn struct {
	id string

	mu     sync.Mutex
	sent   []any
	kicked string
}

func (c *silentConn) ID() string { return c.id }

func (c *silentConn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *silentConn) Request(build func(reqID string) any, ack bridge.Ack) error {
	_ = build("r1")
	go ack(nil, errors.New("timeout"))
	return nil
}

func (c *silentConn) Kick(code, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kicked = code
}

// deniableConn is a silentConn whose transport can send GAME_DENIED.
type deniableConn struct {
	silentConn
	denied string
}

func (c *deniableConn) Deny(code, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.denied = code
}

func (c *deniableConn) deniedCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.denied
}

func (c *silentConn) kickCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kicked
}

func (c *silentConn) got(msgType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.sent {
		switch m.(type) {
		case protocol.GameStartedMsg:
			if msgType == protocol.TypeGameStarted {
				return true
			}
		case protocol.GameEndedMsg:
			if msgType == protocol.TypeGameEnded {
				return true
			}
		case protocol.GameDeniedMsg:
			if msgType == protocol.TypeGameDenied {
				return true
			}
		}
	}
	return false
}

func newTestLobby(t *testing.T, players int) *Lobby {
	t.Helper()
	cat, err := catalogs.Load("../../../configs/catalog")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	quiet := log.New(io.Discard, "", 0)
	l, err := New(Config{
		PlayersPerSession: players,
		Seed:              1,
		Provider:          catalogs.NewProvider(cat),
		Log:               quiet,
		SessionLog:        func(string) *log.Logger { return quiet },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func runLobby(t *testing.T, l *Lobby) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return cancel, done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLobby_StartsSessionWhenFull(t *testing.T) {
	l := newTestLobby(t, 2)
	cancel, done := runLobby(t, l)
	defer func() {
		cancel()
		<-done
	}()

	a, b := &silentConn{id: "a"}, &silentConn{id: "b"}
	if err := l.Join(context.Background(), a, "alice"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if got := l.Stats().Waiting; got != 1 {
		t.Fatalf("waiting=%d", got)
	}
	if err := l.Join(context.Background(), b, "bob"); err != nil {
		t.Fatalf("join b: %v", err)
	}

	waitFor(t, "session to finish", func() bool { return l.Stats().Finished == 1 })
	st := l.Stats()
	if st.Waiting != 0 || st.Active != 0 || st.Kicks != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if !a.got(protocol.TypeGameStarted) || !b.got(protocol.TypeGameStarted) {
		t.Fatalf("both players should get GAME_STARTED")
	}
	// a held the first turn and never answered.
	if a.kickCode() != protocol.ErrNotResponding || !b.got(protocol.TypeGameEnded) {
		t.Fatalf("a kicked=%q b ended=%v", a.kickCode(), b.got(protocol.TypeGameEnded))
	}
	res := l.Results()
	if len(res) != 1 || res[0].WinnerID != "b" {
		t.Fatalf("results=%+v", res)
	}
}

func TestLobby_LeaveAndDuplicates(t *testing.T) {
	l := newTestLobby(t, 3)
	cancel, done := runLobby(t, l)
	defer func() {
		cancel()
		<-done
	}()

	a := &silentConn{id: "a"}
	if err := l.Join(context.Background(), a, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := l.Join(context.Background(), a, "alice"); !errors.Is(err, ErrAlreadyIn) {
		t.Fatalf("expected ErrAlreadyIn, got %v", err)
	}
	l.Leave("a")
	waitFor(t, "leave", func() bool { return l.Stats().Waiting == 0 })
	if len(l.Sessions()) != 0 {
		t.Fatalf("no session should have started")
	}
}

func TestLobby_ShutdownDeniesWaiting(t *testing.T) {
	l := newTestLobby(t, 2)
	cancel, done := runLobby(t, l)

	a := &deniableConn{silentConn: silentConn{id: "a"}}
	if err := l.Join(context.Background(), a, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
	// One terminal message: GAME_DENIED, no KICKED on top.
	if a.deniedCode() != protocol.ErrLobbyClosed || a.kickCode() != "" {
		t.Fatalf("denied=%q kicked=%q", a.deniedCode(), a.kickCode())
	}
	if err := l.Join(context.Background(), &silentConn{id: "b"}, "bob"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestLobby_ShutdownKicksConnWithoutDeny(t *testing.T) {
	l := newTestLobby(t, 2)
	cancel, done := runLobby(t, l)

	a := &silentConn{id: "a"}
	if err := l.Join(context.Background(), a, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	cancel()
	<-done
	if a.kickCode() != protocol.ErrLobbyClosed || a.got(protocol.TypeGameDenied) {
		t.Fatalf("kicked=%q denied=%v", a.kickCode(), a.got(protocol.TypeGameDenied))
	}
}

func TestLobby_KeepsOnlyRecentResults(t *testing.T) {
	l := newTestLobby(t, 2)
	l.cfg.KeepResults = 2
	for _, id := range []string{"s1", "s2", "s3"} {
		l.mu.Lock()
		l.active[id] = nil
		l.mu.Unlock()
		l.finish(finished{id: id, res: session.Result{SessionID: id}})
	}
	res := l.Results()
	if len(res) != 2 || res[0].SessionID != "s2" || res[1].SessionID != "s3" {
		t.Fatalf("results=%+v", res)
	}
	if st := l.Stats(); st.Finished != 3 {
		t.Fatalf("finished=%d", st.Finished)
	}
}
