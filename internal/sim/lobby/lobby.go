// Package lobby queues connected players and starts a session whenever enough
// of them are waiting. Its loop goroutine owns the queue; sessions run on
// their own goroutines.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/catalogs"
	"inventors.io/internal/sim/session"
)

const (
	lobbyRequestTimeout = 5 * time.Second
	defaultKeepResults  = 256
)

var (
	ErrClosed      = errors.New("lobby closed")
	ErrAlreadyIn   = errors.New("player already queued")
	ErrQueueIsFull = errors.New("lobby queue is full")
)

type Config struct {
	PlayersPerSession int
	MaxActiveSessions int
	// MaxWaiting bounds the queue; 0 means unlimited.
	MaxWaiting int
	// KeepResults caps the finished results held in memory; 0 means 256.
	KeepResults int
	Seed        int64

	Provider *catalogs.Provider
	Recorder session.Recorder
	Log      *log.Logger
	// SessionLog builds the logger handed to each session.
	SessionLog func(sessionID string) *log.Logger
}

type JoinRequest struct {
	Conn session.Conn
	Name string
	Resp chan error
}

type Stats struct {
	Waiting  int `json:"waiting"`
	Active   int `json:"active"`
	Finished int `json:"finished"`
	Aborted  int `json:"aborted"`
	Kicks    int `json:"kicks"`
}

type finished struct {
	id  string
	res session.Result
	err error
}

// denier is implemented by connections that can refuse a player with
// GAME_DENIED instead of KICKED.
type denier interface {
	Deny(code, reason string)
}

type waiter struct {
	conn session.Conn
	name string
}

type Lobby struct {
	cfg Config
	log *log.Logger

	join  chan JoinRequest
	leave chan string
	// wake tells the loop a session slot was freed.
	wake chan struct{}

	// Loop-owned.
	waiting []waiter
	seq     int64

	mu       sync.Mutex
	active   map[string]*session.Session
	stats    Stats
	results  []session.Result
	closed   bool
	sessions sync.WaitGroup
}

func New(cfg Config) (*Lobby, error) {
	if cfg.PlayersPerSession < 1 {
		return nil, fmt.Errorf("players per session must be >= 1")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("lobby needs a catalog provider")
	}
	if cfg.Log == nil {
		cfg.Log = log.New(log.Writer(), "[lobby] ", log.LstdFlags|log.Lmicroseconds)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.KeepResults <= 0 {
		cfg.KeepResults = defaultKeepResults
	}
	return &Lobby{
		cfg:    cfg,
		log:    cfg.Log,
		join:   make(chan JoinRequest, 64),
		leave:  make(chan string, 64),
		wake:   make(chan struct{}, 1),
		active: map[string]*session.Session{},
	}, nil
}

// Join queues conn. It returns once the lobby accepted or denied the player;
// the session itself starts later.
func (l *Lobby) Join(ctx context.Context, conn session.Conn, name string) error {
	if l.isClosed() {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, lobbyRequestTimeout)
	defer cancel()

	req := JoinRequest{Conn: conn, Name: name, Resp: make(chan error, 1)}
	select {
	case l.join <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.Resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave drops a waiting player. Seated players are handled by their session.
func (l *Lobby) Leave(playerID string) {
	select {
	case l.leave <- playerID:
	default:
		l.log.Printf("leave queue full, dropping leave for %s", playerID)
	}
}

func (l *Lobby) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Sessions lists the active sessions, oldest first.
func (l *Lobby) Sessions() []session.Status {
	l.mu.Lock()
	out := make([]session.Status, 0, len(l.active))
	for _, s := range l.active {
		out = append(out, s.Status())
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Started.Equal(out[j].Started) {
			return out[i].Started.Before(out[j].Started)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Results returns the outcomes of the most recent finished sessions, oldest first.
func (l *Lobby) Results() []session.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]session.Result(nil), l.results...)
}

// Run owns the waiting queue until ctx is done, then denies everyone still
// waiting and waits for the running sessions to wind down.
func (l *Lobby) Run(ctx context.Context) error {
	defer l.sessions.Wait()
	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case req := <-l.join:
			req.Resp <- l.enqueue(req)
			l.match(ctx)
		case id := <-l.leave:
			l.dequeue(id)
		case <-l.wake:
			l.match(ctx)
		}
	}
}

func (l *Lobby) enqueue(req JoinRequest) error {
	if l.isClosed() {
		return ErrClosed
	}
	for _, w := range l.waiting {
		if w.conn.ID() == req.Conn.ID() {
			return ErrAlreadyIn
		}
	}
	if l.cfg.MaxWaiting > 0 && len(l.waiting) >= l.cfg.MaxWaiting {
		return ErrQueueIsFull
	}
	name := req.Name
	if name == "" {
		name = "player"
	}
	l.waiting = append(l.waiting, waiter{conn: req.Conn, name: name})
	l.setWaiting()
	l.log.Printf("%s (%s) waiting, %d/%d", name, req.Conn.ID(), len(l.waiting), l.cfg.PlayersPerSession)
	return nil
}

func (l *Lobby) dequeue(id string) {
	for i, w := range l.waiting {
		if w.conn.ID() == id {
			l.waiting = append(l.waiting[:i], l.waiting[i+1:]...)
			l.setWaiting()
			l.log.Printf("%s left the queue", w.name)
			return
		}
	}
}

// match starts sessions while enough players wait and capacity allows.
func (l *Lobby) match(ctx context.Context) {
	for len(l.waiting) >= l.cfg.PlayersPerSession {
		l.mu.Lock()
		full := l.cfg.MaxActiveSessions > 0 && len(l.active) >= l.cfg.MaxActiveSessions
		l.mu.Unlock()
		if full {
			return
		}

		group := append([]waiter(nil), l.waiting[:l.cfg.PlayersPerSession]...)
		l.waiting = append(l.waiting[:0], l.waiting[l.cfg.PlayersPerSession:]...)
		l.setWaiting()

		if err := l.start(ctx, group); err != nil {
			l.log.Printf("start session: %v", err)
			for _, w := range group {
				w.conn.Kick(protocol.ErrInternal, "could not start session")
			}
		}
	}
}

func (l *Lobby) start(ctx context.Context, group []waiter) error {
	l.seq++
	id := uuid.NewString()
	entrants := make([]session.Entrant, 0, len(group))
	for _, w := range group {
		entrants = append(entrants, session.Entrant{Conn: w.conn, Name: w.name})
	}
	var sessLog *log.Logger
	if l.cfg.SessionLog != nil {
		sessLog = l.cfg.SessionLog(id)
	}
	deck := l.cfg.Provider.NewDeck(rand.New(rand.NewSource(l.cfg.Seed + l.seq)))
	s, err := session.New(session.Config{ID: id, Deck: deck, Log: sessLog, Recorder: l.cfg.Recorder}, entrants)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.active[id] = s
	l.stats.Active = len(l.active)
	l.mu.Unlock()
	l.log.Printf("session %s started with %d players", id, len(entrants))

	l.sessions.Add(1)
	go func() {
		defer l.sessions.Done()
		res, err := s.Run(ctx)
		l.finish(finished{id: id, res: res, err: err})
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}()
	return nil
}

func (l *Lobby) finish(f finished) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.active[f.id]; !ok {
		return
	}
	delete(l.active, f.id)
	l.stats.Active = len(l.active)
	l.stats.Kicks += f.res.Kicks
	if f.res.Aborted {
		l.stats.Aborted++
	} else {
		l.stats.Finished++
	}
	l.results = append(l.results, f.res)
	if over := len(l.results) - l.cfg.KeepResults; over > 0 {
		l.results = append(l.results[:0:0], l.results[over:]...)
	}
	if f.err != nil && !errors.Is(f.err, context.Canceled) {
		l.log.Printf("session %s ended with error: %v", f.id, f.err)
	} else {
		l.log.Printf("session %s ended after %d turns, winner %q", f.id, f.res.Turns, f.res.WinnerID)
	}
}

func (l *Lobby) shutdown() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	for _, w := range l.waiting {
		if d, ok := w.conn.(denier); ok {
			d.Deny(protocol.ErrLobbyClosed, "server shutting down")
			continue
		}
		w.conn.Kick(protocol.ErrLobbyClosed, "server shutting down")
	}
	l.waiting = nil
	l.setWaiting()
}

func (l *Lobby) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Lobby) setWaiting() {
	l.mu.Lock()
	l.stats.Waiting = len(l.waiting)
	l.mu.Unlock()
}
