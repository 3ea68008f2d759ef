package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/bridge"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendQueueFull  = errors.New("send queue full")
	ErrReplyTimeout   = errors.New("reply timeout")
	errUnknownRequest = errors.New("unknown req_id")
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type frame struct {
	b []byte
	// close tears the socket down once b is written.
	close bool
}

type pending struct {
	ack   bridge.Ack
	timer *time.Timer
}

// Conn is one seated (or waiting) player. It satisfies session.Conn.
//
// Writes go through out and are performed by the writer goroutine only.
// Replies arrive on the reader goroutine and are matched to pending
// requests by req_id.
type Conn struct {
	id   string
	name string
	ws   *websocket.Conn
	log  *log.Logger

	replyTimeout time.Duration
	out          chan frame
	done         chan struct{}

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pending
	closed  bool

	doneOnce sync.Once
}

func newConn(id, name string, c *websocket.Conn, logger *log.Logger, replyTimeout time.Duration, queue int) *Conn {
	if queue <= 0 {
		queue = 32
	}
	return &Conn{
		id:           id,
		name:         name,
		ws:           c,
		log:          logger,
		replyTimeout: replyTimeout,
		out:          make(chan frame, queue),
		done:         make(chan struct{}),
		pending:      map[string]*pending{},
	}
}

func (c *Conn) ID() string   { return c.id }
func (c *Conn) Name() string { return c.name }

// Send queues msg without blocking.
func (c *Conn) Send(msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.enqueue(frame{b: b})
}

// Request sends the message built for a fresh req_id and arranges for ack to
// be called exactly once: with the raw REPLY, or with an error on timeout or
// disconnect.
func (c *Conn) Request(build func(reqID string) any, ack bridge.Ack) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	c.seq++
	reqID := fmt.Sprintf("%s-%d", c.id[:min(8, len(c.id))], c.seq)
	c.mu.Unlock()

	b, err := json.Marshal(build(reqID))
	if err != nil {
		return err
	}

	p := &pending{ack: ack}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	c.pending[reqID] = p
	p.timer = time.AfterFunc(c.replyTimeout, func() {
		c.fail(reqID, fmt.Errorf("%w after %s", ErrReplyTimeout, c.replyTimeout))
	})
	c.mu.Unlock()

	if err := c.enqueue(frame{b: b}); err != nil {
		c.take(reqID)
		return err
	}
	return nil
}

// Kick sends KICKED, closes the socket after it is flushed and fails every
// outstanding request.
func (c *Conn) Kick(code, reason string) {
	b, _ := json.Marshal(protocol.KickedMsg{
		Type:            protocol.TypeKicked,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Reason:          reason,
	})
	c.closeWith(b)
}

// Deny refuses the player with GAME_DENIED and closes the socket like Kick.
func (c *Conn) Deny(code, reason string) {
	b, _ := json.Marshal(protocol.GameDeniedMsg{
		Type:            protocol.TypeGameDenied,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Reason:          reason,
	})
	c.closeWith(b)
}

func (c *Conn) closeWith(last []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	queued := false
	select {
	case c.out <- frame{b: last, close: true}:
		queued = true
	default:
	}
	outstanding := c.drainLocked()
	c.mu.Unlock()

	if !queued {
		_ = c.ws.Close()
	}
	for _, p := range outstanding {
		p.ack(nil, ErrConnClosed)
	}
}

func (c *Conn) enqueue(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.out <- f:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// resolve delivers a REPLY to its pending request.
func (c *Conn) resolve(reqID string, raw []byte) error {
	p := c.take(reqID)
	if p == nil {
		return errUnknownRequest
	}
	p.ack(raw, nil)
	return nil
}

func (c *Conn) fail(reqID string, err error) {
	if p := c.take(reqID); p != nil {
		p.ack(nil, err)
	}
}

func (c *Conn) take(reqID string) *pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[reqID]
	if !ok {
		return nil
	}
	delete(c.pending, reqID)
	p.timer.Stop()
	return p
}

func (c *Conn) drainLocked() []*pending {
	out := make([]*pending, 0, len(c.pending))
	for id, p := range c.pending {
		p.timer.Stop()
		out = append(out, p)
		delete(c.pending, id)
	}
	return out
}

// shutdown runs when the reader exits. It stops the writer and fails whatever
// is still pending.
func (c *Conn) shutdown() {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		outstanding := c.drainLocked()
		c.mu.Unlock()
		close(c.done)
		_ = c.ws.Close()
		for _, p := range outstanding {
			p.ack(nil, ErrConnClosed)
		}
	})
}

func (c *Conn) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.ws.Close()
				return
			}
		case f := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, f.b); err != nil {
				_ = c.ws.Close()
				return
			}
			if f.close {
				_ = c.ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = c.ws.Close()
				return
			}
		}
	}
}
