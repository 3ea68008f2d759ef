package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/lobby"
	"inventors.io/internal/sim/session"
)

// Lobby is where handshaken connections are queued.
type Lobby interface {
	Join(ctx context.Context, conn session.Conn, name string) error
	Leave(playerID string)
}

type Options struct {
	ReplyTimeout     time.Duration
	HandshakeTimeout time.Duration
	SendQueue        int
	Digests          protocol.CatalogDigests
}

type Server struct {
	lobby Lobby
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader
}

func NewServer(l Lobby, logger *log.Logger, opts Options) *Server {
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 30 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	s := &Server{
		lobby: l,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer wsConn.Close()

		name, ok := s.handshake(wsConn)
		if !ok {
			return
		}

		c := newConn(uuid.NewString(), name, wsConn, s.log, s.opts.ReplyTimeout, s.opts.SendQueue)
		go c.writeLoop()
		defer c.shutdown()

		if err := c.Send(protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			PlayerID:        c.ID(),
			Catalogs:        s.opts.Digests,
		}); err != nil {
			return
		}
		if err := s.lobby.Join(context.Background(), c, name); err != nil {
			s.log.Printf("deny %s (%s): %v", name, c.ID(), err)
			c.Deny(denyCode(err), err.Error())
			s.drain(c)
			return
		}

		s.readLoop(c)
		s.lobby.Leave(c.ID())
	}
}

func (s *Server) handshake(conn *websocket.Conn) (name string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(s.opts.HandshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return "", false
	}
	if base.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return "", false
	}
	if err := protocol.Validate(protocol.SchemaHello, msg); err != nil {
		closePolicy(conn, "invalid HELLO")
		return "", false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	name = strings.TrimSpace(hello.AgentName)
	if name == "" {
		name = "player"
	}
	return name, true
}

// readLoop routes REPLY frames to their pending requests until the socket
// closes.
func (s *Server) readLoop(c *Conn) {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type != protocol.TypeReply || base.ProtocolVersion != protocol.Version {
			continue
		}
		if err := c.resolve(base.ReqID, msg); err != nil {
			s.log.Printf("%s: dropping reply %q: %v", c.ID(), base.ReqID, err)
		}
	}
}

// drain keeps reading until the peer closes so queued frames get flushed.
func (s *Server) drain(c *Conn) {
	_ = c.ws.SetReadDeadline(time.Now().Add(writeWait))
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func denyCode(err error) string {
	switch {
	case errors.Is(err, lobby.ErrClosed):
		return protocol.ErrLobbyClosed
	case errors.Is(err, lobby.ErrQueueIsFull):
		return protocol.ErrLobbyFull
	case errors.Is(err, lobby.ErrAlreadyIn):
		return protocol.ErrProtoBadRequest
	default:
		return protocol.ErrInternal
	}
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}
