package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"inventors.io/internal/protocol"
	"inventors.io/internal/strategy"
)

var errDenied = errors.New("game denied")

type gameResult struct {
	PlayerID string
	Victory  bool
	Score    int
	Kicked   string
	Turns    int
}

// playGame connects, waits for a seat and plays until the game ends or the
// bot is kicked.
func playGame(ctx context.Context, url, name string, strat strategy.Strategy, logger *log.Logger) (gameResult, error) {
	var res gameResult
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return res, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, AgentName: name}
	if err := conn.WriteJSON(hello); err != nil {
		return res, fmt.Errorf("send HELLO: %w", err)
	}

	var state strategy.State
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, fmt.Errorf("read: %w", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				return res, err
			}
			state.PlayerID, res.PlayerID = w.PlayerID, w.PlayerID
			logger.Printf("WELCOME player_id=%s", w.PlayerID)

		case protocol.TypeGameDenied:
			var d protocol.GameDeniedMsg
			_ = json.Unmarshal(msg, &d)
			return res, fmt.Errorf("%w: %s %s", errDenied, d.Code, d.Reason)

		case protocol.TypeGameStarted:
			var g protocol.GameStartedMsg
			if err := json.Unmarshal(msg, &g); err != nil {
				return res, err
			}
			state.Era, state.Roster, state.Table = g.Era, g.Roster, g.Table
			logger.Printf("GAME_STARTED session=%s team=%s players=%d", g.SessionID, g.Team, len(g.Roster))

		case protocol.TypeSynchronize:
			var s protocol.SynchronizeMsg
			if err := json.Unmarshal(msg, &s); err != nil {
				return res, err
			}
			state.Era, state.Roster, state.Table = s.Era, s.Roster, s.Table

		case protocol.TypeTurnStarted:
			res.Turns++
			act := strat.ChooseAction(state)
			if err := reply(conn, protocol.ReplyMsg{Type: protocol.TypeReply, ProtocolVersion: protocol.Version, ReqID: base.ReqID, Action: &act}); err != nil {
				return res, err
			}

		case protocol.TypeRewardOffer:
			var o protocol.RewardOfferMsg
			if err := json.Unmarshal(msg, &o); err != nil {
				return res, err
			}
			idx := strat.ChooseReward(o)
			if err := reply(conn, protocol.ReplyMsg{Type: protocol.TypeReply, ProtocolVersion: protocol.Version, ReqID: base.ReqID, Index: &idx}); err != nil {
				return res, err
			}

		case protocol.TypeLog:
			var l protocol.LogMsg
			if err := json.Unmarshal(msg, &l); err == nil {
				logger.Printf("LOG %s", l.Text)
			}

		case protocol.TypeGameEnded:
			var e protocol.GameEndedMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				return res, err
			}
			res.Victory, res.Score = e.Victory, e.Score
			return res, nil

		case protocol.TypeKicked:
			var k protocol.KickedMsg
			_ = json.Unmarshal(msg, &k)
			res.Kicked = k.Code
			logger.Printf("KICKED %s: %s", k.Code, k.Reason)
			return res, nil
		}
	}
}

func reply(conn *websocket.Conn, m protocol.ReplyMsg) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(m); err != nil {
		return fmt.Errorf("send REPLY: %w", err)
	}
	return nil
}
