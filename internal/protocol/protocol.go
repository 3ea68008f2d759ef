package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello       = "HELLO"
	TypeWelcome     = "WELCOME"
	TypeGameDenied  = "GAME_DENIED"
	TypeGameStarted = "GAME_STARTED"
	TypeTurnStarted = "TURN_STARTED"
	TypeRewardOffer = "REWARD_OFFER"
	TypeReply       = "REPLY"
	TypeLog         = "LOG"
	TypeSynchronize = "SYNCHRONIZE"
	TypeGameEnded   = "GAME_ENDED"
	TypeKicked      = "KICKED"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ReqID           string `json:"req_id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
