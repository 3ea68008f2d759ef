package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	PlayerID        string         `json:"player_id"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	InventionsDigest string `json:"inventions_digest"`
	InventorsDigest  string `json:"inventors_digest"`
}

// GAME_DENIED (server -> client), sent instead of seating the client. The connection is closed afterwards.
type GameDeniedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Reason          string `json:"reason"`
}

// GAME_STARTED (server -> client)
type GameStartedMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	SessionID       string           `json:"session_id"`
	PlayerID        string           `json:"player_id"`
	Team            string           `json:"team"`
	Era             int              `json:"era"`
	Roster          []PlayerState    `json:"roster"`
	Table           []InventionState `json:"table"`
}

// TURN_STARTED (server -> client). Answered by a REPLY carrying an action.
type TurnStartedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
}

// REWARD_OFFER (server -> client). Answered by a REPLY carrying an index into Rewards.
type RewardOfferMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ReqID           string   `json:"req_id"`
	Invention       string   `json:"invention"`
	Contribution    int      `json:"contribution"`
	Rewards         []Reward `json:"rewards"`
}

// REPLY (client -> server)
type ReplyMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ReqID           string       `json:"req_id"`
	Action          *ActionReply `json:"action,omitempty"`
	Index           *int         `json:"index,omitempty"`
}

const (
	ActionMakeAvailable = "MAKE_AVAILABLE"
	ActionWork          = "WORK"
)

type ActionReply struct {
	Kind      string `json:"kind"`
	Inventor  string `json:"inventor,omitempty"`
	Invention string `json:"invention,omitempty"`
}

// LOG (server -> client)
type LogMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// SYNCHRONIZE (server -> client)
type SynchronizeMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Era             int              `json:"era"`
	Roster          []PlayerState    `json:"roster"`
	Table           []InventionState `json:"table"`
}

// GAME_ENDED (server -> client)
type GameEndedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Victory         bool   `json:"victory"`
	Score           int    `json:"score"`
	Winner          string `json:"winner,omitempty"`
}

// KICKED (server -> client), followed by close.
type KickedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Reason          string `json:"reason"`
}

type Knowledge struct {
	Phys int `json:"phys"`
	Chem int `json:"chem"`
	Mech int `json:"mech"`
	Math int `json:"math"`
}

type Reward struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type InventorState struct {
	Name      string    `json:"name"`
	Team      string    `json:"team"`
	Knowledge Knowledge `json:"knowledge"`
	Busy      bool      `json:"busy"`
}

type PlayerState struct {
	PlayerID   string          `json:"player_id"`
	Name       string          `json:"name"`
	Team       string          `json:"team"`
	TurnMarker bool            `json:"turn_marker"`
	Score      int             `json:"score"`
	Completed  []string        `json:"completed"`
	Inventors  []InventorState `json:"inventors"`
}

type InventionState struct {
	Name          string         `json:"name"`
	Era           int            `json:"era"`
	Required      Knowledge      `json:"required"`
	Actual        Knowledge      `json:"actual"`
	Completed     bool           `json:"completed"`
	Contributions map[string]int `json:"contributions"`
	Rewards       []Reward       `json:"rewards"`
}
