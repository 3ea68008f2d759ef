package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Lobby.
	ErrLobbyClosed = "E_LOBBY_CLOSED"
	ErrLobbyFull   = "E_LOBBY_FULL"

	// Session/rule layer.
	ErrNotResponding  = "E_NOT_RESPONDING"
	ErrInvalidAction  = "E_INVALID_ACTION"
	ErrUnknownTarget  = "E_UNKNOWN_TARGET"
	ErrSessionAborted = "E_SESSION_ABORTED"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrLobbyClosed:     {},
	ErrLobbyFull:       {},
	ErrNotResponding:   {},
	ErrInvalidAction:   {},
	ErrUnknownTarget:   {},
	ErrSessionAborted:  {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
