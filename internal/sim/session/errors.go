package session

import (
	"errors"

	"inventors.io/internal/protocol"
	"inventors.io/internal/sim/actions"
	"inventors.io/internal/sim/rewards"
)

var (
	ErrPlayerNotResponding        = rewards.ErrPlayerNotResponding
	ErrRequestedInventorNotFound  = errors.New("requested inventor not found")
	ErrRequestedInventionNotFound = errors.New("requested invention not found")
	ErrCurrentPlayerNotFound      = errors.New("current player not found")
	ErrCantDetermineWinner        = errors.New("can't determine winner")
)

// kickCode maps a kick cause to the code sent in KICKED.
func kickCode(cause error) string {
	switch {
	case errors.Is(cause, ErrPlayerNotResponding):
		return protocol.ErrNotResponding
	case errors.Is(cause, ErrRequestedInventorNotFound), errors.Is(cause, ErrRequestedInventionNotFound):
		return protocol.ErrUnknownTarget
	case errors.Is(cause, actions.ErrBusyInventor),
		errors.Is(cause, actions.ErrIncompatibleInventor),
		errors.Is(cause, actions.ErrUnauthorizedAction):
		return protocol.ErrInvalidAction
	default:
		return protocol.ErrInternal
	}
}
