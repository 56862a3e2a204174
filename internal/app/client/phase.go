package client

import "github.com/caro-vn/caro-online/internal/domains/entities"

type Phase uint8

const (
	WaitingForJoin Phase = iota
	WaitingForReady
	InGame
)

func (p Phase) String() string {
	switch p {
	case WaitingForJoin:
		return "WAITING_FOR_JOIN"
	case WaitingForReady:
		return "WAITING_FOR_READY"
	case InGame:
		return "IN_GAME"
	default:
		return "UNKNOWN"
	}
}

// DerivePhase maps a room snapshot to the client phase. There is no
// central "game started" event; every client re-derives the phase from
// each snapshot it observes, which makes transitions idempotent and
// reload-safe.
func DerivePhase(room entities.Room) Phase {
	if room.Ready[entities.RoleCreator] && room.Ready[entities.RoleJoined] {
		return InGame
	}
	if room.JoinedName != "" {
		return WaitingForReady
	}
	return WaitingForJoin
}
