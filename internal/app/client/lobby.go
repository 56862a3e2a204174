package client

import (
	"context"
	"fmt"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/caro-vn/caro-online/pkg/logging"
	"go.uber.org/zap"
)

// Lobby runs the ready protocol for one client in one room. Each side
// only ever writes its own ready flag; game start is derived
// independently from the shared snapshots, never announced.
type Lobby struct {
	store  storage.RoomStore
	roomId string
	role   string
}

func NewLobby(store storage.RoomStore, room entities.Room, role string) *Lobby {
	return &Lobby{
		store:  store,
		roomId: room.RoomId,
		role:   role,
	}
}

func (l *Lobby) Role() string {
	return l.role
}

// MarkReady sets this client's own ready flag. The peer's flag is never
// written from here.
func (l *Lobby) MarkReady(ctx context.Context) error {
	update := storage.RoomUpdate{
		Ready: map[string]bool{l.role: true},
	}
	if err := l.store.UpdateRoom(ctx, l.roomId, update); err != nil {
		return fmt.Errorf("failed to mark ready: %w", err)
	}
	logging.Info("marked ready",
		zap.String("room_id", l.roomId),
		zap.String("role", l.role),
	)
	return nil
}

// WaitForStart watches the room until both ready flags are observed and
// returns the snapshot that triggered the transition. Canceling the
// context abandons the lobby without touching the room document; the
// grace-period cleanup eventually reclaims an orphaned room.
func (l *Lobby) WaitForStart(ctx context.Context) (entities.Room, error) {
	snapshots, err := l.store.WatchRoom(ctx, l.roomId)
	if err != nil {
		return entities.Room{}, fmt.Errorf("failed to watch room: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return entities.Room{}, ctx.Err()
		case room, ok := <-snapshots:
			if !ok {
				return entities.Room{}, ctx.Err()
			}
			if DerivePhase(room) == InGame {
				logging.Info("both players ready",
					zap.String("room_id", l.roomId),
					zap.String("role", l.role),
				)
				return room, nil
			}
		}
	}
}
