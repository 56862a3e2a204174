package client

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/caro-vn/caro-online/pkg/logging"
	"github.com/caro-vn/caro-online/pkg/utils"
	"go.uber.org/zap"
)

// RoomCodeAlphabet leaves out O, 0, I and 1, which read alike on a
// phone screen. 32^4 codes make collisions negligible at the room cap,
// but allocation still verifies non-existence.
const (
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RoomCodeLength   = 4
)

// Registry creates, lists and expires room documents in the shared
// store. One Registry represents one client instance; it owns the
// client id used to resolve roles after a reload.
type Registry struct {
	store    storage.RoomStore
	cfg      Config
	clientId string

	now func() time.Time
}

func NewRegistry(store storage.RoomStore, cfg Config) *Registry {
	return &Registry{
		store:    store,
		cfg:      cfg,
		clientId: utils.GenerateUUID(),
		now:      time.Now,
	}
}

func (r *Registry) ClientId() string {
	return r.clientId
}

// CreateRoom allocates a fresh code, writes the room document and
// schedules the join-grace check. The caller proceeds into the ready
// protocol as the creator.
func (r *Registry) CreateRoom(ctx context.Context, creatorName string) (entities.Room, error) {
	rooms, err := r.store.ListRooms(ctx)
	if err != nil {
		return entities.Room{}, fmt.Errorf("failed to list rooms: %w", err)
	}

	open := 0
	taken := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		taken[room.RoomId] = struct{}{}
		if !room.IsLocked {
			open++
		}
	}
	if open >= r.cfg.MaxOpenRooms {
		return entities.Room{}, ErrCapacityExceeded
	}

	var roomId string
	for {
		roomId = GenerateRoomCode()
		if _, exists := taken[roomId]; !exists {
			break
		}
	}

	room := entities.Room{
		RoomId:      roomId,
		CreatorId:   r.clientId,
		CreatorName: creatorName,
		IsLocked:    false,
		Ready:       map[string]bool{entities.RoleCreator: false},
		Moves:       map[string]string{},
	}
	created, err := r.store.CreateRoom(ctx, room)
	if err != nil {
		return entities.Room{}, fmt.Errorf("failed to create room: %w", err)
	}
	logging.Info("room created",
		zap.String("room_id", created.RoomId),
		zap.String("creator", creatorName),
	)

	r.scheduleGraceCheck(created.RoomId)
	return created, nil
}

// scheduleGraceCheck deletes the room if no second player has joined
// within the grace period. The check outlives the creating call on
// purpose; an abandoned creator tab must not keep its room alive.
func (r *Registry) scheduleGraceCheck(roomId string) {
	time.AfterFunc(r.cfg.JoinGracePeriod, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		room, err := r.store.GetRoom(ctx, roomId)
		if err != nil {
			return
		}
		if room.JoinedName != "" {
			return
		}
		if err := r.store.DeleteRoom(ctx, roomId); err != nil {
			logging.Error("failed to delete unjoined room",
				zap.String("room_id", roomId),
				zap.Error(err),
			)
			return
		}
		logging.Info("unjoined room reclaimed", zap.String("room_id", roomId))
	})
}

// ListOpenRooms delivers a live view of joinable rooms: unlocked and
// younger than the visibility threshold. Any expired room observed in a
// snapshot is deleted by this client; deletion races with other clients
// are harmless because the store treats delete-if-absent as a no-op.
func (r *Registry) ListOpenRooms(ctx context.Context) (<-chan []entities.Room, error) {
	snapshots, err := r.store.WatchRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to watch rooms: %w", err)
	}

	out := make(chan []entities.Room, 1)
	go func() {
		defer close(out)
		for rooms := range snapshots {
			open := make([]entities.Room, 0, len(rooms))
			for _, room := range rooms {
				if room.IsLocked {
					continue
				}
				if room.Age(r.now()) >= r.cfg.RoomTTL {
					if err := r.store.DeleteRoom(ctx, room.RoomId); err != nil {
						logging.Error("failed to delete expired room",
							zap.String("room_id", room.RoomId),
							zap.Error(err),
						)
					} else {
						logging.Info("expired room reclaimed", zap.String("room_id", room.RoomId))
					}
					continue
				}
				open = append(open, room)
			}
			select {
			case out <- open:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// JoinRoom validates the code locally, then claims the joined seat. The
// room state returned is re-read after the update so concurrent creator
// writes are not lost to a stale pre-update snapshot.
func (r *Registry) JoinRoom(ctx context.Context, roomId, playerName string) (entities.Room, error) {
	roomId = strings.ToUpper(strings.TrimSpace(roomId))
	if !ValidRoomCode(roomId) {
		return entities.Room{}, ErrMalformedCode
	}

	room, err := r.store.GetRoom(ctx, roomId)
	if err != nil {
		return entities.Room{}, err
	}

	// Two players may race to join; last writer wins in the store. The
	// loser is turned away here once the winner's lock is visible.
	if room.IsLocked && room.JoinedName == "" {
		return entities.Room{}, ErrRoomLocked
	}

	update := storage.RoomUpdate{
		JoinedId:   ptr(r.clientId),
		JoinedName: ptr(playerName),
		IsLocked:   ptr(true),
		Ready:      map[string]bool{entities.RoleJoined: false},
	}
	if err := r.store.UpdateRoom(ctx, roomId, update); err != nil {
		return entities.Room{}, fmt.Errorf("failed to join room: %w", err)
	}

	joined, err := r.store.GetRoom(ctx, roomId)
	if err != nil {
		return entities.Room{}, err
	}
	logging.Info("room joined",
		zap.String("room_id", roomId),
		zap.String("player", playerName),
	)
	return joined, nil
}

func GenerateRoomCode() string {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		code[i] = RoomCodeAlphabet[rand.Intn(len(RoomCodeAlphabet))]
	}
	return string(code)
}

func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(RoomCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

func ptr[T any](v T) *T {
	return &v
}
