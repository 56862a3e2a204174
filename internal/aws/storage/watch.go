package storage

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"time"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/caro-vn/caro-online/pkg/logging"
	"go.uber.org/zap"
)

// DynamoDB has no native change feed for this access pattern, so
// subscriptions poll and deliver a snapshot whenever it differs from the
// previous one. Coalescing rapid successive writes into one delivery is
// fine: snapshots carry the full moves map, so nothing observable is
// lost.

func (client *Client) WatchRoom(ctx context.Context, roomId string) (<-chan entities.Room, error) {
	out := make(chan entities.Room, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(client.cfg.PollInterval)
		defer ticker.Stop()

		var last *entities.Room
		for {
			room, err := client.GetRoom(ctx, roomId)
			switch {
			case errors.Is(err, storage.ErrRoomNotFound):
				// Deleted rooms just stop producing snapshots.
			case err != nil:
				logging.Error("room poll failed",
					zap.String("room_id", roomId),
					zap.Error(err),
				)
			case last == nil || !reflect.DeepEqual(*last, room):
				last = &room
				select {
				case out <- room:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}

func (client *Client) WatchRooms(ctx context.Context) (<-chan []entities.Room, error) {
	out := make(chan []entities.Room, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(client.cfg.PollInterval)
		defer ticker.Stop()

		var last []entities.Room
		first := true
		for {
			rooms, err := client.ListRooms(ctx)
			if err != nil {
				logging.Error("room list poll failed", zap.Error(err))
			} else {
				sort.Slice(rooms, func(i, j int) bool {
					return rooms[i].RoomId < rooms[j].RoomId
				})
				if first || !reflect.DeepEqual(last, rooms) {
					first = false
					last = rooms
					select {
					case out <- rooms:
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}
