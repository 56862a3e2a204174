package relay

import (
	"context"
	"testing"
	"time"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocStoreCreateAssignsTimestamp(t *testing.T) {
	store := NewDocStore()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return fixed }

	room, err := store.CreateRoom(context.Background(), entities.Room{RoomId: "AB23"})
	require.NoError(t, err)
	assert.Equal(t, fixed, room.CreatedAt)

	_, err = store.CreateRoom(context.Background(), entities.Room{RoomId: "AB23"})
	assert.ErrorIs(t, err, storage.ErrRoomExists)
}

func TestDocStoreUpdateMergesMaps(t *testing.T) {
	store := NewDocStore()
	ctx := context.Background()

	_, err := store.CreateRoom(ctx, entities.Room{
		RoomId: "AB23",
		Ready:  map[string]bool{entities.RoleCreator: true},
		Moves:  map[string]string{"7_7": "X"},
	})
	require.NoError(t, err)

	// Disjoint keys from two writers must both survive.
	require.NoError(t, store.UpdateRoom(ctx, "AB23", storage.RoomUpdate{
		Ready: map[string]bool{entities.RoleJoined: true},
		Moves: map[string]string{"8_8": "O"},
	}))

	room, err := store.GetRoom(ctx, "AB23")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{entities.RoleCreator: true, entities.RoleJoined: true}, room.Ready)
	assert.Equal(t, map[string]string{"7_7": "X", "8_8": "O"}, room.Moves)

	assert.ErrorIs(t, store.UpdateRoom(ctx, "ZZZZ", storage.RoomUpdate{}), storage.ErrRoomNotFound)
}

func TestDocStoreDeleteIsIdempotent(t *testing.T) {
	store := NewDocStore()
	ctx := context.Background()

	_, err := store.CreateRoom(ctx, entities.Room{RoomId: "AB23"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteRoom(ctx, "AB23"))
	require.NoError(t, store.DeleteRoom(ctx, "AB23"), "deleting twice must not fail")

	_, err = store.GetRoom(ctx, "AB23")
	assert.ErrorIs(t, err, storage.ErrRoomNotFound)
}

func TestDocStoreWatchRoomDeliversSnapshots(t *testing.T) {
	store := NewDocStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := store.CreateRoom(ctx, entities.Room{RoomId: "AB23"})
	require.NoError(t, err)

	snapshots, err := store.WatchRoom(ctx, "AB23")
	require.NoError(t, err)

	initial := <-snapshots
	assert.Equal(t, "AB23", initial.RoomId)
	assert.Empty(t, initial.JoinedName)

	require.NoError(t, store.UpdateRoom(ctx, "AB23", storage.RoomUpdate{
		JoinedName: strPtr("Bob"),
	}))

	select {
	case room := <-snapshots:
		assert.Equal(t, "Bob", room.JoinedName)
	case <-time.After(2 * time.Second):
		t.Fatal("update never reached the watcher")
	}
}

func TestDocStoreWatchCoalescesWrites(t *testing.T) {
	store := NewDocStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := store.CreateRoom(ctx, entities.Room{RoomId: "AB23"})
	require.NoError(t, err)

	snapshots, err := store.WatchRoom(ctx, "AB23")
	require.NoError(t, err)

	// With no reader draining, rapid writes collapse to the newest
	// snapshot rather than blocking the writer.
	for i := 0; i < 10; i++ {
		require.NoError(t, store.UpdateRoom(ctx, "AB23", storage.RoomUpdate{
			Moves: map[string]string{"0_0": "X"},
			LastMove: &entities.LastMove{
				Row: i, Col: i, Symbol: "X",
			},
		}))
	}

	var last entities.Room
	require.Eventually(t, func() bool {
		select {
		case room, ok := <-snapshots:
			if !ok {
				return false
			}
			last = room
			return last.LastMove != nil && last.LastMove.Row == 9
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 9, last.LastMove.Col)
}

func TestDocStoreWatchClosesOnCancel(t *testing.T) {
	store := NewDocStore()
	ctx, cancel := context.WithCancel(context.Background())

	snapshots, err := store.WatchRoom(ctx, "AB23")
	require.NoError(t, err)
	lists, err := store.WatchRooms(ctx)
	require.NoError(t, err)

	cancel()

	deadline := time.After(2 * time.Second)
	for open := true; open; {
		select {
		case _, open = <-snapshots:
		case <-deadline:
			t.Fatal("room watch never closed")
		}
	}
	for open := true; open; {
		select {
		case _, open = <-lists:
		case <-deadline:
			t.Fatal("list watch never closed")
		}
	}

	// Writes after all watchers are gone must not panic or block.
	_, err = store.CreateRoom(context.Background(), entities.Room{RoomId: "AB23"})
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }
