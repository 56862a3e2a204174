package client

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/relay"
	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JoinGracePeriod = time.Hour // keep grace checks out of unit tests
	return cfg
}

func TestGenerateRoomCode(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := GenerateRoomCode()
		require.Len(t, code, RoomCodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(RoomCodeAlphabet, r),
				"unexpected character %q in code %q", r, code)
		}
		require.True(t, ValidRoomCode(code))
	}
}

func TestValidRoomCode(t *testing.T) {
	assert.True(t, ValidRoomCode("AB23"))
	assert.False(t, ValidRoomCode("AB2"))
	assert.False(t, ValidRoomCode("AB234"))
	assert.False(t, ValidRoomCode("AB0X"), "0 is not in the alphabet")
	assert.False(t, ValidRoomCode("ab23"), "lowercase is not in the alphabet")
}

func TestCreateRoom(t *testing.T) {
	store := relay.NewDocStore()
	registry := NewRegistry(store, testConfig())

	room, err := registry.CreateRoom(context.Background(), "Alice")
	require.NoError(t, err)

	assert.True(t, ValidRoomCode(room.RoomId))
	assert.Equal(t, "Alice", room.CreatorName)
	assert.False(t, room.IsLocked)
	assert.False(t, room.CreatedAt.IsZero(), "timestamp is store-assigned")
	assert.Equal(t, map[string]bool{entities.RoleCreator: false}, room.Ready)

	stored, err := store.GetRoom(context.Background(), room.RoomId)
	require.NoError(t, err)
	assert.Equal(t, room.RoomId, stored.RoomId)
}

func TestCreateRoomCapacity(t *testing.T) {
	store := relay.NewDocStore()
	cfg := testConfig()
	registry := NewRegistry(store, cfg)

	for i := 0; i < cfg.MaxOpenRooms; i++ {
		_, err := registry.CreateRoom(context.Background(), fmt.Sprintf("player-%d", i))
		require.NoError(t, err)
	}

	_, err := registry.CreateRoom(context.Background(), "late")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestCreateRoomCapacityIgnoresLockedRooms(t *testing.T) {
	store := relay.NewDocStore()
	cfg := testConfig()
	registry := NewRegistry(store, cfg)

	ctx := context.Background()
	for i := 0; i < cfg.MaxOpenRooms; i++ {
		room, err := registry.CreateRoom(ctx, fmt.Sprintf("player-%d", i))
		require.NoError(t, err)
		require.NoError(t, store.UpdateRoom(ctx, room.RoomId, storage.RoomUpdate{
			IsLocked: ptr(true),
		}))
	}

	_, err := registry.CreateRoom(ctx, "late")
	assert.NoError(t, err, "locked rooms do not count against the cap")
}

func TestJoinRoom(t *testing.T) {
	store := relay.NewDocStore()
	ctx := context.Background()

	creator := NewRegistry(store, testConfig())
	room, err := creator.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	// Creator marks ready before the join lands; the join must not
	// clobber it.
	require.NoError(t, store.UpdateRoom(ctx, room.RoomId, storage.RoomUpdate{
		Ready: map[string]bool{entities.RoleCreator: true},
	}))

	joiner := NewRegistry(store, testConfig())
	joined, err := joiner.JoinRoom(ctx, room.RoomId, "Bob")
	require.NoError(t, err)

	assert.True(t, joined.IsLocked)
	assert.Equal(t, "Bob", joined.JoinedName)
	assert.True(t, joined.Ready[entities.RoleCreator], "creator readiness survives the join")
	assert.False(t, joined.Ready[entities.RoleJoined])

	role, ok := joined.RoleOf(joiner.ClientId())
	require.True(t, ok)
	assert.Equal(t, entities.RoleJoined, role)
}

func TestJoinRoomNotFound(t *testing.T) {
	store := relay.NewDocStore()
	registry := NewRegistry(store, testConfig())

	_, err := registry.JoinRoom(context.Background(), "ZZZZ", "Bob")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	rooms, err := store.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms, "a failed join never creates a document")
}

func TestJoinRoomMalformedCode(t *testing.T) {
	store := relay.NewDocStore()
	registry := NewRegistry(store, testConfig())

	for _, code := range []string{"", "AB", "TOOLONG", "AB0I"} {
		_, err := registry.JoinRoom(context.Background(), code, "Bob")
		assert.ErrorIs(t, err, ErrMalformedCode, "code %q", code)
	}
}

func TestJoinRoomLocked(t *testing.T) {
	store := relay.NewDocStore()
	ctx := context.Background()

	creator := NewRegistry(store, testConfig())
	room, err := creator.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	// A room locked with no joined player yet is the visible state of a
	// lost join race.
	require.NoError(t, store.UpdateRoom(ctx, room.RoomId, storage.RoomUpdate{
		IsLocked: ptr(true),
	}))

	_, err = NewRegistry(store, testConfig()).JoinRoom(ctx, room.RoomId, "Carol")
	assert.ErrorIs(t, err, ErrRoomLocked)
}

func TestJoinRoomNormalizesCode(t *testing.T) {
	store := relay.NewDocStore()
	ctx := context.Background()

	creator := NewRegistry(store, testConfig())
	room, err := creator.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	joined, err := NewRegistry(store, testConfig()).JoinRoom(ctx, " "+strings.ToLower(room.RoomId)+" ", "Bob")
	require.NoError(t, err)
	assert.Equal(t, room.RoomId, joined.RoomId)
}

func TestListOpenRoomsFiltersAndExpires(t *testing.T) {
	store := relay.NewDocStore()
	cfg := testConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	creator := NewRegistry(store, cfg)
	fresh, err := creator.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	locked, err := creator.CreateRoom(ctx, "Bob")
	require.NoError(t, err)
	require.NoError(t, store.UpdateRoom(ctx, locked.RoomId, storage.RoomUpdate{
		IsLocked: ptr(true),
	}))

	// Age the next room past the visibility threshold.
	store.Now = func() time.Time { return time.Now().Add(-cfg.RoomTTL - time.Second) }
	stale, err := creator.CreateRoom(ctx, "Carol")
	require.NoError(t, err)
	store.Now = time.Now

	lister := NewRegistry(store, cfg)
	snapshots, err := lister.ListOpenRooms(ctx)
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case rooms := <-snapshots:
			ids := make([]string, 0, len(rooms))
			for _, room := range rooms {
				ids = append(ids, room.RoomId)
			}
			assert.NotContains(t, ids, locked.RoomId)
			assert.NotContains(t, ids, stale.RoomId)
			if len(ids) == 1 && ids[0] == fresh.RoomId {
				// The expired room must also be gone from the store.
				_, err := store.GetRoom(ctx, stale.RoomId)
				assert.ErrorIs(t, err, storage.ErrRoomNotFound)
				return
			}
		case <-deadline:
			t.Fatal("never observed the filtered room list")
		}
	}
}

func TestGraceCheckReclaimsUnjoinedRoom(t *testing.T) {
	store := relay.NewDocStore()
	cfg := testConfig()
	cfg.JoinGracePeriod = 50 * time.Millisecond
	registry := NewRegistry(store, cfg)

	ctx := context.Background()
	room, err := registry.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := store.GetRoom(ctx, room.RoomId)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "unjoined room should be deleted after the grace period")
}

func TestGraceCheckKeepsJoinedRoom(t *testing.T) {
	store := relay.NewDocStore()
	cfg := testConfig()
	cfg.JoinGracePeriod = 50 * time.Millisecond
	registry := NewRegistry(store, cfg)

	ctx := context.Background()
	room, err := registry.CreateRoom(ctx, "Alice")
	require.NoError(t, err)
	_, err = NewRegistry(store, cfg).JoinRoom(ctx, room.RoomId, "Bob")
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	_, err = store.GetRoom(ctx, room.RoomId)
	assert.NoError(t, err, "a joined room survives the grace check")
}
