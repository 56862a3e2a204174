package client

import (
	"context"
	"testing"
	"time"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePhase(t *testing.T) {
	tests := []struct {
		name string
		room entities.Room
		want Phase
	}{
		{
			name: "empty room",
			room: entities.Room{Ready: map[string]bool{entities.RoleCreator: false}},
			want: WaitingForJoin,
		},
		{
			name: "second player joined",
			room: entities.Room{
				JoinedName: "Bob",
				Ready:      map[string]bool{entities.RoleCreator: false, entities.RoleJoined: false},
			},
			want: WaitingForReady,
		},
		{
			name: "one side ready",
			room: entities.Room{
				JoinedName: "Bob",
				Ready:      map[string]bool{entities.RoleCreator: true, entities.RoleJoined: false},
			},
			want: WaitingForReady,
		},
		{
			name: "both ready",
			room: entities.Room{
				JoinedName: "Bob",
				Ready:      map[string]bool{entities.RoleCreator: true, entities.RoleJoined: true},
			},
			want: InGame,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DerivePhase(tt.room))
		})
	}
}

// Both clients watch the same document and each independently derives
// the transition into the game; neither announces it to the other.
func TestReadyProtocolConvergence(t *testing.T) {
	store := relay.NewDocStore()
	ctx := context.Background()

	creator := NewRegistry(store, testConfig())
	room, err := creator.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	joiner := NewRegistry(store, testConfig())
	joined, err := joiner.JoinRoom(ctx, room.RoomId, "Bob")
	require.NoError(t, err)

	creatorLobby := NewLobby(store, room, entities.RoleCreator)
	joinerLobby := NewLobby(store, joined, entities.RoleJoined)

	type outcome struct {
		room entities.Room
		err  error
	}
	results := make(chan outcome, 2)
	for _, lobby := range []*Lobby{creatorLobby, joinerLobby} {
		go func(l *Lobby) {
			waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			r, err := l.WaitForStart(waitCtx)
			results <- outcome{room: r, err: err}
		}(lobby)
	}

	require.NoError(t, creatorLobby.MarkReady(ctx))
	require.NoError(t, joinerLobby.MarkReady(ctx))

	for i := 0; i < 2; i++ {
		res := <-results
		require.NoError(t, res.err)
		assert.True(t, res.room.Ready[entities.RoleCreator])
		assert.True(t, res.room.Ready[entities.RoleJoined])
		assert.Equal(t, InGame, DerivePhase(res.room))
	}
}

// Canceling a lobby must not disturb the shared document.
func TestLobbyCancelLeavesRoomIntact(t *testing.T) {
	store := relay.NewDocStore()
	ctx := context.Background()

	creator := NewRegistry(store, testConfig())
	room, err := creator.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	lobby := NewLobby(store, room, entities.RoleCreator)
	require.NoError(t, lobby.MarkReady(ctx))

	waitCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := lobby.WaitForStart(waitCtx)
		done <- err
	}()
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)

	stored, err := store.GetRoom(ctx, room.RoomId)
	require.NoError(t, err)
	assert.True(t, stored.Ready[entities.RoleCreator], "cancel does not clear readiness")
	assert.False(t, stored.IsLocked)
}
