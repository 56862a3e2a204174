// Package storage defines the document-store contract the game core is
// written against. Any store offering keyed create/read/update/delete,
// partial field merges, server-assigned creation timestamps and snapshot
// subscriptions can back it.
package storage

import (
	"context"
	"errors"

	"github.com/caro-vn/caro-online/internal/domains/entities"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
)

// RoomUpdate is a partial merge into a room document. Nil fields are left
// untouched; map entries merge per key so two clients can update disjoint
// key groups without clobbering each other.
type RoomUpdate struct {
	JoinedId   *string            `json:"joinedId,omitempty"`
	JoinedName *string            `json:"joinedName,omitempty"`
	IsLocked   *bool              `json:"isLocked,omitempty"`
	Ready      map[string]bool    `json:"ready,omitempty"`
	Moves      map[string]string  `json:"moves,omitempty"`
	LastMove   *entities.LastMove `json:"lastMove,omitempty"`
}

// RoomStore is the shared document store mediating all coordination
// between the two players.
//
// Watch channels deliver full current snapshots, not diffs, and may
// coalesce rapid successive writes into a single delivery. They are
// closed when the context is canceled.
type RoomStore interface {
	// CreateRoom writes a new room document, assigning CreatedAt
	// server-side. Returns ErrRoomExists if the code is already taken.
	CreateRoom(ctx context.Context, room entities.Room) (entities.Room, error)

	// GetRoom returns ErrRoomNotFound when no document exists; it never
	// creates one as a side effect.
	GetRoom(ctx context.Context, roomId string) (entities.Room, error)

	// UpdateRoom applies a partial merge to an existing room.
	UpdateRoom(ctx context.Context, roomId string, update RoomUpdate) error

	// DeleteRoom removes a room. Deleting an absent room is a no-op, so
	// concurrent expiry deletions by multiple clients are safe.
	DeleteRoom(ctx context.Context, roomId string) error

	// ListRooms returns a snapshot of every room document.
	ListRooms(ctx context.Context) ([]entities.Room, error)

	// WatchRoom subscribes to one room's document.
	WatchRoom(ctx context.Context, roomId string) (<-chan entities.Room, error)

	// WatchRooms subscribes to the whole collection.
	WatchRooms(ctx context.Context) (<-chan []entities.Room, error)
}
