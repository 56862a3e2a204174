package client

import (
	"errors"

	"github.com/caro-vn/caro-online/internal/storage"
)

var (
	// ErrCapacityExceeded is returned when the global cap on open rooms
	// has been reached. Not retried automatically.
	ErrCapacityExceeded = errors.New("maximum number of open rooms reached")

	// ErrRoomNotFound covers stale and mistyped codes.
	ErrRoomNotFound = storage.ErrRoomNotFound

	// ErrRoomLocked is returned when losing the join race.
	ErrRoomLocked = errors.New("room is locked")

	// ErrMalformedCode is rejected before any store round trip.
	ErrMalformedCode = errors.New("malformed room code")

	ErrNotYourTurn  = errors.New("not your turn")
	ErrCellOccupied = errors.New("cell already occupied")
	ErrMatchOver    = errors.New("match already over")
)
