package relay

import (
	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/storage"
)

// Wire protocol between the relay server and its store clients. One
// request, one response keyed by id; watches additionally stream push
// frames keyed by watchId until unwatched.
const (
	opCreateRoom = "create_room"
	opGetRoom    = "get_room"
	opUpdateRoom = "update_room"
	opDeleteRoom = "delete_room"
	opListRooms  = "list_rooms"
	opWatchRoom  = "watch_room"
	opWatchRooms = "watch_rooms"
	opUnwatch    = "unwatch"

	pushRoom  = "room"
	pushRooms = "rooms"
)

type request struct {
	Id      int64               `json:"id"`
	Op      string              `json:"op"`
	RoomId  string              `json:"roomId,omitempty"`
	Room    *entities.Room      `json:"room,omitempty"`
	Update  *storage.RoomUpdate `json:"update,omitempty"`
	WatchId int64               `json:"watchId,omitempty"`
}

type response struct {
	Id    int64           `json:"id,omitempty"`
	Error string          `json:"error,omitempty"`
	Room  *entities.Room  `json:"room,omitempty"`
	Rooms []entities.Room `json:"rooms,omitempty"`

	Push    string `json:"push,omitempty"`
	WatchId int64  `json:"watchId,omitempty"`
}
