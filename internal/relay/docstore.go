package relay

import (
	"context"
	"sync"
	"time"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/storage"
)

// DocStore is an in-memory document store with push subscriptions. It
// backs the relay server and is used directly in tests. Snapshot
// channels are buffered; when a subscriber lags, older snapshots are
// dropped in favor of the newest one, matching the coalescing behavior
// hosted stores exhibit.
type DocStore struct {
	mu        sync.Mutex
	rooms     map[string]entities.Room
	roomSubs  map[string]map[int]chan entities.Room
	listSubs  map[int]chan []entities.Room
	nextSubId int

	// Now is the clock used for server-assigned timestamps. Replaced in
	// tests to age rooms artificially.
	Now func() time.Time
}

func NewDocStore() *DocStore {
	return &DocStore{
		rooms:    make(map[string]entities.Room),
		roomSubs: make(map[string]map[int]chan entities.Room),
		listSubs: make(map[int]chan []entities.Room),
		Now:      time.Now,
	}
}

var _ storage.RoomStore = (*DocStore)(nil)

func (d *DocStore) CreateRoom(ctx context.Context, room entities.Room) (entities.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.rooms[room.RoomId]; exists {
		return entities.Room{}, storage.ErrRoomExists
	}
	room.CreatedAt = d.Now()
	if room.Ready == nil {
		room.Ready = map[string]bool{}
	}
	if room.Moves == nil {
		room.Moves = map[string]string{}
	}
	d.rooms[room.RoomId] = room
	d.notifyLocked(room.RoomId)
	return cloneRoom(room), nil
}

func (d *DocStore) GetRoom(ctx context.Context, roomId string) (entities.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, exists := d.rooms[roomId]
	if !exists {
		return entities.Room{}, storage.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (d *DocStore) UpdateRoom(ctx context.Context, roomId string, update storage.RoomUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, exists := d.rooms[roomId]
	if !exists {
		return storage.ErrRoomNotFound
	}
	if update.JoinedId != nil {
		room.JoinedId = *update.JoinedId
	}
	if update.JoinedName != nil {
		room.JoinedName = *update.JoinedName
	}
	if update.IsLocked != nil {
		room.IsLocked = *update.IsLocked
	}
	if len(update.Ready) > 0 {
		ready := make(map[string]bool, len(room.Ready)+len(update.Ready))
		for k, v := range room.Ready {
			ready[k] = v
		}
		for k, v := range update.Ready {
			ready[k] = v
		}
		room.Ready = ready
	}
	if len(update.Moves) > 0 {
		moves := make(map[string]string, len(room.Moves)+len(update.Moves))
		for k, v := range room.Moves {
			moves[k] = v
		}
		for k, v := range update.Moves {
			moves[k] = v
		}
		room.Moves = moves
	}
	if update.LastMove != nil {
		move := *update.LastMove
		room.LastMove = &move
	}
	d.rooms[roomId] = room
	d.notifyLocked(roomId)
	return nil
}

// DeleteRoom is idempotent: deleting an absent room is a no-op, which is
// what makes concurrent expiry sweeps by independent clients safe.
func (d *DocStore) DeleteRoom(ctx context.Context, roomId string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, existed := d.rooms[roomId]; !existed {
		return nil
	}
	delete(d.rooms, roomId)
	d.notifyListLocked()
	return nil
}

func (d *DocStore) ListRooms(ctx context.Context) ([]entities.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked(), nil
}

func (d *DocStore) WatchRoom(ctx context.Context, roomId string) (<-chan entities.Room, error) {
	d.mu.Lock()
	id := d.nextSubId
	d.nextSubId++
	ch := make(chan entities.Room, 1)
	if d.roomSubs[roomId] == nil {
		d.roomSubs[roomId] = make(map[int]chan entities.Room)
	}
	d.roomSubs[roomId][id] = ch
	if room, exists := d.rooms[roomId]; exists {
		offer(ch, cloneRoom(room))
	}
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		delete(d.roomSubs[roomId], id)
		close(ch)
		d.mu.Unlock()
	}()
	return ch, nil
}

func (d *DocStore) WatchRooms(ctx context.Context) (<-chan []entities.Room, error) {
	d.mu.Lock()
	id := d.nextSubId
	d.nextSubId++
	ch := make(chan []entities.Room, 1)
	d.listSubs[id] = ch
	offer(ch, d.snapshotLocked())
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		delete(d.listSubs, id)
		close(ch)
		d.mu.Unlock()
	}()
	return ch, nil
}

func (d *DocStore) snapshotLocked() []entities.Room {
	rooms := make([]entities.Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		rooms = append(rooms, cloneRoom(room))
	}
	return rooms
}

func (d *DocStore) notifyLocked(roomId string) {
	if room, exists := d.rooms[roomId]; exists {
		for _, ch := range d.roomSubs[roomId] {
			offer(ch, cloneRoom(room))
		}
	}
	d.notifyListLocked()
}

func (d *DocStore) notifyListLocked() {
	snapshot := d.snapshotLocked()
	for _, ch := range d.listSubs {
		offer(ch, snapshot)
	}
}

// offer replaces a stale buffered snapshot with the newest one instead
// of blocking the writer on a slow subscriber.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func cloneRoom(room entities.Room) entities.Room {
	cloned := room
	cloned.Ready = make(map[string]bool, len(room.Ready))
	for k, v := range room.Ready {
		cloned.Ready[k] = v
	}
	cloned.Moves = make(map[string]string, len(room.Moves))
	for k, v := range room.Moves {
		cloned.Moves[k] = v
	}
	if room.LastMove != nil {
		move := *room.LastMove
		cloned.LastMove = &move
	}
	return cloned
}
