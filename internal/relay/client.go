package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/caro-vn/caro-online/pkg/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Store is the client half of the relay protocol: a storage.RoomStore
// backed by one websocket connection to a relay server. Pushes for
// active watches are routed to their snapshot channels; everything else
// is matched to its pending call by request id.
type Store struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu          sync.Mutex
	nextId      int64
	pending     map[int64]chan response
	roomWatches map[int64]chan entities.Room
	listWatches map[int64]chan []entities.Room
	closed      bool
}

var _ storage.RoomStore = (*Store)(nil)

func Dial(ctx context.Context, url string) (*Store, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}
	store := &Store{
		conn:        conn,
		pending:     make(map[int64]chan response),
		roomWatches: make(map[int64]chan entities.Room),
		listWatches: make(map[int64]chan []entities.Room),
	}
	go store.readPump()
	return store, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) readPump() {
	defer s.teardown()
	for {
		var resp response
		if err := s.conn.ReadJSON(&resp); err != nil {
			logging.Info("relay connection closed", zap.Error(err))
			return
		}

		// Pushes are offered while holding the lock so a concurrent
		// unwatch cannot close the channel mid-send. offer never blocks.
		switch resp.Push {
		case pushRoom:
			s.mu.Lock()
			if ch, exists := s.roomWatches[resp.WatchId]; exists && resp.Room != nil {
				offer(ch, *resp.Room)
			}
			s.mu.Unlock()
		case pushRooms:
			s.mu.Lock()
			if ch, exists := s.listWatches[resp.WatchId]; exists {
				offer(ch, resp.Rooms)
			}
			s.mu.Unlock()
		default:
			s.mu.Lock()
			ch, exists := s.pending[resp.Id]
			delete(s.pending, resp.Id)
			s.mu.Unlock()
			if exists {
				ch <- resp
			}
		}
	}
}

// teardown closes every watch and pending call after the connection
// drops, so consumers observe closed channels rather than hanging.
func (s *Store) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.roomWatches {
		delete(s.roomWatches, id)
		close(ch)
	}
	for id, ch := range s.listWatches {
		delete(s.listWatches, id)
		close(ch)
	}
	for id, ch := range s.pending {
		delete(s.pending, id)
		close(ch)
	}
}

func (s *Store) call(ctx context.Context, req request) (response, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return response{}, errors.New("relay connection closed")
	}
	s.nextId++
	req.Id = s.nextId
	ch := make(chan response, 1)
	s.pending[req.Id] = ch
	s.mu.Unlock()

	s.writeMu.Lock()
	err := s.conn.WriteJSON(req)
	s.writeMu.Unlock()
	if err != nil {
		s.mu.Lock()
		delete(s.pending, req.Id)
		s.mu.Unlock()
		return response{}, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, req.Id)
		s.mu.Unlock()
		return response{}, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return response{}, errors.New("relay connection closed")
		}
		if resp.Error != "" {
			return response{}, decodeError(resp.Error)
		}
		return resp, nil
	}
}

func (s *Store) CreateRoom(ctx context.Context, room entities.Room) (entities.Room, error) {
	resp, err := s.call(ctx, request{Op: opCreateRoom, Room: &room})
	if err != nil {
		return entities.Room{}, err
	}
	if resp.Room == nil {
		return entities.Room{}, errors.New("relay returned no room")
	}
	return *resp.Room, nil
}

func (s *Store) GetRoom(ctx context.Context, roomId string) (entities.Room, error) {
	resp, err := s.call(ctx, request{Op: opGetRoom, RoomId: roomId})
	if err != nil {
		return entities.Room{}, err
	}
	if resp.Room == nil {
		return entities.Room{}, storage.ErrRoomNotFound
	}
	return *resp.Room, nil
}

func (s *Store) UpdateRoom(ctx context.Context, roomId string, update storage.RoomUpdate) error {
	_, err := s.call(ctx, request{Op: opUpdateRoom, RoomId: roomId, Update: &update})
	return err
}

func (s *Store) DeleteRoom(ctx context.Context, roomId string) error {
	_, err := s.call(ctx, request{Op: opDeleteRoom, RoomId: roomId})
	return err
}

func (s *Store) ListRooms(ctx context.Context) ([]entities.Room, error) {
	resp, err := s.call(ctx, request{Op: opListRooms, RoomId: ""})
	if err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (s *Store) WatchRoom(ctx context.Context, roomId string) (<-chan entities.Room, error) {
	s.mu.Lock()
	s.nextId++
	watchId := s.nextId
	ch := make(chan entities.Room, 1)
	s.roomWatches[watchId] = ch
	s.mu.Unlock()

	if _, err := s.call(ctx, request{Op: opWatchRoom, RoomId: roomId, WatchId: watchId}); err != nil {
		s.dropRoomWatch(watchId)
		return nil, err
	}

	go func() {
		<-ctx.Done()
		unwatchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.call(unwatchCtx, request{Op: opUnwatch, WatchId: watchId})
		s.dropRoomWatch(watchId)
	}()
	return ch, nil
}

func (s *Store) WatchRooms(ctx context.Context) (<-chan []entities.Room, error) {
	s.mu.Lock()
	s.nextId++
	watchId := s.nextId
	ch := make(chan []entities.Room, 1)
	s.listWatches[watchId] = ch
	s.mu.Unlock()

	if _, err := s.call(ctx, request{Op: opWatchRooms, WatchId: watchId}); err != nil {
		s.dropListWatch(watchId)
		return nil, err
	}

	go func() {
		<-ctx.Done()
		unwatchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.call(unwatchCtx, request{Op: opUnwatch, WatchId: watchId})
		s.dropListWatch(watchId)
	}()
	return ch, nil
}

func (s *Store) dropRoomWatch(watchId int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, exists := s.roomWatches[watchId]; exists {
		delete(s.roomWatches, watchId)
		close(ch)
	}
}

func (s *Store) dropListWatch(watchId int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, exists := s.listWatches[watchId]; exists {
		delete(s.listWatches, watchId)
		close(ch)
	}
}

func decodeError(code string) error {
	switch code {
	case errCodeRoomNotFound:
		return storage.ErrRoomNotFound
	case errCodeRoomExists:
		return storage.ErrRoomExists
	default:
		return errors.New(code)
	}
}
