package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/caro-vn/caro-online/pkg/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	errCodeRoomNotFound = "ROOM_NOT_FOUND"
	errCodeRoomExists   = "ROOM_EXISTS"
	errCodeBadRequest   = "BAD_REQUEST"
)

// Server exposes a DocStore over websocket so that clients on different
// machines share one document store without any hosted database. Every
// connected client gets the same CRUD plus push-subscription surface the
// DynamoDB backend offers.
type Server struct {
	address  string
	upgrader websocket.Upgrader
	store    *DocStore
}

func NewServer(address string, store *DocStore) *Server {
	return &Server{
		address: address,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		store: store,
	}
}

// Start method starts the relay store server
func (s *Server) Start() error {
	http.HandleFunc("/store", func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error(
				"failed to upgrade connection",
				zap.String("error", err.Error()),
			)
			return
		}
		s.serveConn(conn)
	})
	logging.Info("relay store server started", zap.String("address", s.address))
	return http.ListenAndServe(s.address, nil)
}

type clientConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	watches map[int64]context.CancelFunc
}

func (c *clientConn) write(resp response) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(resp)
}

func (s *Server) serveConn(conn *websocket.Conn) {
	defer conn.Close()

	client := &clientConn{
		conn:    conn,
		watches: make(map[int64]context.CancelFunc),
	}
	defer func() {
		client.mu.Lock()
		for _, cancel := range client.watches {
			cancel()
		}
		client.mu.Unlock()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			logging.Info(
				"connection closed",
				zap.String("remote_address", conn.RemoteAddr().String()),
				zap.Error(err),
			)
			return
		}

		var req request
		if err := json.Unmarshal(message, &req); err != nil {
			client.write(response{Error: errCodeBadRequest})
			continue
		}
		s.handleRequest(client, req)
	}
}

func (s *Server) handleRequest(client *clientConn, req request) {
	ctx := context.Background()

	switch req.Op {
	case opCreateRoom:
		if req.Room == nil {
			client.write(response{Id: req.Id, Error: errCodeBadRequest})
			return
		}
		created, err := s.store.CreateRoom(ctx, *req.Room)
		if err != nil {
			client.write(response{Id: req.Id, Error: errCode(err)})
			return
		}
		client.write(response{Id: req.Id, Room: &created})

	case opGetRoom:
		room, err := s.store.GetRoom(ctx, req.RoomId)
		if err != nil {
			client.write(response{Id: req.Id, Error: errCode(err)})
			return
		}
		client.write(response{Id: req.Id, Room: &room})

	case opUpdateRoom:
		if req.Update == nil {
			client.write(response{Id: req.Id, Error: errCodeBadRequest})
			return
		}
		if err := s.store.UpdateRoom(ctx, req.RoomId, *req.Update); err != nil {
			client.write(response{Id: req.Id, Error: errCode(err)})
			return
		}
		client.write(response{Id: req.Id})

	case opDeleteRoom:
		if err := s.store.DeleteRoom(ctx, req.RoomId); err != nil {
			client.write(response{Id: req.Id, Error: errCode(err)})
			return
		}
		client.write(response{Id: req.Id})

	case opListRooms:
		rooms, err := s.store.ListRooms(ctx)
		if err != nil {
			client.write(response{Id: req.Id, Error: errCode(err)})
			return
		}
		client.write(response{Id: req.Id, Rooms: rooms})

	case opWatchRoom:
		watchCtx, cancel := context.WithCancel(ctx)
		snapshots, err := s.store.WatchRoom(watchCtx, req.RoomId)
		if err != nil {
			cancel()
			client.write(response{Id: req.Id, Error: errCode(err)})
			return
		}
		client.mu.Lock()
		client.watches[req.WatchId] = cancel
		client.mu.Unlock()
		client.write(response{Id: req.Id})
		go func() {
			for room := range snapshots {
				client.write(response{Push: pushRoom, WatchId: req.WatchId, Room: &room})
			}
		}()

	case opWatchRooms:
		watchCtx, cancel := context.WithCancel(ctx)
		snapshots, err := s.store.WatchRooms(watchCtx)
		if err != nil {
			cancel()
			client.write(response{Id: req.Id, Error: errCode(err)})
			return
		}
		client.mu.Lock()
		client.watches[req.WatchId] = cancel
		client.mu.Unlock()
		client.write(response{Id: req.Id})
		go func() {
			for rooms := range snapshots {
				client.write(response{Push: pushRooms, WatchId: req.WatchId, Rooms: rooms})
			}
		}()

	case opUnwatch:
		client.mu.Lock()
		if cancel, exists := client.watches[req.WatchId]; exists {
			cancel()
			delete(client.watches, req.WatchId)
		}
		client.mu.Unlock()
		client.write(response{Id: req.Id})

	default:
		client.write(response{Id: req.Id, Error: errCodeBadRequest})
	}
}

func errCode(err error) string {
	switch {
	case errors.Is(err, storage.ErrRoomNotFound):
		return errCodeRoomNotFound
	case errors.Is(err, storage.ErrRoomExists):
		return errCodeRoomExists
	default:
		return err.Error()
	}
}
