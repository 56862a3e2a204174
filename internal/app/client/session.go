package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/game"
	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/caro-vn/caro-online/pkg/logging"
	"go.uber.org/zap"
)

type Outcome uint8

const (
	NoOutcome Outcome = iota
	OutcomeWin
	OutcomeLoss
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "WIN"
	case OutcomeLoss:
		return "LOSS"
	case OutcomeTimeout:
		return "TIMEOUT"
	default:
		return "NONE"
	}
}

type Result struct {
	Outcome      Outcome
	Winner       game.Symbol
	WinningCells []game.Cell
}

// SoundPlayer triggers a sound effect by event name. Implementations are
// presentation-side.
type SoundPlayer interface {
	Play(name string)
}

// Handlers are the presentation hooks of a session. Any of them may be
// left unset.
type Handlers struct {
	Sound          SoundPlayer
	OnUrgency      func(Urgency)
	OnBoardChanged func()
	OnEnd          func(Result)
}

// Session is one client's view of a running match. All shared state
// flows through room snapshots: the full moves map is reconciled into
// the local board on every snapshot, so a reloaded client recovers the
// whole game, and the turn is derived from LastMove alone rather than a
// local counter that could drift from storage.
type Session struct {
	store    storage.RoomStore
	roomId   string
	role     string
	symbol   game.Symbol
	governor *Governor
	handlers Handlers

	mu       sync.Mutex
	board    *game.Board
	turn     game.Symbol
	lastSeen *entities.LastMove
	ended    bool
	result   Result

	cancel context.CancelFunc
}

func NewSession(
	store storage.RoomStore,
	room entities.Room,
	role string,
	cfg Config,
	handlers Handlers,
) *Session {
	symbol := game.X
	if role == entities.RoleJoined {
		symbol = game.O
	}
	return &Session{
		store:    store,
		roomId:   room.RoomId,
		role:     role,
		symbol:   symbol,
		governor: NewGovernor(cfg),
		handlers: handlers,
		board:    game.NewBoard(),
		turn:     game.X,
	}
}

func (s *Session) Symbol() game.Symbol {
	return s.symbol
}

// Turn returns the symbol whose turn it currently is.
func (s *Session) Turn() game.Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// BoardSnapshot copies the current board for rendering.
func (s *Session) BoardSnapshot() game.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.board
}

func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Run drives the session until the match ends or the context is
// canceled. It blocks; callers interact through PlaceStone and the
// handlers.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	snapshots, err := s.store.WatchRoom(ctx, s.roomId)
	if err != nil {
		return fmt.Errorf("failed to watch room: %w", err)
	}

	s.governor.Start()
	defer s.governor.Stop()
	clockEvents := s.governor.Events()

	logging.Info("match started",
		zap.String("room_id", s.roomId),
		zap.String("role", s.role),
		zap.String("symbol", string(s.symbol)),
	)

	for {
		select {
		case <-ctx.Done():
			if s.isEnded() {
				return nil
			}
			return ctx.Err()
		case room, ok := <-snapshots:
			if !ok {
				if s.isEnded() {
					return nil
				}
				return ctx.Err()
			}
			s.reconcile(room)
		case ev, ok := <-clockEvents:
			if ok {
				s.handleClockEvent(ev)
			} else {
				// A nil channel blocks forever, taking the closed
				// channel out of the select.
				clockEvents = nil
			}
		}
		if s.isEnded() {
			return nil
		}
	}
}

// PlaceStone validates the move locally and, if legal, performs the two
// writes as a single document update: the moves map entry and the
// LastMove change signal. A rejected move performs no write at all.
func (s *Session) PlaceStone(ctx context.Context, row, col int) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return ErrMatchOver
	}
	if s.turn != s.symbol {
		s.mu.Unlock()
		return ErrNotYourTurn
	}
	if !s.board.InBounds(row, col) {
		s.mu.Unlock()
		return fmt.Errorf("cell out of bounds: %d,%d", row, col)
	}
	if s.board.At(row, col) != game.Empty {
		s.mu.Unlock()
		return ErrCellOccupied
	}
	s.mu.Unlock()

	move := entities.LastMove{Row: row, Col: col, Symbol: string(s.symbol)}
	update := storage.RoomUpdate{
		Moves:    map[string]string{game.MoveKey(row, col): string(s.symbol)},
		LastMove: &move,
	}
	// Local state changes only after the write lands. A failed write
	// leaves board and turn untouched, so the same move can simply be
	// re-entered once the store recovers.
	if err := s.store.UpdateRoom(ctx, s.roomId, update); err != nil {
		return fmt.Errorf("failed to submit move: %w", err)
	}

	s.mu.Lock()
	s.board.Place(row, col, s.symbol)
	if s.turn == s.symbol {
		s.turn = s.symbol.Opponent()
	}
	s.mu.Unlock()

	s.governor.ResetTurn()
	logging.Info("stone placed",
		zap.String("room_id", s.roomId),
		zap.Int("row", row),
		zap.Int("col", col),
		zap.String("symbol", string(s.symbol)),
	)
	return nil
}

// reconcile merges one snapshot into local state. Applying the moves map
// twice is harmless: occupied cells are never overwritten, so the merge
// is a grow-only set union. That property is what lets a client that
// missed intermediate snapshots, or reloaded entirely, catch up from any
// later snapshot.
func (s *Session) reconcile(room entities.Room) {
	s.mu.Lock()
	applied := s.board.Apply(room.Moves)

	move := room.LastMove
	turnChanged := false
	if move != nil && !sameMove(s.lastSeen, move) {
		s.lastSeen = move
		next := game.Symbol(move.Symbol).Opponent()
		if next != s.turn {
			s.turn = next
		}
		turnChanged = true
	}
	s.mu.Unlock()

	if len(applied) > 0 && s.handlers.OnBoardChanged != nil {
		s.handlers.OnBoardChanged()
	}

	if move == nil {
		return
	}

	if cells, won := func() ([]game.Cell, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return game.CheckWin(s.board, move.Row, move.Col, game.Symbol(move.Symbol))
	}(); won {
		outcome := OutcomeLoss
		if game.Symbol(move.Symbol) == s.symbol {
			outcome = OutcomeWin
		}
		s.finish(Result{
			Outcome:      outcome,
			Winner:       game.Symbol(move.Symbol),
			WinningCells: cells,
		})
		return
	}

	// Both the mover's echo and the opponent's move land here; either
	// way the turn changed, so the per-turn clock restarts.
	if turnChanged {
		s.governor.ResetTurn()
	}
}

func (s *Session) handleClockEvent(ev ClockEvent) {
	switch ev.Kind {
	case UrgencyChanged:
		// One audio cue per threshold crossing, at 20s and again at 10s.
		if ev.Urgency != UrgencyNormal && s.handlers.Sound != nil {
			s.handlers.Sound.Play("timeout")
		}
		if s.handlers.OnUrgency != nil {
			s.handlers.OnUrgency(ev.Urgency)
		}
	case MatchExpired:
		s.finish(Result{Outcome: OutcomeTimeout})
	case TurnExpired:
		s.mu.Lock()
		holder := s.turn
		s.mu.Unlock()
		outcome := OutcomeWin
		winner := s.symbol
		if holder == s.symbol {
			outcome = OutcomeLoss
			winner = s.symbol.Opponent()
		}
		s.finish(Result{Outcome: outcome, Winner: winner})
	}
}

// finish ends the match exactly once and makes the board
// non-interactive; PlaceStone refuses with ErrMatchOver afterwards.
func (s *Session) finish(result Result) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.result = result
	s.mu.Unlock()

	s.governor.Stop()
	logging.Info("match ended",
		zap.String("room_id", s.roomId),
		zap.String("outcome", result.Outcome.String()),
		zap.String("winner", string(result.Winner)),
	)
	if s.handlers.OnEnd != nil {
		s.handlers.OnEnd(result)
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func sameMove(a, b *entities.LastMove) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Row == b.Row && a.Col == b.Col && a.Symbol == b.Symbol
}
