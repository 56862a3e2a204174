package game

import (
	"fmt"
	"strconv"
	"strings"
)

// BoardSize is the side length of the caro grid.
const BoardSize = 15

// WinLength is the minimum run length that wins. Longer runs (overlines)
// also win.
const WinLength = 5

type Symbol string

const (
	Empty Symbol = ""
	X     Symbol = "X"
	O     Symbol = "O"
)

// Opponent returns the other playing symbol. X opens every game, so the
// turn after any move belongs to the opponent of the move's symbol.
func (s Symbol) Opponent() Symbol {
	if s == X {
		return O
	}
	return X
}

func (s Symbol) Valid() bool {
	return s == X || s == O
}

type Cell struct {
	Row int
	Col int
}

// Board holds the local replica of the shared move log.
type Board struct {
	cells [BoardSize][BoardSize]Symbol
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) At(row, col int) Symbol {
	return b.cells[row][col]
}

func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// Place writes a symbol at (row, col). An occupied cell is never
// overwritten; placing onto one is reported as false.
func (b *Board) Place(row, col int, symbol Symbol) bool {
	if !b.InBounds(row, col) || !symbol.Valid() {
		return false
	}
	if b.cells[row][col] != Empty {
		return false
	}
	b.cells[row][col] = symbol
	return true
}

// Apply merges a snapshot's moves map into the board. The map is
// grow-only, so the merge is a set union over keys and repeating it is
// harmless. Returns the cells that were newly applied.
func (b *Board) Apply(moves map[string]string) []Cell {
	var applied []Cell
	for key, value := range moves {
		row, col, err := ParseMoveKey(key)
		if err != nil {
			continue
		}
		if b.Place(row, col, Symbol(value)) {
			applied = append(applied, Cell{Row: row, Col: col})
		}
	}
	return applied
}

// MoveKey encodes a cell position as the "row_col" document key.
func MoveKey(row, col int) string {
	return fmt.Sprintf("%d_%d", row, col)
}

func ParseMoveKey(key string) (int, int, error) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed move key: %q", key)
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed move key: %q", key)
	}
	col, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed move key: %q", key)
	}
	return row, col, nil
}

// CheckWin tests whether the stone at (row, col) completes a run of
// WinLength or more. Each of the 4 axes is walked outward in both
// directions from the placed stone. The winning cells are returned in
// line order for highlighting.
func CheckWin(b *Board, row, col int, symbol Symbol) ([]Cell, bool) {
	if !b.InBounds(row, col) || b.At(row, col) != symbol {
		return nil, false
	}

	axes := [4][2]int{
		{0, 1},  // horizontal
		{1, 0},  // vertical
		{1, 1},  // diagonal down-right
		{1, -1}, // diagonal down-left
	}

	for _, axis := range axes {
		dr, dc := axis[0], axis[1]
		run := []Cell{{Row: row, Col: col}}

		for r, c := row+dr, col+dc; b.InBounds(r, c) && b.At(r, c) == symbol; r, c = r+dr, c+dc {
			run = append(run, Cell{Row: r, Col: c})
		}
		for r, c := row-dr, col-dc; b.InBounds(r, c) && b.At(r, c) == symbol; r, c = r-dr, c-dc {
			run = append([]Cell{{Row: r, Col: c}}, run...)
		}

		if len(run) >= WinLength {
			return run, true
		}
	}
	return nil, false
}
