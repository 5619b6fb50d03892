// Package position adapts a concrete chess implementation to the minimal
// position contract the search core needs: legal moves, do/undo, a 64-bit
// hash, side to move, terminal detection, and the counters the
// transposition table's verification predicate checks.
package position

import "fmt"

// Color is the side to move.
type Color int8

// Colors.
const (
	NoColor Color = iota
	White
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return NoColor
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// Move is a move in UCI notation, e.g. "e2e4" or "e7e8q".
type Move string

// Position is the contract the search core relies on (spec §6). A concrete
// implementation owns its own state; Clone returns an independent snapshot
// so a worker can descend through do_move without disturbing siblings.
type Position interface {
	// LegalMoves returns the moves available from this position, in a
	// stable order fixed for the lifetime of this snapshot.
	LegalMoves() []Move

	// DoMove applies m, which must be present in LegalMoves(). Returns
	// IllegalMoveError if m is not legal here.
	DoMove(m Move) error

	// UndoMove reverts the most recent DoMove. Undoing past the position's
	// construction point is a no-op.
	UndoMove()

	// Hash returns a 64-bit digest of the position, board plus side to
	// move plus castling/en-passant rights.
	Hash() uint64

	// SideToMove returns the color to move next.
	SideToMove() Color

	// IsTerminal reports whether the game has ended at this position, and
	// if so the result from SideToMove's perspective (+1 win, -1 loss,
	// 0 draw).
	IsTerminal() (ended bool, value float32)

	// PliesFromNull is the number of plies since the last null move; for a
	// position that never makes null moves, the number of plies applied
	// since its construction. Captures and pawn moves do not reset it.
	PliesFromNull() int

	// Rule50Counter is the half-move clock toward the 50-move draw rule.
	Rule50Counter() int

	// RepetitionCount is how many times this exact position has occurred
	// previously since the last irreversible event.
	RepetitionCount() int

	// FEN renders the position in Forsyth-Edwards notation.
	FEN() string

	// Clone returns an independent copy sharing no mutable state.
	Clone() Position
}

// IllegalMoveError reports a move rejected by DoMove.
type IllegalMoveError struct {
	Move Move
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move: %s", e.Move)
}
