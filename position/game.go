package position

import (
	"encoding/binary"

	"github.com/notnil/chess"
)

// Game is a Position backed by github.com/notnil/chess. It keeps the full
// move history (rather than truly undoing moves) the same way the teacher's
// game.Chess does, so UndoMove/DoMove are cheap slice index moves and Clone
// is a shallow copy of that history plus a fresh pointer.
type Game struct {
	history []*snapshot
	ptr     int
}

type snapshot struct {
	game      *chess.Game
	rule50    int
	plies     int
	repHashes []uint64 // hashes seen since the last irreversible move
}

// NewGame returns the standard starting position.
func NewGame() *Game {
	g := chess.NewGame(chess.UseNotation(chess.UCINotation{}))
	s := &snapshot{game: g}
	s.repHashes = append(s.repHashes, positionHash(g))
	return &Game{history: []*snapshot{s}, ptr: 0}
}

// NewFromFEN parses a FEN string into a position.
func NewFromFEN(fen string) (*Game, error) {
	fenFn, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	g := chess.NewGame(fenFn, chess.UseNotation(chess.UCINotation{}))
	s := &snapshot{game: g}
	s.repHashes = append(s.repHashes, positionHash(g))
	return &Game{history: []*snapshot{s}, ptr: 0}, nil
}

func (g *Game) cur() *snapshot { return g.history[g.ptr] }

// LegalMoves returns the legal moves from the current position.
func (g *Game) LegalMoves() []Move {
	valid := g.cur().game.ValidMoves()
	moves := make([]Move, len(valid))
	for i, m := range valid {
		moves[i] = Move(m.String())
	}
	return moves
}

// DoMove applies m if legal, extending history past any stale "future" left
// over from a prior UndoMove (mirroring the teacher's histPtr discipline).
func (g *Game) DoMove(m Move) error {
	cur := g.cur()
	var target *chess.Move
	for _, cand := range cur.game.ValidMoves() {
		if Move(cand.String()) == m {
			target = cand
			break
		}
	}
	if target == nil {
		return &IllegalMoveError{Move: m}
	}

	irreversible := target.HasTag(chess.Capture) || isPawnMove(cur.game, target)

	newGame := cur.game.Clone()
	if err := newGame.Move(target); err != nil {
		return &IllegalMoveError{Move: m}
	}

	next := &snapshot{game: newGame, plies: cur.plies + 1}
	if irreversible {
		next.rule50 = 0
		next.repHashes = []uint64{positionHash(newGame)}
	} else {
		next.rule50 = cur.rule50 + 1
		next.repHashes = append(append([]uint64(nil), cur.repHashes...), positionHash(newGame))
	}

	g.ptr++
	if g.ptr < len(g.history) {
		g.history[g.ptr] = next
		g.history = g.history[:g.ptr+1]
	} else {
		g.history = append(g.history, next)
	}
	return nil
}

// UndoMove reverts the last DoMove, if any.
func (g *Game) UndoMove() {
	if g.ptr > 0 {
		g.ptr--
	}
}

// Hash returns the low 8 bytes of the position's 128-bit zobrist-style hash.
// It is a derived digest, not an independently verified collision-free hash:
// two positions with the same Hash() are assumed (not proven) identical for
// transposition purposes, matching how the core treats the position hash
// everywhere else.
func (g *Game) Hash() uint64 {
	return positionHash(g.cur().game)
}

func positionHash(game *chess.Game) uint64 {
	h := game.Position().Hash()
	return binary.BigEndian.Uint64(h[:8])
}

// SideToMove returns the color to move.
func (g *Game) SideToMove() Color {
	switch g.cur().game.Position().Turn() {
	case chess.White:
		return White
	case chess.Black:
		return Black
	}
	return NoColor
}

// IsTerminal reports game end and the result from SideToMove's perspective.
func (g *Game) IsTerminal() (ended bool, value float32) {
	outcome := g.cur().game.Outcome()
	if outcome == chess.NoOutcome {
		return false, 0
	}
	if outcome == chess.Draw {
		return true, 0
	}
	var winner chess.Color
	if outcome == chess.WhiteWon {
		winner = chess.White
	} else {
		winner = chess.Black
	}
	toMove := g.cur().game.Position().Turn()
	if winner == toMove {
		// Cannot happen for checkmate (the side to move is the side that
		// just got mated), kept for completeness if Outcome ever reports a
		// resignation-style win for the side on move.
		return true, 1
	}
	return true, -1
}

// PliesFromNull is the ply count since this position's construction. The
// chess variant this adapter targets has no null-move concept, so this is
// simply the number of moves applied since the adapter's root.
func (g *Game) PliesFromNull() int {
	return g.cur().plies
}

// Rule50Counter is the half-move clock since the last capture or pawn move.
func (g *Game) Rule50Counter() int {
	return g.cur().rule50
}

// RepetitionCount is how many prior positions (since the last irreversible
// move) share this position's hash.
func (g *Game) RepetitionCount() int {
	cur := g.cur()
	h := positionHash(cur.game)
	count := 0
	for _, prev := range cur.repHashes[:len(cur.repHashes)-1] {
		if prev == h {
			count++
		}
	}
	return count
}

// FEN renders the current position.
func (g *Game) FEN() string {
	return g.cur().game.Position().String()
}

// Clone returns an independent snapshot of the history up to ptr.
func (g *Game) Clone() Position {
	n := &Game{
		history: make([]*snapshot, g.ptr+1),
		ptr:     g.ptr,
	}
	copy(n.history, g.history[:g.ptr+1])
	return n
}

func isPawnMove(game *chess.Game, m *chess.Move) bool {
	piece := game.Position().Board().Piece(m.S1())
	return piece == chess.WhitePawn || piece == chess.BlackPawn
}
