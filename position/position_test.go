package position

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGameStartingPosition(t *testing.T) {
	g := NewGame()
	require.Equal(t, White, g.SideToMove())
	require.Len(t, g.LegalMoves(), 20)
	ended, _ := g.IsTerminal()
	require.False(t, ended)
}

// TestMoveReplayMatchesFEN exercises testable property #6: replaying a
// move sequence from startpos must produce the same FEN as applying those
// moves directly, whether or not an UndoMove happened in between.
func TestMoveReplayMatchesFEN(t *testing.T) {
	moves := []Move{"e2e4", "e7e5", "g1f3", "b8c6"}

	direct := NewGame()
	for _, m := range moves {
		require.NoError(t, direct.DoMove(m))
	}

	replay := NewGame()
	for _, m := range moves {
		require.NoError(t, replay.DoMove(m))
	}
	// Undo the last move and redo it, this should not change the result.
	replay.UndoMove()
	require.NoError(t, replay.DoMove(moves[len(moves)-1]))

	require.Equal(t, direct.FEN(), replay.FEN())
	require.Equal(t, direct.Hash(), replay.Hash())
}

func TestDoMoveRejectsIllegalMove(t *testing.T) {
	g := NewGame()
	err := g.DoMove("e2e5")
	require.Error(t, err)
	var illegal *IllegalMoveError
	require.ErrorAs(t, err, &illegal)
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.DoMove("e2e4"))

	clone := g.Clone()
	require.NoError(t, clone.DoMove("e7e5"))

	// The original must not see the move applied to the clone.
	require.NotEqual(t, clone.FEN(), g.FEN())
	require.Len(t, g.LegalMoves(), len(g.LegalMoves()))
}

func TestRule50CounterResetsOnCaptureOrPawnMove(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.DoMove("g1f3")) // knight move: reversible
	require.Equal(t, 1, g.Rule50Counter())
	require.NoError(t, g.DoMove("g8f6")) // knight move: reversible
	require.Equal(t, 2, g.Rule50Counter())
	require.NoError(t, g.DoMove("e2e4")) // pawn move: irreversible
	require.Equal(t, 0, g.Rule50Counter())
}

func TestNewFromFENRejectsGarbage(t *testing.T) {
	_, err := NewFromFEN("not a fen")
	require.Error(t, err)
}
