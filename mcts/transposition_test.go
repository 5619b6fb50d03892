package mcts

import (
	"testing"

	"github.com/nnchess/mctscore/position"
	"github.com/stretchr/testify/require"
)

func TestInsertOrGetSharesStatsOnHashCollision(t *testing.T) {
	table := newTranspositionTable()

	first := newNodeStats(5)
	actual, hit := table.insertOrGet(42, first)
	require.False(t, hit)
	require.Same(t, first, actual)

	second := newNodeStats(5)
	actual, hit = table.insertOrGet(42, second)
	require.True(t, hit, "a second insert under the same hash must report a hit")
	require.Same(t, first, actual, "the hit must return the original block, not the caller's own")
	require.Equal(t, 1, table.size())
}

// TestTranspositionSharingAcrossMoveOrders is scenario S4: two move orders
// that commute (four independent knight developing moves) reach an
// identical position, so the transposition table must fold the second
// arrival onto the first instead of creating a second, disjoint entry.
func TestTranspositionSharingAcrossMoveOrders(t *testing.T) {
	a := position.NewGame()
	for _, m := range []position.Move{"g1f3", "g8f6", "b1c3", "b8c6"} {
		require.NoError(t, a.DoMove(m))
	}

	b := position.NewGame()
	for _, m := range []position.Move{"b1c3", "b8c6", "g1f3", "g8f6"} {
		require.NoError(t, b.DoMove(m))
	}

	require.Equal(t, a.FEN(), b.FEN(), "the two commuting move orders must reach the same position")
	require.Equal(t, a.Hash(), b.Hash())

	table := newTranspositionTable()
	statsA := newNodeStats(len(a.LegalMoves()))
	actual, hit := table.insertOrGet(a.Hash(), statsA)
	require.False(t, hit)
	require.Same(t, statsA, actual)

	statsB := newNodeStats(len(b.LegalMoves()))
	actual, hit = table.insertOrGet(b.Hash(), statsB)
	require.True(t, hit, "arriving at the same position via a different move order must hit the existing entry")
	require.Same(t, statsA, actual)
}
