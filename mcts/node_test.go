package mcts

import (
	"testing"

	"github.com/nnchess/mctscore/position"
	"github.com/stretchr/testify/require"
)

func newEvaluatedRoot(t *testing.T, priors []float32) *Node {
	t.Helper()
	pos := position.NewGame()
	moves := pos.LegalMoves()
	stats := newNodeStats(len(moves))
	copy(stats.childPrior, priors)
	stats.hasNNResults = true
	return newNode(pos, stats, nil, -1)
}

func TestSelectChildTieBreaksOnLowerIndex(t *testing.T) {
	n := len(position.NewGame().LegalMoves())
	priors := make([]float32, n)
	for i := range priors {
		priors[i] = 1.0 / float32(n)
	}
	root := newEvaluatedRoot(t, priors)

	idx := root.selectAndAddVirtualLoss(DefaultSettings(), 0)
	require.Equal(t, 0, idx, "with identical priors and no visits, the lowest index wins")
}

func TestVirtualLossDepressesSelection(t *testing.T) {
	n := len(position.NewGame().LegalMoves())
	priors := make([]float32, n)
	for i := range priors {
		priors[i] = 1.0 / float32(n)
	}
	root := newEvaluatedRoot(t, priors)
	settings := DefaultSettings()

	first := root.selectAndAddVirtualLoss(settings, uint32(settings.VirtualLoss))
	second := root.selectAndAddVirtualLoss(settings, uint32(settings.VirtualLoss))
	require.NotEqual(t, first, second, "virtual loss on the first pick should push selection to a different child")

	root.clearVirtualLoss(first, uint32(settings.VirtualLoss))
	root.Lock()
	vl := root.virtualLoss[first]
	root.Unlock()
	require.EqualValues(t, 0, vl)
}

func TestBackupAccumulatesAndVisitsSumsToN(t *testing.T) {
	n := len(position.NewGame().LegalMoves())
	priors := make([]float32, n)
	for i := range priors {
		priors[i] = 1.0 / float32(n)
	}
	root := newEvaluatedRoot(t, priors)

	root.backup(0, 1)
	root.backup(0, -1)
	root.backup(1, 0.5)

	require.EqualValues(t, 3, root.Visits())
	require.InDelta(t, 0, root.stats.qsa(0), 1e-6)
	require.InDelta(t, 0.5, root.stats.qsa(1), 1e-6)
}

func TestClearVirtualLossClampsAtZero(t *testing.T) {
	root := newEvaluatedRoot(t, []float32{1})
	root.clearVirtualLoss(0, 5)
	root.Lock()
	vl := root.virtualLoss[0]
	root.Unlock()
	require.EqualValues(t, 0, vl)
}

func TestFindChildByMove(t *testing.T) {
	root := newEvaluatedRoot(t, make([]float32, len(position.NewGame().LegalMoves())))
	require.Equal(t, -1, root.findChildByMove("z9z9"))
	require.GreaterOrEqual(t, root.findChildByMove(root.moves[0]), 0)
}
