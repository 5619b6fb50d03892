package mcts

import (
	"context"
	"testing"
	"time"

	"github.com/nnchess/mctscore/eval"
	"github.com/nnchess/mctscore/position"
	"github.com/stretchr/testify/require"
)

// deterministicSettings turns off the two sources of randomness (root
// Dirichlet noise and temperature-weighted final move sampling) so a
// search's outcome only depends on the Evaluator and the node budget.
func deterministicSettings() Settings {
	s := DefaultSettings()
	s.Threads = 1
	s.BatchSize = 1
	s.CentiDirichletEpsilon = 0
	s.CentiRandomMoveFactor = 0
	return s
}

func newMockCoordinator(t *testing.T, settings Settings, m *eval.Mock) *Coordinator {
	t.Helper()
	c := NewCoordinator(settings, eval.AbsoluteSquareIndexer, func() eval.Evaluator { return m })
	c.NewGame(position.NewGame())
	return c
}

// TestSearchOnePlyDeterministic is scenario S1: a uniform-prior, zero-value
// mock evaluator searching exactly one node should back up exactly one
// visit to the root and still return a legal move.
func TestSearchOnePlyDeterministic(t *testing.T) {
	width := eval.AbsoluteSquareWidth
	m := eval.NewUniformMock(width, 1, 0, 1.0/float32(width))

	c := newMockCoordinator(t, deterministicSettings(), m)
	res, err := c.Search(context.Background(), SearchLimits{Nodes: 1})
	require.NoError(t, err)
	require.NotEmpty(t, res.BestMove)

	c.mu.Lock()
	root := c.root
	c.mu.Unlock()
	require.EqualValues(t, 1, root.Visits())

	visitedChildren := 0
	root.Lock()
	for _, v := range root.stats.childVisits {
		if v > 0 {
			visitedChildren++
		}
	}
	root.Unlock()
	require.Equal(t, 1, visitedChildren, "only the one searched child should have been visited")
}

// TestSearchPriorDomination is scenario S2: a mock evaluator whose prior is
// concentrated entirely on the root's first legal move should funnel
// nearly every one of 100 visits into that child.
func TestSearchPriorDomination(t *testing.T) {
	root := position.NewGame()
	dominant := root.LegalMoves()[0]
	dominantIdx := eval.AbsoluteSquareIndexer(dominant, position.White)

	width := eval.AbsoluteSquareWidth
	m := &eval.Mock{
		Value:       0,
		PolicyTable: map[int]float32{dominantIdx: 1.0},
		Default:     0,
		Width:       width,
		Batch:       1,
		PolicyMap:   true,
	}

	c := newMockCoordinator(t, deterministicSettings(), m)
	_, err := c.Search(context.Background(), SearchLimits{Nodes: 100})
	require.NoError(t, err)

	c.mu.Lock()
	r := c.root
	c.mu.Unlock()

	dominantSlot := r.findChildByMove(dominant)
	require.GreaterOrEqual(t, dominantSlot, 0)

	r.Lock()
	dominantVisits := r.stats.childVisits[dominantSlot]
	var otherVisits uint32
	for i, v := range r.stats.childVisits {
		if i != dominantSlot {
			otherVisits += v
		}
	}
	r.Unlock()

	require.Greater(t, dominantVisits, otherVisits)
	require.GreaterOrEqual(t, int(dominantVisits), 90)
}

// TestSearchTerminalShortcut is scenario S3: a position that is mate in one
// must return the mating move even with a very large node budget.
func TestSearchTerminalShortcut(t *testing.T) {
	// Fool's mate position: black to move delivers mate with Qh4#.
	pos, err := position.NewFromFEN("rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq g3 0 2")
	require.NoError(t, err)

	width := eval.AbsoluteSquareWidth
	m := eval.NewUniformMock(width, 1, 0, 1.0/float32(width))

	c := newMockCoordinator(t, deterministicSettings(), m)
	c.NewGame(pos)

	res, err := c.Search(context.Background(), SearchLimits{Nodes: 800})
	require.NoError(t, err)
	require.Equal(t, position.Move("d8h4"), res.BestMove)
}

// TestSearchVirtualLossSpreadAcrossThreads is scenario S5: with a uniform
// prior and a flat zero-value evaluator, PUCT reduces to "visit whichever
// child has been visited least", so virtual loss spread across many
// concurrent workers should keep the root's children visited roughly
// evenly rather than piling onto whichever one happened to be picked first.
func TestSearchVirtualLossSpreadAcrossThreads(t *testing.T) {
	width := eval.AbsoluteSquareWidth

	settings := deterministicSettings()
	settings.Threads = 8
	settings.BatchSize = 1

	// one Evaluator per worker, as NewCoordinator requires
	c := NewCoordinator(settings, eval.AbsoluteSquareIndexer, func() eval.Evaluator {
		return eval.NewUniformMock(width, 8, 0, 1.0/float32(width))
	})
	c.NewGame(position.NewGame())
	_, err := c.Search(context.Background(), SearchLimits{Nodes: 4000})
	require.NoError(t, err)

	c.mu.Lock()
	root := c.root
	c.mu.Unlock()

	root.Lock()
	visits := append([]uint32(nil), root.stats.childVisits...)
	root.Unlock()

	var total uint32
	for _, v := range visits {
		total += v
	}
	mean := float64(total) / float64(len(visits))
	require.Greater(t, mean, 0.0)

	for i, v := range visits {
		require.Greater(t, v, uint32(0), "child %d was never visited", i)
		require.InDelta(t, mean, float64(v), mean*0.7, "child %d visit count strayed too far from the mean", i)
	}
}

// TestSearchReproducibleWithFixedSeed is testable property #7: with
// Threads=1, Batch_Size=1, a fixed Evaluator and a fixed Settings.Seed, a
// `go nodes N` search is fully reproducible even with root Dirichlet noise
// and final-move sampling both left enabled, rather than sidestepping the
// property by zeroing them out the way deterministicSettings does.
func TestSearchReproducibleWithFixedSeed(t *testing.T) {
	width := eval.AbsoluteSquareWidth

	run := func() position.Move {
		m := eval.NewUniformMock(width, 1, 0, 1.0/float32(width))
		settings := DefaultSettings()
		settings.Threads = 1
		settings.BatchSize = 1
		settings.Seed = 42
		c := newMockCoordinator(t, settings, m)
		res, err := c.Search(context.Background(), SearchLimits{Nodes: 100})
		require.NoError(t, err)
		return res.BestMove
	}

	first := run()
	for i := 0; i < 4; i++ {
		require.Equal(t, first, run(), "same Seed, Evaluator and node budget must pick the same move every run")
	}
}

// TestSearchStopResponsiveness is scenario S6: an infinite search must
// honor ctx cancellation quickly and leave no virtual loss behind.
func TestSearchStopResponsiveness(t *testing.T) {
	width := eval.AbsoluteSquareWidth
	m := eval.NewUniformMock(width, 1, 0, 1.0/float32(width))

	c := newMockCoordinator(t, deterministicSettings(), m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var res Result
	var err error
	go func() {
		res, err = c.Search(ctx, SearchLimits{Infinite: true})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("search did not stop within 200ms of cancellation")
	}

	require.NoError(t, err)
	require.NotEmpty(t, res.BestMove)

	c.mu.Lock()
	root := c.root
	c.mu.Unlock()
	root.Lock()
	for i, vl := range root.virtualLoss {
		require.EqualValues(t, 0, vl, "virtual loss must be cleared on slot %d after the search joins", i)
	}
	root.Unlock()
}
