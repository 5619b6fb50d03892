package mcts

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/nnchess/mctscore/eval"
	"github.com/nnchess/mctscore/position"
	"github.com/pkg/errors"
)

// Coordinator owns one search tree - its root, the transposition table
// backing it, and the settings every worker reads - and drives the worker
// pool across it for the duration of one Search call. It is the thing a
// UCI command handler talks to: position/go map directly onto
// NewGame/AdvanceRoot/Search, and stop onto cancelling the context passed
// to Search.
type Coordinator struct {
	mu       sync.Mutex
	root     *Node
	table    *transpositionTable
	settings Settings
	indexer  eval.MoveIndexer

	newEvaluator func() eval.Evaluator

	nodeCount int64
	stopCh    chan struct{}
}

// NewCoordinator builds a coordinator. newEvaluator must return an
// independent Evaluator instance each call, since the search core creates
// one per worker and never shares an instance across goroutines.
func NewCoordinator(settings Settings, indexer eval.MoveIndexer, newEvaluator func() eval.Evaluator) *Coordinator {
	return &Coordinator{
		settings:     settings,
		indexer:      indexer,
		newEvaluator: newEvaluator,
		table:        newTranspositionTable(),
	}
}

// SetSettings replaces the search settings used by future Search calls.
func (c *Coordinator) SetSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// NewGame discards the tree and starts fresh at pos.
func (c *Coordinator) NewGame(pos position.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = newTranspositionTable()
	c.root = c.makeRoot(pos)
}

// AdvanceRoot moves the root forward by move, reusing the existing
// subtree when the move has already been explored (the common case when
// the opponent plays the line the search was already considering) and
// falling back to a fresh root otherwise. This mirrors the teacher's
// cleanup/newRootState tree-reuse split, adapted to the pointer-and-hash
// structure here instead of a slab of indices.
func (c *Coordinator) AdvanceRoot(pos position.Position, move position.Move) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.root != nil {
		if idx := c.root.findChildByMove(move); idx >= 0 {
			c.root.Lock()
			child := c.root.children[idx]
			c.root.Unlock()
			if child != nil {
				child.parent = nil
				child.childIdxInParent = -1
				c.root = child
				return
			}
		}
	}
	c.root = c.makeRoot(pos)
}

func (c *Coordinator) makeRoot(pos position.Position) *Node {
	ended, _ := pos.IsTerminal()
	if ended {
		return newNode(pos, newNodeStats(0), nil, -1)
	}
	moves := pos.LegalMoves()
	stats := newNodeStatsForPosition(pos, len(moves))
	actual, hit := c.table.insertOrGet(pos.Hash(), stats)
	if hit && !actual.matchesPosition(pos) {
		actual.release()
		actual = stats
	}
	return newNode(pos, actual, nil, -1)
}

// Result is what a Search call reports back.
type Result struct {
	BestMove position.Move
	PV       []position.Move
	Nodes    int64
	NPS      int64
	Value    float32
}

// Search runs the worker pool against the current root until limits (or
// ctx) says to stop, then returns the move the root's statistics favor.
func (c *Coordinator) Search(ctx context.Context, limits SearchLimits) (Result, error) {
	c.mu.Lock()
	root := c.root
	settings := c.settings
	table := c.table
	c.mu.Unlock()

	if root == nil {
		return Result{}, errors.New("mcts: Search called before NewGame/AdvanceRoot set a position")
	}
	if root.isTerminal {
		return Result{}, errors.New("mcts: root position has no legal moves")
	}
	atomic.StoreInt64(&c.nodeCount, 0)

	if err := c.ensureRootEvaluated(root); err != nil {
		return Result{}, errors.WithMessage(err, "mcts: root evaluation")
	}
	applyRootNoise(root, settings)

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	if dl, ok := deadline(limits, root.sideToMove, start); ok {
		var dlCancel context.CancelFunc
		searchCtx, dlCancel = context.WithDeadline(searchCtx, dl)
		defer dlCancel()
	}

	threads := settings.Threads
	if threads < 1 {
		threads = 1
	}

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var workerErrs *multierror.Error
	for t := 0; t < threads; t++ {
		ev := c.newEvaluator()
		w := newWorker(root, table, settings, c.indexer, ev, &c.nodeCount)
		w.nodesLimit = limits.Nodes
		w.depthLimit = limits.Depth
		w.cancel = cancel
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.run(searchCtx); err != nil {
				errMu.Lock()
				workerErrs = multierror.Append(workerErrs, err)
				errMu.Unlock()
			}
		}()
	}

	c.watchStopConditions(searchCtx, cancel, root, settings, limits, start)
	wg.Wait()

	if workerErrs != nil {
		return Result{}, errors.WithMessage(workerErrs.ErrorOrNil(), "mcts: worker pool")
	}

	return c.buildResult(root, start), nil
}

// watchStopConditions polls the node budget and the early-stopping Q-gate
// alongside whatever deadline/ctx cancellation is already armed, and
// cancels cancel() the first time one trips.
func (c *Coordinator) watchStopConditions(ctx context.Context, cancel context.CancelFunc, root *Node, settings Settings, limits SearchLimits, start time.Time) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			nodes := atomic.LoadInt64(&c.nodeCount)
			if limits.Nodes > 0 && nodes >= limits.Nodes {
				cancel()
				return
			}
			if limits.Infinite || (limits.MoveTimeMS == 0 && limits.WTimeMS == 0 && limits.BTimeMS == 0) {
				// infinite search, or no clock-based budget armed: only nodes/ctx can stop this search
				continue
			}
			if _, q, visits, total := bestChildQ(root); total > 0 {
				thresh := settings.qThresh(total)
				if visits > 0 && q >= thresh {
					cancel()
					return
				}
			}
		}
	}
}

// ensureRootEvaluated runs one synchronous, unbatched NN call against the
// root if it hasn't been evaluated yet (a freshly created root, or one
// reused from AdvanceRoot that was never itself queued for evaluation).
func (c *Coordinator) ensureRootEvaluated(root *Node) error {
	root.Lock()
	ready := root.stats.hasNNResults
	root.Unlock()
	if ready {
		return nil
	}

	ev := c.newEvaluator()
	w := newWorker(root, c.table, c.settings, c.indexer, ev, &c.nodeCount)
	return w.evaluateNew([]leaf{{node: root}})
}

// DumpDOT renders the current search tree as Graphviz DOT, capped at
// maxNodes, for the "debug tree" UCI extension.
func (c *Coordinator) DumpDOT(maxNodes int) (string, error) {
	c.mu.Lock()
	root := c.root
	c.mu.Unlock()
	if root == nil {
		return "", errors.New("mcts: no position set")
	}
	return DumpDOT(root, maxNodes)
}

func (c *Coordinator) buildResult(root *Node, start time.Time) Result {
	seed := c.settings.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	idx := finalMoveIndex(root, c.settings, rng)

	nodes := atomic.LoadInt64(&c.nodeCount)
	elapsed := time.Since(start)
	nps := int64(0)
	if elapsed > 0 {
		nps = int64(float64(nodes) / elapsed.Seconds())
	}

	root.Lock()
	move := root.moves[idx]
	value := root.stats.qsa(idx)
	root.Unlock()

	return Result{
		BestMove: move,
		PV:       principalVariation(root, 64),
		Nodes:    nodes,
		NPS:      nps,
		Value:    value,
	}
}
