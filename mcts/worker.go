package mcts

import (
	"context"
	"sync/atomic"

	"github.com/nnchess/mctscore/eval"
	"github.com/nnchess/mctscore/position"
	"github.com/pkg/errors"
)

type bucketKind int

const (
	bucketNew bucketKind = iota
	bucketTransposition
	bucketTerminal
	bucketCollision
)

// worker runs one goroutine's share of the search: it repeatedly fills a
// mini-batch of leaves by traversal, evaluates the new ones in a single
// batched call, and backs up every leaf in the batch (new, transposition,
// terminal and collision alike) before starting the next round. Grouping
// backup this way - after the whole round's worth of leaves is known,
// rather than immediately per-leaf - keeps virtual loss applied across
// every leaf-collection iteration in the round, which is what makes the
// round diversify instead of N threads all picking the same best path.
type worker struct {
	root     *Node
	table    *transpositionTable
	settings Settings
	indexer  eval.MoveIndexer
	ev       eval.Evaluator

	nodeCount  *int64
	nodesLimit int64 // 0 means unbounded
	depthLimit int    // 0 means unbounded; the "go depth N" stopping condition
	cancel     context.CancelFunc
}

func newWorker(root *Node, table *transpositionTable, settings Settings, indexer eval.MoveIndexer, ev eval.Evaluator, nodeCount *int64) *worker {
	return &worker{root: root, table: table, settings: settings, indexer: indexer, ev: ev, nodeCount: nodeCount}
}

// run loops create-mini-batch/evaluate/backup until ctx is cancelled.
func (w *worker) run(ctx context.Context) error {
	batchCap := w.settings.BatchSize
	if batchCap > w.ev.BatchSize() {
		batchCap = w.ev.BatchSize()
	}
	if batchCap < 1 {
		batchCap = 1
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		batch := newMiniBatch(batchCap)
	fill:
		for !batch.full() {
			select {
			case <-ctx.Done():
				// finish this round (evaluate and back up what was
				// collected) so no virtual loss is left behind
				break fill
			default:
			}
			lf, kind := traverseOnce(w.root, w.table, w.settings, w.depthLimit)
			switch kind {
			case bucketNew:
				batch.newNodes = append(batch.newNodes, lf)
			case bucketTransposition:
				batch.transpositionNodes = append(batch.transpositionNodes, lf)
			case bucketTerminal:
				batch.terminalNodes = append(batch.terminalNodes, lf)
			case bucketCollision:
				batch.collisionNodes = append(batch.collisionNodes, lf)
			}
		}

		if len(batch.newNodes) > 0 {
			if err := w.evaluateNew(batch.newNodes); err != nil {
				return errors.WithMessage(err, "mcts: batched evaluation failed")
			}
			n := atomic.AddInt64(w.nodeCount, int64(len(batch.newNodes)))
			if w.nodesLimit > 0 && n >= w.nodesLimit && w.cancel != nil {
				w.cancel()
			}
		}

		vl := uint32(w.settings.VirtualLoss)
		for _, lf := range batch.newNodes {
			backupFullPath(lf, vl)
		}
		for _, lf := range batch.transpositionNodes {
			backupFullPath(lf, vl)
		}
		for _, lf := range batch.terminalNodes {
			backupFullPath(lf, vl)
		}
		for _, lf := range batch.collisionNodes {
			undoCollisionPath(lf, vl)
		}
	}
}

// evaluateNew runs one batched NN call over every brand-new leaf and fills
// each leaf's own value and children's priors from the result. Priors go
// through softmax (skipped for a policy-map evaluator, whose output is
// already meant to be read as probabilities) and then, unconditionally,
// settings.priorTemperature() via applyPriorTemperature - §4.4's
// p_i <- p_i^(1/tau) step applies in both cases, not just the softmax one.
func (w *worker) evaluateNew(leaves []leaf) error {
	n := len(leaves)
	planeSize := w.ev.PlaneSize()
	policyWidth := w.ev.PolicyWidth()

	input := make([]float32, n*planeSize)
	for b, lf := range leaves {
		whiteToMove := lf.node.sideToMove == position.White
		plane := eval.BoardEncoder(lf.node.pos.FEN(), whiteToMove)
		copy(input[b*planeSize:(b+1)*planeSize], plane)
	}

	values := make([]float32, n)
	policy := make([]float32, n*policyWidth)
	if err := w.ev.Predict(input, n, values, policy); err != nil {
		return err
	}

	for b, lf := range leaves {
		node := lf.node
		logits := make([]float32, len(node.moves))
		for i, m := range node.moves {
			idx := w.indexer(m, node.sideToMove)
			if idx >= 0 && idx < policyWidth {
				logits[i] = policy[b*policyWidth+idx]
			}
		}
		var prior []float32
		if w.ev.IsPolicyMap() {
			prior = logits
		} else {
			prior = softmaxWithTemperature(logits, 1)
		}
		applyPriorTemperature(prior, w.settings.priorTemperature())

		node.Lock()
		node.stats.selfValue = values[b]
		copy(node.stats.childPrior, prior)
		node.stats.hasNNResults = true
		node.Unlock()
	}
	return nil
}

// traverseOnce walks from root following PUCT selection until it reaches
// either an unresolved edge (which it resolves via the transposition
// table), an existing-but-still-pending node (collision), or a terminal
// node, recording virtual loss and the path as it goes. If depthLimit is
// positive and the descent reaches it before resolving to a real leaf, the
// descent aborts with a collision outcome (no new information, virtual
// loss undone) rather than continuing unbounded.
func traverseOnce(root *Node, table *transpositionTable, settings Settings, depthLimit int) (leaf, bucketKind) {
	node := root
	var path []edge
	for {
		i := node.selectAndAddVirtualLoss(settings, uint32(settings.VirtualLoss))
		path = append(path, edge{node: node, idx: i})

		if depthLimit > 0 && len(path) >= depthLimit {
			return leaf{path: path, node: node}, bucketCollision
		}

		node.Lock()
		child := node.children[i]
		node.Unlock()

		if child == nil {
			newChild, kind := resolveChild(node, i, table)
			return leaf{path: path, node: newChild}, kind
		}
		if child.isTerminal {
			return leaf{path: path, node: child}, bucketTerminal
		}

		child.Lock()
		ready := child.stats.hasNNResults
		child.Unlock()
		if !ready {
			return leaf{path: path, node: child}, bucketCollision
		}
		node = child
	}
}

// resolveChild materializes the position reached by move i from parent,
// classifying it as new, a transposition hit, or terminal. A hash hit is
// only treated as a sharable transposition once its plies-from-null and
// 50-move clock are also confirmed equal to the arriving position's - a
// hash match by itself is necessary but not sufficient, and sharing a
// block across two positions that differ in either would corrupt whichever
// line has the different half-move-clock/null-move state.
func resolveChild(parent *Node, i int, table *transpositionTable) (*Node, bucketKind) {
	move := parent.moves[i]
	childPos := parent.pos.Clone()
	if err := childPos.DoMove(move); err != nil {
		panic(errors.Wrapf(err, "mcts: legal move %q rejected by position", move))
	}

	if ended, _ := childPos.IsTerminal(); ended {
		stats := newNodeStatsForPosition(childPos, 0)
		child := newNode(childPos, stats, parent, i)
		parent.Lock()
		parent.children[i] = child
		parent.Unlock()
		return child, bucketTerminal
	}

	moves := childPos.LegalMoves()
	stats := newNodeStatsForPosition(childPos, len(moves))
	actual, hit := table.insertOrGet(childPos.Hash(), stats)
	if hit && actual.matchesPosition(childPos) {
		return attachTransposition(parent, i, childPos, actual)
	}

	// Either a brand-new hash, or a hash collision against a position with
	// a different plies-from-null/50-move state: this position gets its
	// own, unregistered stats block rather than sharing someone else's.
	if hit {
		actual.release()
		actual = stats
	}
	child := newNode(childPos, actual, parent, i)
	parent.Lock()
	parent.children[i] = child
	parent.Unlock()
	return child, bucketNew
}

func attachTransposition(parent *Node, i int, childPos position.Position, stats *NodeStats) (*Node, bucketKind) {
	child := newNode(childPos, stats, parent, i)
	parent.Lock()
	parent.children[i] = child
	parent.Unlock()

	stats.mu.Lock()
	ready := stats.hasNNResults
	stats.mu.Unlock()
	if ready {
		return child, bucketTransposition
	}
	return child, bucketCollision
}

// backupFullPath propagates lf.node's own value back up every edge on the
// path, negating it at each level (the side to move alternates), and
// clears the virtual loss traverseOnce speculatively added along the way.
func backupFullPath(lf leaf, virtualLoss uint32) {
	value := lf.node.Value()
	for i := len(lf.path) - 1; i >= 0; i-- {
		e := lf.path[i]
		value = -value
		e.node.backup(e.idx, value)
		e.node.clearVirtualLoss(e.idx, virtualLoss)
	}
}

// undoCollisionPath reverses the virtual loss this traversal speculatively
// added along its own path, since it discovered nothing new to back up:
// the node it reached is still being evaluated by whichever traversal
// discovered it first, and that traversal's own eventual backup clears its
// own share of the virtual loss on the same edges.
func undoCollisionPath(lf leaf, virtualLoss uint32) {
	for i := len(lf.path) - 1; i >= 0; i-- {
		e := lf.path[i]
		e.node.clearVirtualLoss(e.idx, virtualLoss)
	}
}
