package mcts

import (
	"github.com/nnchess/mctscore/position"
)

// Node is the structural half of a tree position: which moves are legal,
// which child Node (if any) each leads to, and the path back to the root.
// Its statistics - N(s,a), Q(s,a), P(s,a) - live on the shared NodeStats
// pointed to by stats, not here, so that a transposition hit can splice a
// second path onto the same numbers without the two paths fighting over a
// single struct's fields.
//
// Virtual loss is the one exception: it is kept per Node, not per
// NodeStats, because it exists to stop *this edge* from being re-selected
// by another worker mid-flight. A second path reaching the same position
// through a different edge is a different contention point and must be
// free to be explored while the first is still pending evaluation.
type Node struct {
	stats *NodeStats

	pos   position.Position
	moves []position.Move

	children    []*Node // nil until a move has produced a child; parallel to moves
	virtualLoss []uint32

	parent           *Node
	childIdxInParent int

	isTerminal    bool
	terminalValue float32 // from the perspective of sideToMove
	sideToMove    position.Color
}

// newNode builds a freshly expanded node: it does not yet have NN results,
// so stats.hasNNResults is false and childPrior is all zero until a worker
// fills it in after evaluation. A terminal position is the exception: it
// gets no moves, and its fixed value is written to stats with
// hasNNResults set at once.
func newNode(pos position.Position, stats *NodeStats, parent *Node, childIdxInParent int) *Node {
	ended, value := pos.IsTerminal()
	n := &Node{
		stats:            stats,
		pos:              pos,
		parent:           parent,
		childIdxInParent: childIdxInParent,
		isTerminal:       ended,
		terminalValue:    value,
		sideToMove:       pos.SideToMove(),
	}
	if !ended {
		n.moves = pos.LegalMoves()
		n.virtualLoss = make([]uint32, len(n.moves))
		n.children = make([]*Node, len(n.moves))
	} else {
		stats.selfValue = value
		stats.hasNNResults = true
	}
	return n
}

// Lock and Unlock serialize access to this node's shared stats block. In
// the common case (no transposition) this is exclusively this node's own
// lock; under a transposition hit it is shared with every other Node
// pointing at the same NodeStats, which is exactly the serialization that
// sharing the arrays requires.
func (n *Node) Lock()   { n.stats.mu.Lock() }
func (n *Node) Unlock() { n.stats.mu.Unlock() }

// Visits returns N(s) for this position, summed across every path sharing
// its stats block.
func (n *Node) Visits() uint32 {
	n.Lock()
	defer n.Unlock()
	return n.stats.n
}

// Value returns this position's own evaluation (NN output, or terminal
// outcome), from the perspective of sideToMove.
func (n *Node) Value() float32 {
	n.Lock()
	defer n.Unlock()
	return n.stats.selfValue
}

// puct returns the PUCT upper-confidence value for child i:
//
//	U(s,a) = Q(s,a) + cpuct(N) * P(s,a) * sqrt(N(s)) / (1 + N(s,a))
//
// where cpuct grows slowly with the parent's visit count (AlphaZero's
// "CPuct_Base" schedule) rather than staying fixed, so exploration keeps
// contributing even deep into a long search. A pending virtual loss on
// edge i is folded in as though it were amount-many additional visits of
// value -1, so other workers mid-flight down the same edge see a
// depressed Q(s,a) and are pushed towards a different child. The stored
// childActionValue is already an averaged, bounded running mean (not a
// sum), so the virtual loss blend recombines it with its own visit count
// only for this one read, rather than persisting a sum anywhere.
func (n *Node) puct(i int, settings Settings) float32 {
	cpuct := settings.cPuctInit()
	if settings.CPuctBase > 0 {
		cpuct += log1p(float32(n.stats.n+1) / float32(settings.CPuctBase))
	}

	vl := n.virtualLoss[i]
	realVisits := n.stats.childVisits[i]
	visits := realVisits + vl

	q := float32(0)
	if visits > 0 {
		sum := float32(realVisits)*n.stats.childActionValue[i] - float32(vl)
		q = sum / float32(visits)
	}
	p := n.stats.childPrior[i]
	u := cpuct * p * sqrtf(float32(n.stats.n)) / (1 + float32(visits))
	return q + u
}

// selectAndAddVirtualLoss picks the legal move index with the highest PUCT
// value and immediately marks it as having a pending evaluation in flight,
// all under a single critical section. Splitting selection and the virtual
// loss increment into two separate locks would let two workers both select
// the same child before either's virtual loss becomes visible to the
// other, defeating the diversification virtual loss exists to provide.
func (n *Node) selectAndAddVirtualLoss(settings Settings, amount uint32) int {
	n.Lock()
	defer n.Unlock()

	best := -1
	var bestScore float32
	for i := range n.moves {
		score := n.puct(i, settings)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	n.virtualLoss[best] += amount
	return best
}

// clearVirtualLoss removes a previously added virtual loss once the real
// backup for that edge has been applied.
func (n *Node) clearVirtualLoss(i int, amount uint32) {
	n.Lock()
	if n.virtualLoss[i] >= amount {
		n.virtualLoss[i] -= amount
	} else {
		n.virtualLoss[i] = 0
	}
	n.Unlock()
}

// backup records one visit of value to child i: value is from child i's
// own perspective (as returned by Node.Value on that child), so no sign
// flip happens here - the caller walking the path back to the root is
// responsible for negating value at each level it crosses, since each
// level alternates side to move. The running mean is updated in its
// standard incremental form (qsa += (v - qsa) / visits), not as a
// sum-of-values divided at read time, so a shared transposition stats
// block stays numerically bounded no matter how many visits it accumulates.
func (n *Node) backup(i int, value float32) {
	n.Lock()
	n.stats.childVisits[i]++
	visits := n.stats.childVisits[i]
	n.stats.childActionValue[i] += (value - n.stats.childActionValue[i]) / float32(visits)
	n.stats.n++
	n.Unlock()
}

// findChildByMove returns the index of the child reached by m, or -1.
func (n *Node) findChildByMove(m position.Move) int {
	for i, mv := range n.moves {
		if mv == m {
			return i
		}
	}
	return -1
}
