package mcts

import (
	"sync"

	"github.com/nnchess/mctscore/position"
)

// NodeStats is the mutable block behind one position: the per-child arrays
// (prior, visit count, accumulated action value) a PUCT select reads and
// writes. When two different paths through the tree reach the same
// position, their Node instances point at the same NodeStats so visits
// recorded via one path are visible to the other - this is the whole
// point of keeping transposition tables. Everything that must be
// consistent across those shared paths lives here; everything that is
// legitimately per-edge (virtual loss, see Node) does not.
type NodeStats struct {
	mu sync.Mutex

	refs int32

	n uint32 // sum of childVisits: the N(s) term used as the parent-visit count in PUCT

	childPrior       []float32
	childVisits      []uint32
	childActionValue []float32 // running mean of backed-up values for taking child i, already averaged

	hasNNResults bool
	selfValue    float32 // this position's own evaluation (NN output, or terminal outcome)

	// pliesFromNull/rule50 are recorded at the moment this block was first
	// created, so a later hash hit can be verified against them before two
	// positions are allowed to share statistics - a hash match alone is not
	// sufficient, since it says nothing about the two positions' half-move
	// clocks or null-move distance.
	pliesFromNull int
	rule50        int
}

func newNodeStats(numMoves int) *NodeStats {
	return &NodeStats{
		refs:             1,
		childPrior:       make([]float32, numMoves),
		childVisits:      make([]uint32, numMoves),
		childActionValue: make([]float32, numMoves),
	}
}

// newNodeStatsForPosition is newNodeStats plus the plies-from-null/50-move
// fingerprint a transposition hit must be verified against before sharing.
func newNodeStatsForPosition(pos position.Position, numMoves int) *NodeStats {
	s := newNodeStats(numMoves)
	s.pliesFromNull = pos.PliesFromNull()
	s.rule50 = pos.Rule50Counter()
	return s
}

// matchesPosition reports whether pos's plies-from-null and 50-move clock
// agree with the state recorded when this stats block was created - the
// additional check a hash hit must pass before two positions are treated
// as the same transposition and allowed to share statistics.
func (s *NodeStats) matchesPosition(pos position.Position) bool {
	return s.pliesFromNull == pos.PliesFromNull() && s.rule50 == pos.Rule50Counter()
}

func (s *NodeStats) retain() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

// release drops a reference. Stats blocks are never freed proactively in
// this implementation (the transposition table keeps its own reference for
// the lifetime of a search), so this only exists to keep the refcount
// honest for diagnostics.
func (s *NodeStats) release() {
	s.mu.Lock()
	s.refs--
	s.mu.Unlock()
}

// qsa returns the average action value for child i, 0 if never visited.
func (s *NodeStats) qsa(i int) float32 {
	return s.childActionValue[i]
}
