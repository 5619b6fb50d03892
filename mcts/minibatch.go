package mcts

// edge is one (node, child index) step on a path from root to a leaf.
type edge struct {
	node *Node
	idx  int
}

// leaf describes one result of a single root-to-leaf traversal: the full
// path walked (for backup) and the node reached.
type leaf struct {
	path []edge
	node *Node
}

// miniBatch is the four bounded buckets a worker fills during one
// create-mini-batch round: brand new positions (need NN evaluation),
// transposition hits whose stats already carry NN results (no evaluation
// needed, backup immediately), newly discovered terminal positions
// (value known analytically), and collisions (this traversal reached a
// node another worker is already waiting on a result for).
type miniBatch struct {
	newNodes           []leaf
	transpositionNodes []leaf
	terminalNodes      []leaf
	collisionNodes     []leaf

	capacity int
}

func newMiniBatch(capacity int) *miniBatch {
	return &miniBatch{capacity: capacity}
}

func (b *miniBatch) count() int {
	return len(b.newNodes) + len(b.transpositionNodes) + len(b.terminalNodes) + len(b.collisionNodes)
}

// full reports whether any single bucket has reached capacity, not whether
// the four buckets' total has - a collision-heavy round must not be
// allowed to starve newNodes down to a handful of entries when the batch
// could otherwise hold a full capacity's worth of brand-new positions.
func (b *miniBatch) full() bool {
	return len(b.newNodes) >= b.capacity ||
		len(b.transpositionNodes) >= b.capacity ||
		len(b.terminalNodes) >= b.capacity ||
		len(b.collisionNodes) >= b.capacity
}
