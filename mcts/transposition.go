package mcts

import "sync"

// transpositionTable maps a position hash to the NodeStats block for that
// position. Entries are append-only for the lifetime of a search: once a
// hash has been inserted its NodeStats is never replaced, only shared, so
// a lookup that races an insert either misses (and goes on to create its
// own entry, later discovering the collision on its own insert attempt) or
// hits a fully-formed block - there is no half-written state to observe.
type transpositionTable struct {
	mu      sync.Mutex
	entries map[uint64]*NodeStats
}

func newTranspositionTable() *transpositionTable {
	return &transpositionTable{entries: make(map[uint64]*NodeStats)}
}

// get returns the stats block for hash, if any.
func (t *transpositionTable) get(hash uint64) (*NodeStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[hash]
	return s, ok
}

// insertOrGet installs stats under hash unless another worker beat it to
// it, in which case the existing block is returned instead and the caller
// is expected to discard the one it built. This is the single point where
// a "new node" becomes a "transposition hit" for every future looker.
func (t *transpositionTable) insertOrGet(hash uint64, stats *NodeStats) (actual *NodeStats, hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.entries[hash]; ok {
		existing.retain()
		return existing, true
	}
	t.entries[hash] = stats
	return stats, false
}

func (t *transpositionTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
