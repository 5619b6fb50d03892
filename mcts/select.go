package mcts

import (
	"math/rand"

	"github.com/nnchess/mctscore/position"
)

// finalMoveIndex picks the move to actually play once a search stops: it
// blends each child's raw visit count with a Q-value bonus, so a child
// that is nearly as visited but clearly better by Q can still be chosen,
// then turns the blended weights into N(a)^(1/factor) probabilities the
// same way AlphaZero-style move selection does, factor being
// settings.randomMoveFactor() (spec's Centi_Random_Move_Factor). A factor
// at or below 0.01 collapses this to a plain argmax, which is what
// competitive play should use; anything higher is for generating
// exploratory games.
func finalMoveIndex(root *Node, settings Settings, rng *rand.Rand) int {
	root.Lock()
	n := len(root.moves)
	weights := make([]float32, n)
	qWeight := settings.qValueWeight()
	for i := 0; i < n; i++ {
		visits := float32(root.stats.childVisits[i])
		q := root.stats.qsa(i)
		bonus := float32(0)
		if q > 0 {
			bonus = qWeight * q
		}
		weights[i] = visits * (1 + bonus)
	}
	root.Unlock()

	factor := settings.randomMoveFactor()
	if factor <= 0.01 {
		return argmax(weights)
	}

	dist := temperatureDistribution(weights, factor)
	r := rng.Float32()
	var accum float32
	for i, p := range dist {
		accum += p
		if r < accum {
			return i
		}
	}
	return len(dist) - 1
}

func temperatureDistribution(weights []float32, temperature float32) []float32 {
	out := make([]float32, len(weights))
	var sum float32
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		p := powf(w, 1/temperature)
		out[i] = p
		sum += p
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float32(len(out))
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// principalVariation walks the highest-visit child from root as far as
// nodes have been expanded, for UCI "info pv" reporting.
func principalVariation(root *Node, maxLen int) []position.Move {
	var pv []position.Move
	node := root
	for len(pv) < maxLen {
		node.Lock()
		if node.isTerminal || len(node.moves) == 0 {
			node.Unlock()
			break
		}
		best := -1
		var bestVisits uint32
		for i := range node.moves {
			v := node.stats.childVisits[i]
			if best == -1 || v > bestVisits {
				best = i
				bestVisits = v
			}
		}
		if bestVisits == 0 {
			node.Unlock()
			break
		}
		move := node.moves[best]
		child := node.children[best]
		node.Unlock()

		pv = append(pv, move)
		if child == nil {
			break
		}
		node = child
	}
	return pv
}

// bestChildQ returns the most-visited child's averaged action value, used
// by the early-stopping gate: once that child is trusted (its Q value
// clears qThresh), the search can stop before exhausting its node budget.
func bestChildQ(root *Node) (idx int, q float32, visits uint32, total uint32) {
	root.Lock()
	defer root.Unlock()
	best := -1
	var bestVisits uint32
	for i := range root.moves {
		v := root.stats.childVisits[i]
		total += v
		if best == -1 || v > bestVisits {
			best = i
			bestVisits = v
		}
	}
	if best == -1 {
		return -1, 0, 0, total
	}
	return best, root.stats.qsa(best), bestVisits, total
}
