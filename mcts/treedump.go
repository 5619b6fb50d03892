package mcts

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

// DumpDOT renders the explored part of the tree rooted at root as a
// Graphviz DOT document, each node labeled with its visit count and its
// own evaluation (NN or terminal value) and each edge labeled with the
// move, its visit count and its prior. This
// is a debugging aid only - gorgonia itself reaches for gographviz to
// visualize its own expression graphs; here the same library visualizes
// the search tree instead. maxNodes bounds how many nodes are emitted so
// a long search doesn't produce an unreadable (or enormous) graph.
func DumpDOT(root *Node, maxNodes int) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("mcts"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	emitted := 0
	var walk func(n *Node, id string) error
	walk = func(n *Node, id string) error {
		if emitted >= maxNodes {
			return nil
		}
		emitted++

		n.Lock()
		label := fmt.Sprintf("\"N=%d V=%.3f\"", n.stats.n, n.stats.selfValue)
		moves := make([]string, len(n.moves))
		for i, m := range n.moves {
			moves[i] = string(m)
		}
		children := append([]*Node(nil), n.children...)
		childVisits := append([]uint32(nil), n.stats.childVisits...)
		childPrior := append([]float32(nil), n.stats.childPrior...)
		n.Unlock()

		if err := g.AddNode("mcts", id, map[string]string{"label": label}); err != nil {
			return err
		}

		for i, mv := range moves {
			if emitted >= maxNodes {
				return nil
			}
			child := children[i]
			if child == nil {
				continue
			}
			childID := id + "_" + strconv.Itoa(i)
			if err := walk(child, childID); err != nil {
				return err
			}
			edgeLabel := fmt.Sprintf("\"%s n=%d p=%.2f\"", mv, childVisits[i], childPrior[i])
			if err := g.AddEdge(id, childID, true, map[string]string{"label": edgeLabel}); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, "root"); err != nil {
		return "", err
	}
	return g.String(), nil
}
