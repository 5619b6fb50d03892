// Command mctscore is a UCI-speaking engine driver: it wires the search
// core (mcts), the position adapter (position), and a concrete Evaluator
// (eval/gorgonianet, or eval's deterministic Mock in -mock mode) to the uci
// package's protocol loop over stdin/stdout, the same shape as the
// teacher's cmd/infer flag-parsing main wired to a different backend.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nnchess/mctscore/eval"
	"github.com/nnchess/mctscore/eval/gorgonianet"
	"github.com/nnchess/mctscore/uci"
)

var (
	batchSize = flag.Int("batch_size", 8, "NN evaluation batch size")
	mockEval  = flag.Bool("mock", false, "use a deterministic mock evaluator instead of gorgonianet (for smoke-testing the UCI loop without real weights)")
)

func main() {
	flag.Parse()

	indexer := eval.AbsoluteSquareIndexer
	policyWidth := eval.AbsoluteSquareWidth

	newEvaluator := func() eval.Evaluator {
		if *mockEval {
			return eval.NewUniformMock(policyWidth, *batchSize, 0, 1.0/float32(policyWidth))
		}
		conf := gorgonianet.DefaultConfig(eval.PlaneWidth, policyWidth, *batchSize)
		net, err := gorgonianet.New(conf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mctscore: building evaluator: %v\n", err)
			os.Exit(1)
		}
		return net
	}

	engine := uci.NewEngine(os.Stdout, indexer, newEvaluator)
	if err := engine.Run(os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "mctscore: %v\n", err)
		os.Exit(1)
	}
}
