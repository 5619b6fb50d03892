// This command plays random self-play games and checks that
// eval.AbsoluteSquareIndexer assigns every legal move it sees its own slot
// in the policy vector, writing the distinct moves observed to a file.
// What used to be a label-file dump for an external trainer is now a
// sanity check for the move indexer this module ships: a collision here
// would silently corrupt every search that uses AbsoluteSquareIndexer.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/nnchess/mctscore/eval"
	"github.com/nnchess/mctscore/position"
)

var (
	numGameFlag   = flag.Int("num_game", 10, "number of games to play")
	chessMovePath = flag.String("path", "chess_moves.txt", "file to write distinct observed moves to")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*chessMovePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	seenMoves := make(map[position.Move]struct{})
	indexOwner := make(map[int]position.Move)

	for i := 0; i < *numGameFlag; i++ {
		g := position.NewGame()
		for {
			ended, _ := g.IsTerminal()
			if ended {
				break
			}
			moves := g.LegalMoves()
			if len(moves) == 0 {
				break
			}
			side := g.SideToMove()
			for _, m := range moves {
				if _, ok := seenMoves[m]; ok {
					continue
				}
				seenMoves[m] = struct{}{}
				if _, err := f.Write([]byte(string(m) + "\n")); err != nil {
					log.Fatal(err)
				}

				idx := eval.AbsoluteSquareIndexer(m, side)
				if owner, collided := indexOwner[idx]; collided && owner != m {
					log.Fatalf("index collision: moves %q and %q both map to %d", owner, m, idx)
				}
				indexOwner[idx] = m
			}
			move := moves[rand.Intn(len(moves))]
			if err := g.DoMove(move); err != nil {
				log.Fatal(err)
			}
		}
	}

	fmt.Printf("observed %d distinct moves, %d distinct indices, no collisions\n", len(seenMoves), len(indexOwner))
}
