package eval

import "github.com/nnchess/mctscore/position"

// MoveIndexer maps a legal move to its slot in an Evaluator's policy output.
// This is deliberately the only place the search core touches a
// game-specific policy encoding; everything upstream of it treats the
// policy vector as opaque.
type MoveIndexer func(m position.Move, side position.Color) int

const (
	promoNone = 0
	promoQ    = 1
	promoR    = 2
	promoB    = 3
	promoN    = 4
	promoKinds = 5
)

// AbsoluteSquareWidth is the output width AbsoluteSquareIndexer requires:
// 64 origin squares * 64 destination squares * 5 promotion choices.
const AbsoluteSquareWidth = 64 * 64 * promoKinds

// AbsoluteSquareIndexer is a minimal, side-agnostic move encoding: index =
// (fromSquare*64 + toSquare) * 5 + promotionKind. It does not mirror the
// board for the side to move the way a trained engine's label space
// typically would (that mirroring is the game-specific mapping the search
// core leaves external); it exists so the core has one concrete, working
// Evaluator wiring to exercise against.
func AbsoluteSquareIndexer(m position.Move, _ position.Color) int {
	from, to, promo := decodeUCI(string(m))
	return (from*64+to)*promoKinds + promo
}

func decodeUCI(uci string) (from, to, promo int) {
	if len(uci) < 4 {
		return 0, 0, promoNone
	}
	from = squareIndex(uci[0], uci[1])
	to = squareIndex(uci[2], uci[3])
	promo = promoNone
	if len(uci) >= 5 {
		switch uci[4] {
		case 'q':
			promo = promoQ
		case 'r':
			promo = promoR
		case 'b':
			promo = promoB
		case 'n':
			promo = promoN
		}
	}
	return from, to, promo
}

func squareIndex(file, rank byte) int {
	f := int(file - 'a')
	r := int(rank - '1')
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return 0
	}
	return r*8 + f
}
