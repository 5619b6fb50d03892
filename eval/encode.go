package eval

import "strings"

// PlaneWidth is BoardEncoder's fixed output length: one piece-value cell
// per square, followed by a side-to-move broadcast plane of the same
// size - the same two-layer shape the teacher's board encoder used, kept
// deliberately simple since input feature design is not this module's
// concern.
const PlaneWidth = 64 + 64

var pieceValue = map[byte]float32{
	'P': 1, 'N': 2, 'B': 3, 'R': 4, 'Q': 5, 'K': 6,
	'p': -1, 'n': -2, 'b': -3, 'r': -4, 'q': -5, 'k': -6,
}

// BoardEncoder turns a FEN's piece-placement field into a fixed-width
// feature vector: a signed piece-value cell per square (positive for
// white, negative for black, 0 for empty) followed by a plane that
// broadcasts +1 for white to move or -1 for black.
func BoardEncoder(fen string, whiteToMove bool) []float32 {
	out := make([]float32, PlaneWidth)

	fields := strings.Fields(fen)
	placement := fen
	if len(fields) > 0 {
		placement = fields[0]
	}

	ranks := strings.Split(placement, "/")
	for r := 0; r < 8 && r < len(ranks); r++ {
		file := 0
		// FEN ranks run 8 down to 1; square index 0 is a1, so rank 0 of the
		// FEN (the 8th rank) maps to board rows 7..0.
		row := 7 - r
		for _, c := range ranks[r] {
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			if file > 7 {
				break
			}
			out[row*8+file] = pieceValue[byte(c)]
			file++
		}
	}

	side := float32(-1)
	if whiteToMove {
		side = 1
	}
	for i := 64; i < PlaneWidth; i++ {
		out[i] = side
	}
	return out
}
