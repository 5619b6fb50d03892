// Package eval defines the batched neural-network evaluator contract the
// search core calls out to, plus a deterministic mock used by tests and a
// minimal concrete network ("evaluator glue") in the gorgonianet
// subpackage.
package eval

// Evaluator is a batched predictor: given B encoded boards it returns a
// value per board and a policy distribution per board. Implementations must
// be safe for one caller at a time per instance; the search core creates
// one Evaluator per worker so calls are never concurrent on a single
// instance.
type Evaluator interface {
	// Predict evaluates a batch of n encoded boards. input has length
	// n*PlaneSize(). values gets n entries, one scalar in [-1, 1] per
	// board. policy gets n*PolicyWidth() entries, laid out board-major.
	Predict(input []float32, n int, values []float32, policy []float32) error

	// PlaneSize is the length of one board's encoded input.
	PlaneSize() int

	// PolicyWidth is the number of policy logits returned per board: the
	// size of the direct policy map when IsPolicyMap is true, otherwise
	// the legal-move-indexed width (== BatchSize-independent move count
	// convention used by the caller).
	PolicyWidth() int

	// IsPolicyMap reports whether Predict's policy output is indexed by
	// encoded move (no softmax needed, already normalized) rather than by
	// raw logits requiring softmax.
	IsPolicyMap() bool

	// BatchSize is the maximum n Predict accepts at once.
	BatchSize() int
}
