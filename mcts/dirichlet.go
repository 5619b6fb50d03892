package mcts

import (
	"time"

	distrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// dirichletSeed returns settings.Seed if it is set, otherwise a wall-clock
// seed - the same override-or-wall-clock choice buildResult makes for its
// own RNG, so a single Settings.Seed fixes both sources of randomness a
// search draws on.
func dirichletSeed(settings Settings) uint64 {
	if settings.Seed != 0 {
		return uint64(settings.Seed)
	}
	return uint64(time.Now().UnixNano())
}

// sampleDirichlet draws one sample of length n from Dir(alpha, ..., alpha),
// using distmv.NewDirichlet with an x/exp/rand source.
func sampleDirichlet(n int, alpha float64, seed uint64) []float64 {
	params := make([]float64, n)
	for i := range params {
		params[i] = alpha
	}
	dist := distmv.NewDirichlet(params, distrand.NewSource(seed))
	return dist.Rand(nil)
}

// applyRootNoise mixes Dirichlet noise into the root's child priors in
// place: P(s,a) <- (1-eps)*P(s,a) + eps*noise(a). It is resampled at the
// start of every search rather than once per process, so repeated
// searches from the same root don't keep exploring along the same
// perturbed directions - unless settings.Seed fixes the draw, which is
// exactly what lets a test exercise reproducibility with noise enabled
// instead of zeroing epsilon to sidestep it.
func applyRootNoise(root *Node, settings Settings) {
	root.Lock()
	defer root.Unlock()
	if len(root.stats.childPrior) == 0 {
		return
	}
	noise := sampleDirichlet(len(root.stats.childPrior), settings.dirichletAlpha(), dirichletSeed(settings))
	eps := settings.dirichletEpsilon()
	for i, p := range root.stats.childPrior {
		root.stats.childPrior[i] = (1-eps)*p + eps*float32(noise[i])
	}
}
