package mcts

import (
	"github.com/chewxy/math32"
)

func argmax(a []float32) int {
	var retVal int
	var max = math32.Inf(-1)
	for i := range a {
		if a[i] > max {
			max = a[i]
			retVal = i
		}
	}
	return retVal
}

func sqrtf(v float32) float32 { return math32.Sqrt(v) }

func powf(base, exp float32) float32 { return math32.Pow(base, exp) }

// log1p is a float32 log(1+x), used by the growing-cpuct schedule.
func log1p(x float32) float32 { return math32.Log(1 + x) }

// softmaxWithTemperature normalizes logits into a distribution, dividing by
// temperature before exponentiating so temperature < 1 sharpens the
// distribution and temperature > 1 flattens it.
func softmaxWithTemperature(logits []float32, temperature float32) []float32 {
	out := make([]float32, len(logits))
	if temperature <= 0 {
		out[argmax(logits)] = 1
		return out
	}
	max := math32.Inf(-1)
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range logits {
		e := math32.Exp((v - max) / temperature)
		out[i] = e
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// applyPriorTemperature raises each entry of p to the power 1/temperature in
// place and renormalizes, the unconditional second step of expansion-time
// prior handling (after the conditional softmax, or in place of it for a
// policy-map evaluator whose output is already meant to be read as
// probabilities). Negative entries are clamped to 0 first, since a
// policy-map evaluator's raw output is not guaranteed non-negative and
// fractional powers of a negative base are undefined.
func applyPriorTemperature(p []float32, temperature float32) {
	if temperature <= 0 {
		best := argmax(p)
		for i := range p {
			p[i] = 0
		}
		p[best] = 1
		return
	}
	var sum float32
	for i, v := range p {
		if v < 0 {
			v = 0
		}
		e := powf(v, 1/temperature)
		p[i] = e
		sum += e
	}
	if sum == 0 {
		return
	}
	for i := range p {
		p[i] /= sum
	}
}
