// Package gorgonianet is a minimal concrete Evaluator implementation built
// on gorgonia.org/gorgonia. It is deliberately small: one shared dense
// trunk, a policy head, and a tanh value head. It exists so the Evaluator
// contract has a real neural-network-shaped implementation to exercise
// the core's batching path against — it is glue, not an architecture
// proposal (architecture is explicitly out of scope for this module).
package gorgonianet

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Config mirrors the teacher dual-net's configuration knobs (filters,
// shared layers, fc width, batch size) collapsed down to what a single
// dense trunk needs.
type Config struct {
	InputWidth  int // plane_size: encoded board length
	Hidden      int // trunk width
	PolicyWidth int // see eval.Evaluator.PolicyWidth
	BatchSize   int
}

// DefaultConfig picks a trunk width proportional to the input, the same
// rounding the teacher's dualnet.DefaultConf uses for its filter count.
func DefaultConfig(inputWidth, policyWidth, batchSize int) Config {
	return Config{
		InputWidth:  inputWidth,
		Hidden:      2 * roundPow2(inputWidth/3+1),
		PolicyWidth: policyWidth,
		BatchSize:   batchSize,
	}
}

func roundPow2(a int) int {
	if a < 1 {
		a = 1
	}
	n := a - 1
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

// Net is a concrete Evaluator. It is not trained: weights are initialized
// once via Glorot-uniform and never updated by this package. A training
// loop is an external collaborator per spec (self-play data exporter,
// trainer) and out of scope here.
type Net struct {
	conf Config

	g    *gorgonia.ExprGraph
	x    *gorgonia.Node
	wh   *gorgonia.Node
	bh   *gorgonia.Node
	wp   *gorgonia.Node
	bp   *gorgonia.Node
	wv   *gorgonia.Node
	bv   *gorgonia.Node
	pOut *gorgonia.Node
	vOut *gorgonia.Node

	vm gorgonia.VM
}

// New builds the graph and compiles a tape machine for it.
func New(conf Config) (*Net, error) {
	if conf.InputWidth <= 0 || conf.Hidden <= 0 || conf.PolicyWidth <= 0 || conf.BatchSize <= 0 {
		return nil, errors.New("gorgonianet: all Config fields must be positive")
	}

	g := gorgonia.NewGraph()
	n := &Net{conf: conf, g: g}

	n.x = gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(conf.BatchSize, conf.InputWidth), gorgonia.WithName("x"))
	n.wh = gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(conf.InputWidth, conf.Hidden), gorgonia.WithName("wh"), gorgonia.WithInit(gorgonia.GlorotU(1)))
	n.bh = gorgonia.NewVector(g, tensor.Float32, gorgonia.WithShape(conf.Hidden), gorgonia.WithName("bh"), gorgonia.WithInit(gorgonia.Zeroes()))
	n.wp = gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(conf.Hidden, conf.PolicyWidth), gorgonia.WithName("wp"), gorgonia.WithInit(gorgonia.GlorotU(1)))
	n.bp = gorgonia.NewVector(g, tensor.Float32, gorgonia.WithShape(conf.PolicyWidth), gorgonia.WithName("bp"), gorgonia.WithInit(gorgonia.Zeroes()))
	n.wv = gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(conf.Hidden, 1), gorgonia.WithName("wv"), gorgonia.WithInit(gorgonia.GlorotU(1)))
	n.bv = gorgonia.NewVector(g, tensor.Float32, gorgonia.WithShape(1), gorgonia.WithName("bv"), gorgonia.WithInit(gorgonia.Zeroes()))

	xw, err := gorgonia.Mul(n.x, n.wh)
	if err != nil {
		return nil, errors.WithMessage(err, "trunk matmul")
	}
	xwb, err := gorgonia.BroadcastAdd(xw, n.bh, nil, []byte{0})
	if err != nil {
		return nil, errors.WithMessage(err, "trunk bias")
	}
	hidden, err := gorgonia.Rectify(xwb)
	if err != nil {
		return nil, errors.WithMessage(err, "trunk activation")
	}

	pLogits, err := gorgonia.Mul(hidden, n.wp)
	if err != nil {
		return nil, errors.WithMessage(err, "policy matmul")
	}
	pBias, err := gorgonia.BroadcastAdd(pLogits, n.bp, nil, []byte{0})
	if err != nil {
		return nil, errors.WithMessage(err, "policy bias")
	}
	n.pOut = pBias // left un-activated: the core applies softmax itself (IsPolicyMap == false)

	vLogits, err := gorgonia.Mul(hidden, n.wv)
	if err != nil {
		return nil, errors.WithMessage(err, "value matmul")
	}
	vBias, err := gorgonia.BroadcastAdd(vLogits, n.bv, nil, []byte{0})
	if err != nil {
		return nil, errors.WithMessage(err, "value bias")
	}
	vOut, err := gorgonia.Tanh(vBias)
	if err != nil {
		return nil, errors.WithMessage(err, "value activation")
	}
	n.vOut = vOut

	n.vm = gorgonia.NewTapeMachine(g)
	return n, nil
}

// Close releases the tape machine.
func (n *Net) Close() error {
	return n.vm.Close()
}

// Predict implements eval.Evaluator. The last (BatchSize-n) rows of the
// fixed-size input tensor are zero-padded and discarded from the output.
func (n *Net) Predict(input []float32, count int, values []float32, policy []float32) error {
	if count > n.conf.BatchSize {
		return fmt.Errorf("gorgonianet: batch of %d exceeds configured size %d", count, n.conf.BatchSize)
	}
	padded := make([]float32, n.conf.BatchSize*n.conf.InputWidth)
	copy(padded, input[:count*n.conf.InputWidth])

	xVal := tensor.New(tensor.WithShape(n.conf.BatchSize, n.conf.InputWidth), tensor.WithBacking(padded))
	if err := gorgonia.Let(n.x, xVal); err != nil {
		return errors.WithMessage(err, "gorgonianet: bind input")
	}

	n.vm.Reset()
	if err := n.vm.RunAll(); err != nil {
		return errors.WithMessage(err, "gorgonianet: run")
	}

	pData := n.pOut.Value().Data().([]float32)
	vData := n.vOut.Value().Data().([]float32)

	for b := 0; b < count; b++ {
		values[b] = vData[b]
		copy(policy[b*n.conf.PolicyWidth:(b+1)*n.conf.PolicyWidth], pData[b*n.conf.PolicyWidth:(b+1)*n.conf.PolicyWidth])
	}
	return nil
}

func (n *Net) PlaneSize() int    { return n.conf.InputWidth }
func (n *Net) PolicyWidth() int  { return n.conf.PolicyWidth }
func (n *Net) IsPolicyMap() bool { return false }
func (n *Net) BatchSize() int    { return n.conf.BatchSize }
