package uci

import (
	"strconv"

	"github.com/nnchess/mctscore/mcts"
)

// option describes one UCI "option name ... type ..." announcement and
// knows how to apply a setoption value string to a Settings value. This
// mirrors zurichess's flat per-option switch in setoption, generalized to
// a table so "uci" and "setoption" share one source of truth instead of
// drifting apart.
type option struct {
	name       string
	kind       string // "spin" or "check"
	def, min, max int
	apply      func(s *mcts.Settings, v int)
}

// options lists every tunable in mcts.Settings except Seed, each reachable
// by exactly the UCI option name a GUI would send back in setoption.
func options() []option {
	d := mcts.DefaultSettings()
	return []option{
		{"Threads", "spin", d.Threads, 1, 512, func(s *mcts.Settings, v int) { s.Threads = v }},
		{"Batch_Size", "spin", d.BatchSize, 1, 4096, func(s *mcts.Settings, v int) { s.BatchSize = v }},
		{"Centi_CPuct_Init", "spin", d.CentiCPuctInit, 1, 100000, func(s *mcts.Settings, v int) { s.CentiCPuctInit = v }},
		{"CPuct_Base", "spin", d.CPuctBase, 0, 1000000, func(s *mcts.Settings, v int) { s.CPuctBase = v }},
		{"Centi_Dirichlet_Epsilon", "spin", d.CentiDirichletEpsilon, 0, 100, func(s *mcts.Settings, v int) { s.CentiDirichletEpsilon = v }},
		{"Centi_Dirichlet_Alpha", "spin", d.CentiDirichletAlpha, 1, 10000, func(s *mcts.Settings, v int) { s.CentiDirichletAlpha = v }},
		{"Centi_Node_Temperature", "spin", d.CentiNodeTemperature, 1, 1000, func(s *mcts.Settings, v int) { s.CentiNodeTemperature = v }},
		{"Centi_Random_Move_Factor", "spin", d.CentiRandomMoveFactor, 0, 1000, func(s *mcts.Settings, v int) { s.CentiRandomMoveFactor = v }},
		{"Virtual_Loss", "spin", d.VirtualLoss, 1, 100, func(s *mcts.Settings, v int) { s.VirtualLoss = v }},
		{"Centi_Q_Value_Weight", "spin", d.CentiQValueWeight, 0, 10000, func(s *mcts.Settings, v int) { s.CentiQValueWeight = v }},
		{"Centi_Q_Thresh_Init", "spin", d.CentiQThreshInit, 0, 100, func(s *mcts.Settings, v int) { s.CentiQThreshInit = v }},
		{"Centi_Q_Thresh_Max", "spin", d.CentiQThreshMax, 0, 100, func(s *mcts.Settings, v int) { s.CentiQThreshMax = v }},
		{"Q_Thresh_Base", "spin", d.QThreshBase, 1, 1000000, func(s *mcts.Settings, v int) { s.QThreshBase = v }},
		{"Move_Overhead", "spin", d.MoveOverheadMS, 0, 60000, func(s *mcts.Settings, v int) { s.MoveOverheadMS = v }},
	}
}

// applySetOption applies a parsed "setoption name <n> value <v>" to s,
// returning an error if name is unknown or v can't be parsed as the
// option's type.
func applySetOption(s *mcts.Settings, name, value string) error {
	for _, o := range options() {
		if o.name != name {
			continue
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			return protocolErrorf("setoption", "option %s expects an integer, got %q", name, value)
		}
		if v < o.min || v > o.max {
			return protocolErrorf("setoption", "option %s value %d out of range [%d,%d]", name, v, o.min, o.max)
		}
		o.apply(s, v)
		return nil
	}
	return protocolErrorf("setoption", "unknown option %q", name)
}
