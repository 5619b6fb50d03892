// Package uci implements the line-oriented UCI protocol
// (http://wbec-ridderkerk.nl/html/UCIProtocol.html) this engine's core is
// driven through, following the command-dispatch shape of zurichess's
// uci.go: a regex-extracted command word, an idle-gate for commands that
// must not race a running search, and a background goroutine that prints
// "bestmove" once Search returns.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chewxy/math32"
	"github.com/nnchess/mctscore/eval"
	"github.com/nnchess/mctscore/mcts"
	"github.com/nnchess/mctscore/position"
)

const (
	engineName   = "mctscore"
	engineAuthor = "mctscore contributors"
)

var errQuit = fmt.Errorf("quit")

var reCmd = regexp.MustCompile(`^[[:word:]]+\b`)

// Engine is the UCI-facing driver: it owns the coordinator, the current
// position, and the idle/search-in-flight bookkeeping a GUI's
// position/go/stop/isready sequence needs.
type Engine struct {
	out io.Writer
	mu  sync.Mutex

	coordinator *mcts.Coordinator
	settings    mcts.Settings

	pos position.Position

	// lastBase/lastMoves record the "position" command that produced pos,
	// so the next position command can detect it is just that command
	// plus one more move (the common case: the GUI replays the game after
	// our own bestmove) and reuse the search tree via AdvanceRoot instead
	// of rebuilding it from scratch via NewGame.
	lastBase  string
	lastMoves []string

	// idle is empty while a search goroutine is running, full otherwise;
	// the gated commands (ucinewgame/position/go/setoption/debug) take and
	// return its token, so they block until the engine is quiescent without
	// a condvar. "stop" waits on doneCh instead, and "isready" answers at
	// once.
	idle chan struct{}

	searching bool
	cancel    context.CancelFunc
	doneCh    chan struct{}
}

// NewEngine builds an Engine around a freshly constructed mcts.Coordinator.
func NewEngine(out io.Writer, indexer eval.MoveIndexer, newEvaluator func() eval.Evaluator) *Engine {
	settings := mcts.DefaultSettings()
	e := &Engine{
		out:         out,
		settings:    settings,
		pos:         position.NewGame(),
		idle:        make(chan struct{}, 1),
		coordinator: mcts.NewCoordinator(settings, indexer, newEvaluator),
	}
	e.idle <- struct{}{}
	e.coordinator.NewGame(e.pos)
	return e
}

// Run reads UCI commands from r until quit or r closes, writing responses
// to the Engine's out writer.
func (e *Engine) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if err := e.Execute(scanner.Text()); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintf(e.out, "info string error: %v\n", err)
		}
	}
	return scanner.Err()
}

// Execute dispatches one line. Commands that must not race a running
// search (ucinewgame/position/go/setoption) wait for the idle gate first,
// mirroring zurichess's two-tier switch in UCI.Execute. A panic anywhere in
// dispatch is recovered and reported as an InternalError rather than
// killing the process, so one corrupt command can't end the game GUIs are
// mid-session with.
func (e *Engine) Execute(line string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("recovered panic executing %q: %v", line, r)
			err = &InternalError{Recovered: r}
		}
	}()
	return e.dispatch(line)
}

func (e *Engine) dispatch(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	cmd := reCmd.FindString(line)
	if cmd == "" {
		return protocolErrorf(line, "empty command")
	}

	switch cmd {
	case "isready":
		return e.isready()
	case "quit":
		return errQuit
	case "stop":
		return e.stop()
	case "uci":
		return e.uci()
	case "ponderhit":
		return nil
	}

	<-e.idle
	e.idle <- struct{}{}

	switch cmd {
	case "ucinewgame":
		return e.ucinewgame()
	case "position":
		return e.position(line)
	case "go":
		return e.go_(line)
	case "setoption":
		return e.setoption(line)
	case "debug":
		return e.debug(line)
	default:
		return protocolErrorf(line, "unhandled command %q", cmd)
	}
}

// debug is a non-standard extension beyond the base UCI command set:
// "debug tree <path>" dumps the current search tree as Graphviz DOT to
// path, for inspecting what a search actually explored.
func (e *Engine) debug(line string) error {
	args := strings.Fields(line)
	if len(args) < 2 {
		return nil // UCI's own "debug on|off" is accepted as a silent no-op
	}
	switch args[1] {
	case "tree":
		if len(args) < 3 {
			return protocolErrorf(line, "debug tree requires a file path")
		}
		dot, err := e.coordinator.DumpDOT(2000)
		if err != nil {
			return err
		}
		return os.WriteFile(args[2], []byte(dot), 0644)
	default:
		return nil
	}
}

func (e *Engine) uci() error {
	fmt.Fprintf(e.out, "id name %s\n", engineName)
	fmt.Fprintf(e.out, "id author %s\n", engineAuthor)
	fmt.Fprintln(e.out)
	for _, o := range options() {
		fmt.Fprintf(e.out, "option name %s type %s default %d min %d max %d\n", o.name, o.kind, o.def, o.min, o.max)
	}
	for name := range externalOptions {
		fmt.Fprintf(e.out, "option name %s type string default <unset>\n", name)
	}
	fmt.Fprintln(e.out, "uciok")
	return nil
}

func (e *Engine) isready() error {
	fmt.Fprintln(e.out, "readyok")
	return nil
}

func (e *Engine) ucinewgame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = position.NewGame()
	e.coordinator.NewGame(e.pos)
	return nil
}

// position parses "position startpos|fen <fen> [moves <m1> <m2> ...]",
// the same two-branch shape as zurichess's position handler, generalized
// from bitbucket.org/zurichess/board's PositionFromFEN to this core's
// position.NewGame/NewFromFEN.
func (e *Engine) position(line string) error {
	args := strings.Fields(line)
	if len(args) < 2 {
		return protocolErrorf(line, "expected argument for position")
	}
	args = args[1:]

	var base string
	var pos position.Position
	i := 0
	switch args[0] {
	case "startpos":
		base = "startpos"
		pos = position.NewGame()
		i = 1
	case "fen":
		j := 1
		for j < len(args) && args[j] != "moves" {
			j++
		}
		fen := strings.Join(args[1:j], " ")
		g, err := position.NewFromFEN(fen)
		if err != nil {
			return protocolError(line, err)
		}
		base = "fen " + fen
		pos = g
		i = j
	default:
		return protocolErrorf(line, "unknown position command %q", args[0])
	}

	var moves []string
	var illegal error
	if i < len(args) {
		if args[i] != "moves" {
			return protocolErrorf(line, "expected 'moves', got %q", args[i])
		}
		moves = args[i+1:]
		for k, m := range moves {
			if err := pos.DoMove(position.Move(m)); err != nil {
				// keep the position reached by the legal prefix, drop the rest
				illegal = &IllegalMoveError{Move: m}
				moves = moves[:k]
				break
			}
		}
	}

	e.mu.Lock()
	reused := e.reuseTreeLocked(base, moves, pos)
	e.pos = pos
	e.lastBase = base
	e.lastMoves = append([]string(nil), moves...)
	e.mu.Unlock()

	if !reused {
		logger.Printf("position: rebuilding tree (base changed or non-adjacent move)")
		e.coordinator.NewGame(pos)
	} else {
		logger.Printf("position: reused tree via AdvanceRoot")
	}
	return illegal
}

// reuseTreeLocked detects whether the new position command is exactly the
// previous one plus one extra move, and if so advances the existing
// search tree by that move instead of discarding it. Must be called with
// e.mu held.
func (e *Engine) reuseTreeLocked(base string, moves []string, pos position.Position) bool {
	if base != e.lastBase || len(moves) != len(e.lastMoves)+1 {
		return false
	}
	for i, m := range e.lastMoves {
		if moves[i] != m {
			return false
		}
	}
	e.coordinator.AdvanceRoot(pos, position.Move(moves[len(moves)-1]))
	return true
}

var validGoArgs = map[string]bool{
	"searchmoves": true,
	"ponder":      true,
	"wtime":       true,
	"btime":       true,
	"winc":        true,
	"binc":        true,
	"movestogo":   true,
	"depth":       true,
	"nodes":       true,
	"mate":        true,
	"movetime":    true,
	"infinite":    true,
}

// go_ parses the "go" command's stopping conditions into a
// mcts.SearchLimits and starts the search in its own goroutine, the same
// fire-and-report-later shape as zurichess's go_/play split - Execute
// returns immediately so the GUI can still send "stop".
func (e *Engine) go_(line string) error {
	limits := mcts.SearchLimits{MoveOverheadMS: e.settings.MoveOverheadMS}

	args := strings.Fields(line)[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "searchmoves":
			for i+1 < len(args) && !validGoArgs[args[i+1]] {
				i++
			}
		case "ponder":
			// pondering is accepted but not distinguished from a normal search
		case "infinite":
			limits.Infinite = true
		case "wtime":
			i++
			limits.WTimeMS, _ = strconv.Atoi(args[i])
		case "winc":
			i++
			limits.WIncMS, _ = strconv.Atoi(args[i])
		case "btime":
			i++
			limits.BTimeMS, _ = strconv.Atoi(args[i])
		case "binc":
			i++
			limits.BIncMS, _ = strconv.Atoi(args[i])
		case "movestogo":
			i++
			limits.MovesToGo, _ = strconv.Atoi(args[i])
		case "movetime":
			i++
			limits.MoveTimeMS, _ = strconv.Atoi(args[i])
		case "depth":
			i++
			limits.Depth, _ = strconv.Atoi(args[i])
		case "nodes":
			i++
			n, _ := strconv.Atoi(args[i])
			limits.Nodes = int64(n)
		case "mate":
			i++ // not implemented; consume its argument and ignore
		default:
			return protocolErrorf(line, "invalid go argument %q", args[i])
		}
	}

	e.mu.Lock()
	pos := e.pos
	e.mu.Unlock()
	if ended, _ := pos.IsTerminal(); ended {
		fmt.Fprintln(e.out, "bestmove (none)")
		return nil
	}

	<-e.idle // acquire the idle token; the search goroutine returns it when done
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.searching = true
	e.cancel = cancel
	e.doneCh = make(chan struct{})
	doneCh := e.doneCh
	e.mu.Unlock()

	logger.Printf("go: starting search, limits=%+v", limits)
	go func() {
		defer close(doneCh)
		defer cancel()
		defer func() { e.idle <- struct{}{} }()

		res, err := e.coordinator.Search(ctx, limits)
		if err != nil {
			logger.Printf("go: search error: %v", err)
			fmt.Fprintf(e.out, "info string search error: %v\n", err)
			fmt.Fprintln(e.out, "bestmove (none)")
			return
		}
		logger.Printf("go: search done, nodes=%d bestmove=%s", res.Nodes, res.BestMove)
		e.printInfo(res)
		if res.BestMove == "" {
			fmt.Fprintln(e.out, "bestmove (none)")
			return
		}
		fmt.Fprintf(e.out, "bestmove %s\n", res.BestMove)
	}()

	return nil
}

func (e *Engine) printInfo(res mcts.Result) {
	fmt.Fprintf(e.out, "info nodes %d nps %d score cp %d", res.Nodes, res.NPS, winProbToCentipawns(res.Value))
	if len(res.PV) > 0 {
		fmt.Fprint(e.out, " pv")
		for _, m := range res.PV {
			fmt.Fprintf(e.out, " %s", m)
		}
	}
	fmt.Fprintln(e.out)
}

// winProbToCentipawns renders a [-1,1] value estimate as an approximate
// centipawn score for GUIs that only understand that scale, the same
// atanh-shaped conversion lc0-style engines use to report their value
// head's output as a score: it is a display convenience, not a claim
// this engine reasons in centipawns anywhere else.
func winProbToCentipawns(value float32) int {
	const clamp = 0.999
	const scale = 290
	if value > clamp {
		value = clamp
	}
	if value < -clamp {
		value = -clamp
	}
	return int(scale * math32.Log((1+value)/(1-value)))
}

func (e *Engine) stop() error {
	e.mu.Lock()
	cancel, doneCh, searching := e.cancel, e.doneCh, e.searching
	e.mu.Unlock()
	if !searching || cancel == nil {
		return nil
	}
	cancel()
	if doneCh != nil {
		<-doneCh
	}
	e.mu.Lock()
	e.searching = false
	e.mu.Unlock()
	return nil
}

// externalOptions names the UCI options that configure the evaluator's
// surrounding infrastructure (which device to run on, where weights live,
// what protocol variant to announce) rather than anything this search core
// itself interprets - those concerns belong to the external collaborators
// this module's Non-goals explicitly hand off to. The engine accepts and
// stores them so a GUI's setoption handshake never errors out, but nothing
// here reads them back.
var externalOptions = map[string]bool{
	"UCI_Variant":     true,
	"Context":         true,
	"Device_ID":       true,
	"Model_Directory": true,
}

func (e *Engine) setoption(line string) error {
	name, value, err := parseSetOption(line)
	if err != nil {
		return err
	}
	if externalOptions[name] {
		logger.Printf("setoption: %s=%q accepted, not interpreted by the search core", name, value)
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := applySetOption(&e.settings, name, value); err != nil {
		return err
	}
	e.coordinator.SetSettings(e.settings)
	logger.Printf("setoption: %s=%q applied", name, value)
	return nil
}

var reOption = regexp.MustCompile(`^setoption\s+name\s+(.+?)(\s+value\s+(.*))?$`)

func parseSetOption(line string) (name, value string, err error) {
	m := reOption.FindStringSubmatch(line)
	if m == nil {
		return "", "", protocolErrorf(line, "invalid setoption arguments")
	}
	return m[1], m[3], nil
}
