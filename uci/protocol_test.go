package uci

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nnchess/mctscore/eval"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	width := eval.AbsoluteSquareWidth
	e := NewEngine(&out, eval.AbsoluteSquareIndexer, func() eval.Evaluator {
		return eval.NewUniformMock(width, 1, 0, 1.0/float32(width))
	})
	return e, &out
}

func TestUCIHandshake(t *testing.T) {
	e, out := newTestEngine(t)
	require.NoError(t, e.Execute("uci"))
	s := out.String()
	require.Contains(t, s, "id name "+engineName)
	require.Contains(t, s, "id author "+engineAuthor)
	require.Contains(t, s, "uciok")
}

func TestIsReady(t *testing.T) {
	e, out := newTestEngine(t)
	require.NoError(t, e.Execute("isready"))
	require.Contains(t, out.String(), "readyok")
}

func TestPositionThenGoProducesBestMove(t *testing.T) {
	e, out := newTestEngine(t)
	require.NoError(t, e.Execute("position startpos"))
	require.NoError(t, e.Execute("go nodes 5"))

	waitForBestMove(t, out)
	require.Contains(t, out.String(), "bestmove")
}

func TestPositionWithMovesThenGo(t *testing.T) {
	e, out := newTestEngine(t)
	require.NoError(t, e.Execute("position startpos moves e2e4 e7e5"))
	require.NoError(t, e.Execute("go nodes 5"))
	waitForBestMove(t, out)
	require.Contains(t, out.String(), "bestmove")
}

func TestStopEndsAnInfiniteSearch(t *testing.T) {
	e, out := newTestEngine(t)
	require.NoError(t, e.Execute("position startpos"))
	require.NoError(t, e.Execute("go infinite"))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, e.Execute("stop"))
	waitForBestMove(t, out)
	require.Contains(t, out.String(), "bestmove")
}

func TestSetOptionAppliesToSettings(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Execute("setoption name Threads value 2"))
	e.mu.Lock()
	threads := e.settings.Threads
	e.mu.Unlock()
	require.Equal(t, 2, threads)
}

func TestSetOptionRejectsUnknownName(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.Execute("setoption name NotARealOption value 1")
	require.Error(t, err)
}

func TestDebugTreeWritesDOTFile(t *testing.T) {
	e, out := newTestEngine(t)
	require.NoError(t, e.Execute("position startpos"))
	require.NoError(t, e.Execute("go nodes 5"))
	waitForBestMove(t, out)

	f, err := os.CreateTemp(t.TempDir(), "tree-*.dot")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())

	require.NoError(t, e.Execute("debug tree "+path))
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "mcts")
}

func TestDebugOnOffIsSilentNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Execute("debug on"))
	require.NoError(t, e.Execute("debug off"))
}

// waitForBestMove polls out until it has a "bestmove" line, since go_ reports
// its result from a background goroutine once Search returns.
func waitForBestMove(t *testing.T, out *bytes.Buffer) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), "bestmove") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for bestmove")
}
