package uci

import "github.com/pkg/errors"

// ProtocolError reports a malformed or unrecognized UCI command line.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return "uci: " + e.Line + ": " + e.Err.Error()
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func protocolError(line string, err error) error {
	return &ProtocolError{Line: line, Err: err}
}

func protocolErrorf(line, format string, args ...interface{}) error {
	return protocolError(line, errors.Errorf(format, args...))
}

// IllegalMoveError reports a "position ... moves ..." command naming a
// move that is not legal in the position it is applied to.
type IllegalMoveError struct {
	Move string
}

func (e *IllegalMoveError) Error() string {
	return "uci: illegal move in position command: " + e.Move
}

// EvaluatorUnavailableError reports that go was issued before the engine
// had a usable evaluator (e.g. the weights file failed to load at
// startup).
type EvaluatorUnavailableError struct {
	Reason string
}

func (e *EvaluatorUnavailableError) Error() string {
	return "uci: evaluator unavailable: " + e.Reason
}

// InternalError reports a panic recovered from command dispatch - a bug in
// the engine itself, not a malformed command or illegal move. Execute
// recovers these so one bad command can never take the whole engine down
// mid-game.
type InternalError struct {
	Recovered interface{}
}

func (e *InternalError) Error() string {
	return "uci: internal error (recovered)"
}
