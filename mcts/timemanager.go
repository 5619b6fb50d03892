package mcts

import (
	"time"

	"github.com/nnchess/mctscore/position"
)

const defaultMovesToGo = 30

// deadline computes how long the next search should run for, grounded on
// the same "split remaining time over movestogo, lean on the increment"
// formula zurichess's TimeControl.thinkingTime uses: it allows spending
// more of the clock early on and relying on the increment as the game
// goes on, then reserves move_overhead milliseconds so a move is never
// returned right as the clock expires.
func deadline(limits SearchLimits, side position.Color, now time.Time) (time.Time, bool) {
	if limits.Infinite {
		return time.Time{}, false
	}
	if limits.MoveTimeMS > 0 {
		budget := time.Duration(limits.MoveTimeMS-limits.MoveOverheadMS) * time.Millisecond
		if budget < time.Millisecond {
			budget = time.Millisecond
		}
		return now.Add(budget), true
	}

	var t, inc time.Duration
	switch side {
	case position.White:
		t = time.Duration(limits.WTimeMS) * time.Millisecond
		inc = time.Duration(limits.WIncMS) * time.Millisecond
	case position.Black:
		t = time.Duration(limits.BTimeMS) * time.Millisecond
		inc = time.Duration(limits.BIncMS) * time.Millisecond
	default:
		return time.Time{}, false
	}
	if t <= 0 {
		return time.Time{}, false
	}

	movesToGo := time.Duration(limits.MovesToGo)
	if movesToGo <= 0 {
		movesToGo = defaultMovesToGo
	}

	thinking := (t + (movesToGo-1)*inc) / movesToGo
	if thinking > t {
		thinking = t
	}

	overhead := time.Duration(limits.MoveOverheadMS) * time.Millisecond
	if thinking > overhead {
		thinking -= overhead
	}
	if thinking < time.Millisecond {
		thinking = time.Millisecond
	}
	return now.Add(thinking), true
}
