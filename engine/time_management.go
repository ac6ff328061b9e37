package engine

import (
	"context"
	"time"

	"tinyuci/rules"
)

// Budget is the wall-clock allowance of one top-level search. Every node
// consults it before starting another sibling.
type Budget struct {
	ctx      context.Context
	start    time.Time
	deadline time.Time
}

func NewBudget(ctx context.Context, moveTime time.Duration) *Budget {
	start := time.Now()
	return &Budget{ctx: ctx, start: start, deadline: start.Add(moveTime)}
}

func (b *Budget) Start() time.Time    { return b.start }
func (b *Budget) Deadline() time.Time { return b.deadline }

func (b *Budget) Elapsed() time.Duration {
	return time.Since(b.start)
}

// Expired is true once the deadline has passed or the context is done.
func (b *Budget) Expired() bool {
	if b.ctx != nil {
		select {
		case <-b.ctx.Done():
			return true
		default:
		}
	}
	return !time.Now().Before(b.deadline)
}

// Clock is the state of a game clock as reported by wtime/btime/winc/binc.
type Clock struct {
	Remaining time.Duration
	Increment time.Duration
}

// Engine-side safety knobs
const (
	overheadMs    = 30
	minMoveMs     = 5
	maxFrac       = 0.7
	panicThreshMs = 1000
	panicFrac     = 0.90
)

// AllocateMoveTime turns a game clock into a per-move budget. Fewer pieces on
// the board means fewer moves left to pay for.
func AllocateMoveTime(pos *rules.Position, clock Clock) time.Duration {
	movesLeft := estimateMovesRemaining(GetPiecePhase(pos))

	rem := int(clock.Remaining.Milliseconds())
	inc := int(clock.Increment.Milliseconds())

	var moveTime int
	if inc > 0 {
		if rem < panicThreshMs {
			// bank a little of the increment
			moveTime = int(float64(inc) * panicFrac)
		} else {
			moveTime = rem/movesLeft + inc
		}
	} else {
		moveTime = rem / 40
	}

	moveTime = min(moveTime, int(float64(rem)*maxFrac), rem-overheadMs)
	moveTime = max(moveTime, minMoveMs)
	return time.Duration(moveTime) * time.Millisecond
}

func estimateMovesRemaining(phase int) int {
	// 20 in bare endgames up to 45 with all pieces on
	return (phase*25)/TotalPhase + 20
}
