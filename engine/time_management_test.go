package engine

import (
	"context"
	"testing"
	"time"

	"github.com/matryer/is"

	"tinyuci/rules"
)

func TestBudgetExpires(t *testing.T) {
	is := is.New(t)
	b := NewBudget(context.Background(), 20*time.Millisecond)
	is.True(!b.Expired())
	is.Equal(b.Deadline().Sub(b.Start()), 20*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	is.True(b.Expired())
}

func TestBudgetFollowsContext(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBudget(ctx, time.Hour)
	is.True(!b.Expired())
	cancel()
	is.True(b.Expired())
}

func TestAllocateMoveTime(t *testing.T) {
	is := is.New(t)
	start := rules.StartPosition()

	is.Equal(AllocateMoveTime(start, Clock{Remaining: time.Minute}), 1500*time.Millisecond)
	// 45 moves to go with all pieces on the board
	is.Equal(AllocateMoveTime(start, Clock{Remaining: time.Minute, Increment: time.Second}),
		(60000/45+1000)*time.Millisecond)
	// short on time: spend most of the increment only
	is.Equal(AllocateMoveTime(start, Clock{Remaining: 500 * time.Millisecond, Increment: 100 * time.Millisecond}),
		90*time.Millisecond)
	is.Equal(AllocateMoveTime(start, Clock{Remaining: 10 * time.Millisecond}), time.Duration(minMoveMs)*time.Millisecond)
}

func TestEstimateMovesRemaining(t *testing.T) {
	is := is.New(t)
	is.Equal(estimateMovesRemaining(0), 20)
	is.Equal(estimateMovesRemaining(TotalPhase), 45)
}
