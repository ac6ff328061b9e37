package engine

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"tinyuci/rules"
)

// PVLine is the principal variation collected below a node.
type PVLine struct {
	Moves []rules.Move
}

func (pv *PVLine) Clear() {
	pv.Moves = pv.Moves[:0]
}

// Update makes m followed by the child's line the new variation.
func (pv *PVLine) Update(m rules.Move, child PVLine) {
	pv.Clear()
	pv.Moves = append(pv.Moves, m)
	pv.Moves = append(pv.Moves, child.Moves...)
}

func (pv PVLine) Clone() PVLine {
	return PVLine{Moves: append([]rules.Move(nil), pv.Moves...)}
}

func (pv PVLine) GetPVMove() rules.Move {
	if len(pv.Moves) == 0 {
		return rules.NoMove
	}
	return pv.Moves[0]
}

func (pv PVLine) String() string {
	return strings.Join(lo.Map(pv.Moves, func(m rules.Move, _ int) string {
		return rules.MoveString(m)
	}), " ")
}

// FormatScore renders a score the way UCI expects it: "mate N" when a forced
// mate is known, "cp X" otherwise.
func FormatScore(score int32) string {
	if Abs(score) >= MateThreshold {
		pliesToMate := max(MateScore-Abs(score), 0)
		mateInN := (pliesToMate + 1) / 2
		if score < 0 {
			mateInN = -mateInN
		}
		return fmt.Sprintf("mate %d", mateInN)
	}
	return fmt.Sprintf("cp %d", score)
}

// IsMateScore reports whether score encodes a forced mate for either side.
func IsMateScore(score int32) bool {
	return Abs(score) >= MateThreshold
}
