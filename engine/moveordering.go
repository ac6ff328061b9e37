package engine

import (
	"cmp"
	"slices"

	"tinyuci/rules"
)

type move struct {
	move  rules.Move
	score uint16
}

type moveList struct {
	moves []move
}

/*
Move ordering bonuses. They add up: a capture that promotes outranks a plain
capture, which outranks a quiet promotion. The transposition table move
outranks any sum of the others.
*/
var ttMoveOffset uint16 = 10000
var captureOffset uint16 = 1000
var promotionOffset uint16 = 500

func scoreMovesList(pos *rules.Position, moves []rules.Move, ttMove rules.Move) (movesList moveList) {
	movesList.moves = make([]move, len(moves))
	for i, m := range moves {
		var moveEval uint16
		if m == ttMove && ttMove != rules.NoMove {
			moveEval += ttMoveOffset
		}
		if pos.IsCapture(m) {
			moveEval += captureOffset
		}
		if pos.IsPromotion(m) {
			moveEval += promotionOffset
		}
		movesList.moves[i] = move{move: m, score: moveEval}
	}
	return movesList
}

// sort orders by descending score; equal scores keep generation order.
func (ml *moveList) sort() {
	slices.SortStableFunc(ml.moves, func(a, b move) int {
		return cmp.Compare(b.score, a.score)
	})
}

// OrderMoves returns a reordering of moves for alpha-beta. The result is
// always a permutation of the input; a ttMove absent from moves is ignored.
func OrderMoves(pos *rules.Position, moves []rules.Move, ttMove rules.Move) []rules.Move {
	scored := scoreMovesList(pos, moves, ttMove)
	scored.sort()
	ordered := make([]rules.Move, len(scored.moves))
	for i, entry := range scored.moves {
		ordered[i] = entry.move
	}
	return ordered
}

// ScoredMove pairs a move with its ordering score, for diagnostics.
type ScoredMove struct {
	Move  rules.Move
	Score int
}

// RootMoveOrdering lists the legal moves of pos in search order with their
// ordering scores.
func RootMoveOrdering(pos *rules.Position, ttMove rules.Move) []ScoredMove {
	scored := scoreMovesList(pos, pos.LegalMoves(), ttMove)
	scored.sort()
	out := make([]ScoredMove, len(scored.moves))
	for i, entry := range scored.moves {
		out[i] = ScoredMove{Move: entry.move, Score: int(entry.score)}
	}
	return out
}
