package engine

import (
	"math"
	"math/bits"

	"github.com/dylhunn/dragontoothmg"

	"tinyuci/rules"
)

// Evaluator scores a static position from the point of view of the side to
// move. Implementations must not mutate the position.
type Evaluator interface {
	Evaluate(pos *rules.Position) int32
}

// Board indexing for black pieces: tables are authored for white with a1 = 0.
var FlipView = [64]int{
	56, 57, 58, 59, 60, 61, 62, 63,
	48, 49, 50, 51, 52, 53, 54, 55,
	40, 41, 42, 43, 44, 45, 46, 47,
	32, 33, 34, 35, 36, 37, 38, 39,
	24, 25, 26, 27, 28, 29, 30, 31,
	16, 17, 18, 19, 20, 21, 22, 23,
	8, 9, 10, 11, 12, 13, 14, 15,
	0, 1, 2, 3, 4, 5, 6, 7,
}

// Game phase weights
const (
	PawnPhase   = 0
	KnightPhase = 1
	BishopPhase = 1
	RookPhase   = 2
	QueenPhase  = 4
	TotalPhase  = PawnPhase*16 + KnightPhase*4 + BishopPhase*4 + RookPhase*4 + QueenPhase*2
)

var pieceValue = [7]int32{
	dragontoothmg.Pawn:   100,
	dragontoothmg.Knight: 320,
	dragontoothmg.Bishop: 330,
	dragontoothmg.Rook:   500,
	dragontoothmg.Queen:  900,
	dragontoothmg.King:   0,
}

// MaxMaterial bounds the material a single side can hold (nine queens, two of
// each other piece).
const MaxMaterial = 9*900 + 2*500 + 2*330 + 2*320

// Piece-square tables, white's perspective
var PSQT = [7][64]int32{
	dragontoothmg.Pawn: {
		0, 0, 0, 0, 0, 0, 0, 0,
		-6, -1, -2, -19, -20, 8, 11, -1,
		-5, -2, 5, 5, 3, -3, -2, -5,
		-4, 0, 7, 17, 17, 4, -1, -6,
		-2, 4, 9, 21, 21, 10, 3, -3,
		8, 14, 21, 27, 27, 22, 14, 8,
		47, 44, 45, 44, 46, 42, 44, 49,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	dragontoothmg.Knight: {
		-44, -28, -26, -20, -20, -26, -28, -44,
		-30, -22, -8, -2, -2, -8, -22, -30,
		-22, -4, 6, 10, 10, 6, -4, -22,
		-14, 2, 12, 18, 18, 12, 2, -14,
		-10, 6, 18, 24, 24, 18, 6, -10,
		-14, 4, 16, 22, 22, 16, 4, -14,
		-28, -12, 0, 6, 6, 0, -12, -28,
		-48, -30, -20, -16, -16, -20, -30, -48,
	},
	dragontoothmg.Bishop: {
		-14, -6, -12, -16, -16, -12, -6, -14,
		-6, 10, 4, 2, 2, 4, 10, -6,
		-6, 8, 8, 8, 8, 8, 8, -6,
		-8, 4, 12, 14, 14, 12, 4, -8,
		-8, 6, 10, 16, 16, 10, 6, -8,
		-6, 6, 10, 10, 10, 10, 6, -6,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-18, -10, -10, -10, -10, -10, -10, -18,
	},
	dragontoothmg.Rook: {
		-2, -4, 2, 8, 8, 4, -4, -2,
		-12, -6, -4, -2, -2, -4, -6, -12,
		-12, -6, -4, -2, -2, -4, -6, -12,
		-10, -4, -2, 0, 0, -2, -4, -10,
		-6, -2, 0, 2, 2, 0, -2, -6,
		-4, 2, 4, 6, 6, 4, 2, -4,
		14, 18, 20, 22, 22, 20, 18, 14,
		6, 6, 8, 10, 10, 8, 6, 6,
	},
	dragontoothmg.Queen: {
		-18, -12, -8, -2, -6, -10, -12, -18,
		-10, -4, 2, 2, 2, 0, -4, -10,
		-8, 0, 4, 4, 4, 4, 0, -8,
		-4, 0, 4, 6, 6, 4, 0, -4,
		-2, 2, 6, 8, 8, 6, 2, -2,
		-6, 2, 6, 8, 8, 6, 2, -6,
		-10, -2, 2, 4, 4, 2, -2, -10,
		-16, -10, -6, -4, -4, -6, -10, -16,
	},
	dragontoothmg.King: {
		18, 28, 8, -10, -4, -12, 30, 22,
		12, 10, -10, -28, -28, -16, 12, 14,
		-10, -18, -24, -34, -34, -24, -18, -10,
		-20, -28, -34, -42, -42, -34, -28, -20,
		-26, -34, -40, -48, -48, -40, -34, -26,
		-30, -38, -44, -50, -50, -44, -38, -30,
		-34, -40, -46, -52, -52, -46, -40, -34,
		-36, -42, -48, -54, -54, -48, -42, -36,
	},
}

// EvalBreakdown is the white-relative decomposition of a static evaluation.
type EvalBreakdown struct {
	Material   int32
	Positional int32
	Phase      int
	Total      int32
}

// PieceSquareEvaluator sums material and piece-square bonuses. Factor scales
// the positional part only; 1.0 leaves the tables untouched.
type PieceSquareEvaluator struct {
	Factor float64
}

func NewPieceSquareEvaluator(factor float64) *PieceSquareEvaluator {
	if factor < 0 || math.IsNaN(factor) {
		factor = 0
	}
	return &PieceSquareEvaluator{Factor: factor}
}

func (e *PieceSquareEvaluator) Evaluate(pos *rules.Position) int32 {
	score := e.Breakdown(pos).Total
	if !pos.WhiteToMove() {
		return -score
	}
	return score
}

// Breakdown reports the evaluation terms from white's point of view.
func (e *PieceSquareEvaluator) Breakdown(pos *rules.Position) EvalBreakdown {
	white, black := pos.Pieces(true), pos.Pieces(false)
	material := countMaterial(&white) - countMaterial(&black)
	positional := countPieceTables(&white, &black)
	// math.Round is odd-symmetric, so mirrored positions stay exact negations.
	scaled := int32(math.Round(e.Factor * float64(positional)))
	return EvalBreakdown{
		Material:   material,
		Positional: scaled,
		Phase:      GetPiecePhase(pos),
		Total:      material + scaled,
	}
}

func GetPiecePhase(pos *rules.Position) (phase int) {
	w, b := pos.Pieces(true), pos.Pieces(false)
	phase += bits.OnesCount64(w.Knights|b.Knights) * KnightPhase
	phase += bits.OnesCount64(w.Bishops|b.Bishops) * BishopPhase
	phase += bits.OnesCount64(w.Rooks|b.Rooks) * RookPhase
	phase += bits.OnesCount64(w.Queens|b.Queens) * QueenPhase
	return min(phase, TotalPhase)
}

func countMaterial(bb *dragontoothmg.Bitboards) (material int32) {
	material += int32(bits.OnesCount64(bb.Pawns)) * pieceValue[dragontoothmg.Pawn]
	material += int32(bits.OnesCount64(bb.Knights)) * pieceValue[dragontoothmg.Knight]
	material += int32(bits.OnesCount64(bb.Bishops)) * pieceValue[dragontoothmg.Bishop]
	material += int32(bits.OnesCount64(bb.Rooks)) * pieceValue[dragontoothmg.Rook]
	material += int32(bits.OnesCount64(bb.Queens)) * pieceValue[dragontoothmg.Queen]
	return material
}

func countPieceTables(white, black *dragontoothmg.Bitboards) (score int32) {
	pieces := func(bb *dragontoothmg.Bitboards) [7]uint64 {
		return [7]uint64{
			dragontoothmg.Pawn:   bb.Pawns,
			dragontoothmg.Knight: bb.Knights,
			dragontoothmg.Bishop: bb.Bishops,
			dragontoothmg.Rook:   bb.Rooks,
			dragontoothmg.Queen:  bb.Queens,
			dragontoothmg.King:   bb.Kings,
		}
	}
	wp, bp := pieces(white), pieces(black)
	for piece := dragontoothmg.Pawn; piece <= dragontoothmg.King; piece++ {
		table := &PSQT[piece]
		for x := wp[piece]; x != 0; x &= x - 1 {
			score += table[bits.TrailingZeros64(x)]
		}
		for x := bp[piece]; x != 0; x &= x - 1 {
			score -= table[FlipView[bits.TrailingZeros64(x)]]
		}
	}
	return score
}
