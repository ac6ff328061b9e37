package engine

import (
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"tinyuci/rules"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

const (
	kiwipete  = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	scholars  = "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5Q2/PPPP1PPP/RNB1K1NR w KQkq - 2 3"
	mateInOne = "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1"
	foolsMate = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	stalemate = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
)

func mustPosition(t *testing.T, fen string) *rules.Position {
	t.Helper()
	pos, err := rules.NewPosition(fen)
	if err != nil {
		t.Fatalf("NewPosition(%q): %v", fen, err)
	}
	return pos
}

func TestStartposIsBalanced(t *testing.T) {
	is := is.New(t)
	eval := NewPieceSquareEvaluator(1)
	is.Equal(eval.Evaluate(rules.StartPosition()), int32(0))
}

func TestEvaluationMirrorSymmetry(t *testing.T) {
	is := is.New(t)
	fens := []string{
		kiwipete,
		scholars,
		mateInOne,
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
		"8/2k5/3p4/p2P1p2/P2P1P2/8/3K4/8 b - - 0 40",
	}
	for _, factor := range []float64{0, 0.5, 1, 1.5} {
		eval := NewPieceSquareEvaluator(factor)
		for _, fen := range fens {
			mirrored, err := rules.MirrorFEN(fen)
			is.NoErr(err)
			is.Equal(eval.Evaluate(mustPosition(t, fen)), eval.Evaluate(mustPosition(t, mirrored)))
		}
	}
}

func TestEvaluationIsSideRelative(t *testing.T) {
	is := is.New(t)
	eval := NewPieceSquareEvaluator(1)
	white := mustPosition(t, "4k3/8/8/8/3N4/8/8/4K3 w - - 0 1")
	black := mustPosition(t, "4k3/8/8/8/3N4/8/8/4K3 b - - 0 1")
	is.True(eval.Evaluate(white) > 0)
	is.Equal(eval.Evaluate(white), -eval.Evaluate(black))
}

func TestEvalFactorScalesPositionalTermOnly(t *testing.T) {
	is := is.New(t)
	pos := mustPosition(t, "4k3/8/8/8/3N4/8/8/4K3 w - - 0 1")

	materialOnly := NewPieceSquareEvaluator(0).Breakdown(pos)
	is.Equal(materialOnly.Material, int32(320))
	is.Equal(materialOnly.Positional, int32(0))
	is.Equal(materialOnly.Total, int32(320))

	neutral := NewPieceSquareEvaluator(1).Breakdown(pos)
	doubled := NewPieceSquareEvaluator(2).Breakdown(pos)
	is.Equal(doubled.Material, neutral.Material)
	is.Equal(doubled.Positional, 2*neutral.Positional)
	is.Equal(doubled.Total, doubled.Material+doubled.Positional)
}

func TestNegativeFactorIsClamped(t *testing.T) {
	is := is.New(t)
	is.Equal(NewPieceSquareEvaluator(-3).Factor, 0.0)
}

func TestPiecePhase(t *testing.T) {
	is := is.New(t)
	is.Equal(GetPiecePhase(rules.StartPosition()), TotalPhase)
	is.Equal(GetPiecePhase(mustPosition(t, "4k3/8/8/8/8/8/8/4K3 w - - 0 1")), 0)
	is.Equal(GetPiecePhase(mustPosition(t, mateInOne)), RookPhase)
}
