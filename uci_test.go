package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinyuci/config"
	"tinyuci/engine"
	"tinyuci/rules"
)

func newTestSession(t *testing.T, args ...string) (*uciSession, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Load(append([]string{"--tt-size-mb", "1"}, args...)))
	out := &bytes.Buffer{}
	s, err := newUCISession(cfg, out)
	require.NoError(t, err)
	return s, out
}

// send runs each line through the session and returns what it printed.
func send(s *uciSession, out *bytes.Buffer, lines ...string) string {
	out.Reset()
	for _, l := range lines {
		s.handle(context.Background(), l)
	}
	return out.String()
}

func bestMove(t *testing.T, output string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(line, "bestmove "); ok {
			return rest
		}
	}
	t.Fatalf("no bestmove in output:\n%s", output)
	return ""
}

func TestHandshake(t *testing.T) {
	s, out := newTestSession(t)
	got := send(s, out, "uci")
	assert.Contains(t, got, "id name TinyUCI")
	assert.Contains(t, got, "option name Difficulty type combo default none var easy var hard var master")
	assert.True(t, strings.HasSuffix(got, "uciok\n"))

	assert.Equal(t, "readyok\n", send(s, out, "isready"))
}

func TestGoReturnsLegalMove(t *testing.T) {
	s, out := newTestSession(t)
	got := send(s, out, "position startpos moves e2e4 e7e5", "go depth 2")

	assert.Contains(t, got, "info depth 1 ")
	assert.Contains(t, got, "info depth 2 ")

	pos, err := rules.NewPosition("rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2")
	require.NoError(t, err)
	_, err = pos.ParseMove(bestMove(t, got))
	assert.NoError(t, err)
}

func TestGoFindsMateInOne(t *testing.T) {
	s, out := newTestSession(t)
	got := send(s, out, "position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "go depth 3")
	assert.Contains(t, got, "score mate 1")
	assert.Equal(t, "a1a8", bestMove(t, got))
}

func TestGoOnTerminalPosition(t *testing.T) {
	s, out := newTestSession(t)
	got := send(s, out,
		"position fen rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		"go depth 2")
	assert.Contains(t, got, "info string checkmate")
	assert.Equal(t, "(none)", bestMove(t, got))

	got = send(s, out, "position fen 7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", "go depth 2")
	assert.Contains(t, got, "info string stalemate")
	assert.Equal(t, "(none)", bestMove(t, got))
}

func TestGoWithClock(t *testing.T) {
	s, out := newTestSession(t)
	got := send(s, out, "position startpos", "go wtime 2000 btime 2000 winc 0 binc 0 depth 1")
	assert.NotEqual(t, "(none)", bestMove(t, got))
}

func TestGoRejectsUnknownDifficulty(t *testing.T) {
	s, out := newTestSession(t)
	got := send(s, out, "go difficulty impossible")
	assert.Contains(t, got, "info string")
	assert.Contains(t, got, "easy, hard, master")
	assert.NotContains(t, got, "bestmove")
}

func TestSetOption(t *testing.T) {
	s, out := newTestSession(t)
	send(s, out, "setoption name Difficulty value master")
	assert.Equal(t, "master", s.settings.Difficulty)
	assert.Equal(t, 6, s.settings.MaxDepth)
	assert.Equal(t, 1.5, s.settings.EvalFactor)

	got := send(s, out, "setoption name Difficulty value nope")
	assert.Contains(t, got, "info string")
	assert.Equal(t, "master", s.settings.Difficulty)

	before := s.tt.Capacity()
	send(s, out, "setoption name Hash value 2")
	assert.Greater(t, s.tt.Capacity(), before)

	got = send(s, out, "setoption name Hash value 0")
	assert.Contains(t, got, "Hash must be between")
}

func TestPositionErrorsKeepState(t *testing.T) {
	s, out := newTestSession(t)
	send(s, out, "position startpos moves e2e4")
	fen := s.pos.FEN()

	got := send(s, out, "position fen not a fen")
	assert.Contains(t, got, "info string")
	assert.Equal(t, fen, s.pos.FEN())

	got = send(s, out, "position startpos moves e2e4 e2e4")
	assert.Contains(t, got, "info string")
	assert.Equal(t, fen, s.pos.FEN())

	// d2d4 is legal, the reply is not; neither gets applied.
	got = send(s, out, "position startpos moves d2d4 e7e9")
	assert.Contains(t, got, "position unchanged")
	assert.Equal(t, fen, s.pos.FEN())
	assert.Equal(t, 1, s.pos.Ply())
}

func TestHashResizeKeepsReplacePolicy(t *testing.T) {
	s, out := newTestSession(t, "--tt-replace", "depth")
	require.Equal(t, engine.ReplaceDepth, s.tt.Policy())

	// A later bad value in the live config must not leak into the new table.
	s.cfg.Set(config.ConfigKeyTTReplace, "bogus")
	got := send(s, out, "setoption name Hash value 2")
	assert.Empty(t, got)
	assert.Equal(t, engine.ReplaceDepth, s.tt.Policy())
}

func TestGoRejectsNonPositiveLimits(t *testing.T) {
	s, out := newTestSession(t, "--max-depth", "2")
	got := send(s, out, "go depth 0")
	assert.Contains(t, got, "info string depth must be at least 1; keeping 2")
	assert.Contains(t, got, "info depth 2 ")
	assert.NotEqual(t, "(none)", bestMove(t, got))

	got = send(s, out, "go movetime -5 depth 1")
	assert.Contains(t, got, "info string movetime must be at least 1")
	assert.NotEqual(t, "(none)", bestMove(t, got))
}

func TestNewGameClearsTable(t *testing.T) {
	s, out := newTestSession(t)
	send(s, out, "position startpos moves d2d4", "go depth 2")
	require.NotZero(t, s.tt.Stats().Stores)

	send(s, out, "ucinewgame")
	assert.Zero(t, s.tt.Stats().Stores)
	assert.Equal(t, rules.StartPosition().Hash(), s.pos.Hash())
}

func TestEvalAndMoveOrdering(t *testing.T) {
	s, out := newTestSession(t)
	got := send(s, out, "eval")
	assert.Contains(t, got, "info string material 0 positional 0")
	assert.Contains(t, got, "side to move score 0")

	got = send(s, out, "moveordering")
	assert.Equal(t, 21, strings.Count(got, "info string"))
	assert.Contains(t, got, "#20 ")
}

func TestRunStopsAtQuit(t *testing.T) {
	s, out := newTestSession(t)
	in := strings.NewReader("isready\n\nbogus\nquit\nisready\n")
	require.NoError(t, s.run(context.Background(), in))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "readyok"))
	assert.Contains(t, got, "info string Unknown command: bogus")
}

func BenchmarkGoDepth4(b *testing.B) {
	pos := rules.StartPosition()
	tt := engine.NewTransTable(16, engine.ReplaceAlways)
	for i := 0; i < b.N; i++ {
		tt.Clear()
		searcher := engine.NewSearcher(tt, engine.NewPieceSquareEvaluator(1.0))
		if _, err := searcher.StartSearch(context.Background(), pos, engine.Limits{MoveTime: time.Minute, MaxDepth: 4}); err != nil {
			b.Fatal(err)
		}
	}
}
