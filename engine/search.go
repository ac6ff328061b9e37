package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"tinyuci/rules"
)

// =============================================================================
// SCORE CONSTANTS
// =============================================================================
const (
	MaxDepth            = 100
	Infinity      int32 = 32767
	MateScore     int32 = 32000
	MateThreshold int32 = MateScore - MaxDepth
	DrawScore     int32 = 0
)

var (
	ErrCheckmate     = errors.New("no legal moves: checkmate")
	ErrStalemate     = errors.New("no legal moves: stalemate")
	ErrInvalidLimits = errors.New("invalid search limits")
)

// Limits bound one top-level search.
type Limits struct {
	MoveTime time.Duration
	MaxDepth int
}

func (l Limits) validate() error {
	if l.MoveTime <= 0 {
		return fmt.Errorf("%w: move time %v must be positive", ErrInvalidLimits, l.MoveTime)
	}
	if l.MaxDepth <= 0 {
		return fmt.Errorf("%w: depth %d must be positive", ErrInvalidLimits, l.MaxDepth)
	}
	return nil
}

// Result is the answer of a search. Partial is set when the last accepted
// depth was cut short by the clock; Fallback when no root move ever finished
// and Move was drawn at random from the legal moves.
type Result struct {
	Move     rules.Move
	Score    int32
	Depth    int
	Nodes    uint64
	Elapsed  time.Duration
	PV       PVLine
	Partial  bool
	Fallback bool
	SearchID string
}

// Info describes one finished (or partially finished) iteration.
type Info struct {
	SearchID string
	Depth    int
	Score    int32
	Nodes    uint64
	Elapsed  time.Duration
	PV       PVLine
	Partial  bool
	Hashfull int
}

type InfoHandler func(Info)

// RootMoveInfo is sent each time a root move has been searched to the full
// depth of the current iteration. Number counts finished root moves from 1.
type RootMoveInfo struct {
	SearchID string
	Depth    int
	Move     rules.Move
	Number   int
	Total    int
	Score    int32
	Elapsed  time.Duration
}

type RootMoveHandler func(RootMoveInfo)

// Searcher runs negamax with alpha-beta pruning over a single working
// position. It is not safe for concurrent use; run one Searcher per goroutine.
type Searcher struct {
	tt         *TransTable
	eval       Evaluator
	onInfo     InfoHandler
	onRootMove RootMoveHandler

	// fullWindow disables pruning and transposition cutoffs so every node
	// reports its exact minimax value.
	fullWindow bool

	budget  *Budget
	stopped bool
	stats   CutStatistics

	searchID      string
	depth         int
	rootCompleted int
	rootBest      rules.Move
	rootScore     int32
	rootPV        PVLine
}

func NewSearcher(tt *TransTable, eval Evaluator) *Searcher {
	return &Searcher{tt: tt, eval: eval}
}

// OnInfo registers a handler called after every iteration.
func (s *Searcher) OnInfo(h InfoHandler) {
	s.onInfo = h
}

// OnRootMove registers a handler called after every finished root move.
func (s *Searcher) OnRootMove(h RootMoveHandler) {
	s.onRootMove = h
}

func (s *Searcher) SetFullWindow(on bool) {
	s.fullWindow = on
}

func (s *Searcher) TransTable() *TransTable {
	return s.tt
}

// Stats are the counters of the most recent search.
func (s *Searcher) Stats() CutStatistics {
	return s.stats
}

// StartSearch picks a move for pos by iterative deepening until limits.MaxDepth
// is reached, the move time runs out or ctx is cancelled. pos is restored to
// its original state before returning. A root without legal moves yields
// ErrCheckmate or ErrStalemate.
func (s *Searcher) StartSearch(ctx context.Context, pos *rules.Position, limits Limits) (Result, error) {
	if err := limits.validate(); err != nil {
		return Result{}, err
	}
	maxDepth := Clamp(limits.MaxDepth, 1, MaxDepth)

	rootMoves := pos.LegalMoves()
	if len(rootMoves) == 0 {
		if pos.InCheck() {
			return Result{}, ErrCheckmate
		}
		return Result{}, ErrStalemate
	}

	s.budget = NewBudget(ctx, limits.MoveTime)
	s.stopped = false
	s.stats = CutStatistics{}
	rejectedBefore := s.tt.Stats().RejectedHints

	res := Result{SearchID: uuid.NewString(), Move: rules.NoMove}
	s.searchID = res.SearchID
	logger := log.With().Str("search-id", res.SearchID).Logger()
	logger.Debug().Str("fen", pos.FEN()).
		Int("max-depth", maxDepth).
		Dur("move-time", limits.MoveTime).
		Msg("search-started")

	for depth := 1; depth <= maxDepth; depth++ {
		s.depth = depth
		s.rootCompleted = 0
		s.rootBest = rules.NoMove
		s.rootScore = -Infinity
		s.rootPV.Clear()

		var pvLine PVLine
		s.negamax(pos, depth, 0, -Infinity, Infinity, res.Move, &pvLine)

		// An iteration that finished no root move knows nothing new.
		if s.rootCompleted == 0 {
			logger.Debug().Int("depth", depth).Msg("iteration-discarded")
			break
		}
		res.Move = s.rootBest
		res.Score = s.rootScore
		res.Depth = depth
		res.PV = s.rootPV.Clone()
		res.Partial = s.stopped

		s.report(&logger, res)

		if s.stopped {
			break
		}
		if res.Score >= MateThreshold {
			logger.Debug().Int("depth", depth).Str("score", FormatScore(res.Score)).Msg("mate-found")
			break
		}
	}

	if res.Move == rules.NoMove {
		res.Move = rootMoves[frand.Intn(len(rootMoves))]
		res.Fallback = true
		res.PV = PVLine{Moves: []rules.Move{res.Move}}
		logger.Warn().Str("move", rules.MoveString(res.Move)).
			Dur("move-time", limits.MoveTime).
			Msg("no-iteration-completed-playing-fallback")
	}

	res.Nodes = s.stats.Nodes
	res.Elapsed = s.budget.Elapsed()
	s.stats.RejectedHints = s.tt.Stats().RejectedHints - rejectedBefore
	logger.Debug().Object("stats", s.stats).
		Str("bestmove", rules.MoveString(res.Move)).
		Int("depth", res.Depth).
		Dur("elapsed", res.Elapsed).
		Msg("search-finished")
	return res, nil
}

func (s *Searcher) report(logger *zerolog.Logger, res Result) {
	elapsed := s.budget.Elapsed()
	logger.Debug().Int("depth", res.Depth).
		Str("score", FormatScore(res.Score)).
		Uint64("nodes", s.stats.Nodes).
		Bool("partial", res.Partial).
		Str("pv", res.PV.String()).
		Msg("iteration-complete")
	if s.onInfo == nil {
		return
	}
	s.onInfo(Info{
		SearchID: res.SearchID,
		Depth:    res.Depth,
		Score:    res.Score,
		Nodes:    s.stats.Nodes,
		Elapsed:  elapsed,
		PV:       res.PV.Clone(),
		Partial:  res.Partial,
		Hashfull: s.tt.Hashfull(),
	})
}

func (s *Searcher) reportRootMove(m rules.Move, score int32, total int) {
	if s.onRootMove == nil {
		return
	}
	s.onRootMove(RootMoveInfo{
		SearchID: s.searchID,
		Depth:    s.depth,
		Move:     m,
		Number:   s.rootCompleted,
		Total:    total,
		Score:    score,
		Elapsed:  s.budget.Elapsed(),
	})
}

// negamax returns the fail-soft value of pos for the side to move. hint is an
// ordering suggestion that is only honoured when it is legal here.
func (s *Searcher) negamax(pos *rules.Position, depth, ply int, alpha, beta int32, hint rules.Move, pvLine *PVLine) int32 {
	s.stats.Nodes++
	pvLine.Clear()

	if depth <= 0 {
		return s.eval.Evaluate(pos)
	}
	if ply > 0 && pos.IsDraw() {
		s.stats.DrawNodes++
		return DrawScore
	}

	moves := pos.LegalMoves()
	if len(moves) == 0 {
		s.stats.TerminalNodes++
		if pos.InCheck() {
			return -MateScore + int32(ply)
		}
		return DrawScore
	}

	alphaOrig := alpha
	key := pos.Hash()
	ttMove := rules.NoMove
	if entry, ok := s.tt.Get(key); ok && entry.Key == key {
		s.stats.TTHits++
		if lo.Contains(moves, entry.Move) {
			ttMove = entry.Move
		} else if entry.Move != rules.NoMove {
			s.tt.rejectHint()
		}
		if !s.fullWindow && ply > 0 && int(entry.Depth) >= depth {
			score := scoreFromTT(entry.Score, ply)
			switch entry.Bound {
			case BoundExact:
				s.stats.TTCutoffs++
				return score
			case BoundLower:
				alpha = max(alpha, score)
			case BoundUpper:
				beta = min(beta, score)
			}
			if alpha >= beta {
				s.stats.TTCutoffs++
				return score
			}
		}
	}
	if hint == rules.NoMove || !lo.Contains(moves, hint) {
		hint = ttMove
	}

	bestScore := -Infinity
	bestMove := rules.NoMove
	searched := 0
	var childPV PVLine

	for _, m := range OrderMoves(pos, moves, hint) {
		if s.budget.Expired() {
			s.stopped = true
			break
		}

		pos.Push(m)
		var score int32
		if s.fullWindow {
			score = -s.negamax(pos, depth-1, ply+1, -Infinity, Infinity, rules.NoMove, &childPV)
		} else {
			score = -s.negamax(pos, depth-1, ply+1, -beta, -alpha, rules.NoMove, &childPV)
		}
		pos.Pop()

		// The child was cut off mid-search; its score is not trustworthy.
		if s.stopped {
			break
		}
		searched++

		if score > bestScore {
			bestScore = score
			bestMove = m
			pvLine.Update(m, childPV)
			if ply == 0 {
				s.rootBest = m
				s.rootScore = score
				s.rootPV = pvLine.Clone()
			}
		}
		if ply == 0 {
			s.rootCompleted++
			s.reportRootMove(m, score, len(moves))
		}
		if score > alpha {
			alpha = score
		}
		if !s.fullWindow && alpha >= beta {
			s.stats.BetaCutoffs++
			break
		}
	}

	if searched == 0 {
		return alpha
	}

	if !s.stopped {
		bound := BoundExact
		if bestScore <= alphaOrig {
			bound = BoundUpper
		} else if bestScore >= beta {
			bound = BoundLower
		}
		s.tt.Store(key, TTEntry{
			Move:  bestMove,
			Score: scoreToTT(bestScore, ply),
			Depth: int8(depth),
			Bound: bound,
		})
	}
	return bestScore
}
