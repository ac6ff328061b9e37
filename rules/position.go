// Package rules adapts github.com/dylhunn/dragontoothmg into the position
// model the search core consumes: legal moves, push/pop with an explicit undo
// stack, capture and promotion tests, terminal detection and draw rules.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

const Startpos = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

const fiftyMoveLimit = 100

type Move = dragontoothmg.Move

// Bitboards holds one side's piece sets, bit 0 being a1.
type Bitboards = dragontoothmg.Bitboards

const NoMove Move = 0

var (
	ErrInvalidFEN  = errors.New("invalid FEN")
	ErrIllegalMove = errors.New("illegal move")
)

type Status int

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	default:
		return "ongoing"
	}
}

// frame is one applied move: the library's undo closure plus the halfmove
// clock that was current before the move.
type frame struct {
	undo     func()
	halfmove int
}

// Position is a mutable board owned by a single goroutine. Moves are applied
// with Push and must be taken back with Pop in reverse order.
type Position struct {
	board    dragontoothmg.Board
	stack    []frame
	history  []uint64
	halfmove int
}

// NewPosition validates fen and builds a position from it.
func NewPosition(fen string) (*Position, error) {
	normalized, halfmove, err := validateFEN(fen)
	if err != nil {
		return nil, err
	}
	board, err := parseBoard(normalized)
	if err != nil {
		return nil, err
	}
	return &Position{
		board:    board,
		stack:    make([]frame, 0, 128),
		history:  make([]uint64, 0, 256),
		halfmove: halfmove,
	}, nil
}

// StartPosition returns the standard initial position.
func StartPosition() *Position {
	p, err := NewPosition(Startpos)
	if err != nil {
		panic(err)
	}
	return p
}

// parseBoard shields callers from the library parser, which panics on input
// it cannot index.
func parseBoard(fen string) (board dragontoothmg.Board, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidFEN, r)
		}
	}()
	return dragontoothmg.ParseFen(fen), nil
}

func (p *Position) FEN() string {
	return p.board.ToFen()
}

func (p *Position) Hash() uint64 {
	return p.board.Hash()
}

func (p *Position) WhiteToMove() bool {
	return p.board.Wtomove
}

// Pieces returns a copy of the bitboards for one colour.
func (p *Position) Pieces(white bool) Bitboards {
	if white {
		return p.board.White
	}
	return p.board.Black
}

func (p *Position) HalfmoveClock() int {
	return p.halfmove
}

// Ply is the number of moves currently pushed on the undo stack.
func (p *Position) Ply() int {
	return len(p.stack)
}

func (p *Position) LegalMoves() []Move {
	return p.board.GenerateLegalMoves()
}

func (p *Position) InCheck() bool {
	return p.board.OurKingInCheck()
}

// Push applies a legal move. The caller owns the matching Pop.
func (p *Position) Push(m Move) {
	prevClock := p.halfmove
	if p.IsCapture(m) || p.isPawnMove(m) {
		p.halfmove = 0
	} else {
		p.halfmove++
	}
	p.history = append(p.history, p.board.Hash())
	undo := p.board.Apply(m)
	p.stack = append(p.stack, frame{undo: undo, halfmove: prevClock})
}

// Pop takes back the most recently pushed move.
func (p *Position) Pop() {
	n := len(p.stack)
	if n == 0 {
		panic("rules: Pop on empty move stack")
	}
	top := p.stack[n-1]
	p.stack = p.stack[:n-1]
	p.history = p.history[:len(p.history)-1]
	top.undo()
	p.halfmove = top.halfmove
}

// IsCapture reports whether m takes a piece, en passant included.
func (p *Position) IsCapture(m Move) bool {
	us, them := p.sides()
	to := uint64(1) << m.To()
	if them.All&to != 0 {
		return true
	}
	from := uint64(1) << m.From()
	// A pawn changing file onto an empty square is an en passant capture.
	return us.Pawns&from != 0 && m.From()%8 != m.To()%8
}

func (p *Position) IsPromotion(m Move) bool {
	return m.Promote() != dragontoothmg.Nothing
}

func (p *Position) isPawnMove(m Move) bool {
	us, _ := p.sides()
	return us.Pawns&(uint64(1)<<m.From()) != 0
}

func (p *Position) sides() (us, them *dragontoothmg.Bitboards) {
	if p.board.Wtomove {
		return &p.board.White, &p.board.Black
	}
	return &p.board.Black, &p.board.White
}

// Status classifies the position for the side to move.
func (p *Position) Status() Status {
	if len(p.LegalMoves()) > 0 {
		return Ongoing
	}
	if p.InCheck() {
		return Checkmate
	}
	return Stalemate
}

// IsDraw reports a fifty-move draw or a repetition of the current position
// inside the reversible part of the recorded history.
func (p *Position) IsDraw() bool {
	if p.halfmove >= fiftyMoveLimit {
		return true
	}
	hash := p.board.Hash()
	n := len(p.history)
	for back := 2; back <= p.halfmove && back <= n; back += 2 {
		if p.history[n-back] == hash {
			return true
		}
	}
	return false
}

// ParseMove resolves a coordinate move string (e2e4, e7e8q) against the legal
// moves of the position.
func (p *Position) ParseMove(s string) (Move, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, m := range p.LegalMoves() {
		if m.String() == want {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %q in %s", ErrIllegalMove, s, p.FEN())
}

// MoveString renders m in coordinate notation; NoMove renders as 0000.
func MoveString(m Move) string {
	if m == NoMove {
		return "0000"
	}
	return m.String()
}
