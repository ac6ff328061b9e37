package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tinyuci/config"
	"tinyuci/engine"
	"tinyuci/rules"
)

const (
	engineName   = "TinyUCI"
	engineAuthor = "the TinyUCI authors"
	maxHashMB    = 4096

	// root move progress is only worth printing on long searches
	currMoveAfter = time.Second
)

func main() {
	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.ConfigureLogging(os.Stderr)

	session, err := newUCISession(cfg, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("startup-failed")
	}
	if err := session.run(context.Background(), os.Stdin); err != nil {
		log.Fatal().Err(err).Msg("uci-loop-failed")
	}
}

// uciSession holds the state of one protocol conversation. Protocol replies
// go to out; diagnostics go to the logger.
type uciSession struct {
	cfg      *config.Config
	out      io.Writer
	pos      *rules.Position
	tt       *engine.TransTable
	policy   engine.ReplacePolicy
	settings config.SearchSettings
}

func newUCISession(cfg *config.Config, out io.Writer) (*uciSession, error) {
	settings, err := cfg.SearchSettings()
	if err != nil {
		return nil, err
	}
	tt, err := newTransTable(cfg)
	if err != nil {
		return nil, err
	}
	return &uciSession{
		cfg:      cfg,
		out:      out,
		pos:      rules.StartPosition(),
		tt:       tt,
		policy:   tt.Policy(),
		settings: settings,
	}, nil
}

func newTransTable(cfg *config.Config) (*engine.TransTable, error) {
	tts, err := cfg.TTSettings()
	if err != nil {
		return nil, err
	}
	policy, err := engine.ParseReplacePolicy(tts.Replace)
	if err != nil {
		return nil, err
	}
	return engine.NewTransTableFor(tts.SizeMB, tts.MemoryFraction, policy), nil
}

func (s *uciSession) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *uciSession) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *uciSession) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if quit := s.handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// handle executes one command line and reports whether the session is over.
func (s *uciSession) handle(ctx context.Context, line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) == 0 { // ignore blank lines
		return false
	}
	switch strings.ToLower(tokens[0]) {
	case "uci":
		s.println("id name", engineName)
		s.println("id author", engineAuthor)
		s.printf("option name Hash type spin default %d min 1 max %d\n", s.cfg.GetInt(config.ConfigKeyTTSizeMB), maxHashMB)
		s.printf("option name Difficulty type combo default %s", s.difficultyName())
		for _, name := range config.PresetNames() {
			s.printf(" var %s", name)
		}
		s.println()
		s.println("uciok")
	case "isready":
		s.println("readyok")
	case "ucinewgame":
		s.pos = rules.StartPosition()
		s.tt.Clear()
	case "position":
		s.position(tokens[1:])
	case "go":
		s.goCommand(ctx, tokens[1:])
	case "setoption":
		s.setOption(tokens[1:])
	case "eval":
		s.eval()
	case "moveordering":
		s.dumpRootMoveOrdering()
	case "quit":
		return true
	default:
		s.println("info string Unknown command:", line)
	}
	return false
}

func (s *uciSession) difficultyName() string {
	if s.settings.Difficulty == "" {
		return "none"
	}
	return s.settings.Difficulty
}

func (s *uciSession) position(args []string) {
	if len(args) == 0 {
		s.println("info string Malformed position command")
		return
	}
	var fen string
	rest := args[1:]
	switch strings.ToLower(args[0]) {
	case "startpos":
		fen = rules.Startpos
	case "fen":
		end := len(rest)
		for i, tok := range rest {
			if strings.ToLower(tok) == "moves" {
				end = i
				break
			}
		}
		fen = strings.Join(rest[:end], " ")
		rest = rest[end:]
	default:
		s.println("info string Invalid position subcommand")
		return
	}

	pos, err := rules.NewPosition(fen)
	if err != nil {
		s.println("info string", err)
		return
	}
	if len(rest) > 0 && strings.ToLower(rest[0]) == "moves" {
		for _, moveStr := range rest[1:] {
			m, err := pos.ParseMove(moveStr)
			if err != nil {
				s.printf("info string %v; position unchanged\n", err)
				return
			}
			pos.Push(m)
		}
	}
	s.pos = pos
}

func (s *uciSession) goCommand(ctx context.Context, args []string) {
	settings := s.settings
	var clock engine.Clock
	haveClock, haveMoveTime := false, false

	next := func(i int, name string) (int, bool) {
		if i+1 >= len(args) {
			s.println("info string Malformed go command option", name)
			return 0, false
		}
		v, err := strconv.Atoi(args[i+1])
		if err != nil {
			s.println("info string Malformed go command option; could not convert", name)
			return 0, false
		}
		return v, true
	}

	for i := 0; i < len(args); i++ {
		token := strings.ToLower(args[i])
		switch token {
		case "infinite":
			continue
		case "depth":
			if v, ok := next(i, token); ok {
				if v < 1 {
					s.println("info string depth must be at least 1; keeping", settings.MaxDepth)
				} else {
					settings.MaxDepth = v
				}
			}
			i++
		case "movetime":
			if v, ok := next(i, token); ok {
				if v < 1 {
					s.println("info string movetime must be at least 1; keeping", settings.MoveTime.Milliseconds())
				} else {
					settings.MoveTime = time.Duration(v) * time.Millisecond
					haveMoveTime = true
				}
			}
			i++
		case "wtime", "btime", "winc", "binc":
			v, ok := next(i, token)
			i++
			if !ok {
				continue
			}
			ours := (token[0] == 'w') == s.pos.WhiteToMove()
			if !ours {
				continue
			}
			if strings.HasSuffix(token, "time") {
				clock.Remaining = time.Duration(v) * time.Millisecond
				haveClock = true
			} else {
				clock.Increment = time.Duration(v) * time.Millisecond
			}
		case "difficulty":
			if i+1 >= len(args) {
				s.println("info string Malformed go command option difficulty")
				return
			}
			i++
			preset, err := config.LookupPreset(args[i])
			if err != nil {
				s.println("info string", err)
				return
			}
			settings.Difficulty = preset.Name
			settings.MaxDepth = preset.Depth
			settings.EvalFactor = preset.EvalFactor
		default:
			s.println("info string Unknown go subcommand", token)
		}
	}
	if haveClock && !haveMoveTime {
		settings.MoveTime = engine.AllocateMoveTime(s.pos, clock)
	}

	searcher := engine.NewSearcher(s.tt, engine.NewPieceSquareEvaluator(settings.EvalFactor))
	searcher.OnInfo(s.printInfo)
	searcher.OnRootMove(s.printCurrMove)
	res, err := searcher.StartSearch(ctx, s.pos, engine.Limits{MoveTime: settings.MoveTime, MaxDepth: settings.MaxDepth})
	switch {
	case errors.Is(err, engine.ErrCheckmate):
		s.println("info string checkmate")
		s.println("bestmove (none)")
		return
	case errors.Is(err, engine.ErrStalemate):
		s.println("info string stalemate")
		s.println("bestmove (none)")
		return
	case err != nil:
		s.println("info string", err)
		s.println("bestmove (none)")
		return
	}
	if res.Fallback {
		s.println("info string no search iteration completed; playing a legal move")
	}
	s.println("bestmove", rules.MoveString(res.Move))
}

func (s *uciSession) printInfo(info engine.Info) {
	ms := info.Elapsed.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	nps := info.Nodes * 1000 / uint64(ms)
	s.println(
		"info depth", info.Depth,
		"score", engine.FormatScore(info.Score),
		"nodes", info.Nodes,
		"time", ms,
		"nps", nps,
		"hashfull", info.Hashfull,
		"pv", info.PV.String(),
	)
}

func (s *uciSession) printCurrMove(info engine.RootMoveInfo) {
	if info.Elapsed < currMoveAfter {
		return
	}
	s.println(
		"info depth", info.Depth,
		"currmove", rules.MoveString(info.Move),
		"currmovenumber", info.Number,
	)
}

// setOption handles "setoption name <id> [value <x>]".
func (s *uciSession) setOption(args []string) {
	if len(args) < 2 || strings.ToLower(args[0]) != "name" {
		s.println("info string Malformed setoption command")
		return
	}
	name, value := args[1], ""
	for i, tok := range args {
		if strings.ToLower(tok) == "value" && i+1 < len(args) {
			name = strings.Join(args[1:i], " ")
			value = strings.Join(args[i+1:], " ")
			break
		}
	}

	switch strings.ToLower(name) {
	case "difficulty":
		preset, err := config.LookupPreset(value)
		if err != nil {
			s.println("info string", err)
			return
		}
		s.settings.Difficulty = preset.Name
		s.settings.MaxDepth = preset.Depth
		s.settings.EvalFactor = preset.EvalFactor
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < 1 || mb > maxHashMB {
			s.println("info string Hash must be between 1 and", maxHashMB)
			return
		}
		s.tt = engine.NewTransTable(mb, s.policy)
	default:
		s.println("info string Unknown option", name)
	}
}

func (s *uciSession) eval() {
	eval := engine.NewPieceSquareEvaluator(s.settings.EvalFactor)
	b := eval.Breakdown(s.pos)
	s.printf("info string material %d positional %d phase %d total %d\n", b.Material, b.Positional, b.Phase, b.Total)
	s.printf("info string side to move score %d\n", eval.Evaluate(s.pos))
}

func (s *uciSession) dumpRootMoveOrdering() {
	ttMove := rules.NoMove
	if e, ok := s.tt.Get(s.pos.Hash()); ok && e.Key == s.pos.Hash() {
		ttMove = e.Move
	}
	s.println("info string move ordering", s.pos.FEN())
	for idx, entry := range engine.RootMoveOrdering(s.pos, ttMove) {
		s.printf("info string #%d %s score=%d\n", idx+1, rules.MoveString(entry.Move), entry.Score)
	}
}
