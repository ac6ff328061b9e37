// Package shell is an interactive front-end for exploring positions with the
// engine: set up a position, play or take back moves, and run searches.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"tinyuci/config"
	"tinyuci/engine"
	"tinyuci/rules"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errExit              = errors.New("exit requested")
)

type Response struct {
	message string
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (r *Response) Message() string {
	return r.message
}

type shellcmd struct {
	cmd     string
	args    []string
	options map[string]string
}

// extractFields splits a line into a command, positional args and "-key
// value" options. Quoting follows the POSIX shell rules.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := &shellcmd{cmd: fields[0], options: map[string]string{}}
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], "-") && len(fields[i]) > 1 {
			if i+1 >= len(fields) {
				return nil, errWrongOptionSyntax
			}
			cmd.options[fields[i][1:]] = fields[i+1]
			i++
			continue
		}
		cmd.args = append(cmd.args, fields[i])
	}
	return cmd, nil
}

type ShellController struct {
	l *readline.Instance

	pos      *rules.Position
	played   []rules.Move
	tt       *engine.TransTable
	settings config.SearchSettings
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController builds a controller without a terminal attached; Loop
// attaches one.
func NewShellController(settings config.SearchSettings, tt *engine.TransTable) *ShellController {
	return &ShellController{
		pos:      rules.StartPosition(),
		tt:       tt,
		settings: settings,
	}
}

func (sc *ShellController) position(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: position startpos | position <fen>")
	}
	fen := strings.Join(cmd.args, " ")
	if strings.EqualFold(cmd.args[0], "startpos") {
		fen = rules.Startpos
	}
	pos, err := rules.NewPosition(fen)
	if err != nil {
		return nil, err
	}
	sc.pos = pos
	sc.played = sc.played[:0]
	return sc.show()
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <move> [<move> ...]")
	}
	for _, s := range cmd.args {
		m, err := sc.pos.ParseMove(s)
		if err != nil {
			return nil, err
		}
		sc.pos.Push(m)
		sc.played = append(sc.played, m)
	}
	return sc.show()
}

func (sc *ShellController) undo() (*Response, error) {
	if len(sc.played) == 0 {
		return nil, errors.New("no moves to take back")
	}
	sc.pos.Pop()
	sc.played = sc.played[:len(sc.played)-1]
	return sc.show()
}

func (sc *ShellController) moves() (*Response, error) {
	var b strings.Builder
	ordered := engine.RootMoveOrdering(sc.pos, rules.NoMove)
	fmt.Fprintf(&b, "%d legal moves\n", len(ordered))
	for i, sm := range ordered {
		fmt.Fprintf(&b, "%3d. %-6s %d\n", i+1, rules.MoveString(sm.Move), sm.Score)
	}
	return msg(strings.TrimRight(b.String(), "\n")), nil
}

func (sc *ShellController) eval() (*Response, error) {
	e := engine.NewPieceSquareEvaluator(sc.settings.EvalFactor)
	bd := e.Breakdown(sc.pos)
	return msg(fmt.Sprintf("material %d, positional %d, phase %d/%d, white %d, side to move %d",
		bd.Material, bd.Positional, bd.Phase, engine.TotalPhase, bd.Total, e.Evaluate(sc.pos))), nil
}

func (sc *ShellController) search(ctx context.Context, cmd *shellcmd) (*Response, error) {
	settings := sc.settings
	if name, ok := cmd.options["difficulty"]; ok {
		p, err := config.LookupPreset(name)
		if err != nil {
			return nil, err
		}
		settings.MaxDepth, settings.EvalFactor = p.Depth, p.EvalFactor
	}
	if d, ok := cmd.options["depth"]; ok {
		depth, err := strconv.Atoi(d)
		if err != nil {
			return nil, fmt.Errorf("bad depth %q: %w", d, err)
		}
		settings.MaxDepth = depth
	}
	if t, ok := cmd.options["time"]; ok {
		mt, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("bad time %q: %w", t, err)
		}
		settings.MoveTime = mt
	}

	var lines []string
	searcher := engine.NewSearcher(sc.tt, engine.NewPieceSquareEvaluator(settings.EvalFactor))
	searcher.OnInfo(func(info engine.Info) {
		lines = append(lines, fmt.Sprintf("depth %2d  %-9s  nodes %-9d  %6s  %s",
			info.Depth, engine.FormatScore(info.Score), info.Nodes,
			info.Elapsed.Round(time.Millisecond), info.PV.String()))
	})
	res, err := searcher.StartSearch(ctx, sc.pos, engine.Limits{MoveTime: settings.MoveTime, MaxDepth: settings.MaxDepth})
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("best move %s (%s, depth %d)", rules.MoveString(res.Move), engine.FormatScore(res.Score), res.Depth)
	if res.Fallback {
		summary = fmt.Sprintf("best move %s (no iteration finished, random legal move)", rules.MoveString(res.Move))
	}
	lines = append(lines, summary)
	return msg(strings.Join(lines, "\n")), nil
}

func (sc *ShellController) difficulty(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		name := sc.settings.Difficulty
		if name == "" {
			name = "custom"
		}
		return msg(fmt.Sprintf("difficulty %s (depth %d, eval factor %.2f); presets: %s",
			name, sc.settings.MaxDepth, sc.settings.EvalFactor, strings.Join(config.PresetNames(), ", "))), nil
	}
	p, err := config.LookupPreset(cmd.args[0])
	if err != nil {
		return nil, err
	}
	sc.settings.Difficulty = p.Name
	sc.settings.MaxDepth = p.Depth
	sc.settings.EvalFactor = p.EvalFactor
	return msg("difficulty set to " + p.Name), nil
}

func (sc *ShellController) perft(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: perft <depth>")
	}
	depth, err := strconv.Atoi(cmd.args[0])
	if err != nil || depth < 0 {
		return nil, fmt.Errorf("bad depth %q", cmd.args[0])
	}
	start := time.Now()
	nodes := rules.Perft(sc.pos, depth)
	return msg(fmt.Sprintf("perft(%d) = %d in %v", depth, nodes, time.Since(start).Round(time.Millisecond))), nil
}

func (sc *ShellController) show() (*Response, error) {
	var b strings.Builder
	white, black := sc.pos.Pieces(true), sc.pos.Pieces(false)
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&b, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			b.WriteByte(' ')
			b.WriteByte(pieceAt(&white, &black, rank*8+file))
		}
		b.WriteByte('\n')
	}
	b.WriteString("   a b c d e f g h\n")
	b.WriteString(sc.pos.FEN())
	if status := sc.pos.Status(); status != rules.Ongoing {
		b.WriteString("\n" + status.String())
	} else if sc.pos.IsDraw() {
		b.WriteString("\ndraw by rule")
	}
	return msg(b.String()), nil
}

func pieceAt(white, black *rules.Bitboards, sq int) byte {
	letters := "pnbrqk"
	for side, bb := range []*rules.Bitboards{white, black} {
		for i, set := range []uint64{bb.Pawns, bb.Knights, bb.Bishops, bb.Rooks, bb.Queens, bb.Kings} {
			if set&(1<<uint(sq)) == 0 {
				continue
			}
			if side == 0 {
				return letters[i] - 'a' + 'A'
			}
			return letters[i]
		}
	}
	return '.'
}

func (sc *ShellController) help() (*Response, error) {
	return msg(strings.Join([]string{
		"position startpos | position <fen>   set up a position",
		"play <move> ...                      play moves in long algebraic notation",
		"undo                                 take back the last move",
		"moves                                list legal moves in search order",
		"eval                                 static evaluation",
		"search [-depth N] [-time 1s] [-difficulty name]",
		"difficulty [name]                    show or pick a preset",
		"perft <depth>                        count leaf nodes",
		"show                                 print the board",
		"exit",
	}, "\n")), nil
}

// Execute runs one command line. It returns errExit for "exit".
func (sc *ShellController) Execute(ctx context.Context, line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "position", "pos":
		return sc.position(cmd)
	case "play", "p":
		return sc.play(cmd)
	case "undo", "u":
		return sc.undo()
	case "moves", "m":
		return sc.moves()
	case "eval", "e":
		return sc.eval()
	case "search", "s", "go":
		return sc.search(ctx, cmd)
	case "difficulty", "d":
		return sc.difficulty(cmd)
	case "perft":
		return sc.perft(cmd)
	case "show", "b":
		return sc.show()
	case "help", "h", "?":
		return sc.help()
	case "exit", "quit":
		return nil, errExit
	default:
		msg := fmt.Sprintf("command %v not found", strconv.Quote(cmd.cmd))
		log.Info().Msg(msg)
		return nil, errors.New(msg)
	}
}

// Loop reads commands from the terminal until exit, EOF or an interrupt on
// an empty line.
func (sc *ShellController) Loop(ctx context.Context, historyFile string) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mtinyuci>\033[0m ",
		HistoryFile:     historyFile,
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	sc.l = l
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		resp, err := sc.Execute(ctx, line)
		if errors.Is(err, errExit) {
			break
		}
		if err != nil {
			writeln("Error: "+err.Error(), sc.l.Stderr())
			continue
		}
		writeln(resp.message, sc.l.Stdout())
	}
	log.Debug().Msg("exiting-readline-loop")
	return nil
}

// DefaultHistoryFile keeps readline history in the temp directory.
func DefaultHistoryFile() string {
	return filepath.Join(os.TempDir(), "tinyuci_history.tmp")
}
