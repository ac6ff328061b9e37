package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"tinyuci/config"
	"tinyuci/engine"
	"tinyuci/rules"
)

// Standard search positions: opening, kiwipete, middlegame, endgame.
var benchFENs = []string{
	rules.Startpos,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"r4rk1/1pp1qppp/p1np1n2/2b1p3/2B1P3/2NP1N2/PPP1QPPP/R4RK1 w - - 0 10",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
}

type jobResult struct {
	fen     string
	move    string
	score   int32
	depth   int
	nodes   uint64
	elapsed time.Duration
}

func main() {
	depthFlag := flag.Int("depth", 0, "search depth in plies (0 = use the difficulty preset)")
	difficultyFlag := flag.String("difficulty", "hard", "difficulty preset supplying depth and eval factor")
	moveTimeFlag := flag.Duration("movetime", time.Minute, "time budget per search")
	repeatFlag := flag.Int("repeat", 1, "number of passes over the positions")
	fenFlag := flag.String("fen", "", "single FEN to search (empty = built-in set)")
	threadsFlag := flag.Int("threads", runtime.NumCPU(), "searches run concurrently, each with its own table")
	ttFlag := flag.Int("hash", 16, "transposition table size per search in MB")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	memProfile := flag.String("memprofile", "", "write memory profile (heap) to file")
	flag.Parse()

	preset, err := config.LookupPreset(*difficultyFlag)
	if err != nil {
		log.Fatal(err)
	}
	depth := preset.Depth
	if *depthFlag > 0 {
		depth = *depthFlag
	}

	if *cpuProfile != "" {
		cpuFile, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}()
	}

	fens := benchFENs
	if *fenFlag != "" {
		fens = []string{*fenFlag}
	}
	var jobs []string
	for i := 0; i < *repeatFlag; i++ {
		jobs = append(jobs, fens...)
	}

	fmt.Printf("searchbench: difficulty=%s depth=%d positions=%d threads=%d\n", preset.Name, depth, len(jobs), *threadsFlag)

	results := make([]jobResult, len(jobs))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(*threadsFlag, 1))
	startAll := time.Now()
	for i, fen := range jobs {
		i, fen := i, fen
		g.Go(func() error {
			pos, err := rules.NewPosition(fen)
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			tt := engine.NewTransTable(*ttFlag, engine.ReplaceAlways)
			searcher := engine.NewSearcher(tt, engine.NewPieceSquareEvaluator(preset.EvalFactor))
			res, err := searcher.StartSearch(ctx, pos, engine.Limits{MoveTime: *moveTimeFlag, MaxDepth: depth})
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			results[i] = jobResult{
				fen:     fen,
				move:    rules.MoveString(res.Move),
				score:   res.Score,
				depth:   res.Depth,
				nodes:   res.Nodes,
				elapsed: res.Elapsed,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	totalElapsed := time.Since(startAll)

	var totalNodes uint64
	nps := make([]float64, len(results))
	for i, r := range results {
		secs := max(r.elapsed.Seconds(), 1e-6)
		nps[i] = float64(r.nodes) / secs
		totalNodes += r.nodes
		fmt.Printf("%3d: bestmove %-5s %-9s depth=%d nodes=%d time=%v\n",
			i+1, r.move, engine.FormatScore(r.score), r.depth, r.nodes, r.elapsed.Round(time.Millisecond))
	}
	mean, std := stat.MeanStdDev(nps, nil)
	fmt.Printf("total nodes: %d  wall time: %v\n", totalNodes, totalElapsed.Round(time.Millisecond))
	fmt.Printf("nps per search: mean %.0f  stddev %.0f\n", mean, std)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatalf("could not create memory profile: %v", err)
		}
		defer f.Close()

		runtime.GC() // get up-to-date heap info
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("could not write memory profile: %v", err)
		}
	}
}
