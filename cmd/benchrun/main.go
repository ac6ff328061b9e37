package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"tinyuci/config"
)

// run executes a command and prints its combined output. Returns exit code.
func run(name string, args ...string) int {
	cmd := exec.Command(name, args...)
	cmd.Env = os.Environ()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	fmt.Print(out.String())
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "error running %s: %v\n", name, err)
	return 1
}

func main() {
	// Usage: go run ./cmd/benchrun [-perft-depth N] [-skip-micro]
	perftDepth := flag.Int("perft-depth", 5, "deepest perft run from the initial position")
	skipMicro := flag.Bool("skip-micro", false, "skip the go test benchmarks in bench/")
	flag.Parse()

	if !*skipMicro {
		fmt.Println("Columns: BENCHMARK  N  ns/op  B/op  allocs/op")
		code := run("go", "test", "./bench", "-run", "^$", "-bench", ".", "-benchmem", "-benchtime=1s")
		if code != 0 {
			os.Exit(code)
		}
	}

	fmt.Println("\nPerft Performance:")
	fmt.Println("TEST \t\tDepth \t\tNodes \t\tTime \tNPS")
	for d := 3; d <= *perftDepth; d++ {
		run("go", "run", "./cmd/perft", "-depth", strconv.Itoa(d), "-label", "Initial")
	}
	_ = run("go", "run", "./cmd/perft", "-fen",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"-depth", "3", "-label", "Kiwipete")

	fmt.Println("\nSearch Performance:")
	for _, name := range config.PresetNames() {
		fmt.Printf("-- %s\n", name)
		run("go", "run", "./cmd/searchbench", "-difficulty", name, "-threads", "1")
	}
	os.Exit(0)
}
