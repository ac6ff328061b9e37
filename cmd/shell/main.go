package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"tinyuci/config"
	"tinyuci/engine"
	"tinyuci/shell"
)

func main() {
	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.ConfigureLogging(os.Stderr)

	settings, err := cfg.SearchSettings()
	if err != nil {
		log.Fatal().Err(err).Msg("bad-search-settings")
	}
	tts, err := cfg.TTSettings()
	if err != nil {
		log.Fatal().Err(err).Msg("bad-tt-settings")
	}
	policy, err := engine.ParseReplacePolicy(tts.Replace)
	if err != nil {
		log.Fatal().Err(err).Msg("bad-tt-settings")
	}
	tt := engine.NewTransTableFor(tts.SizeMB, tts.MemoryFraction, policy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sc := shell.NewShellController(settings, tt)
	if err := sc.Loop(ctx, shell.DefaultHistoryFile()); err != nil {
		log.Fatal().Err(err).Msg("shell-failed")
	}
}
