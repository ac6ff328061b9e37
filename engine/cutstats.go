package engine

import "github.com/rs/zerolog"

// CutStatistics collects counts for each cutoff mechanism of one search.
type CutStatistics struct {
	Nodes         uint64
	BetaCutoffs   uint64
	TTHits        uint64
	TTCutoffs     uint64
	RejectedHints uint64
	DrawNodes     uint64
	TerminalNodes uint64
}

// MarshalZerologObject lets the statistics ride along on a log event.
func (c CutStatistics) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("nodes", c.Nodes).
		Uint64("beta-cutoffs", c.BetaCutoffs).
		Uint64("tt-hits", c.TTHits).
		Uint64("tt-cutoffs", c.TTCutoffs).
		Uint64("tt-rejected-hints", c.RejectedHints).
		Uint64("draw-nodes", c.DrawNodes).
		Uint64("terminal-nodes", c.TerminalNodes)
}
