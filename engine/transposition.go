package engine

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"tinyuci/rules"
)

type Bound uint8

// Bound flags. The zero value marks an empty slot.
const (
	BoundNone Bound = iota
	BoundExact
	BoundLower
	BoundUpper
)

func (b Bound) String() string {
	switch b {
	case BoundExact:
		return "exact"
	case BoundLower:
		return "lower"
	case BoundUpper:
		return "upper"
	default:
		return "none"
	}
}

type ReplacePolicy int

const (
	// ReplaceAlways overwrites the slot on every store.
	ReplaceAlways ReplacePolicy = iota
	// ReplaceDepth keeps a deeper entry for a different position.
	ReplaceDepth
)

func ParseReplacePolicy(s string) (ReplacePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return ReplaceAlways, nil
	case "depth":
		return ReplaceDepth, nil
	}
	return ReplaceAlways, fmt.Errorf("unknown tt replacement policy %q", s)
}

func (p ReplacePolicy) String() string {
	if p == ReplaceDepth {
		return "depth"
	}
	return "always"
}

type TTEntry struct {
	Key   uint64
	Move  rules.Move
	Score int32
	Depth int8
	Bound Bound
}

type TTStats struct {
	Lookups       uint64
	Stores        uint64
	Overwrites    uint64
	Skipped       uint64
	RejectedHints uint64
}

// TransTable is a direct-mapped cache indexed by key mod capacity. A slot may
// hold an entry for another position, so callers compare Key and check any
// suggested move for legality before using it.
type TransTable struct {
	entries []TTEntry
	policy  ReplacePolicy
	stats   TTStats
}

func entrySize() uint64 {
	return uint64(unsafe.Sizeof(TTEntry{}))
}

// NewTransTable sizes the table from a budget in megabytes.
func NewTransTable(sizeMB int, policy ReplacePolicy) *TransTable {
	return newTransTableBytes(uint64(max(sizeMB, 0))*1024*1024, policy)
}

// NewTransTableFromMemory sizes the table as a fraction of physical memory.
func NewTransTableFromMemory(fraction float64, policy ReplacePolicy) *TransTable {
	fraction = Clamp(fraction, 0, 0.9)
	total := memory.TotalMemory()
	log.Debug().Uint64("total-memory", total).Float64("fraction", fraction).Msg("sizing-transposition-table")
	return newTransTableBytes(uint64(float64(total)*fraction), policy)
}

// NewTransTableFor picks the sizing from configuration: a positive sizeMB wins,
// otherwise fraction of physical memory is used.
func NewTransTableFor(sizeMB int, fraction float64, policy ReplacePolicy) *TransTable {
	if sizeMB > 0 {
		return NewTransTable(sizeMB, policy)
	}
	return NewTransTableFromMemory(fraction, policy)
}

func newTransTableBytes(budget uint64, policy ReplacePolicy) *TransTable {
	return newTransTableEntries(budget/entrySize(), policy)
}

func newTransTableEntries(count uint64, policy ReplacePolicy) *TransTable {
	if count == 0 {
		count = 1
	}
	tt := &TransTable{
		entries: make([]TTEntry, count),
		policy:  policy,
	}
	log.Debug().Uint64("num-elems", count).
		Uint64("entry-size", entrySize()).
		Str("policy", policy.String()).
		Msg("transposition-table-size")
	return tt
}

func (tt *TransTable) Policy() ReplacePolicy {
	return tt.policy
}

func (tt *TransTable) Capacity() int {
	return len(tt.entries)
}

func (tt *TransTable) slot(key uint64) *TTEntry {
	return &tt.entries[key%uint64(len(tt.entries))]
}

// Get returns the occupant of the slot for key, which may belong to another
// position. ok is false when the slot is empty.
func (tt *TransTable) Get(key uint64) (entry TTEntry, ok bool) {
	tt.stats.Lookups++
	e := tt.slot(key)
	return *e, e.Bound != BoundNone
}

// Store writes entry into the slot for key.
func (tt *TransTable) Store(key uint64, entry TTEntry) {
	e := tt.slot(key)
	if e.Bound != BoundNone && e.Key != key {
		if tt.policy == ReplaceDepth && e.Depth > entry.Depth {
			tt.stats.Skipped++
			return
		}
		tt.stats.Overwrites++
	}
	entry.Key = key
	if entry.Bound == BoundNone {
		entry.Bound = BoundExact
	}
	*e = entry
	tt.stats.Stores++
}

func (tt *TransTable) Clear() {
	clear(tt.entries)
	tt.stats = TTStats{}
}

func (tt *TransTable) Stats() TTStats {
	return tt.stats
}

// Hashfull estimates table occupancy in permille from the first slots.
func (tt *TransTable) Hashfull() int {
	sample := min(len(tt.entries), 1000)
	used := 0
	for i := 0; i < sample; i++ {
		if tt.entries[i].Bound != BoundNone {
			used++
		}
	}
	return used * 1000 / sample
}

func (tt *TransTable) rejectHint() {
	tt.stats.RejectedHints++
}

// Mate scores are stored relative to the node so they stay valid when the
// position is reached at a different ply.
func scoreToTT(score int32, ply int) int32 {
	if score >= MateThreshold {
		return score + int32(ply)
	}
	if score <= -MateThreshold {
		return score - int32(ply)
	}
	return score
}

func scoreFromTT(score int32, ply int) int32 {
	if score >= MateThreshold {
		return score - int32(ply)
	}
	if score <= -MateThreshold {
		return score + int32(ply)
	}
	return score
}
