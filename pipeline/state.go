package pipeline

import (
	"sync/atomic"
)

// Counter is a monotonically increasing, concurrency-safe count.
type Counter struct {
	n atomic.Int64
}

// Inc adds one and returns the new value.
func (c *Counter) Inc() int64 { return c.n.Add(1) }

// Load returns the current value.
func (c *Counter) Load() int64 { return c.n.Load() }

// Phase is the lifecycle phase of a run.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseDraining
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State is owned by one run and shared by its stages.
type State struct {
	Read     Counter
	Computed Counter
	Written  Counter

	readingFinished atomic.Bool
	phase           atomic.Int32
}

// ReadingFinished reports whether the source will produce no more records.
// Once true it stays true.
func (s *State) ReadingFinished() bool { return s.readingFinished.Load() }

// Phase returns the current phase.
func (s *State) Phase() Phase { return Phase(s.phase.Load()) }

// advance moves to next only if it is later than the current phase.
func (s *State) advance(next Phase) bool {
	for {
		cur := s.phase.Load()
		if Phase(cur) >= next {
			return false
		}
		if s.phase.CompareAndSwap(cur, int32(next)) {
			return true
		}
	}
}

// Progress is a point-in-time view of a run.
type Progress struct {
	Read            int64  `json:"read"`
	Computed        int64  `json:"computed"`
	Written         int64  `json:"written"`
	Workers         int    `json:"workers"`
	Phase           string `json:"phase"`
	ReadingFinished bool   `json:"reading_finished"`
}

// Snapshot loads the counters downstream first. Each counter only grows and a
// record is counted read before computed before written, so the snapshot
// always satisfies Written <= Computed <= Read.
func (s *State) Snapshot() Progress {
	written := s.Written.Load()
	computed := s.Computed.Load()
	read := s.Read.Load()
	return Progress{
		Read:            read,
		Computed:        computed,
		Written:         written,
		Phase:           s.Phase().String(),
		ReadingFinished: s.ReadingFinished(),
	}
}
