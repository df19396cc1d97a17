package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/demandflow/logger"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRosterFrozen is returned by Resize once reading has finished.
	ErrRosterFrozen = stderrors.New("pipeline: worker roster is frozen")
	// ErrNotRunning is returned by Resize before the pool has been started.
	ErrNotRunning = stderrors.New("pipeline: not running")
)

// workerFunc is the loop run by one worker until it returns.
type workerFunc func(ctx context.Context, id int) error

type workerHandle struct {
	id     int
	cancel context.CancelFunc
}

// Pool is a resizable set of workers. Each worker runs under its own context
// derived from the pool's parent, so cancelling the parent stops all of them
// and cancelling one handle stops only that worker.
type Pool struct {
	run    workerFunc
	onExit func(id int, err error)
	state  *State
	log    *logger.Logger

	mu     sync.Mutex
	parent context.Context
	roster []*workerHandle // oldest first
	nextID int
	group  errgroup.Group
}

func newPool(state *State, run workerFunc, onExit func(int, error), log *logger.Logger) *Pool {
	return &Pool{
		run:    run,
		onExit: onExit,
		state:  state,
		log:    log,
	}
}

// activate sets the parent context workers are started under.
func (p *Pool) activate(parent context.Context) {
	p.mu.Lock()
	p.parent = parent
	p.mu.Unlock()
}

// Size returns the number of workers currently in the roster.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.roster)
}

// IDs returns the roster's worker ids, oldest first.
func (p *Pool) IDs() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int, len(p.roster))
	for i, w := range p.roster {
		ids[i] = w.id
	}
	return ids
}

// Resize grows or shrinks the roster to n workers. Growing starts new workers;
// shrinking cancels the oldest ones without waiting for them. Calls are
// serialized, and once reading has finished the roster no longer changes.
func (p *Pool) Resize(n int) error {
	if n < 1 {
		return fmt.Errorf("pipeline: worker count must be at least 1, got %d", n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.parent == nil {
		return ErrNotRunning
	}
	if p.state.ReadingFinished() {
		return ErrRosterFrozen
	}

	cur := len(p.roster)
	switch {
	case n > cur:
		p.startLocked(n - cur)
	case n < cur:
		p.stopOldestLocked(cur - n)
	default:
		return nil
	}
	p.log.Info("worker pool resized", logger.Fields("from", cur, "to", n))
	return nil
}

// freeze sets the reading-finished latch under the roster lock so no resize
// can interleave with it.
func (p *Pool) freeze() {
	p.mu.Lock()
	p.state.readingFinished.Store(true)
	p.mu.Unlock()
}

// Wait blocks until every worker ever started has returned. It must only be
// called after freeze.
func (p *Pool) Wait() error {
	return p.group.Wait()
}

func (p *Pool) startLocked(k int) {
	for range k {
		ctx, cancel := context.WithCancel(p.parent)
		w := &workerHandle{id: p.nextID, cancel: cancel}
		p.nextID++
		p.roster = append(p.roster, w)

		p.group.Go(func() error {
			defer p.remove(w)
			defer cancel()
			err := p.run(ctx, w.id)
			p.onExit(w.id, err)
			return err
		})
	}
}

func (p *Pool) stopOldestLocked(k int) {
	victims := p.roster[:k]
	p.roster = append([]*workerHandle(nil), p.roster[k:]...)
	for _, w := range victims {
		p.log.Debug("cancelling worker", logger.Fields(logger.FieldWorker, w.id))
		w.cancel()
	}
}

func (p *Pool) remove(w *workerHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.roster {
		if h == w {
			p.roster = append(p.roster[:i], p.roster[i+1:]...)
			return
		}
	}
}
