// Package ingest runs document frames through a bounded set of workers.
//
// Items are routed by key: every item with the same key goes to the same
// worker, in submission order. Readers key frames by entity id, so the
// record of one entity is only ever written by one goroutine.
package ingest

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/specialistvlad/ontograph/internal/ctxlog"
)

// queueSize is the per-worker buffer between the submitter and a worker.
const queueSize = 64

// ErrClosed is returned by Submit after Wait was called.
var ErrClosed = errors.New("ingest: pool closed")

// Handler processes one item. workerID identifies the worker for logging.
type Handler[T any] func(ctx context.Context, workerID int, item T) error

// Pool is a fixed set of workers fed by per-worker queues. The first handler
// error cancels the pool; items still queued are skipped.
//
// Submit and Wait belong to one producer goroutine.
type Pool[T any] struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	handle Handler[T]
	queues []chan T
	wg     sync.WaitGroup

	mu     sync.Mutex
	err    error
	closed bool

	processed []int
	skipped   []int
}

// Workers returns n, or the number of CPUs when n is not positive.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// New starts workers goroutines. See Workers for the default.
func New[T any](ctx context.Context, workers int, handle Handler[T]) *Pool[T] {
	workers = Workers(workers)
	inner, cancel := context.WithCancel(ctx)
	p := &Pool[T]{
		parent:    ctx,
		ctx:       inner,
		cancel:    cancel,
		handle:    handle,
		queues:    make([]chan T, workers),
		processed: make([]int, workers),
		skipped:   make([]int, workers),
	}
	for i := range p.queues {
		p.queues[i] = make(chan T, queueSize)
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int {
	return len(p.queues)
}

// partition maps key to a worker index.
func (p *Pool[T]) partition(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(p.queues)))
}

// Submit queues item on the worker owning key. It blocks while that worker's
// queue is full and fails once the pool is cancelled.
func (p *Pool[T]) Submit(key string, item T) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case <-p.ctx.Done():
		return p.failure()
	default:
	}
	select {
	case p.queues[p.partition(key)] <- item:
		return nil
	case <-p.ctx.Done():
		return p.failure()
	}
}

func (p *Pool[T]) worker(workerID int) {
	defer p.wg.Done()
	logger := ctxlog.FromContext(p.ctx).With("workerID", workerID)
	logger.Debug("Worker started.")

	for item := range p.queues[workerID] {
		if p.ctx.Err() != nil {
			p.skipped[workerID]++
			continue
		}
		if err := p.handle(p.ctx, workerID, item); err != nil {
			logger.Debug("Item failed, cancelling pool.", "error", err)
			p.fail(err)
			continue
		}
		p.processed[workerID]++
	}
	logger.Debug("Worker finished.", "processed", p.processed[workerID], "skipped", p.skipped[workerID])
}

func (p *Pool[T]) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.cancel()
}

// failure returns the first handler error, or the error of the caller's
// context when it was cancelled from outside.
func (p *Pool[T]) failure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	return p.parent.Err()
}

// Wait closes the queues, waits for every worker and returns the first
// handler error. It is the barrier after which all items are applied.
func (p *Pool[T]) Wait() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.failure()
	}
	p.closed = true
	p.mu.Unlock()

	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()

	p.cancel()
	return p.failure()
}

// Processed returns how many items were handled successfully. Call it after
// Wait.
func (p *Pool[T]) Processed() int {
	n := 0
	for _, c := range p.processed {
		n += c
	}
	return n
}

// Skipped returns how many queued items were dropped after a failure.
func (p *Pool[T]) Skipped() int {
	n := 0
	for _, c := range p.skipped {
		n += c
	}
	return n
}
