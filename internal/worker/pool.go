package worker

import (
	"errors"
	"sync"

	"github.com/aprsa/phoebe-lab/internal/logging"
)

const defaultWorkers = 4

// ErrBusy is returned when a key already has an outstanding task. The
// rejected task is not queued; the caller decides whether to surface the
// rejection or silently drop it.
var ErrBusy = errors.New("task already in flight")

// Result pairs a finished task's key with its outcome. Exactly one Result
// is delivered per accepted task.
type Result struct {
	Key   string
	Value any
	Err   error
}

// Pool runs remote operations on a bounded set of goroutines. At most one
// task per key is outstanding at a time; duplicate submissions are
// rejected immediately. Accepted tasks always run to completion, there is
// no cancellation.
type Pool struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	tasks    chan submission
	results  chan Result
	wg       sync.WaitGroup
	closed   bool
	logger   logging.Logger
}

type submission struct {
	key string
	fn  func() (any, error)
}

func NewPool(workers int, logger logging.Logger) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = logging.Nop()
	}
	p := &Pool{
		inFlight: map[string]struct{}{},
		tasks:    make(chan submission, workers),
		results:  make(chan Result, workers),
		logger:   logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for sub := range p.tasks {
		value, err := sub.fn()
		p.mu.Lock()
		delete(p.inFlight, sub.key)
		p.mu.Unlock()
		if err != nil {
			p.logger.Warn("task_failed", logging.F("key", sub.key), logging.F("error", err.Error()))
		}
		p.results <- Result{Key: sub.key, Value: value, Err: err}
	}
}

// TrySubmit schedules fn under key. It returns ErrBusy if a task with the
// same key is still outstanding, blocking only while all workers are busy
// and the queue is full.
func (p *Pool) TrySubmit(key string, fn func() (any, error)) error {
	if key == "" {
		return errors.New("task key is required")
	}
	if fn == nil {
		return errors.New("task fn is required")
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("pool is closed")
	}
	if _, ok := p.inFlight[key]; ok {
		p.mu.Unlock()
		return ErrBusy
	}
	p.inFlight[key] = struct{}{}
	p.mu.Unlock()

	p.tasks <- submission{key: key, fn: fn}
	return nil
}

// Busy reports whether key has an outstanding task.
func (p *Pool) Busy(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inFlight[key]
	return ok
}

// Results is the channel task outcomes arrive on. The UI event loop is
// the single consumer.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting submissions, waits for outstanding tasks, and
// closes the results channel. Undelivered results are drained so workers
// blocked on a full buffer can finish even when the consumer is gone.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.tasks)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	for {
		select {
		case res := <-p.results:
			p.logger.Debug("result_dropped", logging.F("key", res.Key))
		case <-done:
			close(p.results)
			return
		}
	}
}
