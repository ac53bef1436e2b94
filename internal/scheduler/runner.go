package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/kitchensync/kitchensync/internal/engine"
	"github.com/kitchensync/kitchensync/internal/logging"
)

// PassRunner is the slice of the sync engine the runner drives.
type PassRunner interface {
	RunSyncPass(ctx context.Context, householdID string) engine.Outcome
}

// Options tunes the runner.
type Options struct {
	// Interval is the periodic re-sync cadence for every household the
	// runner has seen. Zero disables periodic syncing.
	Interval time.Duration

	// BackoffBase is the first delay after a Retry outcome; subsequent
	// delays grow fibonacci-style.
	BackoffBase time.Duration

	// MaxAttempts bounds retries within one activation. Exhausted attempts
	// are not an error: the household stays known and the next cadence or
	// mutation tries again.
	MaxAttempts uint64
}

const (
	defaultBackoffBase = 2 * time.Second
	defaultMaxAttempts = 5
)

var errRetryRequested = errors.New("sync pass requested retry")

// Runner is the bundled in-process scheduler: a dispatcher goroutine
// coalesces sync requests per household and runs each household's pass on its
// own goroutine, applying backoff when the engine reports Retry. Passes for
// different households run concurrently, so one household backing off never
// delays another; passes for the same household never overlap.
type Runner struct {
	engine PassRunner
	log    logging.Logger
	opts   Options

	mu      sync.Mutex
	pending map[string]struct{}
	active  map[string]struct{}
	known   map[string]struct{}

	wake chan struct{}
	done chan struct{}
	stop context.CancelFunc
}

// NewRunner returns a Runner; call Start to begin processing.
func NewRunner(eng PassRunner, log logging.Logger, opts Options) *Runner {
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Runner{
		engine:  eng,
		log:     log,
		opts:    opts,
		pending: make(map[string]struct{}),
		active:  make(map[string]struct{}),
		known:   make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// RequestSync implements SyncRequester. Requests are deduplicated by
// household: rapid mutations before a pass runs produce exactly one pass.
// Never blocks.
func (r *Runner) RequestSync(householdID string) {
	if householdID == "" {
		return
	}

	r.mu.Lock()
	r.known[householdID] = struct{}{}
	_, dup := r.pending[householdID]
	if !dup {
		r.pending[householdID] = struct{}{}
	}
	r.mu.Unlock()

	if !dup {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

// Start launches the worker. The runner stops when ctx is cancelled or Close
// is called.
func (r *Runner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.stop = cancel
	go func() {
		defer close(r.done)
		r.loop(ctx)
	}()
}

// Close stops the dispatcher and waits for in-flight passes, if any.
func (r *Runner) Close() {
	if r.stop != nil {
		r.stop()
		<-r.done
	}
}

func (r *Runner) loop(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	var tick <-chan time.Time
	if r.opts.Interval > 0 {
		ticker := time.NewTicker(r.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		case <-tick:
			r.enqueueKnown()
		}
		r.dispatch(ctx, &wg)
	}
}

// enqueueKnown schedules a periodic pass for every household seen so far.
func (r *Runner) enqueueKnown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for householdID := range r.known {
		r.pending[householdID] = struct{}{}
	}
}

// dispatch starts a pass goroutine for every claimable household. Each
// household retries and backs off on its own goroutine, so a failing
// household never holds up the queue for the others.
func (r *Runner) dispatch(ctx context.Context, wg *sync.WaitGroup) {
	for _, householdID := range r.claim() {
		wg.Add(1)
		go func(householdID string) {
			defer wg.Done()
			r.runPass(ctx, householdID)
			r.finish(householdID)
		}(householdID)
	}
}

// claim atomically moves pending households that are not already being worked
// into the active set. A household with a pass in flight stays pending and is
// claimed again when that pass finishes, so a request racing an in-flight
// pass is never lost.
func (r *Runner) claim() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var batch []string
	for householdID := range r.pending {
		if _, busy := r.active[householdID]; busy {
			continue
		}
		delete(r.pending, householdID)
		r.active[householdID] = struct{}{}
		batch = append(batch, householdID)
	}
	return batch
}

func (r *Runner) finish(householdID string) {
	r.mu.Lock()
	delete(r.active, householdID)
	r.mu.Unlock()

	// A request may have arrived while the pass ran; have the dispatcher
	// take another look at the pending set.
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) runPass(ctx context.Context, householdID string) {
	backoff := retry.WithMaxRetries(r.opts.MaxAttempts, retry.NewFibonacci(r.opts.BackoffBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if r.engine.RunSyncPass(ctx, householdID) == engine.Retry {
			return retry.RetryableError(errRetryRequested)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		// Attempts exhausted. Dirty records are intact; the next cadence
		// or mutation picks them up.
		r.log.Warn(ctx, "sync attempts exhausted", "household", householdID, "error", err)
	}
}
