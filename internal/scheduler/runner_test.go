package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchensync/kitchensync/internal/engine"
	"github.com/kitchensync/kitchensync/internal/logging"
)

// fakeEngine records pass invocations and replays scripted outcomes.
type fakeEngine struct {
	mu       sync.Mutex
	calls    []string
	outcomes map[string][]engine.Outcome

	block   chan struct{} // when set, passes wait here
	blockOn string        // restrict block to one household; empty blocks all
	entered chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{outcomes: make(map[string][]engine.Outcome)}
}

func (f *fakeEngine) script(householdID string, outcomes ...engine.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[householdID] = append(f.outcomes[householdID], outcomes...)
}

func (f *fakeEngine) RunSyncPass(_ context.Context, householdID string) engine.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, householdID)
	out := engine.Success
	if q := f.outcomes[householdID]; len(q) > 0 {
		out = q[0]
		f.outcomes[householdID] = q[1:]
	}
	block, blockOn, entered := f.block, f.blockOn, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil && (blockOn == "" || blockOn == householdID) {
		<-block
	}
	return out
}

func (f *fakeEngine) passes(householdID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.calls {
		if id == householdID {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newRunner(t *testing.T, eng PassRunner, opts Options) *Runner {
	t.Helper()
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Millisecond
	}
	r := NewRunner(eng, logging.NewNop(), opts)
	r.Start(context.Background())
	t.Cleanup(r.Close)
	return r
}

func TestRunner_RunsRequestedPass(t *testing.T) {
	eng := newFakeEngine()
	r := newRunner(t, eng, Options{})

	r.RequestSync("h1")

	waitFor(t, func() bool { return eng.passes("h1") == 1 })
}

func TestRunner_IgnoresEmptyHousehold(t *testing.T) {
	eng := newFakeEngine()
	r := newRunner(t, eng, Options{})

	r.RequestSync("")
	r.RequestSync("h1")

	waitFor(t, func() bool { return eng.passes("h1") == 1 })
	assert.Zero(t, eng.passes(""))
}

func TestRunner_CoalescesRapidRequests(t *testing.T) {
	eng := newFakeEngine()
	eng.block = make(chan struct{})
	eng.entered = make(chan struct{}, 16)

	r := newRunner(t, eng, Options{})

	// First request occupies the worker.
	r.RequestSync("h1")
	<-eng.entered

	// A burst of requests while the pass runs collapses into one more pass.
	for i := 0; i < 10; i++ {
		r.RequestSync("h1")
	}

	f := eng.block
	eng.mu.Lock()
	eng.block = nil
	eng.mu.Unlock()
	close(f)

	waitFor(t, func() bool { return eng.passes("h1") == 2 })

	// Give the worker a chance to misbehave, then confirm it did not.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, eng.passes("h1"))
}

func TestRunner_StuckHouseholdDoesNotBlockOthers(t *testing.T) {
	eng := newFakeEngine()
	eng.block = make(chan struct{})
	eng.blockOn = "h1"
	eng.entered = make(chan struct{}, 16)

	r := newRunner(t, eng, Options{})

	r.RequestSync("h1")
	<-eng.entered

	// h1's pass is stuck; h2 must still get its pass through.
	r.RequestSync("h2")
	waitFor(t, func() bool { return eng.passes("h2") == 1 })
	assert.Equal(t, 1, eng.passes("h1"))

	// Unstick h1 so Close can drain the in-flight pass.
	close(eng.block)
}

func TestRunner_RetriesWithBackoff(t *testing.T) {
	eng := newFakeEngine()
	eng.script("h1", engine.Retry, engine.Retry, engine.Success)

	r := newRunner(t, eng, Options{BackoffBase: time.Millisecond, MaxAttempts: 5})
	r.RequestSync("h1")

	waitFor(t, func() bool { return eng.passes("h1") == 3 })
}

func TestRunner_GivesUpAfterMaxAttempts(t *testing.T) {
	eng := newFakeEngine()
	eng.script("h1",
		engine.Retry, engine.Retry, engine.Retry, engine.Retry)

	r := newRunner(t, eng, Options{BackoffBase: time.Millisecond, MaxAttempts: 2})
	r.RequestSync("h1")

	// 1 initial attempt + 2 retries, then the activation ends.
	waitFor(t, func() bool { return eng.passes("h1") == 3 })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, eng.passes("h1"))

	// A fresh request starts a fresh activation.
	r.RequestSync("h1")
	waitFor(t, func() bool { return eng.passes("h1") >= 4 })
}

func TestRunner_PeriodicResync(t *testing.T) {
	eng := newFakeEngine()
	r := newRunner(t, eng, Options{Interval: 20 * time.Millisecond})

	// The household becomes known through the first explicit request.
	r.RequestSync("h1")

	waitFor(t, func() bool { return eng.passes("h1") >= 3 })
}

func TestRunner_CloseStopsWorker(t *testing.T) {
	eng := newFakeEngine()
	r := NewRunner(eng, logging.NewNop(), Options{BackoffBase: time.Millisecond})
	r.Start(context.Background())

	r.RequestSync("h1")
	waitFor(t, func() bool { return eng.passes("h1") == 1 })

	r.Close()

	r.RequestSync("h1")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, eng.passes("h1"), "no passes after Close")
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(newFakeEngine(), logging.NewNop(), Options{})
	require.Equal(t, defaultBackoffBase, r.opts.BackoffBase)
	require.Equal(t, uint64(defaultMaxAttempts), r.opts.MaxAttempts)
}
