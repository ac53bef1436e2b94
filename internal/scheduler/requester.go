// Package scheduler owns the boundary between the mutation layer and the
// synchronization engine: mutations request a sync pass and return
// immediately; the bundled runner coalesces requests per household, runs
// passes in the background and retries with backoff when the engine reports
// a retryable outcome.
package scheduler

// SyncRequester is what the mutation layer sees: a fire-and-forget request
// to reconcile one household soon. Implementations must deduplicate rapid
// requests for the same household.
type SyncRequester interface {
	RequestSync(householdID string)
}

// NopRequester ignores every request. Useful in tests.
type NopRequester struct{}

func (NopRequester) RequestSync(string) {}
