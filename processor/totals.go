package processor

import "github.com/zhubert/plural-panel/claude"

// Totals accumulates token and cost accounting for one session. It is mutated
// only by the owning Processor (single-writer, per the concurrency model);
// readers take value-copy snapshots between normalization calls.
//
// Tokens and cost never decrease mid-session. The only exceptions are the
// explicit zeroing of token counters at a compact boundary (cost is
// unaffected) and the full reset on new-session or conversation-load.
type Totals struct {
	TokensInput         int     `json:"totalTokensInput"`
	TokensOutput        int     `json:"totalTokensOutput"`
	CacheCreationTokens int     `json:"cacheCreationTokens"`
	CacheReadTokens     int     `json:"cacheReadTokens"`
	CostUSD             float64 `json:"totalCostUsd"`
	RequestCount        int     `json:"requestCount"`
}

// AddUsage folds one assistant usage block into the running totals and
// returns the per-turn input/output deltas.
func (t *Totals) AddUsage(u *claude.StreamUsage) (turnInput, turnOutput int) {
	if u == nil {
		return 0, 0
	}
	turnInput = u.InputTokens
	turnOutput = u.OutputTokens
	t.TokensInput += u.InputTokens
	t.TokensOutput += u.OutputTokens
	t.CacheCreationTokens += u.CacheCreationInputTokens
	t.CacheReadTokens += u.CacheReadInputTokens
	return turnInput, turnOutput
}

// AddCost folds one completed request's cost into the running totals.
func (t *Totals) AddCost(costUSD float64) {
	t.CostUSD += costUSD
	t.RequestCount++
}

// ResetTokens zeroes token counters at a compact boundary. Cost and request
// count are preserved — compaction changes what subsequent token deltas mean,
// not what the session has spent.
func (t *Totals) ResetTokens() {
	t.TokensInput = 0
	t.TokensOutput = 0
	t.CacheCreationTokens = 0
	t.CacheReadTokens = 0
}

// Reset zeroes everything. Called on new-session and conversation-load only.
func (t *Totals) Reset() {
	*t = Totals{}
}
