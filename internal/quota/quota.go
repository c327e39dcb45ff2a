// Package quota tracks rolling LLM usage per model and enforces admission
// caps before an agent may take a turn.
package quota

import (
	"fmt"
	"sync"
	"time"
)

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour
)

// Limits holds the caps for one model. A zero cap means unlimited for that
// dimension. Models sharing a non-empty Pool key share one budget across
// every agent bound to any model in the pool.
type Limits struct {
	RequestsPerMinute int    `json:"requestsPerMinute"`
	TokensPerMinute   int    `json:"tokensPerMinute"`
	RequestsPerDay    int    `json:"requestsPerDay"`
	Pool              string `json:"pool,omitempty"`
}

type usageEntry struct {
	at     time.Time
	tokens int
}

// Tracker is the rolling usage ledger. Windows are computed on read from raw
// timestamped entries; nothing is pre-aggregated. Entries older than the day
// window are dropped on every write, which bounds memory without a separate
// compaction pass.
type Tracker struct {
	mu       sync.Mutex
	limits   map[string]Limits       // model -> caps
	bindings map[string]string       // agent id -> model
	entries  map[string][]usageEntry // agent id -> usage
	now      func() time.Time
}

// NewTracker creates a Tracker for the given per-model limits. Models absent
// from the map are unmonitored and always allowed.
func NewTracker(limits map[string]Limits) *Tracker {
	if limits == nil {
		limits = map[string]Limits{}
	}
	return &Tracker{
		limits:   limits,
		bindings: make(map[string]string),
		entries:  make(map[string][]usageEntry),
		now:      time.Now,
	}
}

// Bind associates an agent with the model it calls. Quota decisions for the
// agent are made against that model's caps (or its pool's).
func (t *Tracker) Bind(agentID, model string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindings[agentID] = model
}

// Allowed reports whether the agent may make a request right now. The reason
// names the exhausted cap when denied. Unconfigured models fail open.
func (t *Tracker) Allowed(agentID string) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	model := t.bindings[agentID]
	lim, configured := t.limits[model]
	if !configured {
		return true, ""
	}

	now := t.now()
	var reqMinute, tokMinute, reqDay int
	for _, id := range t.scopeLocked(model, lim.Pool) {
		for _, e := range t.entries[id] {
			age := now.Sub(e.at)
			if age >= dayWindow {
				continue
			}
			reqDay++
			if age < minuteWindow {
				reqMinute++
				tokMinute += e.tokens
			}
		}
	}

	switch {
	case lim.RequestsPerMinute > 0 && reqMinute >= lim.RequestsPerMinute:
		return false, fmt.Sprintf("requests-per-minute cap reached (%d/%d)", reqMinute, lim.RequestsPerMinute)
	case lim.TokensPerMinute > 0 && tokMinute >= lim.TokensPerMinute:
		return false, fmt.Sprintf("tokens-per-minute cap reached (%d/%d)", tokMinute, lim.TokensPerMinute)
	case lim.RequestsPerDay > 0 && reqDay >= lim.RequestsPerDay:
		return false, fmt.Sprintf("requests-per-day cap reached (%d/%d)", reqDay, lim.RequestsPerDay)
	}
	return true, ""
}

// Record appends one request's usage for the agent and prunes entries that
// have aged out of the day window. Pruning never touches younger entries.
func (t *Tracker) Record(agentID string, tokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	kept := t.entries[agentID][:0]
	for _, e := range t.entries[agentID] {
		if now.Sub(e.at) < dayWindow {
			kept = append(kept, e)
		}
	}
	t.entries[agentID] = append(kept, usageEntry{at: now, tokens: tokens})
}

// scopeLocked returns the agent ids whose usage counts against the given
// model's budget: every agent bound to the model itself, or, for pooled
// models, to any model in the same pool. Caller holds the mutex.
func (t *Tracker) scopeLocked(model, pool string) []string {
	var ids []string
	for id, m := range t.bindings {
		if m == model {
			ids = append(ids, id)
			continue
		}
		if pool != "" {
			if other, ok := t.limits[m]; ok && other.Pool == pool {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
