// Package ledger applies an agent's post-turn relationship state.
package ledger

import (
	"fmt"
	"log/slog"

	"github.com/parlor/parlor/internal/planner"
	"github.com/parlor/parlor/internal/store"
)

// NeutralOpinion seeds a missing relationship edge.
const NeutralOpinion = 50

// Ledger persists opinion and diary updates produced by plans.
type Ledger struct {
	store *store.Store
}

// New creates a Ledger over the given store.
func New(st *store.Store) *Ledger {
	return &Ledger{store: st}
}

// Apply overwrites the agent's opinion map and diary with the plan's final
// values. Last write wins per agent: agents are processed strictly
// sequentially within a turn, so no merging is needed.
func (l *Ledger) Apply(agent *store.Agent, plan *planner.Plan) error {
	if plan.Opinions != nil {
		agent.Opinions = plan.Opinions
	}
	if plan.Diary != "" {
		agent.Diary = plan.Diary
	}
	if err := l.store.UpdateAgentState(agent.ID, agent.Diary, agent.Opinions); err != nil {
		return fmt.Errorf("apply ledger for %s: %w", agent.Name, err)
	}
	slog.Debug("Relationship ledger applied", "agent", agent.Name, "opinions", len(agent.Opinions))
	return nil
}

// Normalize fills missing opinion edges so the relationship graph stays
// complete: every agent holds an entry for every other channel member.
// Existing entries are untouched; only absent edges are seeded.
func Normalize(agent *store.Agent, members []string) {
	if agent.Opinions == nil {
		agent.Opinions = map[string]int{}
	}
	for _, name := range members {
		if name == agent.Name {
			continue
		}
		if _, ok := agent.Opinions[name]; !ok {
			agent.Opinions[name] = NeutralOpinion
		}
	}
}
