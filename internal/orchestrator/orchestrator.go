// Package orchestrator resolves one triggering message into zero or more
// agent replies: parallel perception planning, latency-ordered sequential
// reply processing, bounded tool loops, and relationship updates.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/parlor/parlor/internal/ledger"
	"github.com/parlor/parlor/internal/planner"
	"github.com/parlor/parlor/internal/quota"
	"github.com/parlor/parlor/internal/store"
	"github.com/parlor/parlor/internal/streamer"
	"github.com/parlor/parlor/internal/tools"
)

const (
	defaultMaxToolIterations = 4
	defaultHistoryWindow     = 50

	// Agents whose planning failed are forced to speak, but late: the
	// fallback latency hint sorts them behind agents that planned cleanly.
	fallbackLatency = 10
)

// Options contains the collaborators for an Orchestrator.
type Options struct {
	Store             *store.Store
	Planner           *planner.Planner
	Streamer          *streamer.Streamer
	Bridge            *tools.Bridge
	Ledger            *ledger.Ledger
	Quota             *quota.Tracker
	MaxToolIterations int
	HistoryWindow     int
}

// Orchestrator is the turn-resolution state machine. The caller must not run
// two turns for the same channel concurrently; within a turn, planning fans
// out in parallel while tool execution and reply streaming stay sequential.
type Orchestrator struct {
	store         *store.Store
	planner       *planner.Planner
	streamer      *streamer.Streamer
	bridge        *tools.Bridge
	ledger        *ledger.Ledger
	quota         *quota.Tracker
	maxToolIters  int
	historyWindow int
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	maxIters := opts.MaxToolIterations
	if maxIters <= 0 {
		maxIters = defaultMaxToolIterations
	}
	window := opts.HistoryWindow
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &Orchestrator{
		store:         opts.Store,
		planner:       opts.Planner,
		streamer:      opts.Streamer,
		bridge:        opts.Bridge,
		ledger:        opts.Ledger,
		quota:         opts.Quota,
		maxToolIters:  maxIters,
		historyWindow: window,
	}
}

// ProcessTurn resolves one triggering message for a channel. The trigger is
// persisted before any agent runs, even when every agent stays silent.
func (o *Orchestrator) ProcessTurn(ctx context.Context, channelID string, trigger *store.Message, cb Callbacks) error {
	return o.processTurn(ctx, channelID, trigger, cb, "")
}

// TriggerAutoTurn synthesizes a continuation trigger for an agents-only
// channel and drives a single randomly chosen responder through the normal
// turn path. Never more than one responder per auto tick.
func (o *Orchestrator) TriggerAutoTurn(ctx context.Context, channelID string, cb Callbacks) error {
	ch, err := o.store.GetChannel(channelID)
	if err != nil {
		return err
	}
	if ch.Type != store.ChannelAuto {
		return fmt.Errorf("channel %s is not an auto-discussion channel", channelID)
	}

	eligible, err := o.eligibleAgents(ch, "")
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		return nil
	}
	pick := eligible[rand.Intn(len(eligible))]

	trigger := &store.Message{
		ChannelID:  channelID,
		SenderKind: store.SenderSystem,
		SenderName: "auto-chat",
		Content:    "The room has gone quiet. Pick up the thread and keep the discussion going.",
	}
	return o.processTurn(ctx, channelID, trigger, cb, pick.Name)
}

// resolution is one agent's planning outcome within a turn.
type resolution struct {
	agent  *store.Agent
	plan   *planner.Plan
	forced bool // planning failed: speak directly, skip the tool loop
}

func (o *Orchestrator) processTurn(ctx context.Context, channelID string, trigger *store.Message, cb Callbacks, restrictTo string) error {
	ch, err := o.store.GetChannel(channelID)
	if err != nil {
		return err
	}

	trigger.ChannelID = channelID
	if err := o.store.AppendMessage(trigger); err != nil {
		return fmt.Errorf("persist trigger: %w", err)
	}
	if trigger.SenderKind == store.SenderSystem {
		cb.notice(trigger)
	}

	eligible, err := o.eligibleAgents(ch, restrictTo)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		return nil
	}

	// Quota admission happens before fan-out; a blocked agent gets a
	// user-visible notice and sits this turn out. No automatic retry.
	admitted := eligible[:0]
	for _, ag := range eligible {
		allowed, reason := o.quota.Allowed(ag.ID)
		if allowed {
			admitted = append(admitted, ag)
			continue
		}
		o.emitNotice(cb, channelID, fmt.Sprintf("%s is rate-limited and will not respond: %s", ag.Name, reason))
	}
	if len(admitted) == 0 {
		return nil
	}

	// All admitted agents plan concurrently against one fixed history
	// snapshot. Plans are independent; no agent sees another's plan.
	snapshot, err := o.store.RecentMessages(channelID, o.historyWindow)
	if err != nil {
		return fmt.Errorf("history snapshot: %w", err)
	}

	results := make([]*resolution, len(admitted))
	var wg sync.WaitGroup
	for i, ag := range admitted {
		wg.Add(1)
		go func(i int, ag *store.Agent) {
			defer wg.Done()
			catalog := o.bridge.Catalog(ag.ID, ag.ToolsAllow)
			plan, usage, err := o.planner.Plan(ctx, ag, snapshot, trigger.SenderName, ch.Type, catalog)
			o.quota.Record(ag.ID, usage.TotalTokens)
			if err != nil {
				// A failed plan downgrades to a forced direct reply;
				// the agent is never dropped silently.
				slog.Warn("Planning failed, forcing direct reply", "agent", ag.Name, "error", err)
				results[i] = &resolution{
					agent:  ag,
					plan:   &planner.Plan{Action: planner.ActionSpeak, Latency: fallbackLatency},
					forced: true,
				}
				return
			}
			if plan.Action == planner.ActionStaySilent {
				slog.Debug("Agent staying silent", "agent", ag.Name)
				return
			}
			results[i] = &resolution{agent: ag, plan: plan}
		}(i, ag)
	}
	wg.Wait()

	var kept []*resolution
	for _, r := range results {
		if r != nil {
			kept = append(kept, r)
		}
	}

	// Ascending by latency hint. The hint is a planner-supplied heuristic,
	// never measured; the stable sort keeps snapshot order for ties.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].plan.Latency < kept[j].plan.Latency
	})

	// Strictly sequential from here so each finalized reply is visible
	// history for the next agent in the same turn.
	for _, r := range kept {
		cb.busy(r.agent.Name, true)
		o.resolveAgent(ctx, ch, trigger.SenderName, r, cb)
		cb.busy(r.agent.Name, false)
	}
	return nil
}

// resolveAgent runs one agent's bounded tool loop and streams its reply.
// Failures are scoped to this agent; the turn carries on regardless.
func (o *Orchestrator) resolveAgent(ctx context.Context, ch *store.Channel, lastSender string, r *resolution, cb Callbacks) {
	agent, plan := r.agent, r.plan
	directive := "Respond directly to the conversation now."
	if r.forced {
		directive = "You could not settle on a plan; respond directly to the conversation as best you can."
	}

	for i := 0; !r.forced && plan.Action == planner.ActionUseTool; i++ {
		// Speak-while-tooling filler is its own emission, distinct from
		// the eventual streamed reply.
		if plan.Filler != "" {
			fill := &store.Message{
				ChannelID:  ch.ID,
				SenderKind: store.SenderAgent,
				SenderName: agent.Name,
				Content:    plan.Filler,
			}
			if err := o.store.AppendMessage(fill); err != nil {
				slog.Warn("Persist filler failed", "agent", agent.Name, "error", err)
			} else {
				cb.reply(fill)
			}
		}

		o.executeTool(ctx, ch.ID, agent, plan.Tool, cb)

		// The iteration cap guarantees termination no matter what the
		// model keeps asking for.
		if i == o.maxToolIters-1 {
			slog.Warn("Tool loop cap reached, forcing direct reply", "agent", agent.Name, "iterations", o.maxToolIters)
			directive = "Stop using tools. Respond directly to the conversation now with what you have."
			break
		}

		history, err := o.store.RecentMessages(ch.ID, o.historyWindow)
		if err != nil {
			slog.Error("History reload failed", "channel", ch.ID, "error", err)
			break
		}
		catalog := o.bridge.Catalog(agent.ID, agent.ToolsAllow)
		next, usage, err := o.planner.Plan(ctx, agent, history, lastSender, ch.Type, catalog)
		o.quota.Record(agent.ID, usage.TotalTokens)
		if err != nil {
			slog.Warn("Re-planning failed, forcing direct reply", "agent", agent.Name, "error", err)
			directive = "You could not settle on a plan; respond directly to the conversation as best you can."
			break
		}
		plan = next
		if plan.Action == planner.ActionStaySilent {
			// The agent looked at its tool results and bowed out.
			return
		}
	}

	history, err := o.store.RecentMessages(ch.ID, o.historyWindow)
	if err != nil {
		slog.Error("History reload failed", "channel", ch.ID, "error", err)
		history = nil
	}
	msgs := o.planner.ReplyMessages(agent, history, directive)
	final, usage, err := o.streamer.Stream(ctx, agent, ch.ID, plan.Diary, msgs, cb.chunk)
	o.quota.Record(agent.ID, usage.TotalTokens)
	if err != nil {
		slog.Error("Reply stream failed", "agent", agent.Name, "error", err)
	}
	if final == nil {
		return
	}
	cb.reply(final)

	if err := o.ledger.Apply(agent, plan); err != nil {
		slog.Error("Ledger apply failed", "agent", agent.Name, "error", err)
	}
	if err := o.store.IncrementTurnCount(ch.ID); err != nil {
		slog.Warn("Turn counter update failed", "channel", ch.ID, "error", err)
	}
}

// executeTool appends the tool-call message, runs the call through the
// bridge, and appends the (possibly error-flagged) tool-output message. Both
// stay visible to every later planning call in this turn and beyond.
func (o *Orchestrator) executeTool(ctx context.Context, channelID string, agent *store.Agent, call *planner.ToolCall, cb Callbacks) {
	args, _ := json.Marshal(call.Arguments)
	callMsg := &store.Message{
		ChannelID:   channelID,
		SenderKind:  store.SenderTool,
		SenderName:  agent.Name,
		Content:     fmt.Sprintf("%s invokes %s %s", agent.Name, call.Name, args),
		ToolName:    call.Name,
		ToolPayload: string(args),
	}
	if err := o.store.AppendMessage(callMsg); err != nil {
		slog.Warn("Persist tool call failed", "tool", call.Name, "error", err)
	} else {
		cb.tool(callMsg)
	}

	res := o.bridge.Execute(ctx, call.Name, call.Arguments)
	outMsg := &store.Message{
		ChannelID:  channelID,
		SenderKind: store.SenderTool,
		SenderName: agent.Name,
		Content:    res.Output,
		ToolName:   call.Name,
		IsError:    res.IsError,
	}
	if err := o.store.AppendMessage(outMsg); err != nil {
		slog.Warn("Persist tool output failed", "tool", call.Name, "error", err)
		return
	}
	cb.tool(outMsg)
}

// eligibleAgents returns the enabled agents on the channel roster, with
// their opinion graphs normalized over the full membership. Human-to-human
// channels never produce responders.
func (o *Orchestrator) eligibleAgents(ch *store.Channel, restrictTo string) ([]*store.Agent, error) {
	if ch.Type == store.ChannelHuman {
		return nil, nil
	}
	all, err := o.store.ListAgents()
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	members := make(map[string]bool, len(ch.Members))
	for _, m := range ch.Members {
		members[m] = true
	}

	var eligible []*store.Agent
	for _, ag := range all {
		if !ag.Enabled || !members[ag.Name] {
			continue
		}
		if restrictTo != "" && ag.Name != restrictTo {
			continue
		}
		ledger.Normalize(ag, ch.Members)
		eligible = append(eligible, ag)
	}
	return eligible, nil
}

func (o *Orchestrator) emitNotice(cb Callbacks, channelID, text string) {
	m := &store.Message{
		ChannelID:  channelID,
		SenderKind: store.SenderSystem,
		SenderName: "parlor",
		Content:    text,
	}
	if err := o.store.AppendMessage(m); err != nil {
		slog.Warn("Persist notice failed", "error", err)
		return
	}
	cb.notice(m)
}
