// Package planner asks an agent's model to choose one action for the current
// turn and to hand back its updated relationship state.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/parlor/parlor/internal/provider"
	"github.com/parlor/parlor/internal/store"
	"github.com/parlor/parlor/internal/tools"
)

// DefaultHistoryWindow bounds the transcript handed to the model.
const DefaultHistoryWindow = 40

// Planner builds perception prompts and parses the resulting plans.
type Planner struct {
	client        provider.Client
	historyWindow int
}

// New creates a Planner backed by the given LLM client.
func New(client provider.Client) *Planner {
	return &Planner{client: client, historyWindow: DefaultHistoryWindow}
}

// Plan asks the agent's model for exactly one action given the channel
// context. Unparseable or failed model output surfaces as a *PlanError; the
// returned usage is reported even on parse failure so quota accounting stays
// honest.
func (p *Planner) Plan(ctx context.Context, agent *store.Agent, history []store.Message,
	lastSender, channelType string, catalog []tools.Definition) (*Plan, provider.Usage, error) {

	req := &provider.CompletionRequest{
		Messages: []provider.Message{
			{Role: "system", Content: p.buildSystemPrompt(agent, channelType, catalog)},
			{Role: "user", Content: p.buildUserPrompt(agent, history, lastSender)},
		},
		Model:       agent.Model,
		Temperature: agent.Temperature,
		ForceJSON:   true,
	}

	resp, err := p.client.CompleteStructured(ctx, req)
	if err != nil {
		return nil, provider.Usage{}, &PlanError{AgentName: agent.Name, Cause: err}
	}

	plan, err := parsePlan(resp.Content)
	if err != nil {
		return nil, resp.Usage, &PlanError{AgentName: agent.Name, Cause: err}
	}
	return plan, resp.Usage, nil
}

// ReplyMessages assembles the prompt context for the final streamed reply.
// The directive tells the model how to speak (normal reply, post-tool reply,
// or the forced fallback when planning failed).
func (p *Planner) ReplyMessages(agent *store.Agent, history []store.Message, directive string) []provider.Message {
	var sb strings.Builder
	sb.WriteString("You are ")
	sb.WriteString(agent.Name)
	sb.WriteString(".\n\n")
	sb.WriteString(agent.Persona)
	sb.WriteString("\n\n")
	if agent.Diary != "" {
		sb.WriteString("# Your private diary\n")
		sb.WriteString(agent.Diary)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Reply in character with a single conversational message. ")
	sb.WriteString("Do not prefix your name; do not produce JSON.\n")
	sb.WriteString("You may change your own display colors by embedding [[style:FG BG]] anywhere in the reply.")

	user := renderTranscript(tail(history, p.historyWindow)) + "\n\n" + directive
	return []provider.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: user},
	}
}

func (p *Planner) buildSystemPrompt(agent *store.Agent, channelType string, catalog []tools.Definition) string {
	var sb strings.Builder
	sb.WriteString("You are ")
	sb.WriteString(agent.Name)
	sb.WriteString(", one participant in a multi-party chat")
	if channelType == store.ChannelAuto {
		sb.WriteString(" between autonomous agents (no human present)")
	}
	sb.WriteString(".\n\n")
	sb.WriteString(agent.Persona)
	sb.WriteString("\n\n")

	if agent.Diary != "" {
		sb.WriteString("# Your private diary\n")
		sb.WriteString(agent.Diary)
		sb.WriteString("\n\n")
	}

	if len(agent.Opinions) > 0 {
		sb.WriteString("# Your current opinions of the participants (0-100)\n")
		for name, v := range agent.Opinions {
			fmt.Fprintf(&sb, "- %s: %d\n", name, v)
		}
		sb.WriteString("\n")
	}

	if len(catalog) > 0 {
		sb.WriteString("# Tools available to you\n")
		for _, d := range catalog {
			fmt.Fprintf(&sb, "- %s: %s\n", d.Name, d.Description)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`# Decide your next move
Answer with exactly one JSON object, nothing else:
{
  "action": "speak" | "use_tool" | "stay_silent",
  "latency": <seconds you would plausibly take to answer, integer>,
  "tool": {"name": "...", "arguments": {...}},   // only when action is use_tool
  "filler": "...",                               // optional short remark while your tool runs
  "opinions": {"<participant>": <0-100>, ...},   // your FULL updated opinion map
  "diary": "..."                                 // your full updated diary
}
The opinions object replaces your previous opinions entirely; include every participant.
Stay silent when you have nothing worth adding.`)
	return sb.String()
}

func (p *Planner) buildUserPrompt(agent *store.Agent, history []store.Message, lastSender string) string {
	var sb strings.Builder
	sb.WriteString("# Recent conversation\n")
	sb.WriteString(renderTranscript(tail(history, p.historyWindow)))
	sb.WriteString("\n\n")
	if lastSender != "" {
		fmt.Fprintf(&sb, "The last message is from %s. ", lastSender)
	}
	sb.WriteString("Decide your action now.")
	return sb.String()
}

// renderTranscript flattens messages into prompt text. Tool traffic is
// rendered as a fenced block so the model can tell it apart from speech.
func renderTranscript(msgs []store.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		switch m.SenderKind {
		case store.SenderTool:
			label := m.ToolName
			if m.IsError {
				label += " ERROR"
			}
			fmt.Fprintf(&sb, "[tool:%s]\n%s\n[/tool]\n", label, m.Content)
		case store.SenderSystem:
			fmt.Fprintf(&sb, "(system) %s\n", m.Content)
		default:
			fmt.Fprintf(&sb, "%s: %s\n", m.SenderName, m.Content)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func tail(msgs []store.Message, n int) []store.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
