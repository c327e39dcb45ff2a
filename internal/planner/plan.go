package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the decision an agent's model makes for one turn.
type Action int

const (
	ActionStaySilent Action = iota
	ActionSpeak
	ActionUseTool
)

// String returns the wire name of the action.
func (a Action) String() string {
	switch a {
	case ActionSpeak:
		return "speak"
	case ActionUseTool:
		return "use_tool"
	case ActionStaySilent:
		return "stay_silent"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction maps a wire name to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "speak":
		return ActionSpeak, nil
	case "use_tool", "tool":
		return ActionUseTool, nil
	case "stay_silent", "silent", "pass":
		return ActionStaySilent, nil
	}
	return ActionStaySilent, fmt.Errorf("unknown action %q", s)
}

// ToolCall is a tool request embedded in a plan.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Plan is the structured action decision an agent's model produces before it
// may reply. It lives only for the duration of one turn; the diary and
// opinion fields are copied into the resulting message and agent record.
type Plan struct {
	Action   Action
	Latency  int // predicted-response-latency hint, ordering heuristic only
	Tool     *ToolCall
	Filler   string // optional speak-while-tooling text
	Opinions map[string]int
	Diary    string
}

// PlanError reports that planning for one agent failed (malformed model
// output, transport failure). The orchestrator converts it into a forced
// direct reply; it never drops the agent silently.
type PlanError struct {
	AgentName string
	Cause     error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("planning failed for %s: %v", e.AgentName, e.Cause)
}

func (e *PlanError) Unwrap() error { return e.Cause }

// planPayload is the JSON contract the model answers with.
type planPayload struct {
	Action   string         `json:"action"`
	Latency  int            `json:"latency"`
	Tool     *ToolCall      `json:"tool,omitempty"`
	Filler   string         `json:"filler,omitempty"`
	Opinions map[string]int `json:"opinions"`
	Diary    string         `json:"diary"`
}

// parsePlan decodes a model answer into a Plan. It tolerates code fences and
// leading/trailing prose around the JSON object.
func parsePlan(raw string) (*Plan, error) {
	blob := extractJSONObject(raw)
	if blob == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var payload planPayload
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	action, err := ParseAction(payload.Action)
	if err != nil {
		return nil, err
	}
	if action == ActionUseTool && (payload.Tool == nil || payload.Tool.Name == "") {
		return nil, fmt.Errorf("use_tool action without a tool call")
	}

	for name, v := range payload.Opinions {
		if v < 0 {
			payload.Opinions[name] = 0
		} else if v > 100 {
			payload.Opinions[name] = 100
		}
	}
	if payload.Latency < 0 {
		payload.Latency = 0
	}

	return &Plan{
		Action:   action,
		Latency:  payload.Latency,
		Tool:     payload.Tool,
		Filler:   strings.TrimSpace(payload.Filler),
		Opinions: payload.Opinions,
		Diary:    payload.Diary,
	}, nil
}

// extractJSONObject returns the outermost {...} span of s, stripping markdown
// fences first. Returns "" when no object is present.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
