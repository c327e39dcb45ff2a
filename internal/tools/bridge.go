package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Result is the outcome of one tool execution. A failed call carries the
// structured error text in Output with IsError set; errors never cross this
// boundary as Go errors, so the orchestrator can append them to history as
// flagged tool-output messages.
type Result struct {
	Output  string
	IsError bool
}

// Bridge adapts the tool-invocation collaborator for the turn orchestrator.
type Bridge struct {
	invoker Invoker
	timeout time.Duration
}

// NewBridge wraps an invoker. A non-positive timeout disables the per-call
// deadline.
func NewBridge(invoker Invoker, timeout time.Duration) *Bridge {
	return &Bridge{invoker: invoker, timeout: timeout}
}

// Catalog returns the tools visible to an agent, filtered by its allow-list.
// An empty allow-list exposes the full catalog.
func (b *Bridge) Catalog(agentID string, allow []string) []Definition {
	defs := b.invoker.ListTools(agentID)
	if len(allow) == 0 {
		return defs
	}
	allowed := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowed[name] = true
	}
	out := defs[:0]
	for _, d := range defs {
		if allowed[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

// Execute runs one tool call and always returns a Result.
func (b *Bridge) Execute(ctx context.Context, name string, args map[string]any) Result {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := b.invoker.Call(ctx, name, args)
	if err != nil {
		slog.Warn("Tool execution failed", "tool", name, "error", err)
		return Result{
			Output:  fmt.Sprintf("tool %s failed: %v", name, err),
			IsError: true,
		}
	}
	slog.Debug("Tool executed", "tool", name, "duration_ms", time.Since(start).Milliseconds(), "result_length", len(output))
	return Result{Output: output}
}
