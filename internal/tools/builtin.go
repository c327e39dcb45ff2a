package tools

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const fetchBodyLimit = 16 * 1024

// RegisterBuiltins installs the default conversational tools.
func RegisterBuiltins(r *Registry) {
	r.Register(&CurrentTimeTool{})
	r.Register(&RollDiceTool{})
	r.Register(NewFetchURLTool(nil))
}

// CurrentTimeTool reports the current wall-clock time.
type CurrentTimeTool struct{}

func (t *CurrentTimeTool) Name() string { return "current_time" }

func (t *CurrentTimeTool) Description() string {
	return "Get the current date and time. Optional parameter: timezone (IANA name, e.g. Europe/Berlin)."
}

func (t *CurrentTimeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA timezone name; defaults to local time",
			},
		},
	}
}

func (t *CurrentTimeTool) Execute(_ context.Context, params map[string]any) (string, error) {
	loc := time.Local
	if tz := GetString(params, "timezone", ""); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q", tz)
		}
		loc = parsed
	}
	return time.Now().In(loc).Format("Monday, 2 Jan 2006 15:04:05 MST"), nil
}

// RollDiceTool rolls dice, for games and tie-breaking.
type RollDiceTool struct{}

func (t *RollDiceTool) Name() string { return "roll_dice" }

func (t *RollDiceTool) Description() string {
	return "Roll dice. Parameters: sides (default 6), count (default 1, max 20)."
}

func (t *RollDiceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sides": map[string]any{"type": "integer", "description": "faces per die"},
			"count": map[string]any{"type": "integer", "description": "number of dice"},
		},
	}
}

func (t *RollDiceTool) Execute(_ context.Context, params map[string]any) (string, error) {
	sides := GetInt(params, "sides", 6)
	count := GetInt(params, "count", 1)
	if sides < 2 {
		return "", fmt.Errorf("sides must be at least 2")
	}
	if count < 1 || count > 20 {
		return "", fmt.Errorf("count must be between 1 and 20")
	}

	rolls := make([]string, count)
	total := 0
	for i := range rolls {
		v := rand.Intn(sides) + 1
		total += v
		rolls[i] = fmt.Sprintf("%d", v)
	}
	if count == 1 {
		return rolls[0], nil
	}
	return fmt.Sprintf("%s (total %d)", strings.Join(rolls, ", "), total), nil
}

// FetchURLTool retrieves a web page as text.
type FetchURLTool struct {
	client *http.Client
}

// NewFetchURLTool creates the tool; a nil client uses a 20s-timeout default.
func NewFetchURLTool(client *http.Client) *FetchURLTool {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &FetchURLTool{client: client}
}

func (t *FetchURLTool) Name() string { return "fetch_url" }

func (t *FetchURLTool) Description() string {
	return "Fetch a URL via HTTP GET and return the response body (truncated to 16KB)."
}

func (t *FetchURLTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "description": "absolute http(s) URL"},
		},
		"required": []string{"url"},
	}
}

func (t *FetchURLTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	url := GetString(params, "url", "")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("url must be absolute http(s)")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return string(body), nil
}
