package planner

import (
	"strings"
	"testing"

	"github.com/parlor/parlor/internal/store"
	"github.com/parlor/parlor/internal/tools"
)

func TestRenderTranscript(t *testing.T) {
	msgs := []store.Message{
		{SenderKind: store.SenderHuman, SenderName: "Kay", Content: "what time is it?"},
		{SenderKind: store.SenderTool, SenderName: "Ada", ToolName: "current_time", Content: "Monday, 2 Jun 2025 12:00:00 UTC"},
		{SenderKind: store.SenderTool, SenderName: "Ada", ToolName: "fetch_url", Content: "tool fetch_url failed: timeout", IsError: true},
		{SenderKind: store.SenderSystem, SenderName: "parlor", Content: "Ada is rate-limited"},
		{SenderKind: store.SenderAgent, SenderName: "Ada", Content: "It is noon."},
	}

	out := renderTranscript(msgs)

	for _, want := range []string{
		"Kay: what time is it?",
		"[tool:current_time]\nMonday",
		"[tool:fetch_url ERROR]\ntool fetch_url failed",
		"(system) Ada is rate-limited",
		"Ada: It is noon.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
}

func TestTail(t *testing.T) {
	msgs := make([]store.Message, 10)
	for i := range msgs {
		msgs[i].Content = strings.Repeat("x", i+1)
	}
	got := tail(msgs, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Content != msgs[7].Content {
		t.Error("tail did not keep the newest messages")
	}
	if len(tail(msgs, 50)) != 10 {
		t.Error("tail over-trimmed a short slice")
	}
}

func TestBuildSystemPromptMentionsToolsAndOpinions(t *testing.T) {
	p := New(nil)
	agent := &store.Agent{
		Name:     "Ada",
		Persona:  "A sharp-tongued mathematician.",
		Diary:    "Brutus keeps interrupting me.",
		Opinions: map[string]int{"Brutus": 12},
	}
	catalog := []tools.Definition{{Name: "roll_dice", Description: "Roll dice."}}
	prompt := p.buildSystemPrompt(agent, store.ChannelGroup, catalog)

	for _, want := range []string{"Ada", "mathematician", "Brutus: 12", "roll_dice", "stay_silent"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestReplyMessagesCarriesDirectiveAndStyleHint(t *testing.T) {
	p := New(nil)
	agent := &store.Agent{Name: "Ada", Persona: "Sharp."}
	history := []store.Message{{SenderKind: store.SenderHuman, SenderName: "Kay", Content: "hi"}}

	msgs := p.ReplyMessages(agent, history, "Stop using tools. Respond directly.")
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "[[style:FG BG]]") {
		t.Error("system prompt missing style capability hint")
	}
	if !strings.Contains(msgs[1].Content, "Stop using tools") {
		t.Error("user prompt missing directive")
	}
	if !strings.Contains(msgs[1].Content, "Kay: hi") {
		t.Error("user prompt missing transcript")
	}
}
