package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedChannel(t *testing.T, st *Store, id string, members ...string) *Channel {
	t.Helper()
	ch := &Channel{ID: id, Name: id, Type: ChannelGroup, Members: members}
	if err := st.SaveChannel(ch); err != nil {
		t.Fatalf("save channel: %v", err)
	}
	return ch
}

func TestSaveAgentPersistsFullRecord(t *testing.T) {
	st := openTestStore(t)

	a := &Agent{
		ID: "a1", Name: "Ada", Persona: "sharp", Model: "m1",
		Temperature: 0.3, Enabled: true,
		ToolsAllow: []string{"current_time"},
		Diary:      "met Brutus, unimpressed",
		Opinions:   map[string]int{"Brutus": 40},
		StyleFG:    "cyan", StyleBG: "black",
	}
	if err := st.SaveAgent(a); err != nil {
		t.Fatalf("save agent: %v", err)
	}

	got, err := st.GetAgent("a1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Diary != a.Diary {
		t.Errorf("diary = %q, want %q", got.Diary, a.Diary)
	}
	if got.Persona != a.Persona || got.Model != a.Model || got.Temperature != a.Temperature {
		t.Errorf("record mangled: %+v", got)
	}
	if got.Opinions["Brutus"] != 40 || got.StyleFG != "cyan" || got.StyleBG != "black" {
		t.Errorf("state columns mangled: %+v", got)
	}
	if len(got.ToolsAllow) != 1 || got.ToolsAllow[0] != "current_time" {
		t.Errorf("tools_allow = %v", got.ToolsAllow)
	}
}

func TestAppendAndRecentMessages(t *testing.T) {
	st := openTestStore(t)
	seedChannel(t, st, "c1")

	for _, content := range []string{"one", "two", "three"} {
		if err := st.AppendMessage(&Message{ChannelID: "c1", SenderKind: SenderHuman, SenderName: "Kay", Content: content}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := st.RecentMessages("c1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	// Chronological order.
	if msgs[0].Content != "one" || msgs[2].Content != "three" {
		t.Errorf("order wrong: %q ... %q", msgs[0].Content, msgs[2].Content)
	}
}

func TestRecentMessagesExcludesStreaming(t *testing.T) {
	st := openTestStore(t)
	seedChannel(t, st, "c1")

	if err := st.AppendMessage(&Message{ChannelID: "c1", SenderKind: SenderHuman, Content: "done"}); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendMessage(&Message{ID: "s1", ChannelID: "c1", SenderKind: SenderAgent, Streaming: true}); err != nil {
		t.Fatal(err)
	}

	msgs, err := st.RecentMessages("c1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "done" {
		t.Errorf("streaming message leaked into history: %+v", msgs)
	}
}

func TestStreamAppendAndFinalize(t *testing.T) {
	st := openTestStore(t)
	seedChannel(t, st, "c1")

	if err := st.AppendMessage(&Message{ID: "m1", ChannelID: "c1", SenderKind: SenderAgent, Streaming: true}); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendStreamContent("c1", "m1", "Hello "); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendStreamContent("c1", "m1", "world"); err != nil {
		t.Fatal(err)
	}
	if err := st.FinalizeMessage("c1", "m1", "Hello world", "good chat", false); err != nil {
		t.Fatal(err)
	}

	m, err := st.GetMessage("c1", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Streaming {
		t.Error("message still marked streaming")
	}
	if m.Content != "Hello world" || m.Diary != "good chat" {
		t.Errorf("finalized state wrong: %+v", m)
	}

	// Appending to a finalized message must fail.
	if err := st.AppendStreamContent("c1", "m1", "more"); err == nil {
		t.Error("expected append to finalized message to fail")
	}
}

func TestSaveAndUpdateAgent(t *testing.T) {
	st := openTestStore(t)
	a := &Agent{ID: "a1", Name: "Ada", Persona: "sharp", Model: "m1", Enabled: true}
	if err := st.SaveAgent(a); err != nil {
		t.Fatal(err)
	}

	if err := st.UpdateAgentState("a1", "new diary", map[string]int{"Brutus": 30}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpdateAgentStyle("a1", "cyan", "black"); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetAgentByName("Ada")
	if err != nil {
		t.Fatal(err)
	}
	if got.Diary != "new diary" || got.Opinions["Brutus"] != 30 {
		t.Errorf("state not persisted: %+v", got)
	}
	if got.StyleFG != "cyan" || got.StyleBG != "black" {
		t.Errorf("style not persisted: %+v", got)
	}
}

func TestDeleteAgentCascades(t *testing.T) {
	st := openTestStore(t)
	if err := st.SaveAgent(&Agent{ID: "a1", Name: "Ada", Enabled: true, Opinions: map[string]int{"Brutus": 40}}); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveAgent(&Agent{ID: "a2", Name: "Brutus", Enabled: true, Opinions: map[string]int{"Ada": 60}}); err != nil {
		t.Fatal(err)
	}
	seedChannel(t, st, "c1", "Ada", "Brutus")

	if err := st.DeleteAgent("a2"); err != nil {
		t.Fatal(err)
	}

	ada, err := st.GetAgent("a1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ada.Opinions["Brutus"]; ok {
		t.Error("opinion edge to deleted agent survived")
	}

	ch, err := st.GetChannel("c1")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range ch.Members {
		if m == "Brutus" {
			t.Error("deleted agent still on channel roster")
		}
	}
}

func TestListAutoChannels(t *testing.T) {
	st := openTestStore(t)
	if err := st.SaveChannel(&Channel{ID: "c1", Name: "salon", Type: ChannelAuto, AutoEnabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveChannel(&Channel{ID: "c2", Name: "idle", Type: ChannelAuto, AutoEnabled: false}); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveChannel(&Channel{ID: "c3", Name: "group", Type: ChannelGroup, AutoEnabled: true}); err != nil {
		t.Fatal(err)
	}

	auto, err := st.ListAutoChannels()
	if err != nil {
		t.Fatal(err)
	}
	if len(auto) != 1 || auto[0].ID != "c1" {
		t.Errorf("auto channels = %+v", auto)
	}
}

func TestIncrementTurnCount(t *testing.T) {
	st := openTestStore(t)
	seedChannel(t, st, "c1")

	for i := 0; i < 3; i++ {
		if err := st.IncrementTurnCount("c1"); err != nil {
			t.Fatal(err)
		}
	}
	ch, err := st.GetChannel("c1")
	if err != nil {
		t.Fatal(err)
	}
	if ch.TurnCount != 3 {
		t.Errorf("turn count = %d, want 3", ch.TurnCount)
	}
}
