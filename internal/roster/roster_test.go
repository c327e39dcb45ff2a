package roster

import (
	"path/filepath"
	"testing"

	"github.com/parlor/parlor/internal/config"
	"github.com/parlor/parlor/internal/quota"
	"github.com/parlor/parlor/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func baseConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Model.Name = "default-model"
	cfg.Roster.Agents = []config.AgentSeed{
		{Name: "Ada", Persona: "sharp", Model: "m1", Temperature: 0.3},
		{Name: "Brutus", Persona: "blunt"},
	}
	cfg.Roster.Channels = []config.ChannelSeed{
		{Name: "salon", Type: store.ChannelAuto, Members: []string{"Ada", "Brutus"}, AutoEnabled: true, AutoIntervalSecs: 120},
	}
	return cfg
}

func TestSyncCreatesAgentsAndChannels(t *testing.T) {
	st := testStore(t)
	tracker := quota.NewTracker(nil)

	if err := Sync(st, baseConfig(), tracker); err != nil {
		t.Fatalf("sync: %v", err)
	}

	ada, err := st.GetAgentByName("Ada")
	if err != nil {
		t.Fatal(err)
	}
	if ada.Model != "m1" || ada.Temperature != 0.3 || !ada.Enabled {
		t.Errorf("ada = %+v", ada)
	}

	// Unset per-agent fields fall back to the model defaults.
	brutus, err := st.GetAgentByName("Brutus")
	if err != nil {
		t.Fatal(err)
	}
	if brutus.Model != "default-model" {
		t.Errorf("brutus model = %q, want default", brutus.Model)
	}

	chans, err := st.ListChannels()
	if err != nil {
		t.Fatal(err)
	}
	if len(chans) != 1 || chans[0].Name != "salon" || !chans[0].AutoEnabled {
		t.Errorf("channels = %+v", chans)
	}
}

func TestSyncPreservesAccumulatedState(t *testing.T) {
	st := testStore(t)
	tracker := quota.NewTracker(nil)
	cfg := baseConfig()

	if err := Sync(st, cfg, tracker); err != nil {
		t.Fatal(err)
	}
	ada, _ := st.GetAgentByName("Ada")
	if err := st.UpdateAgentState(ada.ID, "long memory", map[string]int{"Brutus": 12}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpdateAgentStyle(ada.ID, "cyan", "black"); err != nil {
		t.Fatal(err)
	}

	// A second sync with a changed persona keeps diary, opinions, and style.
	cfg.Roster.Agents[0].Persona = "even sharper"
	if err := Sync(st, cfg, tracker); err != nil {
		t.Fatal(err)
	}

	got, _ := st.GetAgentByName("Ada")
	if got.Persona != "even sharper" {
		t.Errorf("persona not updated: %q", got.Persona)
	}
	if got.Diary != "long memory" || got.Opinions["Brutus"] != 12 || got.StyleFG != "cyan" {
		t.Errorf("accumulated state lost: %+v", got)
	}
	if got.ID != ada.ID {
		t.Error("agent identity changed across syncs")
	}
}

func TestSyncRetiresRemovedAgents(t *testing.T) {
	st := testStore(t)
	tracker := quota.NewTracker(nil)
	cfg := baseConfig()

	if err := Sync(st, cfg, tracker); err != nil {
		t.Fatal(err)
	}

	cfg.Roster.Agents = cfg.Roster.Agents[:1] // drop Brutus
	if err := Sync(st, cfg, tracker); err != nil {
		t.Fatal(err)
	}

	brutus, err := st.GetAgentByName("Brutus")
	if err != nil {
		t.Fatal("retired agent was deleted, want disabled")
	}
	if brutus.Enabled {
		t.Error("removed agent still enabled")
	}
}
