package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("PARLOR_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Name == "" || cfg.Model.MaxToolIterations <= 0 {
		t.Errorf("defaults not applied: %+v", cfg.Model)
	}
	if cfg.Paths.DBPath == "" {
		t.Error("default db path empty")
	}
}

func TestLoadReadsFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	file := map[string]any{
		"model": map[string]any{"name": "from-file", "maxTokens": 1234},
		"roster": map[string]any{
			"agents": []map[string]any{
				{"name": "Ada", "persona": "sharp"},
			},
			"channels": []map[string]any{
				{"name": "salon", "type": "agents", "members": []string{"Ada"}, "autoEnabled": true, "autoIntervalSecs": 300},
			},
		},
		"quota": map[string]any{
			"from-file": map[string]any{"requestsPerMinute": 5, "pool": "shared"},
		},
	}
	data, _ := json.Marshal(file)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PARLOR_CONFIG", path)
	t.Setenv("PARLOR_OPENAI_API_KEY", "sk-env")
	t.Setenv("PARLOR_MODEL_TEMPERATURE", "0.2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Name != "from-file" || cfg.Model.MaxTokens != 1234 {
		t.Errorf("file values lost: %+v", cfg.Model)
	}
	// Environment beats the file.
	if cfg.Providers.OpenAI.APIKey != "sk-env" {
		t.Errorf("env api key not applied: %q", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Model.Temperature != 0.2 {
		t.Errorf("env temperature not applied: %v", cfg.Model.Temperature)
	}

	if len(cfg.Roster.Agents) != 1 || cfg.Roster.Agents[0].Name != "Ada" {
		t.Errorf("roster agents = %+v", cfg.Roster.Agents)
	}
	if len(cfg.Roster.Channels) != 1 || cfg.Roster.Channels[0].AutoIntervalSecs != 300 {
		t.Errorf("roster channels = %+v", cfg.Roster.Channels)
	}
	if cfg.Quota["from-file"].RequestsPerMinute != 5 || cfg.Quota["from-file"].Pool != "shared" {
		t.Errorf("quota = %+v", cfg.Quota)
	}
}

func TestConfigPathHonorsParlorHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PARLOR_CONFIG", "")
	t.Setenv("PARLOR_HOME", dir)

	path, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, ConfigDir, ConfigFile)
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PARLOR_CONFIG", filepath.Join(dir, "nested", "config.json"))

	cfg := DefaultConfig()
	cfg.Model.Name = "round-trip"
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Model.Name != "round-trip" {
		t.Errorf("round trip lost model name: %q", loaded.Model.Name)
	}
}
