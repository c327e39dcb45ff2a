// Package roster reconciles the configured agents and channels into the
// store at startup.
package roster

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/parlor/parlor/internal/config"
	"github.com/parlor/parlor/internal/quota"
	"github.com/parlor/parlor/internal/store"
)

// Sync upserts every configured agent and channel, binds each agent to its
// model for quota accounting, and leaves accumulated state (diary, opinions,
// style) untouched. Agents absent from the config are disabled rather than
// deleted so their relationship history survives.
func Sync(st *store.Store, cfg *config.Config, tracker *quota.Tracker) error {
	configured := make(map[string]bool, len(cfg.Roster.Agents))

	for _, seed := range cfg.Roster.Agents {
		configured[seed.Name] = true
		model := seed.Model
		if model == "" {
			model = cfg.Model.Name
		}
		temp := seed.Temperature
		if temp == 0 {
			temp = cfg.Model.Temperature
		}

		agent, err := st.GetAgentByName(seed.Name)
		if err != nil {
			agent = &store.Agent{ID: uuid.NewString(), Name: seed.Name}
		}
		agent.Persona = seed.Persona
		agent.Model = model
		agent.Temperature = temp
		agent.ToolsAllow = seed.Tools
		agent.Enabled = !seed.Disabled
		if err := st.SaveAgent(agent); err != nil {
			return fmt.Errorf("sync agent %s: %w", seed.Name, err)
		}
		tracker.Bind(agent.ID, model)
	}

	// Agents in the store but no longer configured are retired in place.
	existing, err := st.ListAgents()
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	for _, ag := range existing {
		if configured[ag.Name] {
			continue
		}
		if ag.Enabled {
			ag.Enabled = false
			if err := st.SaveAgent(ag); err != nil {
				return fmt.Errorf("retire agent %s: %w", ag.Name, err)
			}
			slog.Info("Agent retired from roster", "agent", ag.Name)
		}
		tracker.Bind(ag.ID, ag.Model)
	}

	byName := make(map[string]*store.Channel)
	chans, err := st.ListChannels()
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	for _, ch := range chans {
		byName[ch.Name] = ch
	}

	for _, seed := range cfg.Roster.Channels {
		ch, ok := byName[seed.Name]
		if !ok {
			ch = &store.Channel{ID: uuid.NewString(), Name: seed.Name}
		}
		ch.Type = seed.Type
		ch.Members = seed.Members
		ch.AutoEnabled = seed.AutoEnabled
		ch.AutoIntervalSecs = seed.AutoIntervalSecs
		ch.AutoJitterSecs = seed.AutoJitterSecs
		if err := st.SaveChannel(ch); err != nil {
			return fmt.Errorf("sync channel %s: %w", seed.Name, err)
		}
	}

	slog.Info("Roster synced", "agents", len(cfg.Roster.Agents), "channels", len(cfg.Roster.Channels))
	return nil
}
