// Package store provides sqlite persistence for channels, agents, and the
// append-only message log.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	// Best-effort migrations for existing dbs (no-op if column exists).
	_, _ = db.Exec(`ALTER TABLE agents ADD COLUMN style_fg TEXT NOT NULL DEFAULT ''`)
	_, _ = db.Exec(`ALTER TABLE agents ADD COLUMN style_bg TEXT NOT NULL DEFAULT ''`)
	_, _ = db.Exec(`ALTER TABLE channels ADD COLUMN auto_jitter_secs INTEGER NOT NULL DEFAULT 0`)

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// AppendMessage appends a message to its channel's log. A missing ID is
// assigned a fresh uuid; a zero timestamp is set to now.
func (s *Store) AppendMessage(m *Message) error {
	if m.ChannelID == "" {
		return fmt.Errorf("append message: empty channel id")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (id, channel_id, sender_kind, sender_name, content, timestamp, streaming, diary, tool_name, tool_payload, is_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ChannelID, m.SenderKind, m.SenderName, m.Content, m.Timestamp,
		m.Streaming, m.Diary, m.ToolName, m.ToolPayload, m.IsError)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// AppendStreamContent appends text to a message that is still streaming.
func (s *Store) AppendStreamContent(channelID, id, text string) error {
	res, err := s.db.Exec(`
		UPDATE messages SET content = content || ? WHERE channel_id = ? AND id = ? AND streaming = 1`,
		text, channelID, id)
	if err != nil {
		return fmt.Errorf("append stream content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("append stream content: message %s not streaming", id)
	}
	return nil
}

// FinalizeMessage marks a streaming message as finished, replacing its
// content with the aggregated text and recording the error flag.
func (s *Store) FinalizeMessage(channelID, id, content, diary string, isError bool) error {
	_, err := s.db.Exec(`
		UPDATE messages SET streaming = 0, content = ?, diary = ?, is_error = ? WHERE channel_id = ? AND id = ?`,
		content, diary, isError, channelID, id)
	if err != nil {
		return fmt.Errorf("finalize message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit finalized messages for a channel in
// chronological order. Streaming rows are excluded: a message still being
// streamed must never be served as plan context.
func (s *Store) RecentMessages(channelID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, channel_id, sender_kind, sender_name, content, timestamp, streaming, diary, tool_name, tool_payload, is_error
		FROM messages
		WHERE channel_id = ? AND streaming = 0
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.SenderKind, &m.SenderName, &m.Content,
			&m.Timestamp, &m.Streaming, &m.Diary, &m.ToolName, &m.ToolPayload, &m.IsError); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, rows.Err()
}

// GetMessage fetches a single message by channel and id.
func (s *Store) GetMessage(channelID, id string) (*Message, error) {
	var m Message
	err := s.db.QueryRow(`
		SELECT id, channel_id, sender_kind, sender_name, content, timestamp, streaming, diary, tool_name, tool_payload, is_error
		FROM messages WHERE channel_id = ? AND id = ?`, channelID, id).
		Scan(&m.ID, &m.ChannelID, &m.SenderKind, &m.SenderName, &m.Content,
			&m.Timestamp, &m.Streaming, &m.Diary, &m.ToolName, &m.ToolPayload, &m.IsError)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &m, nil
}

// DeleteMessage removes a message (explicit edit/delete path only).
func (s *Store) DeleteMessage(channelID, id string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE channel_id = ? AND id = ?`, channelID, id)
	return err
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// SaveAgent inserts or updates an agent record.
func (s *Store) SaveAgent(a *Agent) error {
	if a.ID == "" {
		return fmt.Errorf("save agent: empty id")
	}
	if a.Opinions == nil {
		a.Opinions = map[string]int{}
	}
	tools, _ := json.Marshal(a.ToolsAllow)
	opinions, _ := json.Marshal(a.Opinions)
	now := time.Now()
	_, err := s.db.Exec(`
		INSERT INTO agents (agent_id, name, persona, model, temperature, enabled, tools_allow, diary, opinions, style_fg, style_bg, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			name = excluded.name,
			persona = excluded.persona,
			model = excluded.model,
			temperature = excluded.temperature,
			enabled = excluded.enabled,
			tools_allow = excluded.tools_allow,
			diary = excluded.diary,
			opinions = excluded.opinions,
			style_fg = excluded.style_fg,
			style_bg = excluded.style_bg,
			updated_at = excluded.updated_at`,
		a.ID, a.Name, a.Persona, a.Model, a.Temperature, a.Enabled,
		string(tools), a.Diary, string(opinions), a.StyleFG, a.StyleBG, now, now)
	if err != nil {
		return fmt.Errorf("save agent: %w", err)
	}
	return nil
}

func (s *Store) scanAgent(row interface{ Scan(...any) error }) (*Agent, error) {
	var a Agent
	var tools, opinions string
	if err := row.Scan(&a.ID, &a.Name, &a.Persona, &a.Model, &a.Temperature, &a.Enabled,
		&tools, &a.Diary, &opinions, &a.StyleFG, &a.StyleBG, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tools), &a.ToolsAllow)
	_ = json.Unmarshal([]byte(opinions), &a.Opinions)
	if a.Opinions == nil {
		a.Opinions = map[string]int{}
	}
	return &a, nil
}

const agentColumns = `agent_id, name, persona, model, temperature, enabled, tools_allow, diary, opinions, style_fg, style_bg, created_at, updated_at`

// GetAgent fetches an agent by id.
func (s *Store) GetAgent(id string) (*Agent, error) {
	a, err := s.scanAgent(s.db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE agent_id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return a, nil
}

// GetAgentByName fetches an agent by display name.
func (s *Store) GetAgentByName(name string) (*Agent, error) {
	a, err := s.scanAgent(s.db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE name = ?`, name))
	if err != nil {
		return nil, fmt.Errorf("get agent named %s: %w", name, err)
	}
	return a, nil
}

// ListAgents returns all agents ordered by name.
func (s *Store) ListAgents() ([]*Agent, error) {
	rows, err := s.db.Query(`SELECT ` + agentColumns + ` FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		a, err := s.scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateAgentState overwrites an agent's diary and opinion map. The opinion
// snapshot fully supersedes the stored map; entries are never merged.
func (s *Store) UpdateAgentState(agentID, diary string, opinions map[string]int) error {
	if opinions == nil {
		opinions = map[string]int{}
	}
	blob, _ := json.Marshal(opinions)
	_, err := s.db.Exec(`UPDATE agents SET diary = ?, opinions = ?, updated_at = ? WHERE agent_id = ?`,
		diary, string(blob), time.Now(), agentID)
	if err != nil {
		return fmt.Errorf("update agent state: %w", err)
	}
	return nil
}

// UpdateAgentStyle persists an agent's self-chosen display colors.
func (s *Store) UpdateAgentStyle(agentID, fg, bg string) error {
	_, err := s.db.Exec(`UPDATE agents SET style_fg = ?, style_bg = ?, updated_at = ? WHERE agent_id = ?`,
		fg, bg, time.Now(), agentID)
	if err != nil {
		return fmt.Errorf("update agent style: %w", err)
	}
	return nil
}

// DeleteAgent removes an agent and cascades: the agent's name is purged from
// every other agent's opinion map and from every channel's member roster.
func (s *Store) DeleteAgent(id string) error {
	victim, err := s.GetAgent(id)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(`DELETE FROM agents WHERE agent_id = ?`, id); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}

	others, err := s.ListAgents()
	if err != nil {
		return err
	}
	for _, a := range others {
		if _, ok := a.Opinions[victim.Name]; !ok {
			continue
		}
		delete(a.Opinions, victim.Name)
		blob, _ := json.Marshal(a.Opinions)
		if _, err := s.db.Exec(`UPDATE agents SET opinions = ?, updated_at = ? WHERE agent_id = ?`,
			string(blob), time.Now(), a.ID); err != nil {
			return fmt.Errorf("purge opinion edge: %w", err)
		}
	}

	chans, err := s.ListChannels()
	if err != nil {
		return err
	}
	for _, ch := range chans {
		trimmed := ch.Members[:0]
		removed := false
		for _, m := range ch.Members {
			if m == victim.Name {
				removed = true
				continue
			}
			trimmed = append(trimmed, m)
		}
		if !removed {
			continue
		}
		ch.Members = trimmed
		if err := s.SaveChannel(ch); err != nil {
			return fmt.Errorf("trim membership: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Channels
// ---------------------------------------------------------------------------

// SaveChannel inserts or updates a channel record.
func (s *Store) SaveChannel(c *Channel) error {
	if c.ID == "" {
		return fmt.Errorf("save channel: empty id")
	}
	members, _ := json.Marshal(c.Members)
	now := time.Now()
	_, err := s.db.Exec(`
		INSERT INTO channels (channel_id, name, type, members, auto_enabled, auto_interval_secs, auto_jitter_secs, turn_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			members = excluded.members,
			auto_enabled = excluded.auto_enabled,
			auto_interval_secs = excluded.auto_interval_secs,
			auto_jitter_secs = excluded.auto_jitter_secs,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.Type, string(members), c.AutoEnabled,
		c.AutoIntervalSecs, c.AutoJitterSecs, c.TurnCount, now, now)
	if err != nil {
		return fmt.Errorf("save channel: %w", err)
	}
	return nil
}

// GetChannel fetches a channel by id.
func (s *Store) GetChannel(id string) (*Channel, error) {
	var c Channel
	var members string
	err := s.db.QueryRow(`
		SELECT channel_id, name, type, members, auto_enabled, auto_interval_secs, auto_jitter_secs, turn_count, created_at, updated_at
		FROM channels WHERE channel_id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Type, &members, &c.AutoEnabled,
			&c.AutoIntervalSecs, &c.AutoJitterSecs, &c.TurnCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get channel %s: %w", id, err)
	}
	_ = json.Unmarshal([]byte(members), &c.Members)
	return &c, nil
}

// ListChannels returns all channels.
func (s *Store) ListChannels() ([]*Channel, error) {
	rows, err := s.db.Query(`
		SELECT channel_id, name, type, members, auto_enabled, auto_interval_secs, auto_jitter_secs, turn_count, created_at, updated_at
		FROM channels ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var chans []*Channel
	for rows.Next() {
		var c Channel
		var members string
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &members, &c.AutoEnabled,
			&c.AutoIntervalSecs, &c.AutoJitterSecs, &c.TurnCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		_ = json.Unmarshal([]byte(members), &c.Members)
		chans = append(chans, &c)
	}
	return chans, rows.Err()
}

// ListAutoChannels returns agents-only channels with auto mode enabled.
func (s *Store) ListAutoChannels() ([]*Channel, error) {
	chans, err := s.ListChannels()
	if err != nil {
		return nil, err
	}
	out := chans[:0]
	for _, c := range chans {
		if c.Type == ChannelAuto && c.AutoEnabled {
			out = append(out, c)
		}
	}
	return out, nil
}

// IncrementTurnCount bumps a channel's running turn counter.
func (s *Store) IncrementTurnCount(channelID string) error {
	_, err := s.db.Exec(`UPDATE channels SET turn_count = turn_count + 1, updated_at = ? WHERE channel_id = ?`,
		time.Now(), channelID)
	if err != nil {
		return fmt.Errorf("increment turn count: %w", err)
	}
	return nil
}
