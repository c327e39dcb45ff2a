package store

import (
	"time"
)

// Sender kinds for messages.
const (
	SenderHuman  = "human"
	SenderAgent  = "agent"
	SenderSystem = "system"
	SenderTool   = "tool"
)

// Channel types.
const (
	ChannelGroup = "group"  // one human plus agents
	ChannelAuto  = "agents" // agents-only continuous discussion
	ChannelHuman = "human"  // human-only, no agent responders
)

// Message is a single entry in a channel's append-only log.
// A message is mutable only while Streaming is true (content append);
// after finalization it is immutable except through explicit edit/delete.
type Message struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	SenderKind  string    `json:"sender_kind"`
	SenderName  string    `json:"sender_name"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Streaming   bool      `json:"streaming"`
	Diary       string    `json:"diary,omitempty"`
	ToolName    string    `json:"tool_name,omitempty"`
	ToolPayload string    `json:"tool_payload,omitempty"`
	IsError     bool      `json:"is_error,omitempty"`
}

// Agent is a configured conversational participant.
type Agent struct {
	ID          string         `json:"agent_id"`
	Name        string         `json:"name"`
	Persona     string         `json:"persona"`
	Model       string         `json:"model"`
	Temperature float64        `json:"temperature"`
	Enabled     bool           `json:"enabled"`
	ToolsAllow  []string       `json:"tools_allow"`
	Diary       string         `json:"diary"`
	Opinions    map[string]int `json:"opinions"`
	StyleFG     string         `json:"style_fg,omitempty"`
	StyleBG     string         `json:"style_bg,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Channel is a conversation room with a fixed member roster.
type Channel struct {
	ID               string    `json:"channel_id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Members          []string  `json:"members"`
	AutoEnabled      bool      `json:"auto_enabled"`
	AutoIntervalSecs int       `json:"auto_interval_secs"`
	AutoJitterSecs   int       `json:"auto_jitter_secs"`
	TurnCount        int       `json:"turn_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const Schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	sender_kind TEXT NOT NULL,
	sender_name TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL,
	streaming BOOLEAN NOT NULL DEFAULT 0,
	diary TEXT NOT NULL DEFAULT '',
	tool_name TEXT NOT NULL DEFAULT '',
	tool_payload TEXT NOT NULL DEFAULT '',
	is_error BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (channel_id, id)
);
CREATE INDEX IF NOT EXISTS idx_messages_channel_time ON messages(channel_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_streaming ON messages(channel_id, streaming);

CREATE TABLE IF NOT EXISTS agents (
	agent_id TEXT PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	persona TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	temperature REAL NOT NULL DEFAULT 0.7,
	enabled BOOLEAN NOT NULL DEFAULT 1,
	tools_allow TEXT NOT NULL DEFAULT '[]',
	diary TEXT NOT NULL DEFAULT '',
	opinions TEXT NOT NULL DEFAULT '{}',
	style_fg TEXT NOT NULL DEFAULT '',
	style_bg TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS channels (
	channel_id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'group',
	members TEXT NOT NULL DEFAULT '[]',
	auto_enabled BOOLEAN NOT NULL DEFAULT 0,
	auto_interval_secs INTEGER NOT NULL DEFAULT 0,
	auto_jitter_secs INTEGER NOT NULL DEFAULT 0,
	turn_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
