package orchestrator

import (
	"github.com/parlor/parlor/internal/store"
)

// Callbacks is the observer set for one turn. Every field is optional.
type Callbacks struct {
	// OnReply delivers each finalized message authored during the turn.
	OnReply func(*store.Message)
	// OnReplyChunk delivers incremental fragments of a streaming reply.
	OnReplyChunk func(channelID, messageID, text string)
	// OnAgentBusy signals that an agent started or finished resolving.
	OnAgentBusy func(agentName string, busy bool)
	// OnSystemNotice delivers system-authored messages (quota notices,
	// auto-chat triggers).
	OnSystemNotice func(*store.Message)
	// OnToolEvent delivers tool-call and tool-output messages.
	OnToolEvent func(*store.Message)
}

func (c Callbacks) reply(m *store.Message) {
	if c.OnReply != nil {
		c.OnReply(m)
	}
}

func (c Callbacks) chunk(channelID, messageID, text string) {
	if c.OnReplyChunk != nil {
		c.OnReplyChunk(channelID, messageID, text)
	}
}

func (c Callbacks) busy(agentName string, busy bool) {
	if c.OnAgentBusy != nil {
		c.OnAgentBusy(agentName, busy)
	}
}

func (c Callbacks) notice(m *store.Message) {
	if c.OnSystemNotice != nil {
		c.OnSystemNotice(m)
	}
}

func (c Callbacks) tool(m *store.Message) {
	if c.OnToolEvent != nil {
		c.OnToolEvent(m)
	}
}
