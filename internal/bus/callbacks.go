package bus

import (
	"github.com/parlor/parlor/internal/orchestrator"
	"github.com/parlor/parlor/internal/store"
)

// Callbacks returns a turn callback set that republishes every turn event on
// the bus, fanning it out to all subscribed sinks.
func (b *EventBus) Callbacks() orchestrator.Callbacks {
	return orchestrator.Callbacks{
		OnReply: func(m *store.Message) {
			b.Publish(&Event{
				Kind:      EventReply,
				ChannelID: m.ChannelID,
				AgentName: m.SenderName,
				MessageID: m.ID,
				Text:      m.Content,
				Message:   m,
			})
		},
		OnReplyChunk: func(channelID, messageID, text string) {
			b.Publish(&Event{
				Kind:      EventChunk,
				ChannelID: channelID,
				MessageID: messageID,
				Text:      text,
			})
		},
		OnAgentBusy: func(agentName string, busy bool) {
			b.Publish(&Event{
				Kind:      EventBusy,
				AgentName: agentName,
				Busy:      busy,
			})
		},
		OnSystemNotice: func(m *store.Message) {
			b.Publish(&Event{
				Kind:      EventNotice,
				ChannelID: m.ChannelID,
				MessageID: m.ID,
				Text:      m.Content,
				Message:   m,
			})
		},
		OnToolEvent: func(m *store.Message) {
			b.Publish(&Event{
				Kind:      EventTool,
				ChannelID: m.ChannelID,
				AgentName: m.SenderName,
				MessageID: m.ID,
				Text:      m.Content,
				Message:   m,
			})
		},
	}
}
