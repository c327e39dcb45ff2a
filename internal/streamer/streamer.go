// Package streamer turns an approved plan into an incrementally delivered,
// then finalized, reply message.
package streamer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/parlor/parlor/internal/provider"
	"github.com/parlor/parlor/internal/store"
)

// minChunkChars coalesces tiny model fragments: a chunk event is emitted once
// at least this much text is pending, or when the stream ends.
const minChunkChars = 8

// styleDirective is the embedded two-value directive an agent may use to
// retarget its own display colors, e.g. [[style:cyan black]].
var styleDirective = regexp.MustCompile(`\[\[style:([#\w]+)[ ,]+([#\w]+)\]\]`)

// ChunkFunc receives each emitted fragment for live display.
type ChunkFunc func(channelID, messageID, text string)

// Streamer aggregates provider stream fragments into finalized messages.
type Streamer struct {
	client provider.Client
	store  *store.Store
}

// New creates a Streamer.
func New(client provider.Client, st *store.Store) *Streamer {
	return &Streamer{client: client, store: st}
}

// Stream requests a streamed completion for the agent and delivers it as one
// message: a streaming placeholder is appended first, fragments are re-emitted
// via onChunk as they accumulate, and the message is finalized with the full
// text (style directive stripped) and the plan's diary snapshot. On transport
// failure the message is finalized immediately with the error flag and the
// partial content; it is never left marked streaming.
func (s *Streamer) Stream(ctx context.Context, agent *store.Agent, channelID, diary string,
	msgs []provider.Message, onChunk ChunkFunc) (*store.Message, provider.Usage, error) {

	msg := &store.Message{
		ChannelID:  channelID,
		SenderKind: store.SenderAgent,
		SenderName: agent.Name,
		Streaming:  true,
	}
	if err := s.store.AppendMessage(msg); err != nil {
		return nil, provider.Usage{}, fmt.Errorf("append streaming placeholder: %w", err)
	}

	req := &provider.CompletionRequest{
		Messages:    msgs,
		Model:       agent.Model,
		Temperature: agent.Temperature,
	}

	events, err := s.client.CompleteStream(ctx, req)
	if err != nil {
		final, ferr := s.finalize(agent, msg, "", diary, true)
		if ferr != nil {
			return nil, provider.Usage{}, ferr
		}
		return final, provider.Usage{}, fmt.Errorf("start stream: %w", err)
	}

	var content, pending strings.Builder
	var usage provider.Usage
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		text := pending.String()
		pending.Reset()
		if err := s.store.AppendStreamContent(channelID, msg.ID, text); err != nil {
			slog.Warn("Persist stream fragment failed", "message", msg.ID, "error", err)
		}
		if onChunk != nil {
			onChunk(channelID, msg.ID, text)
		}
	}

	for ev := range events {
		switch {
		case ev.Err != nil:
			flush()
			final, ferr := s.finalize(agent, msg, content.String(), diary, true)
			if ferr != nil {
				return nil, usage, ferr
			}
			return final, usage, fmt.Errorf("mid-stream: %w", ev.Err)
		case ev.Done:
			usage = ev.Usage
			flush()
			final, ferr := s.finalize(agent, msg, content.String(), diary, false)
			return final, usage, ferr
		default:
			content.WriteString(ev.Text)
			pending.WriteString(ev.Text)
			if pending.Len() >= minChunkChars {
				flush()
			}
		}
	}

	// Channel closed without a terminal event; treat as transport failure.
	flush()
	final, ferr := s.finalize(agent, msg, content.String(), diary, true)
	if ferr != nil {
		return nil, usage, ferr
	}
	return final, usage, fmt.Errorf("stream ended without terminator")
}

// finalize strips an embedded style directive, persists any new colors, and
// marks the message finished.
func (s *Streamer) finalize(agent *store.Agent, msg *store.Message, content, diary string, isError bool) (*store.Message, error) {
	visible, fg, bg := ExtractStyle(content)
	if fg != "" {
		if err := s.store.UpdateAgentStyle(agent.ID, fg, bg); err != nil {
			slog.Warn("Persist agent style failed", "agent", agent.Name, "error", err)
		} else {
			agent.StyleFG, agent.StyleBG = fg, bg
			slog.Info("Agent restyled itself", "agent", agent.Name, "fg", fg, "bg", bg)
		}
	}

	if err := s.store.FinalizeMessage(msg.ChannelID, msg.ID, visible, diary, isError); err != nil {
		return nil, fmt.Errorf("finalize message: %w", err)
	}
	msg.Content = visible
	msg.Diary = diary
	msg.Streaming = false
	msg.IsError = isError
	return msg, nil
}

// ExtractStyle removes the first style directive from text and returns the
// visible remainder plus the two color values (empty when absent).
func ExtractStyle(text string) (visible, fg, bg string) {
	m := styleDirective.FindStringSubmatch(text)
	if m == nil {
		return text, "", ""
	}
	visible = strings.TrimSpace(styleDirective.ReplaceAllString(text, ""))
	return visible, m[1], m[2]
}
