package channels

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/parlor/parlor/internal/bus"
)

// SlackConfig holds the Slack mirror settings.
type SlackConfig struct {
	Enabled   bool   `json:"enabled" envconfig:"ENABLED"`
	BotToken  string `json:"botToken" envconfig:"BOT_TOKEN"`
	ChannelID string `json:"channelId" envconfig:"CHANNEL_ID"`
}

// slackPoster is the slice of the Slack API the sink uses.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackSink mirrors finalized replies and system notices into one Slack
// channel. Chunk and busy events are intentionally dropped; Slack gets whole
// messages only.
type SlackSink struct {
	cfg    SlackConfig
	client slackPoster
}

// NewSlackSink creates the sink. A nil client builds one from the bot token.
func NewSlackSink(cfg SlackConfig, client slackPoster) *SlackSink {
	if client == nil {
		client = slack.New(cfg.BotToken)
	}
	return &SlackSink{cfg: cfg, client: client}
}

func (s *SlackSink) Name() string { return "slack" }

// Deliver posts reply and notice events as Slack messages.
func (s *SlackSink) Deliver(ctx context.Context, ev *bus.Event) error {
	var text string
	switch ev.Kind {
	case bus.EventReply:
		text = fmt.Sprintf("*%s*: %s", ev.AgentName, ev.Text)
	case bus.EventNotice:
		text = fmt.Sprintf("_%s_", ev.Text)
	default:
		return nil
	}

	_, _, err := s.client.PostMessageContext(ctx, s.cfg.ChannelID,
		slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post to slack channel %s: %w", s.cfg.ChannelID, err)
	}
	return nil
}

func (s *SlackSink) Close() error { return nil }
