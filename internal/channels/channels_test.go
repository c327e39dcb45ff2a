package channels

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/slack-go/slack"

	"github.com/parlor/parlor/internal/bus"
)

type fakePoster struct {
	posted []string
	err    error
}

func (f *fakePoster) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.posted = append(f.posted, channelID)
	return channelID, "ts", nil
}

func TestSlackSinkForwardsRepliesAndNotices(t *testing.T) {
	poster := &fakePoster{}
	sink := NewSlackSink(SlackConfig{Enabled: true, ChannelID: "C123"}, poster)

	events := []*bus.Event{
		{Kind: bus.EventReply, AgentName: "Ada", Text: "hello"},
		{Kind: bus.EventNotice, Text: "Ada is rate-limited"},
		{Kind: bus.EventChunk, Text: "frag"},
		{Kind: bus.EventBusy, AgentName: "Ada", Busy: true},
	}
	for _, ev := range events {
		if err := sink.Deliver(context.Background(), ev); err != nil {
			t.Fatalf("deliver %s: %v", ev.Kind, err)
		}
	}

	// Only replies and notices reach Slack.
	if len(poster.posted) != 2 {
		t.Errorf("posted %d messages, want 2", len(poster.posted))
	}
}

func TestSlackSinkSurfacesAPIError(t *testing.T) {
	poster := &fakePoster{err: errors.New("channel_not_found")}
	sink := NewSlackSink(SlackConfig{ChannelID: "C404"}, poster)

	err := sink.Deliver(context.Background(), &bus.Event{Kind: bus.EventReply, Text: "hi"})
	if err == nil || !strings.Contains(err.Error(), "C404") {
		t.Errorf("err = %v, want wrapped channel id", err)
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSinkPublishesEnvelopesKeyedByChannel(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(KafkaConfig{Topic: "parlor-events"}, w)

	err := sink.Deliver(context.Background(), &bus.Event{
		Kind:      bus.EventReply,
		ChannelID: "c1",
		AgentName: "Ada",
		Text:      "hello",
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "c1" {
		t.Errorf("key = %q, want channel id", w.msgs[0].Key)
	}
	var ev bus.Event
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("envelope not JSON: %v", err)
	}
	if ev.Kind != bus.EventReply || ev.AgentName != "Ada" {
		t.Errorf("envelope = %+v", ev)
	}
}

func TestKafkaSinkSkipsChunks(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(KafkaConfig{}, w)

	if err := sink.Deliver(context.Background(), &bus.Event{Kind: bus.EventChunk, Text: "frag"}); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 0 {
		t.Errorf("chunk event published: %+v", w.msgs)
	}

	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestAttachLogsButSwallowsSinkErrors(t *testing.T) {
	b := bus.New()
	sink := NewSlackSink(SlackConfig{ChannelID: "C1"}, &fakePoster{err: errors.New("down")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Attach(ctx, b, sink)
	go b.Dispatch(ctx)

	// Must not panic or block the dispatcher.
	b.Publish(&bus.Event{Kind: bus.EventReply, ChannelID: "c1", Text: "x"})
	b.Publish(&bus.Event{Kind: bus.EventReply, ChannelID: "c1", Text: "y"})
}
