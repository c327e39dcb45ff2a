package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parlor/parlor/internal/autochat"
	"github.com/parlor/parlor/internal/bus"
	"github.com/parlor/parlor/internal/channels"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run headless: auto-chat channels plus outbound sinks",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	printHeader("🛰️ Parlor Serve")

	rt, err := buildRuntime()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.New()
	go eventBus.Dispatch(ctx)

	if rt.cfg.Sinks.Slack.Enabled {
		channels.Attach(ctx, eventBus, channels.NewSlackSink(rt.cfg.Sinks.Slack, nil))
	}
	if rt.cfg.Sinks.Kafka.Enabled {
		sink := channels.NewKafkaSink(rt.cfg.Sinks.Kafka, nil)
		defer sink.Close()
		channels.Attach(ctx, eventBus, sink)
	}

	if !rt.cfg.AutoChat.Enabled {
		fmt.Println("Auto-chat is disabled; serving sinks only. Ctrl-C to stop.")
		<-ctx.Done()
		return
	}

	driver := autochat.New(rt.cfg.AutoChat, rt.store, rt.orch, eventBus.Callbacks())
	if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("Auto-chat error: %v\n", err)
		os.Exit(1)
	}
}
