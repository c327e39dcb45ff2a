// Package autochat keeps agents-only channels alive by periodically
// triggering a continuation turn when a channel has been idle.
package autochat

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parlor/parlor/internal/orchestrator"
	"github.com/parlor/parlor/internal/store"
)

// TurnDriver is the slice of the orchestrator the driver needs.
type TurnDriver interface {
	TriggerAutoTurn(ctx context.Context, channelID string, cb orchestrator.Callbacks) error
}

// Config holds auto-chat settings.
type Config struct {
	Enabled       bool          `json:"enabled" envconfig:"ENABLED"`
	TickInterval  time.Duration `json:"tickInterval"`
	MaxConcurrent int           `json:"maxConcurrent"`
	LockPath      string        `json:"lockPath"`
}

// DefaultConfig returns sensible auto-chat defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Enabled:       false,
		TickInterval:  15 * time.Second,
		MaxConcurrent: 1,
		LockPath:      filepath.Join(home, ".parlor", "autochat.lock"),
	}
}

// Driver schedules continuation turns across the enabled auto channels.
type Driver struct {
	cfg       Config
	store     *store.Store
	turns     TurnDriver
	callbacks orchestrator.Callbacks
	slots     chan struct{}
	lock      *FileLock

	mu      sync.Mutex
	nextDue map[string]time.Time
}

// New creates a Driver.
func New(cfg Config, st *store.Store, turns TurnDriver, cb orchestrator.Callbacks) *Driver {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 15 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.LockPath == "" {
		cfg.LockPath = DefaultConfig().LockPath
	}
	return &Driver{
		cfg:       cfg,
		store:     st,
		turns:     turns,
		callbacks: cb,
		slots:     make(chan struct{}, cfg.MaxConcurrent),
		lock:      NewFileLock(cfg.LockPath),
		nextDue:   make(map[string]time.Time),
	}
}

// Run starts the tick loop. Blocks until context is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	slog.Info("Auto-chat started", "tick", d.cfg.TickInterval)
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Auto-chat stopped")
			return ctx.Err()
		case t := <-ticker.C:
			d.tick(ctx, t)
		}
	}
}

// tick is called every TickInterval. Acquires the cross-process lock, then
// triggers a turn on every due channel. Each fire reschedules the channel
// with fresh jitter so rooms do not fall into lockstep.
func (d *Driver) tick(ctx context.Context, now time.Time) {
	acquired, err := d.lock.TryLock()
	if err != nil {
		slog.Warn("Auto-chat lock error", "error", err)
		return
	}
	if !acquired {
		slog.Debug("Auto-chat tick skipped: lock held by another process", "holder_pid", d.lock.Holder())
		return
	}
	defer d.lock.Unlock()

	channels, err := d.store.ListAutoChannels()
	if err != nil {
		slog.Warn("Auto-chat channel listing failed", "error", err)
		return
	}

	for _, ch := range channels {
		if !d.due(ch, now) {
			continue
		}
		d.reschedule(ch, now)

		if !d.tryAcquireSlot() {
			slog.Debug("Auto-chat turn skipped: concurrency limit", "channel", ch.ID)
			continue
		}
		go func(channelID string) {
			defer d.releaseSlot()
			if err := d.turns.TriggerAutoTurn(ctx, channelID, d.callbacks); err != nil {
				slog.Warn("Auto-chat turn failed", "channel", channelID, "error", err)
			}
		}(ch.ID)
	}
}

// tryAcquireSlot claims one of the MaxConcurrent turn slots without blocking.
func (d *Driver) tryAcquireSlot() bool {
	select {
	case d.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (d *Driver) releaseSlot() {
	<-d.slots
}

// due reports whether the channel's next fire time has passed. A channel seen
// for the first time is scheduled rather than fired, so a fresh process does
// not blast every room at startup.
func (d *Driver) due(ch *store.Channel, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	at, ok := d.nextDue[ch.ID]
	if !ok {
		d.nextDue[ch.ID] = now.Add(d.interval(ch))
		return false
	}
	return !now.Before(at)
}

func (d *Driver) reschedule(ch *store.Channel, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextDue[ch.ID] = now.Add(d.interval(ch))
}

// interval is the channel's base cadence plus a uniform random jitter.
func (d *Driver) interval(ch *store.Channel) time.Duration {
	base := time.Duration(ch.AutoIntervalSecs) * time.Second
	if base <= 0 {
		base = 5 * time.Minute
	}
	if ch.AutoJitterSecs > 0 {
		base += time.Duration(rand.Intn(ch.AutoJitterSecs+1)) * time.Second
	}
	return base
}
