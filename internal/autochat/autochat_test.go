package autochat

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parlor/parlor/internal/orchestrator"
	"github.com/parlor/parlor/internal/store"
)

type fakeTurns struct {
	fired atomic.Int32
}

func (f *fakeTurns) TriggerAutoTurn(context.Context, string, orchestrator.Callbacks) error {
	f.fired.Add(1)
	return nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.SaveChannel(&store.Channel{
		ID: "c1", Name: "salon", Type: store.ChannelAuto,
		AutoEnabled: true, AutoIntervalSecs: 60,
	}); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestFirstTickSchedulesInsteadOfFiring(t *testing.T) {
	st := testStore(t)
	turns := &fakeTurns{}
	d := New(Config{LockPath: filepath.Join(t.TempDir(), "lock")}, st, turns, orchestrator.Callbacks{})

	now := time.Now()
	d.tick(context.Background(), now)
	if turns.fired.Load() != 0 {
		t.Fatal("channel fired on first sight")
	}

	// Not yet due.
	d.tick(context.Background(), now.Add(30*time.Second))
	if turns.fired.Load() != 0 {
		t.Fatal("channel fired before its interval elapsed")
	}

	// Past the 60s interval.
	d.tick(context.Background(), now.Add(61*time.Second))
	waitFor(t, func() bool { return turns.fired.Load() == 1 })
}

func TestRescheduleAfterFire(t *testing.T) {
	st := testStore(t)
	turns := &fakeTurns{}
	d := New(Config{LockPath: filepath.Join(t.TempDir(), "lock")}, st, turns, orchestrator.Callbacks{})

	now := time.Now()
	d.tick(context.Background(), now)
	d.tick(context.Background(), now.Add(61*time.Second))
	waitFor(t, func() bool { return turns.fired.Load() == 1 })

	// Immediately after a fire the channel is rescheduled, not due again.
	d.tick(context.Background(), now.Add(62*time.Second))
	time.Sleep(50 * time.Millisecond)
	if turns.fired.Load() != 1 {
		t.Errorf("fired %d times, want 1", turns.fired.Load())
	}
}

func TestLockPreventsConcurrentDrivers(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "lock")

	l1 := NewFileLock(lockPath)
	ok, err := l1.TryLock()
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	defer l1.Unlock()

	l2 := NewFileLock(lockPath)
	ok, err = l2.TryLock()
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if ok {
		t.Fatal("second process acquired a held lock")
	}
	if pid := l2.Holder(); pid != os.Getpid() {
		t.Errorf("holder pid = %d, want %d", pid, os.Getpid())
	}
}

func TestTurnSlotsLimitConcurrency(t *testing.T) {
	st := testStore(t)
	d := New(Config{MaxConcurrent: 2, LockPath: filepath.Join(t.TempDir(), "lock")}, st, &fakeTurns{}, orchestrator.Callbacks{})

	if !d.tryAcquireSlot() || !d.tryAcquireSlot() {
		t.Fatal("could not fill turn slots")
	}
	if d.tryAcquireSlot() {
		t.Fatal("over-acquired past MaxConcurrent")
	}
	d.releaseSlot()
	if !d.tryAcquireSlot() {
		t.Fatal("slot not reusable after release")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met within 1s")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
