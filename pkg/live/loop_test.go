package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoopDrainRunsPostedTasks(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() {})
		}()
	}
	wg.Wait()

	if got := l.Drain(); got != 10 {
		t.Errorf("Drain() = %d, want 10", got)
	}
	if got := l.Drain(); got != 0 {
		t.Errorf("second Drain() = %d, want 0", got)
	}
}

func TestLoopDrainIncludesTasksPostedWhileDraining(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))

	ran := 0
	l.Post(func() {
		ran++
		l.Post(func() { ran++ })
	})

	if got := l.Drain(); got != 2 {
		t.Errorf("Drain() = %d, want 2", got)
	}
	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
}

func TestLoopFrameDefersNestedRequests(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))

	var order []string
	l.RequestFrame(func() {
		order = append(order, "first")
		l.RequestFrame(func() { order = append(order, "nested") })
	})

	if got := l.Frame(); got != 1 {
		t.Errorf("Frame() = %d, want 1", got)
	}
	if l.PendingFrames() != 1 {
		t.Errorf("PendingFrames() = %d, want 1", l.PendingFrames())
	}
	l.Frame()

	if diff := cmp.Diff([]string{"first", "nested"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopFrameRecoversPanics(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))

	ran := false
	l.RequestFrame(func() { panic("boom") })
	l.RequestFrame(func() { ran = true })

	if got := l.Frame(); got != 2 {
		t.Errorf("Frame() = %d, want 2", got)
	}
	if !ran {
		t.Error("callback after a panicking one did not run")
	}
}

func TestLoopTickOrder(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))

	var order []string
	l.OnFlush(func() { order = append(order, "flush") })
	l.RequestFrame(func() { order = append(order, "frame") })
	l.Post(func() { order = append(order, "task") })

	l.Tick()

	if diff := cmp.Diff([]string{"task", "flush", "frame"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopOnFlushCancel(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))

	calls := 0
	cancel := l.OnFlush(func() { calls++ })
	l.Tick()
	cancel()
	cancel()
	l.Tick()

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestLoopRunAndDo(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()), WithFrameInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	value := 0
	if err := l.Do(ctx, func() { value = 42 }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if value != 42 {
		t.Errorf("value = %d, want 42", value)
	}

	framed := make(chan struct{})
	l.Post(func() { l.RequestFrame(func() { close(framed) }) })
	select {
	case <-framed:
	case <-time.After(2 * time.Second):
		t.Fatal("frame callback did not run")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoopDoHonoursContext(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Do(ctx, func() {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestLoopDoSkipsAbandonedTasks(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	if err := l.Do(ctx, func() { ran = true }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if n := l.Drain(); n != 1 {
		t.Errorf("Drain() = %d, want 1", n)
	}
	if ran {
		t.Error("task ran after Do gave up on it")
	}
}

func TestLoopDoWaitsForStartedTask(t *testing.T) {
	l := NewLoop(WithLoopLogger(quietLogger()))
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go l.Run(runCtx)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	result := make(chan error, 1)
	go func() {
		result <- l.Do(ctx, func() {
			close(started)
			<-release
		})
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not start")
	}
	cancel()
	close(release)

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Do() error = %v, want nil for a task that ran", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return")
	}
}
