package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrameInterval is the frame period used by Loop.Run.
const DefaultFrameInterval = 16 * time.Millisecond

// Loop is the cooperative control thread that owns a Registry.
//
// Posted tasks and frame callbacks can be queued from any goroutine. They
// execute on whichever goroutine calls Drain, Frame, Tick or Run.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	frames []func()
	wake   chan struct{}

	// flushers run on the loop goroutine only.
	flushers []*flusher

	interval time.Duration
	logger   *slog.Logger
}

type flusher struct {
	fn func()
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFrameInterval sets the period between frames in Run.
func WithFrameInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLoopLogger sets the logger used to report recovered panics.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates an idle loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		wake:     make(chan struct{}, 1),
		interval: DefaultFrameInterval,
		logger:   slog.Default().With("component", "loop"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop goroutine and waits for it to finish. It must not
// be called from the loop goroutine itself.
//
// If ctx is done before fn starts, Do returns ctx.Err() and fn never runs.
// Once fn has started, Do waits for it to return and reports nil.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	var state atomic.Int32 // doPending, doStarted or doAbandoned
	done := make(chan struct{})
	l.Post(func() {
		if !state.CompareAndSwap(doPending, doStarted) {
			return
		}
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(doPending, doAbandoned) {
			return ctx.Err()
		}
		<-done
		return nil
	}
}

const (
	doPending int32 = iota
	doStarted
	doAbandoned
)

// RequestFrame queues fn to run on the next frame.
func (l *Loop) RequestFrame(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.frames = append(l.frames, fn)
	l.mu.Unlock()
}

// OnFlush registers fn to run on every tick between posted tasks and the
// frame. The returned function removes it.
func (l *Loop) OnFlush(fn func()) (cancel func()) {
	f := &flusher{fn: fn}
	l.flushers = append(l.flushers, f)
	return func() {
		for i, x := range l.flushers {
			if x == f {
				l.flushers = append(l.flushers[:i], l.flushers[i+1:]...)
				return
			}
		}
	}
}

// PendingFrames returns the number of callbacks waiting for the next frame.
func (l *Loop) PendingFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

// Drain runs every posted task, including tasks posted while draining, and
// returns how many ran.
func (l *Loop) Drain() int {
	ran := 0
	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		if len(tasks) == 0 {
			return ran
		}
		for _, task := range tasks {
			l.run("task", task)
			ran++
		}
	}
}

// Frame runs the callbacks queued before the call and returns how many ran.
// Callbacks requested while the frame runs wait for the next frame. A
// panicking callback is recovered and logged; the rest still run.
func (l *Loop) Frame() int {
	l.mu.Lock()
	frames := l.frames
	l.frames = nil
	l.mu.Unlock()

	for _, fn := range frames {
		l.run("frame", fn)
	}
	return len(frames)
}

// Tick drains posted tasks, runs the flush hooks and then one frame.
func (l *Loop) Tick() {
	l.Drain()
	l.flush()
	l.Frame()
}

func (l *Loop) flush() {
	flushers := make([]*flusher, len(l.flushers))
	copy(flushers, l.flushers)
	for _, f := range flushers {
		l.run("flush", f.fn)
	}
}

// Run ticks every frame interval until ctx is done. Posted tasks are picked
// up between frames as soon as they arrive.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
			l.Drain()
			l.flush()
		case <-ticker.C:
			l.Tick()
		}
	}
}

func (l *Loop) run(phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("recovered panic in loop callback",
				"phase", phase,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn()
}
