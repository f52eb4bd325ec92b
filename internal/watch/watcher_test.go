package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte("<p></p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "other.html")

	w := New(Config{
		Path:     path,
		Debounce: 50 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	changes := make(chan Change, 8)
	w.OnChange(func(c Change) { changes <- c })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !w.Running() {
		if time.Now().After(deadline) {
			t.Fatal("watcher did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("<p>changed</p>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case c := <-changes:
		if c.Path != path {
			t.Errorf("Change.Path = %q, want %q", c.Path, path)
		}
		if c.Events < 1 {
			t.Errorf("Change.Events = %d, want at least 1", c.Events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case c := <-changes:
		t.Errorf("unexpected second change %+v", c)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
	if w.Running() {
		t.Error("Running() = true after Run returned")
	}
}

func TestWatcherMissingFile(t *testing.T) {
	w := New(Config{Path: filepath.Join(t.TempDir(), "missing.html")})
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() on a missing file should fail")
	}
}
