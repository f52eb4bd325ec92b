package live

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChannelPushDisposesPreviousValue(t *testing.T) {
	c := NewChannel[int]()

	var log []string
	c.Subscribe(Subscriber[int]{
		Next: func(v int) func() {
			log = append(log, "next")
			return func() { log = append(log, "dispose") }
		},
	})

	c.Push(1)
	c.Push(2)

	want := []string{"next", "dispose", "next"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestChannelMulticast(t *testing.T) {
	c := NewChannel[string]()

	var a, b []string
	c.Subscribe(Subscriber[string]{Next: func(v string) func() { a = append(a, v); return nil }})
	c.Subscribe(Subscriber[string]{Next: func(v string) func() { b = append(b, v); return nil }})

	c.Push("x")
	c.Push("y")

	if diff := cmp.Diff([]string{"x", "y"}, a); diff != "" {
		t.Errorf("first subscriber (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "y"}, b); diff != "" {
		t.Errorf("second subscriber (-want +got):\n%s", diff)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestChannelUnsubscribeIdempotent(t *testing.T) {
	c := NewChannel[int]()

	completed, disposed, received := 0, 0, 0
	unsubscribe := c.Subscribe(Subscriber[int]{
		Next: func(int) func() {
			received++
			return func() { disposed++ }
		},
		Complete: func() { completed++ },
	})

	c.Push(1)
	unsubscribe()
	unsubscribe()
	c.Push(2)

	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}
	if disposed != 1 {
		t.Errorf("disposed = %d, want 1", disposed)
	}
	if received != 1 {
		t.Errorf("received = %d, want 1", received)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestChannelClose(t *testing.T) {
	c := NewChannel[int]()

	completed, disposed := 0, 0
	c.Subscribe(Subscriber[int]{
		Next:     func(int) func() { return func() { disposed++ } },
		Complete: func() { completed++ },
	})
	c.Push(1)

	c.Close()
	c.Close()

	if !c.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	if completed != 1 || disposed != 1 {
		t.Errorf("completed=%d disposed=%d, want 1 and 1", completed, disposed)
	}

	// Late subscribers complete immediately and never receive values.
	late := 0
	lateNext := 0
	c.Subscribe(Subscriber[int]{
		Next:     func(int) func() { lateNext++; return nil },
		Complete: func() { late++ },
	})
	c.Push(2)
	if late != 1 || lateNext != 0 {
		t.Errorf("late subscriber: complete=%d next=%d, want 1 and 0", late, lateNext)
	}
}

func TestChannelError(t *testing.T) {
	c := NewChannel[int]()

	var got []error
	c.Subscribe(Subscriber[int]{Error: func(err error) { got = append(got, err) }})
	c.Subscribe(Subscriber[int]{}) // no Error handler

	boom := errors.New("boom")
	c.Error(boom)
	c.Error(nil)

	if len(got) != 1 || got[0] != boom {
		t.Errorf("errors = %v, want [boom]", got)
	}
}

func TestChannelSubscribeDuringPush(t *testing.T) {
	c := NewChannel[int]()

	lateCalls := 0
	c.Subscribe(Subscriber[int]{
		Next: func(int) func() {
			c.Subscribe(Subscriber[int]{Next: func(int) func() { lateCalls++; return nil }})
			return nil
		},
	})

	c.Push(1)
	if lateCalls != 0 {
		t.Errorf("subscriber added during Push received %d values, want 0", lateCalls)
	}
}
