package live

// Subscriber receives values pushed through a Channel.
//
// Next may return a disposer; it is called before the following Next call,
// on unsubscribe and when the channel closes.
type Subscriber[T any] struct {
	Next     func(T) func()
	Error    func(error)
	Complete func()
}

type subscription[T any] struct {
	Subscriber[T]
	dispose func()
	done    bool
}

// Channel is a multicast push/subscribe primitive without buffering or
// replay. It is not goroutine-safe.
type Channel[T any] struct {
	subs   []*subscription[T]
	closed bool
}

// NewChannel creates an open channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Subscribe registers s. The returned function removes the subscriber and
// calls its Complete; calling it again has no effect. Subscribing to a
// closed channel completes immediately.
func (c *Channel[T]) Subscribe(s Subscriber[T]) (unsubscribe func()) {
	sub := c.subscribe(s)
	return func() { c.unsubscribe(sub) }
}

func (c *Channel[T]) subscribe(s Subscriber[T]) *subscription[T] {
	sub := &subscription[T]{Subscriber: s}
	if c.closed {
		sub.done = true
		if s.Complete != nil {
			s.Complete()
		}
		return sub
	}
	c.subs = append(c.subs, sub)
	return sub
}

func (c *Channel[T]) unsubscribe(sub *subscription[T]) {
	if sub.done {
		return
	}
	sub.done = true
	for i, x := range c.subs {
		if x == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	sub.release()
	if sub.Complete != nil {
		sub.Complete()
	}
}

// Push delivers v to every live subscriber. Push on a closed channel is a
// no-op.
func (c *Channel[T]) Push(v T) {
	if c.closed {
		return
	}
	for _, sub := range c.snapshot() {
		c.deliver(sub, v)
	}
}

// deliver pushes v to a single subscriber.
func (c *Channel[T]) deliver(sub *subscription[T], v T) {
	if sub.done || c.closed {
		return
	}
	sub.release()
	if sub.Next != nil {
		sub.dispose = sub.Next(v)
	}
}

// Error delivers err to every live subscriber.
func (c *Channel[T]) Error(err error) {
	if c.closed || err == nil {
		return
	}
	for _, sub := range c.snapshot() {
		if !sub.done && sub.Error != nil {
			sub.Error(err)
		}
	}
}

// Close completes every subscriber and permanently closes the channel.
func (c *Channel[T]) Close() {
	if c.closed {
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	for _, sub := range subs {
		if sub.done {
			continue
		}
		sub.done = true
		sub.release()
		if sub.Complete != nil {
			sub.Complete()
		}
	}
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	return c.closed
}

// Len returns the number of live subscribers.
func (c *Channel[T]) Len() int {
	return len(c.subs)
}

func (c *Channel[T]) snapshot() []*subscription[T] {
	subs := make([]*subscription[T], len(c.subs))
	copy(subs, c.subs)
	return subs
}

func (s *subscription[T]) release() {
	if d := s.dispose; d != nil {
		s.dispose = nil
		d()
	}
}
