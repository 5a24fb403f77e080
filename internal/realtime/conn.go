package realtime

import (
	"context"
	"strings"
	"sync"
	"time"
)

type watermarkKey struct {
	user     string
	category string
}

// Conn is a pooled room connection. It tracks the newest message seen in
// the room and the handled watermark of each (user, category) pair.
type Conn struct {
	key  string
	room Room

	mu       sync.Mutex
	handled  map[watermarkKey]time.Time
	latest   time.Time
	subs     []Subscription
	released bool
}

func newConn(key string, room Room) *Conn {
	return &Conn{key: key, room: room, handled: make(map[watermarkKey]time.Time)}
}

// Key returns the room key.
func (c *Conn) Key() string {
	return c.key
}

// Room returns the underlying room handle.
func (c *Conn) Room() Room {
	return c.room
}

func wmKey(user, category string) watermarkKey {
	return watermarkKey{user: user, category: strings.ToLower(category)}
}

// HandledAt returns the watermark of user in category.
func (c *Conn) HandledAt(user, category string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handled[wmKey(user, category)]
}

// SetHandledAt raises the watermark of user in category to t. The watermark
// never moves backwards; the return value reports whether it changed.
func (c *Conn) SetHandledAt(user, category string, t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := wmKey(user, category)
	if !t.After(c.handled[k]) {
		return false
	}
	c.handled[k] = t
	return true
}

// Observe records msg as seen in the room.
func (c *Conn) Observe(msg Message) {
	c.mu.Lock()
	if msg.Timestamp.After(c.latest) {
		c.latest = msg.Timestamp
	}
	c.mu.Unlock()
}

// Latest returns the timestamp of the newest message observed.
func (c *Conn) Latest() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Unread reports whether a message newer than user's watermark was observed.
func (c *Conn) Unread(user, category string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest.After(c.handled[wmKey(user, category)])
}

// Backfill reads up to limit historical messages and observes them.
func (c *Conn) Backfill(ctx context.Context, limit int) ([]Message, error) {
	msgs, err := c.room.History(ctx, limit)
	if err != nil {
		return nil, &ConnectionFailure{RoomKey: c.key, Op: "history", Err: err}
	}
	for _, m := range msgs {
		c.Observe(m)
	}
	return msgs, nil
}

// Listen subscribes to live messages. Every message is observed before l
// runs. The subscription is dropped when the connection is released.
func (c *Conn) Listen(l Listener) error {
	sub, err := c.room.Subscribe(func(m Message) {
		c.Observe(m)
		if l != nil {
			l(m)
		}
	})
	if err != nil {
		return &ConnectionFailure{RoomKey: c.key, Op: "subscribe", Err: err}
	}

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		sub.Unsubscribe()
		return &ConnectionFailure{RoomKey: c.key, Op: "subscribe", Err: ErrClosed}
	}
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}

// Listeners returns the number of live subscriptions.
func (c *Conn) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// release unsubscribes every listener, detaches and releases the room.
// Calling it twice is a no-op.
func (c *Conn) release(ctx context.Context) error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	err := c.room.Detach(ctx)
	c.room.Release()
	return err
}
