package realtime

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	releaseTimeout = 5 * time.Second
	attachTimeout  = 15 * time.Second
)

// Pool is a keyed registry of room connections. It never holds two
// connections for the same key: concurrent Get calls for a key that is
// still connecting wait for the same attempt instead of dialing again.
type Pool struct {
	client Client
	log    logrus.FieldLogger

	group singleflight.Group

	mu     sync.Mutex
	conns  map[string]*Conn
	epoch  uint64 // bumped by Reset; attempts from an older epoch are discarded
	closed bool
}

// NewPool creates a pool over client. The pool does not own the client.
func NewPool(client Client, log logrus.FieldLogger) *Pool {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pool{client: client, log: log, conns: make(map[string]*Conn)}
}

// Get returns the live connection for key, creating and attaching one if
// needed.
func (p *Pool) Get(ctx context.Context, key string) (*Conn, error) {
	if key == "" {
		return nil, ErrEmptyRoomKey
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if c, ok := p.conns[key]; ok {
		p.mu.Unlock()
		return c, nil
	}
	epoch := p.epoch
	p.mu.Unlock()

	// Attempts are shared per epoch, so a Get after Reset never waits on a
	// connection that is going to be discarded. The shared attempt outlives
	// any single caller's context; a caller that gives up just stops waiting.
	ch := p.group.DoChan(strconv.FormatUint(epoch, 10)+"/"+key, func() (any, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), attachTimeout)
		defer cancel()
		return p.connect(actx, key, epoch)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Conn), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) connect(ctx context.Context, key string, epoch uint64) (*Conn, error) {
	p.mu.Lock()
	if c, ok := p.conns[key]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	room, err := p.client.Room(key)
	if err != nil {
		return nil, &ConnectionFailure{RoomKey: key, Op: "open", Err: err}
	}
	if err := room.Attach(ctx); err != nil {
		room.Release()
		return nil, &ConnectionFailure{RoomKey: key, Op: "attach", Err: err}
	}
	c := newConn(key, room)

	p.mu.Lock()
	if p.closed || p.epoch != epoch {
		p.mu.Unlock()
		p.discard(c)
		return nil, &ConnectionFailure{RoomKey: key, Op: "attach", Err: ErrPoolReset}
	}
	p.conns[key] = c
	p.mu.Unlock()

	p.log.WithField("room", key).Debug("room attached")
	return c, nil
}

// Lookup returns the connection for key without creating one.
func (p *Pool) Lookup(key string) (*Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[key]
	return c, ok
}

// Release drops the connection for key. Releasing an unknown key is a no-op.
func (p *Pool) Release(key string) {
	p.mu.Lock()
	c, ok := p.conns[key]
	delete(p.conns, key)
	p.mu.Unlock()
	if ok {
		p.discard(c)
	}
}

// Reset releases every connection. Connections still being created when
// Reset is called are discarded once they finish.
func (p *Pool) Reset() {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]*Conn)
	p.epoch++
	p.mu.Unlock()

	for _, c := range conns {
		p.discard(c)
	}
	if len(conns) > 0 {
		p.log.WithField("rooms", len(conns)).Debug("pool reset")
	}
}

// Close resets the pool and refuses further Get calls.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.Reset()
}

// Len returns the number of live connections.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Keys returns the keys of live connections, sorted.
func (p *Pool) Keys() []string {
	p.mu.Lock()
	keys := make([]string, 0, len(p.conns))
	for k := range p.conns {
		keys = append(keys, k)
	}
	p.mu.Unlock()
	slices.Sort(keys)
	return keys
}

func (p *Pool) discard(c *Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := c.release(ctx); err != nil {
		p.log.WithError(err).WithField("room", c.Key()).Warn("detaching room")
	}
}
