package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process broker. It backs standalone mode, the websocket
// relay and tests.
type Memory struct {
	mu      sync.Mutex
	rooms   map[string]*memoryState
	handles int
	closed  bool
	now     func() time.Time

	// MaxHistory caps the messages kept per room. Zero keeps everything.
	MaxHistory int
}

type memoryState struct {
	messages  []Message
	listeners map[int]Listener
	nextSub   int
	attached  int
}

// NewMemory creates an empty broker.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]*memoryState), now: time.Now}
}

func (m *Memory) state(key string) *memoryState {
	s, ok := m.rooms[key]
	if !ok {
		s = &memoryState{listeners: make(map[int]Listener)}
		m.rooms[key] = s
	}
	return s
}

// Room returns a new handle on key.
func (m *Memory) Room(key string) (Room, error) {
	if key == "" {
		return nil, ErrEmptyRoomKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.handles++
	return &memoryRoom{broker: m, key: key}, nil
}

// Close drops every room and listener.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.rooms = make(map[string]*memoryState)
	return nil
}

// Publish appends msg to the room history and delivers it to listeners.
// Missing id and timestamp are filled in.
func (m *Memory) Publish(key string, msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	msg.RoomKey = key

	m.mu.Lock()
	s := m.state(key)
	s.messages = append(s.messages, msg)
	if m.MaxHistory > 0 && len(s.messages) > m.MaxHistory {
		s.messages = s.messages[len(s.messages)-m.MaxHistory:]
	}
	listeners := make([]Listener, 0, len(s.listeners))
	if s.attached > 0 {
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(msg)
	}
	return msg
}

// Attached returns how many handles are attached to key.
func (m *Memory) Attached(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rooms[key]; ok {
		return s.attached
	}
	return 0
}

// Handles returns the number of unreleased room handles.
func (m *Memory) Handles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles
}

// Listeners returns the number of live listeners on key.
func (m *Memory) Listeners(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rooms[key]; ok {
		return len(s.listeners)
	}
	return 0
}

type memoryRoom struct {
	broker *Memory
	key    string

	mu       sync.Mutex
	attached bool
	released bool
	subs     []int
}

func (r *memoryRoom) Key() string { return r.key }

func (r *memoryRoom) Attach(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrClosed
	}
	if r.attached {
		return nil
	}
	r.attached = true
	r.broker.mu.Lock()
	r.broker.state(r.key).attached++
	r.broker.mu.Unlock()
	return nil
}

func (r *memoryRoom) Detach(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachLocked()
	return nil
}

func (r *memoryRoom) detachLocked() {
	if !r.attached {
		return
	}
	r.attached = false
	r.broker.mu.Lock()
	s := r.broker.state(r.key)
	s.attached--
	for _, id := range r.subs {
		delete(s.listeners, id)
	}
	r.broker.mu.Unlock()
	r.subs = nil
}

func (r *memoryRoom) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.detachLocked()
	r.released = true
	r.broker.mu.Lock()
	r.broker.handles--
	r.broker.mu.Unlock()
}

func (r *memoryRoom) History(ctx context.Context, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.broker.mu.Lock()
	defer r.broker.mu.Unlock()
	msgs := r.broker.state(r.key).messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *memoryRoom) Subscribe(l Listener) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.attached {
		return nil, ErrNotAttached
	}
	r.broker.mu.Lock()
	s := r.broker.state(r.key)
	s.nextSub++
	id := s.nextSub
	s.listeners[id] = l
	r.broker.mu.Unlock()
	r.subs = append(r.subs, id)

	var once sync.Once
	return subFunc(func() {
		once.Do(func() {
			r.broker.mu.Lock()
			delete(r.broker.state(r.key).listeners, id)
			r.broker.mu.Unlock()
		})
	}), nil
}

func (r *memoryRoom) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.broker.Publish(r.key, Message{Text: text})
	return nil
}
