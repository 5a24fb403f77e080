// Package realtime provides chat-room pub-sub transports and a pool that
// keeps at most one live connection per room.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Errors.
var (
	ErrClosed       = errors.New("realtime client closed")
	ErrNotAttached  = errors.New("room not attached")
	ErrPoolReset    = errors.New("pool was reset while connecting")
	ErrEmptyRoomKey = errors.New("room key is required")
)

// Message is a chat message in a room.
type Message struct {
	ID        string    `json:"id"`
	RoomKey   string    `json:"room"`
	UserID    string    `json:"user_id,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives live messages. It is called from a transport goroutine
// and must not block.
type Listener func(Message)

// Subscription is a registered listener.
type Subscription interface {
	Unsubscribe()
}

// Room is a handle on one chat room.
type Room interface {
	Key() string

	// Attach starts receiving live messages for the room.
	Attach(ctx context.Context) error

	// Detach stops receiving live messages.
	Detach(ctx context.Context) error

	// Release frees the handle. It implies Detach.
	Release()

	// History returns up to limit of the most recent messages, oldest first.
	History(ctx context.Context, limit int) ([]Message, error)

	// Subscribe registers a live listener.
	Subscribe(l Listener) (Subscription, error)

	// Send publishes a message to the room.
	Send(ctx context.Context, text string) error
}

// Client hands out room handles.
type Client interface {
	Room(key string) (Room, error)
	Close() error
}

// ConnectionFailure wraps a failure to attach or subscribe to one room.
type ConnectionFailure struct {
	RoomKey string
	Op      string
	Err     error
}

func (e *ConnectionFailure) Error() string {
	return fmt.Sprintf("room %s: %s: %v", e.RoomKey, e.Op, e.Err)
}

func (e *ConnectionFailure) Unwrap() error { return e.Err }

type subFunc func()

func (f subFunc) Unsubscribe() { f() }
