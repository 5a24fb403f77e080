package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Frame types of the websocket protocol.
const (
	frameAttach  = "attach"
	frameDetach  = "detach"
	frameHistory = "history"
	frameSend    = "send"
	frameAck     = "ack"
	frameMessage = "message"
)

// frame is one JSON message on the wire. Requests carry an id that the
// reply echoes; "message" frames are pushed by the server unprompted.
type frame struct {
	Type     string    `json:"type"`
	ID       string    `json:"id,omitempty"`
	Room     string    `json:"room,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Text     string    `json:"text,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Websocket is a Client multiplexing every room over one websocket.
type Websocket struct {
	conn *websocket.Conn
	log  logrus.FieldLogger

	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[string]chan frame
	listeners map[string]map[int]Listener
	nextSub   int
	err       error

	done      chan struct{}
	closeOnce sync.Once
}

// DialWebsocket connects to a relay at url.
func DialWebsocket(ctx context.Context, url string, header http.Header, log logrus.FieldLogger) (*Websocket, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	c := &Websocket{
		conn:      conn,
		log:       log.WithField("transport", "websocket"),
		pending:   make(map[string]chan frame),
		listeners: make(map[string]map[int]Listener),
		done:      make(chan struct{}),
	}
	go c.readPump()
	go c.pingLoop()
	return c, nil
}

// Room returns a handle on key.
func (c *Websocket) Room(key string) (Room, error) {
	if key == "" {
		return nil, ErrEmptyRoomKey
	}
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}
	return &wsRoom{client: c, key: key}, nil
}

// Close shuts the connection down. Pending requests fail with ErrClosed.
func (c *Websocket) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
		c.shutdown(ErrClosed)
	})
	return err
}

func (c *Websocket) shutdown(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.err = cause
	close(c.done)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Websocket) write(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(f)
}

// request sends f and waits for the reply with the same id.
func (c *Websocket) request(ctx context.Context, f frame) (frame, error) {
	f.ID = uuid.NewString()
	ch := make(chan frame, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		err := c.err
		c.mu.Unlock()
		return frame{}, err
	default:
	}
	c.pending[f.ID] = ch
	c.mu.Unlock()

	cleanup := func() {
		c.mu.Lock()
		delete(c.pending, f.ID)
		c.mu.Unlock()
	}

	if err := c.write(f); err != nil {
		cleanup()
		return frame{}, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return frame{}, ErrClosed
		}
		if resp.Error != "" {
			return resp, errors.New(resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		cleanup()
		return frame{}, ctx.Err()
	}
}

func (c *Websocket) readPump() {
	defer func() {
		c.conn.Close()
		c.shutdown(ErrClosed)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}
		if f.Type == frameMessage {
			c.deliver(f)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		delete(c.pending, f.ID)
		c.mu.Unlock()
		if ok {
			ch <- f
		}
	}
}

func (c *Websocket) deliver(f frame) {
	if f.Message == nil {
		return
	}
	msg := *f.Message
	if msg.RoomKey == "" {
		msg.RoomKey = f.Room
	}
	c.mu.Lock()
	ls := make([]Listener, 0, len(c.listeners[f.Room]))
	for _, l := range c.listeners[f.Room] {
		ls = append(ls, l)
	}
	c.mu.Unlock()
	for _, l := range ls {
		l(msg)
	}
}

func (c *Websocket) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Websocket) addListener(key string, l Listener) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	if c.listeners[key] == nil {
		c.listeners[key] = make(map[int]Listener)
	}
	c.listeners[key][c.nextSub] = l
	return c.nextSub
}

func (c *Websocket) removeListener(key string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners[key], id)
	if len(c.listeners[key]) == 0 {
		delete(c.listeners, key)
	}
}

type wsRoom struct {
	client *Websocket
	key    string

	mu       sync.Mutex
	attached bool
	released bool
	subs     []int
}

func (r *wsRoom) Key() string { return r.key }

func (r *wsRoom) Attach(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrClosed
	}
	if r.attached {
		return nil
	}
	if _, err := r.client.request(ctx, frame{Type: frameAttach, Room: r.key}); err != nil {
		return err
	}
	r.attached = true
	return nil
}

func (r *wsRoom) Detach(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detachLocked(ctx)
}

func (r *wsRoom) detachLocked(ctx context.Context) error {
	if !r.attached {
		return nil
	}
	r.attached = false
	for _, id := range r.subs {
		r.client.removeListener(r.key, id)
	}
	r.subs = nil
	_, err := r.client.request(ctx, frame{Type: frameDetach, Room: r.key})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (r *wsRoom) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := r.detachLocked(ctx); err != nil {
		r.client.log.WithError(err).WithField("room", r.key).Debug("detach on release")
	}
}

func (r *wsRoom) History(ctx context.Context, limit int) ([]Message, error) {
	resp, err := r.client.request(ctx, frame{Type: frameHistory, Room: r.key, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (r *wsRoom) Subscribe(l Listener) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.attached {
		return nil, ErrNotAttached
	}
	id := r.client.addListener(r.key, l)
	r.subs = append(r.subs, id)
	var once sync.Once
	return subFunc(func() {
		once.Do(func() { r.client.removeListener(r.key, id) })
	}), nil
}

func (r *wsRoom) Send(ctx context.Context, text string) error {
	_, err := r.client.request(ctx, frame{Type: frameSend, Room: r.key, Text: text})
	return err
}
