package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Relay serves a Memory broker over websockets using the frame protocol the
// Websocket client speaks.
type Relay struct {
	broker *Memory
	log    logrus.FieldLogger

	mu      sync.RWMutex
	clients map[*relayClient]bool
}

// NewRelay creates a relay for broker.
func NewRelay(broker *Memory, log logrus.FieldLogger) *Relay {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Relay{broker: broker, log: log.WithField("component", "relay"), clients: make(map[*relayClient]bool)}
}

// ClientCount returns the number of connected clients.
func (h *Relay) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type relayClient struct {
	relay *Relay
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]Room
	once  sync.Once
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade")
		return
	}
	client := &relayClient{
		relay: h,
		conn:  conn,
		send:  make(chan []byte, 256),
		rooms: make(map[string]Room),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.log.WithField("remote", r.RemoteAddr).Debug("client connected")

	go client.writePump()
	client.readPump()
}

func (c *relayClient) unregister() {
	c.once.Do(func() {
		c.relay.mu.Lock()
		delete(c.relay.clients, c)
		c.relay.mu.Unlock()
		for _, room := range c.rooms {
			room.Release()
		}
		close(c.send)
	})
}

func (c *relayClient) push(f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		c.relay.log.WithError(err).Error("encoding frame")
		return
	}
	defer func() {
		// send is closed once the client unregisters; late pushes are dropped.
		_ = recover()
	}()
	select {
	case c.send <- data:
	default:
		c.relay.log.Warn("client send buffer full, dropping frame")
	}
}

func (c *relayClient) readPump() {
	defer func() {
		c.unregister()
		c.conn.Close()
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
				c.relay.log.WithError(err).Debug("client read")
			}
			return
		}
		c.push(c.handle(f))
	}
}

func (c *relayClient) handle(f frame) frame {
	reply := frame{Type: frameAck, ID: f.ID, Room: f.Room}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	fail := func(err error) frame {
		reply.Error = err.Error()
		return reply
	}

	switch f.Type {
	case frameAttach:
		if _, ok := c.rooms[f.Room]; ok {
			return reply
		}
		room, err := c.relay.broker.Room(f.Room)
		if err != nil {
			return fail(err)
		}
		if err := room.Attach(ctx); err != nil {
			room.Release()
			return fail(err)
		}
		key := f.Room
		if _, err := room.Subscribe(func(m Message) {
			c.push(frame{Type: frameMessage, Room: key, Message: &m})
		}); err != nil {
			room.Release()
			return fail(err)
		}
		c.rooms[f.Room] = room

	case frameDetach:
		if room, ok := c.rooms[f.Room]; ok {
			room.Release()
			delete(c.rooms, f.Room)
		}

	case frameHistory:
		room, err := c.relay.broker.Room(f.Room)
		if err != nil {
			return fail(err)
		}
		defer room.Release()
		msgs, err := room.History(ctx, f.Limit)
		if err != nil {
			return fail(err)
		}
		reply.Type = frameHistory
		reply.Messages = msgs

	case frameSend:
		c.relay.broker.Publish(f.Room, Message{Text: f.Text})

	default:
		return fail(errUnknownFrame(f.Type))
	}
	return reply
}

type errUnknownFrame string

func (e errUnknownFrame) Error() string {
	return "unknown frame type " + string(e)
}

func (c *relayClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.relay.log.WithError(err).Debug("client write")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
