package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "courtdesk:room:"

// DefaultRedisHistory is the number of messages kept per room list.
const DefaultRedisHistory = 200

func redisChannel(key string) string { return redisKeyPrefix + key }

func redisListKey(key string) string { return redisKeyPrefix + key + ":messages" }

// Redis is a Client backed by redis: each room keeps its history in a
// capped list and fans live messages out over a pub/sub channel.
type Redis struct {
	rdb        *redis.Client
	log        logrus.FieldLogger
	maxHistory int64
	now        func() time.Time
}

// NewRedis creates a client over rdb. The caller owns rdb.
func NewRedis(rdb *redis.Client, maxHistory int, log logrus.FieldLogger) *Redis {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if maxHistory <= 0 {
		maxHistory = DefaultRedisHistory
	}
	return &Redis{rdb: rdb, log: log.WithField("transport", "redis"), maxHistory: int64(maxHistory), now: time.Now}
}

// Room returns a handle on key.
func (c *Redis) Room(key string) (Room, error) {
	if key == "" {
		return nil, ErrEmptyRoomKey
	}
	return &redisRoom{client: c, key: key}, nil
}

// Close is a no-op; the redis client belongs to the caller.
func (c *Redis) Close() error {
	return nil
}

// Publish stores msg in the room history and publishes it.
func (c *Redis) Publish(ctx context.Context, key string, msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = c.now()
	}
	msg.RoomKey = key
	data, err := json.Marshal(msg)
	if err != nil {
		return Message{}, err
	}

	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, redisListKey(key), data)
	pipe.LTrim(ctx, redisListKey(key), -c.maxHistory, -1)
	pipe.Publish(ctx, redisChannel(key), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func decodeMessages(vals []string, log logrus.FieldLogger) []Message {
	out := make([]Message, 0, len(vals))
	for _, v := range vals {
		var m Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			log.WithError(err).Warn("skipping undecodable message")
			continue
		}
		out = append(out, m)
	}
	return out
}

type redisRoom struct {
	client *Redis
	key    string

	mu       sync.Mutex
	attached bool
	released bool
	subs     []*redisSub
}

type redisSub struct {
	ps   *redis.PubSub
	once sync.Once
	done chan struct{}
}

func (s *redisSub) Unsubscribe() {
	s.once.Do(func() {
		_ = s.ps.Close()
		<-s.done
	})
}

func (r *redisRoom) Key() string { return r.key }

func (r *redisRoom) Attach(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrClosed
	}
	if r.attached {
		return nil
	}
	if err := r.client.rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	r.attached = true
	return nil
}

func (r *redisRoom) Detach(ctx context.Context) error {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.attached = false
	r.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
	return nil
}

func (r *redisRoom) Release() {
	r.mu.Lock()
	r.released = true
	r.mu.Unlock()
	_ = r.Detach(context.Background())
}

func (r *redisRoom) History(ctx context.Context, limit int) ([]Message, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	vals, err := r.client.rdb.LRange(ctx, redisListKey(r.key), start, -1).Result()
	if err != nil {
		return nil, err
	}
	return decodeMessages(vals, r.client.log), nil
}

func (r *redisRoom) Subscribe(l Listener) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.attached {
		return nil, ErrNotAttached
	}

	ctx := context.Background()
	ps := r.client.rdb.Subscribe(ctx, redisChannel(r.key))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSub{ps: ps, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for m := range ps.Channel() {
			msgs := decodeMessages([]string{m.Payload}, r.client.log)
			for _, msg := range msgs {
				l(msg)
			}
		}
	}()
	r.subs = append(r.subs, sub)
	return sub, nil
}

func (r *redisRoom) Send(ctx context.Context, text string) error {
	_, err := r.client.Publish(ctx, r.key, Message{Text: text})
	return err
}
