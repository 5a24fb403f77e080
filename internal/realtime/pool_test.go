package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// gatedClient blocks room creation until gate is closed and counts opens.
type gatedClient struct {
	*Memory
	opens  atomic.Int32
	gate   chan struct{}
	failOn string
}

func newGatedClient() *gatedClient {
	return &gatedClient{Memory: NewMemory(), gate: make(chan struct{})}
}

func (c *gatedClient) Room(key string) (Room, error) {
	c.opens.Add(1)
	<-c.gate
	if key == c.failOn {
		return &failingRoom{key: key}, nil
	}
	return c.Memory.Room(key)
}

type failingRoom struct{ key string }

func (r *failingRoom) Key() string                              { return r.key }
func (r *failingRoom) Attach(ctx context.Context) error         { return errors.New("attach refused") }
func (r *failingRoom) Detach(ctx context.Context) error         { return nil }
func (r *failingRoom) Release()                                 {}
func (r *failingRoom) Send(ctx context.Context, _ string) error { return nil }
func (r *failingRoom) History(ctx context.Context, limit int) ([]Message, error) {
	return nil, nil
}
func (r *failingRoom) Subscribe(l Listener) (Subscription, error) {
	return nil, ErrNotAttached
}

func TestPoolGet_ConcurrentDedup(t *testing.T) {
	client := newGatedClient()
	pool := NewPool(client, quietLogger())

	const callers = 20
	conns := make([]*Conn, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conns[i], errs[i] = pool.Get(context.Background(), "room-1")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(client.gate)
	wg.Wait()

	for i := range conns {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if conns[i] != conns[0] {
			t.Fatalf("caller %d got a different connection", i)
		}
	}
	if got := client.opens.Load(); got != 1 {
		t.Errorf("room opened %d times, want 1", got)
	}
	if pool.Len() != 1 {
		t.Errorf("Len = %d, want 1", pool.Len())
	}
	if got := client.Attached("room-1"); got != 1 {
		t.Errorf("attached handles = %d, want 1", got)
	}
}

func TestPoolRelease_Idempotent(t *testing.T) {
	broker := NewMemory()
	pool := NewPool(broker, quietLogger())
	ctx := context.Background()

	c, err := pool.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := c.Listen(nil); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if broker.Listeners("room-1") != 1 {
		t.Fatalf("listeners = %d, want 1", broker.Listeners("room-1"))
	}

	pool.Release("room-1")
	pool.Release("room-1")
	pool.Release("never-created")

	if pool.Len() != 0 {
		t.Errorf("Len = %d, want 0", pool.Len())
	}
	if broker.Attached("room-1") != 0 || broker.Listeners("room-1") != 0 || broker.Handles() != 0 {
		t.Errorf("leaked: attached=%d listeners=%d handles=%d",
			broker.Attached("room-1"), broker.Listeners("room-1"), broker.Handles())
	}

	again, err := pool.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("Get after release: %v", err)
	}
	if again == c {
		t.Error("released connection was handed out again")
	}
}

func TestPoolReset(t *testing.T) {
	broker := NewMemory()
	pool := NewPool(broker, quietLogger())
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := pool.Get(ctx, key); err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
	}
	if got := pool.Keys(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Keys = %v", got)
	}

	pool.Reset()
	if pool.Len() != 0 || broker.Handles() != 0 {
		t.Errorf("after reset: len=%d handles=%d", pool.Len(), broker.Handles())
	}
	if _, err := pool.Get(ctx, "a"); err != nil {
		t.Errorf("pool unusable after reset: %v", err)
	}

	pool.Close()
	if _, err := pool.Get(ctx, "a"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close = %v, want ErrClosed", err)
	}
}

func TestPoolReset_DiscardsInFlight(t *testing.T) {
	client := newGatedClient()
	pool := NewPool(client, quietLogger())

	done := make(chan error, 1)
	go func() {
		_, err := pool.Get(context.Background(), "room-1")
		done <- err
	}()
	for client.opens.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	pool.Reset()
	close(client.gate)

	err := <-done
	if !errors.Is(err, ErrPoolReset) {
		t.Fatalf("err = %v, want ErrPoolReset", err)
	}
	if pool.Len() != 0 {
		t.Errorf("Len = %d, want 0", pool.Len())
	}
	if client.Handles() != 0 {
		t.Errorf("handles = %d, want 0", client.Handles())
	}
}

func TestPoolReset_GetAfterResetConnects(t *testing.T) {
	client := newGatedClient()
	pool := NewPool(client, quietLogger())

	stale := make(chan error, 1)
	go func() {
		_, err := pool.Get(context.Background(), "room-1")
		stale <- err
	}()
	for client.opens.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	pool.Reset()

	fresh := make(chan error, 1)
	go func() {
		_, err := pool.Get(context.Background(), "room-1")
		fresh <- err
	}()
	for client.opens.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	close(client.gate)

	if err := <-stale; !errors.Is(err, ErrPoolReset) {
		t.Errorf("stale Get err = %v, want ErrPoolReset", err)
	}
	if err := <-fresh; err != nil {
		t.Fatalf("Get after Reset: %v", err)
	}
	if pool.Len() != 1 {
		t.Errorf("Len = %d, want 1", pool.Len())
	}
	if client.Handles() != 1 {
		t.Errorf("handles = %d, want 1", client.Handles())
	}
}

func TestPoolGet_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	client := newGatedClient()
	pool := NewPool(client, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := pool.Get(ctx, "room-2")
		first <- err
	}()
	for client.opens.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	second := make(chan error, 1)
	go func() {
		_, err := pool.Get(context.Background(), "room-2")
		second <- err
	}()
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Get err = %v, want context.Canceled", err)
	}
	close(client.gate)

	if err := <-second; err != nil {
		t.Fatalf("waiting Get: %v", err)
	}
	if got := client.opens.Load(); got != 1 {
		t.Errorf("opens = %d, want 1", got)
	}
	if pool.Len() != 1 {
		t.Errorf("Len = %d, want 1", pool.Len())
	}
}

func TestPoolGet_AttachFailure(t *testing.T) {
	client := newGatedClient()
	client.failOn = "bad"
	close(client.gate)
	pool := NewPool(client, quietLogger())

	_, err := pool.Get(context.Background(), "bad")
	var cf *ConnectionFailure
	if !errors.As(err, &cf) || cf.RoomKey != "bad" || cf.Op != "attach" {
		t.Fatalf("err = %v, want attach ConnectionFailure", err)
	}
	if pool.Len() != 0 {
		t.Error("failed room registered")
	}
	if _, err := pool.Get(context.Background(), "good"); err != nil {
		t.Errorf("other room failed: %v", err)
	}
}

func TestPoolGet_EmptyKey(t *testing.T) {
	pool := NewPool(NewMemory(), quietLogger())
	if _, err := pool.Get(context.Background(), ""); !errors.Is(err, ErrEmptyRoomKey) {
		t.Errorf("err = %v, want ErrEmptyRoomKey", err)
	}
}
