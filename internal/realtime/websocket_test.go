package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func startRelay(t *testing.T) (*Memory, *Relay, string) {
	t.Helper()
	broker := NewMemory()
	relay := NewRelay(broker, quietLogger())
	srv := httptest.NewServer(relay)
	t.Cleanup(srv.Close)
	return broker, relay, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebsocketRoundTrip(t *testing.T) {
	broker, _, url := startRelay(t)
	broker.Publish("court-1", Message{Text: "earlier", Timestamp: t0})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := DialWebsocket(ctx, url, nil, quietLogger())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	pool := NewPool(client, quietLogger())
	defer pool.Close()

	conn, err := pool.Get(ctx, "court-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	msgs, err := conn.Backfill(ctx, 10)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "earlier" {
		t.Fatalf("history = %+v", msgs)
	}

	got := make(chan Message, 4)
	if err := conn.Listen(func(m Message) { got <- m }); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	if err := conn.Room().Send(ctx, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case m := <-got:
		if m.Text != "hello" || m.RoomKey != "court-1" {
			t.Errorf("message = %+v", m)
		}
	case <-ctx.Done():
		t.Fatal("live message not delivered")
	}

	pool.Release("court-1")
	deadline := time.Now().Add(2 * time.Second)
	for broker.Attached("court-1") != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := broker.Attached("court-1"); n != 0 {
		t.Errorf("relay still attached %d handle(s) after release", n)
	}
}

func TestWebsocketClosedClient(t *testing.T) {
	_, _, url := startRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := DialWebsocket(ctx, url, nil, quietLogger())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	room, err := client.Room("r")
	if err != nil {
		t.Fatalf("Room: %v", err)
	}
	client.Close()

	if err := room.Attach(ctx); err == nil {
		t.Error("attach on a closed client succeeded")
	}
	if _, err := client.Room("r"); err != ErrClosed {
		t.Errorf("Room after close = %v, want ErrClosed", err)
	}
}

func TestRedisKeys(t *testing.T) {
	if got := redisChannel("abc"); got != "courtdesk:room:abc" {
		t.Errorf("channel = %s", got)
	}
	if got := redisListKey("abc"); got != "courtdesk:room:abc:messages" {
		t.Errorf("list key = %s", got)
	}
}

func TestDecodeMessages_SkipsGarbage(t *testing.T) {
	vals := []string{
		`{"id":"1","room":"r","text":"hi","timestamp":"2025-03-14T09:00:00Z"}`,
		`not json`,
	}
	msgs := decodeMessages(vals, quietLogger())
	if len(msgs) != 1 || msgs[0].Text != "hi" || !msgs[0].Timestamp.Equal(t0) {
		t.Errorf("decoded = %+v", msgs)
	}
}
