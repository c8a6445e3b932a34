package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversToUserSockets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	alice, bob := uuid.New(), uuid.New()
	a1, a2, b := NewClient(alice), NewClient(alice), NewClient(bob)
	for _, c := range []*Client{a1, a2, b} {
		if !hub.RegisterClient(c) {
			t.Fatalf("register failed")
		}
	}
	waitFor(t, func() bool { return hub.Connected(alice) && hub.Connected(bob) })

	hub.SendToUser(alice, map[string]string{"type": "new_message"})

	for _, c := range []*Client{a1, a2} {
		select {
		case raw := <-c.Send:
			var got map[string]string
			if err := json.Unmarshal(raw, &got); err != nil || got["type"] != "new_message" {
				t.Fatalf("unexpected frame %s", raw)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s got nothing", c.ID)
		}
	}
	select {
	case raw := <-b.Send:
		t.Fatalf("bob must not receive alice's frame: %s", raw)
	default:
	}

	hub.UnregisterClient(a1)
	waitFor(t, func() bool {
		select {
		case _, open := <-a1.Send:
			return !open
		default:
			return false
		}
	})
}

func TestHubStopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	c := NewClient(uuid.New())
	hub.RegisterClient(c)
	cancel()

	select {
	case _, open := <-c.Send:
		if open {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("send channel not closed after stop")
	}
	if hub.RegisterClient(NewClient(uuid.New())) {
		t.Fatalf("register after stop must fail")
	}
}

func TestNotifierPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := NewRedis(mr.Addr(), "")
	defer rdb.Close()

	uid := uuid.New()
	sub := rdb.Subscribe(context.Background(), NotificationChannel(uid))
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := &Notifier{RDB: rdb}
	if err := n.Notify(context.Background(), uid, map[string]string{"type": "new_message"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Channel != "notifications:"+uid.String() {
			t.Fatalf("unexpected channel %s", msg.Channel)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no notification received")
	}
}

func TestRelayDeliversPublishedNotifications(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := NewRedis(mr.Addr(), "")
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	uid := uuid.New()
	c := NewClient(uid)
	hub.RegisterClient(c)
	waitFor(t, func() bool { return hub.Connected(uid) })

	n := &Notifier{RDB: rdb}
	done := make(chan error, 1)
	go func() { done <- n.Relay(ctx, hub) }()

	// publish until the relay's subscription is live
	var frame []byte
	waitFor(t, func() bool {
		if err := n.Notify(ctx, uid, map[string]string{"type": "proposal.created"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
		select {
		case frame = <-c.Send:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	})
	var got map[string]string
	if err := json.Unmarshal(frame, &got); err != nil || got["type"] != "proposal.created" {
		t.Fatalf("unexpected frame %s", frame)
	}

	if err := rdb.Publish(ctx, "notifications:not-a-uuid", `{}`).Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("relay: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop")
	}
}

func TestRelayWithoutRedisReturns(t *testing.T) {
	var n *Notifier
	if n.Enabled() {
		t.Fatalf("nil notifier must be disabled")
	}
	if err := n.Relay(context.Background(), NewHub(zerolog.Nop())); err != nil {
		t.Fatalf("relay: %v", err)
	}
}
