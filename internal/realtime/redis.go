package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func NewRedis(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

const notificationPrefix = "notifications:"

// NotificationChannel is the pub/sub channel carrying a user's notifications.
func NotificationChannel(userID uuid.UUID) string {
	return notificationPrefix + userID.String()
}

// Notifier publishes per-user notifications. Every replica runs Relay, so a
// frame published by any of them reaches the user's sockets wherever they
// are connected.
type Notifier struct {
	RDB *redis.Client
}

func (n *Notifier) Enabled() bool { return n != nil && n.RDB != nil }

func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, v any) error {
	if n == nil || n.RDB == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.RDB.Publish(ctx, NotificationChannel(userID), payload).Err()
}

// Relay feeds every published notification into hub until ctx is done.
// Payloads are forwarded untouched.
func (n *Notifier) Relay(ctx context.Context, hub *Hub) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.RDB.PSubscribe(ctx, notificationPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe notifications: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			uid, err := uuid.Parse(strings.TrimPrefix(msg.Channel, notificationPrefix))
			if err != nil {
				hub.log.Warn().Str("channel", msg.Channel).Msg("notification on malformed channel")
				continue
			}
			hub.SendToUser(uid, json.RawMessage(msg.Payload))
		}
	}
}
