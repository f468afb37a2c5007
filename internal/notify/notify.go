// Package notify delivers short user-facing messages through a gateway. All
// deliveries are best effort: callers log failures and carry on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Notifier sends a message to one user and reports whether delivery was
// handed off. Failures are never fatal to the caller.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

const channel = "notify_events"

// RedisNotifier publishes messages to the notify_events channel for the
// delivery gateway to pick up.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Notify(ctx context.Context, userID int64, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("notify marshal failed: %w", err)
	}
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("notify publish failed: %w", err)
	}
	return nil
}

// LogNotifier writes messages to the process log. Used when no gateway is
// configured and as the fallback in tests.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID int64, text string) error {
	log.Printf("[NOTIFY] user=%d %s", userID, text)
	return nil
}

// Send is the fire-and-forget helper used on non-critical paths.
func Send(ctx context.Context, n Notifier, userID int64, text string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, userID, text); err != nil {
		log.Printf("[NOTIFY] delivery to user %d failed: %v", userID, err)
	}
}
