package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/models"
)

const inboxKeyPrefix = "toasts:"

// RedisNotifier keeps a per-session inbox of toasts in a Redis list that the
// presentation layer drains by polling.
type RedisNotifier struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNotifier creates a RedisNotifier. Inboxes expire ttl after the last toast.
func NewRedisNotifier(client *redis.Client, ttl time.Duration) *RedisNotifier {
	return &RedisNotifier{client: client, ttl: ttl}
}

// Notify appends the notification to the session inbox.
func (r *RedisNotifier) Notify(ctx context.Context, n models.Notification) error {
	if n.SessionID == "" {
		return fmt.Errorf("notification has no page session")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := inboxKey(n.SessionID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store notification in Redis key '%s': %w", key, err)
	}
	return nil
}

// Drain returns and removes every pending notification of a session, oldest first.
func (r *RedisNotifier) Drain(ctx context.Context, sessionID string) ([]models.Notification, error) {
	key := inboxKey(sessionID)
	var lrange *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain notifications from '%s': %w", key, err)
	}

	out := make([]models.Notification, 0, len(lrange.Val()))
	for _, raw := range lrange.Val() {
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			log.Warnf("Skipping malformed notification in '%s': %v", key, err)
			continue
		}
		n.SessionID = sessionID
		out = append(out, n)
	}
	return out, nil
}

func inboxKey(sessionID string) string {
	return inboxKeyPrefix + sessionID
}
