package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle limits login attempts per key with a fixed window counter
// in Redis (INCR + EXPIRE). The expiry is re-armed whenever the key has none.
type LoginThrottle struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
}

// NewLoginThrottle constructs a LoginThrottle allowing max attempts per window.
func NewLoginThrottle(client *redis.Client, max int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, prefix: "warden:login:", max: int64(max), window: window}
}

func (l *LoginThrottle) key(subject string) string {
	return l.prefix + strings.ReplaceAll(strings.ToLower(subject), " ", "_")
}

// Allow counts an attempt for subject. When the limit is exceeded it returns
// false and the time until the window resets.
func (l *LoginThrottle) Allow(ctx context.Context, subject string) (bool, time.Duration, error) {
	key := l.key(subject)
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("auth: throttle: %w", err)
	}
	retry := ttl.Val()
	// a key without expiry (first hit, or a lost EXPIRE) opens a new window
	if retry < 0 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("auth: throttle expire: %w", err)
		}
		retry = l.window
	}
	if incr.Val() <= l.max {
		return true, 0, nil
	}
	if retry == 0 {
		retry = l.window
	}
	return false, retry, nil
}

// Reset clears the counter after a successful login.
func (l *LoginThrottle) Reset(ctx context.Context, subject string) error {
	return l.client.Del(ctx, l.key(subject)).Err()
}
