package curation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// DefaultTrackerTTL is how long a self-retraction key stays registered.
const DefaultTrackerTTL = 60 * time.Second

// Tracker registers (content, user, emoji) keys the curator itself
// retracted, so the platform's echo of that removal does not re-trigger
// processing. Keys expire automatically through Redis TTLs.
type Tracker struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTracker creates a tracker over a Redis client.
func NewTracker(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTrackerTTL
	}

	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: logger.Named("tracker"),
	}
}

func trackerKey(contentID, userID uint64, emojiKey string) string {
	return fmt.Sprintf("retraction:%d:%d:%s", contentID, userID, emojiKey)
}

// Register records a retraction the curator just performed.
func (t *Tracker) Register(ctx context.Context, contentID, userID uint64, emojiKey string) error {
	key := trackerKey(contentID, userID, emojiKey)

	err := t.client.Do(ctx, t.client.B().Set().Key(key).Value("1").Ex(t.ttl).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to register retraction %s: %w", key, err)
	}

	t.logger.Debug("Registered self-retraction", zap.String("key", key))

	return nil
}

// Consume reports whether the key was registered and removes it, so one
// retraction suppresses exactly one echo event.
func (t *Tracker) Consume(ctx context.Context, contentID, userID uint64, emojiKey string) (bool, error) {
	key := trackerKey(contentID, userID, emojiKey)

	result, err := t.client.Do(ctx, t.client.B().Getdel().Key(key).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to consume retraction %s: %w", key, err)
	}

	return result != "", nil
}
