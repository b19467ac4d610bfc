package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gratefultolord/insurance_bot/internal/models"
)

// RedisStore keeps sessions as JSON values; every Save refreshes the TTL.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("state.NewRedisClient: parse url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("state.NewRedisClient: ping: %w", err)
	}

	return client, nil
}

func (s *RedisStore) key(userID int64) string {
	return fmt.Sprintf("insurance_bot:session:%d", userID)
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (models.Session, error) {
	raw, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("RedisStore.Get: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return models.Session{}, fmt.Errorf("RedisStore.Get: decode session: %w", err)
	}

	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, userID int64, sess models.Session) error {
	sess.UpdatedAt = s.now()

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("RedisStore.Save: encode session: %w", err)
	}

	if err := s.rdb.Set(ctx, s.key(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("RedisStore.Save: %w", err)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("RedisStore.Clear: %w", err)
	}

	return nil
}

var _ Store = (*RedisStore)(nil)
