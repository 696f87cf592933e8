package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/kantxie-coder/cryptosage/internal/entity"
)

// RedisConversationRepository keeps histories in Redis lists, one list per
// user, each entry one JSON-encoded message. It is an optional cache backend
// for deployments where the process restarts often; the TTL bounds how long
// an idle conversation survives.
type RedisConversationRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisConversationRepository(rdb *redis.Client, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{
		rdb: rdb,
		ttl: ttl,
	}
}

func conversationKey(userID int64) string {
	return fmt.Sprintf("cryptosage:conversation:%d", userID)
}

func (r *RedisConversationRepository) Append(ctx context.Context, userID int64, message entity.ChatMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode conversation entry: %w", err)
	}

	key := conversationKey(userID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("append conversation entry: %w", err)
	}

	return nil
}

func (r *RedisConversationRepository) Window(ctx context.Context, userID int64, limit int) ([]entity.ChatMessage, error) {
	key := conversationKey(userID)

	var rangeCmd *redis.StringSliceCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if limit > 0 {
			pipe.LTrim(ctx, key, int64(-limit), -1)
		}
		rangeCmd = pipe.LRange(ctx, key, 0, -1)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read conversation window: %w", err)
	}

	raw, err := rangeCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("read conversation window: %w", err)
	}

	window := make([]entity.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var message entity.ChatMessage
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			return nil, fmt.Errorf("decode conversation entry: %w", err)
		}

		window = append(window, message)
	}

	return window, nil
}

func (r *RedisConversationRepository) Clear(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, conversationKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}

	return nil
}
