package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultRedisKey = "offer-guard:history"

// NewRedisClient parses url and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisStore keeps items as JSON in a hash and their order in a sorted set
// scored by timestamp.
type RedisStore struct {
	client   *redis.Client
	itemsKey string
	orderKey string
	maxItems int
	logger   *zap.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, key string, maxItems int, logger *zap.Logger) *RedisStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultRedisKey
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client:   client,
		itemsKey: key + ":items",
		orderKey: key + ":order",
		maxItems: maxItems,
		logger:   logger,
	}
}

func (s *RedisStore) Add(ctx context.Context, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode history item: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.itemsKey, item.ID, data)
		pipe.ZAdd(ctx, s.orderKey, redis.Z{Score: float64(item.Timestamp.UnixMilli()), Member: item.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store history item: %w", err)
	}

	return s.trim(ctx)
}

func (s *RedisStore) trim(ctx context.Context) error {
	stale, err := s.client.ZRevRange(ctx, s.orderKey, int64(s.maxItems), -1).Result()
	if err != nil {
		return fmt.Errorf("list stale history items: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	members := make([]any, 0, len(stale))
	for _, id := range stale {
		members = append(members, id)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.orderKey, members...)
		pipe.HDel(ctx, s.itemsKey, stale...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	s.logger.Debug("trimmed history", zap.Int("dropped", len(stale)))
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Item, error) {
	ids, err := s.client.ZRevRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history ids: %w", err)
	}

	items := make([]Item, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	values, err := s.client.HMGet(ctx, s.itemsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load history items: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			s.logger.Warn("history item missing from hash", zap.String("id", ids[i]))
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decode history item %s: %w", ids[i], err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Item, error) {
	raw, err := s.client.HGet(ctx, s.itemsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Item{}, fmt.Errorf("load history item: %w", err)
	}

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, fmt.Errorf("decode history item %s: %w", id, err)
	}
	return item, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, s.itemsKey, id)
		pipe.ZRem(ctx, s.orderKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete history item: %w", err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.itemsKey, s.orderKey).Err(); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
