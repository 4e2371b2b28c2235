package checkpoint

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/monument-wall/wall-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func checkpointKey(address string) string {
	return "wall:checkpoint:" + domain.NormalizeAddress(address)
}

func celebratedKey(address string) string {
	return "wall:celebrated:" + domain.NormalizeAddress(address)
}

func (s *RedisStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, checkpointKey(cp.WalletAddress), data, 0).Err()
}

func (s *RedisStore) LoadCheckpoint(ctx context.Context, address string) (*Checkpoint, error) {
	data, err := s.client.Get(ctx, checkpointKey(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *RedisStore) ClearCheckpoint(ctx context.Context, address string) error {
	return s.client.Del(ctx, checkpointKey(address)).Err()
}

func (s *RedisStore) HasCelebrated(ctx context.Context, address string) (bool, error) {
	n, err := s.client.Exists(ctx, celebratedKey(address)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) MarkCelebrated(ctx context.Context, address string) error {
	return s.client.Set(ctx, celebratedKey(address), "1", 0).Err()
}
