package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/faqbot/internal/models"
)

// RedisCheckpoints is a CheckpointStore backed by Redis. Thread state is
// one JSON value per thread key; Redis's per-key atomicity gives the
// strong-per-key read-your-writes the orchestrator requires.
type RedisCheckpoints struct {
	client *redis.Client
	ttl    time.Duration // 0 = no expiry
}

// NewRedisCheckpoints creates a Redis-backed checkpoint store. A non-zero
// ttl bounds how long idle threads are retained; each save renews it.
func NewRedisCheckpoints(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCheckpoints, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCheckpoints{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (s *RedisCheckpoints) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisCheckpoints) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// threadKey returns the key holding a thread's checkpointed state.
func threadKey(threadID string) string {
	return fmt.Sprintf("thread:%s", threadID)
}

// LoadThread returns the stored state, or a fresh empty state for a
// thread that has not been seen before.
func (s *RedisCheckpoints) LoadThread(ctx context.Context, threadID string) (*models.ThreadState, error) {
	data, err := s.client.Get(ctx, threadKey(threadID)).Bytes()
	if err == redis.Nil {
		return models.NewThreadState(threadID), nil
	}
	if err != nil {
		return nil, err
	}

	var state models.ThreadState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveThread replaces the stored state for the thread.
func (s *RedisCheckpoints) SaveThread(ctx context.Context, state *models.ThreadState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, threadKey(state.ThreadID), data, s.ttl).Err()
}
