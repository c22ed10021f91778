// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"fmt"

	"github.com/Thermoquad/heliograph/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisPublisher publishes JSON readings on a Redis pub/sub channel. Nothing
// is stored; subscribers only see live messages.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	log     *logrus.Logger
}

// NewRedisPublisher connects and pings the server
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig, log *logrus.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	log.WithFields(logrus.Fields{"addr": cfg.Addr, "channel": cfg.Channel}).Info("Redis connected")

	return &RedisPublisher{
		client:  client,
		channel: cfg.Channel,
		log:     log,
	}, nil
}

// Publish sends one encoded message and returns the number of subscribers
// that received it
func (r *RedisPublisher) Publish(ctx context.Context, payload []byte) (int64, error) {
	n, err := r.client.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish readings: %w", err)
	}
	return n, nil
}

// Channel returns the pub/sub channel name
func (r *RedisPublisher) Channel() string {
	return r.channel
}

// Close closes the connection pool
func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
