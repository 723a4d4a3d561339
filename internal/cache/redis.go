package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facelens/internal/config"
	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Redis stores the frame as JSON under one key and its image under a sibling
// key, so several server instances can serve the same last frame.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logging.Info(logging.Fields{"addr": cfg.Addr, "db": cfg.DB}, "connected to redis")
	return NewRedisFromClient(client, cfg.Key, cfg.TTL), nil
}

// NewRedisFromClient wraps an existing client. Empty key and zero TTL use the defaults.
func NewRedisFromClient(client *redis.Client, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = constants.DefaultFrameCacheKey
	}
	if ttl <= 0 {
		ttl = constants.DefaultFrameCacheTTL
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

func (r *Redis) imageKey() string {
	return r.key + ":image"
}

func (r *Redis) Store(ctx context.Context, frame *face.AnalysisFrame) error {
	if frame == nil {
		return errors.New("nil frame")
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key, data, r.ttl)
		if len(frame.Image) > 0 {
			pipe.Set(ctx, r.imageKey(), frame.Image, r.ttl)
		} else {
			pipe.Del(ctx, r.imageKey())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store frame: %w", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context) (*face.AnalysisFrame, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load frame: %w", err)
	}

	var frame face.AnalysisFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame: %w", err)
	}

	img, err := r.client.Get(ctx, r.imageKey()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("failed to load frame image: %w", err)
	default:
		frame.Image = img
	}
	return &frame, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
