package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"erp-admin/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Redis wraps the client so fx can provide a single shared instance.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis with lifecycle management.
func NewRedis(lc fx.Lifecycle, cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	log.Println("Connected to Redis!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return &Redis{Client: client}, nil
}

// Set stores data as JSON under key with an expiration.
func (r *Redis) Set(ctx context.Context, key string, data interface{}, expiration time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, payload, expiration).Err()
}

// Get retrieves JSON data into dest. Returns redis.Nil on a miss.
func (r *Redis) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// Delete removes a key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}
