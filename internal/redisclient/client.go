package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"retailsmart/internal/apperr"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_many.lua
var setManyScript string

type Client struct {
	rdb     *redis.Client
	setMany *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:     rdb,
		setMany: redis.NewScript(setManyScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get retrieves the string stored at key
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", apperr.ErrKeyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value at key without expiry
func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetMany atomically replaces every entry using a Lua script
func (c *Client) SetMany(ctx context.Context, entries map[string]string) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = entries[k]
	}

	if _, err := c.setMany.Run(ctx, c.rdb, keys, args...).Result(); err != nil {
		return fmt.Errorf("set many script failed: %w", err)
	}
	return nil
}
