// Package cache keeps a rolling window of recent chat lines per room in
// redis, giving the responder short-term conversation context that survives
// restarts.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultDepth is how many lines are retained per room.
	DefaultDepth = 50

	keyPrefix = "chat_ctx:"
	keyTTL    = 24 * time.Hour

	connectTimeout = 5 * time.Second
)

// Cache is a redis-backed room context store.
type Cache struct {
	rdb   *redis.Client
	depth int
}

// New connects to redis at addr and verifies the connection with a ping.
// depth <= 0 falls back to DefaultDepth.
func New(addr, password string, db, depth int) (*Cache, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Cache{rdb: rdb, depth: depth}, nil
}

func key(roomID string) string { return keyPrefix + roomID }

// Append records one line for the room and trims the window to depth.
func (c *Cache) Append(ctx context.Context, roomID, line string) error {
	k := key(roomID)
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, k, line)
	pipe.LTrim(ctx, k, 0, int64(c.depth-1))
	pipe.Expire(ctx, k, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append context: %w", err)
	}
	return nil
}

// Recent returns up to limit lines for the room, oldest first. A limit of
// zero or beyond the retained depth returns the whole window.
func (c *Cache) Recent(ctx context.Context, roomID string, limit int) ([]string, error) {
	if limit <= 0 || limit > c.depth {
		limit = c.depth
	}
	lines, err := c.rdb.LRange(ctx, key(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	// LPush stores newest first; callers want chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}

// Clear drops the room's window.
func (c *Cache) Clear(ctx context.Context, roomID string) error {
	return c.rdb.Del(ctx, key(roomID)).Err()
}

// Ping verifies the redis connection; the readiness probe uses it.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
