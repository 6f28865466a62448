package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/pkg/helpers"
)

// BookCache is a read-through Redis cache of single books. A nil *BookCache
// or one without a client caches nothing.
type BookCache struct {
	Redis  *redis.Client
	TTL    time.Duration
	Logger *logrus.Logger
}

func NewBookCache(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *BookCache {
	return &BookCache{Redis: rdb, TTL: ttl, Logger: logger}
}

func bookCacheKey(id string) string {
	return helpers.RedisKey("book", id)
}

func bookVersionKey(id string) string {
	return helpers.RedisKey("book", id, "ver")
}

// fillScript stores the book only while the version key still holds the
// stamp read before the database read.
var fillScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

func (c *BookCache) enabled() bool {
	return c != nil && c.Redis != nil && c.TTL > 0
}

func (c *BookCache) Get(ctx context.Context, id string) (*entity.Book, bool) {
	if !c.enabled() {
		return nil, false
	}
	var b entity.Book
	ok, err := helpers.CacheGet(ctx, c.Redis, bookCacheKey(id), &b)
	if err != nil {
		c.warn(err, id, "book cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &b, true
}

// Stamp returns the book's cache version. Read it before loading the book
// from the database and hand it to Set.
func (c *BookCache) Stamp(ctx context.Context, id string) string {
	if !c.enabled() {
		return ""
	}
	v, err := c.Redis.Get(ctx, bookVersionKey(id)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0"
	case err != nil:
		c.warn(err, id, "book cache stamp failed")
		return ""
	}
	return v
}

// Set caches b unless the book was invalidated after stamp was taken, so a
// slow read never overwrites a newer invalidation.
func (c *BookCache) Set(ctx context.Context, b *entity.Book, stamp string) {
	if !c.enabled() || b == nil || stamp == "" {
		return
	}
	raw, err := json.Marshal(b)
	if err != nil {
		c.warn(err, b.ID, "book cache encode failed")
		return
	}
	keys := []string{bookCacheKey(b.ID), bookVersionKey(b.ID)}
	if err := fillScript.Run(ctx, c.Redis, keys, stamp, raw, c.TTL.Milliseconds()).Err(); err != nil {
		c.warn(err, b.ID, "book cache write failed")
	}
}

// Invalidate drops the cached copy and bumps the version; called after
// every committed change to a book's row, including availability.
func (c *BookCache) Invalidate(ctx context.Context, id string) {
	if !c.enabled() {
		return
	}
	ver := bookVersionKey(id)
	_, err := c.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, ver)
		pipe.Expire(ctx, ver, c.TTL+time.Minute)
		return helpers.CacheDrop(ctx, pipe, bookCacheKey(id))
	})
	if err != nil {
		c.warn(err, id, "book cache invalidate failed")
	}
}

func (c *BookCache) warn(err error, id, msg string) {
	if c.Logger != nil {
		c.Logger.WithError(err).WithField("book_id", id).Warn(msg)
	}
}
