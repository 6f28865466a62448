package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/library-catalog/pkg/helpers"
	"github.com/oksasatya/library-catalog/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
// Example: combine client IP and route path for more granular limiting
type KeyFunc func(c *gin.Context) string

// KeyByIP returns a key function that limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return helpers.RedisKey("rl", "ip", ipFromCtx(c))
	}
}

// KeyByIPAndPath returns a key function that limits by client IP and route
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return helpers.RedisKey("rl", "path", normalizePath(c), "ip", ipFromCtx(c))
	}
}

// KeyByAccountID limits per authenticated account, falling back to the IP
// for anonymous requests.
func KeyByAccountID() KeyFunc {
	return func(c *gin.Context) string {
		uid := c.GetString(CtxAccountIDKey)
		if uid == "" {
			return helpers.RedisKey("rl", "account", "anon", "ip", ipFromCtx(c))
		}
		return helpers.RedisKey("rl", "account", uid)
	}
}

// hitScript counts a hit and returns {count, remaining window in ms}. The
// window starts at the first hit, so the limit is a fixed window per key.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// AllowFunc returns true for requests that skip the limit.
type AllowFunc func(*gin.Context) bool

// Rate is Limit requests per Window. The zero Rate disables limiting.
type Rate struct {
	Limit  int
	Window time.Duration
}

func PerMinute(n int) Rate { return Rate{Limit: n, Window: time.Minute} }

func (r Rate) enabled() bool { return r.Limit > 0 && r.Window > 0 }

// RateLimit counts requests per keyFn in Redis and answers 429 past the
// limit. OPTIONS and allowed requests are not counted. Without Redis, or
// when Redis errors, requests pass.
func RateLimit(rdb *redis.Client, rate Rate, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || !rate.enabled() || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		res, err := hitScript.Run(c.Request.Context(), rdb, []string{keyFn(c)}, rate.Window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			c.Next()
			return
		}
		count, pttl := int(res[0]), time.Duration(res[1])*time.Millisecond
		resetSec := int((pttl + time.Second - 1) / time.Second)
		if resetSec < 0 {
			resetSec = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rate.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(rate.Limit-count, 0)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > rate.Limit {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", gin.H{"retry_after_seconds": resetSec})
			c.Abort()
			return
		}
		c.Next()
	}
}
