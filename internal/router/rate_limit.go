package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dujiao-next/promo-engine/internal/cache"
	"github.com/dujiao-next/promo-engine/internal/config"
	"github.com/dujiao-next/promo-engine/internal/http/response"
	"github.com/dujiao-next/promo-engine/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitUnavailableMsg = "rate limit unavailable"
	adminLoginLimitMessage  = "too many login attempts"
	adminLoginKeyField      = "username"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(raw string) string {
	if r.Prefix == "" {
		return raw
	}
	return r.Prefix + ":" + raw
}

// rejectMessage 超限提示，附带剩余等待秒数
func (r RateLimitRule) rejectMessage(ttlSeconds int64) string {
	wait := int(ttlSeconds)
	if wait < 1 {
		wait = max(r.WindowSeconds, 1)
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "too many requests"
	}
	return fmt.Sprintf("%s, retry in %d seconds", msg, wait)
}

// AdminLoginRateLimitRule 员工登录限流：按 用户名+IP 计数
func AdminLoginRateLimitRule(cfg *config.Config) RateLimitRule {
	return RateLimitRule{
		Prefix:        cache.KeyPrefix(&cfg.Redis) + ":rate:admin_login",
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       adminLoginLimitMessage,
	}
}

// WindowCounter 在窗口内累加 key 的命中次数，返回当前计数与剩余秒数
type WindowCounter interface {
	Hit(ctx context.Context, key string, windowSeconds int) (count int64, ttlSeconds int64, err error)
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

type redisWindowCounter struct {
	client *redis.Client
}

// NewRedisWindowCounter client 为空时返回 nil，中间件随之放行
func NewRedisWindowCounter(client *redis.Client) WindowCounter {
	if client == nil {
		return nil
	}
	return &redisWindowCounter{client: client}
}

func (r *redisWindowCounter) Hit(ctx context.Context, key string, windowSeconds int) (int64, int64, error) {
	values, err := rateLimitScript.Run(ctx, r.client, []string{key}, windowSeconds).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(values))
	}
	return values[0], values[1], nil
}

// RateLimitMiddleware 频率限制中间件，counter 为空或规则未启用时直接放行
func RateLimitMiddleware(counter WindowCounter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || !rule.enabled() {
			c.Next()
			return
		}

		raw := ""
		if keyFunc != nil {
			raw = strings.TrimSpace(keyFunc(c))
		}
		if raw == "" {
			raw = c.ClientIP()
		}
		key := rule.key(raw)

		count, ttl, err := counter.Hit(c.Request.Context(), key, rule.WindowSeconds)
		if err != nil {
			logger.Warnw("rate_limit_counter_failed", "key", key, "error", err)
			response.Error(c, response.CodeInternal, rateLimitUnavailableMsg)
			c.Abort()
			return
		}
		if count > int64(rule.MaxRequests) {
			logger.Infow("rate_limit_rejected", "key", key, "count", count)
			response.Error(c, response.CodeTooManyRequests, rule.rejectMessage(ttl))
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByIPAndJSONField 使用 JSON 字段（小写）+ IP 作为限流 key，字段缺失时退回 IP
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// readJSONField 读取请求体后写回，后续 handler 仍可绑定
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	text, _ := payload[field].(string)
	return strings.TrimSpace(text)
}
