package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dujiao-next/promo-engine/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "promo"
	scanBatch          = 200
)

// redisStore 共享缓存：分类后代、员工鉴权快照。未启用时所有操作为空操作
type redisStore struct {
	client *redis.Client
	prefix string
}

var current atomic.Pointer[redisStore]

// KeyPrefix 返回配置的 key 前缀，未配置时为 promo
func KeyPrefix(cfg *config.RedisConfig) string {
	if cfg != nil {
		if prefix := strings.TrimSpace(cfg.Prefix); prefix != "" {
			return prefix
		}
	}
	return defaultRedisPrefix
}

func redisAddr(cfg *config.RedisConfig) string {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// InitRedis 初始化 Redis 客户端；未启用时清空已有客户端
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		current.Store(nil)
		return nil
	}
	current.Store(&redisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     redisAddr(cfg),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: KeyPrefix(cfg),
	})
	return nil
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return current.Load() != nil
}

// Client 获取 Redis 客户端，未启用时为 nil
func Client() *redis.Client {
	if store := current.Load(); store != nil {
		return store.client
	}
	return nil
}

// GetJSON 读取 JSON 缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	store := current.Load()
	if store == nil {
		return false, nil
	}
	raw, err := store.client.Get(ctx, store.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	store := current.Load()
	if store == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.client.Set(ctx, store.key(key), payload, ttl).Err()
}

// DelByPrefix 按前缀批量删除缓存（UNLINK，分批提交）
func DelByPrefix(ctx context.Context, prefix string) error {
	store := current.Load()
	if store == nil {
		return nil
	}
	iter := store.client.Scan(ctx, 0, store.key(prefix)+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) < scanBatch {
			continue
		}
		if err := store.client.Unlink(ctx, batch...).Err(); err != nil {
			return err
		}
		batch = batch[:0]
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	return store.client.Unlink(ctx, batch...).Err()
}

// Close 关闭 Redis 客户端
func Close() error {
	store := current.Swap(nil)
	if store == nil {
		return nil
	}
	return store.client.Close()
}

func (s *redisStore) key(key string) string {
	if key = strings.TrimSpace(key); key == "" {
		return s.prefix
	}
	return s.prefix + ":" + key
}
