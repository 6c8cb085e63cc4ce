package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/config"

	"github.com/allegro/bigcache/v3"
)

const defaultLocalLifeWindow = 60 * time.Second

// Local 进程内缓存，位于 Redis 之前的第一层
type Local struct {
	store *bigcache.BigCache
}

// NewLocal 创建进程内缓存；未启用时返回 nil，nil 上的调用均为空操作
func NewLocal(cfg *config.LocalCacheConfig) (*Local, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	life := time.Duration(cfg.LifeWindowSecond) * time.Second
	if life <= 0 {
		life = defaultLocalLifeWindow
	}
	bc := bigcache.DefaultConfig(life)
	bc.CleanWindow = life / 2
	if cfg.Shards > 0 {
		bc.Shards = cfg.Shards
	}
	if cfg.MaxEntrySize > 0 {
		bc.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheMB > 0 {
		bc.HardMaxCacheSize = cfg.HardMaxCacheMB
	}
	bc.Verbose = false
	store, err := bigcache.New(context.Background(), bc)
	if err != nil {
		return nil, err
	}
	return &Local{store: store}, nil
}

// GetJSON 读取并解析缓存
func (l *Local) GetJSON(key string, dest interface{}) (bool, error) {
	if l == nil || l.store == nil {
		return false, nil
	}
	raw, err := l.store.Get(strings.TrimSpace(key))
	if errors.Is(err, bigcache.ErrEntryNotFound) {
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

// SetJSON 写入缓存，过期时间由 LifeWindow 统一控制
func (l *Local) SetJSON(key string, value interface{}) error {
	if l == nil || l.store == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return l.store.Set(strings.TrimSpace(key), payload)
}

// Delete 删除缓存
func (l *Local) Delete(key string) {
	if l == nil || l.store == nil {
		return
	}
	_ = l.store.Delete(strings.TrimSpace(key))
}

// Reset 清空全部缓存
func (l *Local) Reset() {
	if l == nil || l.store == nil {
		return
	}
	_ = l.store.Reset()
}

// Close 关闭缓存
func (l *Local) Close() error {
	if l == nil || l.store == nil {
		return nil
	}
	return l.store.Close()
}
