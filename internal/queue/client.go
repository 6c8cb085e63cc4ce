package queue

import (
	"context"
	"errors"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/config"
	"github.com/dujiao-next/promo-engine/internal/constants"
	"github.com/dujiao-next/promo-engine/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault

	refreshMaxRetry     = 5
	refreshUniqueWindow = 30 * time.Second
	defaultConcurrency  = 10
)

// Client 规则重算任务的投递端；未启用队列时为 nil 或 disabled，调用方改为同步重算
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueuePromotionRuleVariantsRefresh 投递规则 SKU 关联重算任务。
// 规则 ID 先去重排序，同一批规则在去重窗口内只入队一次。
func (c *Client) EnqueuePromotionRuleVariantsRefresh(payload PromotionRuleVariantsRefreshPayload, opts ...asynq.Option) error {
	payload.RuleIDs = normalizeRuleIDs(payload.RuleIDs)
	if !c.Enabled() || len(payload.RuleIDs) == 0 {
		return nil
	}
	task, err := NewPromotionRuleVariantsRefreshTask(payload)
	if err != nil {
		return err
	}
	info, err := c.client.Enqueue(task, append(refreshTaskOptions(), opts...)...)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		logger.Debugw("queue_rule_refresh_deduplicated", "rule_ids", payload.RuleIDs)
		return nil
	case err != nil:
		return err
	}
	logger.Debugw("queue_rule_refresh_enqueued", "task_id", info.ID, "rule_ids", payload.RuleIDs)
	return nil
}

func refreshTaskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(DefaultQueue),
		asynq.MaxRetry(refreshMaxRetry),
		asynq.Unique(refreshUniqueWindow),
	}
}

func normalizeRuleIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// BuildServerConfig 生成 worker 配置：默认队列总是被消费，任务最终失败时记录日志
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := defaultConcurrency
	queues := map[string]int{}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		for name, priority := range cfg.Queues {
			if name = strings.TrimSpace(name); name != "" && priority > 0 {
				queues[name] = priority
			}
		}
	}
	if _, ok := queues[DefaultQueue]; !ok {
		queues[DefaultQueue] = 1
	}
	return redisOpt(cfg), asynq.Config{
		Concurrency:  concurrency,
		Queues:       queues,
		ErrorHandler: asynq.ErrorHandlerFunc(logTaskFailure),
	}
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logger.Warnw("queue_task_failed",
		"task_type", task.Type(),
		"retried", retried,
		"max_retry", maxRetry,
		"error", err,
	)
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host, port := "127.0.0.1", 6379
	var opt asynq.RedisClientOpt
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Host); trimmed != "" {
			host = trimmed
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		opt.Password = cfg.Password
		opt.DB = cfg.DB
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	return opt
}
