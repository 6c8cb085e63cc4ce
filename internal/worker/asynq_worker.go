package worker

import (
	"context"
	"errors"

	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/provider"
	"github.com/dujiao-next/promo-engine/internal/queue"
	"github.com/dujiao-next/promo-engine/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPromotionRuleVariantsRefresh, c.handlePromotionRuleVariantsRefresh)
}

func (c *Consumer) handlePromotionRuleVariantsRefresh(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_rule_variants_refresh_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePromotionRuleVariantsRefreshPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_rule_variants_refresh_unmarshal_failed", "error", err)
		return err
	}
	if len(payload.RuleIDs) == 0 {
		logger.Debugw("worker_rule_variants_refresh_skip_empty_payload")
		return nil
	}
	if c.Container == nil || c.PromotionService == nil {
		logger.Warnw("worker_rule_variants_refresh_skip_service_nil", "rule_ids", payload.RuleIDs)
		return nil
	}
	var failed error
	for _, ruleID := range payload.RuleIDs {
		if ruleID == 0 {
			continue
		}
		err := c.PromotionService.RefreshRuleVariants(ruleID)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrPromotionRuleNotFound):
			logger.Debugw("worker_rule_variants_refresh_skip_rule_not_found", "rule_id", ruleID)
		case errors.Is(err, service.ErrPromotionRuleInvalidPredicate):
			// 重试无法修复损坏的谓词，保留脏标记等待规则被修正
			logger.Warnw("worker_rule_variants_refresh_skip_invalid_predicate", "rule_id", ruleID)
		default:
			logger.Warnw("worker_rule_variants_refresh_failed", "rule_id", ruleID, "error", err)
			failed = err
		}
	}
	return failed
}
