package queue

import (
	"encoding/json"

	"github.com/dujiao-next/promo-engine/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPromotionRuleVariantsRefresh 促销规则 SKU 关联重算任务
	TaskPromotionRuleVariantsRefresh = constants.TaskPromotionRuleVariantsRefresh
)

// PromotionRuleVariantsRefreshPayload 规则 SKU 关联重算任务载荷
type PromotionRuleVariantsRefreshPayload struct {
	RuleIDs []uint `json:"rule_ids"`
}

// NewPromotionRuleVariantsRefreshTask 创建规则 SKU 关联重算任务
func NewPromotionRuleVariantsRefreshTask(payload PromotionRuleVariantsRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPromotionRuleVariantsRefresh, body), nil
}

// ParsePromotionRuleVariantsRefreshPayload 解析任务载荷
func ParsePromotionRuleVariantsRefreshPayload(body []byte) (PromotionRuleVariantsRefreshPayload, error) {
	var payload PromotionRuleVariantsRefreshPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
