package admin

import (
	"strings"
	"time"

	handlershared "github.com/dujiao-next/promo-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/promo-engine/internal/http/response"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/predicate"
	"github.com/dujiao-next/promo-engine/internal/repository"
	"github.com/dujiao-next/promo-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// PromotionRuleRequest 促销规则请求
type PromotionRuleRequest struct {
	Name               string           `json:"name"`
	CataloguePredicate *predicate.Input `json:"catalogue_predicate"`
	RewardValueType    string           `json:"reward_value_type"`
	RewardValue        *models.Money    `json:"reward_value"`
	ChannelIDs         []uint           `json:"channel_ids"`
}

// CreatePromotionRequest 创建促销请求
type CreatePromotionRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	StartDate   *time.Time             `json:"start_date"`
	EndDate     *time.Time             `json:"end_date"`
	Rules       []PromotionRuleRequest `json:"rules"`
}

// UpdatePromotionRequest 更新促销请求
type UpdatePromotionRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	ClearEnd    bool       `json:"clear_end_date"`
}

// UpdatePromotionRuleRequest 更新促销规则请求
type UpdatePromotionRuleRequest struct {
	Name               *string          `json:"name"`
	CataloguePredicate *predicate.Input `json:"catalogue_predicate"`
	RewardValueType    *string          `json:"reward_value_type"`
	RewardValue        *models.Money    `json:"reward_value"`
	AddChannels        []uint           `json:"add_channels"`
	RemoveChannels     []uint           `json:"remove_channels"`
}

func (r PromotionRuleRequest) toServiceInput() service.PromotionRuleInput {
	return service.PromotionRuleInput{
		Name:               r.Name,
		CataloguePredicate: r.CataloguePredicate,
		RewardValueType:    r.RewardValueType,
		RewardValue:        r.RewardValue,
		ChannelIDs:         r.ChannelIDs,
	}
}

// GetPromotions 促销列表
func (h *Handler) GetPromotions(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	id, ok := parseQueryUint(c, "id")
	if !ok {
		return
	}
	promotions, total, err := h.PromotionService.ListPromotions(repository.PromotionListFilter{
		ID:       id,
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrPromotionFetchFailed.Error())
		return
	}
	response.SuccessWithPage(c, promotions, response.NewPagination(page, pageSize, total))
}

// GetPromotion 促销详情（含规则）
func (h *Handler) GetPromotion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	promotion, err := h.PromotionService.GetPromotion(id)
	if err != nil {
		respondServiceError(c, err, service.ErrPromotionFetchFailed.Error())
		return
	}
	response.Success(c, promotion)
}

// CreatePromotion 创建促销及其规则
func (h *Handler) CreatePromotion(c *gin.Context) {
	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	rules := make([]service.PromotionRuleInput, 0, len(req.Rules))
	for _, rule := range req.Rules {
		rules = append(rules, rule.toServiceInput())
	}
	promotion, err := h.PromotionService.Create(service.CreatePromotionInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Rules:       rules,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrPromotionCreateFailed.Error())
		return
	}
	response.Success(c, promotion)
}

// UpdatePromotion 更新促销基本信息
func (h *Handler) UpdatePromotion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	promotion, err := h.PromotionService.UpdatePromotion(id, service.UpdatePromotionInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ClearEnd:    req.ClearEnd,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrPromotionUpdateFailed.Error())
		return
	}
	response.Success(c, promotion)
}

// DeletePromotion 删除促销
func (h *Handler) DeletePromotion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.PromotionService.Delete(id); err != nil {
		respondServiceError(c, err, service.ErrPromotionDeleteFailed.Error())
		return
	}
	response.Success(c, nil)
}

// CreatePromotionRule 为促销追加规则
func (h *Handler) CreatePromotionRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req PromotionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	rule, err := h.PromotionService.CreateRule(id, req.toServiceInput())
	if err != nil {
		respondServiceError(c, err, service.ErrPromotionUpdateFailed.Error())
		return
	}
	response.Success(c, rule)
}

// GetPromotionRule 规则详情
func (h *Handler) GetPromotionRule(c *gin.Context) {
	id, ok := parseIDParam(c, "rule_id")
	if !ok {
		return
	}
	rule, err := h.PromotionService.GetRule(id)
	if err != nil {
		respondServiceError(c, err, service.ErrPromotionFetchFailed.Error())
		return
	}
	response.Success(c, rule)
}

// UpdatePromotionRule 更新规则
func (h *Handler) UpdatePromotionRule(c *gin.Context) {
	id, ok := parseIDParam(c, "rule_id")
	if !ok {
		return
	}
	var req UpdatePromotionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	rule, err := h.PromotionService.UpdateRule(id, service.UpdatePromotionRuleInput{
		Name:               req.Name,
		CataloguePredicate: req.CataloguePredicate,
		RewardValueType:    req.RewardValueType,
		RewardValue:        req.RewardValue,
		AddChannels:        req.AddChannels,
		RemoveChannels:     req.RemoveChannels,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrPromotionUpdateFailed.Error())
		return
	}
	response.Success(c, rule)
}

// DeletePromotionRule 删除规则
func (h *Handler) DeletePromotionRule(c *gin.Context) {
	id, ok := parseIDParam(c, "rule_id")
	if !ok {
		return
	}
	if err := h.PromotionService.DeleteRule(id); err != nil {
		respondServiceError(c, err, service.ErrPromotionDeleteFailed.Error())
		return
	}
	response.Success(c, nil)
}

// GetPromotionRuleMatch 判断规则是否命中商品
func (h *Handler) GetPromotionRuleMatch(c *gin.Context) {
	id, ok := parseIDParam(c, "rule_id")
	if !ok {
		return
	}
	productID, ok := parseQueryUint(c, "product_id")
	if !ok {
		return
	}
	if productID == 0 {
		respondError(c, response.CodeBadRequest, "product_id is required", nil)
		return
	}
	matched, err := h.PromotionService.RuleMatchesProduct(id, productID)
	if err != nil {
		respondServiceError(c, err, service.ErrCatalogueLookupFailed.Error())
		return
	}
	response.Success(c, gin.H{"matches": matched})
}

// RefreshPromotionRuleVariants 立即重算规则命中的规格
func (h *Handler) RefreshPromotionRuleVariants(c *gin.Context) {
	id, ok := parseIDParam(c, "rule_id")
	if !ok {
		return
	}
	if err := h.PromotionService.RefreshRuleVariants(id); err != nil {
		respondServiceError(c, err, service.ErrPromotionUpdateFailed.Error())
		return
	}
	rule, err := h.PromotionService.GetRule(id)
	if err != nil {
		respondServiceError(c, err, service.ErrPromotionFetchFailed.Error())
		return
	}
	response.Success(c, rule)
}
