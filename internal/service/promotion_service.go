package service

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/constants"
	"github.com/dujiao-next/promo-engine/internal/events"
	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/metrics"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/predicate"
	"github.com/dujiao-next/promo-engine/internal/queue"
	"github.com/dujiao-next/promo-engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PromotionService 促销活动与规则
type PromotionService struct {
	repo        repository.PromotionRepository
	channelRepo repository.ChannelRepository
	catalogue   *CatalogueService
	marker      *DirtyMarker
	queue       *queue.Client
	emitter     events.Emitter
	maxDepth    int
}

// NewPromotionService 创建促销服务
func NewPromotionService(
	repo repository.PromotionRepository,
	channelRepo repository.ChannelRepository,
	catalogue *CatalogueService,
	marker *DirtyMarker,
	queueClient *queue.Client,
	emitter events.Emitter,
	maxDepth int,
) *PromotionService {
	if maxDepth <= 0 {
		maxDepth = predicate.DefaultMaxDepth
	}
	return &PromotionService{
		repo:        repo,
		channelRepo: channelRepo,
		catalogue:   catalogue,
		marker:      marker,
		queue:       queueClient,
		emitter:     emitter,
		maxDepth:    maxDepth,
	}
}

// PromotionRuleInput 创建规则输入
type PromotionRuleInput struct {
	Name               string
	CataloguePredicate *predicate.Input
	RewardValueType    string
	RewardValue        *models.Money
	ChannelIDs         []uint
}

// CreatePromotionInput 创建促销活动输入
type CreatePromotionInput struct {
	Name        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	Rules       []PromotionRuleInput
}

// UpdatePromotionInput 更新促销活动输入
type UpdatePromotionInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	ClearEnd    bool
}

// UpdatePromotionRuleInput 更新规则输入，nil 字段保持不变
type UpdatePromotionRuleInput struct {
	Name               *string
	CataloguePredicate *predicate.Input
	RewardValueType    *string
	RewardValue        *models.Money
	AddChannels        []uint
	RemoveChannels     []uint
}

// ruleChange 规则变更前后影响范围
type ruleChange struct {
	channelIDs []uint
	productIDs []uint
	ruleIDs    []uint
}

func (c *ruleChange) merge(channelIDs []uint, affected predicate.AffectedSet) {
	c.channelIDs = append(c.channelIDs, channelIDs...)
	c.productIDs = append(c.productIDs, affected.ProductIDs()...)
}

// GetPromotion 获取促销活动
func (s *PromotionService) GetPromotion(id uint) (*models.Promotion, error) {
	promotion, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrPromotionFetchFailed
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	return promotion, nil
}

// ListPromotions 获取促销活动列表
func (s *PromotionService) ListPromotions(filter repository.PromotionListFilter) ([]models.Promotion, int64, error) {
	promotions, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, ErrPromotionFetchFailed
	}
	return promotions, total, nil
}

// GetRule 获取规则
func (s *PromotionService) GetRule(id uint) (*models.PromotionRule, error) {
	rule, err := s.repo.GetRule(id)
	if err != nil {
		return nil, ErrPromotionFetchFailed
	}
	if rule == nil {
		return nil, ErrPromotionRuleNotFound
	}
	return rule, nil
}

// Create 创建促销活动及其规则
func (s *PromotionService) Create(input CreatePromotionInput) (*models.Promotion, error) {
	verr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		verr.Add("name", CodeRequired, "name is required")
	}
	startDate := time.Now()
	if input.StartDate != nil {
		startDate = *input.StartDate
	}
	if input.EndDate != nil && input.EndDate.Before(startDate) {
		verr.Add("endDate", CodeInvalid, "end date cannot be before start date")
	}

	type preparedRule struct {
		rule       *models.PromotionRule
		predicate  predicate.Predicate
		channelIDs []uint
	}
	prepared := make([]preparedRule, 0, len(input.Rules))
	for idx, ruleInput := range input.Rules {
		field := fmt.Sprintf("rules.%d", idx)
		rule, cleaned, channelIDs, err := s.prepareRule(field, ruleInput, verr)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			prepared = append(prepared, preparedRule{rule: rule, predicate: cleaned, channelIDs: channelIDs})
		}
	}
	if !verr.Empty() {
		return nil, verr
	}

	promotion := &models.Promotion{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		StartDate:   startDate,
		EndDate:     input.EndDate,
	}
	change := &ruleChange{}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogue := s.catalogue.WithTx(tx)
		if err := repo.Create(promotion); err != nil {
			return ErrPromotionCreateFailed
		}
		for _, item := range prepared {
			item.rule.PromotionID = promotion.ID
			if err := repo.CreateRule(item.rule); err != nil {
				return ErrPromotionCreateFailed
			}
			if err := repo.AddRuleChannels(item.rule.ID, item.channelIDs); err != nil {
				return ErrPromotionCreateFailed
			}
			affected, err := catalogue.Affected(item.predicate)
			if err != nil {
				return ErrCatalogueLookupFailed
			}
			change.merge(item.channelIDs, affected)
			change.ruleIDs = append(change.ruleIDs, item.rule.ID)
		}
		_, err := s.marker.WithTx(tx).Mark(DirtyMarkInput{
			ChannelIDs: change.channelIDs,
			ProductIDs: change.productIDs,
			RuleIDs:    change.ruleIDs,
		})
		return err
	})
	if err != nil {
		logger.Warnw("promotion_create_failed", "name", name, "error", err)
		return nil, err
	}

	s.emit(constants.EventPromotionCreated, map[string]interface{}{
		"promotion_id": promotion.ID,
		"rule_ids":     change.ruleIDs,
	})
	s.scheduleVariantRefresh(change.ruleIDs)
	return s.GetPromotion(promotion.ID)
}

// UpdatePromotion 更新活动基础信息
func (s *PromotionService) UpdatePromotion(id uint, input UpdatePromotionInput) (*models.Promotion, error) {
	promotion, err := s.GetPromotion(id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, newValidationError("name", CodeRequired, "name is required")
		}
		promotion.Name = name
	}
	if input.Description != nil {
		promotion.Description = strings.TrimSpace(*input.Description)
	}
	if input.StartDate != nil {
		promotion.StartDate = *input.StartDate
	}
	if input.ClearEnd {
		promotion.EndDate = nil
	} else if input.EndDate != nil {
		promotion.EndDate = input.EndDate
	}
	if promotion.EndDate != nil && promotion.EndDate.Before(promotion.StartDate) {
		return nil, newValidationError("endDate", CodeInvalid, "end date cannot be before start date")
	}
	if err := s.repo.Update(promotion); err != nil {
		return nil, ErrPromotionUpdateFailed
	}
	return promotion, nil
}

// Delete 删除促销活动，规则影响的渠道与商品标记待重算
func (s *PromotionService) Delete(id uint) error {
	change := &ruleChange{}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		promotion, err := repo.GetByID(id)
		if err != nil {
			return ErrPromotionFetchFailed
		}
		if promotion == nil {
			return ErrPromotionNotFound
		}
		for idx := range promotion.Rules {
			rule := &promotion.Rules[idx]
			affected, err := s.storedAffected(tx, rule)
			if err != nil {
				return err
			}
			change.merge(rule.ChannelIDs(), affected)
			change.ruleIDs = append(change.ruleIDs, rule.ID)
		}
		if err := repo.Delete(id); err != nil {
			return ErrPromotionDeleteFailed
		}
		_, err = s.marker.WithTx(tx).Mark(DirtyMarkInput{
			ChannelIDs: change.channelIDs,
			ProductIDs: change.productIDs,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.emit(constants.EventPromotionDeleted, map[string]interface{}{
		"promotion_id": id,
		"rule_ids":     change.ruleIDs,
	})
	return nil
}

// CreateRule 为已有活动添加规则
func (s *PromotionService) CreateRule(promotionID uint, input PromotionRuleInput) (*models.PromotionRule, error) {
	verr := &ValidationError{}
	rule, cleaned, channelIDs, err := s.prepareRule("", input, verr)
	if err != nil {
		return nil, err
	}
	if !verr.Empty() {
		return nil, verr
	}

	change := &ruleChange{}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		promotion, err := repo.GetByID(promotionID)
		if err != nil {
			return ErrPromotionFetchFailed
		}
		if promotion == nil {
			return ErrPromotionNotFound
		}
		rule.PromotionID = promotion.ID
		if err := repo.CreateRule(rule); err != nil {
			return ErrPromotionCreateFailed
		}
		if err := repo.AddRuleChannels(rule.ID, channelIDs); err != nil {
			return ErrPromotionCreateFailed
		}
		affected, err := s.catalogue.WithTx(tx).Affected(cleaned)
		if err != nil {
			return ErrCatalogueLookupFailed
		}
		change.merge(channelIDs, affected)
		change.ruleIDs = []uint{rule.ID}
		_, err = s.marker.WithTx(tx).Mark(DirtyMarkInput{
			ChannelIDs: change.channelIDs,
			ProductIDs: change.productIDs,
			RuleIDs:    change.ruleIDs,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(constants.EventPromotionRuleCreated, map[string]interface{}{
		"promotion_id": promotionID,
		"rule_id":      rule.ID,
		"channel_ids":  channelIDs,
	})
	s.scheduleVariantRefresh(change.ruleIDs)
	return s.GetRule(rule.ID)
}

// UpdateRule 替换规则谓词并增删渠道，变更前后影响的渠道与商品均标记待重算
func (s *PromotionService) UpdateRule(ruleID uint, input UpdatePromotionRuleInput) (*models.PromotionRule, error) {
	addChannels := uniqueIDs(input.AddChannels)
	removeChannels := uniqueIDs(input.RemoveChannels)
	if duplicated := intersectIDs(addChannels, removeChannels); len(duplicated) > 0 {
		verr := &ValidationError{}
		values := formatIDs(duplicated)
		verr.Add("addChannels", CodeDuplicatedInputItem, "channel cannot be both added and removed", values...)
		verr.Add("removeChannels", CodeDuplicatedInputItem, "channel cannot be both added and removed", values...)
		return nil, verr
	}

	var newPredicate predicate.Predicate
	if input.CataloguePredicate != nil {
		cleaned, err := s.cleanPredicate("cataloguePredicate", input.CataloguePredicate)
		if err != nil {
			return nil, err
		}
		newPredicate = cleaned
	}

	change := &ruleChange{}
	var updated *models.PromotionRule
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rule, err := repo.GetRuleForUpdate(ruleID)
		if err != nil {
			return ErrPromotionFetchFailed
		}
		if rule == nil {
			return ErrPromotionRuleNotFound
		}
		catalogue := s.catalogue.WithTx(tx)

		oldChannelIDs := rule.ChannelIDs()
		oldAffected, err := s.storedAffected(tx, rule)
		if err != nil {
			return err
		}

		newChannelIDs := make([]uint, 0, len(oldChannelIDs)+len(addChannels))
		for _, id := range append(slices.Clone(oldChannelIDs), addChannels...) {
			if !slices.Contains(removeChannels, id) && !slices.Contains(newChannelIDs, id) {
				newChannelIDs = append(newChannelIDs, id)
			}
		}

		if input.Name != nil {
			rule.Name = strings.TrimSpace(*input.Name)
		}
		if input.RewardValueType != nil {
			rule.RewardValueType = strings.ToLower(strings.TrimSpace(*input.RewardValueType))
		}
		if input.RewardValue != nil {
			rule.RewardValue = *input.RewardValue
		}
		verr := &ValidationError{}
		if err := s.validateChannels("addChannels", addChannels, tx, verr); err != nil {
			return err
		}
		if err := s.validateReward("", rule.RewardValueType, rule.RewardValue, newChannelIDs, tx, verr); err != nil {
			return err
		}
		if !verr.Empty() {
			return verr
		}

		newAffected := oldAffected
		if input.CataloguePredicate != nil {
			raw, err := predicate.Marshal(newPredicate)
			if err != nil {
				return ErrPromotionUpdateFailed
			}
			rule.CataloguePredicate = models.RawJSON(raw)
			newAffected, err = catalogue.Affected(newPredicate)
			if err != nil {
				return ErrCatalogueLookupFailed
			}
		}

		if err := repo.UpdateRule(rule); err != nil {
			return ErrPromotionUpdateFailed
		}
		if err := repo.AddRuleChannels(rule.ID, addChannels); err != nil {
			return ErrPromotionUpdateFailed
		}
		if err := repo.RemoveRuleChannels(rule.ID, removeChannels); err != nil {
			return ErrPromotionUpdateFailed
		}

		change.merge(oldChannelIDs, oldAffected)
		change.merge(newChannelIDs, newAffected)
		change.ruleIDs = []uint{rule.ID}
		if _, err := s.marker.WithTx(tx).Mark(DirtyMarkInput{
			ChannelIDs: change.channelIDs,
			ProductIDs: change.productIDs,
			RuleIDs:    change.ruleIDs,
		}); err != nil {
			return err
		}

		updated, err = repo.GetRule(rule.ID)
		if err != nil {
			return ErrPromotionFetchFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(constants.EventPromotionRuleUpdated, map[string]interface{}{
		"rule_id":            ruleID,
		"promotion_id":       updated.PromotionID,
		"dirty_channel_ids":  uniqueIDs(change.channelIDs),
		"channels_added":     addChannels,
		"channels_removed":   removeChannels,
		"predicate_replaced": input.CataloguePredicate != nil,
	})
	s.scheduleVariantRefresh(change.ruleIDs)
	return updated, nil
}

// DeleteRule 删除规则
func (s *PromotionService) DeleteRule(ruleID uint) error {
	change := &ruleChange{}
	var promotionID uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rule, err := repo.GetRuleForUpdate(ruleID)
		if err != nil {
			return ErrPromotionFetchFailed
		}
		if rule == nil {
			return ErrPromotionRuleNotFound
		}
		promotionID = rule.PromotionID
		affected, err := s.storedAffected(tx, rule)
		if err != nil {
			return err
		}
		change.merge(rule.ChannelIDs(), affected)
		if err := repo.DeleteRule(rule.ID); err != nil {
			return ErrPromotionDeleteFailed
		}
		_, err = s.marker.WithTx(tx).Mark(DirtyMarkInput{
			ChannelIDs: change.channelIDs,
			ProductIDs: change.productIDs,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.emit(constants.EventPromotionRuleDeleted, map[string]interface{}{
		"rule_id":      ruleID,
		"promotion_id": promotionID,
	})
	return nil
}

// RuleMatchesProduct 判断商品是否命中规则谓词
func (s *PromotionService) RuleMatchesProduct(ruleID, productID uint) (bool, error) {
	rule, err := s.GetRule(ruleID)
	if err != nil {
		return false, err
	}
	p, err := storedPredicate(rule)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}
	return s.catalogue.MatchesProduct(p, productID)
}

// RefreshRuleVariants 按存储的谓词重算规则命中的 SKU
func (s *PromotionService) RefreshRuleVariants(ruleID uint) error {
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rule, err := repo.GetRuleForUpdate(ruleID)
		if err != nil {
			return ErrPromotionFetchFailed
		}
		if rule == nil {
			return ErrPromotionRuleNotFound
		}
		p, err := storedPredicate(rule)
		if err != nil {
			logger.Warnw("promotion_rule_refresh_invalid_predicate", "rule_id", rule.ID, "error", err)
			return ErrPromotionRuleInvalidPredicate
		}
		affected, err := s.catalogue.WithTx(tx).Affected(p)
		if err != nil {
			return ErrCatalogueLookupFailed
		}
		if err := repo.ReplaceRuleVariants(rule.ID, affected.VariantIDs()); err != nil {
			return ErrPromotionUpdateFailed
		}
		return repo.ClearVariantsDirty(rule.ID)
	})
	if err != nil {
		metrics.RuleVariantsRefreshed.WithLabelValues("error").Inc()
		return err
	}
	metrics.RuleVariantsRefreshed.WithLabelValues("ok").Inc()
	return nil
}

// RefreshDirtyRules 重算所有待重算规则，返回处理数量
func (s *PromotionService) RefreshDirtyRules(limit int) (int, error) {
	ids, err := s.repo.ListDirtyRuleIDs(limit)
	if err != nil {
		return 0, ErrPromotionFetchFailed
	}
	done := 0
	for _, id := range ids {
		if err := s.RefreshRuleVariants(id); err != nil {
			if errors.Is(err, ErrPromotionRuleNotFound) || errors.Is(err, ErrPromotionRuleInvalidPredicate) {
				continue
			}
			return done, err
		}
		done++
	}
	return done, nil
}

func (s *PromotionService) prepareRule(field string, input PromotionRuleInput, verr *ValidationError) (*models.PromotionRule, predicate.Predicate, []uint, error) {
	var cleaned predicate.Predicate
	var raw []byte
	if input.CataloguePredicate != nil {
		p, err := s.cleanPredicate(joinField(field, "cataloguePredicate"), input.CataloguePredicate)
		if err != nil {
			if predicateErr, ok := AsValidationError(err); ok {
				verr.Errors = append(verr.Errors, predicateErr.Errors...)
				return nil, nil, nil, nil
			}
			return nil, nil, nil, err
		}
		cleaned = p
		raw, err = predicate.Marshal(p)
		if err != nil {
			return nil, nil, nil, ErrPromotionCreateFailed
		}
	}
	rewardType := strings.ToLower(strings.TrimSpace(input.RewardValueType))
	var rewardValue models.Money
	if input.RewardValue != nil {
		rewardValue = *input.RewardValue
	}
	channelIDs := uniqueIDs(input.ChannelIDs)
	before := len(verr.Errors)
	if err := s.validateChannels(joinField(field, "channels"), channelIDs, models.DB, verr); err != nil {
		return nil, nil, nil, err
	}
	if err := s.validateReward(field, rewardType, rewardValue, channelIDs, models.DB, verr); err != nil {
		return nil, nil, nil, err
	}
	if len(verr.Errors) > before {
		return nil, nil, nil, nil
	}
	rule := &models.PromotionRule{
		Name:               strings.TrimSpace(input.Name),
		CataloguePredicate: models.RawJSON(raw),
		RewardValueType:    rewardType,
		RewardValue:        rewardValue,
		VariantsDirty:      true,
	}
	return rule, cleaned, channelIDs, nil
}

// cleanPredicate 校验谓词输入，谓词错误转换为字段错误
func (s *PromotionService) cleanPredicate(field string, input *predicate.Input) (predicate.Predicate, error) {
	p, err := predicate.Clean(input, predicate.DefaultErrorCodes,
		predicate.WithResolver(s.catalogue),
		predicate.WithMaxDepth(s.maxDepth),
		predicate.WithRootField(field),
	)
	if err != nil {
		if verr, ok := fromPredicateErrors(err); ok {
			return nil, verr
		}
		logger.Warnw("promotion_predicate_resolve_failed", "field", field, "error", err)
		return nil, ErrCatalogueLookupFailed
	}
	return p, nil
}

func (s *PromotionService) validateChannels(field string, channelIDs []uint, db *gorm.DB, verr *ValidationError) error {
	if len(channelIDs) == 0 {
		return nil
	}
	channels, err := s.channelRepo.WithTx(db).ListByIDs(channelIDs)
	if err != nil {
		return ErrPromotionFetchFailed
	}
	missing := make([]uint, 0)
	for _, id := range channelIDs {
		if !slices.ContainsFunc(channels, func(c models.Channel) bool { return c.ID == id }) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		verr.Add(field, CodeNotFound, "channel not found", formatIDs(missing)...)
	}
	return nil
}

// validateReward 百分比不超过 100；固定金额要求所有渠道币种一致
func (s *PromotionService) validateReward(field, rewardType string, value models.Money, channelIDs []uint, db *gorm.DB, verr *ValidationError) error {
	typeField := joinField(field, "rewardValueType")
	valueField := joinField(field, "rewardValue")
	switch rewardType {
	case "":
		if !value.Decimal.IsZero() {
			verr.Add(typeField, CodeRequired, "reward value type is required when reward value is set")
		}
		return nil
	case models.RewardValueTypePercentage:
		if value.Decimal.LessThanOrEqual(decimal.Zero) || value.Decimal.GreaterThan(decimal.NewFromInt(100)) {
			verr.Add(valueField, CodeInvalid, "percentage reward must be between 0 and 100")
		}
		return nil
	case models.RewardValueTypeFixed:
		if value.Decimal.LessThanOrEqual(decimal.Zero) {
			verr.Add(valueField, CodeInvalid, "reward value must be positive")
		}
		if len(channelIDs) == 0 {
			return nil
		}
		channels, err := s.channelRepo.WithTx(db).ListByIDs(channelIDs)
		if err != nil {
			return ErrPromotionFetchFailed
		}
		currencies := make([]string, 0, 1)
		for _, channel := range channels {
			currency := strings.ToUpper(channel.CurrencyCode)
			if !slices.Contains(currencies, currency) {
				currencies = append(currencies, currency)
			}
		}
		if len(currencies) > 1 {
			verr.Add(typeField, CodeInvalid, "fixed reward requires channels with the same currency", currencies...)
		}
		return nil
	default:
		verr.Add(typeField, CodeInvalid, "unsupported reward value type", rewardType)
		return nil
	}
}

// storedAffected 展开规则已存储谓词的影响范围。
// 谓词无法解析时退回最近一次计算的 SKU 关联；关联本身待重算时无可信范围，返回错误。
func (s *PromotionService) storedAffected(tx *gorm.DB, rule *models.PromotionRule) (predicate.AffectedSet, error) {
	catalogue := s.catalogue.WithTx(tx)
	p, err := storedPredicate(rule)
	if err == nil {
		affected, err := catalogue.Affected(p)
		if err != nil {
			return affected, ErrCatalogueLookupFailed
		}
		return affected, nil
	}
	logger.Warnw("promotion_rule_stored_predicate_invalid", "rule_id", rule.ID, "variants_dirty", rule.VariantsDirty, "error", err)
	affected := predicate.NewAffectedSet()
	if rule.VariantsDirty {
		return affected, ErrPromotionRuleInvalidPredicate
	}
	variantIDs, err := s.repo.WithTx(tx).RuleVariantIDs(rule.ID)
	if err != nil {
		return affected, ErrPromotionFetchFailed
	}
	if len(variantIDs) == 0 {
		return affected, nil
	}
	productIDs, variantIDs, err := catalogue.QueryLeaf(predicate.KindVariant, variantIDs)
	if err != nil {
		return affected, ErrCatalogueLookupFailed
	}
	affected.Add(productIDs, variantIDs)
	return affected, nil
}

// storedPredicate 解析规则保存的谓词；存储值未经存在性校验，目录行可能已删除
func storedPredicate(rule *models.PromotionRule) (predicate.Predicate, error) {
	raw := strings.TrimSpace(string(rule.CataloguePredicate))
	if raw == "" || raw == "null" || raw == "{}" {
		return nil, nil
	}
	input, err := predicate.ParseInput([]byte(raw))
	if err != nil {
		return nil, err
	}
	return predicate.Clean(input, predicate.DefaultErrorCodes)
}

// scheduleVariantRefresh 提交后重算规则 SKU；队列未启用时同步执行
func (s *PromotionService) scheduleVariantRefresh(ruleIDs []uint) {
	ruleIDs = uniqueIDs(ruleIDs)
	if len(ruleIDs) == 0 {
		return
	}
	if s.queue.Enabled() {
		err := s.queue.EnqueuePromotionRuleVariantsRefresh(queue.PromotionRuleVariantsRefreshPayload{RuleIDs: ruleIDs})
		if err == nil {
			return
		}
		logger.Warnw("promotion_rule_variants_enqueue_failed", "rule_ids", ruleIDs, "error", err)
	}
	for _, id := range ruleIDs {
		if err := s.RefreshRuleVariants(id); err != nil {
			logger.Warnw("promotion_rule_variants_refresh_failed", "rule_id", id, "error", err)
		}
	}
}

func (s *PromotionService) emit(eventType string, payload interface{}) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(eventType, payload)
}

func intersectIDs(a, b []uint) []uint {
	result := make([]uint, 0)
	for _, id := range a {
		if slices.Contains(b, id) {
			result = append(result, id)
		}
	}
	return result
}

func formatIDs(ids []uint) []string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, strconv.FormatUint(uint64(id), 10))
	}
	return values
}

func joinField(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
