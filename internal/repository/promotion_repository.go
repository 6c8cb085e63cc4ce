package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	promotionRuleChannelsTable = "promotion_rule_channels"
	promotionRuleVariantsTable = "promotion_rule_variants"
)

// PromotionRepository 促销活动与规则数据访问接口
type PromotionRepository interface {
	GetByID(id uint) (*models.Promotion, error)
	Create(promotion *models.Promotion) error
	Update(promotion *models.Promotion) error
	Delete(id uint) error
	List(filter PromotionListFilter) ([]models.Promotion, int64, error)
	GetRule(id uint) (*models.PromotionRule, error)
	GetRuleForUpdate(id uint) (*models.PromotionRule, error)
	ListRulesByPromotion(promotionID uint) ([]models.PromotionRule, error)
	CreateRule(rule *models.PromotionRule) error
	UpdateRule(rule *models.PromotionRule) error
	DeleteRule(id uint) error
	AddRuleChannels(ruleID uint, channelIDs []uint) error
	RemoveRuleChannels(ruleID uint, channelIDs []uint) error
	RuleChannelIDs(ruleID uint) ([]uint, error)
	ReplaceRuleVariants(ruleID uint, variantIDs []uint) error
	RuleVariantIDs(ruleID uint) ([]uint, error)
	MarkVariantsDirty(ruleIDs []uint) (int64, error)
	ClearVariantsDirty(ruleID uint) error
	ListDirtyRuleIDs(limit int) ([]uint, error)
	WithTx(tx *gorm.DB) *GormPromotionRepository
}

// PromotionListFilter 促销活动列表筛选
type PromotionListFilter struct {
	ID       uint
	Search   string
	Page     int
	PageSize int
}

// GormPromotionRepository GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建促销仓库
func NewPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionRepository) WithTx(tx *gorm.DB) *GormPromotionRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionRepository{db: tx}
}

// GetByID 根据ID获取促销活动（含规则与渠道）
func (r *GormPromotionRepository) GetByID(id uint) (*models.Promotion, error) {
	if id == 0 {
		return nil, nil
	}
	var promotion models.Promotion
	if err := r.db.Preload("Rules", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Preload("Rules.Channels").First(&promotion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

// Create 创建促销活动（不含规则）
func (r *GormPromotionRepository) Create(promotion *models.Promotion) error {
	return r.db.Omit("Rules").Create(promotion).Error
}

// Update 更新促销活动
func (r *GormPromotionRepository) Update(promotion *models.Promotion) error {
	return r.db.Omit("Rules").Save(promotion).Error
}

// Delete 删除促销活动及其规则
func (r *GormPromotionRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	var ruleIDs []uint
	if err := r.db.Model(&models.PromotionRule{}).Where("promotion_id = ?", id).Pluck("id", &ruleIDs).Error; err != nil {
		return err
	}
	for _, ruleID := range ruleIDs {
		if err := r.DeleteRule(ruleID); err != nil {
			return err
		}
	}
	return r.db.Delete(&models.Promotion{}, id).Error
}

// List 获取促销活动列表
func (r *GormPromotionRepository) List(filter PromotionListFilter) ([]models.Promotion, int64, error) {
	var promotions []models.Promotion
	query := r.db.Model(&models.Promotion{})

	if filter.ID != 0 {
		query = query.Where("id = ?", filter.ID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"name", "description"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}

	total, err := findPage(query, filter.Page, filter.PageSize, "id desc", &promotions)
	if err != nil {
		return nil, 0, err
	}
	return promotions, total, nil
}

// GetRule 根据ID获取规则（含渠道）
func (r *GormPromotionRepository) GetRule(id uint) (*models.PromotionRule, error) {
	return r.getRule(r.db, id)
}

// GetRuleForUpdate 加锁获取规则
func (r *GormPromotionRepository) GetRuleForUpdate(id uint) (*models.PromotionRule, error) {
	return r.getRule(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPromotionRepository) getRule(query *gorm.DB, id uint) (*models.PromotionRule, error) {
	if id == 0 {
		return nil, nil
	}
	var rule models.PromotionRule
	if err := query.Preload("Channels", func(db *gorm.DB) *gorm.DB {
		return db.Order("channels.id ASC")
	}).First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// ListRulesByPromotion 查询活动下的规则
func (r *GormPromotionRepository) ListRulesByPromotion(promotionID uint) ([]models.PromotionRule, error) {
	var rules []models.PromotionRule
	if err := r.db.Preload("Channels").Where("promotion_id = ?", promotionID).Order("id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// CreateRule 创建规则（渠道关联单独写入）
func (r *GormPromotionRepository) CreateRule(rule *models.PromotionRule) error {
	if rule == nil {
		return errors.New("invalid promotion rule")
	}
	return r.db.Omit("Channels", "Variants").Create(rule).Error
}

// UpdateRule 更新规则字段
func (r *GormPromotionRepository) UpdateRule(rule *models.PromotionRule) error {
	if rule == nil {
		return errors.New("invalid promotion rule")
	}
	return r.db.Omit("Channels", "Variants").Save(rule).Error
}

// DeleteRule 删除规则及其关联
func (r *GormPromotionRepository) DeleteRule(id uint) error {
	if id == 0 {
		return nil
	}
	if err := r.db.Exec("DELETE FROM "+promotionRuleChannelsTable+" WHERE promotion_rule_id = ?", id).Error; err != nil {
		return err
	}
	if err := r.db.Exec("DELETE FROM "+promotionRuleVariantsTable+" WHERE promotion_rule_id = ?", id).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.PromotionRule{}, id).Error
}

// AddRuleChannels 追加规则渠道（已存在的关联跳过）
func (r *GormPromotionRepository) AddRuleChannels(ruleID uint, channelIDs []uint) error {
	if len(channelIDs) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(channelIDs))
	for _, channelID := range channelIDs {
		rows = append(rows, map[string]interface{}{
			"promotion_rule_id": ruleID,
			"channel_id":        channelID,
		})
	}
	return r.db.Table(promotionRuleChannelsTable).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
}

// RemoveRuleChannels 移除规则渠道
func (r *GormPromotionRepository) RemoveRuleChannels(ruleID uint, channelIDs []uint) error {
	if len(channelIDs) == 0 {
		return nil
	}
	return r.db.Exec(
		"DELETE FROM "+promotionRuleChannelsTable+" WHERE promotion_rule_id = ? AND channel_id IN ?",
		ruleID, channelIDs,
	).Error
}

// RuleChannelIDs 查询规则关联的渠道
func (r *GormPromotionRepository) RuleChannelIDs(ruleID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Table(promotionRuleChannelsTable).
		Where("promotion_rule_id = ?", ruleID).
		Order("channel_id ASC").
		Pluck("channel_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ReplaceRuleVariants 重建规则命中的 SKU 关联
func (r *GormPromotionRepository) ReplaceRuleVariants(ruleID uint, variantIDs []uint) error {
	if err := r.db.Exec("DELETE FROM "+promotionRuleVariantsTable+" WHERE promotion_rule_id = ?", ruleID).Error; err != nil {
		return err
	}
	if len(variantIDs) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(variantIDs))
	for _, variantID := range variantIDs {
		rows = append(rows, map[string]interface{}{
			"promotion_rule_id":  ruleID,
			"product_variant_id": variantID,
		})
	}
	return r.db.Table(promotionRuleVariantsTable).CreateInBatches(rows, 500).Error
}

// RuleVariantIDs 查询规则命中的 SKU
func (r *GormPromotionRepository) RuleVariantIDs(ruleID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Table(promotionRuleVariantsTable).
		Where("promotion_rule_id = ?", ruleID).
		Order("product_variant_id ASC").
		Pluck("product_variant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// MarkVariantsDirty 标记规则的 SKU 关联待重算
func (r *GormPromotionRepository) MarkVariantsDirty(ruleIDs []uint) (int64, error) {
	if len(ruleIDs) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.PromotionRule{}).
		Where("id IN ?", ruleIDs).
		Update("variants_dirty", true)
	return result.RowsAffected, result.Error
}

// ClearVariantsDirty 清除规则的 SKU 关联待重算标记
func (r *GormPromotionRepository) ClearVariantsDirty(ruleID uint) error {
	return r.db.Model(&models.PromotionRule{}).
		Where("id = ?", ruleID).
		Update("variants_dirty", false).Error
}

// ListDirtyRuleIDs 查询待重算的规则
func (r *GormPromotionRepository) ListDirtyRuleIDs(limit int) ([]uint, error) {
	query := r.db.Model(&models.PromotionRule{}).Where("variants_dirty = ?", true).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ids []uint
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
