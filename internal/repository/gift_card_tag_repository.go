package repository

import (
	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GiftCardTagRepository 礼品卡标签数据访问接口
type GiftCardTagRepository interface {
	ListByNames(names []string) ([]models.GiftCardTag, error)
	CreateBatch(tags []models.GiftCardTag) error
	DeleteWithoutCards(tagIDs []uint) (int64, error)
	WithTx(tx *gorm.DB) *GormGiftCardTagRepository
}

// GormGiftCardTagRepository GORM 实现
type GormGiftCardTagRepository struct {
	db *gorm.DB
}

// NewGiftCardTagRepository 创建标签仓库
func NewGiftCardTagRepository(db *gorm.DB) *GormGiftCardTagRepository {
	return &GormGiftCardTagRepository{db: db}
}

// WithTx 绑定事务
func (r *GormGiftCardTagRepository) WithTx(tx *gorm.DB) *GormGiftCardTagRepository {
	if tx == nil {
		return r
	}
	return &GormGiftCardTagRepository{db: tx}
}

// ListByNames 按名称查询标签
func (r *GormGiftCardTagRepository) ListByNames(names []string) ([]models.GiftCardTag, error) {
	if len(names) == 0 {
		return []models.GiftCardTag{}, nil
	}
	var tags []models.GiftCardTag
	if err := r.db.Where("name IN ?", names).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateBatch 批量创建标签（并发下已存在的名称跳过）
func (r *GormGiftCardTagRepository) CreateBatch(tags []models.GiftCardTag) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&tags).Error
}

// DeleteWithoutCards 删除已无关联礼品卡的标签；tagIDs 为空时检查全部标签
func (r *GormGiftCardTagRepository) DeleteWithoutCards(tagIDs []uint) (int64, error) {
	linked := r.db.Table(giftCardTagLinksTable).Select("gift_card_tag_id")
	query := r.db.Where("id NOT IN (?)", linked)
	if len(tagIDs) > 0 {
		query = query.Where("id IN ?", tagIDs)
	}
	result := query.Delete(&models.GiftCardTag{})
	return result.RowsAffected, result.Error
}
