package repository

import (
	"time"

	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
)

// ChannelRepository 销售渠道数据访问接口
type ChannelRepository interface {
	ListByIDs(ids []uint) ([]models.Channel, error)
	ListDirty() ([]models.Channel, error)
	MarkDiscountedPricesDirty(ids []uint, at time.Time) (int64, error)
	ClearDiscountedPricesDirty(ids []uint) (int64, error)
	WithTx(tx *gorm.DB) *GormChannelRepository
}

// GormChannelRepository GORM 实现
type GormChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository 创建渠道仓库
func NewChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

// WithTx 绑定事务
func (r *GormChannelRepository) WithTx(tx *gorm.DB) *GormChannelRepository {
	if tx == nil {
		return r
	}
	return &GormChannelRepository{db: tx}
}

// ListByIDs 批量查询渠道
func (r *GormChannelRepository) ListByIDs(ids []uint) ([]models.Channel, error) {
	if len(ids) == 0 {
		return []models.Channel{}, nil
	}
	var channels []models.Channel
	if err := r.db.Where("id IN ?", ids).Order("id ASC").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// ListDirty 查询折后价待重算的渠道
func (r *GormChannelRepository) ListDirty() ([]models.Channel, error) {
	var channels []models.Channel
	if err := r.db.Where("discounted_prices_dirty = ?", true).Order("id ASC").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// MarkDiscountedPricesDirty 标记渠道折后价待重算
func (r *GormChannelRepository) MarkDiscountedPricesDirty(ids []uint, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	result := r.db.Model(&models.Channel{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"discounted_prices_dirty": true,
			"dirty_marked_at":         at,
		})
	return result.RowsAffected, result.Error
}

// ClearDiscountedPricesDirty 清除待重算标记（由外部重算任务调用）
func (r *GormChannelRepository) ClearDiscountedPricesDirty(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Channel{}).
		Where("id IN ?", ids).
		Update("discounted_prices_dirty", false)
	return result.RowsAffected, result.Error
}
