package repository

import (
	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单引用查询接口（只读）
type OrderRepository interface {
	FindUsedCodes(codes []string) ([]string, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// FindUsedCodes 返回已被占用的券码：非草稿订单、任意订单行、进行中的结算会话引用过，或已有使用次数
func (r *GormOrderRepository) FindUsedCodes(codes []string) ([]string, error) {
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		if value := NormalizeCode(code); value != "" {
			normalized = append(normalized, value)
		}
	}
	if len(normalized) == 0 {
		return []string{}, nil
	}

	used := make(map[string]struct{})
	collect := func(query *gorm.DB) error {
		var found []string
		if err := query.Pluck("voucher_code", &found).Error; err != nil {
			return err
		}
		for _, code := range found {
			used[code] = struct{}{}
		}
		return nil
	}

	if err := collect(r.db.Model(&models.Order{}).
		Where("voucher_code IN ? AND status <> ?", normalized, models.OrderStatusDraft).
		Distinct()); err != nil {
		return nil, err
	}
	if err := collect(r.db.Model(&models.OrderLine{}).
		Where("voucher_code IN ?", normalized).
		Distinct()); err != nil {
		return nil, err
	}
	if err := collect(r.db.Model(&models.Checkout{}).
		Where("voucher_code IN ?", normalized).
		Distinct()); err != nil {
		return nil, err
	}

	var counted []string
	if err := r.db.Model(&models.VoucherCode{}).
		Where("code IN ? AND used > 0", normalized).
		Pluck("code", &counted).Error; err != nil {
		return nil, err
	}
	for _, code := range counted {
		used[code] = struct{}{}
	}

	result := make([]string, 0, len(used))
	for _, code := range normalized {
		if _, ok := used[code]; ok {
			result = append(result, code)
			delete(used, code)
		}
	}
	return result, nil
}
