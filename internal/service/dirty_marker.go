package service

import (
	"time"

	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/metrics"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/repository"

	"gorm.io/gorm"
)

// DirtyMarkInput 需要标记价格待重算的范围
type DirtyMarkInput struct {
	ChannelIDs []uint
	ProductIDs []uint
	RuleIDs    []uint
}

// DirtyMarkResult 实际标记数量
type DirtyMarkResult struct {
	Channels int64
	Products int64
	Rules    int64
}

// DirtyMarker 记录需要重算折扣价的渠道、商品与规则，重算本身由外部定价任务完成
type DirtyMarker struct {
	channelRepo   repository.ChannelRepository
	productRepo   repository.ProductRepository
	promotionRepo repository.PromotionRepository
	now           func() time.Time
}

// NewDirtyMarker 创建标记器
func NewDirtyMarker(channelRepo repository.ChannelRepository, productRepo repository.ProductRepository, promotionRepo repository.PromotionRepository) *DirtyMarker {
	return &DirtyMarker{
		channelRepo:   channelRepo,
		productRepo:   productRepo,
		promotionRepo: promotionRepo,
		now:           time.Now,
	}
}

// WithTx 绑定事务
func (d *DirtyMarker) WithTx(tx *gorm.DB) *DirtyMarker {
	if tx == nil {
		return d
	}
	return &DirtyMarker{
		channelRepo:   d.channelRepo.WithTx(tx),
		productRepo:   d.productRepo.WithTx(tx),
		promotionRepo: d.promotionRepo.WithTx(tx),
		now:           d.now,
	}
}

// Mark 标记渠道、商品与规则
func (d *DirtyMarker) Mark(input DirtyMarkInput) (DirtyMarkResult, error) {
	var result DirtyMarkResult
	channelIDs := uniqueIDs(input.ChannelIDs)
	productIDs := uniqueIDs(input.ProductIDs)
	ruleIDs := uniqueIDs(input.RuleIDs)

	if len(channelIDs) > 0 {
		n, err := d.channelRepo.MarkDiscountedPricesDirty(channelIDs, d.now())
		if err != nil {
			logger.Warnw("dirty_mark_channels_failed", "channel_ids", channelIDs, "error", err)
			return result, ErrDirtyMarkFailed
		}
		result.Channels = n
	}
	if len(productIDs) > 0 {
		n, err := d.productRepo.MarkDiscountedPriceDirty(productIDs)
		if err != nil {
			logger.Warnw("dirty_mark_products_failed", "product_count", len(productIDs), "error", err)
			return result, ErrDirtyMarkFailed
		}
		result.Products = n
	}
	if len(ruleIDs) > 0 {
		n, err := d.promotionRepo.MarkVariantsDirty(ruleIDs)
		if err != nil {
			logger.Warnw("dirty_mark_rules_failed", "rule_ids", ruleIDs, "error", err)
			return result, ErrDirtyMarkFailed
		}
		result.Rules = n
	}

	metrics.DirtyMarked.WithLabelValues("channel").Add(float64(result.Channels))
	metrics.DirtyMarked.WithLabelValues("product").Add(float64(result.Products))
	metrics.DirtyMarked.WithLabelValues("rule").Add(float64(result.Rules))
	logger.Debugw("dirty_marked",
		"channels", result.Channels,
		"products", result.Products,
		"rules", result.Rules,
	)
	return result, nil
}

// ListDirtyChannels 供定价任务读取待重算渠道
func (d *DirtyMarker) ListDirtyChannels() ([]models.Channel, error) {
	return d.channelRepo.ListDirty()
}

// ClearChannels 定价任务完成后清除标记
func (d *DirtyMarker) ClearChannels(ids []uint) (int64, error) {
	return d.channelRepo.ClearDiscountedPricesDirty(uniqueIDs(ids))
}

// uniqueIDs 去零、去重并保持原顺序
func uniqueIDs(ids []uint) []uint {
	result := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
