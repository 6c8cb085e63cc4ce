package models

import (
	"time"
)

// Channel 销售渠道
type Channel struct {
	ID                    uint       `gorm:"primarykey" json:"id"`                                        // 主键
	Slug                  string     `gorm:"uniqueIndex;not null" json:"slug"`                            // 唯一标识
	Name                  string     `gorm:"type:varchar(255);not null" json:"name"`                      // 名称
	CurrencyCode          string     `gorm:"type:varchar(16);not null" json:"currency_code"`              // 结算币种
	IsActive              bool       `gorm:"not null;default:true" json:"is_active"`                      // 是否启用
	DiscountedPricesDirty bool       `gorm:"not null;default:false;index" json:"discounted_prices_dirty"` // 折后价待重算
	DirtyMarkedAt         *time.Time `json:"dirty_marked_at,omitempty"`                                   // 最近标记时间
	CreatedAt             time.Time  `gorm:"index" json:"created_at"`                                     // 创建时间
}

// TableName 指定表名
func (Channel) TableName() string {
	return "channels"
}
