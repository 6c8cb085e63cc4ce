package models

import (
	"time"
)

const (
	RewardValueTypeFixed      = "fixed"
	RewardValueTypePercentage = "percentage"
)

// Promotion 促销活动
type Promotion struct {
	ID          uint            `gorm:"primarykey" json:"id"`                   // 主键
	Name        string          `gorm:"type:varchar(255);not null" json:"name"` // 名称
	Description string          `gorm:"type:text" json:"description"`           // 描述
	StartDate   time.Time       `gorm:"index" json:"start_date"`                // 生效时间
	EndDate     *time.Time      `gorm:"index" json:"end_date"`                  // 失效时间
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt   time.Time       `gorm:"index" json:"updated_at"`                // 更新时间
	Rules       []PromotionRule `gorm:"foreignKey:PromotionID" json:"rules,omitempty"`
}

// TableName 指定表名
func (Promotion) TableName() string {
	return "promotions"
}

// PromotionRule 促销规则：商品目录谓词 + 折扣 + 渠道
type PromotionRule struct {
	ID                 uint             `gorm:"primarykey" json:"id"`                                         // 主键
	PromotionID        uint             `gorm:"not null;index" json:"promotion_id"`                           // 所属活动
	Name               string           `gorm:"type:varchar(255)" json:"name"`                                // 名称
	CataloguePredicate RawJSON          `gorm:"type:json" json:"catalogue_predicate"`                         // 谓词树（输入格式，全局ID）
	RewardValueType    string           `gorm:"type:varchar(16)" json:"reward_value_type"`                    // 折扣类型
	RewardValue        Money            `gorm:"type:decimal(20,4);not null;default:0" json:"reward_value"`    // 折扣数值
	VariantsDirty      bool             `gorm:"not null;default:false;index" json:"variants_dirty"`           // SKU 关联待重算
	CreatedAt          time.Time        `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt          time.Time        `json:"updated_at"`                                                   // 更新时间
	Channels           []Channel        `gorm:"many2many:promotion_rule_channels" json:"channels,omitempty"`  // 适用渠道
	Variants           []ProductVariant `gorm:"many2many:promotion_rule_variants" json:"-"`                   // 命中的 SKU
}

// TableName 指定表名
func (PromotionRule) TableName() string {
	return "promotion_rules"
}

// ChannelIDs 返回规则关联的渠道ID
func (r *PromotionRule) ChannelIDs() []uint {
	ids := make([]uint, 0, len(r.Channels))
	for _, channel := range r.Channels {
		ids = append(ids, channel.ID)
	}
	return ids
}
