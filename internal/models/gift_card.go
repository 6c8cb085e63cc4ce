package models

import (
	"time"
)

const (
	GiftCardEventIssued            = "issued"
	GiftCardEventActivated         = "activated"
	GiftCardEventDeactivated       = "deactivated"
	GiftCardEventBalanceReset      = "balance_reset"
	GiftCardEventExpiryDateUpdated = "expiry_date_updated"
	GiftCardEventTagsUpdated       = "tags_updated"
	GiftCardEventNoteAdded         = "note_added"
	GiftCardEventUsedInOrder       = "used_in_order"
)

// GiftCard 礼品卡
type GiftCard struct {
	ID             uint          `gorm:"primarykey" json:"id"`                                       // 主键
	Code           string        `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`          // 卡号
	Currency       string        `gorm:"type:varchar(16);not null" json:"currency"`                  // 币种（发行后不可变）
	InitialBalance Money         `gorm:"type:decimal(20,4);not null" json:"initial_balance"`         // 初始余额
	CurrentBalance Money         `gorm:"type:decimal(20,4);not null" json:"current_balance"`         // 当前余额
	IsActive       bool          `gorm:"not null;index" json:"is_active"`                            // 是否启用
	ExpiryDate     *time.Time    `gorm:"index" json:"expiry_date"`                                   // 过期时间
	CreatedByID    *uint         `gorm:"index" json:"created_by_id,omitempty"`                       // 创建人ID
	CreatedByEmail string        `gorm:"type:varchar(255)" json:"created_by_email,omitempty"`        // 创建人邮箱
	CustomerUserID *uint         `gorm:"index" json:"customer_user_id,omitempty"`                    // 持卡顾客
	LastUsedOn     *time.Time    `json:"last_used_on"`                                               // 最近使用时间
	CreatedAt      time.Time     `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt      time.Time     `gorm:"index" json:"updated_at"`                                    // 更新时间
	Tags           []GiftCardTag `gorm:"many2many:gift_card_tag_links" json:"tags,omitempty"`        // 标签
}

// TableName 指定表名
func (GiftCard) TableName() string {
	return "gift_cards"
}

// IsExpired 判断是否已过期
func (g *GiftCard) IsExpired(now time.Time) bool {
	return g.ExpiryDate != nil && !g.ExpiryDate.After(now)
}

// GiftCardTag 礼品卡标签（小写去重，无关联礼品卡时回收）
type GiftCardTag struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
}

// TableName 指定表名
func (GiftCardTag) TableName() string {
	return "gift_card_tags"
}

// GiftCardEvent 礼品卡变更记录
type GiftCardEvent struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	GiftCardID uint      `gorm:"not null;index" json:"gift_card_id"`
	Type       string    `gorm:"type:varchar(32);not null;index" json:"type"`
	UserID     *uint     `gorm:"index" json:"user_id,omitempty"`
	Parameters JSON      `gorm:"type:json" json:"parameters"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (GiftCardEvent) TableName() string {
	return "gift_card_events"
}
