package models

import (
	"time"
)

const (
	PromoCodeOwnerVoucher  = "voucher"
	PromoCodeOwnerGiftCard = "gift_card"
)

// PromoCode 优惠码登记表：券码与礼品卡卡号共用同一命名空间，唯一索引是最终防线
type PromoCode struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                    // 主键
	Code      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`       // 码值（大写）
	OwnerType string    `gorm:"type:varchar(24);not null;index:idx_promo_code_owner" json:"owner_type"` // 归属类型
	OwnerID   uint      `gorm:"not null;index:idx_promo_code_owner" json:"owner_id"`     // 归属记录ID
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                 // 登记时间
}

// TableName 指定表名
func (PromoCode) TableName() string {
	return "promo_codes"
}
