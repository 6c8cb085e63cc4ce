package models

import (
	"time"
)

const (
	VoucherTypeEntireOrder     = "entire_order"
	VoucherTypeSpecificProduct = "specific_product"
	VoucherTypeShipping        = "shipping"

	DiscountValueTypeFixed      = "fixed"
	DiscountValueTypePercentage = "percentage"
)

// Voucher 优惠券活动
type Voucher struct {
	ID                   uint          `gorm:"primarykey" json:"id"`                                              // 主键
	Name                 string        `gorm:"type:varchar(255)" json:"name"`                                     // 名称
	Type                 string        `gorm:"type:varchar(32);not null;default:'entire_order'" json:"type"`      // 类型
	DiscountValueType    string        `gorm:"type:varchar(16);not null;default:'fixed'" json:"discount_value_type"` // 折扣类型（fixed/percentage）
	DiscountValue        Money         `gorm:"type:decimal(20,4);not null;default:0" json:"discount_value"`       // 折扣数值
	Currency             string        `gorm:"type:varchar(16)" json:"currency"`                                  // 币种（固定金额时必填）
	MinSpent             Money         `gorm:"type:decimal(20,4);not null;default:0" json:"min_spent"`            // 使用门槛
	StartDate            time.Time     `gorm:"index" json:"start_date"`                                           // 生效时间
	EndDate              *time.Time    `gorm:"index" json:"end_date"`                                             // 失效时间
	UsageLimit           *int          `json:"usage_limit"`                                                       // 总使用上限（为空不限制）
	ApplyOncePerOrder    bool          `gorm:"not null;default:false" json:"apply_once_per_order"`                // 每单仅作用一次
	ApplyOncePerCustomer bool          `gorm:"not null;default:false" json:"apply_once_per_customer"`             // 每位顾客仅可使用一次
	OnlyForStaff         bool          `gorm:"not null;default:false" json:"only_for_staff"`                      // 仅限员工
	SingleUse            bool          `gorm:"not null;default:false" json:"single_use"`                          // 单码模式
	ProductIDs           UintArray     `gorm:"type:json" json:"product_ids"`                                      // 适用商品
	VariantIDs           UintArray     `gorm:"type:json" json:"variant_ids"`                                      // 适用 SKU
	CategoryIDs          UintArray     `gorm:"type:json" json:"category_ids"`                                     // 适用分类
	CollectionIDs        UintArray     `gorm:"type:json" json:"collection_ids"`                                   // 适用合集
	CreatedAt            time.Time     `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt            time.Time     `gorm:"index" json:"updated_at"`                                           // 更新时间
	Codes                []VoucherCode `gorm:"foreignKey:VoucherID" json:"codes,omitempty"`                       // 券码列表
}

// TableName 指定表名
func (Voucher) TableName() string {
	return "vouchers"
}

// VoucherCode 券码
type VoucherCode struct {
	ID         uint      `gorm:"primarykey" json:"id"`                              // 主键
	Code       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"` // 券码
	VoucherID  uint      `gorm:"not null;index" json:"voucher_id"`                  // 所属优惠券
	UsageLimit *int      `json:"usage_limit"`                                       // 单码使用上限（为空不限制）
	Used       int       `gorm:"not null;default:0" json:"used"`                    // 已使用次数
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`            // 是否启用
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                           // 创建时间
}

// TableName 指定表名
func (VoucherCode) TableName() string {
	return "voucher_codes"
}

// VoucherCustomer 每位顾客仅可使用一次时的使用记录
type VoucherCustomer struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	VoucherCodeID uint      `gorm:"not null;uniqueIndex:idx_voucher_customer" json:"voucher_code_id"`
	CustomerEmail string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_voucher_customer" json:"customer_email"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (VoucherCustomer) TableName() string {
	return "voucher_customers"
}
