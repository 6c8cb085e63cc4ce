package models

import (
	"time"
)

// 订单状态（只读引用，订单生命周期不在本服务内维护）
const (
	OrderStatusDraft       = "draft"
	OrderStatusUnconfirmed = "unconfirmed"
	OrderStatusUnfulfilled = "unfulfilled"
	OrderStatusFulfilled   = "fulfilled"
	OrderStatusCanceled    = "canceled"
)

// Order 订单（券码占用判断所需的最小字段）
type Order struct {
	ID          uint      `gorm:"primarykey" json:"id"`                            // 主键
	Status      string    `gorm:"type:varchar(24);index;not null" json:"status"`   // 订单状态
	VoucherCode string    `gorm:"type:varchar(64);index" json:"voucher_code"`     // 使用的券码
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                         // 创建时间

	Lines []OrderLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"` // 订单行
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderLine 订单行
type OrderLine struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	OrderID     uint   `gorm:"not null;index" json:"order_id"`
	VariantID   uint   `gorm:"index" json:"variant_id"`
	VoucherCode string `gorm:"type:varchar(64);index" json:"voucher_code"`
}

// TableName 指定表名
func (OrderLine) TableName() string {
	return "order_lines"
}

// Checkout 进行中的结算会话
type Checkout struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Token       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	VoucherCode string    `gorm:"type:varchar(64);index" json:"voucher_code"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Checkout) TableName() string {
	return "checkouts"
}
