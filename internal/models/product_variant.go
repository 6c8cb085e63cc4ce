package models

import (
	"time"
)

// ProductVariant 商品 SKU 表
type ProductVariant struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                                   // 主键
	ProductID uint      `gorm:"not null;index;uniqueIndex:idx_product_variant_sku" json:"product_id"`                   // 商品ID
	SKU       string    `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_product_variant_sku" json:"sku"`   // SKU编码（同商品内唯一）
	Name      string    `gorm:"type:varchar(255)" json:"name"`                                                          // 名称
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                                                // 创建时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
