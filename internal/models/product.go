package models

import (
	"time"
)

// Product 商品表
type Product struct {
	ID                   uint      `gorm:"primarykey" json:"id"`                                 // 主键
	CategoryID           uint      `gorm:"not null;index" json:"category_id"`                    // 分类ID
	Slug                 string    `gorm:"uniqueIndex;not null" json:"slug"`                     // 唯一标识
	Name                 string    `gorm:"type:varchar(255);not null" json:"name"`               // 名称
	IsActive             bool      `gorm:"default:true;index" json:"is_active"`                  // 是否上架
	DiscountedPriceDirty bool      `gorm:"not null;default:false;index" json:"discounted_price_dirty"` // 折后价待重算
	CreatedAt            time.Time `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt            time.Time `json:"updated_at"`                                           // 更新时间

	// 关联
	Category Category         `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // 分类信息
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`  // SKU 列表
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// Collection 商品合集
type Collection struct {
	ID        uint      `gorm:"primarykey" json:"id"`                   // 主键
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`       // 唯一标识
	Name      string    `gorm:"type:varchar(255);not null" json:"name"` // 名称
	CreatedAt time.Time `gorm:"index" json:"created_at"`                // 创建时间
}

// TableName 指定表名
func (Collection) TableName() string {
	return "collections"
}

// CollectionProduct 合集与商品关联
type CollectionProduct struct {
	ID           uint `gorm:"primarykey" json:"id"`
	CollectionID uint `gorm:"not null;uniqueIndex:idx_collection_product" json:"collection_id"`
	ProductID    uint `gorm:"not null;uniqueIndex:idx_collection_product;index" json:"product_id"`
}

// TableName 指定表名
func (CollectionProduct) TableName() string {
	return "collection_products"
}
