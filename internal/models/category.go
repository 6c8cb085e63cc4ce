package models

import (
	"time"
)

// Category 分类表（树形，ParentID 为空表示根分类）
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`                       // 主键
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`           // 唯一标识
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`     // 名称
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`           // 父分类ID
	SortOrder int       `gorm:"default:0;index" json:"sort_order"`          // 排序权重
	CreatedAt time.Time `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                 // 更新时间
	Parent    *Category `gorm:"foreignKey:ParentID" json:"parent,omitempty"` // 父分类
}

// TableName 指定表名
func (Category) TableName() string {
	return "categories"
}
