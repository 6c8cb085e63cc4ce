package models

import (
	"time"
)

// Admin 后台员工账号
type Admin struct {
	ID           uint       `gorm:"primarykey" json:"id"`                     // 主键
	Username     string     `gorm:"uniqueIndex;not null" json:"username"`     // 账号
	Email        string     `gorm:"type:varchar(255)" json:"email"`           // 邮箱（作为礼品卡创建人记录）
	PasswordHash string     `gorm:"not null" json:"-"`                        // 密码哈希
	TokenVersion uint64     `gorm:"not null;default:0" json:"-"`              // Token 版本（用于全量失效）
	LastLoginAt  *time.Time `json:"last_login_at"`                            // 最后登录时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                  // 创建时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
