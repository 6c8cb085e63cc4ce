package models

import (
	"strings"

	"github.com/dujiao-next/promo-engine/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultAdminUsername = "admin"

// InitDefaultAdmin 库中没有任何员工时创建首个账号。
// 未提供密码时生成随机密码并只在日志中输出一次。
func InitDefaultAdmin(username, password string) error {
	var count int64
	if err := DB.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultAdminUsername
	}
	generated := password == ""
	if generated {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := DB.Create(&Admin{Username: username, PasswordHash: string(hash)}).Error; err != nil {
		return err
	}

	if generated {
		logger.Warnw("default_admin_created_with_generated_password", "username", username, "password", password)
		return nil
	}
	logger.Infow("default_admin_created", "username", username)
	return nil
}
