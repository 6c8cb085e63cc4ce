package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
)

// ErrCodeTaken 码值已被登记
var ErrCodeTaken = errors.New("promo code already registered")

// CodeRegistryRepository 优惠码登记表数据访问接口
type CodeRegistryRepository interface {
	Exists(code string) (bool, error)
	ExistingCodes(codes []string) ([]string, error)
	Claim(code, ownerType string, ownerID uint) error
	ClaimBatch(entries []models.PromoCode) error
	Release(codes []string) error
	ReleaseOwner(ownerType string, ownerID uint) error
	Rename(oldCode, newCode string) error
	WithTx(tx *gorm.DB) *GormCodeRegistryRepository
}

// GormCodeRegistryRepository GORM 实现
type GormCodeRegistryRepository struct {
	db *gorm.DB
}

// NewCodeRegistryRepository 创建优惠码登记仓库
func NewCodeRegistryRepository(db *gorm.DB) *GormCodeRegistryRepository {
	return &GormCodeRegistryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCodeRegistryRepository) WithTx(tx *gorm.DB) *GormCodeRegistryRepository {
	if tx == nil {
		return r
	}
	return &GormCodeRegistryRepository{db: tx}
}

// NormalizeCode 统一码值格式（去空白、转大写）
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Exists 判断码值是否已被券码或礼品卡占用
func (r *GormCodeRegistryRepository) Exists(code string) (bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.PromoCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistingCodes 返回已被占用的码值（按输入顺序）
func (r *GormCodeRegistryRepository) ExistingCodes(codes []string) ([]string, error) {
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		if value := NormalizeCode(code); value != "" {
			normalized = append(normalized, value)
		}
	}
	if len(normalized) == 0 {
		return []string{}, nil
	}
	var taken []string
	if err := r.db.Model(&models.PromoCode{}).
		Where("code IN ?", normalized).
		Pluck("code", &taken).Error; err != nil {
		return nil, err
	}
	takenSet := make(map[string]struct{}, len(taken))
	for _, code := range taken {
		takenSet[code] = struct{}{}
	}
	result := make([]string, 0, len(taken))
	for _, code := range normalized {
		if _, ok := takenSet[code]; ok {
			result = append(result, code)
			delete(takenSet, code)
		}
	}
	return result, nil
}

// Claim 登记单个码值，唯一索引冲突返回 ErrCodeTaken
func (r *GormCodeRegistryRepository) Claim(code, ownerType string, ownerID uint) error {
	return r.ClaimBatch([]models.PromoCode{{Code: code, OwnerType: ownerType, OwnerID: ownerID}})
}

// ClaimBatch 批量登记码值
func (r *GormCodeRegistryRepository) ClaimBatch(entries []models.PromoCode) error {
	if len(entries) == 0 {
		return nil
	}
	for idx := range entries {
		entries[idx].Code = NormalizeCode(entries[idx].Code)
		if entries[idx].Code == "" {
			return errors.New("invalid promo code")
		}
	}
	if err := r.db.Create(&entries).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

// Release 释放码值
func (r *GormCodeRegistryRepository) Release(codes []string) error {
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		if value := NormalizeCode(code); value != "" {
			normalized = append(normalized, value)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	return r.db.Where("code IN ?", normalized).Delete(&models.PromoCode{}).Error
}

// ReleaseOwner 释放某条记录名下的全部码值
func (r *GormCodeRegistryRepository) ReleaseOwner(ownerType string, ownerID uint) error {
	if ownerID == 0 {
		return nil
	}
	return r.db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).Delete(&models.PromoCode{}).Error
}

// Rename 替换码值，新码值冲突返回 ErrCodeTaken
func (r *GormCodeRegistryRepository) Rename(oldCode, newCode string) error {
	oldCode = NormalizeCode(oldCode)
	newCode = NormalizeCode(newCode)
	if newCode == "" {
		return errors.New("invalid promo code")
	}
	if oldCode == newCode {
		return nil
	}
	result := r.db.Model(&models.PromoCode{}).Where("code = ?", oldCode).Update("code", newCode)
	if result.Error != nil {
		if IsUniqueViolation(result.Error) {
			return ErrCodeTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
