package repository

import (
	"errors"

	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository 分类数据访问接口
type CategoryRepository interface {
	GetByID(id uint) (*models.Category, error)
	Create(category *models.Category) error
	ListChildIDs(parentIDs []uint) ([]uint, error)
	ParentIDs(ids []uint) (map[uint]uint, error)
	ExistingIDs(ids []uint) ([]uint, error)
	WithTx(tx *gorm.DB) *GormCategoryRepository
}

// GormCategoryRepository GORM 实现
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓库
func NewCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCategoryRepository) WithTx(tx *gorm.DB) *GormCategoryRepository {
	if tx == nil {
		return r
	}
	return &GormCategoryRepository{db: tx}
}

// GetByID 根据 ID 获取分类
func (r *GormCategoryRepository) GetByID(id uint) (*models.Category, error) {
	if id == 0 {
		return nil, nil
	}
	var category models.Category
	if err := r.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// Create 创建分类
func (r *GormCategoryRepository) Create(category *models.Category) error {
	return r.db.Create(category).Error
}

// ListChildIDs 查询直接子分类
func (r *GormCategoryRepository) ListChildIDs(parentIDs []uint) ([]uint, error) {
	if len(parentIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.Category{}).
		Where("parent_id IN ?", parentIDs).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ParentIDs 查询分类的父分类（根分类不出现在结果中）
func (r *GormCategoryRepository) ParentIDs(ids []uint) (map[uint]uint, error) {
	result := make(map[uint]uint, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.Category
	if err := r.db.Select("id", "parent_id").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.ParentID != nil && *row.ParentID != 0 {
			result[row.ID] = *row.ParentID
		}
	}
	return result, nil
}

// ExistingIDs 返回存在的分类ID
func (r *GormCategoryRepository) ExistingIDs(ids []uint) ([]uint, error) {
	return pluckExistingIDs(r.db, &models.Category{}, ids)
}

// pluckExistingIDs 查询给定表中存在的主键
func pluckExistingIDs(db *gorm.DB, model interface{}, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	var existing []uint
	if err := db.Model(model).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}
