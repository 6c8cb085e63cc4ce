package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品/SKU/合集数据访问接口
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	ExistingProductIDs(ids []uint) ([]uint, error)
	ExistingVariantIDs(ids []uint) ([]uint, error)
	ExistingCollectionIDs(ids []uint) ([]uint, error)
	ProductIDsByCategories(categoryIDs []uint) ([]uint, error)
	ProductIDsByCollections(collectionIDs []uint) ([]uint, error)
	ProductIDsByVariants(variantIDs []uint) ([]uint, error)
	VariantIDsByProducts(productIDs []uint) ([]uint, error)
	CollectionIDsByProduct(productID uint) ([]uint, error)
	MarkDiscountedPriceDirty(productIDs []uint) (int64, error)
	WithTx(tx *gorm.DB) *GormProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// GetByID 根据 ID 获取商品（含 SKU）
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	if err := r.db.Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ExistingProductIDs 返回存在的商品ID
func (r *GormProductRepository) ExistingProductIDs(ids []uint) ([]uint, error) {
	return pluckExistingIDs(r.db, &models.Product{}, ids)
}

// ExistingVariantIDs 返回存在的 SKU ID
func (r *GormProductRepository) ExistingVariantIDs(ids []uint) ([]uint, error) {
	return pluckExistingIDs(r.db, &models.ProductVariant{}, ids)
}

// ExistingCollectionIDs 返回存在的合集ID
func (r *GormProductRepository) ExistingCollectionIDs(ids []uint) ([]uint, error) {
	return pluckExistingIDs(r.db, &models.Collection{}, ids)
}

// ProductIDsByCategories 查询分类下的商品（不展开子分类）
func (r *GormProductRepository) ProductIDsByCategories(categoryIDs []uint) ([]uint, error) {
	if len(categoryIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.Product{}).
		Where("category_id IN ?", categoryIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ProductIDsByCollections 查询合集内的商品
func (r *GormProductRepository) ProductIDsByCollections(collectionIDs []uint) ([]uint, error) {
	if len(collectionIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.CollectionProduct{}).
		Where("collection_id IN ?", collectionIDs).
		Distinct().
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ProductIDsByVariants 查询 SKU 所属商品
func (r *GormProductRepository) ProductIDsByVariants(variantIDs []uint) ([]uint, error) {
	if len(variantIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.ProductVariant{}).
		Where("id IN ?", variantIDs).
		Distinct().
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// VariantIDsByProducts 查询商品下全部 SKU
func (r *GormProductRepository) VariantIDsByProducts(productIDs []uint) ([]uint, error) {
	if len(productIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.ProductVariant{}).
		Where("product_id IN ?", productIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CollectionIDsByProduct 查询商品所属合集
func (r *GormProductRepository) CollectionIDsByProduct(productID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.CollectionProduct{}).
		Where("product_id = ?", productID).
		Pluck("collection_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// MarkDiscountedPriceDirty 标记商品折后价待重算
func (r *GormProductRepository) MarkDiscountedPriceDirty(productIDs []uint) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Product{}).
		Where("id IN ?", productIDs).
		Updates(map[string]interface{}{
			"discounted_price_dirty": true,
			"updated_at":             time.Now(),
		})
	return result.RowsAffected, result.Error
}
