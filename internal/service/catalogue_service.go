package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/cache"
	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/predicate"
	"github.com/dujiao-next/promo-engine/internal/repository"

	"gorm.io/gorm"
)

const (
	categoryDescendantsKeyPrefix = "category:descendants:"
	defaultCategoryCacheTTL      = 5 * time.Minute
)

// CatalogueService 商品目录查询：谓词 ID 校验、叶子展开、实体匹配
type CatalogueService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	local        *cache.Local
	ttl          time.Duration
}

// NewCatalogueService 创建商品目录服务
func NewCatalogueService(categoryRepo repository.CategoryRepository, productRepo repository.ProductRepository, local *cache.Local, ttl time.Duration) *CatalogueService {
	if ttl <= 0 {
		ttl = defaultCategoryCacheTTL
	}
	return &CatalogueService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		local:        local,
		ttl:          ttl,
	}
}

// WithTx 绑定事务
func (s *CatalogueService) WithTx(tx *gorm.DB) *CatalogueService {
	if tx == nil {
		return s
	}
	return &CatalogueService{
		categoryRepo: s.categoryRepo.WithTx(tx),
		productRepo:  s.productRepo.WithTx(tx),
		local:        s.local,
		ttl:          s.ttl,
	}
}

// MissingIDs 返回不存在的目录实体主键
func (s *CatalogueService) MissingIDs(kind predicate.Kind, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	var (
		existing []uint
		err      error
	)
	switch kind {
	case predicate.KindProduct:
		existing, err = s.productRepo.ExistingProductIDs(ids)
	case predicate.KindVariant:
		existing, err = s.productRepo.ExistingVariantIDs(ids)
	case predicate.KindCategory:
		existing, err = s.categoryRepo.ExistingIDs(ids)
	case predicate.KindCollection:
		existing, err = s.productRepo.ExistingCollectionIDs(ids)
	default:
		return nil, fmt.Errorf("unknown predicate kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	missing := make([]uint, 0)
	for _, id := range ids {
		if !slices.Contains(existing, id) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// QueryLeaf 展开单个叶子影响的商品与 SKU
func (s *CatalogueService) QueryLeaf(kind predicate.Kind, ids []uint) ([]uint, []uint, error) {
	var (
		productIDs []uint
		variantIDs []uint
		err        error
	)
	switch kind {
	case predicate.KindProduct:
		productIDs = ids
	case predicate.KindVariant:
		variantIDs = ids
		productIDs, err = s.productRepo.ProductIDsByVariants(ids)
		return productIDs, variantIDs, err
	case predicate.KindCategory:
		categoryIDs, err := s.CategoryDescendants(ids)
		if err != nil {
			return nil, nil, err
		}
		productIDs, err = s.productRepo.ProductIDsByCategories(categoryIDs)
		if err != nil {
			return nil, nil, err
		}
	case predicate.KindCollection:
		productIDs, err = s.productRepo.ProductIDsByCollections(ids)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown predicate kind %q", kind)
	}
	variantIDs, err = s.productRepo.VariantIDsByProducts(productIDs)
	if err != nil {
		return nil, nil, err
	}
	return productIDs, variantIDs, nil
}

// Affected 展开谓词树影响的商品与 SKU
func (s *CatalogueService) Affected(p predicate.Predicate) (predicate.AffectedSet, error) {
	return predicate.Affected(p, s)
}

// CategoryDescendants 返回分类及其全部后代分类（完整传递闭包）
func (s *CatalogueService) CategoryDescendants(ids []uint) ([]uint, error) {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		descendants, err := s.categoryDescendants(id)
		if err != nil {
			return nil, err
		}
		for _, child := range descendants {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			result = append(result, child)
		}
	}
	slices.Sort(result)
	return result, nil
}

func (s *CatalogueService) categoryDescendants(id uint) ([]uint, error) {
	key := fmt.Sprintf("%s%d", categoryDescendantsKeyPrefix, id)
	var cached []uint
	if hit, err := s.local.GetJSON(key, &cached); err == nil && hit {
		return cached, nil
	}
	ctx := context.Background()
	if hit, err := cache.GetJSON(ctx, key, &cached); err != nil {
		logger.Warnw("category_descendants_cache_get_failed", "category_id", id, "error", err)
	} else if hit {
		_ = s.local.SetJSON(key, cached)
		return cached, nil
	}

	seen := map[uint]struct{}{id: {}}
	result := []uint{id}
	frontier := []uint{id}
	for len(frontier) > 0 {
		children, err := s.categoryRepo.ListChildIDs(frontier)
		if err != nil {
			return nil, err
		}
		next := make([]uint, 0, len(children))
		for _, child := range children {
			// 数据异常形成环时不重复展开
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			result = append(result, child)
			next = append(next, child)
		}
		frontier = next
	}

	if err := s.local.SetJSON(key, result); err != nil {
		logger.Debugw("category_descendants_local_cache_set_failed", "category_id", id, "error", err)
	}
	if err := cache.SetJSON(ctx, key, result, s.ttl); err != nil {
		logger.Warnw("category_descendants_cache_set_failed", "category_id", id, "error", err)
	}
	return result, nil
}

// CategoryAncestors 返回分类的全部祖先（由近到远）
func (s *CatalogueService) CategoryAncestors(id uint) ([]uint, error) {
	ancestors := make([]uint, 0)
	seen := map[uint]struct{}{id: {}}
	current := id
	for current != 0 {
		parents, err := s.categoryRepo.ParentIDs([]uint{current})
		if err != nil {
			return nil, err
		}
		parent, ok := parents[current]
		if !ok {
			break
		}
		if _, dup := seen[parent]; dup {
			break
		}
		seen[parent] = struct{}{}
		ancestors = append(ancestors, parent)
		current = parent
	}
	return ancestors, nil
}

// CreateCategoryInput 创建分类输入
type CreateCategoryInput struct {
	Slug     string
	Name     string
	ParentID *uint
}

// CreateCategory 创建分类并清理后代缓存
func (s *CatalogueService) CreateCategory(input CreateCategoryInput) (*models.Category, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		verr := &ValidationError{}
		if slug == "" {
			verr.Add("slug", CodeRequired, "slug is required")
		}
		if name == "" {
			verr.Add("name", CodeRequired, "name is required")
		}
		return nil, verr
	}
	if input.ParentID != nil && *input.ParentID != 0 {
		parent, err := s.categoryRepo.GetByID(*input.ParentID)
		if err != nil {
			return nil, ErrCatalogueLookupFailed
		}
		if parent == nil {
			return nil, newValidationError("parent", CodeNotFound, "parent category not found",
				predicate.EncodeID(predicate.KindCategory, *input.ParentID))
		}
	}
	category := &models.Category{Slug: slug, Name: name, ParentID: input.ParentID}
	if err := s.categoryRepo.Create(category); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, newValidationError("slug", CodeAlreadyExists, "category slug already exists", slug)
		}
		return nil, err
	}
	s.InvalidateCategoryTree()
	return category, nil
}

// InvalidateCategoryTree 分类树变更后清理后代缓存
func (s *CatalogueService) InvalidateCategoryTree() {
	s.local.Reset()
	if err := cache.DelByPrefix(context.Background(), categoryDescendantsKeyPrefix); err != nil {
		logger.Warnw("category_descendants_cache_invalidate_failed", "error", err)
	}
}

// EntityFor 构建商品的匹配实体
func (s *CatalogueService) EntityFor(productID uint) (*predicate.Entity, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	entity := &predicate.Entity{
		ProductID:  product.ID,
		CategoryID: product.CategoryID,
	}
	for _, variant := range product.Variants {
		entity.VariantIDs = append(entity.VariantIDs, variant.ID)
	}
	if product.CategoryID != 0 {
		ancestors, err := s.CategoryAncestors(product.CategoryID)
		if err != nil {
			return nil, err
		}
		entity.CategoryAncestorIDs = ancestors
	}
	collectionIDs, err := s.productRepo.CollectionIDsByProduct(product.ID)
	if err != nil {
		return nil, err
	}
	entity.CollectionIDs = collectionIDs
	return entity, nil
}

// MatchesProduct 判断商品是否命中谓词
func (s *CatalogueService) MatchesProduct(p predicate.Predicate, productID uint) (bool, error) {
	entity, err := s.EntityFor(productID)
	if err != nil {
		return false, err
	}
	if entity == nil {
		return false, nil
	}
	return predicate.Matches(p, *entity), nil
}
