package predicate

import (
	"maps"
	"slices"
)

// LeafQuerier 将单个叶子展开为受影响的商品与 SKU
//
// 约定：商品叶子返回商品及其全部 SKU；分类叶子包含全部后代分类下的商品；
// SKU 叶子返回 SKU 及其所属商品。
type LeafQuerier interface {
	QueryLeaf(kind Kind, ids []uint) (productIDs []uint, variantIDs []uint, err error)
}

// AffectedSet 受谓词影响的商品与 SKU 集合
type AffectedSet struct {
	products map[uint]struct{}
	variants map[uint]struct{}
}

// NewAffectedSet 创建空集合
func NewAffectedSet() AffectedSet {
	return AffectedSet{
		products: make(map[uint]struct{}),
		variants: make(map[uint]struct{}),
	}
}

// Add 加入商品与 SKU
func (s AffectedSet) Add(productIDs, variantIDs []uint) {
	for _, id := range productIDs {
		if id != 0 {
			s.products[id] = struct{}{}
		}
	}
	for _, id := range variantIDs {
		if id != 0 {
			s.variants[id] = struct{}{}
		}
	}
}

// Merge 合并另一集合
func (s AffectedSet) Merge(other AffectedSet) {
	maps.Copy(s.products, other.products)
	maps.Copy(s.variants, other.variants)
}

// ProductIDs 有序商品 ID
func (s AffectedSet) ProductIDs() []uint {
	return slices.Sorted(maps.Keys(s.products))
}

// VariantIDs 有序 SKU ID
func (s AffectedSet) VariantIDs() []uint {
	return slices.Sorted(maps.Keys(s.variants))
}

// HasProduct 判断商品是否在集合内
func (s AffectedSet) HasProduct(id uint) bool {
	_, ok := s.products[id]
	return ok
}

// HasVariant 判断 SKU 是否在集合内
func (s AffectedSet) HasVariant(id uint) bool {
	_, ok := s.variants[id]
	return ok
}

// Empty 是否为空
func (s AffectedSet) Empty() bool {
	return len(s.products) == 0 && len(s.variants) == 0
}

// Affected 展开谓词树影响的商品与 SKU。
// OR 取并集；AND 同样取并集（刻意放大），不同子节点可能约束不同维度，
// 求交会漏标价格失效，多标只是多算一次。
func Affected(p Predicate, q LeafQuerier) (AffectedSet, error) {
	result := NewAffectedSet()
	if p == nil {
		return result, nil
	}
	switch node := p.(type) {
	case Leaf:
		if len(node.IDs) == 0 {
			return result, nil
		}
		productIDs, variantIDs, err := q.QueryLeaf(node.Kind, node.IDs)
		if err != nil {
			return result, err
		}
		result.Add(productIDs, variantIDs)
	case And:
		if err := mergeChildren(result, node.Children, q); err != nil {
			return result, err
		}
	case Or:
		if err := mergeChildren(result, node.Children, q); err != nil {
			return result, err
		}
	}
	return result, nil
}

func mergeChildren(into AffectedSet, children []Predicate, q LeafQuerier) error {
	for _, child := range children {
		childSet, err := Affected(child, q)
		if err != nil {
			return err
		}
		into.Merge(childSet)
	}
	return nil
}
