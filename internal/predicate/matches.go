package predicate

import (
	"slices"
)

// Entity 参与匹配的商品目录实体引用
type Entity struct {
	ProductID           uint
	VariantIDs          []uint
	CategoryID          uint
	CategoryAncestorIDs []uint
	CollectionIDs       []uint
}

// Matches 判断实体是否命中谓词。
// 分类叶子按层级匹配：实体所属分类或其任一祖先分类命中即可。
// 没有子节点的连接词不命中任何实体。
func Matches(p Predicate, e Entity) bool {
	switch node := p.(type) {
	case Leaf:
		return leafMatches(node, e)
	case And:
		if len(node.Children) == 0 {
			return false
		}
		for _, child := range node.Children {
			if !Matches(child, e) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range node.Children {
			if Matches(child, e) {
				return true
			}
		}
		return false
	}
	return false
}

func leafMatches(leaf Leaf, e Entity) bool {
	switch leaf.Kind {
	case KindProduct:
		return e.ProductID != 0 && containsID(leaf.IDs, e.ProductID)
	case KindVariant:
		return intersects(leaf.IDs, e.VariantIDs)
	case KindCategory:
		if e.CategoryID != 0 && containsID(leaf.IDs, e.CategoryID) {
			return true
		}
		return intersects(leaf.IDs, e.CategoryAncestorIDs)
	case KindCollection:
		return intersects(leaf.IDs, e.CollectionIDs)
	}
	return false
}

// leaf.IDs 由 NewLeaf 保证有序
func containsID(sorted []uint, id uint) bool {
	_, found := slices.BinarySearch(sorted, id)
	return found
}

func intersects(sorted []uint, ids []uint) bool {
	for _, id := range ids {
		if containsID(sorted, id) {
			return true
		}
	}
	return false
}
