package predicate

import (
	"slices"
)

// Kind 叶子谓词类型
type Kind string

const (
	KindProduct    Kind = "product"
	KindVariant    Kind = "variant"
	KindCategory   Kind = "category"
	KindCollection Kind = "collection"
)

// Kinds 全部叶子类型，顺序固定
var Kinds = []Kind{KindProduct, KindVariant, KindCategory, KindCollection}

// Valid 判断叶子类型是否合法
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Predicate 商品目录谓词树节点，只有 Leaf / And / Or 三种实现
type Predicate interface {
	isPredicate()
}

// Leaf 叶子谓词：单一维度的 ID 集合
type Leaf struct {
	Kind Kind
	IDs  []uint
}

// And 合取节点
type And struct {
	Children []Predicate
}

// Or 析取节点
type Or struct {
	Children []Predicate
}

func (Leaf) isPredicate() {}
func (And) isPredicate()  {}
func (Or) isPredicate()   {}

// NewLeaf 创建叶子谓词（ID 去重并排序）
func NewLeaf(kind Kind, ids ...uint) Leaf {
	return Leaf{Kind: kind, IDs: normalizeIDs(ids)}
}

// NewAnd 创建合取节点
func NewAnd(children ...Predicate) And {
	return And{Children: slices.Clone(children)}
}

// NewOr 创建析取节点
func NewOr(children ...Predicate) Or {
	return Or{Children: slices.Clone(children)}
}

// Depth 返回谓词树深度，叶子为 1
func Depth(p Predicate) int {
	var children []Predicate
	switch node := p.(type) {
	case Leaf:
		return 1
	case And:
		children = node.Children
	case Or:
		children = node.Children
	default:
		return 0
	}
	deepest := 0
	for _, child := range children {
		if d := Depth(child); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Leaves 按先序返回全部叶子
func Leaves(p Predicate) []Leaf {
	var result []Leaf
	var walk func(Predicate)
	walk = func(node Predicate) {
		switch n := node.(type) {
		case Leaf:
			result = append(result, n)
		case And:
			for _, child := range n.Children {
				walk(child)
			}
		case Or:
			for _, child := range n.Children {
				walk(child)
			}
		}
	}
	walk(p)
	return result
}

// IDsByKind 汇总每种叶子类型引用的全部 ID
func IDsByKind(p Predicate) map[Kind][]uint {
	grouped := make(map[Kind][]uint)
	for _, leaf := range Leaves(p) {
		grouped[leaf.Kind] = append(grouped[leaf.Kind], leaf.IDs...)
	}
	for kind, ids := range grouped {
		grouped[kind] = normalizeIDs(ids)
	}
	return grouped
}

func normalizeIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{}
	}
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		result = append(result, id)
	}
	slices.Sort(result)
	return slices.Compact(result)
}
