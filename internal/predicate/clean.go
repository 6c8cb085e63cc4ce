package predicate

import (
	"fmt"
	"strconv"
)

// DefaultMaxDepth 谓词树最大嵌套层数
const DefaultMaxDepth = 20

// Resolver 校验叶子 ID 是否存在，返回不存在的主键
type Resolver interface {
	MissingIDs(kind Kind, ids []uint) ([]uint, error)
}

// ResolverFunc 函数形式的 Resolver
type ResolverFunc func(kind Kind, ids []uint) ([]uint, error)

// MissingIDs 实现 Resolver
func (f ResolverFunc) MissingIDs(kind Kind, ids []uint) ([]uint, error) {
	return f(kind, ids)
}

// Option 清洗选项
type Option func(*cleaner)

// WithResolver 校验 ID 存在性；不设置时只做结构与格式校验
func WithResolver(resolver Resolver) Option {
	return func(c *cleaner) {
		c.resolver = resolver
	}
}

// WithMaxDepth 覆盖最大嵌套层数
func WithMaxDepth(depth int) Option {
	return func(c *cleaner) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithRootField 设置错误路径前缀
func WithRootField(field string) Option {
	return func(c *cleaner) {
		c.rootField = field
	}
}

type cleaner struct {
	codes     ErrorCodes
	resolver  Resolver
	maxDepth  int
	rootField string
}

// Clean 校验原始输入并构建不可变谓词树。
// 结构错误返回 Errors；存储查询失败原样返回。
func Clean(input *Input, codes ErrorCodes, opts ...Option) (Predicate, error) {
	c := &cleaner{codes: fillCodes(codes), maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}
	if input == nil {
		return nil, Errors{{Field: c.rootField, Code: c.codes.Invalid, Message: "predicate is required"}}
	}
	result, errs, err := c.clean(input, c.rootField, 1)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return result, nil
}

func fillCodes(codes ErrorCodes) ErrorCodes {
	if codes.Invalid == "" {
		codes.Invalid = DefaultErrorCodes.Invalid
	}
	if codes.NotFound == "" {
		codes.NotFound = DefaultErrorCodes.NotFound
	}
	if codes.GraphQLError == "" {
		codes.GraphQLError = DefaultErrorCodes.GraphQLError
	}
	return codes
}

func (c *cleaner) invalid(path, message string) Errors {
	return Errors{{Field: path, Code: c.codes.Invalid, Message: message}}
}

func (c *cleaner) clean(node *Input, path string, depth int) (Predicate, Errors, error) {
	if depth > c.maxDepth {
		return nil, c.invalid(path, fmt.Sprintf("predicate nesting exceeds %d levels", c.maxDepth)), nil
	}
	leaves := node.leafFields()
	provided := len(leaves)
	if node.And != nil {
		provided++
	}
	if node.Or != nil {
		provided++
	}
	if provided != 1 {
		return nil, c.invalid(path, "exactly one of a leaf predicate, AND or OR must be provided"), nil
	}

	switch {
	case len(leaves) == 1:
		leaf, errs, err := c.cleanLeaf(leaves[0], joinPath(path, leaves[0].name))
		if err != nil || len(errs) > 0 {
			return nil, errs, err
		}
		return leaf, nil, nil
	case node.And != nil:
		children, errs, err := c.cleanChildren(node.And, joinPath(path, "AND"), depth)
		if err != nil || len(errs) > 0 {
			return nil, errs, err
		}
		return NewAnd(children...), nil, nil
	default:
		children, errs, err := c.cleanChildren(node.Or, joinPath(path, "OR"), depth)
		if err != nil || len(errs) > 0 {
			return nil, errs, err
		}
		return NewOr(children...), nil, nil
	}
}

// 兄弟分支互相独立，错误全部收集；单个分支遇错即停
func (c *cleaner) cleanChildren(nodes []Input, path string, depth int) ([]Predicate, Errors, error) {
	if len(nodes) == 0 {
		return nil, c.invalid(path, "connective requires at least one child"), nil
	}
	children := make([]Predicate, 0, len(nodes))
	var collected Errors
	for idx := range nodes {
		child, errs, err := c.clean(&nodes[idx], joinPath(path, strconv.Itoa(idx)), depth+1)
		if err != nil {
			return nil, nil, err
		}
		if len(errs) > 0 {
			collected = append(collected, errs...)
			continue
		}
		children = append(children, child)
	}
	if len(collected) > 0 {
		return nil, collected, nil
	}
	return children, nil, nil
}

func (c *cleaner) cleanLeaf(field leafField, path string) (Predicate, Errors, error) {
	idsPath := joinPath(path, "ids")
	if len(field.value.IDs) == 0 {
		return nil, c.invalid(idsPath, "ids must not be empty"), nil
	}
	ids := make([]uint, 0, len(field.value.IDs))
	byPK := make(map[uint]string, len(field.value.IDs))
	var malformed []string
	for _, raw := range field.value.IDs {
		pk, err := DecodeID(field.kind, raw)
		if err != nil {
			malformed = append(malformed, raw)
			continue
		}
		if _, ok := byPK[pk]; !ok {
			byPK[pk] = raw
		}
		ids = append(ids, pk)
	}
	if len(malformed) > 0 {
		return nil, Errors{{
			Field:   idsPath,
			Code:    c.codes.GraphQLError,
			Message: fmt.Sprintf("invalid %s ids", TypeName(field.kind)),
			IDs:     malformed,
		}}, nil
	}
	leaf := NewLeaf(field.kind, ids...)
	if c.resolver != nil {
		missing, err := c.resolver.MissingIDs(field.kind, leaf.IDs)
		if err != nil {
			return nil, nil, err
		}
		if len(missing) > 0 {
			refs := make([]string, 0, len(missing))
			for _, pk := range normalizeIDs(missing) {
				refs = append(refs, byPK[pk])
			}
			return nil, Errors{{
				Field:   idsPath,
				Code:    c.codes.NotFound,
				Message: fmt.Sprintf("%s not found", TypeName(field.kind)),
				IDs:     refs,
			}}, nil
		}
	}
	return leaf, nil, nil
}
