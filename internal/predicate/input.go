package predicate

import (
	"encoding/json"
)

// Input 谓词输入结构（对外格式，ID 为全局 ID）
type Input struct {
	ProductPredicate    *IDsInput `json:"productPredicate,omitempty"`
	VariantPredicate    *IDsInput `json:"variantPredicate,omitempty"`
	CategoryPredicate   *IDsInput `json:"categoryPredicate,omitempty"`
	CollectionPredicate *IDsInput `json:"collectionPredicate,omitempty"`
	And                 []Input   `json:"AND,omitempty"`
	Or                  []Input   `json:"OR,omitempty"`
}

// IDsInput 叶子谓词 ID 列表
type IDsInput struct {
	IDs []string `json:"ids"`
}

type leafField struct {
	kind  Kind
	name  string
	value *IDsInput
}

func (in *Input) leafFields() []leafField {
	candidates := []leafField{
		{kind: KindProduct, name: "productPredicate", value: in.ProductPredicate},
		{kind: KindVariant, name: "variantPredicate", value: in.VariantPredicate},
		{kind: KindCategory, name: "categoryPredicate", value: in.CategoryPredicate},
		{kind: KindCollection, name: "collectionPredicate", value: in.CollectionPredicate},
	}
	result := make([]leafField, 0, 1)
	for _, field := range candidates {
		if field.value != nil {
			result = append(result, field)
		}
	}
	return result
}

// ToInput 将谓词树还原为输入结构
func ToInput(p Predicate) Input {
	switch node := p.(type) {
	case Leaf:
		ids := make([]string, 0, len(node.IDs))
		for _, id := range node.IDs {
			ids = append(ids, EncodeID(node.Kind, id))
		}
		leaf := &IDsInput{IDs: ids}
		var in Input
		switch node.Kind {
		case KindProduct:
			in.ProductPredicate = leaf
		case KindVariant:
			in.VariantPredicate = leaf
		case KindCategory:
			in.CategoryPredicate = leaf
		case KindCollection:
			in.CollectionPredicate = leaf
		}
		return in
	case And:
		children := make([]Input, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, ToInput(child))
		}
		return Input{And: children}
	case Or:
		children := make([]Input, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, ToInput(child))
		}
		return Input{Or: children}
	}
	return Input{}
}

// Marshal 序列化谓词树（输入格式）
func Marshal(p Predicate) ([]byte, error) {
	return json.Marshal(ToInput(p))
}

// ParseInput 解析 JSON 输入
func ParseInput(raw []byte) (*Input, error) {
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	return &in, nil
}
