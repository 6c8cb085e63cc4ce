package predicate

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedID 全局 ID 无法解析
	ErrMalformedID = errors.New("malformed global id")
	// ErrWrongIDType 全局 ID 类型与谓词类型不符
	ErrWrongIDType = errors.New("global id type mismatch")
)

var globalTypeNames = map[Kind]string{
	KindProduct:    "Product",
	KindVariant:    "ProductVariant",
	KindCategory:   "Category",
	KindCollection: "Collection",
}

// TypeName 返回叶子类型对应的全局 ID 类型名
func TypeName(kind Kind) string {
	return globalTypeNames[kind]
}

// EncodeID 生成全局 ID：base64("<Type>:<pk>")
func EncodeID(kind Kind, id uint) string {
	raw := fmt.Sprintf("%s:%d", globalTypeNames[kind], id)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeID 解析全局 ID，纯数字视为内部主键
func DecodeID(kind Kind, raw string) (uint, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, ErrMalformedID
	}
	if pk, err := strconv.ParseUint(value, 10, 64); err == nil {
		if pk == 0 {
			return 0, ErrMalformedID
		}
		return uint(pk), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return 0, ErrMalformedID
	}
	typeName, pkText, ok := strings.Cut(string(decoded), ":")
	if !ok || typeName == "" {
		return 0, ErrMalformedID
	}
	if typeName != globalTypeNames[kind] {
		return 0, ErrWrongIDType
	}
	pk, err := strconv.ParseUint(pkText, 10, 64)
	if err != nil || pk == 0 {
		return 0, ErrMalformedID
	}
	return uint(pk), nil
}
