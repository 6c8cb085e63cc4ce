package predicate

import (
	"strings"
)

// ErrorCodes 校验失败时使用的错误码，由调用方按所属操作提供
type ErrorCodes struct {
	Invalid      string
	NotFound     string
	GraphQLError string
}

// DefaultErrorCodes 默认错误码
var DefaultErrorCodes = ErrorCodes{
	Invalid:      "invalid",
	NotFound:     "not_found",
	GraphQLError: "graphql_error",
}

// Error 单个节点的校验错误
type Error struct {
	Field   string
	Code    string
	Message string
	IDs     []string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.IDs) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.IDs, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// Errors 汇总的校验错误，每个分支至多一条
type Errors []*Error

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, item := range e {
		parts = append(parts, item.Error())
	}
	return strings.Join(parts, "; ")
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
