package service

import (
	"errors"
	"strings"

	"github.com/dujiao-next/promo-engine/internal/predicate"
)

// 校验错误码
const (
	CodeInvalid             = "invalid"
	CodeRequired            = "required"
	CodeAlreadyExists       = "already_exists"
	CodeDuplicatedInputItem = "duplicated_input_item"
	CodeNotFound            = "not_found"
	CodeGraphQLError        = "graphql_error"
	CodeExpiredGiftCard     = "expired_gift_card"
	CodeVoucherAlreadyUsed  = "voucher_already_used"
)

var (
	ErrNotFound                      = errors.New("资源不存在")
	ErrInvalidCredentials            = errors.New("用户名或密码错误")
	ErrInvalidPassword               = errors.New("原密码错误")
	ErrWeakPassword                  = errors.New("密码强度不足")
	ErrInvalidToken                  = errors.New("无效的 token")
	ErrTokenRevoked                  = errors.New("token 已失效")
	ErrCodeGenerateExhausted         = errors.New("code generation exhausted retries")
	ErrVoucherNotFound               = errors.New("voucher not found")
	ErrVoucherCreateFailed           = errors.New("voucher create failed")
	ErrVoucherUpdateFailed           = errors.New("voucher update failed")
	ErrVoucherDeleteFailed           = errors.New("voucher delete failed")
	ErrVoucherFetchFailed            = errors.New("voucher fetch failed")
	ErrVoucherCodeNotFound           = errors.New("voucher code not found")
	ErrVoucherUsageLimit             = errors.New("voucher usage limit reached")
	ErrPromotionNotFound             = errors.New("promotion not found")
	ErrPromotionRuleNotFound         = errors.New("promotion rule not found")
	ErrPromotionCreateFailed         = errors.New("promotion create failed")
	ErrPromotionUpdateFailed         = errors.New("promotion update failed")
	ErrPromotionDeleteFailed         = errors.New("promotion delete failed")
	ErrPromotionFetchFailed          = errors.New("promotion fetch failed")
	ErrPromotionRuleInvalidPredicate = errors.New("promotion rule stored predicate is invalid")
	ErrGiftCardNotFound              = errors.New("gift card not found")
	ErrGiftCardCreateFailed          = errors.New("gift card create failed")
	ErrGiftCardUpdateFailed          = errors.New("gift card update failed")
	ErrGiftCardDeleteFailed          = errors.New("gift card delete failed")
	ErrGiftCardFetchFailed           = errors.New("gift card fetch failed")
	ErrDirtyMarkFailed               = errors.New("dirty mark failed")
	ErrCatalogueLookupFailed         = errors.New("catalogue lookup failed")
)

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string   `json:"field"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Values  []string `json:"values,omitempty"`
}

// ValidationError 一次操作汇总的全部校验错误
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		text := item.Code
		if item.Field != "" {
			text = item.Field + ": " + text
		}
		if item.Message != "" {
			text += " (" + item.Message + ")"
		}
		if len(item.Values) > 0 {
			text += " [" + strings.Join(item.Values, ", ") + "]"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "; ")
}

// Add 追加字段错误
func (e *ValidationError) Add(field, code, message string, values ...string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code, Message: message, Values: values})
}

// Empty 是否没有错误
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Errors) == 0
}

// OrNil 无错误时返回 nil，避免返回带类型的空指针
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// HasCode 判断是否包含指定错误码
func (e *ValidationError) HasCode(code string) bool {
	if e == nil {
		return false
	}
	for _, item := range e.Errors {
		if item.Code == code {
			return true
		}
	}
	return false
}

// Field 返回指定字段的第一条错误
func (e *ValidationError) Field(field string) *FieldError {
	if e == nil {
		return nil
	}
	for idx := range e.Errors {
		if e.Errors[idx].Field == field {
			return &e.Errors[idx]
		}
	}
	return nil
}

func newValidationError(field, code, message string, values ...string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, code, message, values...)
	return v
}

// HasCode 判断错误链中是否包含指定校验错误码
func HasCode(err error, code string) bool {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.HasCode(code)
	}
	return false
}

// AsValidationError 提取校验错误
func AsValidationError(err error) (*ValidationError, bool) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation, true
	}
	return nil, false
}

// fromPredicateErrors 将谓词校验错误转换为字段错误
func fromPredicateErrors(err error) (*ValidationError, bool) {
	var errs predicate.Errors
	if !errors.As(err, &errs) {
		return nil, false
	}
	v := &ValidationError{}
	for _, item := range errs {
		v.Add(item.Field, item.Code, item.Message, item.IDs...)
	}
	return v, true
}
