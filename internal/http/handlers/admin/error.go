package admin

import (
	"errors"

	handlershared "github.com/dujiao-next/promo-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/promo-engine/internal/http/response"
	"github.com/dujiao-next/promo-engine/internal/service"

	"github.com/gin-gonic/gin"
)

var notFoundErrors = []error{
	service.ErrNotFound,
	service.ErrVoucherNotFound,
	service.ErrVoucherCodeNotFound,
	service.ErrPromotionNotFound,
	service.ErrPromotionRuleNotFound,
	service.ErrGiftCardNotFound,
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// respondServiceError 将 service 层错误映射为响应：
// 校验错误 400 并列出全部字段错误，资源不存在 404，码值耗尽或次数用尽 409，其余 500。
func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	if verr, ok := service.AsValidationError(err); ok {
		handlershared.RequestLog(c).Infow("handler_validation_failed", "errors", verr.Error())
		response.Validation(c, "validation failed", verr.Errors)
		return
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			respondError(c, response.CodeNotFound, target.Error(), nil)
			return
		}
	}
	switch {
	case errors.Is(err, service.ErrCodeGenerateExhausted):
		respondError(c, response.CodeConflict, service.ErrCodeGenerateExhausted.Error(), err)
		return
	case errors.Is(err, service.ErrVoucherUsageLimit):
		respondError(c, response.CodeConflict, service.ErrVoucherUsageLimit.Error(), nil)
		return
	case errors.Is(err, service.ErrPromotionRuleInvalidPredicate):
		respondError(c, response.CodeConflict, service.ErrPromotionRuleInvalidPredicate.Error(), err)
		return
	}
	respondError(c, response.CodeInternal, fallbackMsg, err)
}
