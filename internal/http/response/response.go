package response

import (
	"net/http"

	"github.com/dujiao-next/promo-engine/internal/constants"

	"github.com/gin-gonic/gin"
)

// 业务状态码，沿用 HTTP 语义；HTTP 状态恒为 200
const (
	CodeOK              = 0
	CodeBadRequest      = http.StatusBadRequest
	CodeUnauthorized    = http.StatusUnauthorized
	CodeNotFound        = http.StatusNotFound
	CodeConflict        = http.StatusConflict
	CodeTooManyRequests = http.StatusTooManyRequests
	CodeInternal        = http.StatusInternalServerError
)

const msgSuccess = "success"

// Envelope 统一响应结构，pagination 仅出现在列表接口
type Envelope struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// NewPagination 按总数计算分页信息
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPage: totalPage}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{StatusCode: CodeOK, Msg: msgSuccess, Data: data})
}

// SuccessWithPage 列表成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, Envelope{StatusCode: CodeOK, Msg: msgSuccess, Data: data, Pagination: &pagination})
}

// Error 错误响应，data 只携带 request_id
func Error(c *gin.Context, statusCode int, msg string) {
	writeError(c, statusCode, msg, gin.H{})
}

// Unauthorized 401 响应
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Validation 校验失败响应，data.errors 携带全部字段错误
func Validation(c *gin.Context, msg string, fieldErrors interface{}) {
	writeError(c, CodeBadRequest, msg, gin.H{"errors": fieldErrors})
}

func writeError(c *gin.Context, statusCode int, msg string, data gin.H) {
	if requestID := c.GetString(constants.ContextKeyRequestID); requestID != "" {
		data["request_id"] = requestID
	}
	var payload interface{} = data
	if len(data) == 0 {
		payload = nil
	}
	c.JSON(http.StatusOK, Envelope{StatusCode: statusCode, Msg: msg, Data: payload})
}
