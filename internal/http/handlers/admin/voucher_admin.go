package admin

import (
	"strings"
	"time"

	handlershared "github.com/dujiao-next/promo-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/promo-engine/internal/http/response"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/repository"
	"github.com/dujiao-next/promo-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// VoucherCodeRequest 券码请求
type VoucherCodeRequest struct {
	Code       string `json:"code"`
	UsageLimit *int   `json:"usage_limit"`
}

// VoucherFieldsRequest 优惠券字段，缺省字段不修改
type VoucherFieldsRequest struct {
	Name                 *string       `json:"name"`
	Type                 *string       `json:"type"`
	DiscountValueType    *string       `json:"discount_value_type"`
	DiscountValue        *models.Money `json:"discount_value"`
	Currency             *string       `json:"currency"`
	MinSpent             *models.Money `json:"min_spent"`
	StartDate            *time.Time    `json:"start_date"`
	EndDate              *time.Time    `json:"end_date"`
	UsageLimit           *int          `json:"usage_limit"`
	ApplyOncePerOrder    *bool         `json:"apply_once_per_order"`
	ApplyOncePerCustomer *bool         `json:"apply_once_per_customer"`
	OnlyForStaff         *bool         `json:"only_for_staff"`
	SingleUse            *bool         `json:"single_use"`
	Products             []string      `json:"products"`
	Variants             []string      `json:"variants"`
	Categories           []string      `json:"categories"`
	Collections          []string      `json:"collections"`
}

// CreateVoucherRequest 创建优惠券请求
type CreateVoucherRequest struct {
	VoucherFieldsRequest
	Code  *string              `json:"code"`
	Codes []VoucherCodeRequest `json:"codes"`
}

// UpdateVoucherRequest 更新优惠券请求
type UpdateVoucherRequest struct {
	VoucherFieldsRequest
	Code     *string              `json:"code"`
	AddCodes []VoucherCodeRequest `json:"add_codes"`
}

// DeleteVoucherCodesRequest 删除券码请求
type DeleteVoucherCodesRequest struct {
	CodeIDs []uint `json:"code_ids" binding:"required"`
}

// VoucherUsageRequest 券码使用登记请求
type VoucherUsageRequest struct {
	Code          string `json:"code" binding:"required"`
	CustomerEmail string `json:"customer_email"`
}

func (r VoucherFieldsRequest) toServiceInput() service.VoucherInput {
	return service.VoucherInput{
		Name:                 r.Name,
		Type:                 r.Type,
		DiscountValueType:    r.DiscountValueType,
		DiscountValue:        r.DiscountValue,
		Currency:             r.Currency,
		MinSpent:             r.MinSpent,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		UsageLimit:           r.UsageLimit,
		ApplyOncePerOrder:    r.ApplyOncePerOrder,
		ApplyOncePerCustomer: r.ApplyOncePerCustomer,
		OnlyForStaff:         r.OnlyForStaff,
		SingleUse:            r.SingleUse,
		Products:             r.Products,
		Variants:             r.Variants,
		Categories:           r.Categories,
		Collections:          r.Collections,
	}
}

func toVoucherCodeInputs(items []VoucherCodeRequest) []service.VoucherCodeInput {
	if len(items) == 0 {
		return nil
	}
	result := make([]service.VoucherCodeInput, 0, len(items))
	for _, item := range items {
		result = append(result, service.VoucherCodeInput{Code: item.Code, UsageLimit: item.UsageLimit})
	}
	return result
}

// GetVouchers 优惠券列表
func (h *Handler) GetVouchers(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	productID, ok := parseQueryUint(c, "product_id")
	if !ok {
		return
	}
	vouchers, total, err := h.VoucherService.List(repository.VoucherListFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Code:      strings.TrimSpace(c.Query("code")),
		ProductID: productID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrVoucherFetchFailed.Error())
		return
	}
	response.SuccessWithPage(c, vouchers, response.NewPagination(page, pageSize, total))
}

// GetVoucher 优惠券详情
func (h *Handler) GetVoucher(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	voucher, err := h.VoucherService.Get(id)
	if err != nil {
		respondServiceError(c, err, service.ErrVoucherFetchFailed.Error())
		return
	}
	response.Success(c, voucher)
}

// CreateVoucher 创建优惠券
func (h *Handler) CreateVoucher(c *gin.Context) {
	var req CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	voucher, err := h.VoucherService.Create(service.CreateVoucherInput{
		VoucherInput: req.toServiceInput(),
		Code:         req.Code,
		Codes:        toVoucherCodeInputs(req.Codes),
	})
	if err != nil {
		respondServiceError(c, err, service.ErrVoucherCreateFailed.Error())
		return
	}
	response.Success(c, voucher)
}

// UpdateVoucher 更新优惠券
func (h *Handler) UpdateVoucher(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	voucher, err := h.VoucherService.Update(id, service.UpdateVoucherInput{
		VoucherInput: req.toServiceInput(),
		Code:         req.Code,
		AddCodes:     toVoucherCodeInputs(req.AddCodes),
	})
	if err != nil {
		respondServiceError(c, err, service.ErrVoucherUpdateFailed.Error())
		return
	}
	response.Success(c, voucher)
}

// DeleteVoucher 删除优惠券并释放码值
func (h *Handler) DeleteVoucher(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.VoucherService.Delete(id); err != nil {
		respondServiceError(c, err, service.ErrVoucherDeleteFailed.Error())
		return
	}
	response.Success(c, nil)
}

// DeleteVoucherCodes 删除券码
func (h *Handler) DeleteVoucherCodes(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req DeleteVoucherCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	removed, err := h.VoucherService.DeleteCodes(id, req.CodeIDs)
	if err != nil {
		respondServiceError(c, err, service.ErrVoucherUpdateFailed.Error())
		return
	}
	response.Success(c, gin.H{"removed": removed})
}

// GetVoucherAppliesTo 判断优惠券是否适用于商品
func (h *Handler) GetVoucherAppliesTo(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	productID, ok := parseQueryUint(c, "product_id")
	if !ok {
		return
	}
	if productID == 0 {
		respondError(c, response.CodeBadRequest, "product_id is required", nil)
		return
	}
	applies, err := h.VoucherService.AppliesTo(id, productID)
	if err != nil {
		respondServiceError(c, err, service.ErrCatalogueLookupFailed.Error())
		return
	}
	response.Success(c, gin.H{"applies": applies})
}

// IncreaseVoucherUsage 登记一次券码使用
func (h *Handler) IncreaseVoucherUsage(c *gin.Context) {
	var req VoucherUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if err := h.VoucherService.IncreaseUsage(req.Code, req.CustomerEmail); err != nil {
		respondServiceError(c, err, service.ErrVoucherUpdateFailed.Error())
		return
	}
	response.Success(c, nil)
}

// DecreaseVoucherUsage 撤销一次券码使用
func (h *Handler) DecreaseVoucherUsage(c *gin.Context) {
	var req VoucherUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if err := h.VoucherService.DecreaseUsage(req.Code, req.CustomerEmail); err != nil {
		respondServiceError(c, err, service.ErrVoucherUpdateFailed.Error())
		return
	}
	response.Success(c, nil)
}
