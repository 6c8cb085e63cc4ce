package admin

import (
	"strings"
	"time"

	handlershared "github.com/dujiao-next/promo-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/promo-engine/internal/http/response"
	"github.com/dujiao-next/promo-engine/internal/repository"
	"github.com/dujiao-next/promo-engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PriceRequest 金额与币种
type PriceRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (p PriceRequest) toServiceInput() service.PriceInput {
	return service.PriceInput{Amount: p.Amount, Currency: p.Currency}
}

// BulkCreateGiftCardsRequest 批量发卡请求
type BulkCreateGiftCardsRequest struct {
	Count      int          `json:"count"`
	Balance    PriceRequest `json:"balance"`
	ExpiryDate *time.Time   `json:"expiry_date"`
	Tags       []string     `json:"tags"`
	IsActive   bool         `json:"is_active"`
}

// CreateGiftCardRequest 单张发卡请求
type CreateGiftCardRequest struct {
	Code           *string      `json:"code"`
	Balance        PriceRequest `json:"balance"`
	ExpiryDate     *time.Time   `json:"expiry_date"`
	Tags           []string     `json:"tags"`
	IsActive       bool         `json:"is_active"`
	CustomerUserID *uint        `json:"customer_user_id"`
	Note           string       `json:"note"`
}

// UpdateGiftCardRequest 更新礼品卡请求
type UpdateGiftCardRequest struct {
	Balance        *PriceRequest `json:"balance"`
	ExpiryDate     *time.Time    `json:"expiry_date"`
	ClearExpiry    bool          `json:"clear_expiry_date"`
	AddTags        []string      `json:"add_tags"`
	RemoveTags     []string      `json:"remove_tags"`
	CustomerUserID *uint         `json:"customer_user_id"`
}

// GiftCardNoteRequest 备注请求
type GiftCardNoteRequest struct {
	Message string `json:"message"`
}

// ChargeGiftCardRequest 扣减礼品卡余额请求
type ChargeGiftCardRequest struct {
	Code    string       `json:"code" binding:"required"`
	Amount  PriceRequest `json:"amount"`
	OrderID uint         `json:"order_id"`
}

// DeleteGiftCardTagsRequest 清理标签请求，tag_ids 为空时清理全部孤立标签
type DeleteGiftCardTagsRequest struct {
	TagIDs []uint `json:"tag_ids"`
}

// GetGiftCards 礼品卡列表
func (h *Handler) GetGiftCards(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)

	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_from", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_to", err)
		return
	}
	expiresFrom, err := parseTimeNullable(c.Query("expires_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid expires_from", err)
		return
	}
	expiresTo, err := parseTimeNullable(c.Query("expires_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid expires_to", err)
		return
	}
	var isActive *bool
	switch strings.ToLower(strings.TrimSpace(c.Query("is_active"))) {
	case "true", "1":
		value := true
		isActive = &value
	case "false", "0":
		value := false
		isActive = &value
	}

	cards, total, err := h.GiftCardService.List(repository.GiftCardListFilter{
		Code:        c.Query("code"),
		Tag:         c.Query("tag"),
		Currency:    c.Query("currency"),
		IsActive:    isActive,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
		ExpiresFrom: expiresFrom,
		ExpiresTo:   expiresTo,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardFetchFailed.Error())
		return
	}
	response.SuccessWithPage(c, cards, response.NewPagination(page, pageSize, total))
}

// GetGiftCard 礼品卡详情
func (h *Handler) GetGiftCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	card, err := h.GiftCardService.Get(id)
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardFetchFailed.Error())
		return
	}
	response.Success(c, card)
}

// GetGiftCardEvents 礼品卡变更记录
func (h *Handler) GetGiftCardEvents(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	events, err := h.GiftCardService.ListEvents(id)
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardFetchFailed.Error())
		return
	}
	response.Success(c, events)
}

// BulkCreateGiftCards 批量发卡
func (h *Handler) BulkCreateGiftCards(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req BulkCreateGiftCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	cards, err := h.GiftCardService.BulkCreate(service.BulkCreateGiftCardsInput{
		Count:      req.Count,
		Balance:    req.Balance.toServiceInput(),
		ExpiryDate: req.ExpiryDate,
		Tags:       req.Tags,
		IsActive:   req.IsActive,
		Actor:      actor,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardCreateFailed.Error())
		return
	}
	response.Success(c, gin.H{
		"count":      len(cards),
		"gift_cards": cards,
	})
}

// CreateGiftCard 单张发卡
func (h *Handler) CreateGiftCard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req CreateGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	card, err := h.GiftCardService.Create(service.CreateGiftCardInput{
		Code:           req.Code,
		Balance:        req.Balance.toServiceInput(),
		ExpiryDate:     req.ExpiryDate,
		Tags:           req.Tags,
		IsActive:       req.IsActive,
		CustomerUserID: req.CustomerUserID,
		Note:           req.Note,
		Actor:          actor,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardCreateFailed.Error())
		return
	}
	response.Success(c, card)
}

// UpdateGiftCard 更新礼品卡
func (h *Handler) UpdateGiftCard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	input := service.UpdateGiftCardInput{
		ExpiryDate:     req.ExpiryDate,
		ClearExpiry:    req.ClearExpiry,
		AddTags:        req.AddTags,
		RemoveTags:     req.RemoveTags,
		CustomerUserID: req.CustomerUserID,
		Actor:          actor,
	}
	if req.Balance != nil {
		balance := req.Balance.toServiceInput()
		input.Balance = &balance
	}
	card, err := h.GiftCardService.Update(id, input)
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardUpdateFailed.Error())
		return
	}
	response.Success(c, card)
}

// ActivateGiftCard 启用礼品卡
func (h *Handler) ActivateGiftCard(c *gin.Context) {
	h.setGiftCardActive(c, true)
}

// DeactivateGiftCard 停用礼品卡
func (h *Handler) DeactivateGiftCard(c *gin.Context) {
	h.setGiftCardActive(c, false)
}

func (h *Handler) setGiftCardActive(c *gin.Context, active bool) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	toggle := h.GiftCardService.Deactivate
	if active {
		toggle = h.GiftCardService.Activate
	}
	card, err := toggle(id, actor)
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardUpdateFailed.Error())
		return
	}
	response.Success(c, card)
}

// AddGiftCardNote 添加备注
func (h *Handler) AddGiftCardNote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req GiftCardNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	event, err := h.GiftCardService.AddNote(id, req.Message, actor)
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardUpdateFailed.Error())
		return
	}
	response.Success(c, event)
}

// ChargeGiftCard 订单使用礼品卡扣减余额
func (h *Handler) ChargeGiftCard(c *gin.Context) {
	var req ChargeGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	card, err := h.GiftCardService.Charge(req.Code, req.Amount.toServiceInput(), req.OrderID)
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardUpdateFailed.Error())
		return
	}
	response.Success(c, card)
}

// DeleteGiftCard 删除礼品卡
func (h *Handler) DeleteGiftCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.GiftCardService.Delete(id); err != nil {
		respondServiceError(c, err, service.ErrGiftCardDeleteFailed.Error())
		return
	}
	response.Success(c, nil)
}

// DeleteGiftCardTags 清理无关联礼品卡的标签
func (h *Handler) DeleteGiftCardTags(c *gin.Context) {
	var req DeleteGiftCardTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	deleted, err := h.GiftCardService.DeleteTagsWithoutCards(req.TagIDs)
	if err != nil {
		respondServiceError(c, err, service.ErrGiftCardDeleteFailed.Error())
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}
