package admin

import (
	"github.com/dujiao-next/promo-engine/internal/http/response"
	"github.com/dujiao-next/promo-engine/internal/predicate"
	"github.com/dujiao-next/promo-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	ParentID *uint  `json:"parent_id"`
}

// CreateCategory 创建分类
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	category, err := h.CatalogueService.CreateCategory(service.CreateCategoryInput{
		Slug:     req.Slug,
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondServiceError(c, err, "category create failed")
		return
	}
	response.Success(c, gin.H{
		"category":  category,
		"global_id": predicate.EncodeID(predicate.KindCategory, category.ID),
	})
}

// GetCategoryDescendants 查询分类的全部后代（含自身）
func (h *Handler) GetCategoryDescendants(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ids, err := h.CatalogueService.CategoryDescendants([]uint{id})
	if err != nil {
		respondServiceError(c, err, "category lookup failed")
		return
	}
	response.Success(c, gin.H{"category_ids": ids})
}

// GetDirtyChannels 待重算折扣价的渠道
func (h *Handler) GetDirtyChannels(c *gin.Context) {
	channels, err := h.DirtyMarker.ListDirtyChannels()
	if err != nil {
		respondServiceError(c, err, "channel fetch failed")
		return
	}
	response.Success(c, channels)
}

// ClearDirtyChannelsRequest 清除渠道标记请求
type ClearDirtyChannelsRequest struct {
	ChannelIDs []uint `json:"channel_ids" binding:"required"`
}

// ClearDirtyChannels 定价任务完成后清除渠道标记
func (h *Handler) ClearDirtyChannels(c *gin.Context) {
	var req ClearDirtyChannelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	cleared, err := h.DirtyMarker.ClearChannels(req.ChannelIDs)
	if err != nil {
		respondServiceError(c, err, "channel update failed")
		return
	}
	response.Success(c, gin.H{"cleared": cleared})
}
