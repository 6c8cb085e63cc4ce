package admin

import (
	"github.com/dujiao-next/promo-engine/internal/provider"
	"github.com/dujiao-next/promo-engine/internal/service"
)

// Handler 员工端接口：优惠券、促销规则、礼品卡与目录维护
type Handler struct {
	AuthService      *service.AuthService
	CatalogueService *service.CatalogueService
	DirtyMarker      *service.DirtyMarker
	VoucherService   *service.VoucherService
	PromotionService *service.PromotionService
	GiftCardService  *service.GiftCardService
}

// New 从容器取出员工端用到的服务
func New(c *provider.Container) *Handler {
	return &Handler{
		AuthService:      c.AuthService,
		CatalogueService: c.CatalogueService,
		DirtyMarker:      c.DirtyMarker,
		VoucherService:   c.VoucherService,
		PromotionService: c.PromotionService,
		GiftCardService:  c.GiftCardService,
	}
}
