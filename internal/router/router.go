package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/dujiao-next/promo-engine/internal/cache"
	"github.com/dujiao-next/promo-engine/internal/config"
	adminhandlers "github.com/dujiao-next/promo-engine/internal/http/handlers/admin"
	"github.com/dujiao-next/promo-engine/internal/http/response"
	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const adminPathPrefix = "/api/v1/admin/"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	adminLoginRule := AdminLoginRateLimitRule(cfg)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(NewRedisWindowCounter(cache.Client()), adminLoginRule, KeyByIPAndJSONField(adminLoginKeyField)), adminHandler.AdminLogin)

			authorized := admin.Use(JWTAuthMiddleware(c.AuthService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)
				authorized.GET("/routes", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminRouteCatalog(r))
				})

				// 目录
				authorized.POST("/categories", adminHandler.CreateCategory)
				authorized.GET("/categories/:id/descendants", adminHandler.GetCategoryDescendants)
				authorized.GET("/channels/dirty", adminHandler.GetDirtyChannels)
				authorized.POST("/channels/dirty/clear", adminHandler.ClearDirtyChannels)

				// 优惠券
				authorized.GET("/vouchers", adminHandler.GetVouchers)
				authorized.POST("/vouchers", adminHandler.CreateVoucher)
				authorized.POST("/vouchers/usage/increase", adminHandler.IncreaseVoucherUsage)
				authorized.POST("/vouchers/usage/decrease", adminHandler.DecreaseVoucherUsage)
				authorized.GET("/vouchers/:id", adminHandler.GetVoucher)
				authorized.PUT("/vouchers/:id", adminHandler.UpdateVoucher)
				authorized.DELETE("/vouchers/:id", adminHandler.DeleteVoucher)
				authorized.POST("/vouchers/:id/codes/delete", adminHandler.DeleteVoucherCodes)
				authorized.GET("/vouchers/:id/applies-to", adminHandler.GetVoucherAppliesTo)

				// 促销与规则
				authorized.GET("/promotions", adminHandler.GetPromotions)
				authorized.POST("/promotions", adminHandler.CreatePromotion)
				authorized.GET("/promotions/:id", adminHandler.GetPromotion)
				authorized.PUT("/promotions/:id", adminHandler.UpdatePromotion)
				authorized.DELETE("/promotions/:id", adminHandler.DeletePromotion)
				authorized.POST("/promotions/:id/rules", adminHandler.CreatePromotionRule)
				authorized.GET("/promotion-rules/:rule_id", adminHandler.GetPromotionRule)
				authorized.PUT("/promotion-rules/:rule_id", adminHandler.UpdatePromotionRule)
				authorized.DELETE("/promotion-rules/:rule_id", adminHandler.DeletePromotionRule)
				authorized.GET("/promotion-rules/:rule_id/matches", adminHandler.GetPromotionRuleMatch)
				authorized.POST("/promotion-rules/:rule_id/refresh", adminHandler.RefreshPromotionRuleVariants)

				// 礼品卡
				authorized.GET("/gift-cards", adminHandler.GetGiftCards)
				authorized.POST("/gift-cards", adminHandler.CreateGiftCard)
				authorized.POST("/gift-cards/bulk", adminHandler.BulkCreateGiftCards)
				authorized.POST("/gift-cards/charge", adminHandler.ChargeGiftCard)
				authorized.POST("/gift-cards/tags/cleanup", adminHandler.DeleteGiftCardTags)
				authorized.GET("/gift-cards/:id", adminHandler.GetGiftCard)
				authorized.PUT("/gift-cards/:id", adminHandler.UpdateGiftCard)
				authorized.DELETE("/gift-cards/:id", adminHandler.DeleteGiftCard)
				authorized.GET("/gift-cards/:id/events", adminHandler.GetGiftCardEvents)
				authorized.POST("/gift-cards/:id/activate", adminHandler.ActivateGiftCard)
				authorized.POST("/gift-cards/:id/deactivate", adminHandler.DeactivateGiftCard)
				authorized.POST("/gift-cards/:id/notes", adminHandler.AddGiftCardNote)
			}
		}
	}

	// 健康检查
	r.GET("/healthz", healthHandler)

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	return r
}

func healthHandler(c *gin.Context) {
	status := gin.H{"status": "ok", "redis": cache.Client() != nil}
	if models.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	sqlDB, err := models.DB.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, status)
}

type adminRouteCatalogItem struct {
	Module string `json:"module"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// buildAdminRouteCatalog 列出员工端接口，按模块分组
func buildAdminRouteCatalog(engine *gin.Engine) []adminRouteCatalogItem {
	if engine == nil {
		return []adminRouteCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminRouteCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, adminPathPrefix) {
			continue
		}
		key := method + ":" + item.Path
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, adminRouteCatalogItem{
			Module: deriveAdminRouteModule(item.Path),
			Method: method,
			Path:   item.Path,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Path == items[j].Path {
				return items[i].Method < items[j].Method
			}
			return items[i].Path < items[j].Path
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminRouteModule(path string) string {
	normalized := strings.Trim(strings.TrimPrefix(strings.TrimSpace(path), adminPathPrefix), "/")
	if normalized == "" {
		return "system"
	}
	segment := strings.Split(normalized, "/")[0]
	switch segment {
	case "promotion-rules":
		return "promotions"
	case "login", "password", "routes":
		return "system"
	}
	return segment
}
