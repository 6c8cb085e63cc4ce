package provider

import (
	"time"

	"github.com/dujiao-next/promo-engine/internal/cache"
	"github.com/dujiao-next/promo-engine/internal/config"
	"github.com/dujiao-next/promo-engine/internal/events"
	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/queue"
	"github.com/dujiao-next/promo-engine/internal/repository"
	"github.com/dujiao-next/promo-engine/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	LocalCache  *cache.Local
	Emitter     events.Emitter

	// Repositories
	AdminRepo        repository.AdminRepository
	ChannelRepo      repository.ChannelRepository
	CategoryRepo     repository.CategoryRepository
	ProductRepo      repository.ProductRepository
	OrderRepo        repository.OrderRepository
	CodeRegistryRepo repository.CodeRegistryRepository
	VoucherRepo      repository.VoucherRepository
	PromotionRepo    repository.PromotionRepository
	GiftCardRepo     repository.GiftCardRepository
	GiftCardTagRepo  repository.GiftCardTagRepository

	// Services
	AuthService      *service.AuthService
	CodeGenerator    *service.CodeGenerator
	CatalogueService *service.CatalogueService
	DirtyMarker      *service.DirtyMarker
	VoucherService   *service.VoucherService
	PromotionService *service.PromotionService
	GiftCardService  *service.GiftCardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}
	local, err := cache.NewLocal(&cfg.Cache)
	if err != nil {
		logger.Warnw("provider_init_local_cache_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		LocalCache:  local,
		Emitter:     events.New(&cfg.Events),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.ChannelRepo = repository.NewChannelRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CodeRegistryRepo = repository.NewCodeRegistryRepository(db)
	c.VoucherRepo = repository.NewVoucherRepository(db)
	c.PromotionRepo = repository.NewPromotionRepository(db)
	c.GiftCardRepo = repository.NewGiftCardRepository(db)
	c.GiftCardTagRepo = repository.NewGiftCardTagRepository(db)
}

func (c *Container) initServices() {
	promo := c.Config.Promo
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CodeGenerator = service.NewCodeGenerator(promo.CodeMaxAttempts)
	c.CatalogueService = service.NewCatalogueService(c.CategoryRepo, c.ProductRepo, c.LocalCache,
		time.Duration(promo.CategoryCacheTTLSeconds)*time.Second)
	c.DirtyMarker = service.NewDirtyMarker(c.ChannelRepo, c.ProductRepo, c.PromotionRepo)
	c.VoucherService = service.NewVoucherService(c.VoucherRepo, c.CodeRegistryRepo, c.OrderRepo,
		c.CatalogueService, c.CodeGenerator, c.Emitter, promo.VoucherCodeLength)
	c.PromotionService = service.NewPromotionService(c.PromotionRepo, c.ChannelRepo, c.CatalogueService,
		c.DirtyMarker, c.QueueClient, c.Emitter, promo.PredicateMaxDepth)
	c.GiftCardService = service.NewGiftCardService(c.GiftCardRepo, c.GiftCardTagRepo, c.CodeRegistryRepo,
		c.CodeGenerator, c.Emitter, promo.GiftCardCodeLength, promo.GiftCardBulkMax)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Emitter != nil {
		if err := c.Emitter.Close(); err != nil {
			logger.Warnw("provider_close_emitter_failed", "error", err)
		}
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := c.LocalCache.Close(); err != nil {
		logger.Warnw("provider_close_local_cache_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
