package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/promo-engine/internal/events"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// eventRecorder 记录服务发出的事件
type eventRecorder struct {
	Events []*events.Envelope
}

func (r *eventRecorder) Emit(eventType string, payload interface{}) {
	envelope, err := events.NewEnvelope(eventType, payload)
	if err != nil {
		return
	}
	r.Events = append(r.Events, envelope)
}

func (r *eventRecorder) Close() error {
	return nil
}

func (r *eventRecorder) Count(eventType string) int {
	n := 0
	for _, item := range r.Events {
		if item.EventType == eventType {
			n++
		}
	}
	return n
}

func (r *eventRecorder) Reset() {
	r.Events = nil
}

type serviceTestEnv struct {
	db         *gorm.DB
	recorder   *eventRecorder
	catalogue  *CatalogueService
	marker     *DirtyMarker
	vouchers   *VoucherService
	promotions *PromotionService
	giftCards  *GiftCardService
	codeRepo   *repository.GormCodeRegistryRepository
	promoRepo  *repository.GormPromotionRepository
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	models.DB = db
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newServiceTestEnv(t *testing.T) *serviceTestEnv {
	t.Helper()
	db := setupServiceTestDB(t)

	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	codeRepo := repository.NewCodeRegistryRepository(db)
	recorder := &eventRecorder{}
	generator := NewCodeGenerator(0)

	catalogue := NewCatalogueService(categoryRepo, productRepo, nil, time.Minute)
	marker := NewDirtyMarker(channelRepo, productRepo, promotionRepo)
	giftCards := NewGiftCardService(repository.NewGiftCardRepository(db), repository.NewGiftCardTagRepository(db),
		codeRepo, generator, recorder, 0, 100)
	return &serviceTestEnv{
		db:         db,
		recorder:   recorder,
		catalogue:  catalogue,
		marker:     marker,
		codeRepo:   codeRepo,
		promoRepo:  promotionRepo,
		vouchers:   NewVoucherService(repository.NewVoucherRepository(db), codeRepo, repository.NewOrderRepository(db), catalogue, generator, recorder, 0),
		promotions: NewPromotionService(promotionRepo, channelRepo, catalogue, marker, nil, recorder, 0),
		giftCards:  giftCards,
	}
}

func (e *serviceTestEnv) createChannel(t *testing.T, slug, currency string) models.Channel {
	t.Helper()
	channel := models.Channel{Slug: slug, Name: slug, CurrencyCode: currency, IsActive: true}
	if err := e.db.Create(&channel).Error; err != nil {
		t.Fatalf("create channel failed: %v", err)
	}
	return channel
}

func (e *serviceTestEnv) createCategory(t *testing.T, slug string, parentID *uint) models.Category {
	t.Helper()
	category := models.Category{Slug: slug, Name: slug, ParentID: parentID}
	if err := e.db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	return category
}

// createProduct 创建商品并附带一个 SKU
func (e *serviceTestEnv) createProduct(t *testing.T, slug string, categoryID uint) (models.Product, models.ProductVariant) {
	t.Helper()
	product := models.Product{Slug: slug, Name: slug, CategoryID: categoryID, IsActive: true}
	if err := e.db.Omit("Category", "Variants").Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	variant := models.ProductVariant{ProductID: product.ID, SKU: slug + "-default", Name: slug}
	if err := e.db.Omit("Product").Create(&variant).Error; err != nil {
		t.Fatalf("create variant failed: %v", err)
	}
	return product, variant
}

func uintPtr(v uint) *uint {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}
