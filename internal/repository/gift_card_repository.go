package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const giftCardTagLinksTable = "gift_card_tag_links"

// GiftCardListFilter 礼品卡列表筛选
type GiftCardListFilter struct {
	Code        string
	Tag         string
	Currency    string
	IsActive    *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	ExpiresFrom *time.Time
	ExpiresTo   *time.Time
	Page        int
	PageSize    int
}

// GiftCardRepository 礼品卡仓储接口
type GiftCardRepository interface {
	CreateBatch(cards []models.GiftCard) error
	GetByID(id uint) (*models.GiftCard, error)
	GetByIDForUpdate(id uint) (*models.GiftCard, error)
	GetByCodeForUpdate(code string) (*models.GiftCard, error)
	List(filter GiftCardListFilter) ([]models.GiftCard, int64, error)
	Update(card *models.GiftCard) error
	Delete(id uint) error
	LinkTags(cardIDs []uint, tagIDs []uint) error
	UnlinkTags(cardID uint, tagIDs []uint) error
	CreateEvents(events []models.GiftCardEvent) error
	ListEvents(cardID uint) ([]models.GiftCardEvent, error)
	WithTx(tx *gorm.DB) *GormGiftCardRepository
}

// GormGiftCardRepository GORM 礼品卡仓储实现
type GormGiftCardRepository struct {
	db *gorm.DB
}

// NewGiftCardRepository 创建礼品卡仓储
func NewGiftCardRepository(db *gorm.DB) *GormGiftCardRepository {
	return &GormGiftCardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormGiftCardRepository) WithTx(tx *gorm.DB) *GormGiftCardRepository {
	if tx == nil {
		return r
	}
	return &GormGiftCardRepository{db: tx}
}

// CreateBatch 批量创建礼品卡（标签关联单独写入）
func (r *GormGiftCardRepository) CreateBatch(cards []models.GiftCard) error {
	if len(cards) == 0 {
		return nil
	}
	return r.db.Omit("Tags").CreateInBatches(&cards, 200).Error
}

// GetByID 根据 ID 查询礼品卡
func (r *GormGiftCardRepository) GetByID(id uint) (*models.GiftCard, error) {
	return r.first(r.db, "id = ?", id)
}

// GetByIDForUpdate 根据 ID 加锁查询礼品卡
func (r *GormGiftCardRepository) GetByIDForUpdate(id uint) (*models.GiftCard, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// GetByCodeForUpdate 根据卡号加锁查询礼品卡
func (r *GormGiftCardRepository) GetByCodeForUpdate(code string) (*models.GiftCard, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "code = ?", code)
}

func (r *GormGiftCardRepository) first(query *gorm.DB, condition string, value interface{}) (*models.GiftCard, error) {
	var card models.GiftCard
	if err := query.Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("gift_card_tags.name ASC")
	}).Where(condition, value).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// List 查询礼品卡列表
func (r *GormGiftCardRepository) List(filter GiftCardListFilter) ([]models.GiftCard, int64, error) {
	query := r.db.Model(&models.GiftCard{})
	if code := NormalizeCode(filter.Code); code != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"gift_cards.code"})
		query = query.Where(condition, repeatLikeArgs("%"+code+"%", argCount)...)
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = query.Where("gift_cards.id IN (?)",
			r.db.Table(giftCardTagLinksTable).
				Select(giftCardTagLinksTable+".gift_card_id").
				Joins("JOIN gift_card_tags ON gift_card_tags.id = "+giftCardTagLinksTable+".gift_card_tag_id").
				Where("gift_card_tags.name = ?", tag))
	}
	if currency := strings.ToUpper(strings.TrimSpace(filter.Currency)); currency != "" {
		query = query.Where("gift_cards.currency = ?", currency)
	}
	if filter.IsActive != nil {
		query = query.Where("gift_cards.is_active = ?", *filter.IsActive)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("gift_cards.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("gift_cards.created_at <= ?", *filter.CreatedTo)
	}
	if filter.ExpiresFrom != nil {
		query = query.Where("gift_cards.expiry_date >= ?", *filter.ExpiresFrom)
	}
	if filter.ExpiresTo != nil {
		query = query.Where("gift_cards.expiry_date <= ?", *filter.ExpiresTo)
	}

	var cards []models.GiftCard
	total, err := findPage(query, filter.Page, filter.PageSize, "gift_cards.id desc", &cards, "Tags")
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// Update 更新礼品卡字段（标签关联单独维护）
func (r *GormGiftCardRepository) Update(card *models.GiftCard) error {
	if card == nil {
		return errors.New("invalid gift card")
	}
	return r.db.Omit("Tags").Save(card).Error
}

// Delete 删除礼品卡及其标签关联与事件
func (r *GormGiftCardRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	if err := r.db.Exec("DELETE FROM "+giftCardTagLinksTable+" WHERE gift_card_id = ?", id).Error; err != nil {
		return err
	}
	if err := r.db.Where("gift_card_id = ?", id).Delete(&models.GiftCardEvent{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.GiftCard{}, id).Error
}

// LinkTags 批量关联标签（已存在的关联跳过）
func (r *GormGiftCardRepository) LinkTags(cardIDs []uint, tagIDs []uint) error {
	if len(cardIDs) == 0 || len(tagIDs) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(cardIDs)*len(tagIDs))
	for _, cardID := range cardIDs {
		for _, tagID := range tagIDs {
			rows = append(rows, map[string]interface{}{
				"gift_card_id":     cardID,
				"gift_card_tag_id": tagID,
			})
		}
	}
	return r.db.Table(giftCardTagLinksTable).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 500).Error
}

// UnlinkTags 解除标签关联
func (r *GormGiftCardRepository) UnlinkTags(cardID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return r.db.Exec(
		"DELETE FROM "+giftCardTagLinksTable+" WHERE gift_card_id = ? AND gift_card_tag_id IN ?",
		cardID, tagIDs,
	).Error
}

// CreateEvents 写入礼品卡事件
func (r *GormGiftCardRepository) CreateEvents(events []models.GiftCardEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.CreateInBatches(&events, 200).Error
}

// ListEvents 查询礼品卡事件
func (r *GormGiftCardRepository) ListEvents(cardID uint) ([]models.GiftCardEvent, error) {
	var events []models.GiftCardEvent
	if err := r.db.Where("gift_card_id = ?", cardID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
