package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/constants"
	"github.com/dujiao-next/promo-engine/internal/events"
	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultGiftCardBulkMax = 10000

// 币种最小单位精度，未列出的按 2 位处理
var currencyPrecision = map[string]int32{
	"JPY": 0, "KRW": 0, "VND": 0, "CLP": 0, "ISK": 0, "UGX": 0, "XAF": 0, "XOF": 0,
	"KWD": 3, "BHD": 3, "JOD": 3, "OMR": 3, "TND": 3, "IQD": 3, "LYD": 3,
}

// CurrencyPrecision 返回币种小数位数
func CurrencyPrecision(currency string) int32 {
	if precision, ok := currencyPrecision[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return precision
	}
	return 2
}

// Actor 操作人（员工）
type Actor struct {
	ID    *uint
	Email string
}

// PriceInput 金额与币种
type PriceInput struct {
	Amount   decimal.Decimal
	Currency string
}

// BulkCreateGiftCardsInput 批量发卡输入
type BulkCreateGiftCardsInput struct {
	Count      int
	Balance    PriceInput
	ExpiryDate *time.Time
	Tags       []string
	IsActive   bool
	Actor      Actor
}

// CreateGiftCardInput 单张发卡输入，Code 为空时自动生成
type CreateGiftCardInput struct {
	Code           *string
	Balance        PriceInput
	ExpiryDate     *time.Time
	Tags           []string
	IsActive       bool
	CustomerUserID *uint
	Note           string
	Actor          Actor
}

// UpdateGiftCardInput 更新礼品卡输入，nil 字段保持不变
type UpdateGiftCardInput struct {
	Balance        *PriceInput
	ExpiryDate     *time.Time
	ClearExpiry    bool
	AddTags        []string
	RemoveTags     []string
	CustomerUserID *uint
	Actor          Actor
}

// GiftCardService 礼品卡发行与变更
type GiftCardService struct {
	repo       repository.GiftCardRepository
	tagRepo    repository.GiftCardTagRepository
	codeRepo   repository.CodeRegistryRepository
	generator  *CodeGenerator
	emitter    events.Emitter
	codeLength int
	bulkMax    int
	now        func() time.Time
}

// NewGiftCardService 创建礼品卡服务
func NewGiftCardService(
	repo repository.GiftCardRepository,
	tagRepo repository.GiftCardTagRepository,
	codeRepo repository.CodeRegistryRepository,
	generator *CodeGenerator,
	emitter events.Emitter,
	codeLength int,
	bulkMax int,
) *GiftCardService {
	if codeLength <= 0 {
		codeLength = DefaultGiftCardCodeLength
	}
	if bulkMax <= 0 {
		bulkMax = defaultGiftCardBulkMax
	}
	return &GiftCardService{
		repo:       repo,
		tagRepo:    tagRepo,
		codeRepo:   codeRepo,
		generator:  generator,
		emitter:    emitter,
		codeLength: codeLength,
		bulkMax:    bulkMax,
		now:        time.Now,
	}
}

// Get 获取礼品卡
func (s *GiftCardService) Get(id uint) (*models.GiftCard, error) {
	card, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrGiftCardFetchFailed
	}
	if card == nil {
		return nil, ErrGiftCardNotFound
	}
	return card, nil
}

// List 获取礼品卡列表
func (s *GiftCardService) List(filter repository.GiftCardListFilter) ([]models.GiftCard, int64, error) {
	filter.Code = repository.NormalizeCode(filter.Code)
	filter.Tag = normalizeTag(filter.Tag)
	filter.Currency = strings.ToUpper(strings.TrimSpace(filter.Currency))
	cards, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, ErrGiftCardFetchFailed
	}
	return cards, total, nil
}

// ListEvents 获取礼品卡变更记录
func (s *GiftCardService) ListEvents(id uint) ([]models.GiftCardEvent, error) {
	events, err := s.repo.ListEvents(id)
	if err != nil {
		return nil, ErrGiftCardFetchFailed
	}
	return events, nil
}

// BulkCreate 批量发行礼品卡：共享余额、币种、过期时间与标签
func (s *GiftCardService) BulkCreate(input BulkCreateGiftCardsInput) ([]models.GiftCard, error) {
	verr := &ValidationError{}
	if input.Count <= 0 {
		verr.Add("count", CodeInvalid, "count must be greater than 0")
	} else if input.Count > s.bulkMax {
		verr.Add("count", CodeInvalid, fmt.Sprintf("count cannot exceed %d", s.bulkMax))
	}
	balance := s.validateBalance("balance", input.Balance, verr)
	s.validateExpiry("expiryDate", input.ExpiryDate, nil, verr)
	tags := normalizeTags(input.Tags)
	if !verr.Empty() {
		return nil, verr
	}

	var cards []models.GiftCard
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		err := claimWithRetry(tx, models.PromoCodeOwnerGiftCard, func(sp *gorm.DB) error {
			registry := s.codeRepo.WithTx(sp)
			codes, err := s.generator.GenerateBatch(registry, s.codeLength, input.Count)
			if err != nil {
				return err
			}
			batch := s.buildCards(codes, balance, input.Balance.Currency, input.ExpiryDate, input.IsActive, input.Actor)
			if err := s.repo.WithTx(sp).CreateBatch(batch); err != nil {
				return err
			}
			if err := registry.ClaimBatch(registryEntries(batch)); err != nil {
				return err
			}
			cards = batch
			return nil
		})
		if err != nil {
			return err
		}
		return s.finishIssue(tx, cards, tags, input.Actor, "")
	})
	if err != nil {
		logger.Warnw("gift_card_bulk_create_failed", "count", input.Count, "error", err)
		if errors.Is(err, ErrCodeGenerateExhausted) {
			return nil, err
		}
		return nil, ErrGiftCardCreateFailed
	}

	for _, card := range cards {
		s.emit(constants.EventGiftCardCreated, giftCardPayload(&card))
	}
	return s.reload(cards)
}

// Create 发行单张礼品卡，指定卡号时需在券码与礼品卡共用的命名空间中可用
func (s *GiftCardService) Create(input CreateGiftCardInput) (*models.GiftCard, error) {
	verr := &ValidationError{}
	balance := s.validateBalance("balance", input.Balance, verr)
	s.validateExpiry("expiryDate", input.ExpiryDate, nil, verr)
	var explicit string
	if input.Code != nil {
		explicit = repository.NormalizeCode(*input.Code)
		if explicit != "" {
			exists, err := s.codeRepo.Exists(explicit)
			if err != nil {
				return nil, ErrGiftCardCreateFailed
			}
			if exists {
				verr.Add("code", CodeAlreadyExists, "promo code already exists", explicit)
			}
		}
	}
	if !verr.Empty() {
		return nil, verr
	}
	tags := normalizeTags(input.Tags)

	var card models.GiftCard
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		write := func(sp *gorm.DB) error {
			registry := s.codeRepo.WithTx(sp)
			code := explicit
			if code == "" {
				generated, err := s.generator.Generate(registry, s.codeLength)
				if err != nil {
					return err
				}
				code = generated
			}
			batch := s.buildCards([]string{code}, balance, input.Balance.Currency, input.ExpiryDate, input.IsActive, input.Actor)
			batch[0].CustomerUserID = input.CustomerUserID
			if err := s.repo.WithTx(sp).CreateBatch(batch); err != nil {
				return err
			}
			if err := registry.ClaimBatch(registryEntries(batch)); err != nil {
				return err
			}
			card = batch[0]
			return nil
		}
		var err error
		if explicit != "" {
			err = write(tx)
			if errors.Is(err, repository.ErrCodeTaken) || repository.IsUniqueViolation(err) {
				return newValidationError("code", CodeAlreadyExists, "promo code already exists", explicit)
			}
		} else {
			err = claimWithRetry(tx, models.PromoCodeOwnerGiftCard, write)
		}
		if err != nil {
			return err
		}
		return s.finishIssue(tx, []models.GiftCard{card}, tags, input.Actor, strings.TrimSpace(input.Note))
	})
	if err != nil {
		if _, ok := AsValidationError(err); ok || errors.Is(err, ErrCodeGenerateExhausted) {
			return nil, err
		}
		logger.Warnw("gift_card_create_failed", "error", err)
		return nil, ErrGiftCardCreateFailed
	}

	s.emit(constants.EventGiftCardCreated, giftCardPayload(&card))
	return s.Get(card.ID)
}

// Update 更新礼品卡余额、过期时间、标签与持卡人
func (s *GiftCardService) Update(id uint, input UpdateGiftCardInput) (*models.GiftCard, error) {
	addTags := normalizeTags(input.AddTags)
	removeTags := normalizeTags(input.RemoveTags)
	if duplicated := intersectStrings(addTags, removeTags); len(duplicated) > 0 {
		verr := &ValidationError{}
		verr.Add("addTags", CodeDuplicatedInputItem, "tag cannot be both added and removed", duplicated...)
		verr.Add("removeTags", CodeDuplicatedInputItem, "tag cannot be both added and removed", duplicated...)
		return nil, verr
	}

	var (
		card        *models.GiftCard
		addedTags   []string
		removedTags []string
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		card, err = repo.GetByIDForUpdate(id)
		if err != nil {
			return ErrGiftCardFetchFailed
		}
		if card == nil {
			return ErrGiftCardNotFound
		}

		verr := &ValidationError{}
		var records []models.GiftCardEvent
		if input.Balance != nil {
			if cur := strings.ToUpper(strings.TrimSpace(input.Balance.Currency)); cur != "" && cur != card.Currency {
				verr.Add("balance.currency", CodeInvalid, "gift card currency cannot be changed", cur)
			} else {
				price := PriceInput{Amount: input.Balance.Amount, Currency: card.Currency}
				amount := s.validateBalance("balance", price, verr)
				if verr.Empty() {
					records = append(records, s.newEvent(card.ID, models.GiftCardEventBalanceReset, input.Actor, models.JSON{
						"currency":            card.Currency,
						"old_initial_balance": card.InitialBalance.String(),
						"old_current_balance": card.CurrentBalance.String(),
						"initial_balance":     amount.String(),
						"current_balance":     amount.String(),
					}))
					card.InitialBalance = models.NewMoneyFromDecimal(amount)
					card.CurrentBalance = models.NewMoneyFromDecimal(amount)
				}
			}
		}
		if input.ClearExpiry && card.ExpiryDate != nil {
			records = append(records, s.newEvent(card.ID, models.GiftCardEventExpiryDateUpdated, input.Actor, models.JSON{
				"old_expiry_date": card.ExpiryDate.Format(time.RFC3339),
				"expiry_date":     nil,
			}))
			card.ExpiryDate = nil
		} else if input.ExpiryDate != nil && !sameInstant(input.ExpiryDate, card.ExpiryDate) {
			if s.validateExpiry("expiryDate", input.ExpiryDate, card.ExpiryDate, verr) {
				params := models.JSON{"expiry_date": input.ExpiryDate.Format(time.RFC3339), "old_expiry_date": nil}
				if card.ExpiryDate != nil {
					params["old_expiry_date"] = card.ExpiryDate.Format(time.RFC3339)
				}
				records = append(records, s.newEvent(card.ID, models.GiftCardEventExpiryDateUpdated, input.Actor, params))
				expiry := *input.ExpiryDate
				card.ExpiryDate = &expiry
			}
		}
		if !verr.Empty() {
			return verr
		}
		if input.CustomerUserID != nil {
			card.CustomerUserID = input.CustomerUserID
		}

		addedTags, removedTags, err = s.applyTagChanges(tx, card, addTags, removeTags)
		if err != nil {
			return err
		}
		if len(addedTags) > 0 || len(removedTags) > 0 {
			records = append(records, s.newEvent(card.ID, models.GiftCardEventTagsUpdated, input.Actor, models.JSON{
				"added_tags":   addedTags,
				"removed_tags": removedTags,
			}))
		}

		card.UpdatedAt = s.now()
		if err := repo.Update(card); err != nil {
			return ErrGiftCardUpdateFailed
		}
		if len(records) > 0 {
			if err := repo.CreateEvents(records); err != nil {
				return ErrGiftCardUpdateFailed
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(constants.EventGiftCardUpdated, giftCardPayload(card))
	if len(addedTags) > 0 || len(removedTags) > 0 {
		s.emit(constants.EventGiftCardTagsUpdated, map[string]interface{}{
			"gift_card_id": id,
			"added_tags":   addedTags,
			"removed_tags": removedTags,
		})
	}
	return s.Get(id)
}

// UpdateBalance 重置余额，币种不可变更
func (s *GiftCardService) UpdateBalance(id uint, amount decimal.Decimal, currency string, actor Actor) (*models.GiftCard, error) {
	return s.Update(id, UpdateGiftCardInput{
		Balance: &PriceInput{Amount: amount, Currency: currency},
		Actor:   actor,
	})
}

// Activate 启用礼品卡；已启用时直接返回且不产生事件
func (s *GiftCardService) Activate(id uint, actor Actor) (*models.GiftCard, error) {
	return s.setActive(id, true, actor)
}

// Deactivate 停用礼品卡；已停用时直接返回且不产生事件
func (s *GiftCardService) Deactivate(id uint, actor Actor) (*models.GiftCard, error) {
	return s.setActive(id, false, actor)
}

func (s *GiftCardService) setActive(id uint, active bool, actor Actor) (*models.GiftCard, error) {
	var (
		card    *models.GiftCard
		flipped bool
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		card, err = repo.GetByIDForUpdate(id)
		if err != nil {
			return ErrGiftCardFetchFailed
		}
		if card == nil {
			return ErrGiftCardNotFound
		}
		if card.IsActive == active {
			return nil
		}
		card.IsActive = active
		card.UpdatedAt = s.now()
		if err := repo.Update(card); err != nil {
			return ErrGiftCardUpdateFailed
		}
		eventType := models.GiftCardEventDeactivated
		if active {
			eventType = models.GiftCardEventActivated
		}
		if err := repo.CreateEvents([]models.GiftCardEvent{s.newEvent(card.ID, eventType, actor, nil)}); err != nil {
			return ErrGiftCardUpdateFailed
		}
		flipped = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if flipped {
		s.emit(constants.EventGiftCardStatusChanged, map[string]interface{}{
			"gift_card_id": card.ID,
			"is_active":    card.IsActive,
		})
	}
	return card, nil
}

// AddNote 添加备注
func (s *GiftCardService) AddNote(id uint, message string, actor Actor) (*models.GiftCardEvent, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, newValidationError("message", CodeRequired, "message cannot be empty")
	}
	card, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	event := s.newEvent(card.ID, models.GiftCardEventNoteAdded, actor, models.JSON{"message": message})
	if err := s.repo.CreateEvents([]models.GiftCardEvent{event}); err != nil {
		return nil, ErrGiftCardUpdateFailed
	}
	return &event, nil
}

// Charge 在订单中使用礼品卡余额：卡需启用且未过期，币种一致，余额不可为负
func (s *GiftCardService) Charge(code string, amount PriceInput, orderID uint) (*models.GiftCard, error) {
	var card *models.GiftCard
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		card, err = repo.GetByCodeForUpdate(code)
		if err != nil {
			return ErrGiftCardFetchFailed
		}
		if card == nil {
			return ErrGiftCardNotFound
		}
		now := s.now()
		if card.IsExpired(now) {
			return newValidationError("code", CodeExpiredGiftCard, "gift card is expired", card.Code)
		}
		if !card.IsActive {
			return newValidationError("code", CodeInvalid, "gift card is not active", card.Code)
		}
		currency := strings.ToUpper(strings.TrimSpace(amount.Currency))
		if currency != card.Currency {
			return newValidationError("amount.currency", CodeInvalid, "currency does not match gift card", currency)
		}
		if !amount.Amount.IsPositive() {
			return newValidationError("amount", CodeInvalid, "amount must be greater than 0")
		}
		if amount.Amount.GreaterThan(card.CurrentBalance.Decimal) {
			return newValidationError("amount", CodeInvalid, "amount exceeds gift card balance")
		}
		card.CurrentBalance = models.NewMoneyFromDecimal(card.CurrentBalance.Decimal.Sub(amount.Amount))
		card.LastUsedOn = &now
		card.UpdatedAt = now
		if err := repo.Update(card); err != nil {
			return ErrGiftCardUpdateFailed
		}
		return repo.CreateEvents([]models.GiftCardEvent{s.newEvent(card.ID, models.GiftCardEventUsedInOrder, Actor{}, models.JSON{
			"order_id":        orderID,
			"amount":          amount.Amount.String(),
			"currency":        card.Currency,
			"current_balance": card.CurrentBalance.String(),
		})})
	})
	if err != nil {
		return nil, err
	}
	s.emit(constants.EventGiftCardUpdated, giftCardPayload(card))
	return card, nil
}

// Delete 删除礼品卡，释放卡号并回收孤立标签
func (s *GiftCardService) Delete(id uint) error {
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		card, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return ErrGiftCardFetchFailed
		}
		if card == nil {
			return ErrGiftCardNotFound
		}
		tagIDs := make([]uint, 0, len(card.Tags))
		for _, tag := range card.Tags {
			tagIDs = append(tagIDs, tag.ID)
		}
		if err := s.codeRepo.WithTx(tx).ReleaseOwner(models.PromoCodeOwnerGiftCard, card.ID); err != nil {
			return ErrGiftCardDeleteFailed
		}
		if err := repo.Delete(card.ID); err != nil {
			return ErrGiftCardDeleteFailed
		}
		if len(tagIDs) > 0 {
			if _, err := s.tagRepo.WithTx(tx).DeleteWithoutCards(tagIDs); err != nil {
				return ErrGiftCardDeleteFailed
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(constants.EventGiftCardDeleted, map[string]interface{}{"gift_card_id": id})
	return nil
}

// DeleteTagsWithoutCards 删除没有关联礼品卡的标签；tagIDs 为空时检查全部标签
func (s *GiftCardService) DeleteTagsWithoutCards(tagIDs []uint) (int64, error) {
	deleted, err := s.tagRepo.DeleteWithoutCards(uniqueIDs(tagIDs))
	if err != nil {
		return 0, ErrGiftCardDeleteFailed
	}
	return deleted, nil
}

// validateBalance 金额必须为正且符合币种精度
func (s *GiftCardService) validateBalance(field string, price PriceInput, verr *ValidationError) decimal.Decimal {
	currency := strings.ToUpper(strings.TrimSpace(price.Currency))
	if currency == "" {
		verr.Add(field+".currency", CodeRequired, "currency is required")
		return decimal.Zero
	}
	if !price.Amount.IsPositive() {
		verr.Add(field+".amount", CodeInvalid, "balance must be greater than 0")
		return decimal.Zero
	}
	precision := CurrencyPrecision(currency)
	if !price.Amount.Equal(price.Amount.Round(precision)) {
		verr.Add(field+".amount", CodeInvalid,
			fmt.Sprintf("%s amount cannot have more than %d decimal places", currency, precision), price.Amount.String())
		return decimal.Zero
	}
	return price.Amount
}

// validateExpiry 过期时间必须晚于当前时间；与原值相同视为未修改
func (s *GiftCardService) validateExpiry(field string, expiry, current *time.Time, verr *ValidationError) bool {
	if expiry == nil || sameInstant(expiry, current) {
		return true
	}
	if !expiry.After(s.now()) {
		verr.Add(field, CodeInvalid, "expiry date must be in the future")
		return false
	}
	return true
}

func (s *GiftCardService) buildCards(codes []string, balance decimal.Decimal, currency string, expiry *time.Time, active bool, actor Actor) []models.GiftCard {
	now := s.now()
	cards := make([]models.GiftCard, 0, len(codes))
	for _, code := range codes {
		card := models.GiftCard{
			Code:           code,
			Currency:       strings.ToUpper(strings.TrimSpace(currency)),
			InitialBalance: models.NewMoneyFromDecimal(balance),
			CurrentBalance: models.NewMoneyFromDecimal(balance),
			IsActive:       active,
			CreatedByID:    actor.ID,
			CreatedByEmail: strings.TrimSpace(actor.Email),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if expiry != nil {
			value := *expiry
			card.ExpiryDate = &value
		}
		cards = append(cards, card)
	}
	return cards
}

// finishIssue 关联标签并写入发行记录
func (s *GiftCardService) finishIssue(tx *gorm.DB, cards []models.GiftCard, tags []string, actor Actor, note string) error {
	if len(cards) == 0 {
		return nil
	}
	cardIDs := make([]uint, 0, len(cards))
	records := make([]models.GiftCardEvent, 0, len(cards)*2)
	for _, card := range cards {
		cardIDs = append(cardIDs, card.ID)
		params := models.JSON{
			"initial_balance": card.InitialBalance.String(),
			"currency":        card.Currency,
		}
		if card.ExpiryDate != nil {
			params["expiry_date"] = card.ExpiryDate.Format(time.RFC3339)
		}
		records = append(records, s.newEvent(card.ID, models.GiftCardEventIssued, actor, params))
		if note != "" {
			records = append(records, s.newEvent(card.ID, models.GiftCardEventNoteAdded, actor, models.JSON{"message": note}))
		}
	}
	if len(tags) > 0 {
		tagRows, err := s.ensureTags(tx, tags)
		if err != nil {
			return err
		}
		tagIDs := make([]uint, 0, len(tagRows))
		for _, tag := range tagRows {
			tagIDs = append(tagIDs, tag.ID)
		}
		if err := s.repo.WithTx(tx).LinkTags(cardIDs, tagIDs); err != nil {
			return err
		}
	}
	return s.repo.WithTx(tx).CreateEvents(records)
}

// ensureTags 只创建缺失的标签，返回全部标签行
func (s *GiftCardService) ensureTags(tx *gorm.DB, names []string) ([]models.GiftCardTag, error) {
	tagRepo := s.tagRepo.WithTx(tx)
	existing, err := tagRepo.ListByNames(names)
	if err != nil {
		return nil, err
	}
	missing := make([]models.GiftCardTag, 0)
	for _, name := range names {
		if !slices.ContainsFunc(existing, func(tag models.GiftCardTag) bool { return tag.Name == name }) {
			missing = append(missing, models.GiftCardTag{Name: name})
		}
	}
	if len(missing) == 0 {
		return existing, nil
	}
	if err := tagRepo.CreateBatch(missing); err != nil {
		return nil, err
	}
	return tagRepo.ListByNames(names)
}

// applyTagChanges 按卡片现有标签计算实际增删的标签，删除后回收孤立标签
func (s *GiftCardService) applyTagChanges(tx *gorm.DB, card *models.GiftCard, addTags, removeTags []string) ([]string, []string, error) {
	current := make([]string, 0, len(card.Tags))
	for _, tag := range card.Tags {
		current = append(current, tag.Name)
	}
	added := make([]string, 0, len(addTags))
	for _, name := range addTags {
		if !slices.Contains(current, name) {
			added = append(added, name)
		}
	}
	removed := intersectStrings(removeTags, current)
	if len(added) == 0 && len(removed) == 0 {
		return added, removed, nil
	}

	repo := s.repo.WithTx(tx)
	tagRepo := s.tagRepo.WithTx(tx)
	if len(added) > 0 {
		tags, err := s.ensureTags(tx, added)
		if err != nil {
			return nil, nil, ErrGiftCardUpdateFailed
		}
		tagIDs := make([]uint, 0, len(tags))
		for _, tag := range tags {
			tagIDs = append(tagIDs, tag.ID)
		}
		if err := repo.LinkTags([]uint{card.ID}, tagIDs); err != nil {
			return nil, nil, ErrGiftCardUpdateFailed
		}
	}
	if len(removed) > 0 {
		tagIDs := make([]uint, 0, len(removed))
		for _, tag := range card.Tags {
			if slices.Contains(removed, tag.Name) {
				tagIDs = append(tagIDs, tag.ID)
			}
		}
		if err := repo.UnlinkTags(card.ID, tagIDs); err != nil {
			return nil, nil, ErrGiftCardUpdateFailed
		}
		if _, err := tagRepo.DeleteWithoutCards(tagIDs); err != nil {
			return nil, nil, ErrGiftCardUpdateFailed
		}
	}
	return added, removed, nil
}

func (s *GiftCardService) newEvent(cardID uint, eventType string, actor Actor, params models.JSON) models.GiftCardEvent {
	if params == nil {
		params = models.JSON{}
	}
	return models.GiftCardEvent{
		GiftCardID: cardID,
		Type:       eventType,
		UserID:     actor.ID,
		Parameters: params,
		CreatedAt:  s.now(),
	}
}

func (s *GiftCardService) reload(cards []models.GiftCard) ([]models.GiftCard, error) {
	result := make([]models.GiftCard, 0, len(cards))
	for _, card := range cards {
		fresh, err := s.Get(card.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, *fresh)
	}
	return result, nil
}

func (s *GiftCardService) emit(eventType string, payload interface{}) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(eventType, payload)
}

func registryEntries(cards []models.GiftCard) []models.PromoCode {
	entries := make([]models.PromoCode, 0, len(cards))
	for _, card := range cards {
		entries = append(entries, models.PromoCode{Code: card.Code, OwnerType: models.PromoCodeOwnerGiftCard, OwnerID: card.ID})
	}
	return entries
}

func giftCardPayload(card *models.GiftCard) map[string]interface{} {
	return map[string]interface{}{
		"gift_card_id":    card.ID,
		"currency":        card.Currency,
		"current_balance": card.CurrentBalance.String(),
		"is_active":       card.IsActive,
	}
}

// normalizeTag 标签统一小写
func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// normalizeTags 小写、去空、去重并保持顺序
func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		name := normalizeTag(tag)
		if name == "" || slices.Contains(result, name) {
			continue
		}
		result = append(result, name)
	}
	return result
}

func intersectStrings(a, b []string) []string {
	result := make([]string, 0)
	for _, item := range a {
		if slices.Contains(b, item) {
			result = append(result, item)
		}
	}
	return result
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
