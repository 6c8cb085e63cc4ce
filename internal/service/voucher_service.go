package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/constants"
	"github.com/dujiao-next/promo-engine/internal/events"
	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/predicate"
	"github.com/dujiao-next/promo-engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VoucherService 优惠券与券码
type VoucherService struct {
	repo       repository.VoucherRepository
	codeRepo   repository.CodeRegistryRepository
	orderRepo  repository.OrderRepository
	catalogue  *CatalogueService
	generator  *CodeGenerator
	emitter    events.Emitter
	codeLength int
}

// NewVoucherService 创建优惠券服务
func NewVoucherService(
	repo repository.VoucherRepository,
	codeRepo repository.CodeRegistryRepository,
	orderRepo repository.OrderRepository,
	catalogue *CatalogueService,
	generator *CodeGenerator,
	emitter events.Emitter,
	codeLength int,
) *VoucherService {
	if codeLength <= 0 {
		codeLength = DefaultVoucherCodeLength
	}
	return &VoucherService{
		repo:       repo,
		codeRepo:   codeRepo,
		orderRepo:  orderRepo,
		catalogue:  catalogue,
		generator:  generator,
		emitter:    emitter,
		codeLength: codeLength,
	}
}

// VoucherCodeInput 券码输入
type VoucherCodeInput struct {
	Code       string
	UsageLimit *int
}

// VoucherInput 优惠券字段，nil 表示不修改（创建时取默认值）
type VoucherInput struct {
	Name                 *string
	Type                 *string
	DiscountValueType    *string
	DiscountValue        *models.Money
	Currency             *string
	MinSpent             *models.Money
	StartDate            *time.Time
	EndDate              *time.Time
	UsageLimit           *int
	ApplyOncePerOrder    *bool
	ApplyOncePerCustomer *bool
	OnlyForStaff         *bool
	SingleUse            *bool
	Products             []string
	Variants             []string
	Categories           []string
	Collections          []string
}

// CreateVoucherInput 创建优惠券输入，Code 与 Codes 互斥；都为空时自动生成一个券码
type CreateVoucherInput struct {
	VoucherInput
	Code  *string
	Codes []VoucherCodeInput
}

// UpdateVoucherInput 更新优惠券输入
type UpdateVoucherInput struct {
	VoucherInput
	Code     *string
	AddCodes []VoucherCodeInput
}

// Get 获取优惠券（含券码）
func (s *VoucherService) Get(id uint) (*models.Voucher, error) {
	voucher, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrVoucherFetchFailed
	}
	if voucher == nil {
		return nil, ErrVoucherNotFound
	}
	return voucher, nil
}

// List 获取优惠券列表
func (s *VoucherService) List(filter repository.VoucherListFilter) ([]models.Voucher, int64, error) {
	filter.Code = repository.NormalizeCode(filter.Code)
	vouchers, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, ErrVoucherFetchFailed
	}
	return vouchers, total, nil
}

// Create 创建优惠券及其券码，整体在一个事务内完成
func (s *VoucherService) Create(input CreateVoucherInput) (*models.Voucher, error) {
	verr := &ValidationError{}
	voucher := &models.Voucher{
		Type:              models.VoucherTypeEntireOrder,
		DiscountValueType: models.DiscountValueTypeFixed,
		StartDate:         time.Now(),
	}
	if err := s.applyInput(models.DB, voucher, input.VoucherInput, verr); err != nil {
		return nil, err
	}

	if input.Code != nil && len(input.Codes) > 0 {
		verr.Add("code", CodeInvalid, "cannot combine code and codes")
		verr.Add("codes", CodeInvalid, "cannot combine code and codes")
		return nil, verr
	}

	var explicit []models.VoucherCode
	switch {
	case len(input.Codes) > 0:
		explicit = s.validateNewCodes(models.DB, "codes", input.Codes, verr)
	case input.Code != nil && repository.NormalizeCode(*input.Code) != "":
		code := repository.NormalizeCode(*input.Code)
		exists, err := s.codeRepo.Exists(code)
		if err != nil {
			return nil, ErrVoucherCreateFailed
		}
		if exists {
			verr.Add("code", CodeAlreadyExists, "promo code already exists", code)
		}
		explicit = []models.VoucherCode{{Code: code, IsActive: true}}
	}
	if voucher.SingleUse && len(explicit) > 1 {
		verr.Add("codes", CodeInvalid, "single use voucher must have exactly one code")
	}
	if !verr.Empty() {
		return nil, verr
	}

	var created []string
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(voucher); err != nil {
			return ErrVoucherCreateFailed
		}
		if len(explicit) > 0 {
			codes, err := s.insertExplicitCodes(tx, voucher.ID, "codes", explicit)
			if err != nil {
				return err
			}
			created = codes
			return nil
		}
		code, err := s.insertGeneratedCode(tx, voucher.ID)
		if err != nil {
			return err
		}
		created = []string{code}
		return nil
	})
	if err != nil {
		logger.Warnw("voucher_create_failed", "name", voucher.Name, "error", err)
		return nil, err
	}

	s.emit(constants.EventVoucherCreated, map[string]interface{}{
		"voucher_id": voucher.ID,
		"type":       voucher.Type,
		"single_use": voucher.SingleUse,
	})
	s.emit(constants.EventVoucherCodesCreated, map[string]interface{}{
		"voucher_id": voucher.ID,
		"codes":      created,
	})
	return s.Get(voucher.ID)
}

// Update 更新优惠券：单码时可替换券码；可追加新券码，已有券码不会被修改
func (s *VoucherService) Update(id uint, input UpdateVoucherInput) (*models.Voucher, error) {
	var added []string
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		voucher, err := repo.GetByID(id)
		if err != nil {
			return ErrVoucherFetchFailed
		}
		if voucher == nil {
			return ErrVoucherNotFound
		}
		originalSingleUse := voucher.SingleUse

		verr := &ValidationError{}
		if err := s.applyInput(tx, voucher, input.VoucherInput, verr); err != nil {
			return err
		}
		if !verr.Empty() {
			return verr
		}
		if voucher.SingleUse != originalSingleUse {
			target := *voucher
			target.SingleUse = originalSingleUse
			if err := s.guardSingleUseChange(tx, &target, voucher.SingleUse); err != nil {
				return err
			}
		}

		codeCount := len(voucher.Codes)
		if input.Code != nil {
			newCode := repository.NormalizeCode(*input.Code)
			switch {
			case newCode == "":
				verr.Add("code", CodeRequired, "code cannot be empty")
			case codeCount > 1:
				verr.Add("code", CodeInvalid, "cannot update code when multiple codes exist")
			case codeCount == 1 && voucher.Codes[0].Code != newCode:
				if err := s.replaceSingleCode(tx, &voucher.Codes[0], newCode, verr); err != nil {
					return err
				}
			}
		}

		var additions []models.VoucherCode
		if len(input.AddCodes) > 0 {
			additions = s.validateNewCodes(tx, "addCodes", input.AddCodes, verr)
			if voucher.SingleUse && codeCount+len(additions) > 1 {
				verr.Add("addCodes", CodeInvalid, "single use voucher must have exactly one code")
			}
		}
		if !verr.Empty() {
			return verr
		}

		if err := repo.Update(voucher); err != nil {
			return ErrVoucherUpdateFailed
		}
		if len(additions) > 0 {
			codes, err := s.insertExplicitCodes(tx, voucher.ID, "addCodes", additions)
			if err != nil {
				return err
			}
			added = codes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(constants.EventVoucherUpdated, map[string]interface{}{"voucher_id": id})
	if len(added) > 0 {
		s.emit(constants.EventVoucherCodesCreated, map[string]interface{}{
			"voucher_id": id,
			"codes":      added,
		})
	}
	return s.Get(id)
}

// GuardSingleUseChange 切换单码模式前检查：任一券码已被订单、订单行或结账引用时拒绝
func (s *VoucherService) GuardSingleUseChange(voucher *models.Voucher, newSingleUse bool) error {
	return s.guardSingleUseChange(models.DB, voucher, newSingleUse)
}

func (s *VoucherService) guardSingleUseChange(tx *gorm.DB, voucher *models.Voucher, newSingleUse bool) error {
	if voucher == nil {
		return ErrVoucherNotFound
	}
	if voucher.SingleUse == newSingleUse {
		return nil
	}
	codes, err := s.repo.WithTx(tx).ListCodes(voucher.ID)
	if err != nil {
		return ErrVoucherFetchFailed
	}
	if len(codes) == 0 {
		return nil
	}
	values := make([]string, 0, len(codes))
	for _, code := range codes {
		values = append(values, code.Code)
	}
	used, err := s.orderRepo.WithTx(tx).FindUsedCodes(values)
	if err != nil {
		return ErrVoucherFetchFailed
	}
	if len(used) > 0 {
		return newValidationError("singleUse", CodeVoucherAlreadyUsed,
			"cannot change single use option when voucher codes have been used", used...)
	}
	if newSingleUse && len(codes) > 1 {
		return newValidationError("singleUse", CodeInvalid, "single use voucher must have exactly one code")
	}
	return nil
}

// DeleteCodes 整条删除券码并释放码值；不能删除最后一个券码
func (s *VoucherService) DeleteCodes(voucherID uint, codeIDs []uint) ([]models.VoucherCode, error) {
	codeIDs = uniqueIDs(codeIDs)
	if len(codeIDs) == 0 {
		return []models.VoucherCode{}, nil
	}
	var deleted []models.VoucherCode
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		voucher, err := repo.GetByID(voucherID)
		if err != nil {
			return ErrVoucherFetchFailed
		}
		if voucher == nil {
			return ErrVoucherNotFound
		}
		remaining := 0
		for _, code := range voucher.Codes {
			if !contains(codeIDs, code.ID) {
				remaining++
			}
		}
		if remaining == 0 {
			return newValidationError("ids", CodeInvalid, "voucher must keep at least one code")
		}
		rows, err := repo.DeleteCodes(voucherID, codeIDs)
		if err != nil {
			return ErrVoucherDeleteFailed
		}
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			values = append(values, row.Code)
		}
		if err := s.codeRepo.WithTx(tx).Release(values); err != nil {
			return ErrVoucherDeleteFailed
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		codes := make([]string, 0, len(deleted))
		for _, row := range deleted {
			codes = append(codes, row.Code)
		}
		s.emit(constants.EventVoucherCodesDeleted, map[string]interface{}{
			"voucher_id": voucherID,
			"codes":      codes,
		})
	}
	return deleted, nil
}

// Delete 删除优惠券、券码与码值登记
func (s *VoucherService) Delete(id uint) error {
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		voucher, err := repo.GetByID(id)
		if err != nil {
			return ErrVoucherFetchFailed
		}
		if voucher == nil {
			return ErrVoucherNotFound
		}
		if err := s.codeRepo.WithTx(tx).ReleaseOwner(models.PromoCodeOwnerVoucher, voucher.ID); err != nil {
			return ErrVoucherDeleteFailed
		}
		if err := repo.Delete(voucher.ID); err != nil {
			return ErrVoucherDeleteFailed
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(constants.EventVoucherDeleted, map[string]interface{}{"voucher_id": id})
	return nil
}

// IncreaseUsage 记录一次券码使用
func (s *VoucherService) IncreaseUsage(code, customerEmail string) error {
	email := strings.ToLower(strings.TrimSpace(customerEmail))
	return models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.GetCodeForUpdate(code)
		if err != nil {
			return ErrVoucherFetchFailed
		}
		if row == nil {
			return ErrVoucherCodeNotFound
		}
		if !row.IsActive {
			return newValidationError("code", CodeInvalid, "voucher code is not active", row.Code)
		}
		voucher, err := repo.GetByID(row.VoucherID)
		if err != nil {
			return ErrVoucherFetchFailed
		}
		if voucher == nil {
			return ErrVoucherNotFound
		}
		if row.UsageLimit != nil && row.Used >= *row.UsageLimit {
			return ErrVoucherUsageLimit
		}
		if voucher.UsageLimit != nil {
			total, err := repo.SumUsed(voucher.ID)
			if err != nil {
				return ErrVoucherFetchFailed
			}
			if total >= int64(*voucher.UsageLimit) {
				return ErrVoucherUsageLimit
			}
		}
		if voucher.ApplyOncePerCustomer && email != "" {
			used, err := repo.CustomerUsed(voucher.ID, email)
			if err != nil {
				return ErrVoucherFetchFailed
			}
			if used {
				return newValidationError("customerEmail", CodeVoucherAlreadyUsed, "voucher already used by customer", email)
			}
			if err := repo.AddCustomer(row.ID, email); err != nil {
				return ErrVoucherUpdateFailed
			}
		}
		if err := repo.IncrementCodeUsed(row.ID, 1); err != nil {
			return ErrVoucherUpdateFailed
		}
		return nil
	})
}

// DecreaseUsage 撤销一次券码使用，次数不低于 0
func (s *VoucherService) DecreaseUsage(code, customerEmail string) error {
	email := strings.ToLower(strings.TrimSpace(customerEmail))
	return models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.GetCodeForUpdate(code)
		if err != nil {
			return ErrVoucherFetchFailed
		}
		if row == nil {
			return ErrVoucherCodeNotFound
		}
		if err := repo.DecrementCodeUsed(row.ID, 1); err != nil {
			return ErrVoucherUpdateFailed
		}
		if email != "" {
			if err := repo.RemoveCustomer(row.ID, email); err != nil {
				return ErrVoucherUpdateFailed
			}
		}
		return nil
	})
}

// AppliesTo 判断优惠券是否适用于商品
func (s *VoucherService) AppliesTo(voucherID, productID uint) (bool, error) {
	voucher, err := s.Get(voucherID)
	if err != nil {
		return false, err
	}
	scope := voucher.ScopePredicate()
	if scope == nil {
		return voucher.Type != models.VoucherTypeSpecificProduct, nil
	}
	matched, err := s.catalogue.MatchesProduct(scope, productID)
	if err != nil {
		return false, ErrCatalogueLookupFailed
	}
	return matched, nil
}

// applyInput 校验并写入优惠券字段，校验错误写入 verr；db 为当前事务
func (s *VoucherService) applyInput(db *gorm.DB, voucher *models.Voucher, input VoucherInput, verr *ValidationError) error {
	if input.Name != nil {
		voucher.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		voucherType := strings.ToLower(strings.TrimSpace(*input.Type))
		switch voucherType {
		case models.VoucherTypeEntireOrder, models.VoucherTypeSpecificProduct, models.VoucherTypeShipping:
			voucher.Type = voucherType
		default:
			verr.Add("type", CodeInvalid, "unsupported voucher type", voucherType)
		}
	}
	if input.DiscountValueType != nil {
		valueType := strings.ToLower(strings.TrimSpace(*input.DiscountValueType))
		switch valueType {
		case models.DiscountValueTypeFixed, models.DiscountValueTypePercentage:
			voucher.DiscountValueType = valueType
		default:
			verr.Add("discountValueType", CodeInvalid, "unsupported discount value type", valueType)
		}
	}
	if input.DiscountValue != nil {
		voucher.DiscountValue = *input.DiscountValue
	}
	if input.Currency != nil {
		voucher.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.MinSpent != nil {
		voucher.MinSpent = *input.MinSpent
	}
	if input.StartDate != nil {
		voucher.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		voucher.EndDate = input.EndDate
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit < 0 {
			verr.Add("usageLimit", CodeInvalid, "usage limit cannot be negative")
		}
		limit := *input.UsageLimit
		voucher.UsageLimit = &limit
	}
	if input.ApplyOncePerOrder != nil {
		voucher.ApplyOncePerOrder = *input.ApplyOncePerOrder
	}
	if input.ApplyOncePerCustomer != nil {
		voucher.ApplyOncePerCustomer = *input.ApplyOncePerCustomer
	}
	if input.OnlyForStaff != nil {
		voucher.OnlyForStaff = *input.OnlyForStaff
	}
	if input.SingleUse != nil {
		voucher.SingleUse = *input.SingleUse
	}

	if voucher.DiscountValue.Decimal.IsNegative() {
		verr.Add("discountValue", CodeInvalid, "discount value cannot be negative")
	}
	if voucher.DiscountValueType == models.DiscountValueTypePercentage && voucher.DiscountValue.Decimal.GreaterThan(decimal.NewFromInt(100)) {
		verr.Add("discountValue", CodeInvalid, "percentage discount cannot exceed 100")
	}
	if voucher.DiscountValueType == models.DiscountValueTypeFixed && voucher.DiscountValue.Decimal.IsPositive() && voucher.Currency == "" {
		verr.Add("currency", CodeRequired, "currency is required for fixed discount")
	}
	if voucher.EndDate != nil && voucher.EndDate.Before(voucher.StartDate) {
		verr.Add("endDate", CodeInvalid, "end date cannot be before start date")
	}

	scopes := []struct {
		field  string
		kind   predicate.Kind
		raw    []string
		target *models.UintArray
	}{
		{"products", predicate.KindProduct, input.Products, &voucher.ProductIDs},
		{"variants", predicate.KindVariant, input.Variants, &voucher.VariantIDs},
		{"categories", predicate.KindCategory, input.Categories, &voucher.CategoryIDs},
		{"collections", predicate.KindCollection, input.Collections, &voucher.CollectionIDs},
	}
	for _, scope := range scopes {
		if scope.raw == nil {
			continue
		}
		ids, err := s.resolveScopeIDs(db, scope.field, scope.kind, scope.raw, verr)
		if err != nil {
			return err
		}
		*scope.target = models.UintArray(ids)
	}
	return nil
}

// resolveScopeIDs 解析全局 ID 并校验存在性
func (s *VoucherService) resolveScopeIDs(db *gorm.DB, field string, kind predicate.Kind, raw []string, verr *ValidationError) ([]uint, error) {
	ids := make([]uint, 0, len(raw))
	byID := make(map[uint]string, len(raw))
	malformed := make([]string, 0)
	for _, value := range raw {
		id, err := predicate.DecodeID(kind, value)
		if err != nil {
			malformed = append(malformed, value)
			continue
		}
		if _, ok := byID[id]; !ok {
			byID[id] = value
			ids = append(ids, id)
		}
	}
	if len(malformed) > 0 {
		verr.Add(field, CodeGraphQLError, fmt.Sprintf("invalid %s id", predicate.TypeName(kind)), malformed...)
		return nil, nil
	}
	missing, err := s.catalogue.WithTx(db).MissingIDs(kind, ids)
	if err != nil {
		return nil, ErrCatalogueLookupFailed
	}
	if len(missing) > 0 {
		values := make([]string, 0, len(missing))
		for _, id := range missing {
			values = append(values, byID[id])
		}
		verr.Add(field, CodeNotFound, fmt.Sprintf("%s not found", predicate.TypeName(kind)), values...)
		return nil, nil
	}
	return ids, nil
}

// validateNewCodes 校验批量券码：批内重复与已占用码值分别汇总全部问题项
func (s *VoucherService) validateNewCodes(db *gorm.DB, field string, inputs []VoucherCodeInput, verr *ValidationError) []models.VoucherCode {
	rows := make([]models.VoucherCode, 0, len(inputs))
	counts := make(map[string]int, len(inputs))
	order := make([]string, 0, len(inputs))
	for idx, item := range inputs {
		code := repository.NormalizeCode(item.Code)
		if code == "" {
			verr.Add(fmt.Sprintf("%s.%d.code", field, idx), CodeRequired, "code cannot be empty")
			continue
		}
		if item.UsageLimit != nil && *item.UsageLimit < 0 {
			verr.Add(fmt.Sprintf("%s.%d.usageLimit", field, idx), CodeInvalid, "usage limit cannot be negative")
		}
		if counts[code] == 0 {
			order = append(order, code)
			rows = append(rows, models.VoucherCode{Code: code, UsageLimit: item.UsageLimit, IsActive: true})
		}
		counts[code]++
	}
	duplicated := make([]string, 0)
	for _, code := range order {
		if counts[code] > 1 {
			duplicated = append(duplicated, code)
		}
	}
	if len(duplicated) > 0 {
		verr.Add(field, CodeDuplicatedInputItem, "duplicated codes in input", duplicated...)
	}
	existing, err := s.codeRepo.WithTx(db).ExistingCodes(order)
	if err != nil {
		logger.Warnw("voucher_codes_lookup_failed", "field", field, "error", err)
		verr.Add(field, CodeInvalid, "failed to check code availability")
		return rows
	}
	if len(existing) > 0 {
		verr.Add(field, CodeAlreadyExists, "promo codes already exist", existing...)
	}
	return rows
}

// insertExplicitCodes 写入调用方指定的券码；并发抢占时报告 already_exists
func (s *VoucherService) insertExplicitCodes(tx *gorm.DB, voucherID uint, field string, rows []models.VoucherCode) ([]string, error) {
	entries := make([]models.PromoCode, 0, len(rows))
	values := make([]string, 0, len(rows))
	for idx := range rows {
		rows[idx].VoucherID = voucherID
		entries = append(entries, models.PromoCode{Code: rows[idx].Code, OwnerType: models.PromoCodeOwnerVoucher, OwnerID: voucherID})
		values = append(values, rows[idx].Code)
	}
	if err := s.codeRepo.WithTx(tx).ClaimBatch(entries); err != nil {
		if errors.Is(err, repository.ErrCodeTaken) {
			return nil, newValidationError(field, CodeAlreadyExists, "promo codes already exist", values...)
		}
		return nil, ErrVoucherCreateFailed
	}
	if err := s.repo.WithTx(tx).CreateCodes(rows); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, newValidationError(field, CodeAlreadyExists, "promo codes already exist", values...)
		}
		return nil, ErrVoucherCreateFailed
	}
	return values, nil
}

// insertGeneratedCode 生成并写入一个券码，唯一索引冲突时重新生成
func (s *VoucherService) insertGeneratedCode(tx *gorm.DB, voucherID uint) (string, error) {
	var code string
	err := claimWithRetry(tx, models.PromoCodeOwnerVoucher, func(sp *gorm.DB) error {
		registry := s.codeRepo.WithTx(sp)
		candidate, err := s.generator.Generate(registry, s.codeLength)
		if err != nil {
			return err
		}
		if err := registry.Claim(candidate, models.PromoCodeOwnerVoucher, voucherID); err != nil {
			return err
		}
		if err := s.repo.WithTx(sp).CreateCodes([]models.VoucherCode{{Code: candidate, VoucherID: voucherID, IsActive: true}}); err != nil {
			return err
		}
		code = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCodeGenerateExhausted) {
			return "", err
		}
		return "", ErrVoucherCreateFailed
	}
	return code, nil
}

func (s *VoucherService) replaceSingleCode(tx *gorm.DB, row *models.VoucherCode, newCode string, verr *ValidationError) error {
	registry := s.codeRepo.WithTx(tx)
	exists, err := registry.Exists(newCode)
	if err != nil {
		return ErrVoucherUpdateFailed
	}
	if exists {
		verr.Add("code", CodeAlreadyExists, "promo code already exists", newCode)
		return nil
	}
	if err := registry.Rename(row.Code, newCode); err != nil {
		switch {
		case errors.Is(err, repository.ErrCodeTaken):
			verr.Add("code", CodeAlreadyExists, "promo code already exists", newCode)
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := registry.Claim(newCode, models.PromoCodeOwnerVoucher, row.VoucherID); err != nil {
				return ErrVoucherUpdateFailed
			}
		default:
			return ErrVoucherUpdateFailed
		}
	}
	row.Code = newCode
	if err := s.repo.WithTx(tx).UpdateCode(row); err != nil {
		if repository.IsUniqueViolation(err) {
			verr.Add("code", CodeAlreadyExists, "promo code already exists", newCode)
			return nil
		}
		return ErrVoucherUpdateFailed
	}
	return nil
}

func (s *VoucherService) emit(eventType string, payload interface{}) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(eventType, payload)
}

func contains(ids []uint, id uint) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}
