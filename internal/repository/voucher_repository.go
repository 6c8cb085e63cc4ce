package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/promo-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoucherRepository 优惠券数据访问接口
type VoucherRepository interface {
	GetByID(id uint) (*models.Voucher, error)
	Create(voucher *models.Voucher) error
	Update(voucher *models.Voucher) error
	Delete(id uint) error
	List(filter VoucherListFilter) ([]models.Voucher, int64, error)
	CreateCodes(codes []models.VoucherCode) error
	ListCodes(voucherID uint) ([]models.VoucherCode, error)
	CountCodes(voucherID uint) (int64, error)
	GetCodeForUpdate(code string) (*models.VoucherCode, error)
	UpdateCode(code *models.VoucherCode) error
	DeleteCodes(voucherID uint, codeIDs []uint) ([]models.VoucherCode, error)
	SumUsed(voucherID uint) (int64, error)
	IncrementCodeUsed(codeID uint, delta int) error
	DecrementCodeUsed(codeID uint, delta int) error
	AddCustomer(codeID uint, email string) error
	RemoveCustomer(codeID uint, email string) error
	CustomerUsed(voucherID uint, email string) (bool, error)
	WithTx(tx *gorm.DB) *GormVoucherRepository
}

// VoucherListFilter 优惠券列表筛选
type VoucherListFilter struct {
	ID        uint
	Search    string
	Code      string
	ProductID uint
	Page      int
	PageSize  int
}

// GormVoucherRepository GORM 实现
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository 创建优惠券仓库
func NewVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVoucherRepository) WithTx(tx *gorm.DB) *GormVoucherRepository {
	if tx == nil {
		return r
	}
	return &GormVoucherRepository{db: tx}
}

// GetByID 根据ID获取优惠券（含券码）
func (r *GormVoucherRepository) GetByID(id uint) (*models.Voucher, error) {
	if id == 0 {
		return nil, nil
	}
	var voucher models.Voucher
	if err := r.db.Preload("Codes", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&voucher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// Create 创建优惠券（不含券码）
func (r *GormVoucherRepository) Create(voucher *models.Voucher) error {
	return r.db.Omit("Codes").Create(voucher).Error
}

// Update 更新优惠券（不含券码）
func (r *GormVoucherRepository) Update(voucher *models.Voucher) error {
	return r.db.Omit("Codes").Save(voucher).Error
}

// Delete 删除优惠券及其券码与使用记录
func (r *GormVoucherRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	codeIDs := r.db.Model(&models.VoucherCode{}).Select("id").Where("voucher_id = ?", id)
	if err := r.db.Where("voucher_code_id IN (?)", codeIDs).Delete(&models.VoucherCustomer{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("voucher_id = ?", id).Delete(&models.VoucherCode{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Voucher{}, id).Error
}

// List 获取优惠券列表
func (r *GormVoucherRepository) List(filter VoucherListFilter) ([]models.Voucher, int64, error) {
	var vouchers []models.Voucher
	query := r.db.Model(&models.Voucher{})

	if filter.ID > 0 {
		query = query.Where("id = ?", filter.ID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"name"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}
	if code := NormalizeCode(filter.Code); code != "" {
		query = query.Where("id IN (?)", r.db.Model(&models.VoucherCode{}).Select("voucher_id").Where("code = ?", code))
	}
	if filter.ProductID > 0 {
		// product_ids 为 JSON 数组（例如 [1,2,3]），按边界匹配避免误命中（如 1 命中 11）。
		exact := fmt.Sprintf("[%d]", filter.ProductID)
		prefix := fmt.Sprintf("[%d,%%", filter.ProductID)
		middle := fmt.Sprintf("%%,%d,%%", filter.ProductID)
		suffix := fmt.Sprintf("%%,%d]", filter.ProductID)
		query = query.Where(
			"(product_ids = ? OR product_ids LIKE ? OR product_ids LIKE ? OR product_ids LIKE ?)",
			exact,
			prefix,
			middle,
			suffix,
		)
	}

	total, err := findPage(query, filter.Page, filter.PageSize, "id desc", &vouchers)
	if err != nil {
		return nil, 0, err
	}
	return vouchers, total, nil
}

// CreateCodes 批量创建券码
func (r *GormVoucherRepository) CreateCodes(codes []models.VoucherCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.Create(&codes).Error
}

// ListCodes 查询优惠券的全部券码
func (r *GormVoucherRepository) ListCodes(voucherID uint) ([]models.VoucherCode, error) {
	var codes []models.VoucherCode
	if err := r.db.Where("voucher_id = ?", voucherID).Order("id ASC").Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// CountCodes 统计券码数量
func (r *GormVoucherRepository) CountCodes(voucherID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.VoucherCode{}).Where("voucher_id = ?", voucherID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetCodeForUpdate 按券码加锁查询
func (r *GormVoucherRepository) GetCodeForUpdate(code string) (*models.VoucherCode, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	var row models.VoucherCode
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// UpdateCode 更新券码
func (r *GormVoucherRepository) UpdateCode(code *models.VoucherCode) error {
	if code == nil {
		return errors.New("invalid voucher code")
	}
	return r.db.Save(code).Error
}

// DeleteCodes 删除券码，返回被删除的记录
func (r *GormVoucherRepository) DeleteCodes(voucherID uint, codeIDs []uint) ([]models.VoucherCode, error) {
	if len(codeIDs) == 0 {
		return []models.VoucherCode{}, nil
	}
	var rows []models.VoucherCode
	if err := r.db.Where("voucher_id = ? AND id IN ?", voucherID, codeIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if err := r.db.Where("voucher_code_id IN ?", ids).Delete(&models.VoucherCustomer{}).Error; err != nil {
		return nil, err
	}
	if err := r.db.Where("id IN ?", ids).Delete(&models.VoucherCode{}).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumUsed 汇总优惠券全部券码的使用次数
func (r *GormVoucherRepository) SumUsed(voucherID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.VoucherCode{}).
		Where("voucher_id = ?", voucherID).
		Select("COALESCE(SUM(used), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// IncrementCodeUsed 增加券码使用次数
func (r *GormVoucherRepository) IncrementCodeUsed(codeID uint, delta int) error {
	if delta == 0 {
		delta = 1
	}
	return r.db.Model(&models.VoucherCode{}).
		Where("id = ?", codeID).
		UpdateColumn("used", gorm.Expr("used + ?", delta)).Error
}

// DecrementCodeUsed 减少券码使用次数（不低于 0）
func (r *GormVoucherRepository) DecrementCodeUsed(codeID uint, delta int) error {
	if delta == 0 {
		delta = 1
	}
	if delta < 0 {
		delta = -delta
	}
	return r.db.Model(&models.VoucherCode{}).
		Where("id = ?", codeID).
		Where("used >= ?", delta).
		UpdateColumn("used", gorm.Expr("used - ?", delta)).Error
}

// AddCustomer 记录顾客使用
func (r *GormVoucherRepository) AddCustomer(codeID uint, email string) error {
	return r.db.Create(&models.VoucherCustomer{
		VoucherCodeID: codeID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(email)),
	}).Error
}

// RemoveCustomer 删除顾客使用记录
func (r *GormVoucherRepository) RemoveCustomer(codeID uint, email string) error {
	return r.db.Where("voucher_code_id = ? AND customer_email = ?", codeID, strings.ToLower(strings.TrimSpace(email))).
		Delete(&models.VoucherCustomer{}).Error
}

// CustomerUsed 判断顾客是否用过该优惠券的任一券码
func (r *GormVoucherRepository) CustomerUsed(voucherID uint, email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.VoucherCustomer{}).
		Joins("JOIN voucher_codes ON voucher_codes.id = voucher_customers.voucher_code_id").
		Where("voucher_codes.voucher_id = ? AND voucher_customers.customer_email = ?", voucherID, strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
