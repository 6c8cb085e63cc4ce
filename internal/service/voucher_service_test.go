package service

import (
	"errors"
	"slices"
	"testing"

	"github.com/dujiao-next/promo-engine/internal/constants"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/predicate"

	"github.com/shopspring/decimal"
)

func TestVoucherCreateGeneratesCode(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{
		VoucherInput: VoucherInput{Name: strPtr("welcome")},
	})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	if len(voucher.Codes) != 1 {
		t.Fatalf("codes want 1 got %d", len(voucher.Codes))
	}
	code := voucher.Codes[0].Code
	if len(code) != DefaultVoucherCodeLength {
		t.Fatalf("generated code length want %d got %d", DefaultVoucherCodeLength, len(code))
	}
	exists, err := env.codeRepo.Exists(code)
	if err != nil || !exists {
		t.Fatalf("generated code should be registered, exists=%v err=%v", exists, err)
	}
	if env.recorder.Count(constants.EventVoucherCreated) != 1 || env.recorder.Count(constants.EventVoucherCodesCreated) != 1 {
		t.Fatalf("unexpected events: %+v", env.recorder.Events)
	}
}

func TestVoucherCreateRejectsCodeUsedByGiftCard(t *testing.T) {
	env := newServiceTestEnv(t)

	if _, err := env.giftCards.Create(CreateGiftCardInput{
		Code:     strPtr("PROMO1"),
		Balance:  PriceInput{Amount: decimal.NewFromInt(10), Currency: "USD"},
		IsActive: true,
	}); err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}

	_, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("promo1")})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	field := verr.Field("code")
	if field == nil || field.Code != CodeAlreadyExists {
		t.Fatalf("want already_exists on code, got %+v", verr.Errors)
	}
	if !slices.Equal(field.Values, []string{"PROMO1"}) {
		t.Fatalf("values want [PROMO1] got %v", field.Values)
	}
}

func TestVoucherCreateReportsDuplicatedCodes(t *testing.T) {
	env := newServiceTestEnv(t)

	_, err := env.vouchers.Create(CreateVoucherInput{Codes: []VoucherCodeInput{
		{Code: "A"}, {Code: "a"}, {Code: "B"},
	}})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	field := verr.Field("codes")
	if field == nil || field.Code != CodeDuplicatedInputItem {
		t.Fatalf("want duplicated_input_item on codes, got %+v", verr.Errors)
	}
	if !slices.Equal(field.Values, []string{"A"}) {
		t.Fatalf("values want [A] got %v", field.Values)
	}

	var count int64
	env.db.Model(&models.Voucher{}).Count(&count)
	if count != 0 {
		t.Fatalf("voucher should not be created, count=%d", count)
	}
}

func TestVoucherCreateRejectsCodeWithCodes(t *testing.T) {
	env := newServiceTestEnv(t)

	_, err := env.vouchers.Create(CreateVoucherInput{
		Code:  strPtr("ONE"),
		Codes: []VoucherCodeInput{{Code: "TWO"}},
	})
	if !HasCode(err, CodeInvalid) {
		t.Fatalf("want invalid got %v", err)
	}
}

func TestVoucherCreateReportsEveryExistingCode(t *testing.T) {
	env := newServiceTestEnv(t)

	if _, err := env.vouchers.Create(CreateVoucherInput{Codes: []VoucherCodeInput{{Code: "X1"}, {Code: "X2"}}}); err != nil {
		t.Fatalf("seed voucher failed: %v", err)
	}
	_, err := env.vouchers.Create(CreateVoucherInput{Codes: []VoucherCodeInput{{Code: "X2"}, {Code: "X3"}, {Code: "X1"}}})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	field := verr.Field("codes")
	if field == nil || field.Code != CodeAlreadyExists {
		t.Fatalf("want already_exists on codes, got %+v", verr.Errors)
	}
	if !slices.Equal(field.Values, []string{"X2", "X1"}) {
		t.Fatalf("values want [X2 X1] got %v", field.Values)
	}
}

func TestVoucherSingleUseChangeBlockedByOrder(t *testing.T) {
	env := newServiceTestEnv(t)

	used, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("SAVE10")})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	if err := env.db.Create(&models.Order{Status: models.OrderStatusUnfulfilled, VoucherCode: "SAVE10"}).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	_, err = env.vouchers.Update(used.ID, UpdateVoucherInput{VoucherInput: VoucherInput{SingleUse: boolPtr(true)}})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	field := verr.Field("singleUse")
	if field == nil || field.Code != CodeVoucherAlreadyUsed {
		t.Fatalf("want voucher_already_used on singleUse, got %+v", verr.Errors)
	}
	reloaded, _ := env.vouchers.Get(used.ID)
	if reloaded.SingleUse {
		t.Fatalf("single use flag should be unchanged")
	}

	fresh, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("FRESH")})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	updated, err := env.vouchers.Update(fresh.ID, UpdateVoucherInput{VoucherInput: VoucherInput{SingleUse: boolPtr(true)}})
	if err != nil {
		t.Fatalf("unused voucher should switch to single use: %v", err)
	}
	if !updated.SingleUse {
		t.Fatalf("single use flag want true")
	}
}

func TestVoucherSingleUseIgnoresDraftOrders(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("DRAFT")})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	if err := env.db.Create(&models.Order{Status: models.OrderStatusDraft, VoucherCode: "DRAFT"}).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := env.vouchers.GuardSingleUseChange(voucher, true); err != nil {
		t.Fatalf("draft order should not lock voucher: %v", err)
	}
}

func TestVoucherUpdateCodeRejectedWithMultipleCodes(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{Codes: []VoucherCodeInput{{Code: "M1"}, {Code: "M2"}}})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	_, err = env.vouchers.Update(voucher.ID, UpdateVoucherInput{Code: strPtr("M3")})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	field := verr.Field("code")
	if field == nil || field.Code != CodeInvalid {
		t.Fatalf("want invalid on code, got %+v", verr.Errors)
	}
	if exists, _ := env.codeRepo.Exists("M3"); exists {
		t.Fatalf("M3 should not be registered")
	}
}

func TestVoucherUpdateReplacesSingleCode(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("OLD")})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	updated, err := env.vouchers.Update(voucher.ID, UpdateVoucherInput{Code: strPtr("new")})
	if err != nil {
		t.Fatalf("update voucher failed: %v", err)
	}
	if len(updated.Codes) != 1 || updated.Codes[0].Code != "NEW" {
		t.Fatalf("code want NEW got %+v", updated.Codes)
	}
	if exists, _ := env.codeRepo.Exists("OLD"); exists {
		t.Fatalf("old code should be released")
	}
	if exists, _ := env.codeRepo.Exists("NEW"); !exists {
		t.Fatalf("new code should be registered")
	}
}

func TestVoucherUpdateReplacesCodeAndAddsCodes(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("OLD1")})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	updated, err := env.vouchers.Update(voucher.ID, UpdateVoucherInput{
		Code:     strPtr("NEW1"),
		AddCodes: []VoucherCodeInput{{Code: "EXTRA1"}},
	})
	if err != nil {
		t.Fatalf("update voucher failed: %v", err)
	}
	got := make([]string, 0, len(updated.Codes))
	for _, code := range updated.Codes {
		got = append(got, code.Code)
	}
	slices.Sort(got)
	if !slices.Equal(got, []string{"EXTRA1", "NEW1"}) {
		t.Fatalf("codes want [EXTRA1 NEW1] got %v", got)
	}
	if exists, _ := env.codeRepo.Exists("OLD1"); exists {
		t.Fatalf("OLD1 should be released")
	}
}

func TestVoucherUpdateAddCodesSeesRenamedCode(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("OLD2")})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	_, err = env.vouchers.Update(voucher.ID, UpdateVoucherInput{
		Code:     strPtr("NEW2"),
		AddCodes: []VoucherCodeInput{{Code: "NEW2"}},
	})
	verr := mustValidation(t, err)
	field := verr.Field("addCodes")
	if field == nil || field.Code != CodeAlreadyExists || !slices.Equal(field.Values, []string{"NEW2"}) {
		t.Fatalf("want addCodes already_exists [NEW2], got %+v", verr.Errors)
	}
	if exists, _ := env.codeRepo.Exists("OLD2"); !exists {
		t.Fatalf("failed update should keep OLD2")
	}
}

func TestVoucherAddCodes(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("BASE")})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	env.recorder.Reset()
	updated, err := env.vouchers.Update(voucher.ID, UpdateVoucherInput{AddCodes: []VoucherCodeInput{{Code: "EXTRA1"}, {Code: "EXTRA2"}}})
	if err != nil {
		t.Fatalf("add codes failed: %v", err)
	}
	if len(updated.Codes) != 3 {
		t.Fatalf("codes want 3 got %d", len(updated.Codes))
	}
	if env.recorder.Count(constants.EventVoucherCodesCreated) != 1 {
		t.Fatalf("want one voucher_codes_created event")
	}
}

func TestVoucherDeleteCodesKeepsLastCode(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{Codes: []VoucherCodeInput{{Code: "D1"}, {Code: "D2"}}})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	deleted, err := env.vouchers.DeleteCodes(voucher.ID, []uint{voucher.Codes[0].ID})
	if err != nil {
		t.Fatalf("delete codes failed: %v", err)
	}
	if len(deleted) != 1 || deleted[0].Code != "D1" {
		t.Fatalf("deleted want [D1] got %+v", deleted)
	}
	if exists, _ := env.codeRepo.Exists("D1"); exists {
		t.Fatalf("deleted code should be released")
	}
	if _, err := env.vouchers.DeleteCodes(voucher.ID, []uint{voucher.Codes[1].ID}); !HasCode(err, CodeInvalid) {
		t.Fatalf("deleting last code want invalid got %v", err)
	}
}

func TestVoucherUsageLimits(t *testing.T) {
	env := newServiceTestEnv(t)

	if _, err := env.vouchers.Create(CreateVoucherInput{
		VoucherInput: VoucherInput{ApplyOncePerCustomer: boolPtr(true)},
		Codes:        []VoucherCodeInput{{Code: "LIMIT", UsageLimit: intPtr(2)}},
	}); err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	if err := env.vouchers.IncreaseUsage("limit", "a@example.com"); err != nil {
		t.Fatalf("first use failed: %v", err)
	}
	if err := env.vouchers.IncreaseUsage("LIMIT", "A@example.com"); !HasCode(err, CodeVoucherAlreadyUsed) {
		t.Fatalf("same customer want voucher_already_used got %v", err)
	}
	if err := env.vouchers.IncreaseUsage("LIMIT", "b@example.com"); err != nil {
		t.Fatalf("second customer failed: %v", err)
	}
	if err := env.vouchers.IncreaseUsage("LIMIT", "c@example.com"); !errors.Is(err, ErrVoucherUsageLimit) {
		t.Fatalf("want ErrVoucherUsageLimit got %v", err)
	}
	if err := env.vouchers.DecreaseUsage("LIMIT", "b@example.com"); err != nil {
		t.Fatalf("decrease usage failed: %v", err)
	}
	if err := env.vouchers.IncreaseUsage("LIMIT", "c@example.com"); err != nil {
		t.Fatalf("use after decrease failed: %v", err)
	}
}

func TestVoucherScopeAppliesToCategoryDescendants(t *testing.T) {
	env := newServiceTestEnv(t)

	root := env.createCategory(t, "root", nil)
	child := env.createCategory(t, "child", uintPtr(root.ID))
	other := env.createCategory(t, "other", nil)
	inside, _ := env.createProduct(t, "inside", child.ID)
	outside, _ := env.createProduct(t, "outside", other.ID)

	voucher, err := env.vouchers.Create(CreateVoucherInput{VoucherInput: VoucherInput{
		Type:       strPtr(models.VoucherTypeSpecificProduct),
		Categories: []string{predicate.EncodeID(predicate.KindCategory, root.ID)},
	}})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	if ok, err := env.vouchers.AppliesTo(voucher.ID, inside.ID); err != nil || !ok {
		t.Fatalf("product under child category should match, ok=%v err=%v", ok, err)
	}
	if ok, err := env.vouchers.AppliesTo(voucher.ID, outside.ID); err != nil || ok {
		t.Fatalf("product in other category should not match, ok=%v err=%v", ok, err)
	}
}

func TestVoucherScopeRejectsUnknownIDs(t *testing.T) {
	env := newServiceTestEnv(t)

	missing := predicate.EncodeID(predicate.KindProduct, 999)
	_, err := env.vouchers.Create(CreateVoucherInput{VoucherInput: VoucherInput{
		Products:   []string{missing},
		Categories: []string{"not-base64"},
	}})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	if field := verr.Field("products"); field == nil || field.Code != CodeNotFound || !slices.Equal(field.Values, []string{missing}) {
		t.Fatalf("want not_found on products, got %+v", verr.Errors)
	}
	if field := verr.Field("categories"); field == nil || field.Code != CodeGraphQLError {
		t.Fatalf("want graphql_error on categories, got %+v", verr.Errors)
	}
}

func TestVoucherDeleteReleasesCodes(t *testing.T) {
	env := newServiceTestEnv(t)

	voucher, err := env.vouchers.Create(CreateVoucherInput{Codes: []VoucherCodeInput{{Code: "GONE1"}, {Code: "GONE2"}}})
	if err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	if err := env.vouchers.Delete(voucher.ID); err != nil {
		t.Fatalf("delete voucher failed: %v", err)
	}
	if exists, _ := env.codeRepo.Exists("GONE1"); exists {
		t.Fatalf("codes should be released after delete")
	}
	if _, err := env.vouchers.Get(voucher.ID); !errors.Is(err, ErrVoucherNotFound) {
		t.Fatalf("want ErrVoucherNotFound got %v", err)
	}
}
