package service

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dujiao-next/promo-engine/internal/constants"
	"github.com/dujiao-next/promo-engine/internal/models"
	"github.com/dujiao-next/promo-engine/internal/repository"

	"github.com/shopspring/decimal"
)

func usd(amount string) PriceInput {
	return PriceInput{Amount: decimal.RequireFromString(amount), Currency: "USD"}
}

func TestGiftCardBulkCreateSharesTags(t *testing.T) {
	env := newServiceTestEnv(t)

	expiry := time.Now().Add(48 * time.Hour)
	cards, err := env.giftCards.BulkCreate(BulkCreateGiftCardsInput{
		Count:      5,
		Balance:    usd("25.50"),
		ExpiryDate: &expiry,
		Tags:       []string{"VIP", "vip", " Vip "},
		IsActive:   true,
		Actor:      Actor{ID: uintPtr(7), Email: "staff@example.com"},
	})
	if err != nil {
		t.Fatalf("bulk create failed: %v", err)
	}
	if len(cards) != 5 {
		t.Fatalf("cards want 5 got %d", len(cards))
	}
	codes := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		if len(card.Code) != DefaultGiftCardCodeLength {
			t.Fatalf("code length want %d got %d", DefaultGiftCardCodeLength, len(card.Code))
		}
		codes[card.Code] = struct{}{}
		if card.Currency != "USD" || !card.CurrentBalance.Decimal.Equal(decimal.RequireFromString("25.5")) {
			t.Fatalf("unexpected balance %s %s", card.CurrentBalance.String(), card.Currency)
		}
		if len(card.Tags) != 1 || card.Tags[0].Name != "vip" {
			t.Fatalf("card tags want [vip] got %+v", card.Tags)
		}
		if card.CreatedByEmail != "staff@example.com" {
			t.Fatalf("created by email want staff@example.com got %s", card.CreatedByEmail)
		}
	}
	if len(codes) != 5 {
		t.Fatalf("codes should be distinct, got %d", len(codes))
	}

	var tagCount, linkCount int64
	env.db.Model(&models.GiftCardTag{}).Count(&tagCount)
	env.db.Table("gift_card_tag_links").Count(&linkCount)
	if tagCount != 1 || linkCount != 5 {
		t.Fatalf("want 1 tag linked to 5 cards, got tags=%d links=%d", tagCount, linkCount)
	}
	var registered int64
	env.db.Model(&models.PromoCode{}).Where("owner_type = ?", models.PromoCodeOwnerGiftCard).Count(&registered)
	if registered != 5 {
		t.Fatalf("registered codes want 5 got %d", registered)
	}
	if env.recorder.Count(constants.EventGiftCardCreated) != 5 {
		t.Fatalf("gift_card_created events want 5 got %d", env.recorder.Count(constants.EventGiftCardCreated))
	}
	events, err := env.giftCards.ListEvents(cards[0].ID)
	if err != nil || len(events) != 1 || events[0].Type != models.GiftCardEventIssued {
		t.Fatalf("want one issued event, got %+v err=%v", events, err)
	}
}

func TestGiftCardBulkCreateValidation(t *testing.T) {
	env := newServiceTestEnv(t)

	past := time.Now().Add(-time.Hour)
	_, err := env.giftCards.BulkCreate(BulkCreateGiftCardsInput{
		Count:      0,
		Balance:    usd("10.001"),
		ExpiryDate: &past,
	})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	for _, field := range []string{"count", "balance.amount", "expiryDate"} {
		if item := verr.Field(field); item == nil || item.Code != CodeInvalid {
			t.Fatalf("want invalid on %s, got %+v", field, verr.Errors)
		}
	}

	_, err = env.giftCards.BulkCreate(BulkCreateGiftCardsInput{Count: 101, Balance: usd("10")})
	if item := mustValidation(t, err).Field("count"); item == nil {
		t.Fatalf("count above limit should be rejected")
	}

	if _, err := env.giftCards.BulkCreate(BulkCreateGiftCardsInput{
		Count:   1,
		Balance: PriceInput{Amount: decimal.RequireFromString("1.5"), Currency: "JPY"},
	}); !HasCode(err, CodeInvalid) {
		t.Fatalf("JPY with decimals want invalid got %v", err)
	}
	if _, err := env.giftCards.BulkCreate(BulkCreateGiftCardsInput{
		Count:   1,
		Balance: PriceInput{Amount: decimal.RequireFromString("1.125"), Currency: "KWD"},
	}); err != nil {
		t.Fatalf("KWD with three decimals should pass: %v", err)
	}
}

func mustValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	return verr
}

func TestGiftCardCreateRejectsCodeUsedByVoucher(t *testing.T) {
	env := newServiceTestEnv(t)

	if _, err := env.vouchers.Create(CreateVoucherInput{Code: strPtr("SHARED")}); err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	_, err := env.giftCards.Create(CreateGiftCardInput{Code: strPtr("shared"), Balance: usd("10")})
	field := mustValidation(t, err).Field("code")
	if field == nil || field.Code != CodeAlreadyExists {
		t.Fatalf("want already_exists on code got %v", err)
	}
}

func TestGiftCardCreateWithNote(t *testing.T) {
	env := newServiceTestEnv(t)

	card, err := env.giftCards.Create(CreateGiftCardInput{
		Balance:        usd("50"),
		CustomerUserID: uintPtr(42),
		Note:           "birthday",
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}
	if card.CustomerUserID == nil || *card.CustomerUserID != 42 {
		t.Fatalf("customer want 42 got %v", card.CustomerUserID)
	}
	events, _ := env.giftCards.ListEvents(card.ID)
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	if !slices.Contains(types, models.GiftCardEventIssued) || !slices.Contains(types, models.GiftCardEventNoteAdded) {
		t.Fatalf("want issued and note_added events got %v", types)
	}
}

func TestGiftCardActivationIsIdempotent(t *testing.T) {
	env := newServiceTestEnv(t)

	card, err := env.giftCards.Create(CreateGiftCardInput{Balance: usd("10"), IsActive: false})
	if err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}
	env.recorder.Reset()

	for i := 0; i < 3; i++ {
		activated, err := env.giftCards.Activate(card.ID, Actor{})
		if err != nil {
			t.Fatalf("activate failed: %v", err)
		}
		if !activated.IsActive {
			t.Fatalf("card should be active")
		}
	}
	if got := env.recorder.Count(constants.EventGiftCardStatusChanged); got != 1 {
		t.Fatalf("gift_card_status_changed want 1 got %d", got)
	}
	var activations int64
	env.db.Model(&models.GiftCardEvent{}).Where("gift_card_id = ? AND type = ?", card.ID, models.GiftCardEventActivated).Count(&activations)
	if activations != 1 {
		t.Fatalf("activated records want 1 got %d", activations)
	}

	if _, err := env.giftCards.Deactivate(card.ID, Actor{}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if got := env.recorder.Count(constants.EventGiftCardStatusChanged); got != 2 {
		t.Fatalf("gift_card_status_changed want 2 got %d", got)
	}
}

func TestGiftCardUpdate(t *testing.T) {
	env := newServiceTestEnv(t)

	card, err := env.giftCards.Create(CreateGiftCardInput{Balance: usd("10"), Tags: []string{"old", "keep"}, IsActive: true})
	if err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}

	_, err = env.giftCards.Update(card.ID, UpdateGiftCardInput{Balance: &PriceInput{Amount: decimal.NewFromInt(20), Currency: "EUR"}})
	if field := mustValidation(t, err).Field("balance.currency"); field == nil || field.Code != CodeInvalid {
		t.Fatalf("currency change want invalid got %v", err)
	}

	_, err = env.giftCards.Update(card.ID, UpdateGiftCardInput{AddTags: []string{"X"}, RemoveTags: []string{"x"}})
	verr := mustValidation(t, err)
	if verr.Field("addTags") == nil || verr.Field("removeTags") == nil || !verr.HasCode(CodeDuplicatedInputItem) {
		t.Fatalf("tag in both lists want duplicated_input_item got %+v", verr.Errors)
	}

	expiry := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	env.recorder.Reset()
	updated, err := env.giftCards.Update(card.ID, UpdateGiftCardInput{
		Balance:    &PriceInput{Amount: decimal.NewFromInt(30)},
		ExpiryDate: &expiry,
		AddTags:    []string{"New"},
		RemoveTags: []string{"old"},
	})
	if err != nil {
		t.Fatalf("update gift card failed: %v", err)
	}
	if !updated.CurrentBalance.Decimal.Equal(decimal.NewFromInt(30)) || !updated.InitialBalance.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("balance want 30 got %s/%s", updated.InitialBalance.String(), updated.CurrentBalance.String())
	}
	if updated.ExpiryDate == nil || !updated.ExpiryDate.Equal(expiry) {
		t.Fatalf("expiry want %v got %v", expiry, updated.ExpiryDate)
	}
	names := make([]string, 0, len(updated.Tags))
	for _, tag := range updated.Tags {
		names = append(names, tag.Name)
	}
	if !slices.Equal(names, []string{"keep", "new"}) {
		t.Fatalf("tags want [keep new] got %v", names)
	}
	var oldTags int64
	env.db.Model(&models.GiftCardTag{}).Where("name = ?", "old").Count(&oldTags)
	if oldTags != 0 {
		t.Fatalf("orphan tag should be deleted")
	}
	if env.recorder.Count(constants.EventGiftCardTagsUpdated) != 1 || env.recorder.Count(constants.EventGiftCardUpdated) != 1 {
		t.Fatalf("unexpected events %+v", env.recorder.Events)
	}

	// 过期时间不变时不校验也不记录
	before, _ := env.giftCards.ListEvents(card.ID)
	if _, err := env.giftCards.Update(card.ID, UpdateGiftCardInput{ExpiryDate: &expiry}); err != nil {
		t.Fatalf("unchanged expiry should pass: %v", err)
	}
	after, _ := env.giftCards.ListEvents(card.ID)
	if len(after) != len(before) {
		t.Fatalf("unchanged expiry should not add events, before=%d after=%d", len(before), len(after))
	}
}

func TestGiftCardUpdateTagsRecordsOnlyRealChanges(t *testing.T) {
	env := newServiceTestEnv(t)

	card, err := env.giftCards.Create(CreateGiftCardInput{Balance: usd("10"), Tags: []string{"keep"}})
	if err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}
	before, _ := env.giftCards.ListEvents(card.ID)
	env.recorder.Reset()

	if _, err := env.giftCards.Update(card.ID, UpdateGiftCardInput{AddTags: []string{"KEEP"}, RemoveTags: []string{"nope"}}); err != nil {
		t.Fatalf("no-op tag update failed: %v", err)
	}
	after, _ := env.giftCards.ListEvents(card.ID)
	if len(after) != len(before) {
		t.Fatalf("no-op tag update should not add events, before=%d after=%d", len(before), len(after))
	}
	if env.recorder.Count(constants.EventGiftCardTagsUpdated) != 0 {
		t.Fatalf("no-op tag update should not emit gift_card_tags_updated")
	}
	var nope int64
	env.db.Model(&models.GiftCardTag{}).Where("name = ?", "nope").Count(&nope)
	if nope != 0 {
		t.Fatalf("removing unknown tag should not create it")
	}

	if _, err := env.giftCards.Update(card.ID, UpdateGiftCardInput{AddTags: []string{"keep", "fresh"}, RemoveTags: []string{"nope"}}); err != nil {
		t.Fatalf("tag update failed: %v", err)
	}
	if env.recorder.Count(constants.EventGiftCardTagsUpdated) != 1 {
		t.Fatalf("want one gift_card_tags_updated event")
	}
	last := env.recorder.Events[len(env.recorder.Events)-1]
	var payload struct {
		AddedTags   []string `json:"added_tags"`
		RemovedTags []string `json:"removed_tags"`
	}
	if err := json.Unmarshal(last.Payload, &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if !slices.Equal(payload.AddedTags, []string{"fresh"}) || len(payload.RemovedTags) != 0 {
		t.Fatalf("payload want added [fresh] removed [] got %+v", payload)
	}
}

func TestGiftCardChargeAndExpiry(t *testing.T) {
	env := newServiceTestEnv(t)

	card, err := env.giftCards.Create(CreateGiftCardInput{Code: strPtr("CHARGE1"), Balance: usd("20"), IsActive: true})
	if err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}
	charged, err := env.giftCards.Charge("charge1", usd("7.25"), 99)
	if err != nil {
		t.Fatalf("charge failed: %v", err)
	}
	if !charged.CurrentBalance.Decimal.Equal(decimal.RequireFromString("12.75")) {
		t.Fatalf("balance want 12.75 got %s", charged.CurrentBalance.String())
	}
	if charged.LastUsedOn == nil {
		t.Fatalf("last used should be set")
	}
	if _, err := env.giftCards.Charge("CHARGE1", usd("13"), 100); !HasCode(err, CodeInvalid) {
		t.Fatalf("overdraw want invalid got %v", err)
	}
	if _, err := env.giftCards.Charge("CHARGE1", PriceInput{Amount: decimal.NewFromInt(1), Currency: "EUR"}, 101); !HasCode(err, CodeInvalid) {
		t.Fatalf("currency mismatch want invalid got %v", err)
	}

	env.giftCards.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	expiry := time.Now().Add(time.Hour)
	env.db.Model(&models.GiftCard{}).Where("id = ?", card.ID).Update("expiry_date", expiry)
	if _, err := env.giftCards.Charge("CHARGE1", usd("1"), 102); !HasCode(err, CodeExpiredGiftCard) {
		t.Fatalf("expired card want expired_gift_card got %v", err)
	}
	if _, err := env.giftCards.Charge("MISSING", usd("1"), 103); !errors.Is(err, ErrGiftCardNotFound) {
		t.Fatalf("want ErrGiftCardNotFound got %v", err)
	}
}

func TestGiftCardAddNote(t *testing.T) {
	env := newServiceTestEnv(t)

	card, err := env.giftCards.Create(CreateGiftCardInput{Balance: usd("5")})
	if err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}
	if _, err := env.giftCards.AddNote(card.ID, "  ", Actor{}); !HasCode(err, CodeRequired) {
		t.Fatalf("empty note want required got %v", err)
	}
	event, err := env.giftCards.AddNote(card.ID, "called customer", Actor{ID: uintPtr(3)})
	if err != nil {
		t.Fatalf("add note failed: %v", err)
	}
	if event.Parameters["message"] != "called customer" {
		t.Fatalf("note message mismatch: %+v", event.Parameters)
	}
}

func TestGiftCardDeleteReleasesCodeAndTags(t *testing.T) {
	env := newServiceTestEnv(t)

	card, err := env.giftCards.Create(CreateGiftCardInput{Code: strPtr("BYE"), Balance: usd("5"), Tags: []string{"solo"}})
	if err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}
	if err := env.giftCards.Delete(card.ID); err != nil {
		t.Fatalf("delete gift card failed: %v", err)
	}
	if exists, _ := env.codeRepo.Exists("BYE"); exists {
		t.Fatalf("code should be released")
	}
	var tags int64
	env.db.Model(&models.GiftCardTag{}).Count(&tags)
	if tags != 0 {
		t.Fatalf("orphan tag should be deleted, got %d", tags)
	}
	if _, err := env.giftCards.Get(card.ID); !errors.Is(err, ErrGiftCardNotFound) {
		t.Fatalf("want ErrGiftCardNotFound got %v", err)
	}
	if env.recorder.Count(constants.EventGiftCardDeleted) != 1 {
		t.Fatalf("want one gift_card_deleted event")
	}
}

func TestGiftCardListFiltersByTag(t *testing.T) {
	env := newServiceTestEnv(t)

	if _, err := env.giftCards.BulkCreate(BulkCreateGiftCardsInput{Count: 3, Balance: usd("5"), Tags: []string{"promo"}}); err != nil {
		t.Fatalf("bulk create failed: %v", err)
	}
	if _, err := env.giftCards.Create(CreateGiftCardInput{Balance: usd("5")}); err != nil {
		t.Fatalf("create gift card failed: %v", err)
	}
	cards, total, err := env.giftCards.List(repository.GiftCardListFilter{Tag: "PROMO", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(cards) != 3 {
		t.Fatalf("want 3 tagged cards got total=%d len=%d", total, len(cards))
	}
}
