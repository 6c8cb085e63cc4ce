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

func moneyPtr(v int64) *models.Money {
	m := models.NewMoneyFromDecimal(decimal.NewFromInt(v))
	return &m
}

func idsInput(kind predicate.Kind, ids ...uint) *predicate.IDsInput {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, predicate.EncodeID(kind, id))
	}
	return &predicate.IDsInput{IDs: values}
}

func dirtyProductIDs(t *testing.T, env *serviceTestEnv) []uint {
	t.Helper()
	var ids []uint
	if err := env.db.Model(&models.Product{}).Where("discounted_price_dirty = ?", true).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		t.Fatalf("query dirty products failed: %v", err)
	}
	return ids
}

func dirtyChannelIDs(t *testing.T, env *serviceTestEnv) []uint {
	t.Helper()
	channels, err := env.marker.ListDirtyChannels()
	if err != nil {
		t.Fatalf("list dirty channels failed: %v", err)
	}
	ids := make([]uint, 0, len(channels))
	for _, channel := range channels {
		ids = append(ids, channel.ID)
	}
	slices.Sort(ids)
	return ids
}

func TestPromotionCreateMarksAffectedCatalogue(t *testing.T) {
	env := newServiceTestEnv(t)

	channel := env.createChannel(t, "web", "USD")
	idle := env.createChannel(t, "pos", "USD")
	c1 := env.createCategory(t, "c1", nil)
	c1child := env.createCategory(t, "c1-child", uintPtr(c1.ID))
	c3 := env.createCategory(t, "c3", nil)
	p1, v1 := env.createProduct(t, "p1", c3.ID)
	p2, v2 := env.createProduct(t, "p2", c1.ID)
	p3, v3 := env.createProduct(t, "p3", c1child.ID)
	p4, _ := env.createProduct(t, "p4", c3.ID)

	promotion, err := env.promotions.Create(CreatePromotionInput{
		Name: "summer",
		Rules: []PromotionRuleInput{{
			Name: "p1 or c1",
			CataloguePredicate: &predicate.Input{Or: []predicate.Input{
				{ProductPredicate: idsInput(predicate.KindProduct, p1.ID)},
				{CategoryPredicate: idsInput(predicate.KindCategory, c1.ID)},
			}},
			RewardValueType: models.RewardValueTypePercentage,
			RewardValue:     moneyPtr(10),
			ChannelIDs:      []uint{channel.ID},
		}},
	})
	if err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	if len(promotion.Rules) != 1 {
		t.Fatalf("rules want 1 got %d", len(promotion.Rules))
	}

	want := []uint{p1.ID, p2.ID, p3.ID}
	if got := dirtyProductIDs(t, env); !slices.Equal(got, want) {
		t.Fatalf("dirty products want %v got %v (p4=%d)", want, got, p4.ID)
	}
	if got := dirtyChannelIDs(t, env); !slices.Equal(got, []uint{channel.ID}) {
		t.Fatalf("dirty channels want [%d] got %v (idle=%d)", channel.ID, got, idle.ID)
	}

	variants, err := env.promoRepo.RuleVariantIDs(promotion.Rules[0].ID)
	if err != nil {
		t.Fatalf("rule variants failed: %v", err)
	}
	slices.Sort(variants)
	if !slices.Equal(variants, []uint{v1.ID, v2.ID, v3.ID}) {
		t.Fatalf("rule variants want %v got %v", []uint{v1.ID, v2.ID, v3.ID}, variants)
	}
	rule, err := env.promotions.GetRule(promotion.Rules[0].ID)
	if err != nil {
		t.Fatalf("get rule failed: %v", err)
	}
	if rule.VariantsDirty {
		t.Fatalf("variants should be refreshed inline when queue is disabled")
	}
	if env.recorder.Count(constants.EventPromotionCreated) != 1 {
		t.Fatalf("want one promotion_created event")
	}

	matched, err := env.promotions.RuleMatchesProduct(rule.ID, p3.ID)
	if err != nil || !matched {
		t.Fatalf("p3 should match through category descendants, matched=%v err=%v", matched, err)
	}
	matched, err = env.promotions.RuleMatchesProduct(rule.ID, p4.ID)
	if err != nil || matched {
		t.Fatalf("p4 should not match, matched=%v err=%v", matched, err)
	}
}

func TestPromotionCreateRejectsUnknownCatalogueIDs(t *testing.T) {
	env := newServiceTestEnv(t)

	_, err := env.promotions.Create(CreatePromotionInput{
		Name: "broken",
		Rules: []PromotionRuleInput{{
			CataloguePredicate: &predicate.Input{ProductPredicate: idsInput(predicate.KindProduct, 404)},
		}},
	})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	if !verr.HasCode(CodeNotFound) {
		t.Fatalf("want not_found got %+v", verr.Errors)
	}
	for _, item := range verr.Errors {
		if item.Code == CodeNotFound && !slices.Contains(item.Values, predicate.EncodeID(predicate.KindProduct, 404)) {
			t.Fatalf("missing id should be reported, got %+v", item)
		}
	}
}

func TestPromotionCreateRejectsMixedCurrencyFixedReward(t *testing.T) {
	env := newServiceTestEnv(t)

	usd := env.createChannel(t, "usd", "USD")
	eur := env.createChannel(t, "eur", "EUR")
	_, err := env.promotions.Create(CreatePromotionInput{
		Name: "fixed",
		Rules: []PromotionRuleInput{{
			RewardValueType: models.RewardValueTypeFixed,
			RewardValue:     moneyPtr(5),
			ChannelIDs:      []uint{usd.ID, eur.ID},
		}},
	})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	field := verr.Field("rules.0.rewardValueType")
	if field == nil || field.Code != CodeInvalid {
		t.Fatalf("want invalid on rules.0.rewardValueType, got %+v", verr.Errors)
	}
}

func TestPromotionUpdateRuleRejectsChannelInBothLists(t *testing.T) {
	env := newServiceTestEnv(t)

	channel := env.createChannel(t, "web", "USD")
	promotion, err := env.promotions.Create(CreatePromotionInput{
		Name:  "base",
		Rules: []PromotionRuleInput{{Name: "r", ChannelIDs: []uint{channel.ID}}},
	})
	if err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	_, err = env.promotions.UpdateRule(promotion.Rules[0].ID, UpdatePromotionRuleInput{
		AddChannels:    []uint{channel.ID},
		RemoveChannels: []uint{channel.ID},
	})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want validation error got %v", err)
	}
	for _, name := range []string{"addChannels", "removeChannels"} {
		field := verr.Field(name)
		if field == nil || field.Code != CodeDuplicatedInputItem {
			t.Fatalf("want duplicated_input_item on %s, got %+v", name, verr.Errors)
		}
	}
}

func TestPromotionUpdateRuleMarksOldAndNewScope(t *testing.T) {
	env := newServiceTestEnv(t)

	oldChannel := env.createChannel(t, "old", "USD")
	newChannel := env.createChannel(t, "new", "USD")
	category := env.createCategory(t, "cat", nil)
	before, _ := env.createProduct(t, "before", category.ID)
	after, afterVariant := env.createProduct(t, "after", category.ID)

	promotion, err := env.promotions.Create(CreatePromotionInput{
		Name: "switch",
		Rules: []PromotionRuleInput{{
			CataloguePredicate: &predicate.Input{ProductPredicate: idsInput(predicate.KindProduct, before.ID)},
			ChannelIDs:         []uint{oldChannel.ID},
		}},
	})
	if err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	if _, err := env.marker.ClearChannels([]uint{oldChannel.ID, newChannel.ID}); err != nil {
		t.Fatalf("clear channels failed: %v", err)
	}
	env.db.Model(&models.Product{}).Where("1 = 1").Update("discounted_price_dirty", false)
	env.recorder.Reset()

	rule, err := env.promotions.UpdateRule(promotion.Rules[0].ID, UpdatePromotionRuleInput{
		CataloguePredicate: &predicate.Input{ProductPredicate: idsInput(predicate.KindProduct, after.ID)},
		AddChannels:        []uint{newChannel.ID},
		RemoveChannels:     []uint{oldChannel.ID},
	})
	if err != nil {
		t.Fatalf("update rule failed: %v", err)
	}
	if got := rule.ChannelIDs(); !slices.Equal(got, []uint{newChannel.ID}) {
		t.Fatalf("rule channels want [%d] got %v", newChannel.ID, got)
	}
	if got := dirtyChannelIDs(t, env); !slices.Equal(got, []uint{oldChannel.ID, newChannel.ID}) {
		t.Fatalf("dirty channels want old and new got %v", got)
	}
	if got := dirtyProductIDs(t, env); !slices.Equal(got, []uint{before.ID, after.ID}) {
		t.Fatalf("dirty products want old and new got %v", got)
	}
	variants, _ := env.promoRepo.RuleVariantIDs(rule.ID)
	if !slices.Equal(variants, []uint{afterVariant.ID}) {
		t.Fatalf("rule variants want [%d] got %v", afterVariant.ID, variants)
	}
	if env.recorder.Count(constants.EventPromotionRuleUpdated) != 1 {
		t.Fatalf("want one promotion_rule_updated event")
	}
}

func TestPromotionDeleteMarksRuleScope(t *testing.T) {
	env := newServiceTestEnv(t)

	channel := env.createChannel(t, "web", "USD")
	category := env.createCategory(t, "cat", nil)
	product, _ := env.createProduct(t, "only", category.ID)
	promotion, err := env.promotions.Create(CreatePromotionInput{
		Name: "gone",
		Rules: []PromotionRuleInput{{
			CataloguePredicate: &predicate.Input{CategoryPredicate: idsInput(predicate.KindCategory, category.ID)},
			ChannelIDs:         []uint{channel.ID},
		}},
	})
	if err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	env.marker.ClearChannels([]uint{channel.ID})
	env.db.Model(&models.Product{}).Where("1 = 1").Update("discounted_price_dirty", false)

	if err := env.promotions.Delete(promotion.ID); err != nil {
		t.Fatalf("delete promotion failed: %v", err)
	}
	if got := dirtyChannelIDs(t, env); !slices.Equal(got, []uint{channel.ID}) {
		t.Fatalf("dirty channels want [%d] got %v", channel.ID, got)
	}
	if got := dirtyProductIDs(t, env); !slices.Equal(got, []uint{product.ID}) {
		t.Fatalf("dirty products want [%d] got %v", product.ID, got)
	}
	if _, err := env.promotions.GetPromotion(promotion.ID); err != ErrPromotionNotFound {
		t.Fatalf("want ErrPromotionNotFound got %v", err)
	}
}

func TestRefreshDirtyRules(t *testing.T) {
	env := newServiceTestEnv(t)

	category := env.createCategory(t, "cat", nil)
	_, variant := env.createProduct(t, "one", category.ID)
	promotion, err := env.promotions.Create(CreatePromotionInput{
		Name: "refresh",
		Rules: []PromotionRuleInput{{
			CataloguePredicate: &predicate.Input{CategoryPredicate: idsInput(predicate.KindCategory, category.ID)},
		}},
	})
	if err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	ruleID := promotion.Rules[0].ID
	if _, err := env.promoRepo.MarkVariantsDirty([]uint{ruleID}); err != nil {
		t.Fatalf("mark dirty failed: %v", err)
	}
	done, err := env.promotions.RefreshDirtyRules(10)
	if err != nil || done != 1 {
		t.Fatalf("refresh dirty rules want 1 got %d err=%v", done, err)
	}
	variants, _ := env.promoRepo.RuleVariantIDs(ruleID)
	if !slices.Equal(variants, []uint{variant.ID}) {
		t.Fatalf("rule variants want [%d] got %v", variant.ID, variants)
	}
}

func corruptStoredPredicate(t *testing.T, env *serviceTestEnv, ruleID uint) {
	t.Helper()
	if err := env.db.Model(&models.PromotionRule{}).Where("id = ?", ruleID).
		Update("catalogue_predicate", "{broken").Error; err != nil {
		t.Fatalf("corrupt predicate failed: %v", err)
	}
	if err := env.db.Model(&models.Product{}).Where("1 = 1").Update("discounted_price_dirty", false).Error; err != nil {
		t.Fatalf("reset dirty products failed: %v", err)
	}
}

func TestDeleteRuleWithUnreadablePredicateUsesLinkedVariants(t *testing.T) {
	env := newServiceTestEnv(t)

	category := env.createCategory(t, "cat", nil)
	product, variant := env.createProduct(t, "one", category.ID)
	env.createProduct(t, "outside", env.createCategory(t, "other", nil).ID)
	promotion, err := env.promotions.Create(CreatePromotionInput{
		Name: "broken",
		Rules: []PromotionRuleInput{{
			CataloguePredicate: &predicate.Input{CategoryPredicate: idsInput(predicate.KindCategory, category.ID)},
		}},
	})
	if err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	ruleID := promotion.Rules[0].ID
	if variants, _ := env.promoRepo.RuleVariantIDs(ruleID); !slices.Equal(variants, []uint{variant.ID}) {
		t.Fatalf("rule variants want [%d] got %v", variant.ID, variants)
	}
	corruptStoredPredicate(t, env, ruleID)

	if err := env.promotions.DeleteRule(ruleID); err != nil {
		t.Fatalf("delete rule failed: %v", err)
	}
	if got := dirtyProductIDs(t, env); !slices.Equal(got, []uint{product.ID}) {
		t.Fatalf("dirty products want [%d] got %v", product.ID, got)
	}
}

func TestUnreadablePredicateWithStaleVariantsFails(t *testing.T) {
	env := newServiceTestEnv(t)

	category := env.createCategory(t, "cat", nil)
	env.createProduct(t, "one", category.ID)
	promotion, err := env.promotions.Create(CreatePromotionInput{
		Name: "stale",
		Rules: []PromotionRuleInput{{
			CataloguePredicate: &predicate.Input{CategoryPredicate: idsInput(predicate.KindCategory, category.ID)},
		}},
	})
	if err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	ruleID := promotion.Rules[0].ID
	corruptStoredPredicate(t, env, ruleID)
	if _, err := env.promoRepo.MarkVariantsDirty([]uint{ruleID}); err != nil {
		t.Fatalf("mark dirty failed: %v", err)
	}

	if err := env.promotions.DeleteRule(ruleID); !errors.Is(err, ErrPromotionRuleInvalidPredicate) {
		t.Fatalf("delete rule want ErrPromotionRuleInvalidPredicate got %v", err)
	}
	if err := env.promotions.RefreshRuleVariants(ruleID); !errors.Is(err, ErrPromotionRuleInvalidPredicate) {
		t.Fatalf("refresh want ErrPromotionRuleInvalidPredicate got %v", err)
	}
	if _, err := env.promotions.GetRule(ruleID); err != nil {
		t.Fatalf("rule should survive failed delete: %v", err)
	}
	done, err := env.promotions.RefreshDirtyRules(10)
	if err != nil || done != 0 {
		t.Fatalf("sweep should skip unreadable rule, done=%d err=%v", done, err)
	}
}
