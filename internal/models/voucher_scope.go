package models

import (
	"github.com/dujiao-next/promo-engine/internal/predicate"
)

// ScopePredicate 将优惠券的适用范围表示为 OR 谓词；未限定范围时返回 nil（整单适用）
func (v *Voucher) ScopePredicate() predicate.Predicate {
	children := make([]predicate.Predicate, 0, 4)
	if len(v.ProductIDs) > 0 {
		children = append(children, predicate.NewLeaf(predicate.KindProduct, v.ProductIDs...))
	}
	if len(v.VariantIDs) > 0 {
		children = append(children, predicate.NewLeaf(predicate.KindVariant, v.VariantIDs...))
	}
	if len(v.CategoryIDs) > 0 {
		children = append(children, predicate.NewLeaf(predicate.KindCategory, v.CategoryIDs...))
	}
	if len(v.CollectionIDs) > 0 {
		children = append(children, predicate.NewLeaf(predicate.KindCollection, v.CollectionIDs...))
	}
	if len(children) == 0 {
		return nil
	}
	return predicate.NewOr(children...)
}
