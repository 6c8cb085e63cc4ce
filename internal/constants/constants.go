package constants

// 队列与任务常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskPromotionRuleVariantsRefresh = "promotion_rule:variants_refresh"
)

// 领域事件常量
const (
	EventVoucherCreated        = "voucher_created"
	EventVoucherUpdated        = "voucher_updated"
	EventVoucherDeleted        = "voucher_deleted"
	EventVoucherCodesCreated   = "voucher_codes_created"
	EventVoucherCodesDeleted   = "voucher_codes_deleted"
	EventPromotionCreated      = "promotion_created"
	EventPromotionDeleted      = "promotion_deleted"
	EventPromotionRuleCreated  = "promotion_rule_created"
	EventPromotionRuleUpdated  = "promotion_rule_updated"
	EventPromotionRuleDeleted  = "promotion_rule_deleted"
	EventGiftCardCreated       = "gift_card_created"
	EventGiftCardUpdated       = "gift_card_updated"
	EventGiftCardDeleted       = "gift_card_deleted"
	EventGiftCardStatusChanged = "gift_card_status_changed"
	EventGiftCardTagsUpdated   = "gift_card_tags_updated"
)

// 上下文键
const (
	ContextKeyRequestID     = "request_id"
	ContextKeyAdminID       = "admin_id"
	ContextKeyAdminUsername = "admin_username"
	ContextKeyAdminEmail    = "admin_email"
)
