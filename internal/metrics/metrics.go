package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodeGenerateAttempts 候选码生成次数
	CodeGenerateAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_code_generate_attempts_total",
			Help: "Total number of promo code candidates drawn",
		},
		[]string{"length"},
	)

	// CodeGenerateExhausted 达到重试上限的次数
	CodeGenerateExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_code_generate_exhausted_total",
			Help: "Total number of code generations that hit the retry ceiling",
		},
		[]string{"length"},
	)

	// CodeClaimCollisions 写入码值时唯一索引冲突次数
	CodeClaimCollisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_code_claim_collisions_total",
			Help: "Total number of unique-index collisions while claiming codes",
		},
		[]string{"namespace"},
	)

	// DirtyMarked 标记价格待重算的实体数量
	DirtyMarked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_dirty_marked_total",
			Help: "Total number of entities marked for discounted price recompute",
		},
		[]string{"entity"},
	)

	// EventsEmitted 领域事件投递结果
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_events_emitted_total",
			Help: "Total number of domain events emitted",
		},
		[]string{"event_type", "result"},
	)

	// RuleVariantsRefreshed 规则 SKU 关联重算次数
	RuleVariantsRefreshed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_rule_variants_refreshed_total",
			Help: "Total number of promotion rule variant link recomputes",
		},
		[]string{"result"},
	)

	// HTTPRequests 管理端请求数
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_http_requests_total",
			Help: "Total number of admin HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration 管理端请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promo_http_request_duration_seconds",
			Help:    "Admin HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
