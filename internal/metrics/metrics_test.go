package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	CodeGenerateAttempts.WithLabelValues("12")
	CodeGenerateExhausted.WithLabelValues("12")
	CodeClaimCollisions.WithLabelValues("gift_card")
	DirtyMarked.WithLabelValues("channel")
	EventsEmitted.WithLabelValues("voucher_created", "ok")
	RuleVariantsRefreshed.WithLabelValues("ok")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, name := range []string{
		"promo_code_generate_attempts_total",
		"promo_code_generate_exhausted_total",
		"promo_code_claim_collisions_total",
		"promo_dirty_marked_total",
		"promo_events_emitted_total",
		"promo_rule_variants_refreshed_total",
	} {
		assert.True(t, names[name], "expected metric %q to be registered", name)
	}
}

func TestDirtyMarkedCounts(t *testing.T) {
	before := testutil.ToFloat64(DirtyMarked.WithLabelValues("product"))
	DirtyMarked.WithLabelValues("product").Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(DirtyMarked.WithLabelValues("product")))
}
