package config

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 12, cfg.Promo.VoucherCodeLength)
	assert.Equal(t, 16, cfg.Promo.GiftCardCodeLength)
	assert.Equal(t, 1000, cfg.Promo.CodeMaxAttempts)
	assert.Equal(t, 20, cfg.Promo.PredicateMaxDepth)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "promo.events", cfg.Events.Topic)
	assert.Equal(t, 10, cfg.Queue.Queues["default"])
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "promo-engine", cfg.Log.ToLoggerOptions().Service)
	assert.Equal(t, 10, cfg.Server.ShutdownTimeoutSeconds)
	assert.Equal(t, 60, cfg.Queue.SweepIntervalSeconds)
	assert.Equal(t, 200, cfg.Queue.SweepBatch)
}

func TestDecodeYAMLOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	raw := []byte(`
database:
  driver: postgres
  dsn: "host=localhost user=promo"
events:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
promo:
  voucher_code_length: 10
  code_max_attempts: -3
`)
	require.NoError(t, v.ReadConfig(bytes.NewReader(raw)))

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, 10, cfg.Promo.VoucherCodeLength)
	assert.Equal(t, 1000, cfg.Promo.CodeMaxAttempts, "non-positive values fall back")
}
