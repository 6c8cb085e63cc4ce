package cache

import (
	"testing"

	"github.com/dujiao-next/promo-engine/internal/config"
)

func TestLocalDisabledIsNoop(t *testing.T) {
	local, err := NewLocal(&config.LocalCacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new local failed: %v", err)
	}
	if local != nil {
		t.Fatalf("disabled local cache should be nil")
	}
	if err := local.SetJSON("k", []uint{1}); err != nil {
		t.Fatalf("set on nil cache failed: %v", err)
	}
	var out []uint
	hit, err := local.GetJSON("k", &out)
	if err != nil || hit {
		t.Fatalf("nil cache should miss, hit=%v err=%v", hit, err)
	}
	local.Delete("k")
	local.Reset()
}

func TestLocalRoundTrip(t *testing.T) {
	local, err := NewLocal(&config.LocalCacheConfig{Enabled: true, Shards: 16, LifeWindowSecond: 30, MaxEntrySize: 256})
	if err != nil {
		t.Fatalf("new local failed: %v", err)
	}
	defer local.Close()

	if err := local.SetJSON("category:descendants:1", []uint{1, 2, 3}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	var ids []uint
	hit, err := local.GetJSON("category:descendants:1", &ids)
	if err != nil || !hit {
		t.Fatalf("expected hit, hit=%v err=%v", hit, err)
	}
	if len(ids) != 3 || ids[2] != 3 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	local.Delete("category:descendants:1")
	hit, _ = local.GetJSON("category:descendants:1", &ids)
	if hit {
		t.Fatalf("expected miss after delete")
	}

	_ = local.SetJSON("a", 1)
	local.Reset()
	var n int
	if hit, _ := local.GetJSON("a", &n); hit {
		t.Fatalf("expected miss after reset")
	}
}
