package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dujiao-next/promo-engine/internal/http/response"
	"github.com/dujiao-next/promo-engine/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolveAllowedOrigin(t *testing.T) {
	console := "https://console.shop.test"
	cases := []struct {
		name        string
		origin      string
		allowed     []string
		credentials bool
		want        string
	}{
		{"wildcard", console, []string{"*"}, false, "*"},
		{"wildcard echoes origin with credentials", console, []string{"*"}, true, console},
		{"allow-list case-insensitive", console, []string{"https://CONSOLE.shop.test"}, false, console},
		{"unlisted origin", "https://evil.test", []string{console}, false, ""},
		{"no origin header", "", []string{console}, true, ""},
	}
	for _, tc := range cases {
		if got := resolveAllowedOrigin(tc.origin, tc.allowed, tc.credentials); got != tc.want {
			t.Fatalf("%s: want %q got %q", tc.name, tc.want, got)
		}
	}
}

func TestRequestIDFlowsIntoErrorsAndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(zap.New(core)))
	r.GET("/api/v1/admin/vouchers/:id", func(c *gin.Context) {
		response.Error(c, response.CodeNotFound, "voucher not found")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/vouchers/9", nil)
	req.Header.Set(requestIDHeader, " req-123 ")
	r.ServeHTTP(w, req)

	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response header should echo trimmed request id, got %q", w.Header().Get(requestIDHeader))
	}
	var resp struct {
		StatusCode int               `json:"status_code"`
		Data       map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != response.CodeNotFound || resp.Data["request_id"] != "req-123" {
		t.Fatalf("error envelope should carry request id, got %+v", resp)
	}

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields[logger.FieldRequestID] != "req-123" || fields["path"] != "/api/v1/admin/vouchers/9" {
		t.Fatalf("request log fields mismatch: %v", fields)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/vouchers/10", nil))
	if _, err := uuid.Parse(w.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("missing header should get a generated uuid, got %q", w.Header().Get(requestIDHeader))
	}
}

func TestJWTAuthMiddlewareWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware(nil))
	r.GET("/api/v1/admin/vouchers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/vouchers", nil))

	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != response.CodeUnauthorized {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestDeriveAdminRouteModule(t *testing.T) {
	cases := map[string]string{
		"/api/v1/admin/vouchers/:id":               "vouchers",
		"/api/v1/admin/promotion-rules/:rule_id":   "promotions",
		"/api/v1/admin/gift-cards/:id/activate":    "gift-cards",
		"/api/v1/admin/login":                      "system",
		"/api/v1/admin/":                           "system",
		"/api/v1/admin/categories/:id/descendants": "categories",
	}
	for path, want := range cases {
		if got := deriveAdminRouteModule(path); got != want {
			t.Fatalf("module for %s want %s got %s", path, want, got)
		}
	}
}
