package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/binarjoin/agent-engine/internal/api/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	auth := middleware.NewAPIKeyAuth(nil)
	if auth.Enabled() {
		t.Error("Expected auth to be disabled with no keys")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai/status", nil)
	w := httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Disabled auth: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPIKeyAuth_Keys(t *testing.T) {
	auth := middleware.NewAPIKeyAuth([]string{"key-1", " key-2 ", ""})
	handler := auth.Middleware(okHandler())

	tests := []struct {
		name   string
		path   string
		header string
		value  string
		want   int
	}{
		{"bearer", "/api/v1/ai/status", "Authorization", "Bearer key-1", http.StatusOK},
		{"x-api-key", "/api/v1/ai/status", "X-API-Key", "key-2", http.StatusOK},
		{"wrong key", "/api/v1/ai/status", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"missing key", "/api/v1/ai/status", "", "", http.StatusUnauthorized},
		{"public health", "/health", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth_AddRemoveKey(t *testing.T) {
	auth := middleware.NewAPIKeyAuth(nil)

	auth.AddKey("runtime-key")
	if !auth.Enabled() {
		t.Error("Should be enabled after AddKey")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai/status", nil)
	req.Header.Set("X-API-Key", "runtime-key")
	w := httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Runtime key: status = %d, want %d", w.Code, http.StatusOK)
	}

	auth.RemoveKey("runtime-key")
	if auth.Enabled() {
		t.Error("Should be disabled after removing last key")
	}
}

func TestOwnerExtractor(t *testing.T) {
	var got string
	handler := middleware.OwnerExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.GetOwner(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai/sessions?user_id=from-query", nil)
	req.Header.Set("X-User-Id", " from-header ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "from-header" {
		t.Errorf("owner = %q, want header value", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/ai/sessions?user_id=from-query", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "from-query" {
		t.Errorf("owner = %q, want query value", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/ai/sessions", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "" {
		t.Errorf("owner = %q, want empty", got)
	}
}
