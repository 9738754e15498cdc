package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantCode    int
		wantAllowed string
	}{
		{
			name:        "許可されたオリジンにCORSヘッダーが設定されること",
			allowed:     []string{"http://localhost:3000", "https://example.com"},
			method:      http.MethodGet,
			origin:      "https://example.com",
			wantCode:    http.StatusOK,
			wantAllowed: "https://example.com",
		},
		{
			name:     "許可されていないオリジンにCORSヘッダーが設定されないこと",
			allowed:  []string{"http://localhost:3000"},
			method:   http.MethodGet,
			origin:   "https://evil.example",
			wantCode: http.StatusOK,
		},
		{
			name:     "Originヘッダーが無い場合にCORSヘッダーが設定されないこと",
			allowed:  []string{"*"},
			method:   http.MethodGet,
			wantCode: http.StatusOK,
		},
		{
			name:        "ワイルドカードで任意のオリジンを許可すること",
			allowed:     []string{"*"},
			method:      http.MethodGet,
			origin:      "https://any.example",
			wantCode:    http.StatusOK,
			wantAllowed: "https://any.example",
		},
		{
			name:        "OPTIONSリクエストで204が返ること",
			allowed:     []string{"http://localhost:3000"},
			method:      http.MethodOptions,
			origin:      "http://localhost:3000",
			wantCode:    http.StatusNoContent,
			wantAllowed: "http://localhost:3000",
		},
		{
			name:     "空のオリジンリストでCORSヘッダーが設定されないこと",
			method:   http.MethodGet,
			origin:   "http://localhost:3000",
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			called := false
			router := gin.New()
			router.Use(CORS(tt.allowed))
			handler := func(c *gin.Context) {
				called = true
				c.Status(http.StatusOK)
			}
			router.GET("/test", handler)
			router.OPTIONS("/test", handler)

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantCode)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllowed)
			}
			if wantCalled := tt.method != http.MethodOptions; called != wantCalled {
				t.Errorf("ハンドラ呼び出し = %v, want %v", called, wantCalled)
			}
		})
	}
}
