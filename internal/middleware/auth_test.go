package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupAuthRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BearerAuth(AuthConfig{TokenAPI: token}))
	r.GET("/protegido", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"sem header", "", http.StatusUnauthorized},
		{"formato errado", "Token abc", http.StatusUnauthorized},
		{"sem prefixo", "abc123", http.StatusUnauthorized},
		{"token inválido", "Bearer errado", http.StatusUnauthorized},
		{"token válido", "Bearer segredo", http.StatusOK},
		{"bearer minúsculo", "bearer segredo", http.StatusOK},
	}

	r := setupAuthRouter("segredo")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protegido", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, esperava %d", w.Code, tt.wantStatus)
			}
		})
	}
}
