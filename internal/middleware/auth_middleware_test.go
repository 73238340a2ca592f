package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/middleware"
)

func TestAuthMiddleware_RequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		callerRole string
		required   string
		wantStatus int
	}{
		{name: "exact role", callerRole: "manager", required: "manager", wantStatus: http.StatusOK},
		{name: "admin passes any check", callerRole: "admin", required: "manager", wantStatus: http.StatusOK},
		{name: "insufficient role", callerRole: "user", required: "manager", wantStatus: http.StatusForbidden},
		{name: "no role set", callerRole: "", required: "manager", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			m := middleware.NewAuthMiddleware(nil, log)

			r := gin.New()
			r.GET("/protected",
				func(c *gin.Context) {
					if tt.callerRole != "" {
						c.Set("userRole", tt.callerRole)
					}
				},
				m.RequireRole(tt.required),
				func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
			)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
