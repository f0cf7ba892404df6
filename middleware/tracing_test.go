package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTracingMiddlewareChain(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(TracingMiddleware("test-service"))
	router.Use(EnrichTrace())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The chain must be transparent to the handler even with the default
	// no-op tracer provider.
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "pong" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("request ID header missing")
	}
}
