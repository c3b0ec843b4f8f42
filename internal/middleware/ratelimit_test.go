package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shortloop/link-resolver/internal/middleware"
)

func rateLimitedRouter(t *testing.T, maxRequests int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	r := gin.New()
	r.Use(middleware.RateLimiter(maxRequests, time.Minute, done))
	r.POST("/api/links/ephemeral", func(c *gin.Context) {
		c.String(http.StatusCreated, "ok")
	})
	return r
}

func post(r *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/links/ephemeral", http.NoBody)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	r := rateLimitedRouter(t, 3)

	for i := 0; i < 3; i++ {
		if code := post(r, "203.0.113.9:4000"); code != http.StatusCreated {
			t.Fatalf("request %d: got %d, want 201", i, code)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	r := rateLimitedRouter(t, 2)

	post(r, "203.0.113.9:4000")
	post(r, "203.0.113.9:4000")

	if code := post(r, "203.0.113.9:4000"); code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", code)
	}
}

func TestRateLimiter_IPsIndependent(t *testing.T) {
	r := rateLimitedRouter(t, 1)

	if code := post(r, "203.0.113.9:4000"); code != http.StatusCreated {
		t.Fatalf("first ip got %d, want 201", code)
	}
	if code := post(r, "198.51.100.7:4000"); code != http.StatusCreated {
		t.Fatalf("second ip got %d, want 201", code)
	}
}
