package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type ipWindow struct {
	count     int
	expiresAt time.Time
}

// RateLimiter limits requests per client IP within a fixed window. It
// protects the ephemeral link creation endpoint, which is open to anonymous
// callers. done stops the background cleanup goroutine.
func RateLimiter(maxRequests int, window time.Duration, done <-chan struct{}) gin.HandlerFunc {
	var mu sync.Mutex
	windows := make(map[string]*ipWindow)

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				now := time.Now()
				for ip, w := range windows {
					if now.After(w.expiresAt) {
						delete(windows, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(c *gin.Context) {
		ip := clientIP(c)

		mu.Lock()
		w, exists := windows[ip]
		now := time.Now()

		if !exists || now.After(w.expiresAt) {
			windows[ip] = &ipWindow{count: 1, expiresAt: now.Add(window)}
			mu.Unlock()
			c.Next()
			return
		}

		w.count++
		if w.count > maxRequests {
			mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		mu.Unlock()
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil || ip == "" {
		return c.Request.RemoteAddr
	}
	return ip
}
