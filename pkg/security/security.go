package security

import (
	"math"
	"microcourse_backend/internal/config"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CORS 仅回显白名单内的 Origin，预检请求直接 204
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		if origin != "" && originSet[origin] {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Secure 通用安全响应头
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		// 仅 TLS 下发送 HSTS
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		c.Next()
	}
}

// visitors 每个客户端一个令牌桶，空闲超过 expiry 的条目会被清理
type visitors struct {
	mu      sync.Mutex
	entries map[string]*visitor
	limit   rate.Limit
	burst   int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (v *visitors) allow(key string, now time.Time) bool {
	v.mu.Lock()
	e, ok := v.entries[key]
	if !ok {
		e = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.entries[key] = e
	}
	e.lastSeen = now
	v.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

func (v *visitors) sweep(now time.Time, expiry time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for key, e := range v.entries {
		if now.Sub(e.lastSeen) > expiry {
			delete(v.entries, key)
		}
	}
}

// RateLimiter 按客户端 IP 限流，窗口内最多 MaxRequests 次；MaxRequests<=0 时不限流
func RateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}

	v := &visitors{
		entries: make(map[string]*visitor),
		limit:   rate.Every(window / time.Duration(cfg.MaxRequests)),
		burst:   cfg.MaxRequests,
	}
	expiry := window * 3
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			v.sweep(now, expiry)
		}
	}()

	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds() / float64(cfg.MaxRequests))))

	return func(c *gin.Context) {
		if !v.allow(c.ClientIP(), time.Now()) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": http.StatusTooManyRequests, "message": "Too many requests"})
			return
		}
		c.Next()
	}
}
