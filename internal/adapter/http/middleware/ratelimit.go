// Package middleware holds gin middleware shared by the billing routes.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goCache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"circletel_billing/internal/logger"
	"circletel_billing/pkg"
)

// RateLimitConfig allows Requests per Window for each client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// WebhookRateLimit is the per-IP budget for gateway callbacks.
var WebhookRateLimit = RateLimitConfig{Requests: 100, Window: time.Minute}

// IPRateLimiter keeps one token bucket per client IP. Idle buckets expire from the cache.
type IPRateLimiter struct {
	cfg      RateLimitConfig
	limiters *goCache.Cache
	mu       sync.Mutex
	log      *logger.Logger
}

func NewIPRateLimiter(cfg RateLimitConfig, log *logger.Logger) *IPRateLimiter {
	if cfg.Requests <= 0 {
		cfg = WebhookRateLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &IPRateLimiter{
		cfg:      cfg,
		limiters: goCache.New(2*cfg.Window, 5*cfg.Window),
		log:      logger.OrNop(log).Named("rate_limit"),
	}
}

func (l *IPRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.limiters.Get(ip); ok {
		lim := v.(*rate.Limiter)
		l.limiters.SetDefault(ip, lim)
		return lim
	}
	lim := rate.NewLimiter(rate.Every(l.cfg.Window/time.Duration(l.cfg.Requests)), l.cfg.Requests)
	l.limiters.SetDefault(ip, lim)
	return lim
}

// Allow reports whether ip still has budget, consuming one request.
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.limiter(ip).Allow()
}

// Middleware answers 429 once a client IP runs out of budget.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			l.log.Warnw("[http][rate_limit] request rejected", "ip", ip, "path", c.FullPath())
			appErr := pkg.NewDomainErrorSimple("RATE_LIMITED", "Too many requests", http.StatusTooManyRequests)
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToHTTPError())
			return
		}
		c.Next()
	}
}
