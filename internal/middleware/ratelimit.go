package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/simp-lee/bankoffice/internal/pkg"
)

const (
	rateLimitClients = 10000
	rateLimitIdleTTL = 10 * time.Minute
	tooManyMessage   = "Too many requests. Slow down and try again."
)

// RateLimit applies a token bucket of rps/burst per client IP. Buckets for
// idle clients are evicted after ten minutes.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	limiters := expirable.NewLRU[string, *rate.Limiter](rateLimitClients, nil, rateLimitIdleTTL)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		lim, ok := limiters.Get(ip)
		if !ok {
			lim = rate.NewLimiter(rate.Limit(rps), burst)
			limiters.Add(ip, lim)
		}
		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		if pkg.IsHTMX(c) {
			c.Header("HX-Reswap", "none")
			pkg.SetToast(c, tooManyMessage, pkg.ToastError)
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, pkg.Response{
			Code:    http.StatusTooManyRequests,
			Message: "too many requests",
		})
	}
}
