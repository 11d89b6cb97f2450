package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"event-ticket-ledger/internal/cache"
	"event-ticket-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit 以呼叫者（未驗證時用 IP）加路由為 key 做令牌桶限流；
// 須掛在 Authenticate 之後才能依呼叫者計數。限流器出錯時放行
func RateLimit(limiter cache.RateLimiter, capacity int) gin.HandlerFunc {
	log := logger.WithComponent("ratelimit")
	return func(c *gin.Context) {
		key := rateKey(c)
		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        "too_many_requests",
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}

func rateKey(c *gin.Context) string {
	who := string(PrincipalFrom(c))
	if who == "" {
		who = "ip:" + c.ClientIP()
	}
	return strings.Join([]string{who, c.Request.Method, c.FullPath()}, ":")
}
