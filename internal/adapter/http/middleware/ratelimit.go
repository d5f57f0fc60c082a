package middleware

import (
	"fmt"
	"strconv"
	"time"

	"marketplace-backend/config"
	redisStore "marketplace-backend/internal/adapter/storage/redis"
	"marketplace-backend/pkg/apperror"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Rate limit groups configured under ratelimit.rules.
const (
	GroupToken    = "token"
	GroupRegister = "register"
	GroupPurchase = "purchase"
	GroupWallets  = "wallets"
)

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Authenticated callers are limited per user, anonymous ones per client IP.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule config.RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || rule.Limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", group, extractIdentifier(c))

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier determines the rate limit key source.
func extractIdentifier(c *gin.Context) string {
	if user, ok := CurrentUser(c); ok {
		return "user:" + strconv.FormatInt(user.ID, 10)
	}
	return "ip:" + c.ClientIP()
}
