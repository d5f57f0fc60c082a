package middleware

import (
	"net/http"
	"strings"
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/internal/service"
	"marketplace-backend/pkg/apperror"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"

	// Context keys
	CtxUser = "current_user"

	maxRequestIDLen = 128
)

// RequestID echoes a client-supplied X-Request-ID or generates one, and
// stores the caller's address on the request context for audit entries.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(service.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

// BearerAuth resolves the bearer token to an active user and stores it under CtxUser.
func BearerAuth(gate ports.AuthorizationGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}
		if !authenticate(c, gate, token) {
			return
		}
		c.Next()
	}
}

// OptionalBearerAuth authenticates the caller when an Authorization header is
// present and lets anonymous requests through otherwise. A bad token still fails.
func OptionalBearerAuth(gate ports.AuthorizationGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderAuthorization) == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}
		if !authenticate(c, gate, token) {
			return
		}
		c.Next()
	}
}

// RequireRole must run after BearerAuth.
func RequireRole(gate ports.AuthorizationGate, role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}
		if _, err := gate.RequireRole(user, role); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by BearerAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(CtxUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

func authenticate(c *gin.Context, gate ports.AuthorizationGate, token string) bool {
	user, err := gate.ResolveCurrentUser(c.Request.Context(), token)
	if err == nil {
		user, err = gate.RequireActive(user)
	}
	if err != nil {
		_ = c.Error(err)
		response.Error(c, err)
		c.Abort()
		return false
	}
	c.Set(CtxUser, user)
	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequestLogger creates a middleware that logs every HTTP request.
// Errors attached with c.Error are logged with their cause on 5xx responses.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
			if last := c.Errors.Last(); last != nil {
				event = event.Err(last.Err)
			}
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if user, ok := CurrentUser(c); ok {
			event = event.Int64("user_id", user.ID)
		}

		event.
			Str("request_id", c.GetString(response.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("request_id", c.GetString(response.RequestIDKey)).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				response.Error(c, apperror.New("SYS_999", "Internal server error", http.StatusInternalServerError))
				c.Abort()
			}
		}()
		c.Next()
	}
}
