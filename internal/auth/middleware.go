package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Middleware для аутентификации запросов
type Middleware struct {
	validator *Validator
	logger    *logrus.Logger
}

// NewMiddleware создает новый middleware аутентификации
func NewMiddleware(validator *Validator, logger *logrus.Logger) *Middleware {
	return &Middleware{
		validator: validator,
		logger:    logger,
	}
}

// Authenticate проверяет токен аутентификации
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			m.logger.WithField("ip", c.ClientIP()).Warn("Missing authentication token")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authentication token",
				"code":  "MISSING_TOKEN",
			})
			c.Abort()
			return
		}

		user, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"ip":           c.ClientIP(),
				"token_prefix": token[:min(10, len(token))],
				"error":        err.Error(),
			}).Warn("Token validation failed")

			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		// Сохраняем данные пользователя в контексте
		c.Set("user", user)
		c.Set("user_id", user.ID)

		m.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"ip":      c.ClientIP(),
		}).Info("Authenticated request")

		c.Next()
	}
}

// OptionalAuthenticate пытается аутентифицировать пользователя, но не требует
// этого. Нужен для чтения: публичные треки видны без токена, свои приватные
// появляются в выдаче после аутентификации
func (m *Middleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		user, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"ip":    c.ClientIP(),
				"error": err.Error(),
			}).Debug("Optional token validation failed")
			c.Next()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)

		c.Next()
	}
}

// extractToken извлекает токен из запроса (header, query parameter или cookie)
func (m *Middleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	if token := c.Query("token"); token != "" {
		return token
	}

	if token, err := c.Cookie("token"); err == nil && token != "" {
		return token
	}

	return ""
}

// GetUser возвращает пользователя из контекста Gin
func GetUser(c *gin.Context) (*User, bool) {
	if user, exists := c.Get("user"); exists {
		if u, ok := user.(*User); ok {
			return u, true
		}
	}
	return nil, false
}

// GetUserID возвращает ID пользователя из контекста Gin
func GetUserID(c *gin.Context) (int64, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(int64); ok {
			return id, true
		}
	}
	return 0, false
}

// min возвращает минимальное из двух чисел
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
