package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"nexart.backend/internal/domain/entities"
)

const (
	// AccountKey is the context key for the key's owning account
	AccountKey = "apiKeyAccount"
	// ApiKeyKey is the context key for the verified API key
	ApiKeyKey = "apiKey"
)

// KeyVerifier resolves a raw bearer token to its key and owning account.
type KeyVerifier interface {
	Verify(ctx context.Context, rawToken string) (*entities.Account, *entities.ApiKey, error)
}

// ApiKeyAuthMiddleware authenticates metered requests by bearer API key.
// Every failure is the same opaque 401: a missing header, an unknown
// prefix, a wrong secret, and a revoked key must be indistinguishable to
// the caller.
func ApiKeyAuthMiddleware(apiKeyUsecase KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid api key",
			})
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		account, key, err := apiKeyUsecase.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid api key",
			})
			return
		}

		c.Set(AccountKey, account)
		c.Set(ApiKeyKey, key)

		c.Next()
	}
}

// GetAccount gets the verified account from context
func GetAccount(c *gin.Context) (*entities.Account, bool) {
	v, exists := c.Get(AccountKey)
	if !exists {
		return nil, false
	}
	return v.(*entities.Account), true
}

// GetApiKey gets the verified API key from context
func GetApiKey(c *gin.Context) (*entities.ApiKey, bool) {
	v, exists := c.Get(ApiKeyKey)
	if !exists {
		return nil, false
	}
	return v.(*entities.ApiKey), true
}
