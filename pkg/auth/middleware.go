package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityContextKey = "auth.identity"

// Middleware returns a gin middleware that requires a valid Bearer token
// and stores the verified identity on the request context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authorization required"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		identity, err := s.VerifyToken(token)
		if err != nil {
			status := http.StatusUnauthorized
			if s.logger != nil {
				s.logger.Debug("Token verification failed", map[string]interface{}{
					"error": err.Error(),
					"path":  c.Request.URL.Path,
				})
			}
			c.AbortWithStatusJSON(status, gin.H{"message": "invalid or expired token"})
			return
		}

		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// IdentityFromContext returns the verified identity stored by Middleware
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
