package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

const claimsKey = "auth.claims"

// RequireRole rejects requests without a valid bearer token with 401, and tokens whose role is
// below required with 403. Accepted claims are stored on the gin context.
func (a *Authenticator) RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.ClaimsFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !RoleAtLeast(claims.Role, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFromHeader parses the bearer token of an Authorization header value.
func (a *Authenticator) ClaimsFromHeader(header string) (*Claims, error) {
	return a.ParseToken(extractBearer(header))
}

func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func extractBearer(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
