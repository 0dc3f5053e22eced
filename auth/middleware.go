package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "timecard-principal"

// Middleware resolves the request's credentials and stores the principal in
// the gin context. Requests without a resolvable token never reach the
// handlers behind it.
func Middleware(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "no token, authorization denied"})
			return
		}

		principal, err := resolver.Resolve(c.Request.Context(), token)
		if errors.Is(err, ErrNoPrincipal) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "token is not valid"})
			return
		}
		if err != nil {
			slog.Error("unable to resolve principal", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "server error", "error": err.Error()})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// requestToken pulls the credential from the Authorization header, accepting
// the x-auth-token header the older clients still send.
func requestToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if header != "" {
		return header
	}
	return c.GetHeader("x-auth-token")
}

// FromContext returns the principal stored by Middleware.
func FromContext(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
