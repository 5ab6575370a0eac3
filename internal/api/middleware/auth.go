// Package middleware provides HTTP middleware for the Gin router.
//
// Go Learning Note — Middleware Pattern (Gin):
// In Gin, middleware is any function with the signature `gin.HandlerFunc`, which
// is `func(*gin.Context)`. Middleware functions form a chain: each one runs,
// optionally calls c.Next() to pass control to the next handler, and can call
// c.Abort() to stop the chain. This is the "chain of responsibility" pattern.
//
// Middleware is applied using .Use() on a router or route group. Common uses:
// authentication, logging, CORS headers, rate limiting, and request tracing.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridehail/internal/auth"
)

// Context keys for storing authenticated user data.
// These are used with c.Set()/c.Get() to pass data between middleware and handlers.
const (
	UserIDKey   = "user_id"
	UserTypeKey = "user_type"

	UserTypeRider  = "rider"
	UserTypeDriver = "driver"
	UserTypeAdmin  = "admin"
)

// TokenVerifier is satisfied by *auth.Manager.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// JWTAuth verifies the bearer token and stores the subject and role in the
// request context. Tokens whose role is not rider, driver or admin are
// rejected here so handlers never see an unknown role.
//
// Go Learning Note — c.Abort():
// c.Abort() prevents subsequent handlers in the chain from running. Without it,
// even after writing an error response, the next handler would still execute.
// Always pair error responses with c.Abort() in middleware.
func JWTAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		// Browsers cannot set headers on a WebSocket handshake.
		if authHeader == "" && c.Query("access_token") != "" {
			authHeader = "Bearer " + c.Query("access_token")
		}
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token, ok := auth.BearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		role := strings.ToLower(claims.Role)
		switch role {
		case UserTypeRider, UserTypeDriver, UserTypeAdmin:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown role in token"})
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Set(UserTypeKey, role)
		c.Next()
	}
}

// RequireRole lets the request through only when the authenticated user has
// one of roles. Must be used after JWTAuth() in the chain.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType, _ := c.Get(UserTypeKey)
		for _, role := range roles {
			if userType == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": strings.Join(roles, " or ") + " access required"})
	}
}

// GetUserID retrieves the user ID previously set by JWTAuth.
//
// Go Learning Note — Type Assertion:
// c.Get() returns (interface{}, bool). The two-value form `v, ok := x.(string)`
// returns ok=false instead of panicking, so a handler mounted without the
// middleware gets an empty id rather than a crash.
func GetUserID(c *gin.Context) string {
	v, _ := c.Get(UserIDKey)
	userID, _ := v.(string)
	return userID
}

// GetUserType retrieves the role ("rider", "driver" or "admin") from context.
func GetUserType(c *gin.Context) string {
	v, _ := c.Get(UserTypeKey)
	userType, _ := v.(string)
	return userType
}
