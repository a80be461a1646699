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
//
// Go Learning Note — "github.com/gin-gonic/gin":
// Gin is one of Go's most popular HTTP frameworks. It wraps net/http with a
// fast router (radix tree based), JSON binding/validation, middleware support,
// and structured error handling. Alternatives include chi, echo, and fiber.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"vapi/internal/apperr"
)

// UserIDKey is the gin context key holding the authenticated user ID.
//
// Go Learning Note — Context Values:
// Gin's c.Set/c.Get stores request-scoped values in the *gin.Context. This is
// similar to the standard library's context.WithValue(). Use constants for
// keys to avoid typos and enable refactoring.
const UserIDKey = "user_id"

// Authenticator turns a bearer token into a user ID.
type Authenticator interface {
	Authenticate(token string) (userID string, err error)
}

// DevAuthenticator trusts the token as the user ID: "Bearer user-42"
// authenticates as "user-42". For local development and tests only.
type DevAuthenticator struct{}

func (DevAuthenticator) Authenticate(token string) (string, error) {
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", errors.New("invalid user id")
	}
	return token, nil
}

// JWTAuthenticator validates HS256 tokens and uses the "sub" claim as the
// user ID.
//
// Go Learning Note — "github.com/golang-jwt/jwt/v5":
// jwt.Parse verifies the signature with the key returned by the keyfunc and
// checks the registered time claims (exp, nbf, iat). WithValidMethods pins
// the algorithm so a token cannot pick a weaker one ("alg": "none").
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// OptionalAuth resolves the caller when an Authorization header is present
// and lets anonymous requests through. A header that is present but invalid
// is rejected with 401. A nil authenticator ignores the header entirely.
//
// Go Learning Note — c.Abort():
// c.Abort() prevents subsequent handlers in the chain from running. Without it,
// even after writing an error response, the next handler would still execute.
// AbortWithStatusJSON writes the response and aborts in one call.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || auth == nil {
			c.Next()
			return
		}

		// strings.SplitN splits into at most 2 parts, handling tokens with spaces.
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthenticated(c, "Invalid authorization format")
			return
		}

		userID, err := auth.Authenticate(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthenticated(c, "Invalid or expired token")
			return
		}

		// Store user info in the request context for downstream handlers.
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequireUser rejects anonymous requests. Must run after OptionalAuth.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			abortUnauthenticated(c, "Authentication required")
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user ID, or "" for anonymous callers.
//
// Go Learning Note — Type Assertion:
// c.Get() returns (any, bool). The two-value form `v, ok := x.(string)`
// yields ok=false instead of panicking when the value is missing or has
// another type, which is what we want for optional authentication.
func GetUserID(c *gin.Context) string {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return ""
	}
	userID, _ := v.(string)
	return userID
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
		"kind":  apperr.Unauthenticated,
	})
}
