package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"heard-backend/internal/features/session"
)

const principalKey = "principal"

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RequireAuth verifies the bearer access token with the auth service's
// HMAC secret and places the principal in the request context.
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: bearer token required"})
			return
		}

		principal, err := principalFromToken(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: invalid token"})
			return
		}

		c.Set(principalKey, principal)
		c.Set("access_token", token)
		c.Next()
	}
}

// Principal returns the authenticated session placed by RequireAuth.
func Principal(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok
}

// AccessToken returns the raw bearer token for pass-through calls to
// the auth service.
func AccessToken(c *gin.Context) string {
	return c.GetString("access_token")
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func principalFromToken(token, secret string) (*session.Session, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return &session.Session{UserID: claims.Subject, Email: claims.Email}, nil
}
