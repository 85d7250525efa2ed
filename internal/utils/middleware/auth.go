package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// AdminSubjectKey is the context key for the authenticated admin subject.
	AdminSubjectKey = "admin_subject"
)

// AdminClaims are the JWT claims carried by admin tokens.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth returns a middleware that validates admin JWT tokens signed
// with the configured secret. Gateway credential management is only
// reachable through this.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Authorization header required",
				},
			})
			return
		}

		claims, err := ValidateAdminToken(token, secret)
		if err != nil || claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Invalid or expired token",
				},
			})
			return
		}

		c.Set(AdminSubjectKey, claims.Subject)
		c.Next()
	}
}

// GenerateAdminToken mints an HS256 admin token. Used by the operator
// tooling and tests.
func GenerateAdminToken(subject, secret string, expiry time.Duration) (string, error) {
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateAdminToken parses and validates an admin token.
func ValidateAdminToken(token, secret string) (*AdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthorizationHeader)
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, BearerPrefix)
}
