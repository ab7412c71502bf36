package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/prohmpiriya/donation-rush/pkg/response"
)

const (
	RoleAdmin = "admin"

	// ContextKeySubject holds the authenticated operator
	ContextKeySubject = "admin_subject"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrForbidden    = errors.New("admin role required")
)

// AdminClaims are the claims of an operator token
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 admin token for subject
func IssueAdminToken(secret, issuer, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is required")
	}
	now := time.Now()
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAdminToken validates signature, expiry, issuer and role
func ParseAdminToken(secret, issuer, tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return claims, nil
}

// AdminAuth requires a valid admin bearer token
func AdminAuth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token")
			return
		}

		claims, err := ParseAdminToken(secret, issuer, tokenString)
		switch {
		case errors.Is(err, ErrForbidden):
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, err.Error())
			return
		case errors.Is(err, ErrTokenExpired):
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "token expired")
			return
		case err != nil:
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token")
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}
