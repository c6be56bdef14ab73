package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"notesage/internal/transport/http/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "user_email"
)

// VerifyToken checks the bearer token issued by the hosted identity
// provider and attaches the user identity to the request. Only
// verification happens here; login, refresh and sessions stay with the
// provider. In dev mode a mock user is attached instead.
func VerifyToken(jwtSecret string, devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if devMode {
			c.Set(ContextUserIDKey, "dev-user")
			c.Set(ContextEmailKey, "dev@example.com")
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "Unauthorized", "Missing or invalid authorization header", "")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, http.StatusUnauthorized, "Unauthorized", "Missing or invalid authorization header", "")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		userID, email, err := parseProviderToken(jwtSecret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "Unauthorized", "Invalid authentication token", "")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextEmailKey, email)
		c.Next()
	}
}

func parseProviderToken(secret, tokenString string) (userID, email string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", "", fmt.Errorf("token has no subject")
	}
	email, _ = claims["email"].(string)
	return sub, email, nil
}

// UserIDFromContext returns the authenticated user id set by
// VerifyToken.
func UserIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
