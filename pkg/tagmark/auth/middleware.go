package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the key for username in gin context
	ContextKeyUsername = "username"
)

var errMalformedHeader = errors.New("invalid authorization header format")

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
// An empty token and nil error mean no header was sent.
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errMalformedHeader
	}
	return parts[1], nil
}

// authenticate validates the request's token and stores the user in context.
// It reports whether a user was found; on failure it has already responded.
func authenticate(c *gin.Context, required bool) bool {
	tokenString, err := bearerToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
		c.Abort()
		return false
	}
	if tokenString == "" {
		if required {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
		}
		return false
	}

	claims, err := ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
		} else {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		}
		c.Abort()
		return false
	}

	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUsername, claims.Username)
	return true
}

// AuthMiddleware validates JWT tokens and sets user info in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, true) {
			return
		}
		c.Next()
	}
}

// OptionalAuth sets user info when a token is sent and lets anonymous
// requests through. A token that is sent but invalid is still rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, false)
		if c.IsAborted() {
			return
		}
		c.Next()
	}
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// Viewer returns the authenticated user id, or nil for anonymous requests
func Viewer(c *gin.Context) *uint {
	userID, ok := GetUserID(c)
	if !ok {
		return nil
	}
	return &userID
}

// GetUsername returns the username from the gin context
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(ContextKeyUsername)
	if !exists {
		return "", false
	}
	return username.(string), true
}
