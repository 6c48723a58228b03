package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Context keys set by the auth middleware.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextUserRole  = "userRole"
)

const bearerSchema = "Bearer "

// JWTAuthMiddleware rejects requests without a valid bearer token.
func JWTAuthMiddleware(tokens *jwt.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		if !authenticate(c, tokens, authHeader) {
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func OptionalAuth(tokens *jwt.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !authenticate(c, tokens, authHeader) {
				return
			}
		}
		c.Next()
	}
}

// authenticate parses the header and stores the claims on c, aborting with
// 401 on failure.
func authenticate(c *gin.Context, tokens *jwt.TokenService, authHeader string) bool {
	if !strings.HasPrefix(authHeader, bearerSchema) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer "})
		return false
	}
	claims, err := tokens.Parse(strings.TrimSpace(authHeader[len(bearerSchema):]))
	if err != nil {
		slog.Debug("token rejected", "error", err, "path", c.FullPath())
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
		} else {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		}
		return false
	}
	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		return false
	}
	c.Set(ContextUserID, userID)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextUserRole, models.UserRole(claims.Role))
	return true
}

// AdminRequired checks that the authenticated user has the admin role. Use
// after JWTAuthMiddleware.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetActor(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// GetActor returns the caller set by the auth middleware, or a zero Actor
// for anonymous requests.
func GetActor(c *gin.Context) models.Actor {
	var actor models.Actor
	if v, ok := c.Get(ContextUserID); ok {
		actor.UserID, _ = v.(primitive.ObjectID)
	}
	if v, ok := c.Get(ContextUserRole); ok {
		actor.Role, _ = v.(models.UserRole)
	}
	return actor
}
