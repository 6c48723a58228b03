package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// respondError maps service errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	var unavailable *models.TicketsUnavailableError
	var invalid *models.ValidationError
	var duplicate *models.DuplicateIdentityError

	switch {
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error":              err.Error(),
			"unavailableNumbers": unavailable.Numbers,
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": invalid.Field})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "field": duplicate.Field})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrNoActiveRaffle):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrTransientStorage):
		slog.Warn("transient storage error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, please retry"})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// objectIDParam parses a path parameter, writing a 400 when it is malformed.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalObjectID parses raw, returning the zero id for an empty string.
func optionalObjectID(field, raw string) (primitive.ObjectID, error) {
	if raw == "" {
		return primitive.NilObjectID, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, models.NewValidationError(field, "malformed id")
	}
	return id, nil
}
