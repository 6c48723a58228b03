package handlers

import (
	"net/http"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	authService    *services.AuthService
	bootstrapToken string
}

// NewAuthHandler creates a new AuthHandler. An empty bootstrapToken disables
// admin registration.
func NewAuthHandler(authService *services.AuthService, bootstrapToken string) *AuthHandler {
	return &AuthHandler{authService: authService, bootstrapToken: bootstrapToken}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// RegisterAdmin handles POST /api/auth/register-admin. The bootstrap token
// travels in the X-Bootstrap-Token header.
func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	if h.bootstrapToken == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "admin registration is disabled"})
		return
	}
	var req models.BuyerInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.authService.RegisterAdmin(c.Request.Context(), req, c.GetHeader("X-Bootstrap-Token"), h.bootstrapToken)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.authService.IssueToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}
