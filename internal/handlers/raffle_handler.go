package handlers

import (
	"net/http"

	"github.com/ArowuTest/rifa-backend/internal/middleware"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// RaffleHandler handles raffle related HTTP requests
type RaffleHandler struct {
	raffles *services.RaffleService
}

// NewRaffleHandler creates a new RaffleHandler
func NewRaffleHandler(raffles *services.RaffleService) *RaffleHandler {
	return &RaffleHandler{raffles: raffles}
}

// Active handles GET /api/raffles/active
func (h *RaffleHandler) Active(c *gin.Context) {
	raffle, err := h.raffles.GetActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// Get handles GET /api/raffles/:id
func (h *RaffleHandler) Get(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	raffle, err := h.raffles.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// List handles GET /api/raffles
func (h *RaffleHandler) List(c *gin.Context) {
	raffles, err := h.raffles.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffles)
}

// Create handles POST /api/raffles
func (h *RaffleHandler) Create(c *gin.Context) {
	var req services.CreateRaffleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raffle, err := h.raffles.Create(c.Request.Context(), req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, raffle)
}

// Update handles PUT /api/raffles/:id
func (h *RaffleHandler) Update(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req models.RaffleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raffle, err := h.raffles.Update(c.Request.Context(), id, req, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// TogglePause handles PATCH /api/raffles/:id/pause
func (h *RaffleHandler) TogglePause(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	raffle, err := h.raffles.TogglePause(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// Activate handles PATCH /api/raffles/:id/activate
func (h *RaffleHandler) Activate(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	raffle, err := h.raffles.Activate(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// Delete handles DELETE /api/raffles/:id
func (h *RaffleHandler) Delete(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.raffles.Delete(c.Request.Context(), id, middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /api/raffles/:id/stats
func (h *RaffleHandler) Stats(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.raffles.Stats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Draw handles POST /api/raffles/:id/draw
func (h *RaffleHandler) Draw(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	raffle, err := h.raffles.DrawWinner(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// Reconcile handles POST /api/raffles/:id/reconcile
func (h *RaffleHandler) Reconcile(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.raffles.Reconcile(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
