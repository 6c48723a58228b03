package handlers

import (
	"net/http"

	"github.com/ArowuTest/rifa-backend/internal/middleware"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketHandler handles ticket related HTTP requests
type TicketHandler struct {
	tickets *services.TicketService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(tickets *services.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// ListByRaffle handles GET /api/tickets/raffle/:id?status=
func (h *TicketHandler) ListByRaffle(c *gin.Context) {
	raffleID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	tickets, err := h.tickets.ListByRaffle(c.Request.Context(), raffleID, models.TicketStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

type checkRequest struct {
	RaffleID        string   `json:"raffleId" binding:"required"`
	SelectedNumbers []string `json:"selectedNumbers" binding:"required"`
}

// Check handles POST /api/tickets/check
func (h *TicketHandler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raffleID, err := primitive.ObjectIDFromHex(req.RaffleID)
	if err != nil {
		respondError(c, models.NewValidationError("raffleId", "malformed id"))
		return
	}
	unavailable, err := h.tickets.CheckAvailability(c.Request.Context(), raffleID, req.SelectedNumbers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available":          len(unavailable) == 0,
		"unavailableNumbers": unavailable,
	})
}

// My handles GET /api/tickets/my
func (h *TicketHandler) My(c *gin.Context) {
	tickets, err := h.tickets.ListByUser(c.Request.Context(), middleware.GetActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// Stats handles GET /api/tickets/raffle/:id/stats
func (h *TicketHandler) Stats(c *gin.Context) {
	raffleID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	counts, err := h.tickets.Counts(c.Request.Context(), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available": counts.Available,
		"reserved":  counts.Reserved,
		"sold":      counts.Sold,
		"total":     counts.Total(),
	})
}

type releaseRequest struct {
	RaffleID     string `json:"raffleId" binding:"required"`
	TicketNumber string `json:"ticketNumber" binding:"required"`
}

// Release handles POST /api/tickets/release
func (h *TicketHandler) Release(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raffleID, err := primitive.ObjectIDFromHex(req.RaffleID)
	if err != nil {
		respondError(c, models.NewValidationError("raffleId", "malformed id"))
		return
	}
	number, released, err := h.tickets.ReleaseTicket(c.Request.Context(), raffleID, req.TicketNumber, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticketNumber": number, "released": released})
}
