package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/middleware"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

const proofDiscardTimeout = 10 * time.Second

// PaymentHandler handles payment related HTTP requests
type PaymentHandler struct {
	payments *services.PaymentService
	proofs   ProofStore
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *services.PaymentService, proofs ProofStore) *PaymentHandler {
	return &PaymentHandler{payments: payments, proofs: proofs}
}

// CreateAndPay handles POST /api/payments/create-and-pay (multipart form).
func (h *PaymentHandler) CreateAndPay(c *gin.Context) {
	var buyer models.BuyerInfo
	if err := c.ShouldBind(&buyer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raffleID, err := optionalObjectID("raffleId", c.PostForm("raffleId"))
	if err != nil {
		respondError(c, err)
		return
	}
	numbers, err := parseSelectedNumbers(c)
	if err != nil {
		respondError(c, err)
		return
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("totalAmountUSD")), 64)
	if err != nil {
		respondError(c, models.NewValidationError("totalAmountUSD", "must be a number"))
		return
	}

	file, err := c.FormFile("proofOfPayment")
	if err != nil {
		respondError(c, models.NewValidationError("proofOfPayment", "proof of payment is required"))
		return
	}
	if err := checkProof(file); err != nil {
		respondError(c, err)
		return
	}
	proofURL, err := h.proofs.Save(c, file)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.payments.CreateAndReserve(c.Request.Context(), services.CreatePaymentInput{
		Actor:           middleware.GetActor(c),
		Buyer:           buyer,
		RaffleID:        raffleID,
		SelectedNumbers: numbers,
		Method:          models.PaymentMethod(strings.TrimSpace(c.PostForm("method"))),
		TotalAmountUSD:  amount,
		ProofOfPayment:  proofURL,
	})
	if err != nil {
		h.discardProof(c, proofURL)
		respondError(c, err)
		return
	}

	resp := gin.H{"payment": result.Payment, "user": result.User}
	if result.Token != "" {
		resp["token"] = result.Token
	}
	c.JSON(http.StatusCreated, resp)
}

// discardProof drops the upload of a purchase that was refused. It outlives
// a client that already hung up.
func (h *PaymentHandler) discardProof(c *gin.Context, location string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), proofDiscardTimeout)
	defer cancel()
	if err := h.proofs.Discard(ctx, location); err != nil {
		slog.Warn("discard proof of payment", "proof", location, "error", err)
	}
}

// parseSelectedNumbers accepts a JSON array, a comma separated list or a
// repeated form field.
func parseSelectedNumbers(c *gin.Context) ([]string, error) {
	values := c.PostFormArray("selectedNumbers")
	if len(values) == 1 {
		raw := strings.TrimSpace(values[0])
		if strings.HasPrefix(raw, "[") {
			var list []json.Number
			if err := json.Unmarshal([]byte(raw), &list); err != nil {
				var strs []string
				if err := json.Unmarshal([]byte(raw), &strs); err != nil {
					return nil, models.NewValidationError("selectedNumbers", "malformed list")
				}
				return strs, nil
			}
			out := make([]string, len(list))
			for i, n := range list {
				out[i] = n.String()
			}
			return out, nil
		}
		values = strings.Split(raw, ",")
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, models.NewValidationError("selectedNumbers", "at least one ticket number is required")
	}
	return out, nil
}

// My handles GET /api/payments/my
func (h *PaymentHandler) My(c *gin.Context) {
	actor := middleware.GetActor(c)
	payments, err := h.payments.List(c.Request.Context(), models.PaymentFilter{UserID: actor.UserID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// List handles GET /api/payments?status=&raffleId=
func (h *PaymentHandler) List(c *gin.Context) {
	status := models.PaymentStatus(c.Query("status"))
	switch status {
	case "", models.PaymentPending, models.PaymentConfirmed, models.PaymentRejected:
	default:
		respondError(c, models.NewValidationError("status", "unknown payment status"))
		return
	}
	h.list(c, status)
}

// Pending handles GET /api/payments/pending
func (h *PaymentHandler) Pending(c *gin.Context) { h.list(c, models.PaymentPending) }

// Confirmed handles GET /api/payments/confirmed
func (h *PaymentHandler) Confirmed(c *gin.Context) { h.list(c, models.PaymentConfirmed) }

func (h *PaymentHandler) list(c *gin.Context, status models.PaymentStatus) {
	raffleID, err := optionalObjectID("raffleId", c.Query("raffleId"))
	if err != nil {
		respondError(c, err)
		return
	}
	payments, err := h.payments.List(c.Request.Context(), models.PaymentFilter{Status: status, RaffleID: raffleID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// Stats handles GET /api/payments/stats
func (h *PaymentHandler) Stats(c *gin.Context) {
	raffleID, err := optionalObjectID("raffleId", c.Query("raffleId"))
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := h.payments.Stats(c.Request.Context(), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Get handles GET /api/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.Get(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// Confirm handles PUT /api/payments/:id/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.Confirm(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

type rejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
	Reason          string `json:"reason"`
}

// Reject handles PUT /api/payments/:id/reject
func (h *PaymentHandler) Reject(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reason := req.RejectionReason
	if reason == "" {
		reason = req.Reason
	}
	payment, err := h.payments.Reject(c.Request.Context(), id, middleware.GetActor(c), reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
