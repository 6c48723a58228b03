package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the review state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentConfirmed PaymentStatus = "Confirmed"
	PaymentRejected  PaymentStatus = "Rejected"
)

// PaymentMethod is one of the manual payment channels accepted for tickets.
type PaymentMethod string

const (
	MethodBinancePay PaymentMethod = "Binance Pay"
	MethodPagomovil  PaymentMethod = "Pagomovil"
	MethodZelle      PaymentMethod = "Zelle"
	MethodCash       PaymentMethod = "Cash"
)

// PaymentMethods lists the accepted methods.
var PaymentMethods = []PaymentMethod{MethodBinancePay, MethodPagomovil, MethodZelle, MethodCash}

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	for _, pm := range PaymentMethods {
		if m == pm {
			return true
		}
	}
	return false
}

// Payment is one buyer's attempt to purchase a set of ticket numbers.
type Payment struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          primitive.ObjectID  `bson:"userId" json:"userId"`
	RaffleID        primitive.ObjectID  `bson:"raffleId" json:"raffleId"`
	FullName        string              `bson:"fullName" json:"fullName"`
	IDNumber        string              `bson:"idNumber" json:"idNumber"`
	PhoneNumber     string              `bson:"phoneNumber" json:"phoneNumber"`
	Email           string              `bson:"email" json:"email"`
	SelectedNumbers []TicketNumber      `bson:"selectedNumbers" json:"selectedNumbers"`
	Method          PaymentMethod       `bson:"method" json:"method"`
	TotalAmountUSD  float64             `bson:"totalAmountUSD" json:"totalAmountUSD"`
	ProofOfPayment  string              `bson:"proofOfPayment" json:"proofOfPayment"`
	Status          PaymentStatus       `bson:"status" json:"status"`
	RejectionReason string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	ReviewedBy      *primitive.ObjectID `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time          `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Transition applies a review decision. Only Pending payments may move, and a
// rejection must carry a non-blank reason.
func (p *Payment) Transition(to PaymentStatus, reason string) error {
	if p.Status != PaymentPending || (to != PaymentConfirmed && to != PaymentRejected) {
		return &InvalidTransitionError{Entity: "payment", From: string(p.Status), To: string(to)}
	}
	reason = strings.TrimSpace(reason)
	if to == PaymentRejected && reason == "" {
		return NewValidationError("rejectionReason", "a reason is required to reject a payment")
	}
	p.Status = to
	if to == PaymentRejected {
		p.RejectionReason = reason
	}
	return nil
}

// Review records who decided on the payment and when.
func (p *Payment) Review(actorID primitive.ObjectID, now time.Time) {
	id, at := actorID, now
	p.ReviewedBy = &id
	p.ReviewedAt = &at
	p.UpdatedAt = now
}

// PaymentFilter narrows payment listings. Zero values are ignored.
type PaymentFilter struct {
	Status   PaymentStatus
	RaffleID primitive.ObjectID
	UserID   primitive.ObjectID
}

// PaymentStats summarizes payments for the admin dashboard.
type PaymentStats struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	Confirmed int     `json:"confirmed"`
	Rejected  int     `json:"rejected"`
	Revenue   float64 `json:"revenue"`
}
