package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketStatus is the ledger state of a single ticket number.
type TicketStatus string

const (
	TicketAvailable TicketStatus = "available"
	TicketReserved  TicketStatus = "reserved"
	TicketSold      TicketStatus = "sold"
)

// Ticket is one numbered entry of a raffle. (RaffleID, Number) is unique.
type Ticket struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	RaffleID      primitive.ObjectID  `bson:"raffleId" json:"raffleId"`
	Number        TicketNumber        `bson:"ticketNumber" json:"ticketNumber"`
	Status        TicketStatus        `bson:"status" json:"status"`
	UserID        *primitive.ObjectID `bson:"userId" json:"userId,omitempty"`
	ReservedAt    *time.Time          `bson:"reservedAt" json:"reservedAt,omitempty"`
	PurchasedAt   *time.Time          `bson:"purchasedAt" json:"purchasedAt,omitempty"`
	TransactionID *primitive.ObjectID `bson:"transactionId" json:"transactionId,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// NewTicket returns an available ticket for raffleID.
func NewTicket(raffleID primitive.ObjectID, number TicketNumber, now time.Time) Ticket {
	return Ticket{
		ID:        primitive.NewObjectID(),
		RaffleID:  raffleID,
		Number:    number,
		Status:    TicketAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (t *Ticket) invalid(to TicketStatus) error {
	return &InvalidTransitionError{Entity: "ticket", From: string(t.Status), To: string(to)}
}

// TryReserve moves an available ticket to reserved for userID.
func (t *Ticket) TryReserve(userID, paymentID primitive.ObjectID, now time.Time) error {
	if t.Status != TicketAvailable {
		return t.invalid(TicketReserved)
	}
	uid, pid, at := userID, paymentID, now
	t.Status = TicketReserved
	t.UserID = &uid
	t.TransactionID = &pid
	t.ReservedAt = &at
	t.UpdatedAt = now
	return nil
}

// TryMarkSold moves a reserved ticket to sold. A ticket that is already sold
// is left as is and reports changed=false.
func (t *Ticket) TryMarkSold(now time.Time) (bool, error) {
	switch t.Status {
	case TicketSold:
		return false, nil
	case TicketReserved:
		at := now
		t.Status = TicketSold
		t.PurchasedAt = &at
		t.ReservedAt = nil
		t.UpdatedAt = now
		return true, nil
	default:
		return false, t.invalid(TicketSold)
	}
}

// TryRelease returns a non-sold ticket to available. Releasing an available
// ticket is a no-op; a sold ticket is never downgraded.
func (t *Ticket) TryRelease(now time.Time) (bool, error) {
	switch t.Status {
	case TicketSold:
		return false, t.invalid(TicketAvailable)
	case TicketAvailable:
		return false, nil
	default:
		t.Status = TicketAvailable
		t.UserID = nil
		t.ReservedAt = nil
		t.TransactionID = nil
		t.UpdatedAt = now
		return true, nil
	}
}

// ReservationExpired reports whether a reserved ticket was reserved before cutoff.
func (t *Ticket) ReservationExpired(cutoff time.Time) bool {
	return t.Status == TicketReserved && t.ReservedAt != nil && t.ReservedAt.Before(cutoff)
}

// TicketCounts is the per-status breakdown of a raffle's ledger.
type TicketCounts struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Sold      int `json:"sold"`
}

// Total returns the number of tickets counted.
func (c TicketCounts) Total() int { return c.Available + c.Reserved + c.Sold }
