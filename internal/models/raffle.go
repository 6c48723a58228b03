package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Raffle is a product raffle with a fixed pool of numbered tickets.
// SoldTickets and ReservedTickets mirror the ticket ledger and are updated in
// the same transaction as the tickets they count.
type Raffle struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	ProductName     string              `bson:"productName" json:"productName"`
	Description     string              `bson:"description" json:"description"`
	Images          []string            `bson:"images" json:"images"`
	Price           float64             `bson:"price" json:"price"`
	TotalTickets    int                 `bson:"totalTickets" json:"totalTickets"`
	SoldTickets     int                 `bson:"soldTickets" json:"soldTickets"`
	ReservedTickets int                 `bson:"reservedTickets" json:"reservedTickets"`
	Active          bool                `bson:"active" json:"active"`
	Paused          bool                `bson:"paused" json:"paused"`
	Winner          *primitive.ObjectID `bson:"winner,omitempty" json:"winner,omitempty"`
	WinningNumber   TicketNumber        `bson:"winningNumber,omitempty" json:"winningNumber,omitempty"`
	DrawDate        *time.Time          `bson:"drawDate,omitempty" json:"drawDate,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// NumberWidth is the zero-padded width of this raffle's ticket numbers.
func (r *Raffle) NumberWidth() int {
	return TicketNumberWidth(r.TotalTickets)
}

// AvailableTickets is the number of tickets neither reserved nor sold.
func (r *Raffle) AvailableTickets() int {
	n := r.TotalTickets - r.SoldTickets - r.ReservedTickets
	if n < 0 {
		return 0
	}
	return n
}

// OpenForSales reports whether purchases are currently accepted.
func (r *Raffle) OpenForSales() bool {
	return r.Active && !r.Paused
}

// RaffleCounters is the materialized pair of ledger counters.
type RaffleCounters struct {
	SoldTickets     int `bson:"soldTickets" json:"soldTickets"`
	ReservedTickets int `bson:"reservedTickets" json:"reservedTickets"`
}

// RaffleUpdate holds the admin-editable fields. Nil fields are left unchanged.
type RaffleUpdate struct {
	ProductName  *string   `json:"productName"`
	Description  *string   `json:"description"`
	Images       *[]string `json:"images"`
	Price        *float64  `json:"price"`
	TotalTickets *int      `json:"totalTickets"`
}

// RaffleStats is the admin view of a raffle's sales.
type RaffleStats struct {
	RaffleID       primitive.ObjectID `json:"raffleId"`
	TotalTickets   int                `json:"totalTickets"`
	Counts         TicketCounts       `json:"counts"`
	Counters       RaffleCounters     `json:"counters"`
	Revenue        float64            `json:"revenue"`
	PercentageSold float64            `json:"percentageSold"`
	Consistent     bool               `json:"consistent"`
}
