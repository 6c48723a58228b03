package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Broadcast topics. Clients subscribe per raffle; TopicYourTicketsReleased is
// delivered only to the owning user.
const (
	TopicTicketsReserved     = "ticketsReserved"
	TopicTicketStatusChanged = "ticketStatusChanged"
	TopicPaymentConfirmed    = "paymentConfirmed"
	TopicPaymentRejected     = "paymentRejected"
	TopicTicketsReleased     = "ticketsReleased"
	TopicPaymentCreated      = "paymentCreated"
	TopicRaffleCreated       = "raffleCreated"
	TopicRaffleUpdated       = "raffleUpdated"
	TopicRaffleDeleted       = "raffleDeleted"
	TopicYourTicketsReleased = "yourTicketsReleased"
)

// Event is the envelope pushed to realtime subscribers.
type Event struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sentAt"`
}

// RaffleScoped is implemented by payloads that belong to one raffle.
type RaffleScoped interface {
	RaffleKey() primitive.ObjectID
}

// UserScoped is implemented by payloads addressed to a single user.
type UserScoped interface {
	UserKey() primitive.ObjectID
}

// TicketsEvent carries a raffle id and a set of ticket numbers. It is the
// payload of ticketsReserved and ticketsReleased.
type TicketsEvent struct {
	RaffleID      primitive.ObjectID `json:"raffleId"`
	TicketNumbers []TicketNumber     `json:"ticketNumbers"`
}

func (e TicketsEvent) RaffleKey() primitive.ObjectID { return e.RaffleID }

// TicketStatusChangedEvent is the payload of ticketStatusChanged.
type TicketStatusChangedEvent struct {
	RaffleID      primitive.ObjectID `json:"raffleId"`
	TicketNumbers []TicketNumber     `json:"ticketNumbers"`
	NewStatus     TicketStatus       `json:"newStatus"`
}

func (e TicketStatusChangedEvent) RaffleKey() primitive.ObjectID { return e.RaffleID }

// PaymentEvent is the payload of paymentCreated, paymentConfirmed and
// paymentRejected. It goes to every raffle subscriber, so it carries no buyer
// data; a rejection reason reaches the buyer only as a notification.
type PaymentEvent struct {
	PaymentID     primitive.ObjectID `json:"paymentId"`
	RaffleID      primitive.ObjectID `json:"raffleId"`
	TicketNumbers []TicketNumber     `json:"ticketNumbers"`
}

func (e PaymentEvent) RaffleKey() primitive.ObjectID { return e.RaffleID }

// UserTicketsReleasedEvent tells one user their reservation expired.
type UserTicketsReleasedEvent struct {
	UserID        primitive.ObjectID `json:"userId"`
	RaffleID      primitive.ObjectID `json:"raffleId"`
	TicketNumbers []TicketNumber     `json:"ticketNumbers"`
}

func (e UserTicketsReleasedEvent) UserKey() primitive.ObjectID { return e.UserID }

// RaffleEvent is the payload of the raffle lifecycle topics.
type RaffleEvent struct {
	RaffleID primitive.ObjectID `json:"raffleId"`
	Raffle   *Raffle            `json:"raffle,omitempty"`
}

func (e RaffleEvent) RaffleKey() primitive.ObjectID { return e.RaffleID }
