package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType identifies the buyer-facing message being sent.
type NotificationType string

const (
	NotifyPaymentPending     NotificationType = "payment_pending"
	NotifyPaymentConfirmed   NotificationType = "payment_confirmed"
	NotifyPaymentRejected    NotificationType = "payment_rejected"
	NotifyReservationExpired NotificationType = "reservation_expired"
)

// Notification delivery states.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// Notification is the persisted record of a message sent to a user.
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Type        NotificationType   `bson:"type" json:"type"`
	Title       string             `bson:"title" json:"title"`
	Message     string             `bson:"message" json:"message"`
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Channel     string             `bson:"channel" json:"channel"`
	Status      string             `bson:"status" json:"status"`
	MessageID   string             `bson:"messageId,omitempty" json:"messageId,omitempty"`
	Error       string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
