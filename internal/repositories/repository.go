package repositories

import (
	"context"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transactor runs fn as one atomic unit. The transaction travels in the
// context handed to fn; repository calls made with that context take part in
// it, and a nested WithTx joins the outer transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RaffleRepository defines the interface for raffle data operations
type RaffleRepository interface {
	Create(ctx context.Context, raffle *models.Raffle) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error)
	FindActive(ctx context.Context) (*models.Raffle, error)
	FindAll(ctx context.Context) ([]*models.Raffle, error)
	// Update writes metadata, flags and draw results. Counters are only
	// changed through AdjustCounters and SetCounters.
	Update(ctx context.Context, raffle *models.Raffle) error
	DeactivateAll(ctx context.Context, except primitive.ObjectID) error
	// AdjustCounters adds the deltas, flooring each counter at zero, and
	// returns the counters as they were before the update.
	AdjustCounters(ctx context.Context, id primitive.ObjectID, reservedDelta, soldDelta int) (models.RaffleCounters, error)
	SetCounters(ctx context.Context, id primitive.ObjectID, counters models.RaffleCounters) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TicketRepository defines the ticket ledger. Every mutation is a
// compare-and-set on the ticket status and reports whether it applied.
type TicketRepository interface {
	CreateMany(ctx context.Context, tickets []models.Ticket) error
	FindByRaffle(ctx context.Context, raffleID primitive.ObjectID, status models.TicketStatus) ([]*models.Ticket, error)
	FindByNumbers(ctx context.Context, raffleID primitive.ObjectID, numbers []models.TicketNumber) ([]*models.Ticket, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error)
	FindExpiredReservations(ctx context.Context, cutoff time.Time) ([]*models.Ticket, error)
	CountByStatus(ctx context.Context, raffleID primitive.ObjectID) (models.TicketCounts, error)

	// Reserve moves available -> reserved.
	Reserve(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, userID, paymentID primitive.ObjectID, now time.Time) (bool, error)
	// MarkSold moves reserved -> sold. A non-zero paymentID restricts it to
	// tickets reserved by that payment.
	MarkSold(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, paymentID primitive.ObjectID, now time.Time) (bool, error)
	// Release moves reserved -> available when the reservation matches guard.
	Release(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, guard ReleaseGuard, now time.Time) (bool, error)

	DeleteByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int64, error)
}

// ReleaseGuard narrows which reservations Release may clear. Zero fields
// match any reservation.
type ReleaseGuard struct {
	PaymentID      primitive.ObjectID
	UserID         primitive.ObjectID
	ReservedBefore time.Time
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	Find(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	// UpdateStatus persists a reviewed payment only if its stored status is
	// still from.
	UpdateStatus(ctx context.Context, payment *models.Payment, from models.PaymentStatus) (bool, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDNumber(ctx context.Context, idNumber string) (*models.User, error)
	CountByRole(ctx context.Context, role models.UserRole) (int64, error)
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error)
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Tx            Transactor
	Raffles       RaffleRepository
	Tickets       TicketRepository
	Payments      PaymentRepository
	Users         UserRepository
	Notifications NotificationRepository
}
