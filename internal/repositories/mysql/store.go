package mysql

import (
	"time"

	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"gorm.io/gorm"
)

// NewStore wires every repository against db.
func NewStore(db *gorm.DB, txTimeout time.Duration) repositories.Store {
	tx := NewTxManager(db, txTimeout)
	return repositories.Store{
		Tx:            tx,
		Raffles:       NewRaffleRepository(db, tx),
		Tickets:       NewTicketRepository(db),
		Payments:      NewPaymentRepository(db),
		Users:         NewUserRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}
