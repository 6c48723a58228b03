// Package mongodb implements the repositories on MongoDB. Multi-document
// operations need a replica set for transactions.
package mongodb

import (
	"time"

	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewStore wires every repository against db.
func NewStore(client *mongo.Client, db *mongo.Database, txTimeout time.Duration) repositories.Store {
	return repositories.Store{
		Tx:            NewTxManager(client, txTimeout),
		Raffles:       NewRaffleRepository(db),
		Tickets:       NewTicketRepository(db),
		Payments:      NewPaymentRepository(db),
		Users:         NewUserRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}
