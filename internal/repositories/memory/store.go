// Package memory is an in-process implementation of the repositories. A
// single mutex serializes transactions and an undo log rolls back a failed
// one, so the ledger keeps the same all-or-nothing behaviour as the database
// backends. It backs local development and the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ticketKey struct {
	raffleID primitive.ObjectID
	number   models.TicketNumber
}

type txKey struct{}

type txn struct {
	store *Store
	undo  []func()
}

func (t *txn) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

// Store holds all collections behind one lock.
type Store struct {
	mu            sync.Mutex
	raffles       map[primitive.ObjectID]models.Raffle
	tickets       map[ticketKey]models.Ticket
	payments      map[primitive.ObjectID]models.Payment
	users         map[primitive.ObjectID]models.User
	notifications []models.Notification
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		raffles:  make(map[primitive.ObjectID]models.Raffle),
		tickets:  make(map[ticketKey]models.Ticket),
		payments: make(map[primitive.ObjectID]models.Payment),
		users:    make(map[primitive.ObjectID]models.User),
	}
}

// Repositories wires every repository of the store.
func (s *Store) Repositories() repositories.Store {
	return repositories.Store{
		Tx:            s,
		Raffles:       &RaffleRepository{s: s},
		Tickets:       &TicketRepository{s: s},
		Payments:      &PaymentRepository{s: s},
		Users:         &UserRepository{s: s},
		Notifications: &NotificationRepository{s: s},
	}
}

var _ repositories.Transactor = (*Store)(nil)

// WithTx runs fn holding the store lock. If fn fails every change it made is
// undone in reverse order.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t, ok := ctx.Value(txKey{}).(*txn); ok && t.store == s {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return &models.TransientStorageError{Op: "transaction", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &txn{store: s}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

// run executes fn inside the caller's transaction, or under the lock as a
// single-statement transaction.
func (s *Store) run(ctx context.Context, fn func(t *txn) error) error {
	if t, ok := ctx.Value(txKey{}).(*txn); ok && t.store == s {
		return fn(t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txn{store: s})
}

func (t *txn) putTicket(k ticketKey, ticket models.Ticket) {
	prev, existed := t.store.tickets[k]
	t.store.tickets[k] = ticket
	t.onRollback(func() {
		if existed {
			t.store.tickets[k] = prev
		} else {
			delete(t.store.tickets, k)
		}
	})
}

func (t *txn) deleteTicket(k ticketKey) {
	prev, existed := t.store.tickets[k]
	if !existed {
		return
	}
	delete(t.store.tickets, k)
	t.onRollback(func() { t.store.tickets[k] = prev })
}

func (t *txn) putRaffle(r models.Raffle) {
	prev, existed := t.store.raffles[r.ID]
	t.store.raffles[r.ID] = r
	t.onRollback(func() {
		if existed {
			t.store.raffles[r.ID] = prev
		} else {
			delete(t.store.raffles, r.ID)
		}
	})
}

func (t *txn) deleteRaffle(id primitive.ObjectID) {
	prev, existed := t.store.raffles[id]
	if !existed {
		return
	}
	delete(t.store.raffles, id)
	t.onRollback(func() { t.store.raffles[id] = prev })
}

func (t *txn) putPayment(p models.Payment) {
	prev, existed := t.store.payments[p.ID]
	t.store.payments[p.ID] = p
	t.onRollback(func() {
		if existed {
			t.store.payments[p.ID] = prev
		} else {
			delete(t.store.payments, p.ID)
		}
	})
}

func (t *txn) putUser(u models.User) {
	prev, existed := t.store.users[u.ID]
	t.store.users[u.ID] = u
	t.onRollback(func() {
		if existed {
			t.store.users[u.ID] = prev
		} else {
			delete(t.store.users, u.ID)
		}
	})
}

func (t *txn) appendNotification(n models.Notification) {
	t.store.notifications = append(t.store.notifications, n)
	size := len(t.store.notifications) - 1
	t.onRollback(func() { t.store.notifications = t.store.notifications[:size] })
}
