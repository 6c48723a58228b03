package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.TicketRepository = (*TicketRepository)(nil)

// TicketRepository is the in-memory ticket ledger. Status changes go through
// the transitions on models.Ticket.
type TicketRepository struct {
	s *Store
}

func (r *TicketRepository) CreateMany(ctx context.Context, tickets []models.Ticket) error {
	return r.s.run(ctx, func(t *txn) error {
		for _, ticket := range tickets {
			if _, exists := t.store.tickets[ticketKey{ticket.RaffleID, ticket.Number}]; exists {
				return fmt.Errorf("ticket %s already exists for raffle %s", ticket.Number, ticket.RaffleID.Hex())
			}
		}
		for _, ticket := range tickets {
			if ticket.ID.IsZero() {
				ticket.ID = primitive.NewObjectID()
			}
			t.putTicket(ticketKey{ticket.RaffleID, ticket.Number}, ticket)
		}
		return nil
	})
}

func (r *TicketRepository) collect(ctx context.Context, keep func(models.Ticket) bool) ([]*models.Ticket, error) {
	out := []*models.Ticket{}
	err := r.s.run(ctx, func(t *txn) error {
		for _, ticket := range t.store.tickets {
			if keep(ticket) {
				cp := ticket
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].RaffleID != out[j].RaffleID {
			return out[i].RaffleID.Hex() < out[j].RaffleID.Hex()
		}
		return out[i].Number < out[j].Number
	})
	return out, err
}

func (r *TicketRepository) FindByRaffle(ctx context.Context, raffleID primitive.ObjectID, status models.TicketStatus) ([]*models.Ticket, error) {
	return r.collect(ctx, func(t models.Ticket) bool {
		return t.RaffleID == raffleID && (status == "" || t.Status == status)
	})
}

func (r *TicketRepository) FindByNumbers(ctx context.Context, raffleID primitive.ObjectID, numbers []models.TicketNumber) ([]*models.Ticket, error) {
	want := make(map[models.TicketNumber]struct{}, len(numbers))
	for _, n := range numbers {
		want[n] = struct{}{}
	}
	return r.collect(ctx, func(t models.Ticket) bool {
		_, ok := want[t.Number]
		return ok && t.RaffleID == raffleID
	})
}

func (r *TicketRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.collect(ctx, func(t models.Ticket) bool {
		return t.UserID != nil && *t.UserID == userID
	})
}

func (r *TicketRepository) FindExpiredReservations(ctx context.Context, cutoff time.Time) ([]*models.Ticket, error) {
	return r.collect(ctx, func(t models.Ticket) bool {
		return t.ReservationExpired(cutoff)
	})
}

func (r *TicketRepository) CountByStatus(ctx context.Context, raffleID primitive.ObjectID) (models.TicketCounts, error) {
	var counts models.TicketCounts
	err := r.s.run(ctx, func(t *txn) error {
		for _, ticket := range t.store.tickets {
			if ticket.RaffleID != raffleID {
				continue
			}
			switch ticket.Status {
			case models.TicketAvailable:
				counts.Available++
			case models.TicketReserved:
				counts.Reserved++
			case models.TicketSold:
				counts.Sold++
			}
		}
		return nil
	})
	return counts, err
}

// apply loads one ticket, runs a transition on a copy and stores the result
// when the transition reports a change.
func (r *TicketRepository) apply(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, transition func(*models.Ticket) bool) (bool, error) {
	var changed bool
	err := r.s.run(ctx, func(t *txn) error {
		k := ticketKey{raffleID, number}
		ticket, ok := t.store.tickets[k]
		if !ok {
			return nil
		}
		if changed = transition(&ticket); changed {
			t.putTicket(k, ticket)
		}
		return nil
	})
	return changed, err
}

func (r *TicketRepository) Reserve(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, userID, paymentID primitive.ObjectID, now time.Time) (bool, error) {
	return r.apply(ctx, raffleID, number, func(t *models.Ticket) bool {
		return t.TryReserve(userID, paymentID, now) == nil
	})
}

func (r *TicketRepository) MarkSold(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, paymentID primitive.ObjectID, now time.Time) (bool, error) {
	return r.apply(ctx, raffleID, number, func(t *models.Ticket) bool {
		if t.Status != models.TicketReserved || !heldBy(t.TransactionID, paymentID) {
			return false
		}
		changed, err := t.TryMarkSold(now)
		return err == nil && changed
	})
}

func (r *TicketRepository) Release(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, guard repositories.ReleaseGuard, now time.Time) (bool, error) {
	return r.apply(ctx, raffleID, number, func(t *models.Ticket) bool {
		if t.Status != models.TicketReserved {
			return false
		}
		if !heldBy(t.TransactionID, guard.PaymentID) || !heldBy(t.UserID, guard.UserID) {
			return false
		}
		if !guard.ReservedBefore.IsZero() && !t.ReservationExpired(guard.ReservedBefore) {
			return false
		}
		changed, err := t.TryRelease(now)
		return err == nil && changed
	})
}

// heldBy reports whether ref matches want. A zero want matches anything.
func heldBy(ref *primitive.ObjectID, want primitive.ObjectID) bool {
	if want.IsZero() {
		return true
	}
	return ref != nil && *ref == want
}

func (r *TicketRepository) DeleteByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(t *txn) error {
		for k := range t.store.tickets {
			if k.raffleID == raffleID {
				t.deleteTicket(k)
				n++
			}
		}
		return nil
	})
	return n, err
}
