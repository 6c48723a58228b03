package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// TicketLedger owns ticket state changes. Every method runs inside the
// caller's transaction when there is one and opens its own otherwise. An
// error returned inside an outer transaction must be propagated so the outer
// transaction rolls back.
type TicketLedger struct {
	tx      repositories.Transactor
	tickets repositories.TicketRepository
	clock   clock.Clock
}

// NewTicketLedger creates a new TicketLedger
func NewTicketLedger(tx repositories.Transactor, tickets repositories.TicketRepository, clk clock.Clock) *TicketLedger {
	return &TicketLedger{tx: tx, tickets: tickets, clock: clk}
}

// Reserve claims every number for userID or none of them. The numbers that
// were not available are reported in a *models.TicketsUnavailableError.
func (l *TicketLedger) Reserve(ctx context.Context, raffleID primitive.ObjectID, numbers []models.TicketNumber, userID, paymentID primitive.ObjectID) error {
	return l.tx.WithTx(ctx, func(ctx context.Context) error {
		now := l.clock.Now()
		var unavailable []models.TicketNumber
		for _, n := range numbers {
			ok, err := l.tickets.Reserve(ctx, raffleID, n, userID, paymentID, now)
			if err != nil {
				return fmt.Errorf("reserve ticket %s: %w", n, err)
			}
			if !ok {
				unavailable = append(unavailable, n)
			}
		}
		if len(unavailable) > 0 {
			return &models.TicketsUnavailableError{Numbers: unavailable}
		}
		return nil
	})
}

// SaleResult tells how each number of a sale reached the sold state.
type SaleResult struct {
	// FromReserved were reserved for the payment and are now sold.
	FromReserved []models.TicketNumber
	// Reclaimed had expired back to available and were sold directly.
	Reclaimed []models.TicketNumber
	// AlreadySold were sold to this payment before; nothing changed.
	AlreadySold []models.TicketNumber
}

// Sold returns every number that changed to sold in this call.
func (r SaleResult) Sold() []models.TicketNumber {
	out := make([]models.TicketNumber, 0, len(r.FromReserved)+len(r.Reclaimed))
	out = append(out, r.FromReserved...)
	return append(out, r.Reclaimed...)
}

// MarkSold sells the numbers held by paymentID. A number whose reservation
// expired and is still available is claimed again for the buyer; a number now
// held by another payment fails the whole sale.
func (l *TicketLedger) MarkSold(ctx context.Context, raffleID primitive.ObjectID, numbers []models.TicketNumber, userID, paymentID primitive.ObjectID) (SaleResult, error) {
	var res SaleResult
	err := l.tx.WithTx(ctx, func(ctx context.Context) error {
		res = SaleResult{}
		now := l.clock.Now()
		var pending []models.TicketNumber
		for _, n := range numbers {
			ok, err := l.tickets.MarkSold(ctx, raffleID, n, paymentID, now)
			if err != nil {
				return fmt.Errorf("sell ticket %s: %w", n, err)
			}
			if ok {
				res.FromReserved = append(res.FromReserved, n)
			} else {
				pending = append(pending, n)
			}
		}
		if len(pending) == 0 {
			return nil
		}

		var conflicts []models.TicketNumber
		for _, n := range pending {
			claimed, err := l.tickets.Reserve(ctx, raffleID, n, userID, paymentID, now)
			if err != nil {
				return fmt.Errorf("reclaim ticket %s: %w", n, err)
			}
			if claimed {
				if _, err := l.tickets.MarkSold(ctx, raffleID, n, paymentID, now); err != nil {
					return fmt.Errorf("sell ticket %s: %w", n, err)
				}
				res.Reclaimed = append(res.Reclaimed, n)
				continue
			}
			conflicts = append(conflicts, n)
		}
		if len(conflicts) == 0 {
			return nil
		}

		held, err := l.tickets.FindByNumbers(ctx, raffleID, conflicts)
		if err != nil {
			return fmt.Errorf("load conflicting tickets: %w", err)
		}
		soldToPayment := make(map[models.TicketNumber]bool, len(held))
		for _, t := range held {
			if t.Status == models.TicketSold && t.TransactionID != nil && *t.TransactionID == paymentID {
				soldToPayment[t.Number] = true
			}
		}
		var unavailable []models.TicketNumber
		for _, n := range conflicts {
			if soldToPayment[n] {
				res.AlreadySold = append(res.AlreadySold, n)
			} else {
				unavailable = append(unavailable, n)
			}
		}
		if len(unavailable) > 0 {
			return &models.TicketsUnavailableError{Numbers: unavailable}
		}
		return nil
	})
	return res, err
}

// Release returns reserved numbers matching guard to available and reports
// which ones changed. Sold tickets are never touched.
func (l *TicketLedger) Release(ctx context.Context, raffleID primitive.ObjectID, numbers []models.TicketNumber, guard repositories.ReleaseGuard) ([]models.TicketNumber, error) {
	var released []models.TicketNumber
	err := l.tx.WithTx(ctx, func(ctx context.Context) error {
		released = nil
		now := l.clock.Now()
		for _, n := range numbers {
			ok, err := l.tickets.Release(ctx, raffleID, n, guard, now)
			if err != nil {
				return fmt.Errorf("release ticket %s: %w", n, err)
			}
			if ok {
				released = append(released, n)
			}
		}
		return nil
	})
	return released, err
}

// FindExpiredReservations returns reserved tickets older than olderThan.
func (l *TicketLedger) FindExpiredReservations(ctx context.Context, olderThan time.Duration) ([]*models.Ticket, error) {
	return l.tickets.FindExpiredReservations(ctx, l.clock.Now().Add(-olderThan))
}

// CheckAvailability returns the requested numbers that are not available.
func (l *TicketLedger) CheckAvailability(ctx context.Context, raffleID primitive.ObjectID, numbers []models.TicketNumber) ([]models.TicketNumber, error) {
	tickets, err := l.tickets.FindByNumbers(ctx, raffleID, numbers)
	if err != nil {
		return nil, err
	}
	available := make(map[models.TicketNumber]bool, len(tickets))
	for _, t := range tickets {
		available[t.Number] = t.Status == models.TicketAvailable
	}
	conflicts := []models.TicketNumber{}
	for _, n := range numbers {
		if !available[n] {
			conflicts = append(conflicts, n)
		}
	}
	return conflicts, nil
}

// RaffleAggregate maintains the sold and reserved counters of a raffle. Its
// methods must run in the same transaction as the ledger change they mirror.
type RaffleAggregate struct {
	raffles repositories.RaffleRepository
}

// NewRaffleAggregate creates a new RaffleAggregate
func NewRaffleAggregate(raffles repositories.RaffleRepository) *RaffleAggregate {
	return &RaffleAggregate{raffles: raffles}
}

func (a *RaffleAggregate) IncrementReserved(ctx context.Context, raffleID primitive.ObjectID, count int) error {
	return a.adjust(ctx, raffleID, count, 0)
}

func (a *RaffleAggregate) DecrementReserved(ctx context.Context, raffleID primitive.ObjectID, count int) error {
	return a.adjust(ctx, raffleID, -count, 0)
}

func (a *RaffleAggregate) IncrementSold(ctx context.Context, raffleID primitive.ObjectID, count int) error {
	return a.adjust(ctx, raffleID, 0, count)
}

func (a *RaffleAggregate) adjust(ctx context.Context, raffleID primitive.ObjectID, reservedDelta, soldDelta int) error {
	if reservedDelta == 0 && soldDelta == 0 {
		return nil
	}
	before, err := a.raffles.AdjustCounters(ctx, raffleID, reservedDelta, soldDelta)
	if err != nil {
		return fmt.Errorf("adjust counters of raffle %s: %w", raffleID.Hex(), err)
	}
	if reservedDelta < 0 && before.ReservedTickets < -reservedDelta {
		slog.Warn("raffle counter clamped at zero", "raffleId", raffleID.Hex(), "counter", "reservedTickets",
			"current", before.ReservedTickets, "delta", reservedDelta)
	}
	if soldDelta < 0 && before.SoldTickets < -soldDelta {
		slog.Warn("raffle counter clamped at zero", "raffleId", raffleID.Hex(), "counter", "soldTickets",
			"current", before.SoldTickets, "delta", soldDelta)
	}
	return nil
}
