package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// CleanupReport summarizes a dangling reservation cleanup.
type CleanupReport struct {
	Dangling int `json:"dangling"`
	Released int `json:"released"`
	Raffles  int `json:"raffles"`
}

// ReservationCleaner frees reserved tickets whose payment no longer exists.
type ReservationCleaner struct {
	tx        repositories.Transactor
	raffles   repositories.RaffleRepository
	tickets   repositories.TicketRepository
	payments  repositories.PaymentRepository
	ledger    *TicketLedger
	aggregate *RaffleAggregate
}

// NewReservationCleaner creates a new ReservationCleaner
func NewReservationCleaner(store repositories.Store, ledger *TicketLedger, aggregate *RaffleAggregate) *ReservationCleaner {
	return &ReservationCleaner{
		tx:        store.Tx,
		raffles:   store.Raffles,
		tickets:   store.Tickets,
		payments:  store.Payments,
		ledger:    ledger,
		aggregate: aggregate,
	}
}

// danglingBatch is one raffle's reservations grouped by their missing payment.
type danglingBatch struct {
	payments  []primitive.ObjectID
	byPayment map[primitive.ObjectID][]models.TicketNumber
	count     int
}

// ReleaseDangling releases the dangling reservations of every raffle. Each
// raffle's tickets and its reserved counter change in one transaction. With
// dryRun nothing is written and Released stays zero.
func (c *ReservationCleaner) ReleaseDangling(ctx context.Context, dryRun bool) (CleanupReport, error) {
	var report CleanupReport
	raffles, err := c.raffles.FindAll(ctx)
	if err != nil {
		return report, fmt.Errorf("list raffles: %w", err)
	}

	exists := make(map[primitive.ObjectID]bool)
	for _, raffle := range raffles {
		batch, err := c.collect(ctx, raffle.ID, exists)
		if err != nil {
			return report, err
		}
		if batch.count == 0 {
			continue
		}
		report.Dangling += batch.count
		if dryRun {
			for _, pid := range batch.payments {
				slog.Info("dangling reservation", "raffleId", raffle.ID.Hex(), "paymentId", pid.Hex(),
					"tickets", models.JoinTicketNumbers(batch.byPayment[pid]))
			}
			continue
		}

		released := 0
		err = c.tx.WithTx(ctx, func(ctx context.Context) error {
			released = 0
			for _, pid := range batch.payments {
				freed, err := c.ledger.Release(ctx, raffle.ID, batch.byPayment[pid], repositories.ReleaseGuard{PaymentID: pid})
				if err != nil {
					return err
				}
				released += len(freed)
			}
			return c.aggregate.DecrementReserved(ctx, raffle.ID, released)
		})
		if err != nil {
			return report, fmt.Errorf("release dangling tickets of raffle %s: %w", raffle.ID.Hex(), err)
		}
		report.Released += released
		report.Raffles++
		slog.Info("dangling reservations released", "raffleId", raffle.ID.Hex(), "released", released)
	}
	return report, nil
}

func (c *ReservationCleaner) collect(ctx context.Context, raffleID primitive.ObjectID, exists map[primitive.ObjectID]bool) (*danglingBatch, error) {
	reserved, err := c.tickets.FindByRaffle(ctx, raffleID, models.TicketReserved)
	if err != nil {
		return nil, fmt.Errorf("list reserved tickets: %w", err)
	}
	batch := &danglingBatch{byPayment: make(map[primitive.ObjectID][]models.TicketNumber)}
	for _, t := range reserved {
		if t.TransactionID == nil {
			continue
		}
		pid := *t.TransactionID
		found, checked := exists[pid]
		if !checked {
			_, err := c.payments.FindByID(ctx, pid)
			switch {
			case err == nil:
				found = true
			case errors.Is(err, models.ErrNotFound):
				found = false
			default:
				return nil, fmt.Errorf("load payment %s: %w", pid.Hex(), err)
			}
			exists[pid] = found
		}
		if found {
			continue
		}
		if _, seen := batch.byPayment[pid]; !seen {
			batch.payments = append(batch.payments, pid)
		}
		batch.byPayment[pid] = append(batch.byPayment[pid], t.Number)
		batch.count++
	}
	return batch, nil
}
