package services

import (
	"context"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// TicketService serves ticket queries and manual releases.
type TicketService struct {
	tx          repositories.Transactor
	raffles     repositories.RaffleRepository
	tickets     repositories.TicketRepository
	ledger      *TicketLedger
	aggregate   *RaffleAggregate
	broadcaster Broadcaster
}

// NewTicketService creates a new TicketService
func NewTicketService(store repositories.Store, ledger *TicketLedger, aggregate *RaffleAggregate, broadcaster Broadcaster) *TicketService {
	return &TicketService{
		tx:          store.Tx,
		raffles:     store.Raffles,
		tickets:     store.Tickets,
		ledger:      ledger,
		aggregate:   aggregate,
		broadcaster: broadcaster,
	}
}

// ListByRaffle returns the raffle's tickets ordered by number, optionally
// filtered by status.
func (s *TicketService) ListByRaffle(ctx context.Context, raffleID primitive.ObjectID, status models.TicketStatus) ([]*models.Ticket, error) {
	if _, err := s.raffles.FindByID(ctx, raffleID); err != nil {
		return nil, err
	}
	switch status {
	case "", models.TicketAvailable, models.TicketReserved, models.TicketSold:
	default:
		return nil, models.NewValidationError("status", "unknown ticket status")
	}
	return s.tickets.FindByRaffle(ctx, raffleID, status)
}

// ListByUser returns the tickets reserved or bought by userID.
func (s *TicketService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return s.tickets.FindByUser(ctx, userID)
}

// CheckAvailability normalizes raw numbers for the raffle and returns those
// that cannot be reserved right now.
func (s *TicketService) CheckAvailability(ctx context.Context, raffleID primitive.ObjectID, raw []string) ([]models.TicketNumber, error) {
	raffle, err := s.raffles.FindByID(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	numbers, err := models.NormalizeTicketNumbers(raw, raffle.TotalTickets)
	if err != nil {
		return nil, err
	}
	return s.ledger.CheckAvailability(ctx, raffleID, numbers)
}

// Counts returns the ledger breakdown of a raffle.
func (s *TicketService) Counts(ctx context.Context, raffleID primitive.ObjectID) (models.TicketCounts, error) {
	if _, err := s.raffles.FindByID(ctx, raffleID); err != nil {
		return models.TicketCounts{}, err
	}
	return s.tickets.CountByStatus(ctx, raffleID)
}

// ReleaseTicket frees one reserved ticket on an admin's request. Sold tickets
// are left untouched and released reports false.
func (s *TicketService) ReleaseTicket(ctx context.Context, raffleID primitive.ObjectID, raw string, actor models.Actor) (number models.TicketNumber, released bool, err error) {
	if !actor.IsAdmin() {
		return "", false, models.ErrForbidden
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		raffle, err := s.raffles.FindByID(ctx, raffleID)
		if err != nil {
			return err
		}
		n, err := models.ParseTicketNumber(raw, raffle.TotalTickets)
		if err != nil {
			return err
		}
		freed, err := s.ledger.Release(ctx, raffleID, []models.TicketNumber{n}, repositories.ReleaseGuard{})
		if err != nil {
			return err
		}
		number, released = n, len(freed) > 0
		return s.aggregate.DecrementReserved(ctx, raffleID, len(freed))
	})
	if err != nil {
		return "", false, err
	}
	if !released {
		return number, false, nil
	}

	slog.Info("ticket released by admin", "raffleId", raffleID.Hex(), "ticket", number, "adminId", actor.UserID.Hex())
	s.broadcaster.Publish(models.TopicTicketStatusChanged, models.TicketStatusChangedEvent{
		RaffleID: raffleID, TicketNumbers: []models.TicketNumber{number}, NewStatus: models.TicketAvailable,
	})
	s.broadcaster.Publish(models.TopicTicketsReleased, models.TicketsEvent{
		RaffleID: raffleID, TicketNumbers: []models.TicketNumber{number},
	})
	return number, true, nil
}
