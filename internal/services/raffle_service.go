package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// DefaultMaxTotalTickets bounds the size of a raffle's ticket pool.
const DefaultMaxTotalTickets = 10000

// CreateRaffleInput holds the fields an admin supplies for a new raffle.
type CreateRaffleInput struct {
	ProductName  string   `json:"productName"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	Price        float64  `json:"price"`
	TotalTickets int      `json:"totalTickets"`
}

// ReconcileResult shows the counters before and after a reconciliation.
type ReconcileResult struct {
	Before models.RaffleCounters `json:"before"`
	After  models.RaffleCounters `json:"after"`
}

// RaffleService manages raffles and their ticket pools.
type RaffleService struct {
	tx          repositories.Transactor
	raffles     repositories.RaffleRepository
	tickets     repositories.TicketRepository
	broadcaster Broadcaster
	clock       clock.Clock
	maxTickets  int
}

// NewRaffleService creates a new RaffleService
func NewRaffleService(store repositories.Store, broadcaster Broadcaster, clk clock.Clock, maxTickets int) *RaffleService {
	if maxTickets <= 0 {
		maxTickets = DefaultMaxTotalTickets
	}
	return &RaffleService{
		tx:          store.Tx,
		raffles:     store.Raffles,
		tickets:     store.Tickets,
		broadcaster: broadcaster,
		clock:       clk,
		maxTickets:  maxTickets,
	}
}

func (s *RaffleService) validateSize(total int) error {
	if total < 1 || total > s.maxTickets {
		return models.NewValidationError("totalTickets", fmt.Sprintf("must be between 1 and %d", s.maxTickets))
	}
	return nil
}

// Create deactivates every other raffle, stores the new one and materializes
// its tickets.
func (s *RaffleService) Create(ctx context.Context, in CreateRaffleInput, actor models.Actor) (*models.Raffle, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if strings.TrimSpace(in.ProductName) == "" {
		return nil, models.NewValidationError("productName", "product name is required")
	}
	if in.Price <= 0 {
		return nil, models.NewValidationError("price", "price must be positive")
	}
	if err := s.validateSize(in.TotalTickets); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	raffle := &models.Raffle{
		ID:           primitive.NewObjectID(),
		ProductName:  strings.TrimSpace(in.ProductName),
		Description:  in.Description,
		Images:       in.Images,
		Price:        in.Price,
		TotalTickets: in.TotalTickets,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if raffle.Images == nil {
		raffle.Images = []string{}
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.raffles.DeactivateAll(ctx, raffle.ID); err != nil {
			return fmt.Errorf("deactivate raffles: %w", err)
		}
		if err := s.raffles.Create(ctx, raffle); err != nil {
			return fmt.Errorf("create raffle: %w", err)
		}
		return s.tickets.CreateMany(ctx, newTickets(raffle, now))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("raffle created", "raffleId", raffle.ID.Hex(), "totalTickets", raffle.TotalTickets, "price", raffle.Price)
	s.broadcaster.Publish(models.TopicRaffleCreated, models.RaffleEvent{RaffleID: raffle.ID, Raffle: raffle})
	return raffle, nil
}

func newTickets(raffle *models.Raffle, now time.Time) []models.Ticket {
	numbers := models.AllTicketNumbers(raffle.TotalTickets)
	tickets := make([]models.Ticket, len(numbers))
	for i, n := range numbers {
		tickets[i] = models.NewTicket(raffle.ID, n, now)
	}
	return tickets
}

// Get returns a raffle by id.
func (s *RaffleService) Get(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	return s.raffles.FindByID(ctx, id)
}

// GetActive returns the raffle currently on sale.
func (s *RaffleService) GetActive(ctx context.Context) (*models.Raffle, error) {
	raffle, err := s.raffles.FindActive(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrNoActiveRaffle
	}
	return raffle, err
}

// List returns every raffle, newest first.
func (s *RaffleService) List(ctx context.Context) ([]*models.Raffle, error) {
	return s.raffles.FindAll(ctx)
}

// Update edits a raffle. The ticket pool can only be resized while no ticket
// is reserved or sold.
func (s *RaffleService) Update(ctx context.Context, id primitive.ObjectID, in models.RaffleUpdate, actor models.Actor) (*models.Raffle, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	var updated *models.Raffle
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		raffle, err := s.raffles.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if in.ProductName != nil {
			if strings.TrimSpace(*in.ProductName) == "" {
				return models.NewValidationError("productName", "product name is required")
			}
			raffle.ProductName = strings.TrimSpace(*in.ProductName)
		}
		if in.Description != nil {
			raffle.Description = *in.Description
		}
		if in.Images != nil {
			raffle.Images = *in.Images
		}
		if in.Price != nil {
			if *in.Price <= 0 {
				return models.NewValidationError("price", "price must be positive")
			}
			raffle.Price = *in.Price
		}
		now := s.clock.Now()
		if in.TotalTickets != nil && *in.TotalTickets != raffle.TotalTickets {
			if err := s.validateSize(*in.TotalTickets); err != nil {
				return err
			}
			counts, err := s.tickets.CountByStatus(ctx, raffle.ID)
			if err != nil {
				return err
			}
			if counts.Reserved > 0 || counts.Sold > 0 {
				return models.NewValidationError("totalTickets", "cannot resize a raffle with reserved or sold tickets")
			}
			if _, err := s.tickets.DeleteByRaffle(ctx, raffle.ID); err != nil {
				return err
			}
			raffle.TotalTickets = *in.TotalTickets
			if err := s.tickets.CreateMany(ctx, newTickets(raffle, now)); err != nil {
				return err
			}
		}
		raffle.UpdatedAt = now
		if err := s.raffles.Update(ctx, raffle); err != nil {
			return err
		}
		updated = raffle
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Publish(models.TopicRaffleUpdated, models.RaffleEvent{RaffleID: updated.ID, Raffle: updated})
	return updated, nil
}

// TogglePause flips the paused flag. A paused raffle refuses purchases.
func (s *RaffleService) TogglePause(ctx context.Context, id primitive.ObjectID, actor models.Actor) (*models.Raffle, error) {
	return s.mutate(ctx, id, actor, func(r *models.Raffle) error {
		r.Paused = !r.Paused
		return nil
	})
}

// Activate makes id the only active raffle.
func (s *RaffleService) Activate(ctx context.Context, id primitive.ObjectID, actor models.Actor) (*models.Raffle, error) {
	return s.mutate(ctx, id, actor, func(r *models.Raffle) error {
		r.Active = true
		r.Paused = false
		return nil
	})
}

func (s *RaffleService) mutate(ctx context.Context, id primitive.ObjectID, actor models.Actor, fn func(*models.Raffle) error) (*models.Raffle, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	var updated *models.Raffle
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		raffle, err := s.raffles.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(raffle); err != nil {
			return err
		}
		if raffle.Active {
			if err := s.raffles.DeactivateAll(ctx, raffle.ID); err != nil {
				return err
			}
		}
		raffle.UpdatedAt = s.clock.Now()
		if err := s.raffles.Update(ctx, raffle); err != nil {
			return err
		}
		updated = raffle
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("raffle updated", "raffleId", updated.ID.Hex(), "active", updated.Active, "paused", updated.Paused)
	s.broadcaster.Publish(models.TopicRaffleUpdated, models.RaffleEvent{RaffleID: updated.ID, Raffle: updated})
	return updated, nil
}

// Delete removes a raffle and its tickets. Raffles with sold tickets are kept.
func (s *RaffleService) Delete(ctx context.Context, id primitive.ObjectID, actor models.Actor) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	var removed int64
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		raffle, err := s.raffles.FindByID(ctx, id)
		if err != nil {
			return err
		}
		counts, err := s.tickets.CountByStatus(ctx, id)
		if err != nil {
			return err
		}
		if counts.Sold > 0 || raffle.SoldTickets > 0 {
			return models.NewValidationError("raffle", "cannot delete a raffle with sold tickets")
		}
		if removed, err = s.tickets.DeleteByRaffle(ctx, id); err != nil {
			return err
		}
		return s.raffles.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	slog.Info("raffle deleted", "raffleId", id.Hex(), "tickets", removed)
	s.broadcaster.Publish(models.TopicRaffleDeleted, models.RaffleEvent{RaffleID: id})
	return nil
}

// Stats compares the ledger with the raffle counters and reports revenue.
func (s *RaffleService) Stats(ctx context.Context, id primitive.ObjectID) (*models.RaffleStats, error) {
	raffle, err := s.raffles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.tickets.CountByStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := &models.RaffleStats{
		RaffleID:     raffle.ID,
		TotalTickets: raffle.TotalTickets,
		Counts:       counts,
		Counters:     models.RaffleCounters{SoldTickets: raffle.SoldTickets, ReservedTickets: raffle.ReservedTickets},
		Revenue:      raffle.Price * float64(counts.Sold),
		Consistent:   counts.Sold == raffle.SoldTickets && counts.Reserved == raffle.ReservedTickets,
	}
	if raffle.TotalTickets > 0 {
		stats.PercentageSold = float64(counts.Sold) * 100 / float64(raffle.TotalTickets)
	}
	return stats, nil
}

// Reconcile rewrites the counters from the ticket ledger.
func (s *RaffleService) Reconcile(ctx context.Context, id primitive.ObjectID, actor models.Actor) (*ReconcileResult, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	var res ReconcileResult
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		raffle, err := s.raffles.FindByID(ctx, id)
		if err != nil {
			return err
		}
		counts, err := s.tickets.CountByStatus(ctx, id)
		if err != nil {
			return err
		}
		res.Before = models.RaffleCounters{SoldTickets: raffle.SoldTickets, ReservedTickets: raffle.ReservedTickets}
		res.After = models.RaffleCounters{SoldTickets: counts.Sold, ReservedTickets: counts.Reserved}
		if res.Before == res.After {
			return nil
		}
		return s.raffles.SetCounters(ctx, id, res.After)
	})
	if err != nil {
		return nil, err
	}
	if res.Before != res.After {
		slog.Warn("raffle counters reconciled", "raffleId", id.Hex(),
			"soldBefore", res.Before.SoldTickets, "soldAfter", res.After.SoldTickets,
			"reservedBefore", res.Before.ReservedTickets, "reservedAfter", res.After.ReservedTickets)
	}
	return &res, nil
}

// DrawWinner picks a sold ticket uniformly at random, records its owner as
// the winner and closes the raffle.
func (s *RaffleService) DrawWinner(ctx context.Context, id primitive.ObjectID, actor models.Actor) (*models.Raffle, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	var drawn *models.Raffle
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		raffle, err := s.raffles.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if raffle.Winner != nil {
			return models.NewValidationError("raffle", "a winner has already been drawn")
		}
		sold, err := s.tickets.FindByRaffle(ctx, id, models.TicketSold)
		if err != nil {
			return err
		}
		if len(sold) == 0 {
			return models.NewValidationError("raffle", "no sold tickets to draw from")
		}
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(sold))))
		if err != nil {
			return fmt.Errorf("draw random ticket: %w", err)
		}
		winner := sold[idx.Int64()]
		now := s.clock.Now()
		raffle.Winner = winner.UserID
		raffle.WinningNumber = winner.Number
		raffle.DrawDate = &now
		raffle.Active = false
		raffle.UpdatedAt = now
		if err := s.raffles.Update(ctx, raffle); err != nil {
			return err
		}
		drawn = raffle
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("raffle winner drawn", "raffleId", drawn.ID.Hex(), "ticket", drawn.WinningNumber)
	s.broadcaster.Publish(models.TopicRaffleUpdated, models.RaffleEvent{RaffleID: drawn.ID, Raffle: drawn})
	return drawn, nil
}
