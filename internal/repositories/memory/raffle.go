package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.RaffleRepository = (*RaffleRepository)(nil)

// RaffleRepository is the in-memory raffle collection.
type RaffleRepository struct {
	s *Store
}

func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	return r.s.run(ctx, func(t *txn) error {
		if raffle.ID.IsZero() {
			raffle.ID = primitive.NewObjectID()
		}
		t.putRaffle(*raffle)
		return nil
	})
}

func (r *RaffleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	var out *models.Raffle
	err := r.s.run(ctx, func(t *txn) error {
		raffle, ok := t.store.raffles[id]
		if !ok {
			return models.NotFoundf("raffle", id.Hex())
		}
		out = &raffle
		return nil
	})
	return out, err
}

func (r *RaffleRepository) FindActive(ctx context.Context) (*models.Raffle, error) {
	var out *models.Raffle
	err := r.s.run(ctx, func(t *txn) error {
		for _, raffle := range t.store.raffles {
			if !raffle.Active {
				continue
			}
			if out == nil || raffle.CreatedAt.After(out.CreatedAt) {
				cp := raffle
				out = &cp
			}
		}
		if out == nil {
			return models.NotFoundf("raffle", "active")
		}
		return nil
	})
	return out, err
}

func (r *RaffleRepository) FindAll(ctx context.Context) ([]*models.Raffle, error) {
	out := []*models.Raffle{}
	err := r.s.run(ctx, func(t *txn) error {
		for _, raffle := range t.store.raffles {
			cp := raffle
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *RaffleRepository) Update(ctx context.Context, raffle *models.Raffle) error {
	return r.s.run(ctx, func(t *txn) error {
		cur, ok := t.store.raffles[raffle.ID]
		if !ok {
			return models.NotFoundf("raffle", raffle.ID.Hex())
		}
		next := *raffle
		next.SoldTickets = cur.SoldTickets
		next.ReservedTickets = cur.ReservedTickets
		t.putRaffle(next)
		return nil
	})
}

func (r *RaffleRepository) DeactivateAll(ctx context.Context, except primitive.ObjectID) error {
	return r.s.run(ctx, func(t *txn) error {
		for id, raffle := range t.store.raffles {
			if id == except || !raffle.Active {
				continue
			}
			raffle.Active = false
			raffle.UpdatedAt = time.Now()
			t.putRaffle(raffle)
		}
		return nil
	})
}

func (r *RaffleRepository) AdjustCounters(ctx context.Context, id primitive.ObjectID, reservedDelta, soldDelta int) (models.RaffleCounters, error) {
	var before models.RaffleCounters
	err := r.s.run(ctx, func(t *txn) error {
		raffle, ok := t.store.raffles[id]
		if !ok {
			return models.NotFoundf("raffle", id.Hex())
		}
		before = models.RaffleCounters{SoldTickets: raffle.SoldTickets, ReservedTickets: raffle.ReservedTickets}
		raffle.ReservedTickets = floorZero(raffle.ReservedTickets + reservedDelta)
		raffle.SoldTickets = floorZero(raffle.SoldTickets + soldDelta)
		raffle.UpdatedAt = time.Now()
		t.putRaffle(raffle)
		return nil
	})
	return before, err
}

func (r *RaffleRepository) SetCounters(ctx context.Context, id primitive.ObjectID, counters models.RaffleCounters) error {
	return r.s.run(ctx, func(t *txn) error {
		raffle, ok := t.store.raffles[id]
		if !ok {
			return models.NotFoundf("raffle", id.Hex())
		}
		raffle.SoldTickets = counters.SoldTickets
		raffle.ReservedTickets = counters.ReservedTickets
		raffle.UpdatedAt = time.Now()
		t.putRaffle(raffle)
		return nil
	})
}

func (r *RaffleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.s.run(ctx, func(t *txn) error {
		if _, ok := t.store.raffles[id]; !ok {
			return models.NotFoundf("raffle", id.Hex())
		}
		t.deleteRaffle(id)
		return nil
	})
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
