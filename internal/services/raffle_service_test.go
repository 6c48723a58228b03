package services

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRaffleCreate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	first := f.createRaffle(t, 10, 5)
	second := f.createRaffle(t, 1500, 1)

	if f.raffle(t, first.ID).Active {
		t.Fatalf("expected creating a raffle to deactivate the previous one")
	}
	active, err := f.raffles.GetActive(ctx)
	if err != nil || active.ID != second.ID {
		t.Fatalf("expected second raffle active, got %v (%v)", active, err)
	}

	tickets, err := f.tickets.ListByRaffle(ctx, second.ID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 1500 || tickets[0].Number != "0000" || tickets[1499].Number != "1499" {
		t.Fatalf("expected 1500 four digit tickets, got %d", len(tickets))
	}

	tests := []struct {
		name  string
		in    CreateRaffleInput
		field string
	}{
		{name: "no name", in: CreateRaffleInput{Price: 1, TotalTickets: 10}, field: "productName"},
		{name: "free", in: CreateRaffleInput{ProductName: "x", TotalTickets: 10}, field: "price"},
		{name: "empty", in: CreateRaffleInput{ProductName: "x", Price: 1}, field: "totalTickets"},
		{name: "too large", in: CreateRaffleInput{ProductName: "x", Price: 1, TotalTickets: DefaultMaxTotalTickets + 1}, field: "totalTickets"},
	}
	for _, tt := range tests {
		_, err := f.raffles.Create(ctx, tt.in, f.admin)
		var verr *models.ValidationError
		if !errors.As(err, &verr) || verr.Field != tt.field {
			t.Fatalf("%s: expected %s validation error, got %v", tt.name, tt.field, err)
		}
	}

	user := models.Actor{UserID: primitive.NewObjectID(), Role: models.RoleUser}
	if _, err := f.raffles.Create(ctx, CreateRaffleInput{ProductName: "x", Price: 1, TotalTickets: 10}, user); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRaffleUpdateResize(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 10, 5)

	total := 20
	name := "Moto nueva"
	updated, err := f.raffles.Update(ctx, raffle.ID, models.RaffleUpdate{TotalTickets: &total, ProductName: &name}, f.admin)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalTickets != 20 || updated.ProductName != name {
		t.Fatalf("unexpected raffle %+v", updated)
	}
	f.assertConsistent(t, raffle.ID)

	f.mustPurchase(t, updated, buyer(1), "15")
	total = 30
	_, err = f.raffles.Update(ctx, raffle.ID, models.RaffleUpdate{TotalTickets: &total}, f.admin)
	var verr *models.ValidationError
	if !errors.As(err, &verr) || verr.Field != "totalTickets" {
		t.Fatalf("expected resize refused with reservations, got %v", err)
	}
}

func TestRaffleDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	raffle := f.createRaffle(t, 10, 5)
	res := f.mustPurchase(t, raffle, buyer(1), "1")
	if _, err := f.payments.Confirm(ctx, res.Payment.ID, f.admin); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.raffles.Delete(ctx, raffle.ID, f.admin); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected raffle with sold tickets to be kept, got %v", err)
	}

	unsold := f.createRaffle(t, 10, 5)
	if err := f.raffles.Delete(ctx, unsold.ID, f.admin); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.raffles.Get(ctx, unsold.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected deleted raffle to be gone, got %v", err)
	}
	counts, _ := f.store.Tickets.CountByStatus(ctx, unsold.ID)
	if counts.Total() != 0 {
		t.Fatalf("expected tickets removed with the raffle, got %+v", counts)
	}
	if len(f.broadcaster.byTopic(models.TopicRaffleDeleted)) != 1 {
		t.Fatalf("expected raffleDeleted event")
	}
}

func TestRaffleStatsAndReconcile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 10, 4)

	res := f.mustPurchase(t, raffle, buyer(1), "1", "2")
	f.mustPurchase(t, raffle, buyer(2), "3")
	if _, err := f.payments.Confirm(ctx, res.Payment.ID, f.admin); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	stats, err := f.raffles.Stats(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Counts.Sold != 2 || stats.Counts.Reserved != 1 || stats.Revenue != 8 || stats.PercentageSold != 20 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if err := f.store.Raffles.SetCounters(ctx, raffle.ID, models.RaffleCounters{SoldTickets: 7, ReservedTickets: 0}); err != nil {
		t.Fatalf("set counters: %v", err)
	}
	result, err := f.raffles.Reconcile(ctx, raffle.ID, f.admin)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Before.SoldTickets != 7 || result.After != (models.RaffleCounters{SoldTickets: 2, ReservedTickets: 1}) {
		t.Fatalf("unexpected reconcile result %+v", result)
	}
	f.assertConsistent(t, raffle.ID)
}

func TestDrawWinner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 10, 5)

	if _, err := f.raffles.DrawWinner(ctx, raffle.ID, f.admin); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected draw without sold tickets to fail, got %v", err)
	}

	res := f.mustPurchase(t, raffle, buyer(1), "6")
	if _, err := f.payments.Confirm(ctx, res.Payment.ID, f.admin); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	drawn, err := f.raffles.DrawWinner(ctx, raffle.ID, f.admin)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if drawn.WinningNumber != "006" || drawn.Winner == nil || *drawn.Winner != res.User.ID || drawn.Active {
		t.Fatalf("unexpected draw result %+v", drawn)
	}
	if _, err := f.raffles.DrawWinner(ctx, raffle.ID, f.admin); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected second draw to be refused, got %v", err)
	}
}

// TestAggregateConsistencyUnderRandomOperations drives random purchases,
// reviews, releases and sweeps and checks the counters after each step.
func TestAggregateConsistencyUnderRandomOperations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 30, 1)
	rng := rand.New(rand.NewSource(42))

	var pending []primitive.ObjectID
	buyers := 0
	for step := 0; step < 300; step++ {
		switch op := rng.Intn(6); op {
		case 0, 1:
			buyers++
			count := 1 + rng.Intn(3)
			numbers := make([]string, count)
			for i, n := range rng.Perm(raffle.TotalTickets)[:count] {
				numbers[i] = strconv.Itoa(n)
			}
			res, err := f.purchase(raffle, buyer(buyers), numbers...)
			switch {
			case err == nil:
				pending = append(pending, res.Payment.ID)
			case errors.Is(err, models.ErrTicketsUnavailable):
			default:
				t.Fatalf("step %d: purchase: %v", step, err)
			}
		case 2:
			if len(pending) == 0 {
				continue
			}
			i := rng.Intn(len(pending))
			_, err := f.payments.Confirm(ctx, pending[i], f.admin)
			if err != nil && !errors.Is(err, models.ErrTicketsUnavailable) {
				t.Fatalf("step %d: confirm: %v", step, err)
			}
			if err == nil {
				pending = append(pending[:i], pending[i+1:]...)
			}
		case 3:
			if len(pending) == 0 {
				continue
			}
			i := rng.Intn(len(pending))
			if _, err := f.payments.Reject(ctx, pending[i], f.admin, "comprobante invalido"); err != nil {
				t.Fatalf("step %d: reject: %v", step, err)
			}
			pending = append(pending[:i], pending[i+1:]...)
		case 4:
			f.clock.Advance(time.Duration(rng.Intn(30)) * time.Hour)
			if _, err := f.sweeper.SweepOnce(ctx); err != nil {
				t.Fatalf("step %d: sweep: %v", step, err)
			}
		case 5:
			n := strconv.Itoa(rng.Intn(raffle.TotalTickets))
			if _, _, err := f.tickets.ReleaseTicket(ctx, raffle.ID, n, f.admin); err != nil {
				t.Fatalf("step %d: release: %v", step, err)
			}
		}
		f.assertConsistent(t, raffle.ID)
	}
}
