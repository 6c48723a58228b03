package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTicketQueries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 10, 5)
	res := f.mustPurchase(t, raffle, buyer(1), "2", "5")

	reserved, err := f.tickets.ListByRaffle(ctx, raffle.ID, models.TicketReserved)
	if err != nil || len(reserved) != 2 {
		t.Fatalf("expected 2 reserved tickets, got %d (%v)", len(reserved), err)
	}
	if _, err := f.tickets.ListByRaffle(ctx, raffle.ID, "lost"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	if _, err := f.tickets.ListByRaffle(ctx, primitive.NewObjectID(), ""); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown raffle, got %v", err)
	}

	mine, err := f.tickets.ListByUser(ctx, res.User.ID)
	if err != nil || len(mine) != 2 {
		t.Fatalf("expected buyer to own 2 tickets, got %d (%v)", len(mine), err)
	}

	conflicts, err := f.tickets.CheckAvailability(ctx, raffle.ID, []string{"1", "2", "5"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !reflect.DeepEqual(conflicts, []models.TicketNumber{"002", "005"}) {
		t.Fatalf("expected [002 005], got %v", conflicts)
	}

	counts, err := f.tickets.Counts(ctx, raffle.ID)
	if err != nil || counts != (models.TicketCounts{Available: 8, Reserved: 2}) {
		t.Fatalf("unexpected counts %+v (%v)", counts, err)
	}
}

func TestReleaseTicket(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 10, 5)
	res := f.mustPurchase(t, raffle, buyer(1), "2", "5")
	f.broadcaster.reset()

	user := models.Actor{UserID: res.User.ID, Role: models.RoleUser}
	if _, _, err := f.tickets.ReleaseTicket(ctx, raffle.ID, "2", user); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	number, released, err := f.tickets.ReleaseTicket(ctx, raffle.ID, "2", f.admin)
	if err != nil || !released || number != "002" {
		t.Fatalf("expected 002 released, got %s %v %v", number, released, err)
	}
	if got := f.raffle(t, raffle.ID).ReservedTickets; got != 1 {
		t.Fatalf("expected 1 reserved after release, got %d", got)
	}
	if len(f.broadcaster.byTopic(models.TopicTicketsReleased)) != 1 {
		t.Fatalf("expected ticketsReleased event")
	}

	_, released, err = f.tickets.ReleaseTicket(ctx, raffle.ID, "2", f.admin)
	if err != nil || released {
		t.Fatalf("expected second release to be a no-op, got %v %v", released, err)
	}

	if _, err := f.payments.Confirm(ctx, res.Payment.ID, f.admin); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	_, released, err = f.tickets.ReleaseTicket(ctx, raffle.ID, "5", f.admin)
	if err != nil || released {
		t.Fatalf("expected sold ticket to stay sold, got %v %v", released, err)
	}
	if got := f.ticketStatus(t, raffle.ID, "005"); got != models.TicketSold {
		t.Fatalf("expected 005 sold, got %s", got)
	}
	f.assertConsistent(t, raffle.ID)
}
