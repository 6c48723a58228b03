package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateAndReserve(t *testing.T) {
	t.Parallel()

	t.Run("reserves tickets and registers buyer", func(t *testing.T) {
		f := newFixture(t)
		raffle := f.createRaffle(t, 10, 5)
		f.broadcaster.reset()

		res := f.mustPurchase(t, raffle, buyer(1), "1", "002", "3")

		if res.Payment.Status != models.PaymentPending {
			t.Fatalf("expected Pending, got %s", res.Payment.Status)
		}
		want := []models.TicketNumber{"001", "002", "003"}
		if !reflect.DeepEqual(res.Payment.SelectedNumbers, want) {
			t.Fatalf("expected normalized numbers %v, got %v", want, res.Payment.SelectedNumbers)
		}
		if res.Token == "" {
			t.Fatalf("expected a token for the new buyer")
		}
		if res.User.Email != "buyer1@example.com" {
			t.Fatalf("unexpected buyer %+v", res.User)
		}
		for _, n := range want {
			if got := f.ticketStatus(t, raffle.ID, n); got != models.TicketReserved {
				t.Fatalf("expected %s reserved, got %s", n, got)
			}
		}
		if got := f.raffle(t, raffle.ID).ReservedTickets; got != 3 {
			t.Fatalf("expected 3 reserved, got %d", got)
		}
		if topics := f.broadcaster.topics(); !reflect.DeepEqual(topics, []string{models.TopicTicketsReserved, models.TopicPaymentCreated}) {
			t.Fatalf("unexpected events %v", topics)
		}
		if kinds := f.notifier.kinds(); len(kinds) != 1 || kinds[0] != models.NotifyPaymentPending {
			t.Fatalf("expected a pending notification, got %v", kinds)
		}
		if len(f.notifier.admin) != 1 {
			t.Fatalf("expected one admin alert, got %d", len(f.notifier.admin))
		}
		f.assertConsistent(t, raffle.ID)
	})

	t.Run("authenticated buyer gets no new token", func(t *testing.T) {
		f := newFixture(t)
		raffle := f.createRaffle(t, 10, 5)
		first := f.mustPurchase(t, raffle, buyer(1), "1")

		res, err := f.payments.CreateAndReserve(context.Background(), CreatePaymentInput{
			Actor:           models.Actor{UserID: first.User.ID, Role: models.RoleUser},
			SelectedNumbers: []string{"2"},
			Method:          models.MethodCash,
			TotalAmountUSD:  5,
			ProofOfPayment:  "/uploads/p.png",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Token != "" || res.User.ID != first.User.ID {
			t.Fatalf("expected existing buyer without token, got %+v", res)
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		f := newFixture(t)
		raffle := f.createRaffle(t, 10, 5)

		tests := []struct {
			name  string
			in    CreatePaymentInput
			field string
		}{
			{
				name:  "amount mismatch",
				in:    CreatePaymentInput{Buyer: buyer(1), SelectedNumbers: []string{"1", "2"}, Method: models.MethodZelle, TotalAmountUSD: 5, ProofOfPayment: "p"},
				field: "totalAmountUSD",
			},
			{
				name:  "unknown method",
				in:    CreatePaymentInput{Buyer: buyer(1), SelectedNumbers: []string{"1"}, Method: "PayPal", TotalAmountUSD: 5, ProofOfPayment: "p"},
				field: "method",
			},
			{
				name:  "missing proof",
				in:    CreatePaymentInput{Buyer: buyer(1), SelectedNumbers: []string{"1"}, Method: models.MethodZelle, TotalAmountUSD: 5},
				field: "proofOfPayment",
			},
			{
				name:  "number out of range",
				in:    CreatePaymentInput{Buyer: buyer(1), SelectedNumbers: []string{"10"}, Method: models.MethodZelle, TotalAmountUSD: 5, ProofOfPayment: "p"},
				field: "selectedNumbers",
			},
			{
				name:  "missing buyer email",
				in:    CreatePaymentInput{Buyer: models.BuyerInfo{FullName: "A", IDNumber: "1", PhoneNumber: "1", Password: "secret123"}, SelectedNumbers: []string{"1"}, Method: models.MethodZelle, TotalAmountUSD: 5, ProofOfPayment: "p"},
				field: "email",
			},
		}
		for _, tt := range tests {
			in := tt.in
			in.RaffleID = raffle.ID
			_, err := f.payments.CreateAndReserve(context.Background(), in)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("%s: expected validation error, got %v", tt.name, err)
			}
			if verr.Field != tt.field {
				t.Fatalf("%s: expected field %s, got %s", tt.name, tt.field, verr.Field)
			}
		}
		f.assertConsistent(t, raffle.ID)
	})

	t.Run("no active raffle", func(t *testing.T) {
		f := newFixture(t)
		raffle := f.createRaffle(t, 10, 5)
		if _, err := f.raffles.TogglePause(context.Background(), raffle.ID, f.admin); err != nil {
			t.Fatalf("pause: %v", err)
		}
		if _, err := f.purchase(raffle, buyer(1), "1"); !errors.Is(err, models.ErrNoActiveRaffle) {
			t.Fatalf("expected ErrNoActiveRaffle for paused raffle, got %v", err)
		}

		other := newFixture(t)
		if _, err := other.payments.CreateAndReserve(context.Background(), CreatePaymentInput{
			Buyer: buyer(1), SelectedNumbers: []string{"1"}, Method: models.MethodZelle, TotalAmountUSD: 5, ProofOfPayment: "p",
		}); !errors.Is(err, models.ErrNoActiveRaffle) {
			t.Fatalf("expected ErrNoActiveRaffle without raffles, got %v", err)
		}
	})

	t.Run("duplicate identity", func(t *testing.T) {
		f := newFixture(t)
		raffle := f.createRaffle(t, 10, 5)
		f.mustPurchase(t, raffle, buyer(1), "1")

		again := buyer(2)
		again.Email = "BUYER1@example.com"
		_, err := f.purchase(raffle, again, "2")
		var dup *models.DuplicateIdentityError
		if !errors.As(err, &dup) || dup.Field != "email" {
			t.Fatalf("expected duplicate email, got %v", err)
		}
		if got := f.ticketStatus(t, raffle.ID, "002"); got != models.TicketAvailable {
			t.Fatalf("expected 002 untouched, got %s", got)
		}
	})
}

func TestSecondBuyerCannotTakeSoldTicket(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 10, 2)

	first := f.mustPurchase(t, raffle, buyer(1), "4", "5")
	if _, err := f.payments.Confirm(ctx, first.Payment.ID, f.admin); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	_, err := f.purchase(raffle, buyer(2), "4", "6")
	var unavailable *models.TicketsUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected TicketsUnavailableError, got %v", err)
	}
	if !reflect.DeepEqual(unavailable.Numbers, []models.TicketNumber{"004"}) {
		t.Fatalf("expected [004] unavailable, got %v", unavailable.Numbers)
	}

	if got := f.ticketStatus(t, raffle.ID, "006"); got != models.TicketAvailable {
		t.Fatalf("expected 006 left available, got %s", got)
	}
	if _, err := f.store.Users.FindByEmail(ctx, "buyer2@example.com"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected failed purchase to leave no user behind, got %v", err)
	}
	r := f.raffle(t, raffle.ID)
	if r.SoldTickets != 2 || r.ReservedTickets != 0 {
		t.Fatalf("expected 2 sold 0 reserved, got %d/%d", r.SoldTickets, r.ReservedTickets)
	}
	f.assertConsistent(t, raffle.ID)
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	t.Run("sells tickets once", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		raffle := f.createRaffle(t, 10, 5)
		res := f.mustPurchase(t, raffle, buyer(1), "7")
		f.broadcaster.reset()

		p, err := f.payments.Confirm(ctx, res.Payment.ID, f.admin)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if p.Status != models.PaymentConfirmed || p.ReviewedBy == nil || *p.ReviewedBy != f.admin.UserID {
			t.Fatalf("unexpected confirmed payment %+v", p)
		}
		if got := f.ticketStatus(t, raffle.ID, "007"); got != models.TicketSold {
			t.Fatalf("expected 007 sold, got %s", got)
		}
		if topics := f.broadcaster.topics(); !reflect.DeepEqual(topics, []string{models.TopicTicketStatusChanged, models.TopicPaymentConfirmed}) {
			t.Fatalf("unexpected events %v", topics)
		}

		_, err = f.payments.Confirm(ctx, res.Payment.ID, f.admin)
		var invalid *models.InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTransitionError on second confirm, got %v", err)
		}
		r := f.raffle(t, raffle.ID)
		if r.SoldTickets != 1 || r.ReservedTickets != 0 {
			t.Fatalf("expected counters unchanged by second confirm, got %d/%d", r.SoldTickets, r.ReservedTickets)
		}
		f.assertConsistent(t, raffle.ID)
	})

	t.Run("requires admin", func(t *testing.T) {
		f := newFixture(t)
		raffle := f.createRaffle(t, 10, 5)
		res := f.mustPurchase(t, raffle, buyer(1), "1")
		user := models.Actor{UserID: res.User.ID, Role: models.RoleUser}
		if _, err := f.payments.Confirm(context.Background(), res.Payment.ID, user); !errors.Is(err, models.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("unknown payment", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.payments.Confirm(context.Background(), primitive.NewObjectID(), f.admin); !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("confirm after reject is refused", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		raffle := f.createRaffle(t, 10, 5)
		res := f.mustPurchase(t, raffle, buyer(1), "1")
		if _, err := f.payments.Reject(ctx, res.Payment.ID, f.admin, "duplicado"); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if _, err := f.payments.Confirm(ctx, res.Payment.ID, f.admin); !errors.Is(err, models.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if got := f.ticketStatus(t, raffle.ID, "001"); got != models.TicketAvailable {
			t.Fatalf("expected 001 available, got %s", got)
		}
	})
}

func TestReject(t *testing.T) {
	t.Parallel()

	t.Run("blank reason", func(t *testing.T) {
		f := newFixture(t)
		raffle := f.createRaffle(t, 10, 5)
		res := f.mustPurchase(t, raffle, buyer(1), "1")

		for _, reason := range []string{"", "   "} {
			_, err := f.payments.Reject(context.Background(), res.Payment.ID, f.admin, reason)
			var verr *models.ValidationError
			if !errors.As(err, &verr) || verr.Field != "rejectionReason" {
				t.Fatalf("expected rejectionReason validation error, got %v", err)
			}
		}
		p, _ := f.store.Payments.FindByID(context.Background(), res.Payment.ID)
		if p.Status != models.PaymentPending {
			t.Fatalf("expected payment still pending, got %s", p.Status)
		}
	})

	t.Run("frees tickets and keeps reason", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		raffle := f.createRaffle(t, 10, 5)
		res := f.mustPurchase(t, raffle, buyer(1), "3", "8")
		f.broadcaster.reset()

		p, err := f.payments.Reject(ctx, res.Payment.ID, f.admin, "fondos insuficientes")
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if p.Status != models.PaymentRejected || p.RejectionReason != "fondos insuficientes" {
			t.Fatalf("unexpected rejected payment %+v", p)
		}

		stored, err := f.payments.Get(ctx, res.Payment.ID, models.Actor{UserID: res.User.ID, Role: models.RoleUser})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.RejectionReason != "fondos insuficientes" {
			t.Fatalf("expected stored reason, got %q", stored.RejectionReason)
		}
		for _, n := range []models.TicketNumber{"003", "008"} {
			if got := f.ticketStatus(t, raffle.ID, n); got != models.TicketAvailable {
				t.Fatalf("expected %s available, got %s", n, got)
			}
		}

		events := f.broadcaster.byTopic(models.TopicPaymentRejected)
		if len(events) != 1 {
			t.Fatalf("expected one paymentRejected event, got %+v", events)
		}
		payload, err := json.Marshal(events[0])
		if err != nil {
			t.Fatalf("marshal event: %v", err)
		}
		if strings.Contains(string(payload), "fondos insuficientes") {
			t.Fatalf("rejection reason leaked into raffle broadcast: %s", payload)
		}
		if topics := f.broadcaster.topics(); !reflect.DeepEqual(topics, []string{
			models.TopicTicketStatusChanged, models.TopicPaymentRejected, models.TopicTicketsReleased,
		}) {
			t.Fatalf("unexpected events %v", topics)
		}

		last := f.notifier.sent[len(f.notifier.sent)-1]
		if last.kind != models.NotifyPaymentRejected || !strings.Contains(last.message, "fondos insuficientes") {
			t.Fatalf("expected rejection notification with reason, got %+v", last)
		}

		again := f.mustPurchase(t, raffle, buyer(2), "3")
		if again.Payment.SelectedNumbers[0] != "003" {
			t.Fatalf("expected freed ticket to be purchasable")
		}
		f.assertConsistent(t, raffle.ID)
	})
}

func TestNotificationFailureDoesNotUndoConfirm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 5)
	res := f.mustPurchase(t, raffle, buyer(1), "1")
	f.notifier.failed = true

	if _, err := f.payments.Confirm(context.Background(), res.Payment.ID, f.admin); err != nil {
		t.Fatalf("expected confirm to succeed despite notifier error, got %v", err)
	}
	if got := f.ticketStatus(t, raffle.ID, "001"); got != models.TicketSold {
		t.Fatalf("expected 001 sold, got %s", got)
	}
}

func TestPaymentListingAndStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 10, 5)

	a := f.mustPurchase(t, raffle, buyer(1), "1", "2")
	b := f.mustPurchase(t, raffle, buyer(2), "3")
	f.mustPurchase(t, raffle, buyer(3), "4")

	if _, err := f.payments.Confirm(ctx, a.Payment.ID, f.admin); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.payments.Reject(ctx, b.Payment.ID, f.admin, "ilegible"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	pending, err := f.payments.List(ctx, models.PaymentFilter{Status: models.PaymentPending})
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending payment, got %d (%v)", len(pending), err)
	}
	mine, _ := f.payments.List(ctx, models.PaymentFilter{UserID: a.User.ID})
	if len(mine) != 1 || mine[0].ID != a.Payment.ID {
		t.Fatalf("expected buyer 1 to see only their payment")
	}

	stats, err := f.payments.Stats(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := models.PaymentStats{Total: 3, Pending: 1, Confirmed: 1, Rejected: 1, Revenue: 10}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	other := models.Actor{UserID: b.User.ID, Role: models.RoleUser}
	if _, err := f.payments.Get(ctx, a.Payment.ID, other); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected other buyer's payment to be hidden, got %v", err)
	}
}
