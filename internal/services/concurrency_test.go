package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/ArowuTest/rifa-backend/internal/models"
)

// TestConcurrentOverlappingPurchases races buyers whose batches share one
// number per group, e.g. ("007","008") against ("008","009").
func TestConcurrentOverlappingPurchases(t *testing.T) {
	t.Parallel()

	const (
		groups     = 5
		contenders = 8
	)
	f := newFixture(t)
	raffle := f.createRaffle(t, 100, 1)
	width := models.TicketNumberWidth(raffle.TotalTickets)

	type attempt struct {
		group   int
		shared  models.TicketNumber
		own     models.TicketNumber
		payment *models.Payment
		err     error
	}
	attempts := make([]*attempt, 0, groups*contenders)
	for g := 0; g < groups; g++ {
		for j := 0; j < contenders; j++ {
			attempts = append(attempts, &attempt{
				group:  g,
				shared: models.FormatTicketNumber(g*10+contenders, width),
				own:    models.FormatTicketNumber(g*10+j, width),
			})
		}
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a *attempt) {
			defer wg.Done()
			<-start
			res, err := f.purchase(raffle, buyer(1000+i), string(a.own), string(a.shared))
			if err != nil {
				a.err = err
				return
			}
			a.payment = res.Payment
		}(i, a)
	}
	close(start)
	wg.Wait()

	winners := make(map[int]*attempt)
	for _, a := range attempts {
		if a.err == nil {
			if prev, dup := winners[a.group]; dup {
				t.Fatalf("group %d: two winners for %s (%s and %s)", a.group, a.shared, prev.own, a.own)
			}
			winners[a.group] = a
			continue
		}
		var unavailable *models.TicketsUnavailableError
		if !errors.As(a.err, &unavailable) {
			t.Fatalf("group %d: expected TicketsUnavailableError, got %v", a.group, a.err)
		}
		if !reflect.DeepEqual(unavailable.Numbers, []models.TicketNumber{a.shared}) {
			t.Fatalf("group %d: expected only %s unavailable, got %v", a.group, a.shared, unavailable.Numbers)
		}
	}
	if len(winners) != groups {
		t.Fatalf("expected one winner in each of %d groups, got %d", groups, len(winners))
	}

	ctx := context.Background()
	for _, a := range attempts {
		tickets, err := f.store.Tickets.FindByNumbers(ctx, raffle.ID, []models.TicketNumber{a.own})
		if err != nil || len(tickets) != 1 {
			t.Fatalf("load ticket %s: %v", a.own, err)
		}
		own := tickets[0]
		if a.err != nil {
			if own.Status != models.TicketAvailable {
				t.Fatalf("losing batch left %s %s", a.own, own.Status)
			}
			continue
		}
		if own.Status != models.TicketReserved || own.TransactionID == nil || *own.TransactionID != a.payment.ID {
			t.Fatalf("winning batch lost %s: %+v", a.own, own)
		}
	}
	for g, w := range winners {
		tickets, err := f.store.Tickets.FindByNumbers(ctx, raffle.ID, []models.TicketNumber{w.shared})
		if err != nil || len(tickets) != 1 {
			t.Fatalf("load ticket %s: %v", w.shared, err)
		}
		if tickets[0].TransactionID == nil || *tickets[0].TransactionID != w.payment.ID {
			t.Fatalf("group %d: shared ticket not held by the winner", g)
		}
	}

	payments, err := f.payments.List(ctx, models.PaymentFilter{RaffleID: raffle.ID})
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != groups {
		t.Fatalf("expected %d payments, got %d", groups, len(payments))
	}
	if r := f.raffle(t, raffle.ID); r.ReservedTickets != 2*groups {
		t.Fatalf("expected %d reserved, got %d", 2*groups, r.ReservedTickets)
	}
	f.assertConsistent(t, raffle.ID)
}

