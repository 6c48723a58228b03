package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"github.com/ArowuTest/rifa-backend/internal/repositories/memory"
	"github.com/ArowuTest/rifa-backend/pkg/jwt"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type published struct {
	topic   string
	payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []published
}

func (b *recordingBroadcaster) Publish(topic string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{topic: topic, payload: payload})
}

func (b *recordingBroadcaster) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.topic
	}
	return out
}

func (b *recordingBroadcaster) byTopic(topic string) []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []interface{}
	for _, e := range b.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

type sentNotification struct {
	userID  primitive.ObjectID
	kind    models.NotificationType
	message string
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []sentNotification
	admin  []string
	failed bool
}

func (n *recordingNotifier) Notify(_ context.Context, userID primitive.ObjectID, kind models.NotificationType, _, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID: userID, kind: kind, message: message})
	if n.failed {
		return fmt.Errorf("gateway down")
	}
	return nil
}

func (n *recordingNotifier) NotifyAdmin(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, message)
	return nil
}

func (n *recordingNotifier) kinds() []models.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.NotificationType, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.kind
	}
	return out
}

// fixture wires every service over a fresh in-memory store.
type fixture struct {
	store       repositories.Store
	clock       *clock.Manual
	broadcaster *recordingBroadcaster
	notifier    *recordingNotifier
	tokens      *jwt.TokenService
	auth        *AuthService
	ledger      *TicketLedger
	aggregate   *RaffleAggregate
	payments    *PaymentService
	raffles     *RaffleService
	tickets     *TicketService
	sweeper     *ReservationSweeper
	admin       models.Actor
}

var fixtureStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:       memory.NewStore().Repositories(),
		clock:       clock.NewManual(fixtureStart),
		broadcaster: &recordingBroadcaster{},
		notifier:    &recordingNotifier{},
		tokens:      jwt.NewTokenService("test-secret", time.Hour, "rifa-test"),
	}
	f.auth = NewAuthService(f.store.Users, f.tokens, f.clock)
	f.auth.SetHashCost(bcrypt.MinCost)
	f.ledger = NewTicketLedger(f.store.Tx, f.store.Tickets, f.clock)
	f.aggregate = NewRaffleAggregate(f.store.Raffles)
	f.payments = NewPaymentService(f.store, f.ledger, f.aggregate, f.auth, f.broadcaster, f.notifier, f.clock)
	f.raffles = NewRaffleService(f.store, f.broadcaster, f.clock, 0)
	f.tickets = NewTicketService(f.store, f.ledger, f.aggregate, f.broadcaster)
	f.sweeper = NewReservationSweeper(f.store.Tx, f.ledger, f.aggregate, f.broadcaster, f.notifier, f.clock, 0, 0)
	f.admin = models.Actor{UserID: primitive.NewObjectID(), Role: models.RoleAdmin}
	return f
}

func (f *fixture) createRaffle(t *testing.T, total int, price float64) *models.Raffle {
	t.Helper()
	raffle, err := f.raffles.Create(context.Background(), CreateRaffleInput{
		ProductName:  "Moto Bera",
		Price:        price,
		TotalTickets: total,
	}, f.admin)
	if err != nil {
		t.Fatalf("create raffle: %v", err)
	}
	return raffle
}

func buyer(n int) models.BuyerInfo {
	return models.BuyerInfo{
		FullName:    fmt.Sprintf("Buyer %d", n),
		IDNumber:    fmt.Sprintf("V-%08d", n),
		PhoneNumber: fmt.Sprintf("+58412%07d", n),
		Email:       fmt.Sprintf("buyer%d@example.com", n),
		Password:    "secret123",
	}
}

func (f *fixture) purchase(raffle *models.Raffle, info models.BuyerInfo, numbers ...string) (*CreatePaymentResult, error) {
	return f.payments.CreateAndReserve(context.Background(), CreatePaymentInput{
		Buyer:           info,
		RaffleID:        raffle.ID,
		SelectedNumbers: numbers,
		Method:          models.MethodZelle,
		TotalAmountUSD:  raffle.Price * float64(len(numbers)),
		ProofOfPayment:  "/uploads/proof.png",
	})
}

func (f *fixture) mustPurchase(t *testing.T, raffle *models.Raffle, info models.BuyerInfo, numbers ...string) *CreatePaymentResult {
	t.Helper()
	res, err := f.purchase(raffle, info, numbers...)
	if err != nil {
		t.Fatalf("purchase %v: %v", numbers, err)
	}
	return res
}

func (f *fixture) raffle(t *testing.T, id primitive.ObjectID) *models.Raffle {
	t.Helper()
	r, err := f.store.Raffles.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load raffle: %v", err)
	}
	return r
}

func (f *fixture) ticketStatus(t *testing.T, raffleID primitive.ObjectID, number models.TicketNumber) models.TicketStatus {
	t.Helper()
	tickets, err := f.store.Tickets.FindByNumbers(context.Background(), raffleID, []models.TicketNumber{number})
	if err != nil || len(tickets) != 1 {
		t.Fatalf("load ticket %s: %v", number, err)
	}
	return tickets[0].Status
}

// assertConsistent checks the raffle counters against the ticket ledger.
func (f *fixture) assertConsistent(t *testing.T, raffleID primitive.ObjectID) {
	t.Helper()
	stats, err := f.raffles.Stats(context.Background(), raffleID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !stats.Consistent {
		t.Fatalf("counters %+v diverge from ledger %+v", stats.Counters, stats.Counts)
	}
	if stats.Counts.Total() != stats.TotalTickets {
		t.Fatalf("expected %d tickets in ledger, got %d", stats.TotalTickets, stats.Counts.Total())
	}
}
