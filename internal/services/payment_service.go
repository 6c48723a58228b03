package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// amountTolerance absorbs rounding in client side price totals.
const amountTolerance = 0.01

// CreatePaymentInput is a purchase request. Actor is zero for anonymous
// buyers, who must then supply Buyer.
type CreatePaymentInput struct {
	Actor           models.Actor
	Buyer           models.BuyerInfo
	RaffleID        primitive.ObjectID
	SelectedNumbers []string
	Method          models.PaymentMethod
	TotalAmountUSD  float64
	ProofOfPayment  string
}

// CreatePaymentResult is returned by CreateAndReserve. Token is set only when
// a new buyer was registered.
type CreatePaymentResult struct {
	Payment *models.Payment
	User    *models.User
	Token   string
}

// PaymentService drives the Pending -> Confirmed|Rejected workflow and the
// ticket changes attached to each edge.
type PaymentService struct {
	tx          repositories.Transactor
	payments    repositories.PaymentRepository
	raffles     repositories.RaffleRepository
	ledger      *TicketLedger
	aggregate   *RaffleAggregate
	auth        *AuthService
	broadcaster Broadcaster
	notifier    Notifier
	clock       clock.Clock
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	store repositories.Store,
	ledger *TicketLedger,
	aggregate *RaffleAggregate,
	auth *AuthService,
	broadcaster Broadcaster,
	notifier Notifier,
	clk clock.Clock,
) *PaymentService {
	return &PaymentService{
		tx:          store.Tx,
		payments:    store.Payments,
		raffles:     store.Raffles,
		ledger:      ledger,
		aggregate:   aggregate,
		auth:        auth,
		broadcaster: broadcaster,
		notifier:    notifier,
		clock:       clk,
	}
}

func validateCreateInput(in CreatePaymentInput) error {
	if len(in.SelectedNumbers) == 0 {
		return models.NewValidationError("selectedNumbers", "at least one ticket number is required")
	}
	if !in.Method.Valid() {
		return models.NewValidationError("method", fmt.Sprintf("unsupported payment method %q", in.Method))
	}
	if in.TotalAmountUSD <= 0 || math.IsNaN(in.TotalAmountUSD) || math.IsInf(in.TotalAmountUSD, 0) {
		return models.NewValidationError("totalAmountUSD", "amount must be positive")
	}
	if strings.TrimSpace(in.ProofOfPayment) == "" {
		return models.NewValidationError("proofOfPayment", "proof of payment is required")
	}
	if !in.Actor.Authenticated() {
		return ValidateBuyer(in.Buyer)
	}
	return nil
}

// activeRaffle returns the open raffle, which must match raffleID when one is given.
func (s *PaymentService) activeRaffle(ctx context.Context, raffleID primitive.ObjectID) (*models.Raffle, error) {
	raffle, err := s.raffles.FindActive(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoActiveRaffle
		}
		return nil, err
	}
	if !raffleID.IsZero() && raffle.ID != raffleID {
		return nil, models.ErrNoActiveRaffle
	}
	if !raffle.OpenForSales() {
		return nil, models.ErrNoActiveRaffle
	}
	return raffle, nil
}

// CreateAndReserve registers or resolves the buyer, reserves the numbers,
// creates the Pending payment and bumps the reserved counter in one
// transaction.
func (s *PaymentService) CreateAndReserve(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	var (
		payment *models.Payment
		buyer   *models.User
		created bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, isNew, err := s.auth.ResolveBuyer(ctx, in.Actor, in.Buyer)
		if err != nil {
			return err
		}
		raffle, err := s.activeRaffle(ctx, in.RaffleID)
		if err != nil {
			return err
		}
		numbers, err := models.NormalizeTicketNumbers(in.SelectedNumbers, raffle.TotalTickets)
		if err != nil {
			return err
		}
		expected := raffle.Price * float64(len(numbers))
		if math.Abs(expected-in.TotalAmountUSD) > amountTolerance {
			return models.NewValidationError("totalAmountUSD",
				fmt.Sprintf("expected %.2f for %d tickets, got %.2f", expected, len(numbers), in.TotalAmountUSD))
		}

		now := s.clock.Now()
		p := &models.Payment{
			ID:              primitive.NewObjectID(),
			UserID:          user.ID,
			RaffleID:        raffle.ID,
			FullName:        user.FullName,
			IDNumber:        user.IDNumber,
			PhoneNumber:     user.PhoneNumber,
			Email:           user.Email,
			SelectedNumbers: numbers,
			Method:          in.Method,
			TotalAmountUSD:  in.TotalAmountUSD,
			ProofOfPayment:  in.ProofOfPayment,
			Status:          models.PaymentPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.ledger.Reserve(ctx, raffle.ID, numbers, user.ID, p.ID); err != nil {
			return err
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if err := s.aggregate.IncrementReserved(ctx, raffle.ID, len(numbers)); err != nil {
			return err
		}
		payment, buyer, created = p, user, isNew
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrTicketsUnavailable) {
			slog.Info("reservation rejected", "raffleId", in.RaffleID.Hex(), "error", err)
		}
		return nil, err
	}

	slog.Info("payment created", "paymentId", payment.ID.Hex(), "raffleId", payment.RaffleID.Hex(),
		"userId", buyer.ID.Hex(), "tickets", len(payment.SelectedNumbers), "newUser", created)

	res := &CreatePaymentResult{Payment: payment, User: buyer}
	if created {
		token, err := s.auth.IssueToken(buyer)
		if err != nil {
			slog.Error("failed to issue token for new buyer", "userId", buyer.ID.Hex(), "error", err)
		}
		res.Token = token
	}

	s.broadcaster.Publish(models.TopicTicketsReserved, models.TicketsEvent{
		RaffleID: payment.RaffleID, TicketNumbers: payment.SelectedNumbers,
	})
	s.broadcaster.Publish(models.TopicPaymentCreated, models.PaymentEvent{
		PaymentID: payment.ID, RaffleID: payment.RaffleID, TicketNumbers: payment.SelectedNumbers,
	})
	notifyUser(ctx, s.notifier, payment.UserID, models.NotifyPaymentPending, "Payment received",
		fmt.Sprintf("We received your payment for tickets %s. It is pending verification.",
			models.JoinTicketNumbers(payment.SelectedNumbers)))
	alertAdmin(ctx, s.notifier, fmt.Sprintf("New payment %s from %s: %d ticket(s) [%s], %.2f USD via %s",
		payment.ID.Hex(), payment.FullName, len(payment.SelectedNumbers),
		models.JoinTicketNumbers(payment.SelectedNumbers), payment.TotalAmountUSD, payment.Method))
	return res, nil
}

// review loads a payment, applies the decision and persists it with a
// status compare-and-set, all inside the caller's transaction.
func (s *PaymentService) review(ctx context.Context, id primitive.ObjectID, actor models.Actor, to models.PaymentStatus, reason string) (*models.Payment, error) {
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Transition(to, reason); err != nil {
		return nil, err
	}
	p.Review(actor.UserID, s.clock.Now())
	ok, err := s.payments.UpdateStatus(ctx, p, models.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	if !ok {
		cur, err := s.payments.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &models.InvalidTransitionError{Entity: "payment", From: string(cur.Status), To: string(to)}
	}
	return p, nil
}

// Confirm marks a Pending payment Confirmed and sells its tickets.
func (s *PaymentService) Confirm(ctx context.Context, id primitive.ObjectID, actor models.Actor) (*models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	var (
		payment *models.Payment
		sale    SaleResult
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.review(ctx, id, actor, models.PaymentConfirmed, "")
		if err != nil {
			return err
		}
		res, err := s.ledger.MarkSold(ctx, p.RaffleID, p.SelectedNumbers, p.UserID, p.ID)
		if err != nil {
			return err
		}
		if err := s.aggregate.DecrementReserved(ctx, p.RaffleID, len(res.FromReserved)); err != nil {
			return err
		}
		if err := s.aggregate.IncrementSold(ctx, p.RaffleID, len(res.Sold())); err != nil {
			return err
		}
		payment, sale = p, res
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			slog.Error("payment confirm refused", "paymentId", id.Hex(), "error", err)
		}
		return nil, err
	}

	slog.Info("payment confirmed", "paymentId", payment.ID.Hex(), "raffleId", payment.RaffleID.Hex(),
		"sold", len(sale.Sold()), "reclaimed", len(sale.Reclaimed))

	if sold := sale.Sold(); len(sold) > 0 {
		s.broadcaster.Publish(models.TopicTicketStatusChanged, models.TicketStatusChangedEvent{
			RaffleID: payment.RaffleID, TicketNumbers: sold, NewStatus: models.TicketSold,
		})
	}
	s.broadcaster.Publish(models.TopicPaymentConfirmed, models.PaymentEvent{
		PaymentID: payment.ID, RaffleID: payment.RaffleID, TicketNumbers: payment.SelectedNumbers,
	})
	notifyUser(ctx, s.notifier, payment.UserID, models.NotifyPaymentConfirmed, "Payment confirmed",
		fmt.Sprintf("Your payment was confirmed. Your tickets %s for raffle %s are now yours.",
			models.JoinTicketNumbers(payment.SelectedNumbers), s.raffleName(ctx, payment.RaffleID)))
	return payment, nil
}

// Reject marks a Pending payment Rejected with reason and frees its tickets.
func (s *PaymentService) Reject(ctx context.Context, id primitive.ObjectID, actor models.Actor, reason string) (*models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("rejectionReason", "a reason is required to reject a payment")
	}
	var (
		payment  *models.Payment
		released []models.TicketNumber
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.review(ctx, id, actor, models.PaymentRejected, reason)
		if err != nil {
			return err
		}
		freed, err := s.ledger.Release(ctx, p.RaffleID, p.SelectedNumbers, repositories.ReleaseGuard{PaymentID: p.ID})
		if err != nil {
			return err
		}
		if err := s.aggregate.DecrementReserved(ctx, p.RaffleID, len(freed)); err != nil {
			return err
		}
		payment, released = p, freed
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			slog.Error("payment reject refused", "paymentId", id.Hex(), "error", err)
		}
		return nil, err
	}

	slog.Info("payment rejected", "paymentId", payment.ID.Hex(), "raffleId", payment.RaffleID.Hex(),
		"released", len(released), "reason", reason)

	if len(released) > 0 {
		s.broadcaster.Publish(models.TopicTicketStatusChanged, models.TicketStatusChangedEvent{
			RaffleID: payment.RaffleID, TicketNumbers: released, NewStatus: models.TicketAvailable,
		})
	}
	s.broadcaster.Publish(models.TopicPaymentRejected, models.PaymentEvent{
		PaymentID: payment.ID, RaffleID: payment.RaffleID, TicketNumbers: payment.SelectedNumbers,
	})
	if len(released) > 0 {
		s.broadcaster.Publish(models.TopicTicketsReleased, models.TicketsEvent{
			RaffleID: payment.RaffleID, TicketNumbers: released,
		})
	}
	notifyUser(ctx, s.notifier, payment.UserID, models.NotifyPaymentRejected, "Payment rejected",
		fmt.Sprintf("Your payment for tickets %s was rejected: %s",
			models.JoinTicketNumbers(payment.SelectedNumbers), reason))
	return payment, nil
}

// Get returns a payment. Non-admin actors only see their own payments.
func (s *PaymentService) Get(ctx context.Context, id primitive.ObjectID, actor models.Actor) (*models.Payment, error) {
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && p.UserID != actor.UserID {
		return nil, models.NotFoundf("payment", id.Hex())
	}
	return p, nil
}

// List returns payments matching filter, newest first.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	return s.payments.Find(ctx, filter)
}

// Stats counts payments by status and sums confirmed revenue.
func (s *PaymentService) Stats(ctx context.Context, raffleID primitive.ObjectID) (models.PaymentStats, error) {
	var stats models.PaymentStats
	payments, err := s.payments.Find(ctx, models.PaymentFilter{RaffleID: raffleID})
	if err != nil {
		return stats, err
	}
	for _, p := range payments {
		stats.Total++
		switch p.Status {
		case models.PaymentPending:
			stats.Pending++
		case models.PaymentConfirmed:
			stats.Confirmed++
			stats.Revenue += p.TotalAmountUSD
		case models.PaymentRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

func (s *PaymentService) raffleName(ctx context.Context, id primitive.ObjectID) string {
	raffle, err := s.raffles.FindByID(ctx, id)
	if err != nil {
		return id.Hex()
	}
	return raffle.ProductName
}
