package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Reservation expiry defaults.
const (
	DefaultReservationTTL = 24 * time.Hour
	DefaultSweepInterval  = 5 * time.Minute
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Expired  int `json:"expired"`
	Released int `json:"released"`
	Raffles  int `json:"raffles"`
	Users    int `json:"users"`
	Failed   int `json:"failed"`
}

// ReservationSweeper returns stale reservations to the pool.
type ReservationSweeper struct {
	tx          repositories.Transactor
	ledger      *TicketLedger
	aggregate   *RaffleAggregate
	broadcaster Broadcaster
	notifier    Notifier
	clock       clock.Clock
	ttl         time.Duration
	interval    time.Duration
}

// NewReservationSweeper creates a new ReservationSweeper. Non-positive ttl or
// interval fall back to the defaults.
func NewReservationSweeper(
	tx repositories.Transactor,
	ledger *TicketLedger,
	aggregate *RaffleAggregate,
	broadcaster Broadcaster,
	notifier Notifier,
	clk clock.Clock,
	ttl, interval time.Duration,
) *ReservationSweeper {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ReservationSweeper{
		tx:          tx,
		ledger:      ledger,
		aggregate:   aggregate,
		broadcaster: broadcaster,
		notifier:    notifier,
		clock:       clk,
		ttl:         ttl,
		interval:    interval,
	}
}

// Run sweeps once immediately and then on every tick of the clock until ctx
// is done.
func (s *ReservationSweeper) Run(ctx context.Context) {
	slog.Info("reservation sweeper started", "ttl", s.ttl.String(), "interval", s.interval.String())
	s.runOnce(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("reservation sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ReservationSweeper) runOnce(ctx context.Context) {
	report, err := s.SweepOnce(ctx)
	if err != nil {
		slog.Error("reservation sweep failed", "error", err)
		return
	}
	if report.Released > 0 || report.Failed > 0 {
		slog.Info("reservation sweep finished", "expired", report.Expired, "released", report.Released,
			"raffles", report.Raffles, "users", report.Users, "failed", report.Failed)
	}
}

// raffleBatch is the expired reservations of one raffle, grouped by owner.
type raffleBatch struct {
	raffleID primitive.ObjectID
	users    []primitive.ObjectID
	byUser   map[primitive.ObjectID][]models.TicketNumber
}

func groupExpired(tickets []*models.Ticket) []*raffleBatch {
	batches := make(map[primitive.ObjectID]*raffleBatch)
	for _, t := range tickets {
		if t.UserID == nil {
			continue
		}
		b, ok := batches[t.RaffleID]
		if !ok {
			b = &raffleBatch{raffleID: t.RaffleID, byUser: make(map[primitive.ObjectID][]models.TicketNumber)}
			batches[t.RaffleID] = b
		}
		uid := *t.UserID
		if _, seen := b.byUser[uid]; !seen {
			b.users = append(b.users, uid)
		}
		b.byUser[uid] = append(b.byUser[uid], t.Number)
	}
	out := make([]*raffleBatch, 0, len(batches))
	for _, b := range batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].raffleID.Hex() < out[j].raffleID.Hex() })
	return out
}

// SweepOnce releases every reservation older than the TTL. Each raffle is
// released in its own transaction; a failing raffle is logged and skipped.
func (s *ReservationSweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	cutoff := s.clock.Now().Add(-s.ttl)
	expired, err := s.ledger.FindExpiredReservations(ctx, s.ttl)
	if err != nil {
		return report, fmt.Errorf("find expired reservations: %w", err)
	}
	report.Expired = len(expired)
	if len(expired) == 0 {
		return report, nil
	}

	for _, batch := range groupExpired(expired) {
		released, err := s.releaseBatch(ctx, batch, cutoff)
		if err != nil {
			report.Failed++
			slog.Error("failed to release expired reservations", "raffleId", batch.raffleID.Hex(), "error", err)
			continue
		}
		report.Raffles++

		var all []models.TicketNumber
		for _, uid := range batch.users {
			numbers := released[uid]
			if len(numbers) == 0 {
				continue
			}
			all = append(all, numbers...)
			report.Users++
			s.broadcaster.Publish(models.TopicYourTicketsReleased, models.UserTicketsReleasedEvent{
				UserID: uid, RaffleID: batch.raffleID, TicketNumbers: numbers,
			})
			notifyUser(ctx, s.notifier, uid, models.NotifyReservationExpired, "Reservation expired",
				fmt.Sprintf("Your reservation for tickets %s expired after %s without a confirmed payment. The tickets are available again.",
					models.JoinTicketNumbers(numbers), s.ttl))
		}
		report.Released += len(all)
		if len(all) > 0 {
			s.broadcaster.Publish(models.TopicTicketsReleased, models.TicketsEvent{
				RaffleID: batch.raffleID, TicketNumbers: all,
			})
		}
	}

	if report.Released > 0 {
		alertAdmin(ctx, s.notifier, fmt.Sprintf("Reservation sweep released %d ticket(s) across %d raffle(s)",
			report.Released, report.Raffles))
	}
	return report, nil
}

// releaseBatch frees one raffle's expired reservations and adjusts its
// reserved counter in a single transaction.
func (s *ReservationSweeper) releaseBatch(ctx context.Context, b *raffleBatch, cutoff time.Time) (map[primitive.ObjectID][]models.TicketNumber, error) {
	var released map[primitive.ObjectID][]models.TicketNumber
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		released = make(map[primitive.ObjectID][]models.TicketNumber, len(b.users))
		total := 0
		for _, uid := range b.users {
			guard := repositories.ReleaseGuard{UserID: uid, ReservedBefore: cutoff}
			freed, err := s.ledger.Release(ctx, b.raffleID, b.byUser[uid], guard)
			if err != nil {
				return err
			}
			released[uid] = freed
			total += len(freed)
		}
		return s.aggregate.DecrementReserved(ctx, b.raffleID, total)
	})
	return released, err
}
