package mysql

import (
	"context"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

var _ repositories.TicketRepository = (*TicketRepository)(nil)

const ticketBatchSize = 500

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) CreateMany(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	recs := make([]ticketRecord, len(tickets))
	for i := range tickets {
		if tickets[i].ID.IsZero() {
			tickets[i].ID = primitive.NewObjectID()
		}
		recs[i] = newTicketRecord(&tickets[i])
	}
	return translateError("create tickets", conn(ctx, r.db).CreateInBatches(recs, ticketBatchSize).Error)
}

func (r *TicketRepository) find(q *gorm.DB) ([]*models.Ticket, error) {
	var recs []ticketRecord
	if err := q.Order("raffle_id ASC, ticket_number ASC").Find(&recs).Error; err != nil {
		return nil, translateError("find tickets", err)
	}
	out := make([]*models.Ticket, len(recs))
	for i := range recs {
		out[i] = recs[i].model()
	}
	return out, nil
}

func (r *TicketRepository) FindByRaffle(ctx context.Context, raffleID primitive.ObjectID, status models.TicketStatus) ([]*models.Ticket, error) {
	q := conn(ctx, r.db).Where("raffle_id = ?", raffleID.Hex())
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	return r.find(q)
}

func (r *TicketRepository) FindByNumbers(ctx context.Context, raffleID primitive.ObjectID, numbers []models.TicketNumber) ([]*models.Ticket, error) {
	if len(numbers) == 0 {
		return []*models.Ticket{}, nil
	}
	return r.find(conn(ctx, r.db).Where("raffle_id = ? AND ticket_number IN ?", raffleID.Hex(), models.TicketNumberStrings(numbers)))
}

func (r *TicketRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(conn(ctx, r.db).Where("user_id = ?", userID.Hex()))
}

func (r *TicketRepository) FindExpiredReservations(ctx context.Context, cutoff time.Time) ([]*models.Ticket, error) {
	return r.find(conn(ctx, r.db).Where("status = ? AND reserved_at < ?", string(models.TicketReserved), cutoff))
}

func (r *TicketRepository) CountByStatus(ctx context.Context, raffleID primitive.ObjectID) (models.TicketCounts, error) {
	var rows []struct {
		Status string
		Count  int
	}
	err := conn(ctx, r.db).Model(&ticketRecord{}).
		Select("status, COUNT(*) AS count").
		Where("raffle_id = ?", raffleID.Hex()).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return models.TicketCounts{}, translateError("count tickets", err)
	}

	var counts models.TicketCounts
	for _, row := range rows {
		switch models.TicketStatus(row.Status) {
		case models.TicketAvailable:
			counts.Available = row.Count
		case models.TicketReserved:
			counts.Reserved = row.Count
		case models.TicketSold:
			counts.Sold = row.Count
		}
	}
	return counts, nil
}

// swap runs a conditional update; one affected row means it applied.
func (r *TicketRepository) swap(op string, q *gorm.DB, set map[string]interface{}) (bool, error) {
	res := q.Updates(set)
	if res.Error != nil {
		return false, translateError(op, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *TicketRepository) match(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, status models.TicketStatus) *gorm.DB {
	return conn(ctx, r.db).Model(&ticketRecord{}).
		Where("raffle_id = ? AND ticket_number = ? AND status = ?", raffleID.Hex(), string(number), string(status))
}

func (r *TicketRepository) Reserve(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, userID, paymentID primitive.ObjectID, now time.Time) (bool, error) {
	return r.swap("reserve ticket", r.match(ctx, raffleID, number, models.TicketAvailable), map[string]interface{}{
		"status":         string(models.TicketReserved),
		"user_id":        userID.Hex(),
		"transaction_id": paymentID.Hex(),
		"reserved_at":    now,
		"updated_at":     now,
	})
}

func (r *TicketRepository) MarkSold(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, paymentID primitive.ObjectID, now time.Time) (bool, error) {
	q := r.match(ctx, raffleID, number, models.TicketReserved)
	if !paymentID.IsZero() {
		q = q.Where("transaction_id = ?", paymentID.Hex())
	}
	return r.swap("mark ticket sold", q, map[string]interface{}{
		"status":       string(models.TicketSold),
		"purchased_at": now,
		"reserved_at":  nil,
		"updated_at":   now,
	})
}

func (r *TicketRepository) Release(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, guard repositories.ReleaseGuard, now time.Time) (bool, error) {
	q := r.match(ctx, raffleID, number, models.TicketReserved)
	if !guard.PaymentID.IsZero() {
		q = q.Where("transaction_id = ?", guard.PaymentID.Hex())
	}
	if !guard.UserID.IsZero() {
		q = q.Where("user_id = ?", guard.UserID.Hex())
	}
	if !guard.ReservedBefore.IsZero() {
		q = q.Where("reserved_at < ?", guard.ReservedBefore)
	}
	return r.swap("release ticket", q, map[string]interface{}{
		"status":         string(models.TicketAvailable),
		"user_id":        nil,
		"transaction_id": nil,
		"reserved_at":    nil,
		"updated_at":     now,
	})
}

func (r *TicketRepository) DeleteByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int64, error) {
	res := conn(ctx, r.db).Where("raffle_id = ?", raffleID.Hex()).Delete(&ticketRecord{})
	if res.Error != nil {
		return 0, translateError("delete tickets", res.Error)
	}
	return res.RowsAffected, nil
}
