package memory

import (
	"context"
	"sort"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository is the in-memory payment collection.
type PaymentRepository struct {
	s *Store
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.s.run(ctx, func(t *txn) error {
		if payment.ID.IsZero() {
			payment.ID = primitive.NewObjectID()
		}
		cp := *payment
		cp.SelectedNumbers = append([]models.TicketNumber(nil), payment.SelectedNumbers...)
		t.putPayment(cp)
		return nil
	})
}

func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var out *models.Payment
	err := r.s.run(ctx, func(t *txn) error {
		p, ok := t.store.payments[id]
		if !ok {
			return models.NotFoundf("payment", id.Hex())
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *PaymentRepository) Find(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	out := []*models.Payment{}
	err := r.s.run(ctx, func(t *txn) error {
		for _, p := range t.store.payments {
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			if !filter.RaffleID.IsZero() && p.RaffleID != filter.RaffleID {
				continue
			}
			if !filter.UserID.IsZero() && p.UserID != filter.UserID {
				continue
			}
			cp := p
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, payment *models.Payment, from models.PaymentStatus) (bool, error) {
	var applied bool
	err := r.s.run(ctx, func(t *txn) error {
		cur, ok := t.store.payments[payment.ID]
		if !ok {
			return models.NotFoundf("payment", payment.ID.Hex())
		}
		if cur.Status != from {
			return nil
		}
		cur.Status = payment.Status
		cur.RejectionReason = payment.RejectionReason
		cur.ReviewedBy = payment.ReviewedBy
		cur.ReviewedAt = payment.ReviewedAt
		cur.UpdatedAt = payment.UpdatedAt
		t.putPayment(cur)
		applied = true
		return nil
	})
	return applied, err
}
