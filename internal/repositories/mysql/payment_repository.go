package mysql

import (
	"context"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

var _ repositories.PaymentRepository = (*PaymentRepository)(nil)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	return translateError("create payment", conn(ctx, r.db).Create(newPaymentRecord(payment)).Error)
}

func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var rec paymentRecord
	if err := conn(ctx, r.db).First(&rec, "id = ?", id.Hex()).Error; err != nil {
		return nil, notFound(err, "payment", id.Hex())
	}
	return rec.model(), nil
}

func (r *PaymentRepository) Find(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	q := conn(ctx, r.db)
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if !filter.RaffleID.IsZero() {
		q = q.Where("raffle_id = ?", filter.RaffleID.Hex())
	}
	if !filter.UserID.IsZero() {
		q = q.Where("user_id = ?", filter.UserID.Hex())
	}

	var recs []paymentRecord
	if err := q.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, translateError("find payments", err)
	}
	out := make([]*models.Payment, len(recs))
	for i := range recs {
		out[i] = recs[i].model()
	}
	return out, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, payment *models.Payment, from models.PaymentStatus) (bool, error) {
	res := conn(ctx, r.db).Model(&paymentRecord{}).
		Where("id = ? AND status = ?", payment.ID.Hex(), string(from)).
		Updates(map[string]interface{}{
			"status":           string(payment.Status),
			"rejection_reason": payment.RejectionReason,
			"reviewed_by":      hexPtr(payment.ReviewedBy),
			"reviewed_at":      payment.ReviewedAt,
			"updated_at":       payment.UpdatedAt,
		})
	if res.Error != nil {
		return false, translateError("update payment status", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	var n int64
	if err := conn(ctx, r.db).Model(&paymentRecord{}).Where("id = ?", payment.ID.Hex()).Count(&n).Error; err != nil {
		return false, translateError("update payment status", err)
	}
	if n == 0 {
		return false, models.NotFoundf("payment", payment.ID.Hex())
	}
	return false, nil
}
