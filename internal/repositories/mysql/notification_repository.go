package mysql

import (
	"context"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	return translateError("create notification", conn(ctx, r.db).Create(newNotificationRecord(n)).Error)
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	var recs []notificationRecord
	err := conn(ctx, r.db).Where("user_id = ?", userID.Hex()).Order("created_at ASC").Find(&recs).Error
	if err != nil {
		return nil, translateError("find notifications", err)
	}
	out := make([]*models.Notification, len(recs))
	for i := range recs {
		out[i] = recs[i].model()
	}
	return out, nil
}
