package memory

import (
	"context"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

// NotificationRepository keeps sent notifications in insertion order.
type NotificationRepository struct {
	s *Store
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.s.run(ctx, func(t *txn) error {
		if n.ID.IsZero() {
			n.ID = primitive.NewObjectID()
		}
		t.appendNotification(*n)
		return nil
	})
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	out := []*models.Notification{}
	err := r.s.run(ctx, func(t *txn) error {
		for _, n := range t.store.notifications {
			if n.UserID == userID {
				cp := n
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
