package mongodb

import (
	"context"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure NotificationRepository implements the interface
var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

// NotificationRepository handles MongoDB operations for Notification
type NotificationRepository struct {
	collection *mongo.Collection
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, notification)
	return translateError("create notification", err)
}

// FindByUser returns a user's notifications in the order they were sent
func (r *NotificationRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, translateError("find notifications", err)
	}
	defer cursor.Close(ctx)

	notifications := []*models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, translateError("decode notifications", err)
	}
	return notifications, nil
}
