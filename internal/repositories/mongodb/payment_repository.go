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

// Compile-time check to ensure PaymentRepository implements the interface
var _ repositories.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository handles MongoDB operations for Payment
type PaymentRepository struct {
	collection *mongo.Collection
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{
		collection: db.Collection("payments"),
	}
}

// Create inserts a new payment
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, payment)
	return translateError("create payment", err)
}

// FindByID finds a payment by ID
func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment); err != nil {
		return nil, notFound(err, "payment", id.Hex())
	}
	return &payment, nil
}

// Find lists payments matching filter, newest first
func (r *PaymentRepository) Find(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.RaffleID.IsZero() {
		query["raffleId"] = filter.RaffleID
	}
	if !filter.UserID.IsZero() {
		query["userId"] = filter.UserID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, translateError("find payments", err)
	}
	defer cursor.Close(ctx)

	payments := []*models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, translateError("decode payments", err)
	}
	return payments, nil
}

// UpdateStatus writes the review fields if the stored status is still from
func (r *PaymentRepository) UpdateStatus(ctx context.Context, payment *models.Payment, from models.PaymentStatus) (bool, error) {
	filter := bson.M{"_id": payment.ID, "status": from}
	update := bson.M{"$set": bson.M{
		"status":          payment.Status,
		"rejectionReason": payment.RejectionReason,
		"reviewedBy":      payment.ReviewedBy,
		"reviewedAt":      payment.ReviewedAt,
		"updatedAt":       payment.UpdatedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translateError("update payment status", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": payment.ID})
		if err != nil {
			return false, translateError("update payment status", err)
		}
		if n == 0 {
			return false, models.NotFoundf("payment", payment.ID.Hex())
		}
		return false, nil
	}
	return true, nil
}
