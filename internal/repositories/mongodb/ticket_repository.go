package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure TicketRepository implements the interface
var _ repositories.TicketRepository = (*TicketRepository)(nil)

// TicketRepository handles MongoDB operations for Ticket. Status changes are
// conditional UpdateOne calls whose filter carries the expected status, so a
// modified count of one means the compare-and-set won.
type TicketRepository struct {
	collection *mongo.Collection
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{
		collection: db.Collection("tickets"),
	}
}

var byNumber = bson.D{{Key: "raffleId", Value: 1}, {Key: "ticketNumber", Value: 1}}

// CreateMany inserts the tickets of a raffle
func (r *TicketRepository) CreateMany(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	docs := make([]interface{}, len(tickets))
	for i := range tickets {
		if tickets[i].ID.IsZero() {
			tickets[i].ID = primitive.NewObjectID()
		}
		docs[i] = tickets[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return translateError("create tickets", err)
}

func (r *TicketRepository) find(ctx context.Context, filter bson.M) ([]*models.Ticket, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(byNumber))
	if err != nil {
		return nil, translateError("find tickets", err)
	}
	defer cursor.Close(ctx)

	tickets := []*models.Ticket{}
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, translateError("decode tickets", err)
	}
	return tickets, nil
}

// FindByRaffle lists a raffle's tickets, optionally by status
func (r *TicketRepository) FindByRaffle(ctx context.Context, raffleID primitive.ObjectID, status models.TicketStatus) ([]*models.Ticket, error) {
	filter := bson.M{"raffleId": raffleID}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter)
}

// FindByNumbers returns the tickets of raffleID among numbers
func (r *TicketRepository) FindByNumbers(ctx context.Context, raffleID primitive.ObjectID, numbers []models.TicketNumber) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"raffleId": raffleID, "ticketNumber": bson.M{"$in": numbers}})
}

// FindByUser returns the tickets held by userID
func (r *TicketRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

// FindExpiredReservations returns reserved tickets reserved before cutoff
func (r *TicketRepository) FindExpiredReservations(ctx context.Context, cutoff time.Time) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{
		"status":     models.TicketReserved,
		"reservedAt": bson.M{"$lt": cutoff},
	})
}

// CountByStatus groups a raffle's tickets by status
func (r *TicketRepository) CountByStatus(ctx context.Context, raffleID primitive.ObjectID) (models.TicketCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"raffleId": raffleID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return models.TicketCounts{}, translateError("count tickets", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.TicketStatus `bson:"_id"`
		Count  int                 `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return models.TicketCounts{}, translateError("decode ticket counts", err)
	}

	var counts models.TicketCounts
	for _, row := range rows {
		switch row.Status {
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

func (r *TicketRepository) swap(ctx context.Context, op string, filter bson.M, set bson.M) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, translateError(op, err)
	}
	return res.ModifiedCount == 1, nil
}

// Reserve moves an available ticket to reserved
func (r *TicketRepository) Reserve(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, userID, paymentID primitive.ObjectID, now time.Time) (bool, error) {
	filter := bson.M{"raffleId": raffleID, "ticketNumber": number, "status": models.TicketAvailable}
	return r.swap(ctx, "reserve ticket", filter, bson.M{
		"status":        models.TicketReserved,
		"userId":        userID,
		"transactionId": paymentID,
		"reservedAt":    now,
		"updatedAt":     now,
	})
}

// MarkSold moves a reserved ticket to sold
func (r *TicketRepository) MarkSold(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, paymentID primitive.ObjectID, now time.Time) (bool, error) {
	filter := bson.M{"raffleId": raffleID, "ticketNumber": number, "status": models.TicketReserved}
	if !paymentID.IsZero() {
		filter["transactionId"] = paymentID
	}
	return r.swap(ctx, "mark ticket sold", filter, bson.M{
		"status":      models.TicketSold,
		"purchasedAt": now,
		"reservedAt":  nil,
		"updatedAt":   now,
	})
}

// Release moves a reserved ticket matching guard back to available
func (r *TicketRepository) Release(ctx context.Context, raffleID primitive.ObjectID, number models.TicketNumber, guard repositories.ReleaseGuard, now time.Time) (bool, error) {
	filter := bson.M{"raffleId": raffleID, "ticketNumber": number, "status": models.TicketReserved}
	if !guard.PaymentID.IsZero() {
		filter["transactionId"] = guard.PaymentID
	}
	if !guard.UserID.IsZero() {
		filter["userId"] = guard.UserID
	}
	if !guard.ReservedBefore.IsZero() {
		filter["reservedAt"] = bson.M{"$lt": guard.ReservedBefore}
	}
	return r.swap(ctx, "release ticket", filter, bson.M{
		"status":        models.TicketAvailable,
		"userId":        nil,
		"transactionId": nil,
		"reservedAt":    nil,
		"updatedAt":     now,
	})
}

// DeleteByRaffle removes every ticket of a raffle
func (r *TicketRepository) DeleteByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"raffleId": raffleID})
	if err != nil {
		return 0, translateError("delete tickets", err)
	}
	return res.DeletedCount, nil
}
