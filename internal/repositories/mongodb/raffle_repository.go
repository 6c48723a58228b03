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

// Compile-time check to ensure RaffleRepository implements the interface
var _ repositories.RaffleRepository = (*RaffleRepository)(nil)

// RaffleRepository handles MongoDB operations for Raffle
type RaffleRepository struct {
	collection *mongo.Collection
}

// NewRaffleRepository creates a new RaffleRepository
func NewRaffleRepository(db *mongo.Database) *RaffleRepository {
	return &RaffleRepository{
		collection: db.Collection("raffles"),
	}
}

// Create inserts a new raffle
func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	if raffle.ID.IsZero() {
		raffle.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, raffle)
	return translateError("create raffle", err)
}

// FindByID finds a raffle by ID
func (r *RaffleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	var raffle models.Raffle
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raffle); err != nil {
		return nil, notFound(err, "raffle", id.Hex())
	}
	return &raffle, nil
}

// FindActive returns the most recently created active raffle
func (r *RaffleRepository) FindActive(ctx context.Context) (*models.Raffle, error) {
	var raffle models.Raffle
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := r.collection.FindOne(ctx, bson.M{"active": true}, opts).Decode(&raffle); err != nil {
		return nil, notFound(err, "raffle", "active")
	}
	return &raffle, nil
}

// FindAll returns every raffle, newest first
func (r *RaffleRepository) FindAll(ctx context.Context) ([]*models.Raffle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translateError("find raffles", err)
	}
	defer cursor.Close(ctx)

	raffles := []*models.Raffle{}
	if err := cursor.All(ctx, &raffles); err != nil {
		return nil, translateError("decode raffles", err)
	}
	return raffles, nil
}

// Update writes everything except the counters
func (r *RaffleRepository) Update(ctx context.Context, raffle *models.Raffle) error {
	update := bson.M{"$set": bson.M{
		"productName":   raffle.ProductName,
		"description":   raffle.Description,
		"images":        raffle.Images,
		"price":         raffle.Price,
		"totalTickets":  raffle.TotalTickets,
		"active":        raffle.Active,
		"paused":        raffle.Paused,
		"winner":        raffle.Winner,
		"winningNumber": raffle.WinningNumber,
		"drawDate":      raffle.DrawDate,
		"updatedAt":     raffle.UpdatedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": raffle.ID}, update)
	if err != nil {
		return translateError("update raffle", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFoundf("raffle", raffle.ID.Hex())
	}
	return nil
}

// DeactivateAll clears the active flag on every raffle but except
func (r *RaffleRepository) DeactivateAll(ctx context.Context, except primitive.ObjectID) error {
	filter := bson.M{"_id": bson.M{"$ne": except}, "active": true}
	update := bson.M{"$set": bson.M{"active": false, "updatedAt": time.Now()}}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return translateError("deactivate raffles", err)
}

// AdjustCounters applies the deltas in a single pipeline update so the floor
// at zero holds under concurrent writers.
func (r *RaffleRepository) AdjustCounters(ctx context.Context, id primitive.ObjectID, reservedDelta, soldDelta int) (models.RaffleCounters, error) {
	floored := func(field string, delta int) bson.D {
		return bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$add", Value: bson.A{"$" + field, delta}}}}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reservedTickets", Value: floored("reservedTickets", reservedDelta)},
			{Key: "soldTickets", Value: floored("soldTickets", soldDelta)},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"soldTickets": 1, "reservedTickets": 1})

	var before models.RaffleCounters
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&before)
	if err != nil {
		return models.RaffleCounters{}, notFound(err, "raffle", id.Hex())
	}
	return before, nil
}

// SetCounters overwrites both counters
func (r *RaffleRepository) SetCounters(ctx context.Context, id primitive.ObjectID, counters models.RaffleCounters) error {
	update := bson.M{"$set": bson.M{
		"soldTickets":     counters.SoldTickets,
		"reservedTickets": counters.ReservedTickets,
		"updatedAt":       time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translateError("set raffle counters", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFoundf("raffle", id.Hex())
	}
	return nil
}

// Delete removes a raffle
func (r *RaffleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError("delete raffle", err)
	}
	if res.DeletedCount == 0 {
		return models.NotFoundf("raffle", id.Hex())
	}
	return nil
}
