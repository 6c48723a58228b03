package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexModels lists the indexes of every collection. The unique
// (raffleId, ticketNumber) index is what keeps a number from existing twice.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"tickets": {
			{Keys: bson.D{{Key: "raffleId", Value: 1}, {Key: "ticketNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "raffleId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "reservedAt", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		"payments": {
			{Keys: bson.D{{Key: "raffleId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "idNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"raffles": {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		"notifications": {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, specs := range indexModels() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection, err)
		}
	}
	return nil
}
