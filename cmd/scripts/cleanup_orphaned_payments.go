// Command cleanup_orphaned_payments deletes payments whose raffle no longer
// exists and frees reserved tickets that still point at a missing payment.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	mongorepo "github.com/ArowuTest/rifa-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/rifa-backend/internal/services"
	"github.com/ArowuTest/rifa-backend/pkg/mongodb"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be cleaned without writing")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Fatal("MONGODB_URI environment variable is required")
	}
	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "rifa"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := mongodb.NewClient(ctx, mongoURI, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(dbName)

	deleted, err := deleteOrphanedPayments(ctx, db, *dryRun)
	if err != nil {
		log.Fatalf("Failed to clean up payments: %v", err)
	}
	released, err := releaseDanglingTickets(ctx, client, db, *dryRun)
	if err != nil {
		log.Fatalf("Failed to release tickets: %v", err)
	}

	log.Printf("Cleanup completed: %d orphaned payments, %d dangling reservations (dry run: %v)", deleted, released, *dryRun)
}

func distinctIDs(ctx context.Context, coll *mongo.Collection, field string, filter bson.M) (map[primitive.ObjectID]bool, error) {
	values, err := coll.Distinct(ctx, field, filter)
	if err != nil {
		return nil, err
	}
	ids := make(map[primitive.ObjectID]bool, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids[id] = true
		}
	}
	return ids, nil
}

func deleteOrphanedPayments(ctx context.Context, db *mongo.Database, dryRun bool) (int, error) {
	raffles, err := distinctIDs(ctx, db.Collection("raffles"), "_id", bson.M{})
	if err != nil {
		return 0, err
	}

	cursor, err := db.Collection("payments").Find(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return 0, err
	}
	log.Printf("Found %d total payments", len(payments))

	var orphaned []primitive.ObjectID
	for _, p := range payments {
		if !raffles[p.RaffleID] {
			orphaned = append(orphaned, p.ID)
		}
	}
	if len(orphaned) == 0 || dryRun {
		return len(orphaned), nil
	}

	res, err := db.Collection("payments").DeleteMany(ctx, bson.M{"_id": bson.M{"$in": orphaned}})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

// releaseDanglingTickets frees reserved tickets whose payment is gone. Each
// raffle's tickets and reserved counter change in one transaction.
func releaseDanglingTickets(ctx context.Context, client *mongodb.Client, db *mongo.Database, dryRun bool) (int, error) {
	store := mongorepo.NewStore(client.Mongo(), db, 30*time.Second)
	ledger := services.NewTicketLedger(store.Tx, store.Tickets, clock.NewSystem())
	cleaner := services.NewReservationCleaner(store, ledger, services.NewRaffleAggregate(store.Raffles))

	report, err := cleaner.ReleaseDangling(ctx, dryRun)
	if err != nil {
		return report.Released, err
	}
	if dryRun {
		return report.Dangling, nil
	}
	log.Printf("Released %d of %d dangling reservations across %d raffles", report.Released, report.Dangling, report.Raffles)
	return report.Released, nil
}
