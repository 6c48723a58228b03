package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure UserRepository implements the interface
var _ repositories.UserRepository = (*UserRepository)(nil)

// UserRepository handles MongoDB operations for User
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// Create inserts a new user. Email and id number are unique indexes.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt
	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		field := "email"
		if strings.Contains(err.Error(), "idNumber") {
			field = "idNumber"
		}
		return &models.DuplicateIdentityError{Field: field}
	}
	return translateError("create user", err)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, what string) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, notFound(err, "user", what)
	}
	return &user, nil
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id.Hex())
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)}, email)
}

// FindByIDNumber finds a user by national id number
func (r *UserRepository) FindByIDNumber(ctx context.Context, idNumber string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"idNumber": idNumber}, idNumber)
}

// CountByRole counts users with role
func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"role": role})
	return n, translateError("count users", err)
}
