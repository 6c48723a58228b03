package mysql

import (
	"context"
	"strings"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

var _ repositories.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt
	err := conn(ctx, r.db).Create(newUserRecord(user)).Error
	if isDuplicate(err) {
		field := "email"
		if strings.Contains(err.Error(), "id_number") {
			field = "idNumber"
		}
		return &models.DuplicateIdentityError{Field: field}
	}
	return translateError("create user", err)
}

func (r *UserRepository) first(ctx context.Context, what, query string, arg interface{}) (*models.User, error) {
	var rec userRecord
	if err := conn(ctx, r.db).Where(query, arg).First(&rec).Error; err != nil {
		return nil, notFound(err, "user", what)
	}
	return rec.model(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.first(ctx, id.Hex(), "id = ?", id.Hex())
}

// FindByEmail relies on the case-insensitive collation of the column.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, email, "email = ?", email)
}

func (r *UserRepository) FindByIDNumber(ctx context.Context, idNumber string) (*models.User, error) {
	return r.first(ctx, idNumber, "id_number = ?", idNumber)
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&userRecord{}).Where("role = ?", string(role)).Count(&n).Error
	return n, translateError("count users", err)
}
