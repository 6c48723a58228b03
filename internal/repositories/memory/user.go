package memory

import (
	"context"
	"strings"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.UserRepository = (*UserRepository)(nil)

// UserRepository is the in-memory user collection with unique email and id number.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.s.run(ctx, func(t *txn) error {
		for _, u := range t.store.users {
			if strings.EqualFold(u.Email, user.Email) {
				return &models.DuplicateIdentityError{Field: "email"}
			}
			if user.IDNumber != "" && u.IDNumber == user.IDNumber {
				return &models.DuplicateIdentityError{Field: "idNumber"}
			}
		}
		if user.ID.IsZero() {
			user.ID = primitive.NewObjectID()
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now()
		}
		user.UpdatedAt = user.CreatedAt
		t.putUser(*user)
		return nil
	})
}

func (r *UserRepository) find(ctx context.Context, what string, match func(models.User) bool) (*models.User, error) {
	var out *models.User
	err := r.s.run(ctx, func(t *txn) error {
		for _, u := range t.store.users {
			if match(u) {
				cp := u
				out = &cp
				return nil
			}
		}
		return models.NotFoundf("user", what)
	})
	return out, err
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.find(ctx, id.Hex(), func(u models.User) bool { return u.ID == id })
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, email, func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) FindByIDNumber(ctx context.Context, idNumber string) (*models.User, error) {
	return r.find(ctx, idNumber, func(u models.User) bool { return u.IDNumber == idNumber })
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(t *txn) error {
		for _, u := range t.store.users {
			if u.Role == role {
				n++
			}
		}
		return nil
	})
	return n, err
}
