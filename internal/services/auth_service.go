package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"github.com/ArowuTest/rifa-backend/pkg/jwt"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 6

// AuthService resolves buyer identities and issues access tokens.
type AuthService struct {
	users    repositories.UserRepository
	tokens   *jwt.TokenService
	clock    clock.Clock
	hashCost int
}

// NewAuthService creates a new AuthService
func NewAuthService(users repositories.UserRepository, tokens *jwt.TokenService, clk clock.Clock) *AuthService {
	return &AuthService{users: users, tokens: tokens, clock: clk, hashCost: bcrypt.DefaultCost}
}

// SetHashCost overrides the bcrypt cost, e.g. bcrypt.MinCost in tests.
func (s *AuthService) SetHashCost(cost int) {
	s.hashCost = cost
}

// ValidateBuyer checks the identity fields required to register a new buyer.
func ValidateBuyer(info models.BuyerInfo) error {
	if strings.TrimSpace(info.FullName) == "" {
		return models.NewValidationError("fullName", "full name is required")
	}
	if strings.TrimSpace(info.IDNumber) == "" {
		return models.NewValidationError("idNumber", "id number is required")
	}
	if strings.TrimSpace(info.PhoneNumber) == "" {
		return models.NewValidationError("phoneNumber", "phone number is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(info.Email)); err != nil {
		return models.NewValidationError("email", "a valid email is required")
	}
	if len(info.Password) < minPasswordLength {
		return models.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

// ResolveBuyer returns the authenticated actor's user, or registers a new
// buyer from info. created reports whether a user was registered.
func (s *AuthService) ResolveBuyer(ctx context.Context, actor models.Actor, info models.BuyerInfo) (user *models.User, created bool, err error) {
	if actor.Authenticated() {
		user, err = s.users.FindByID(ctx, actor.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("resolve buyer: %w", err)
		}
		return user, false, nil
	}
	user, err = s.register(ctx, info, models.RoleUser)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *AuthService) register(ctx context.Context, info models.BuyerInfo, role models.UserRole) (*models.User, error) {
	if err := ValidateBuyer(info); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(info.Email))
	idNumber := strings.TrimSpace(info.IDNumber)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, &models.DuplicateIdentityError{Field: "email"}
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if _, err := s.users.FindByIDNumber(ctx, idNumber); err == nil {
		return nil, &models.DuplicateIdentityError{Field: "idNumber"}
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("lookup user by id number: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(info.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := s.clock.Now()
	user := &models.User{
		ID:          primitive.NewObjectID(),
		FullName:    strings.TrimSpace(info.FullName),
		IDNumber:    idNumber,
		Email:       email,
		PhoneNumber: strings.TrimSpace(info.PhoneNumber),
		Password:    string(hash),
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IssueToken signs an access token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	return s.tokens.Generate(user.ID.Hex(), user.Email, string(user.Role))
}

// Login verifies email and password and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	slog.Info("user logged in", "userId", user.ID.Hex(), "role", user.Role)
	return token, user, nil
}

// RegisterAdmin creates the first administrator. It is refused once an admin
// exists or when the bootstrap token does not match.
func (s *AuthService) RegisterAdmin(ctx context.Context, info models.BuyerInfo, bootstrapToken, expected string) (*models.User, error) {
	if expected == "" || subtle.ConstantTimeCompare([]byte(bootstrapToken), []byte(expected)) != 1 {
		return nil, models.ErrForbidden
	}
	n, err := s.users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return nil, models.ErrForbidden
	}
	user, err := s.register(ctx, info, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	slog.Info("admin registered", "userId", user.ID.Hex())
	return user, nil
}
