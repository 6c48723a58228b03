package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ArowuTest/rifa-backend/internal/models"
)

func TestLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raffle := f.createRaffle(t, 10, 5)
	res := f.mustPurchase(t, raffle, buyer(1), "1")

	token, user, err := f.auth.Login(ctx, "  Buyer1@Example.com ", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != res.User.ID {
		t.Fatalf("expected buyer 1, got %s", user.ID.Hex())
	}
	claims, err := f.tokens.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != user.ID.Hex() || claims.Role != string(models.RoleUser) {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, _, err := f.auth.Login(ctx, "buyer1@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, _, err := f.auth.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	info := buyer(9)

	if _, err := f.auth.RegisterAdmin(ctx, info, "anything", ""); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden when bootstrap is disabled, got %v", err)
	}
	if _, err := f.auth.RegisterAdmin(ctx, info, "wrong", "bootstrap"); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong token, got %v", err)
	}

	admin, err := f.auth.RegisterAdmin(ctx, info, "bootstrap", "bootstrap")
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if admin.Role != models.RoleAdmin || admin.Password == info.Password {
		t.Fatalf("expected hashed admin user, got %+v", admin)
	}

	if _, err := f.auth.RegisterAdmin(ctx, buyer(10), "bootstrap", "bootstrap"); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected second admin to be refused, got %v", err)
	}
}

func TestValidateBuyer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*models.BuyerInfo)
		field  string
	}{
		{name: "name", mutate: func(b *models.BuyerInfo) { b.FullName = " " }, field: "fullName"},
		{name: "id", mutate: func(b *models.BuyerInfo) { b.IDNumber = "" }, field: "idNumber"},
		{name: "phone", mutate: func(b *models.BuyerInfo) { b.PhoneNumber = "" }, field: "phoneNumber"},
		{name: "email", mutate: func(b *models.BuyerInfo) { b.Email = "not-an-email" }, field: "email"},
		{name: "password", mutate: func(b *models.BuyerInfo) { b.Password = "123" }, field: "password"},
	}
	for _, tt := range tests {
		info := buyer(1)
		tt.mutate(&info)
		var verr *models.ValidationError
		if err := ValidateBuyer(info); !errors.As(err, &verr) || verr.Field != tt.field {
			t.Fatalf("%s: expected %s validation error, got %v", tt.name, tt.field, err)
		}
	}
	if err := ValidateBuyer(buyer(1)); err != nil {
		t.Fatalf("expected valid buyer, got %v", err)
	}
}
