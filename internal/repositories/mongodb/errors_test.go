package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTranslateError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "transient label", err: mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}, transient: true},
		{name: "unknown commit", err: mongo.CommandError{Code: 8000, Labels: []string{"UnknownTransactionCommitResult"}}, transient: true},
		{name: "write conflict", err: fmt.Errorf("update: %w", mongo.CommandError{Code: writeConflictCode}), transient: true},
		{name: "deadline", err: context.DeadlineExceeded, transient: true},
		{name: "duplicate key", err: mongo.CommandError{Code: 11000}},
		{name: "domain", err: models.ErrTicketsUnavailable},
	}
	for _, tt := range tests {
		got := translateError("op", tt.err)
		if errors.Is(got, models.ErrTransientStorage) != tt.transient {
			t.Fatalf("%s: transient=%v, got %v", tt.name, tt.transient, got)
		}
	}

	wrapped := translateError("outer", translateError("inner", context.DeadlineExceeded))
	var te *models.TransientStorageError
	if !errors.As(wrapped, &te) || te.Op != "inner" {
		t.Fatalf("expected inner operation kept, got %v", wrapped)
	}
	if !errors.Is(notFound(mongo.ErrNoDocuments, "raffle", "x"), models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound")
	}
}
