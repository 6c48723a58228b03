package mongodb

import (
	"errors"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

const writeConflictCode = 112

// translateError maps driver failures that can be retried from scratch to
// models.TransientStorageError. Domain errors pass through untouched.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *models.TransientStorageError
	if errors.As(err, &te) {
		return err
	}
	if isTransient(err) {
		return &models.TransientStorageError{Op: op, Err: err}
	}
	return err
}

func isTransient(err error) bool {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError") ||
			se.HasErrorLabel("UnknownTransactionCommitResult") ||
			se.HasErrorCode(writeConflictCode)
	}
	return false
}

// notFound turns mongo.ErrNoDocuments into models.ErrNotFound.
func notFound(err error, entity, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NotFoundf(entity, id)
	}
	return translateError("find "+entity, err)
}
