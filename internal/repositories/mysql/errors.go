package mysql

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/ArowuTest/rifa-backend/internal/models"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// translateError maps deadlocks, lock timeouts and dropped connections to
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
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysqldriver.ErrInvalidConn) {
		return true
	}
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) {
		return me.Number == errDeadlock || me.Number == errLockWaitTimeout
	}
	return false
}

func isDuplicate(err error) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// notFound turns gorm.ErrRecordNotFound into models.ErrNotFound.
func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NotFoundf(entity, id)
	}
	return translateError("find "+entity, err)
}
