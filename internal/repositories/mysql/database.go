// Package mysql implements the repositories on MySQL through gorm. Ticket
// status changes are conditional UPDATEs checked through RowsAffected, and
// InnoDB row locks serialize concurrent writers of the same number.
package mysql

import (
	"fmt"
	"time"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options configures the connection pool.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewDB opens the pool. The DSN must set parseTime=true.
func NewDB(opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(opts.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate creates or updates the tables of every record.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&raffleRecord{},
		&ticketRecord{},
		&paymentRecord{},
		&userRecord{},
		&notificationRecord{},
	)
}
