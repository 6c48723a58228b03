package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var _ repositories.Transactor = (*TxManager)(nil)

// TxManager runs multi-document transactions. The session context handed to
// fn is a context.Context, so repositories join the transaction simply by
// using it.
type TxManager struct {
	client  *mongo.Client
	timeout time.Duration
}

// NewTxManager creates a new TxManager. timeout bounds one transaction
// including driver retries; zero means no extra bound.
func NewTxManager(client *mongo.Client, timeout time.Duration) *TxManager {
	return &TxManager{client: client, timeout: timeout}
}

// WithTx runs fn in a transaction. Transient conflicts are retried by the
// driver; whatever still fails surfaces as models.TransientStorageError.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	session, err := m.client.StartSession()
	if err != nil {
		return translateError("start session", err)
	}
	defer session.EndSession(context.Background())

	opts := options.Transaction().
		SetWriteConcern(writeconcern.New(writeconcern.WMajority())).
		SetReadConcern(readconcern.Snapshot())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	return translateError("transaction", err)
}
