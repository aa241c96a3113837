// internal/app/system/txn/txn.go

// Package txn runs multi-document write sequences inside a MongoDB
// transaction when the server supports them, and falls back to running
// the writes directly on standalone servers. Callers must keep the
// write sequence safe to apply non-transactionally (conditional updates,
// idempotent inserts).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions (standalone mongod, old DocumentDB).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, replica-set-only, API mismatch
			return true
		}
	}

	s := strings.ToLower(err.Error())
	hasTxn := strings.Contains(s, "transaction")
	switch {
	case hasTxn && strings.Contains(s, "replica set"):
		return true
	case hasTxn && strings.Contains(s, "session"):
		return true
	case hasTxn && strings.Contains(s, "illegal operation"):
		return true
	case strings.Contains(s, "session") && strings.Contains(s, "not supported"):
		return true
	}
	return false
}

// Run executes fn inside a transaction. When the server rejects
// transactions, fn runs once more outside one; the fallback relies on
// fn's writes being individually safe.
func Run(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fn(ctx)
	}
	return err
}
