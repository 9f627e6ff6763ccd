// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports it, and falls back to plain sequential writes on a
// standalone server.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// IsNotSupported reports whether err means the server cannot run
// transactions (standalone mongod, or an operation illegal inside one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // returned by standalone servers and unsupported ops
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "transaction") {
		return false
	}
	for _, kw := range []string{"replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// Run executes fn inside a transaction. If the deployment does not support
// transactions, fn runs again without one. fn must be safe to retry.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, label string, fn func(ctx context.Context) error) error {
	if client == nil {
		return fn(ctx)
	}
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Debug("transactions unavailable, running without", zap.String("op", label))
		}
		return fn(ctx)
	}
	return err
}
