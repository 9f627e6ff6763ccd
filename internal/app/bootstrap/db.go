// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/hwankr/courseplanner/internal/app/system/indexes"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the Mongo client and verifies it with a ping.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("courseplanner").
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates collections with their JSON-schema validators, then
// the indexes. Both steps are idempotent.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	return EnsureSchemaFor(ctx, deps.MongoDatabase, logger)
}

// EnsureSchemaFor runs schema setup against db; the admin CLI calls it
// outside the app lifecycle.
func EnsureSchemaFor(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("collection validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}
	logger.Info("schema ensured", zap.String("database", db.Name()))
	return nil
}

