// Command courseplanner-admin is the operator CLI: it seeds the reference
// catalog, manages admin accounts and applies the database schema without
// starting the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

var (
	mongoURI      string
	mongoDatabase string
	opTimeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "courseplanner-admin",
	Short: "Operator tasks for the course planner database",
	Long: `courseplanner-admin works directly against the course planner database.

Connection settings default to COURSEPLANNER_MONGO_URI and
COURSEPLANNER_MONGO_DATABASE, the same variables the server reads.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("COURSEPLANNER_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&mongoDatabase, "db", envOr("COURSEPLANNER_MONGO_DATABASE", "courseplanner"), "database name")
	rootCmd.PersistentFlags().DurationVar(&opTimeout, "timeout", 2*time.Minute, "overall time limit for the command")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(ensureSchemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// withDatabase connects, runs fn against the configured database and
// disconnects.
func withDatabase(cmd *cobra.Command, fn func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error) error {
	if err := wafflemongo.ValidateURI(mongoURI); err != nil {
		return fmt.Errorf("invalid --mongo-uri: %w", err)
	}
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, connectTimeout)
	defer connectCancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), connectTimeout)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}()
	if err := client.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	return fn(ctx, client.Database(mongoDatabase), logger)
}
