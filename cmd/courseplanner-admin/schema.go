package main

import (
	"context"
	"fmt"

	"github.com/hwankr/courseplanner/internal/app/bootstrap"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ensureSchemaCmd = &cobra.Command{
	Use:   "ensure-schema",
	Short: "Apply collection validators and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			if err := bootstrap.EnsureSchemaFor(ctx, db, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		})
	},
}
