package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hwankr/courseplanner/internal/app/system/catalogseed"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert departments, courses and requirement tables from a YAML catalog",
	Long: `seed reads a catalog file and upserts its departments (by code), official
courses (by code) and department requirement tables (by department and
catalog year). The file is validated in full before anything is written.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "catalog YAML file")
	_ = seedCmd.MarkFlagRequired("file")
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(seedFile)
	if err != nil {
		return err
	}
	defer f.Close()

	cat, err := catalogseed.Parse(f)
	if err != nil {
		return err
	}

	return withDatabase(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
		res, err := catalogseed.Apply(ctx, db, cat, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d departments, %d courses, %d requirement tables\n",
			res.Departments, res.Courses, res.Requirements)
		return nil
	})
}
