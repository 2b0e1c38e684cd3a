package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"renthub/internal/config"
	"renthub/internal/db"
)

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes",
		Long:  "Create the indexes the services rely on, including the unique pending-application index. Safe to run repeatedly.",
		Args:  cobra.NoArgs,
		RunE:  runIndexes,
	}
}

func runIndexes(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load("indexes")
	if err != nil {
		return err
	}
	client, database, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		return err
	}
	defer db.DisconnectDB(client)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	if err := db.EnsureIndexes(ctx, database); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexes ensured on %s\n", cfg.MongoDbName)
	return nil
}
