// Command marketctl runs operator tasks against the marketplace backing stores.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"marketapi/internal/config"
	"marketapi/internal/database"
	"marketapi/internal/database/migration"
	"marketapi/internal/logger"
	"marketapi/internal/metrics"
	"marketapi/internal/reindex"
	"marketapi/internal/repository/postgres"
	"marketapi/internal/search"
	"marketapi/internal/storage"
)

var (
	logLevelFlag string
	rootCmd      = &cobra.Command{
		Use:           "marketctl",
		Short:         "Operator CLI for the market API stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&logLevelFlag, "log-level", "l", "", "Log level (defaults to LOG_LEVEL)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return migration.EnsureMigrated(cmd.Context(), db, log, cfg.Database.Host)
		},
	})

	var batchSize int
	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database and print the run report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if batchSize > 0 {
				cfg.Reindex.BatchSize = batchSize
			}
			return runReindex(cmd.Context(), cfg, log, cmd.OutOrStdout())
		},
	}
	reindexCmd.Flags().IntVarP(&batchSize, "batch", "b", 0, "Documents per import batch (defaults to REINDEX_BATCH_SIZE)")
	rootCmd.AddCommand(reindexCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.AppConfig, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return cfg, logger.NewWithWriter(os.Stderr, "marketctl", level), nil
}

func runReindex(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger, out io.Writer) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	index := search.NewClient(cfg.Search.URL, cfg.Search.APIKey, cfg.Search.ImportTimeout)

	opts := reindex.Options{BatchSize: cfg.Reindex.BatchSize, StaleAfter: cfg.Reindex.StaleAfter}
	if cfg.ArchiveEnabled() {
		archive, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return err
		}
		opts.Archive = archive
	}

	c := reindex.New(postgres.NewStore(db), postgres.NewSyncJobPostgres(db), index, opts, m, log)
	rep, err := c.RunSync(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, rep)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
