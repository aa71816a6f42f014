// Command qbank is the operator CLI for the questionnaire question bank.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/export"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/questionnaire"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/repository"
)

var (
	flagInmem   bool
	flagSQLite  string
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "qbank",
	Short:         "Manage the questionnaire question bank",
	Long:          `Upload questionnaire documents, inspect extracted questions, and export completion reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagInmem, "inmem", false, "use an in-memory store (nothing is persisted)")
	rootCmd.PersistentFlags().StringVar(&flagSQLite, "sqlite", "", "use a SQLite database file instead of DB_URL")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", os.Getenv("CONFIG_FILE"), "TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log at debug level")
}

// app holds the wiring shared by subcommands.
type app struct {
	cfg     *common.Config
	logger  *slog.Logger
	store   repository.Store
	svc     *questionnaire.Service
	exports *export.Service
}

func loadConfig() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfigFile(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.SlogLevel()
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var store repository.Store
	switch {
	case flagInmem:
		store = repository.NewMemoryStore()
	case flagSQLite != "":
		store, err = repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: flagSQLite}, logger)
	default:
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		store, err = repository.Open(ctx, repository.Config{
			Driver:           cfg.Database.Driver,
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	svc := questionnaire.NewService(questionnaire.NewPipelineFromConfig(cfg, logger), store, cfg.Countries, logger)
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		svc:     svc,
		exports: export.NewService(svc, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(ctx, cmd, a, args)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", common.UserMessage(err))
		os.Exit(1)
	}
}
