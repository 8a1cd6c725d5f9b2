package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	_ "github.com/ekaya-inc/plantsync/pkg/adapters/storage/mssql"    // Register SQL Server adapter
	_ "github.com/ekaya-inc/plantsync/pkg/adapters/storage/postgres" // Register PostgreSQL adapter
	"github.com/ekaya-inc/plantsync/pkg/config"
	"github.com/ekaya-inc/plantsync/pkg/extract"
	"github.com/ekaya-inc/plantsync/pkg/logging"
	"github.com/ekaya-inc/plantsync/pkg/metrics"
	"github.com/ekaya-inc/plantsync/pkg/models"
	"github.com/ekaya-inc/plantsync/pkg/repositories"
	"github.com/ekaya-inc/plantsync/pkg/retry"
	"github.com/ekaya-inc/plantsync/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

// errRunFailed signals a completed invocation whose run status is failure.
// The report has already been printed.
var errRunFailed = errors.New("run failed")

func main() {
	cmd := newRootCommand(os.Stdin, os.Stdout)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand(stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plantsync",
		Short:         "Reconcile plant sensor telemetry into the plants database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

type runOptions struct {
	configPath string
	input      string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile one batch of telemetry records",
		Long: `Read a JSON or YAML array of telemetry records, reconcile it against the
catalog database, and write every resulting change in one transaction.

A JSON run report is printed to stdout. The exit code is 0 for success and
no_data, and 1 for failure.

Example:
  plantsync run --input records.json
  curl -s $API | plantsync run --config /etc/plantsync/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to config file (empty reads the environment only)")
	cmd.Flags().StringVarP(&opts.input, "input", "i", extract.Stdin, `records file, or "-" for stdin`)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and the available storage drivers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, Version)
			for _, adapter := range storage.RegisteredAdapters() {
				fmt.Fprintf(out, "  %s\t%s\n", adapter.Type, adapter.DisplayName)
			}
		},
	}
}

func run(ctx context.Context, opts *runOptions, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Every failure before the reconciliation itself still reports a run.
	started := time.Now().UTC()
	fail := func(err error) error {
		if werr := writeReport(stdout, failureReport(started, err)); werr != nil {
			return errors.Join(err, werr)
		}
		return err
	}

	cfg, err := config.LoadFrom(opts.configPath, Version)
	if err != nil {
		return fail(fmt.Errorf("load config: %w", err))
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting plantsync run",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("driver", cfg.Storage.Driver),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Storage.User, cfg.Storage.Host, cfg.Storage.Port, cfg.Storage.Database)),
		zap.String("schema", cfg.Storage.Schema))

	records, err := extract.NewFileSource(opts.input, stdin, logger).Records(ctx)
	if err != nil {
		return fail(err)
	}

	// A database that is still starting or briefly unreachable is retried
	// with the same backoff as the run itself.
	store, err := retry.DoWithResult(ctx, cfg.Retry.Policy(), func() (storage.Store, error) {
		return storage.Open(ctx, &cfg.Storage, logger)
	})
	if err != nil {
		logger.Error("Failed to open storage", zap.String("error", logging.SanitizeError(err)))
		return fail(fmt.Errorf("open storage: %s", logging.SanitizeError(err)))
	}
	defer store.Close()

	var recorder *metrics.Recorder
	if cfg.Metrics.PushgatewayURL != "" {
		recorder = metrics.NewRecorder()
	}

	svc := services.NewReconciliationService(
		store,
		repositories.NewCatalogRepository(logger),
		repositories.NewBatchWriter(logger),
		recorder,
		services.ReconciliationConfig{
			Lock:  storage.Lock{Key: cfg.Run.LockKey, Timeout: cfg.Run.LockTimeout},
			Retry: cfg.Retry.Policy(),
		},
		logger,
	)

	report, runErr := svc.Run(ctx, records)

	if recorder != nil {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := recorder.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.Warn("Failed to push metrics", zap.Error(err))
		}
		cancel()
	}

	if err := writeReport(stdout, report); err != nil {
		return err
	}
	if runErr != nil || report.Status == models.RunStatusFailure {
		return errRunFailed
	}
	return nil
}

// failureReport describes a run that failed before any record was reconciled.
func failureReport(started time.Time, err error) *models.RunReport {
	return &models.RunReport{
		RunID:    uuid.New(),
		Status:   models.RunStatusFailure,
		Started:  started,
		Duration: time.Since(started),
		Error:    logging.SanitizeError(err),
	}
}

func writeReport(w io.Writer, report *models.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
