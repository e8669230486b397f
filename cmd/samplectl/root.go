package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/measurestats/internal/config"
	"github.com/JonMunkholm/measurestats/internal/core"
	"github.com/JonMunkholm/measurestats/internal/logging"
	"github.com/JonMunkholm/measurestats/internal/store"
)

// Exit codes.
const (
	exitSuccess        = 0
	exitUsageError     = 1
	exitValidation     = 2
	exitDBConnError    = 3
	exitImportError    = 4
	exitPartialSuccess = 5
)

// exitError carries a process exit code out of a command, so deferred
// cleanup in the command runs before main exits. A nil err means the
// problem has already been reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to the process exit status. Errors without
// an explicit code are usage errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsageError
}

var (
	flagDSN    string
	flagDriver string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "samplectl",
	Short: "Import measurement sample files and query their summaries",
	Long: "Imports ';'-delimited measurement files into the sample store, replacing any " +
		"previous data for the same file name, and queries the stored summaries.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDSN, "dsn", "", "Database URL or sqlite path (or set DATABASE_URL)")
	pf.StringVar(&flagDriver, "driver", "", "Store driver: postgres or sqlite (or set DB_DRIVER)")
}

// loadConfig reads .env and the environment; flags override both.
func loadConfig(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	if flagDSN != "" {
		os.Setenv("DATABASE_URL", flagDSN)
	}
	if flagDriver != "" {
		os.Setenv("DB_DRIVER", flagDriver)
	}

	c, err := config.Load()
	if err != nil {
		return withExitCode(exitUsageError, err)
	}
	cfg = c

	// Logs go to stderr so stdout stays machine readable.
	logCloser = logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Output:     os.Stderr,
	})
	return nil
}

// openStore connects to the configured backend and creates the schema when
// enabled. The caller must Close the returned backend.
func openStore(ctx context.Context) (store.Backend, error) {
	backend, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.EnsureSchema {
		if err := backend.EnsureSchema(ctx); err != nil {
			backend.Close()
			return nil, err
		}
	}
	return backend, nil
}

// openService is openStore plus a core.Service on top of it. Connection
// failures carry exitDBConnError.
func openService(ctx context.Context) (*core.Service, store.Backend, error) {
	backend, err := openStore(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("database connection failed", "driver", cfg.Database.Driver, "error", err)
		return nil, nil, withExitCode(exitDBConnError, nil)
	}
	return core.NewService(backend, cfg), backend, nil
}

// run executes the command tree and returns the exit status. The log file is
// closed after the command returns, whether or not it failed.
func run(ctx context.Context, stderr io.Writer) int {
	err := rootCmd.ExecuteContext(ctx)
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}

	var ee *exitError
	if err != nil && (!errors.As(err, &ee) || ee.err != nil) {
		fmt.Fprintln(stderr, err)
	}
	return exitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stderr)
	stop()
	os.Exit(code)
}
