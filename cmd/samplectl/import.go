package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/measurestats/internal/core"
	"github.com/JonMunkholm/measurestats/internal/logging"
)

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import sample files, replacing earlier imports of the same name",
	Long: "Each file is imported under its base name. Files are imported concurrently, " +
		"bounded by UPLOAD_MAX_CONCURRENT. A failing file does not stop the others.",
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

type importOutcome struct {
	path   string
	result core.ImportResult
	err    error
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, backend, err := openService(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	outcomes := make([]importOutcome, len(args))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(cfg.Upload.MaxConcurrent)

	for i, path := range args {
		g.Go(func() error {
			res, err := importFile(cmd, service, path)
			mu.Lock()
			outcomes[i] = importOutcome{path: path, result: res, err: err}
			mu.Unlock()
			// Failures are reported per file below.
			return nil
		})
	}
	_ = g.Wait()

	var failed, invalid int
	for _, o := range outcomes {
		if o.err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples imported (median %g, avg %g) in %dms\n",
				o.result.FileName, o.result.ImportedCount, o.result.MedianValue, o.result.AvgValue, o.result.DurationMs)
			continue
		}

		failed++
		if msgs, ok := core.AsValidation(o.err); ok {
			invalid++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: rejected\n", o.path)
			for _, m := range msgs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", m)
			}
			continue
		}
		logging.FromContext(ctx).Error("import failed", "path", o.path, "error", o.err,
			"code", core.MapError(o.err).Code)
	}

	switch {
	case failed == 0:
		return nil
	case failed < len(args):
		return withExitCode(exitPartialSuccess, nil)
	case invalid == failed:
		return withExitCode(exitValidation, nil)
	default:
		return withExitCode(exitImportError, nil)
	}
}

func importFile(cmd *cobra.Command, service *core.Service, path string) (core.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.ImportResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return service.Import(cmd.Context(), filepath.Base(path), f)
}
