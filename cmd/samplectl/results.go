package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/measurestats/internal/core"
)

var resultsFlags struct {
	fileName       string
	firstStartFrom string
	firstStartTo   string
	avgValueFrom   float64
	avgValueTo     float64
	avgExecFrom    float64
	avgExecTo      float64
	page           int
	pageSize       int
	format         string
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored summaries, newest first start first",
	Long: "Prints one page of summaries as JSON. With --format csv or --format parquet " +
		"every matching summary is written in that format and paging flags are ignored.",
	Args: cobra.NoArgs,
	RunE: runResults,
}

func init() {
	f := resultsCmd.Flags()
	f.StringVar(&resultsFlags.fileName, "file-name", "", "Exact file name")
	f.StringVar(&resultsFlags.firstStartFrom, "first-start-from", "", "Earliest first start (inclusive)")
	f.StringVar(&resultsFlags.firstStartTo, "first-start-to", "", "Latest first start (inclusive)")
	f.Float64Var(&resultsFlags.avgValueFrom, "avg-value-from", 0, "Minimum average value")
	f.Float64Var(&resultsFlags.avgValueTo, "avg-value-to", 0, "Maximum average value")
	f.Float64Var(&resultsFlags.avgExecFrom, "avg-execution-time-from", 0, "Minimum average execution time")
	f.Float64Var(&resultsFlags.avgExecTo, "avg-execution-time-to", 0, "Maximum average execution time")
	f.IntVar(&resultsFlags.page, "page", 1, "Page number")
	f.IntVar(&resultsFlags.pageSize, "page-size", core.DefaultPageSize, "Page size")
	f.StringVar(&resultsFlags.format, "format", "json", "Output format: json, csv or parquet")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	filter, err := buildFilter(cmd)
	if err != nil {
		return withExitCode(exitUsageError, err)
	}

	asJSON := strings.EqualFold(resultsFlags.format, "json")
	var format core.ExportFormat
	if !asJSON {
		if format, err = core.ParseExportFormat(resultsFlags.format); err != nil {
			return withExitCode(exitUsageError, err)
		}
	}

	ctx := cmd.Context()
	service, backend, err := openService(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	if !asJSON {
		items, err := service.Export(ctx, filter)
		if err != nil {
			return err
		}
		return core.WriteSummaries(cmd.OutOrStdout(), format, items)
	}

	page, err := service.Results(ctx, filter)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}

// buildFilter turns the flags into a SummaryFilter. Only flags that were set
// become criteria.
func buildFilter(cmd *cobra.Command) (core.SummaryFilter, error) {
	f := core.SummaryFilter{
		FileName: resultsFlags.fileName,
		Page:     resultsFlags.page,
		PageSize: resultsFlags.pageSize,
	}

	var err error
	if f.FirstStartFrom, err = dateFlag("first-start-from", resultsFlags.firstStartFrom); err != nil {
		return f, err
	}
	if f.FirstStartTo, err = dateFlag("first-start-to", resultsFlags.firstStartTo); err != nil {
		return f, err
	}

	flags := cmd.Flags()
	if flags.Changed("avg-value-from") {
		f.AvgValueFrom = &resultsFlags.avgValueFrom
	}
	if flags.Changed("avg-value-to") {
		f.AvgValueTo = &resultsFlags.avgValueTo
	}
	if flags.Changed("avg-execution-time-from") {
		f.AvgExecutionTimeFrom = &resultsFlags.avgExecFrom
	}
	if flags.Changed("avg-execution-time-to") {
		f.AvgExecutionTimeTo = &resultsFlags.avgExecTo
	}
	return f, nil
}

func dateFlag(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := dateparse.ParseIn(v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	t = t.UTC()
	return &t, nil
}
