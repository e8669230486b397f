package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var recentFlags struct {
	fileName string
	count    int
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the newest samples of a file",
	Args:  cobra.NoArgs,
	RunE:  runRecent,
}

func init() {
	f := recentCmd.Flags()
	f.StringVar(&recentFlags.fileName, "file", "", "File name (required)")
	f.IntVar(&recentFlags.count, "count", 0, "Number of samples (default QUERY_RECENT_COUNT)")
	_ = recentCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(recentCmd)
}

func runRecent(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, backend, err := openService(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	items, err := service.RecentSamples(ctx, recentFlags.fileName, recentFlags.count)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tEXECUTION TIME (s)\tVALUE")
	for _, s := range items {
		fmt.Fprintf(tw, "%s\t%g\t%g\n", s.Date.Format(time.RFC3339Nano), s.ExecutionTimeSeconds, s.Value)
	}
	return tw.Flush()
}
