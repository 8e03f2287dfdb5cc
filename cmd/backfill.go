package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/camden-git/photovault/workers"
)

var backfillProject int64

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Work the metadata extraction backlog",
	Long: `Repairs rows missing derived date fields and retries metadata extraction
for photos still pending or awaiting retry. Photos that keep failing are
retired after the retry limit.`,
	Args: cobra.NoArgs,
	RunE: runBackfill,
}

var backfillStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the extraction backlog by status",
	Args:  cobra.NoArgs,
	RunE:  runBackfillStats,
}

var backfillAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent extraction failures and match events",
	Args:  cobra.NoArgs,
	RunE:  runBackfillAudit,
}

var backfillResetCmd = &cobra.Command{
	Use:   "reset <project-id> <photo-path>",
	Short: "Put a retired photo back in the extraction queue",
	Args:  cobra.ExactArgs(2),
	RunE:  runBackfillReset,
}

func init() {
	backfillCmd.PersistentFlags().Int64Var(&backfillProject, "project", 0, "Limit to one project (0 = all)")
	backfillCmd.AddCommand(backfillStatsCmd, backfillAuditCmd, backfillResetCmd)
	rootCmd.AddCommand(backfillCmd)
}

func backfillScope() *int64 {
	if backfillProject == 0 {
		return nil
	}
	return &backfillProject
}

func runBackfill(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	worker := &workers.BackfillWorker{
		Store:     store,
		BatchSize: cfg.BackfillBatchSize,
		Progress: func(processed int64, path string) {
			if processed%100 == 0 {
				fmt.Printf("processed %d rows\n", processed)
			}
		},
	}
	result, err := worker.Run(cmd.Context(), backfillScope())
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	fmt.Printf("Backfill done: %d extracted, %d failed, %d rows repaired\n",
		result.Succeeded, result.Failed, result.Repaired)
	return nil
}

func runBackfillStats(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.PhotoBackfillStats(backfillScope())
	if err != nil {
		return fmt.Errorf("failed to load backfill stats: %w", err)
	}
	fmt.Printf("pending:      %d\n", stats.Pending)
	fmt.Printf("ok:           %d\n", stats.OK)
	fmt.Printf("failed_retry: %d\n", stats.FailedRetry)
	fmt.Printf("failed:       %d\n", stats.Failed)
	fmt.Printf("with dates:   %d\n", stats.Backfilled)
	return nil
}

func runBackfillReset(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	projectID, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := store.ResetMetadataFailures(projectID, args[1]); err != nil {
		return fmt.Errorf("failed to reset %s: %w", args[1], err)
	}
	fmt.Printf("Reset %s to pending\n", args[1])
	return nil
}

func runBackfillAudit(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.ListMatchAudit(100)
	if err != nil {
		return fmt.Errorf("failed to load audit log: %w", err)
	}
	for _, e := range entries {
		mode := ""
		if e.MatchMode != nil {
			mode = *e.MatchMode
		}
		reason := ""
		if e.MatchedLabel != nil {
			reason = *e.MatchedLabel
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", e.Timestamp, mode, e.Filename, reason)
	}
	return nil
}
