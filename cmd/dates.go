package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var datesProject int64

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "Query the library by capture date",
}

var datesCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show the year/month/day capture-date hierarchy",
	Args:  cobra.NoArgs,
	RunE:  runDatesCounts,
}

var datesQuickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Show counts for the quick date windows",
	Args:  cobra.NoArgs,
	RunE:  runDatesQuick,
}

var datesBranchesCmd = &cobra.Command{
	Use:   "branches <project-id>",
	Short: "Build by_date branches for a project's months",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatesBranches,
}

var datesShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "List photos for a window key or a YYYY[-MM[-DD]] date",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatesShow,
}

func init() {
	datesCmd.PersistentFlags().Int64Var(&datesProject, "project", 0, "Limit to one project (0 = all)")
	datesCmd.AddCommand(datesCountsCmd, datesQuickCmd, datesBranchesCmd, datesShowCmd)
	rootCmd.AddCommand(datesCmd)
}

func datesScope() *int64 {
	if datesProject == 0 {
		return nil
	}
	return &datesProject
}

func runDatesCounts(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	years, err := store.CountByDate(datesScope())
	if err != nil {
		return fmt.Errorf("failed to compute date counts: %w", err)
	}
	for _, y := range years {
		fmt.Printf("%d\t%d\n", y.Year, y.Count)
		for _, m := range y.Months {
			fmt.Printf("  %s\t%d\n", m.Month, m.Count)
		}
	}
	return nil
}

func runDatesQuick(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.CountQuickDates(datesScope())
	if err != nil {
		return fmt.Errorf("failed to compute quick date counts: %w", err)
	}
	fmt.Printf("today:            %d\n", counts.Today)
	fmt.Printf("this week:        %d\n", counts.ThisWeek)
	fmt.Printf("this month:       %d\n", counts.ThisMonth)
	fmt.Printf("last 30 days:     %d\n", counts.Last30Days)
	fmt.Printf("this year:        %d\n", counts.ThisYear)
	fmt.Printf("recently indexed: %d\n", counts.RecentlyIndexed)
	return nil
}

func runDatesShow(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	photos, err := store.PhotosForQuickKey(datesScope(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list photos: %w", err)
	}
	for _, p := range photos {
		date := "unknown"
		if p.CreatedDate != nil {
			date = *p.CreatedDate
		}
		fmt.Printf("%s\t%s\n", date, p.Path)
	}
	return nil
}

func runDatesBranches(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	added, err := store.BuildDateBranches(id)
	if err != nil {
		return fmt.Errorf("failed to build date branches: %w", err)
	}
	fmt.Printf("Assigned %d photos to date branches\n", added)
	return nil
}
