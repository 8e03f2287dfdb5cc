package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Check and optimize the library database",
}

var integrityCmd = &cobra.Command{
	Use:   "check",
	Short: "Run an integrity sweep",
	Args:  cobra.NoArgs,
	RunE:  runIntegrity,
}

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the database and refresh statistics",
	Args:  cobra.NoArgs,
	RunE:  runVacuum,
}

func init() {
	maintenanceCmd.AddCommand(integrityCmd, vacuumCmd)
	rootCmd.AddCommand(maintenanceCmd)
}

func runIntegrity(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.CheckIntegrity()
	if err != nil {
		return fmt.Errorf("integrity sweep failed: %w", err)
	}
	if report.OK() {
		fmt.Println("Library is healthy")
		return nil
	}
	fmt.Printf("integrity_check:  %s\n", report.Check)
	fmt.Printf("orphaned photos:  %d\n", report.OrphanedPhotos)
	fmt.Printf("orphaned videos:  %d\n", report.OrphanedVideos)
	fmt.Printf("orphaned folders: %d\n", report.OrphanedFolders)
	return nil
}

func runVacuum(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.VacuumAnalyze(); err != nil {
		return err
	}
	if err := store.OptimizeIndexes(); err != nil {
		return err
	}
	fmt.Println("Database compacted and optimized")
	return nil
}
