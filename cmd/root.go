package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camden-git/photovault/config"
	"github.com/camden-git/photovault/database"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "photovault",
	Short: "A local photo and video library with face clustering",
	Long: `Photovault indexes folders of photos and videos into a SQLite library,
extracts capture dates from EXIF, groups detected faces into clusters
and answers date and folder queries over the whole collection.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the library database (defaults to PHOTOVAULT_DB)")
}

// openStore loads the config and opens the library database, honoring the
// --db override.
func openStore() (*database.Store, config.Config, error) {
	cfg := config.Load()
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	store, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to open library: %w", err)
	}
	return store, cfg, nil
}
