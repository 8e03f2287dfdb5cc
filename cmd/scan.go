package cmd

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/camden-git/photovault/workers"
)

var scanCmd = &cobra.Command{
	Use:   "scan <project-id>",
	Short: "Index a project's folder tree into the library",
	Long: `Walks the project's root folder, records every directory and media file,
extracts photo metadata and removes rows for files that disappeared.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	project, err := store.GetProject(id)
	if err != nil {
		return fmt.Errorf("failed to load project %d: %w", id, err)
	}

	var bar *progressbar.ProgressBar
	scanner := &workers.Scanner{
		Store:     store,
		ProjectID: project.ID,
		Root:      project.Folder,
		Progress: func(current, total int, path string) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Indexing media"),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("files"),
					progressbar.OptionShowElapsedTimeOnFinish(),
				)
			}
			bar.Add(1)
		},
	}

	result, err := scanner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	fmt.Printf("\nScanned %d folders: %d photos, %d videos indexed, %d removed, %d skipped\n",
		result.Folders, result.Photos, result.Videos, result.Removed, result.Skipped)
	return nil
}
