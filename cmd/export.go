package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/camden-git/photovault/database"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export branches and review export history",
}

var exportBranchCmd = &cobra.Command{
	Use:   "branch <project-id> <branch> <dest-folder>",
	Short: "Copy a branch's images into a folder",
	Args:  cobra.ExactArgs(3),
	RunE:  runExportBranch,
}

var exportHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent exports",
	Args:  cobra.NoArgs,
	RunE:  runExportHistory,
}

func init() {
	exportCmd.AddCommand(exportBranchCmd, exportHistoryCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportBranch(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	projectID, err := parseID(args[0])
	if err != nil {
		return err
	}
	branchKey, destFolder := args[1], args[2]

	paths, err := store.ListBranchImages(projectID, branchKey)
	if err != nil {
		return fmt.Errorf("failed to list branch images: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("branch %s has no images", branchKey)
	}
	database.SortPaths(paths)

	if err := os.MkdirAll(destFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create destination folder: %w", err)
	}

	bar := progressbar.Default(int64(len(paths)), "Exporting images")
	var sources, dests []string
	for _, src := range paths {
		dst := filepath.Join(destFolder, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to export %s: %w", src, err)
		}
		sources = append(sources, src)
		dests = append(dests, dst)
		bar.Add(1)
	}

	if _, err := store.RecordExport(&projectID, &branchKey, destFolder, sources, dests); err != nil {
		return err
	}
	fmt.Printf("\nExported %d images to %s\n", len(dests), destFolder)
	return nil
}

func runExportHistory(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListExports(50)
	if err != nil {
		return fmt.Errorf("failed to load export history: %w", err)
	}
	for _, r := range records {
		branch := "-"
		if r.BranchKey != nil {
			branch = *r.BranchKey
		}
		fmt.Printf("%d\t%s\t%s\t%d photos\t%s\n", r.ID, r.Timestamp, branch, r.PhotoCount, r.DestFolder)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
