package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/camden-git/photovault/models"
)

var foldersCmd = &cobra.Command{
	Use:   "folders <project-id>",
	Short: "Show a project's folder tree with recursive media counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolders,
}

func init() {
	rootCmd.AddCommand(foldersCmd)
}

func runFolders(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	folders, err := store.ListFolders(id)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	ids := make([]int64, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}
	counts, err := store.FolderMediaCountsBatch(ids)
	if err != nil {
		return fmt.Errorf("failed to compute folder counts: %w", err)
	}

	children := map[int64][]models.PhotoFolder{}
	var roots []models.PhotoFolder
	for _, f := range folders {
		if f.ParentID == nil {
			roots = append(roots, f)
		} else {
			children[*f.ParentID] = append(children[*f.ParentID], f)
		}
	}

	var walk func(f models.PhotoFolder, depth int)
	walk = func(f models.PhotoFolder, depth int) {
		c := counts[f.ID]
		for i := 0; i < depth; i++ {
			fmt.Print("  ")
		}
		fmt.Printf("%s\t%d photos, %d videos\n", f.Name, c.Photos, c.Videos)
		for _, child := range children[f.ID] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
	return nil
}
