package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var projectMode string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name> <folder>",
	Short: "Create a project rooted at a folder",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectCreate,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project and all of its rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectMode, "mode", "library", "Project mode")
	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.CreateProject(args[0], args[1], projectMode)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	fmt.Printf("Created project %d (%s)\n", id, args[0])
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	projects, err := store.ListProjects()
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	for _, p := range projects {
		counts, err := store.ProjectMediaCounts(p.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\t%s\t%d photos, %d videos\n", p.ID, p.Name, p.Folder, counts.Photos, counts.Videos)
	}
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := store.DeleteProject(id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	fmt.Printf("Deleted project %d\n", id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}
