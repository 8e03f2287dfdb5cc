package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagProject int64

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage photo tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags with usage counts",
	Args:  cobra.NoArgs,
	RunE:  runTagsList,
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <project-id> <photo-path> <tag>",
	Short: "Tag a photo",
	Args:  cobra.ExactArgs(3),
	RunE:  runTagsAdd,
}

var tagsShowCmd = &cobra.Command{
	Use:   "show <tag-id>",
	Short: "List photos carrying a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsShow,
}

var tagsRenameCmd = &cobra.Command{
	Use:   "rename <tag-id> <new-name>",
	Short: "Rename a tag, merging into an existing tag of the same name",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagsRename,
}

func init() {
	tagsShowCmd.Flags().Int64Var(&tagProject, "project", 0, "Project to search in")
	tagsCmd.AddCommand(tagsListCmd, tagsAddCmd, tagsShowCmd, tagsRenameCmd)
	rootCmd.AddCommand(tagsCmd)
}

func runTagsList(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	tags, counts, err := store.ListTags()
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}
	for _, t := range tags {
		fmt.Printf("%d\t%s\t%d photos\n", t.ID, t.Name, counts[t.ID])
	}
	return nil
}

func runTagsAdd(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	projectID, err := parseID(args[0])
	if err != nil {
		return err
	}
	photo, err := store.GetPhotoByPath(projectID, args[1])
	if err != nil {
		return fmt.Errorf("photo not found: %w", err)
	}
	tagID, err := store.EnsureTag(args[2])
	if err != nil {
		return err
	}
	if err := store.TagPhoto(photo.ID, tagID); err != nil {
		return err
	}
	fmt.Printf("Tagged %s with %s\n", args[1], args[2])
	return nil
}

func runTagsRename(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	tagID, err := parseID(args[0])
	if err != nil {
		return err
	}
	survivor, err := store.RenameTag(tagID, args[1])
	if err != nil {
		return fmt.Errorf("failed to rename tag: %w", err)
	}
	if survivor != tagID {
		fmt.Printf("Merged into existing tag %s (id %d)\n", args[1], survivor)
	} else {
		fmt.Printf("Renamed tag %d to %s\n", tagID, args[1])
	}
	return nil
}

func runTagsShow(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	tagID, err := parseID(args[0])
	if err != nil {
		return err
	}
	photos, err := store.PhotosWithTag(tagProject, tagID)
	if err != nil {
		return fmt.Errorf("failed to list tagged photos: %w", err)
	}
	for _, p := range photos {
		fmt.Println(p.Path)
	}
	return nil
}
