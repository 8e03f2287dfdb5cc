package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	suggestMaxDistance float64
	suggestMinMembers  int64
	suggestMaxPairs    int
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Inspect and curate face clusters",
}

var facesClustersCmd = &cobra.Command{
	Use:   "clusters <project-id>",
	Short: "List face clusters, largest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacesClusters,
}

var facesMergeCmd = &cobra.Command{
	Use:   "merge <project-id> <target-branch> <source-branch>...",
	Short: "Merge face clusters into a target cluster",
	Long: `Moves every crop of the source clusters into the target and removes the
source clusters. The merge is recorded and can be reversed with undo.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runFacesMerge,
}

var facesUndoCmd = &cobra.Command{
	Use:   "undo <project-id>",
	Short: "Undo the most recent merge of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacesUndo,
}

var facesSuggestCmd = &cobra.Command{
	Use:   "suggest <project-id>",
	Short: "Suggest cluster pairs that look like the same person",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacesSuggest,
}

var facesLabelCmd = &cobra.Command{
	Use:   "label <project-id> <branch> <label>",
	Short: "Name a face cluster",
	Args:  cobra.ExactArgs(3),
	RunE:  runFacesLabel,
}

var facesRecomputeCmd = &cobra.Command{
	Use:   "recompute <project-id> <branch>",
	Short: "Refresh a cluster's count and representative crop",
	Args:  cobra.ExactArgs(2),
	RunE:  runFacesRecompute,
}

func init() {
	facesSuggestCmd.Flags().Float64Var(&suggestMaxDistance, "max-distance", 0.6, "Maximum centroid distance for a pair")
	facesSuggestCmd.Flags().Int64Var(&suggestMinMembers, "min-members", 2, "Skip clusters with fewer faces")
	facesSuggestCmd.Flags().IntVar(&suggestMaxPairs, "limit", 20, "Maximum pairs to report")
	facesCmd.AddCommand(facesClustersCmd, facesMergeCmd, facesUndoCmd, facesSuggestCmd, facesLabelCmd, facesRecomputeCmd)
	rootCmd.AddCommand(facesCmd)
}

func runFacesClusters(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	reps, err := store.ListBranchReps(id)
	if err != nil {
		return fmt.Errorf("failed to list clusters: %w", err)
	}
	for _, r := range reps {
		label := "(unnamed)"
		if r.Label != nil {
			label = *r.Label
		}
		fmt.Printf("%s\t%s\t%d faces\n", r.BranchKey, label, r.Count)
	}
	return nil
}

func runFacesMerge(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	result, err := store.MergeFaceClusters(id, args[1], args[2:])
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	fmt.Printf("Merged %d clusters into %s: %d crops and %d images moved\n",
		result.SourcesRemoved, result.Target, result.MovedCrops, result.MovedImages)
	return nil
}

func runFacesUndo(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	result, err := store.UndoLastFaceMerge(id)
	if err != nil {
		return fmt.Errorf("undo failed: %w", err)
	}
	fmt.Printf("Restored %s from %s\n",
		strings.Join(result.RestoredSources, ", "), result.Target)
	return nil
}

func runFacesSuggest(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	suggestions, err := store.MergeSuggestions(id, suggestMaxDistance, suggestMinMembers, suggestMaxPairs)
	if err != nil {
		return fmt.Errorf("failed to compute suggestions: %w", err)
	}
	if len(suggestions) == 0 {
		fmt.Println("No clusters look similar enough to merge")
		return nil
	}
	for _, s := range suggestions {
		fmt.Printf("%s <-> %s\t%.3f\n", s.BranchA, s.BranchB, s.Distance)
	}
	return nil
}

func runFacesLabel(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := store.SetBranchLabel(id, args[1], args[2]); err != nil {
		return fmt.Errorf("failed to label cluster: %w", err)
	}
	fmt.Printf("Labeled %s as %s\n", args[1], args[2])
	return nil
}

func runFacesRecompute(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	rep, err := store.RecomputeBranchRep(id, args[1])
	if err != nil {
		return fmt.Errorf("failed to recompute cluster: %w", err)
	}
	fmt.Printf("%s now has %d faces\n", rep.BranchKey, rep.Count)
	return nil
}
