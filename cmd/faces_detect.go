package cmd

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/camden-git/photovault/media"
	"github.com/camden-git/photovault/workers"
)

var facesDetectCmd = &cobra.Command{
	Use:   "detect <project-id>",
	Short: "Cluster detected faces into branches",
	Long: `Reads face detections from <image>.faces.json sidecar files, saves face
crops and groups them into clusters by embedding similarity. Images that
already have crops are skipped, so re-running only handles new files.`,
	Args: cobra.ExactArgs(1),
	RunE: runFacesDetect,
}

func init() {
	facesCmd.AddCommand(facesDetectCmd)
}

func runFacesDetect(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	worker := &workers.FaceWorker{
		Store:               store,
		Detector:            media.SidecarDetector{},
		CropDir:             cfg.CropDir,
		Concurrency:         cfg.DetectorConcurrency,
		MaxFacesPerImage:    cfg.MaxFacesPerImage,
		SimilarityThreshold: cfg.SimilarityThreshold,
		Progress: func(current, total int, message string) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Detecting faces"),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("photos"),
					progressbar.OptionShowElapsedTimeOnFinish(),
				)
			}
			bar.Add(1)
		},
	}

	result, err := worker.Run(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("face detection failed: %w", err)
	}
	fmt.Printf("\n%d images processed (%d failed): %d faces in %d clusters\n",
		result.Succeeded, result.Failed, result.TotalFaces, result.Clusters)
	return nil
}
