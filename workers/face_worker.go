package workers

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/camden-git/photovault/database"
	"github.com/camden-git/photovault/media"
	"github.com/camden-git/photovault/models"
)

// FaceWorkerResult summarizes a detection run.
type FaceWorkerResult struct {
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	TotalFaces int `json:"total_faces"`
	Clusters   int `json:"clusters"`
}

// FaceWorker detects faces across a project's images, saves crops to disk
// and groups them into face branches by greedy centroid clustering: each
// face joins the most similar existing cluster above the threshold, or
// starts a new one.
type FaceWorker struct {
	Store    *database.Store
	Detector media.FaceDetector
	CropDir  string

	// Concurrency is the number of detection goroutines; <= 0 means 1.
	Concurrency int
	// MaxFacesPerImage caps detections per image, keeping the largest
	// boxes; <= 0 means unlimited.
	MaxFacesPerImage int
	// SimilarityThreshold is the minimum cosine similarity for a face to
	// join an existing cluster.
	SimilarityThreshold float64

	Progress func(current, total int, message string)
	Finished func(result FaceWorkerResult)
}

type detectionJob struct {
	path string
}

type detectionOutput struct {
	path       string
	detections []media.Detection
	err        error
}

// faceCluster is the in-memory accumulation of one face branch during a run.
type faceCluster struct {
	branchKey  string
	embeddings [][]float32
	repPath    string
	repThumb   []byte
	count      int64
}

// Run detects faces in every image of the project's "all" branch that has no
// crops yet. Detection fans out over a goroutine pool; cluster assignment
// happens on the collecting side so cluster state needs no locking.
// Cancelling ctx stops the run after the in-flight images finish, keeping
// everything already written.
func (w *FaceWorker) Run(ctx context.Context, projectID int64) (FaceWorkerResult, error) {
	var result FaceWorkerResult

	images, err := w.Store.ListBranchImages(projectID, database.BranchAll)
	if err != nil {
		return result, err
	}
	processed, err := w.Store.ProcessedImagePaths(projectID)
	if err != nil {
		return result, err
	}
	var pending []string
	for _, p := range images {
		if !processed[p] {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		if w.Finished != nil {
			w.Finished(result)
		}
		return result, nil
	}

	clusters, err := w.loadClusters(projectID)
	if err != nil {
		return result, err
	}

	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan detectionJob)
	outputs := make(chan detectionOutput)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				dets, err := w.Detector.DetectFaces(ctx, job.path)
				outputs <- detectionOutput{path: job.path, detections: dets, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, p := range pending {
			select {
			case jobs <- detectionJob{path: p}:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outputs)
	}()

	current := 0
	for out := range outputs {
		current++
		if w.Progress != nil {
			w.Progress(current, len(pending), out.path)
		}
		if out.err != nil {
			log.Printf("faces: detection failed for %s: %v", out.path, out.err)
			result.Failed++
			continue
		}
		faces, err := w.assignFaces(projectID, out.path, out.detections, &clusters)
		if err != nil {
			log.Printf("faces: failed to store faces of %s: %v", out.path, err)
			result.Failed++
			continue
		}
		result.TotalFaces += faces
		result.Succeeded++
	}

	if err := w.storeClusters(projectID, clusters); err != nil {
		return result, err
	}
	result.Clusters = len(clusters)
	if w.Finished != nil {
		w.Finished(result)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// loadClusters seeds the in-memory cluster list from existing branch
// summaries so re-runs extend earlier clusters instead of duplicating them.
func (w *FaceWorker) loadClusters(projectID int64) ([]*faceCluster, error) {
	reps, err := w.Store.ListBranchReps(projectID)
	if err != nil {
		return nil, err
	}
	var clusters []*faceCluster
	for _, r := range reps {
		if len(r.Centroid) == 0 {
			continue
		}
		vec, err := media.DecodeEmbedding(r.Centroid)
		if err != nil {
			return nil, fmt.Errorf("failed to decode centroid of %s: %w", r.BranchKey, err)
		}
		c := &faceCluster{branchKey: r.BranchKey, embeddings: [][]float32{vec}, count: r.Count}
		if r.RepPath != nil {
			c.repPath = *r.RepPath
		}
		c.repThumb = r.RepThumbPNG
		clusters = append(clusters, c)
	}
	return clusters, nil
}

// assignFaces crops, saves and clusters every detection of one image,
// returning the number of faces stored.
func (w *FaceWorker) assignFaces(projectID int64, imagePath string, detections []media.Detection, clusters *[]*faceCluster) (int, error) {
	if len(detections) == 0 {
		return 0, nil
	}
	if w.MaxFacesPerImage > 0 && len(detections) > w.MaxFacesPerImage {
		sort.Slice(detections, func(i, j int) bool {
			return detections[i].Area() > detections[j].Area()
		})
		detections = detections[:w.MaxFacesPerImage]
	}

	img, err := media.LoadImage(imagePath)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, det := range detections {
		cluster := w.bestCluster(*clusters, det.Embedding)
		if cluster == nil {
			key, err := w.Store.NextFaceBranchKey(projectID)
			if err != nil {
				return stored, err
			}
			cluster = &faceCluster{branchKey: key}
			*clusters = append(*clusters, cluster)
			if err := w.Store.EnsureBranch(projectID, key, key); err != nil {
				return stored, err
			}
		}

		crop := media.CropFace(img, det.Box)
		cropPath, err := media.SaveCrop(w.CropDir, crop)
		if err != nil {
			return stored, err
		}
		added, err := w.Store.AddFaceCrop(projectID, cluster.branchKey, imagePath, cropPath)
		if err != nil {
			return stored, err
		}
		if !added {
			continue
		}

		cluster.embeddings = append(cluster.embeddings, det.Embedding)
		cluster.count++
		if cluster.repPath == "" {
			cluster.repPath = cropPath
			if thumb, err := media.ThumbnailPNG(crop); err == nil {
				cluster.repThumb = thumb
			}
		}
		stored++
	}
	return stored, nil
}

func (w *FaceWorker) bestCluster(clusters []*faceCluster, embedding []float32) *faceCluster {
	var best *faceCluster
	bestSim := w.SimilarityThreshold
	for _, c := range clusters {
		centroid := media.MeanEmbedding(c.embeddings)
		if sim := media.CosineSimilarity(centroid, embedding); sim >= bestSim {
			best = c
			bestSim = sim
		}
	}
	return best
}

// storeClusters persists every cluster's summary row at the end of a run.
func (w *FaceWorker) storeClusters(projectID int64, clusters []*faceCluster) error {
	for _, c := range clusters {
		if c.count == 0 {
			continue
		}
		rep := models.BranchRep{
			ProjectID: projectID,
			BranchKey: c.branchKey,
			Count:     c.count,
			Centroid:  media.EncodeEmbedding(media.MeanEmbedding(c.embeddings)),
		}
		if c.repPath != "" {
			rep.RepPath = &c.repPath
		}
		rep.RepThumbPNG = c.repThumb
		if err := w.Store.UpsertBranchRep(rep); err != nil {
			return err
		}
	}
	return nil
}
