package database

import (
	"bytes"
	"database/sql"
	"fmt"
	"testing"

	"github.com/camden-git/photovault/media"
	"github.com/camden-git/photovault/models"
)

// seedFaceBranch creates a face branch with n crops and a full summary row.
func seedFaceBranch(t *testing.T, store *Store, projectID int64, key string, n int, centroid []float32) models.BranchRep {
	t.Helper()
	if err := store.EnsureBranch(projectID, key, key); err != nil {
		t.Fatalf("EnsureBranch(%s) failed: %v", key, err)
	}
	for i := 0; i < n; i++ {
		added, err := store.AddFaceCrop(projectID, key,
			fmt.Sprintf("/photos/%s-%d.jpg", key, i),
			fmt.Sprintf("/crops/%s-%d.jpg", key, i))
		if err != nil || !added {
			t.Fatalf("AddFaceCrop(%s, %d) = %v, %v", key, i, added, err)
		}
	}
	repPath := fmt.Sprintf("/crops/%s-0.jpg", key)
	rep := models.BranchRep{
		ProjectID:   projectID,
		BranchKey:   key,
		Label:       strPtr("person " + key),
		Count:       int64(n),
		Centroid:    media.EncodeEmbedding(centroid),
		RepPath:     &repPath,
		RepThumbPNG: []byte{0x89, 'P', 'N', 'G', byte(n)},
	}
	if err := store.UpsertBranchRep(rep); err != nil {
		t.Fatalf("UpsertBranchRep(%s) failed: %v", key, err)
	}
	return rep
}

func TestMergeFaceClusters(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "merge")

	seedFaceBranch(t, store, projectID, "face_0", 3, []float32{1, 0})
	seedFaceBranch(t, store, projectID, "face_1", 2, []float32{0.9, 0.1})

	result, err := store.MergeFaceClusters(projectID, "face_0", []string{"face_1"})
	if err != nil {
		t.Fatalf("MergeFaceClusters() failed: %v", err)
	}
	if result.MovedCrops != 2 {
		t.Errorf("MovedCrops = %d; want 2", result.MovedCrops)
	}

	crops, err := store.ListFaceCrops(projectID, "face_0")
	if err != nil {
		t.Fatalf("ListFaceCrops() failed: %v", err)
	}
	if len(crops) != 5 {
		t.Errorf("target crop count = %d; want 5", len(crops))
	}

	if _, err := store.GetBranchRep(projectID, "face_1"); err != sql.ErrNoRows {
		t.Errorf("source rep lookup error = %v; want sql.ErrNoRows", err)
	}
	if _, err := store.GetBranch(projectID, "face_1"); err != sql.ErrNoRows {
		t.Errorf("source branch lookup error = %v; want sql.ErrNoRows", err)
	}

	target, err := store.GetBranchRep(projectID, "face_0")
	if err != nil {
		t.Fatalf("GetBranchRep(face_0) failed: %v", err)
	}
	if target.Count != 5 {
		t.Errorf("target count = %d; want 5", target.Count)
	}

	n, err := store.MergeHistoryCount(projectID)
	if err != nil {
		t.Fatalf("MergeHistoryCount() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("history count = %d; want 1", n)
	}
}

func TestMergeRejectsSelfAndEmpty(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "badmerge")
	seedFaceBranch(t, store, projectID, "face_0", 1, []float32{1, 0})

	if _, err := store.MergeFaceClusters(projectID, "face_0", nil); err == nil {
		t.Error("merge with no sources succeeded; want error")
	}
	if _, err := store.MergeFaceClusters(projectID, "face_0", []string{"face_0"}); err == nil {
		t.Error("merge into itself succeeded; want error")
	}
	if _, err := store.MergeFaceClusters(projectID, "face_0", []string{"face_9"}); err == nil {
		t.Error("merge of empty source succeeded; want error")
	}
}

func TestUndoLastFaceMergeRestoresExactly(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "undo")

	repA := seedFaceBranch(t, store, projectID, "face_0", 3, []float32{1, 0})
	repB := seedFaceBranch(t, store, projectID, "face_1", 2, []float32{0, 1})

	if _, err := store.MergeFaceClusters(projectID, "face_0", []string{"face_1"}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	result, err := store.UndoLastFaceMerge(projectID)
	if err != nil {
		t.Fatalf("UndoLastFaceMerge() failed: %v", err)
	}
	if result.Target != "face_0" || len(result.RestoredSources) != 1 || result.RestoredSources[0] != "face_1" {
		t.Errorf("undo result = %+v; want face_1 restored from face_0", result)
	}

	for _, want := range []models.BranchRep{repA, repB} {
		got, err := store.GetBranchRep(projectID, want.BranchKey)
		if err != nil {
			t.Fatalf("GetBranchRep(%s) after undo failed: %v", want.BranchKey, err)
		}
		if got.Count != want.Count {
			t.Errorf("%s count = %d; want %d", want.BranchKey, got.Count, want.Count)
		}
		if got.Label == nil || *got.Label != *want.Label {
			t.Errorf("%s label = %v; want %v", want.BranchKey, got.Label, *want.Label)
		}
		if !bytes.Equal(got.Centroid, want.Centroid) {
			t.Errorf("%s centroid bytes differ after undo", want.BranchKey)
		}
		if !bytes.Equal(got.RepThumbPNG, want.RepThumbPNG) {
			t.Errorf("%s thumbnail bytes differ after undo", want.BranchKey)
		}
	}

	crops, err := store.ListFaceCrops(projectID, "face_1")
	if err != nil {
		t.Fatalf("ListFaceCrops(face_1) failed: %v", err)
	}
	if len(crops) != 2 {
		t.Errorf("restored source crop count = %d; want 2", len(crops))
	}

	// the history entry is consumed
	if _, err := store.UndoLastFaceMerge(projectID); err == nil {
		t.Error("second undo succeeded; want error")
	}
}

func TestMergeMovesBranchAssignments(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "assignments")

	seedFaceBranch(t, store, projectID, "face_0", 1, []float32{1, 0})
	seedFaceBranch(t, store, projectID, "face_1", 1, []float32{0, 1})
	if _, err := store.AddProjectImages(projectID, "face_0", []string{"/photos/shared.jpg"}); err != nil {
		t.Fatalf("AddProjectImages(face_0) failed: %v", err)
	}
	if _, err := store.AddProjectImages(projectID, "face_1", []string{"/photos/a.jpg", "/photos/shared.jpg"}); err != nil {
		t.Fatalf("AddProjectImages(face_1) failed: %v", err)
	}

	result, err := store.MergeFaceClusters(projectID, "face_0", []string{"face_1"})
	if err != nil {
		t.Fatalf("MergeFaceClusters() failed: %v", err)
	}
	if result.MovedImages != 1 {
		t.Errorf("MovedImages = %d; want 1 (shared path stays on target)", result.MovedImages)
	}

	targetImages, err := store.ListBranchImages(projectID, "face_0")
	if err != nil {
		t.Fatalf("ListBranchImages(face_0) failed: %v", err)
	}
	if len(targetImages) != 2 {
		t.Errorf("target images = %v; want both paths", targetImages)
	}
	sourceImages, err := store.ListBranchImages(projectID, "face_1")
	if err != nil {
		t.Fatalf("ListBranchImages(face_1) failed: %v", err)
	}
	if len(sourceImages) != 0 {
		t.Errorf("source images after merge = %v; want none", sourceImages)
	}

	if _, err := store.UndoLastFaceMerge(projectID); err != nil {
		t.Fatalf("UndoLastFaceMerge() failed: %v", err)
	}
	sourceImages, err = store.ListBranchImages(projectID, "face_1")
	if err != nil {
		t.Fatalf("ListBranchImages(face_1) after undo failed: %v", err)
	}
	if len(sourceImages) != 2 {
		t.Errorf("restored source images = %v; want a.jpg and shared.jpg", sourceImages)
	}
	targetImages, err = store.ListBranchImages(projectID, "face_0")
	if err != nil {
		t.Fatalf("ListBranchImages(face_0) after undo failed: %v", err)
	}
	if len(targetImages) != 1 || targetImages[0] != "/photos/shared.jpg" {
		t.Errorf("restored target images = %v; want only shared.jpg", targetImages)
	}
}

func TestUndoRestoresDuplicateCrops(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "dupcrops")

	seedFaceBranch(t, store, projectID, "face_0", 2, []float32{1, 0})
	seedFaceBranch(t, store, projectID, "face_1", 2, []float32{0, 1})
	// a crop the target also holds, which the merge drops instead of moving
	added, err := store.AddFaceCrop(projectID, "face_1", "/photos/dup.jpg", "/crops/face_0-0.jpg")
	if err != nil || !added {
		t.Fatalf("AddFaceCrop(dup) = %v, %v", added, err)
	}

	result, err := store.MergeFaceClusters(projectID, "face_0", []string{"face_1"})
	if err != nil {
		t.Fatalf("MergeFaceClusters() failed: %v", err)
	}
	if result.MovedCrops != 2 {
		t.Errorf("MovedCrops = %d; want 2", result.MovedCrops)
	}
	crops, err := store.ListFaceCrops(projectID, "face_0")
	if err != nil {
		t.Fatalf("ListFaceCrops(face_0) failed: %v", err)
	}
	if len(crops) != 4 {
		t.Errorf("target crops after merge = %d; want 4", len(crops))
	}

	if _, err := store.UndoLastFaceMerge(projectID); err != nil {
		t.Fatalf("UndoLastFaceMerge() failed: %v", err)
	}
	crops, err = store.ListFaceCrops(projectID, "face_1")
	if err != nil {
		t.Fatalf("ListFaceCrops(face_1) after undo failed: %v", err)
	}
	if len(crops) != 3 {
		t.Errorf("restored source crops = %d; want 3 including the dropped duplicate", len(crops))
	}
	crops, err = store.ListFaceCrops(projectID, "face_0")
	if err != nil {
		t.Fatalf("ListFaceCrops(face_0) after undo failed: %v", err)
	}
	if len(crops) != 2 {
		t.Errorf("restored target crops = %d; want 2", len(crops))
	}
}

func TestMergeChainUndoOrder(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "chain")

	seedFaceBranch(t, store, projectID, "face_0", 1, []float32{1, 0})
	seedFaceBranch(t, store, projectID, "face_1", 1, []float32{0, 1})
	seedFaceBranch(t, store, projectID, "face_2", 1, []float32{1, 1})

	if _, err := store.MergeFaceClusters(projectID, "face_0", []string{"face_1"}); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	if _, err := store.MergeFaceClusters(projectID, "face_0", []string{"face_2"}); err != nil {
		t.Fatalf("second merge failed: %v", err)
	}

	// undo must pop the newest merge first
	result, err := store.UndoLastFaceMerge(projectID)
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if result.RestoredSources[0] != "face_2" {
		t.Errorf("first undo restored %s; want face_2", result.RestoredSources[0])
	}
	result, err = store.UndoLastFaceMerge(projectID)
	if err != nil {
		t.Fatalf("second undo failed: %v", err)
	}
	if result.RestoredSources[0] != "face_1" {
		t.Errorf("second undo restored %s; want face_1", result.RestoredSources[0])
	}
}

func TestRecomputeBranchRep(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "recompute")

	seedFaceBranch(t, store, projectID, "face_0", 3, []float32{1, 0})
	// drift the stored count
	if err := store.UpsertBranchRep(models.BranchRep{
		ProjectID: projectID, BranchKey: "face_0", Count: 99,
	}); err != nil {
		t.Fatalf("UpsertBranchRep() failed: %v", err)
	}

	rep, err := store.RecomputeBranchRep(projectID, "face_0")
	if err != nil {
		t.Fatalf("RecomputeBranchRep() failed: %v", err)
	}
	if rep.Count != 3 {
		t.Errorf("recomputed count = %d; want 3", rep.Count)
	}
	if rep.RepPath == nil || *rep.RepPath != "/crops/face_0-0.jpg" {
		t.Errorf("rep path = %v; want first crop", rep.RepPath)
	}
}

func TestMergeSuggestions(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "suggest")

	seedFaceBranch(t, store, projectID, "face_0", 2, []float32{1, 0})
	seedFaceBranch(t, store, projectID, "face_1", 2, []float32{0.99, 0.01})
	seedFaceBranch(t, store, projectID, "face_2", 2, []float32{0, 1})

	suggestions, err := store.MergeSuggestions(projectID, 0.5, 2, 10)
	if err != nil {
		t.Fatalf("MergeSuggestions() failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("len(suggestions) = %d; want 1", len(suggestions))
	}
	s := suggestions[0]
	pair := map[string]bool{s.BranchA: true, s.BranchB: true}
	if !pair["face_0"] || !pair["face_1"] {
		t.Errorf("suggested pair = %s/%s; want face_0/face_1", s.BranchA, s.BranchB)
	}
	if s.Distance > 0.1 {
		t.Errorf("pair distance = %f; want near zero", s.Distance)
	}

	// clusters below the member floor never pair up
	none, err := store.MergeSuggestions(projectID, 0.5, 3, 10)
	if err != nil {
		t.Fatalf("MergeSuggestions() failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len(suggestions) with min members 3 = %d; want 0", len(none))
	}
}
