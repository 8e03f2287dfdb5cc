package database

import (
	"database/sql"
	"testing"

	"github.com/camden-git/photovault/models"
)

func TestCreateProjectSeedsAllBranch(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateProject(t, store, "seeded")

	branch, err := store.GetBranch(id, BranchAll)
	if err != nil {
		t.Fatalf("GetBranch(all) failed: %v", err)
	}
	if branch.DisplayName != "All Images" {
		t.Errorf("all branch display name = %q; want %q", branch.DisplayName, "All Images")
	}
}

func TestDeleteProjectClearsMetadata(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateProject(t, store, "doomed")
	folderID := seedFolder(t, store, id)

	if err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path: "/photos/root/a.jpg", FolderID: folderID, ProjectID: id,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := store.AddProjectImages(id, BranchAll, []string{"/photos/root/a.jpg"}); err != nil {
		t.Fatalf("AddProjectImages() failed: %v", err)
	}

	if err := store.DeleteProject(id); err != nil {
		t.Fatalf("DeleteProject() failed: %v", err)
	}

	if _, err := store.GetProject(id); err != sql.ErrNoRows {
		t.Errorf("project lookup error = %v; want sql.ErrNoRows", err)
	}
	if _, err := store.GetPhotoByPath(id, "/photos/root/a.jpg"); err != sql.ErrNoRows {
		t.Errorf("metadata lookup error = %v; want sql.ErrNoRows", err)
	}
	images, err := store.ListBranchImages(id, BranchAll)
	if err != nil {
		t.Fatalf("ListBranchImages() failed: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("branch images survived project deletion: %v", images)
	}
}

func TestUpdateMissingProject(t *testing.T) {
	store := openTestStore(t)
	if err := store.RenameProject(9999, "ghost"); err != sql.ErrNoRows {
		t.Errorf("RenameProject(missing) error = %v; want sql.ErrNoRows", err)
	}
	if err := store.DeleteProject(9999); err != sql.ErrNoRows {
		t.Errorf("DeleteProject(missing) error = %v; want sql.ErrNoRows", err)
	}
}

func TestAddProjectImagesIdempotent(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateProject(t, store, "images")

	paths := []string{"/photos/a.jpg", "/photos/b.jpg"}
	added, err := store.AddProjectImages(id, BranchAll, paths)
	if err != nil {
		t.Fatalf("AddProjectImages() failed: %v", err)
	}
	if added != 2 {
		t.Errorf("first add = %d; want 2", added)
	}

	added, err = store.AddProjectImages(id, BranchAll, append(paths, "/photos/c.jpg"))
	if err != nil {
		t.Fatalf("second AddProjectImages() failed: %v", err)
	}
	if added != 1 {
		t.Errorf("second add = %d; want 1 (only the new path)", added)
	}

	n, err := store.BranchImageCount(id, BranchAll)
	if err != nil {
		t.Fatalf("BranchImageCount() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("branch image count = %d; want 3", n)
	}
}

func TestDeleteBranchProtectsAll(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateProject(t, store, "protected")

	if err := store.DeleteBranch(id, BranchAll); err == nil {
		t.Error("deleting the all branch succeeded; want error")
	}

	if err := store.EnsureBranch(id, "face_0", "face_0"); err != nil {
		t.Fatalf("EnsureBranch() failed: %v", err)
	}
	if err := store.DeleteBranch(id, "face_0"); err != nil {
		t.Errorf("DeleteBranch(face_0) failed: %v", err)
	}
}
