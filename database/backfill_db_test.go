package database

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/camden-git/photovault/models"
)

func TestMetadataFailureStateMachine(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "failures")
	folderID := seedFolder(t, store, projectID)

	err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path: "/photos/root/bad.jpg", FolderID: folderID, ProjectID: projectID,
	})
	if err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}
	photo, err := store.GetPhotoByPath(projectID, "/photos/root/bad.jpg")
	if err != nil {
		t.Fatalf("GetPhotoByPath() failed: %v", err)
	}
	if photo.MetadataStatus != StatusPending {
		t.Fatalf("initial status = %q; want %q", photo.MetadataStatus, StatusPending)
	}

	wantStatuses := []string{StatusFailedRetry, StatusFailedRetry, StatusFailed}
	for i, want := range wantStatuses {
		status, err := store.MarkPhotoMetadataFailed(photo.ID, "unreadable")
		if err != nil {
			t.Fatalf("failure %d: MarkPhotoMetadataFailed() failed: %v", i+1, err)
		}
		if status != want {
			t.Errorf("failure %d: status = %q; want %q", i+1, status, want)
		}
	}

	got, err := store.GetPhotoByPath(projectID, "/photos/root/bad.jpg")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.MetadataFailCount != 3 {
		t.Errorf("fail count = %d; want 3", got.MetadataFailCount)
	}

	// retired rows leave the backlog
	pending, err := store.PendingPhotoMetadata(&projectID, 10)
	if err != nil {
		t.Fatalf("PendingPhotoMetadata() failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("backlog size = %d; want 0", len(pending))
	}

	// every failure left an audit row tagged with the resulting status
	entries, err := store.ListMatchAudit(10)
	if err != nil {
		t.Fatalf("ListMatchAudit() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("audit rows = %d; want 3", len(entries))
	}
	newest := entries[0]
	if newest.MatchMode == nil || !strings.Contains(*newest.MatchMode, "[meta_fail:"+StatusFailed+"]") {
		t.Errorf("newest audit mode = %v; want [meta_fail:%s]", newest.MatchMode, StatusFailed)
	}
}

func TestPendingPhotoMetadataIncludesRetryable(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "retryable")
	folderID := seedFolder(t, store, projectID)

	for _, p := range []string{"/photos/root/a.jpg", "/photos/root/b.jpg"} {
		if err := store.UpsertPhotoMetadata(models.PhotoMetadata{
			Path: p, FolderID: folderID, ProjectID: projectID,
		}); err != nil {
			t.Fatalf("seed %s failed: %v", p, err)
		}
	}
	a, err := store.GetPhotoByPath(projectID, "/photos/root/a.jpg")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if _, err := store.MarkPhotoMetadataFailed(a.ID, "once"); err != nil {
		t.Fatalf("MarkPhotoMetadataFailed() failed: %v", err)
	}

	pending, err := store.PendingPhotoMetadata(&projectID, 10)
	if err != nil {
		t.Fatalf("PendingPhotoMetadata() failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("backlog size = %d; want 2 (one pending, one retryable)", len(pending))
	}
}

func TestPendingPhotoMetadataIncludesIncompleteOK(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "incomplete")
	folderID := seedFolder(t, store, projectID)

	// a scan that read the EXIF date but could not decode the pixels
	taken := "2024:05:01 09:00:00"
	if err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path: "/photos/root/nodim.jpg", FolderID: folderID, ProjectID: projectID,
		DateTaken: &taken, MetadataStatus: StatusOK,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	w, h := int64(640), int64(480)
	if err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path: "/photos/root/done.jpg", FolderID: folderID, ProjectID: projectID,
		DateTaken: &taken, Width: &w, Height: &h, MetadataStatus: StatusOK,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	pending, err := store.PendingPhotoMetadata(&projectID, 10)
	if err != nil {
		t.Fatalf("PendingPhotoMetadata() failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Path != "/photos/root/nodim.jpg" {
		t.Errorf("backlog = %+v; want only the dimensionless row", pending)
	}
}

func TestMarkPhotoMetadataOKResetsCounter(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "recover")
	folderID := seedFolder(t, store, projectID)

	if err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path: "/photos/root/a.jpg", FolderID: folderID, ProjectID: projectID,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	photo, _ := store.GetPhotoByPath(projectID, "/photos/root/a.jpg")
	if _, err := store.MarkPhotoMetadataFailed(photo.ID, "flaky"); err != nil {
		t.Fatalf("MarkPhotoMetadataFailed() failed: %v", err)
	}
	setNow(store, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	if err := store.MarkPhotoMetadataOK(photo.ID); err != nil {
		t.Fatalf("MarkPhotoMetadataOK() failed: %v", err)
	}

	got, err := store.GetPhotoByPath(projectID, "/photos/root/a.jpg")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.MetadataStatus != StatusOK || got.MetadataFailCount != 0 {
		t.Errorf("status/count = %q/%d; want %q/0", got.MetadataStatus, got.MetadataFailCount, StatusOK)
	}
	if got.UpdatedAt == nil || *got.UpdatedAt != "2024-06-15 12:00:00" {
		t.Errorf("updated_at = %v; want the marking time", got.UpdatedAt)
	}
}

func TestResetMetadataFailures(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "reset")
	folderID := seedFolder(t, store, projectID)

	if err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path: "/photos/root/bad.jpg", FolderID: folderID, ProjectID: projectID,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	photo, _ := store.GetPhotoByPath(projectID, "/photos/root/bad.jpg")
	for i := 0; i < DefaultMaxRetries; i++ {
		if _, err := store.MarkPhotoMetadataFailed(photo.ID, "unreadable"); err != nil {
			t.Fatalf("MarkPhotoMetadataFailed() failed: %v", err)
		}
	}

	if err := store.ResetMetadataFailures(projectID, "/photos/root/bad.jpg"); err != nil {
		t.Fatalf("ResetMetadataFailures() failed: %v", err)
	}
	got, err := store.GetPhotoByPath(projectID, "/photos/root/bad.jpg")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.MetadataStatus != StatusPending || got.MetadataFailCount != 0 {
		t.Errorf("status/count = %q/%d; want %q/0", got.MetadataStatus, got.MetadataFailCount, StatusPending)
	}

	// back in the backlog
	pending, err := store.PendingPhotoMetadata(&projectID, 10)
	if err != nil {
		t.Fatalf("PendingPhotoMetadata() failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("backlog size = %d; want 1", len(pending))
	}

	if err := store.ResetMetadataFailures(projectID, "/photos/root/missing.jpg"); err != sql.ErrNoRows {
		t.Errorf("reset of unknown path = %v; want sql.ErrNoRows", err)
	}
}

func TestBackfillCreatedFields(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "repair")
	folderID := seedFolder(t, store, projectID)

	// insert a row bypassing the upsert's derivation, as older releases did
	_, err := store.db.Exec(
		"INSERT INTO photo_metadata (path, folder_id, project_id, date_taken) VALUES (?, ?, ?, ?)",
		"/photos/root/old.jpg", folderID, projectID, "2019:07:04 16:00:00",
	)
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	repaired, err := store.BackfillCreatedFields(&projectID)
	if err != nil {
		t.Fatalf("BackfillCreatedFields() failed: %v", err)
	}
	if repaired != 1 {
		t.Errorf("repaired = %d; want 1", repaired)
	}

	got, err := store.GetPhotoByPath(projectID, "/photos/root/old.jpg")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.CreatedDate == nil || *got.CreatedDate != "2019-07-04" {
		t.Errorf("created_date = %v; want 2019-07-04", got.CreatedDate)
	}
	if got.CreatedYear == nil || *got.CreatedYear != 2019 {
		t.Errorf("created_year = %v; want 2019", got.CreatedYear)
	}

	// nothing left to repair
	repaired, err = store.BackfillCreatedFields(&projectID)
	if err != nil {
		t.Fatalf("second BackfillCreatedFields() failed: %v", err)
	}
	if repaired != 0 {
		t.Errorf("second pass repaired = %d; want 0", repaired)
	}
}

func TestPhotoBackfillStats(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "stats")
	folderID := seedFolder(t, store, projectID)

	taken := "2024:03:01 10:00:00"
	if err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path: "/photos/root/ok.jpg", FolderID: folderID, ProjectID: projectID,
		DateTaken: &taken, MetadataStatus: StatusOK,
	}); err != nil {
		t.Fatalf("seed ok failed: %v", err)
	}
	if err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path: "/photos/root/pending.jpg", FolderID: folderID, ProjectID: projectID,
	}); err != nil {
		t.Fatalf("seed pending failed: %v", err)
	}

	stats, err := store.PhotoBackfillStats(&projectID)
	if err != nil {
		t.Fatalf("PhotoBackfillStats() failed: %v", err)
	}
	if stats.OK != 1 || stats.Pending != 1 {
		t.Errorf("stats = %+v; want 1 ok, 1 pending", stats)
	}
	if stats.Backfilled != 1 {
		t.Errorf("Backfilled = %d; want 1", stats.Backfilled)
	}
}
