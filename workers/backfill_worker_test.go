package workers

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/camden-git/photovault/database"
)

func TestBackfillWorkerRetiresUnreadableFiles(t *testing.T) {
	store := openWorkerStore(t)

	root := t.TempDir()
	// a real image with no EXIF block: extraction finds no capture
	// timestamp and the row keeps failing until it is retired
	img := writeTestImage(t, root, "noexif.jpg")

	projectID, err := store.CreateProject("backfill", root, "library")
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	scanner := &Scanner{Store: store, ProjectID: projectID, Root: root}
	if _, err := scanner.Run(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	worker := &BackfillWorker{Store: store, BatchSize: 10}
	result, err := worker.Run(context.Background(), &projectID)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	// one attempt per allowed retry, then the row leaves the backlog
	if result.Failed != int64(database.DefaultMaxRetries) {
		t.Errorf("Failed = %d; want %d attempts", result.Failed, database.DefaultMaxRetries)
	}

	photo, err := store.GetPhotoByPath(projectID, img)
	if err != nil {
		t.Fatalf("GetPhotoByPath() failed: %v", err)
	}
	if photo.MetadataStatus != database.StatusFailed {
		t.Errorf("status = %q; want %q", photo.MetadataStatus, database.StatusFailed)
	}

	pending, err := store.PendingPhotoMetadata(&projectID, 10)
	if err != nil {
		t.Fatalf("PendingPhotoMetadata() failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("backlog size after drain = %d; want 0", len(pending))
	}

	// a second run has nothing to do
	result, err = worker.Run(context.Background(), &projectID)
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if result.Failed != 0 || result.Succeeded != 0 {
		t.Errorf("second run did work: %+v", result)
	}
}

func TestBackfillWorkerRepairsDerivedFields(t *testing.T) {
	store := openWorkerStore(t)
	projectID, err := store.CreateProject("repair", "/photos/repair", "library")
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	folderID, err := store.EnsureFolder(projectID, "root", "/photos/repair", nil)
	if err != nil {
		t.Fatalf("EnsureFolder() failed: %v", err)
	}

	// a row from before the derived date columns existed, already
	// extracted so the drain loop leaves it alone
	db, err := sql.Open("sqlite3", store.Path())
	if err != nil {
		t.Fatalf("failed to open raw connection: %v", err)
	}
	_, err = db.Exec(
		"INSERT INTO photo_metadata (path, folder_id, project_id, width, height, date_taken, metadata_status) VALUES (?, ?, ?, ?, ?, ?, ?)",
		"/photos/repair/old.jpg", folderID, projectID, 800, 600, "2018:02:03 12:00:00", database.StatusOK,
	)
	db.Close()
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	worker := &BackfillWorker{Store: store, BatchSize: 10}
	result, err := worker.Run(context.Background(), &projectID)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if result.Repaired != 1 {
		t.Errorf("Repaired = %d; want 1", result.Repaired)
	}

	photo, err := store.GetPhotoByPath(projectID, "/photos/repair/old.jpg")
	if err != nil {
		t.Fatalf("GetPhotoByPath() failed: %v", err)
	}
	if photo.CreatedDate == nil || *photo.CreatedDate != "2018-02-03" {
		t.Errorf("created_date = %v; want 2018-02-03", photo.CreatedDate)
	}
}
