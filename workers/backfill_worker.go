package workers

import (
	"context"
	"log"

	"github.com/camden-git/photovault/database"
	"github.com/camden-git/photovault/media"
	"github.com/camden-git/photovault/models"
)

// BackfillResult summarizes one backfill drain.
type BackfillResult struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Repaired  int64 `json:"repaired"`
}

// BackfillWorker drains the metadata extraction backlog: photos left in
// pending by scans that could not read them, plus failed_retry rows still
// under the retry ceiling. Each failed attempt advances the row's state, so
// repeatedly unreadable files end in failed and leave the backlog.
type BackfillWorker struct {
	Store *database.Store

	// BatchSize is how many rows to claim per pass; <= 0 uses 100.
	BatchSize uint64

	Progress func(processed int64, path string)
}

// Run first repairs rows missing their derived date fields, then works the
// extraction backlog batch by batch until it is empty or ctx is cancelled.
func (w *BackfillWorker) Run(ctx context.Context, projectID *int64) (BackfillResult, error) {
	var result BackfillResult

	repaired, err := w.Store.BackfillCreatedFields(projectID)
	if err != nil {
		return result, err
	}
	result.Repaired = repaired

	repaired, err = w.Store.BackfillVideoCreatedFields(projectID)
	if err != nil {
		return result, err
	}
	result.Repaired += repaired

	batchSize := w.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := w.Store.PendingPhotoMetadata(projectID, batchSize)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			break
		}
		for _, photo := range batch {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if w.process(photo) {
				result.Succeeded++
			} else {
				result.Failed++
			}
			if w.Progress != nil {
				w.Progress(result.Succeeded+result.Failed, photo.Path)
			}
		}
	}

	log.Printf("backfill: %d extracted, %d failed, %d rows repaired",
		result.Succeeded, result.Failed, result.Repaired)
	return result, nil
}

// process runs one extraction attempt and records the outcome, reporting
// success.
func (w *BackfillWorker) process(photo models.PhotoMetadata) bool {
	info, err := media.ExtractPhotoMetadata(photo.Path)
	if err != nil || info.DateTaken == nil || info.Width == nil {
		// an attempt that leaves the row incomplete counts as a failure, so
		// the fail counter keeps the backlog finite
		reason := "no capture timestamp"
		switch {
		case err != nil:
			reason = err.Error()
		case info.DateTaken != nil:
			reason = "no pixel dimensions"
		}
		status, markErr := w.Store.MarkPhotoMetadataFailed(photo.ID, reason)
		if markErr != nil {
			log.Printf("backfill: failed to mark %s failed: %v", photo.Path, markErr)
		} else if status == database.StatusFailed {
			log.Printf("backfill: giving up on %s after %d attempts", photo.Path, database.DefaultMaxRetries)
		}
		return false
	}

	err = w.Store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path:           photo.Path,
		FolderID:       photo.FolderID,
		ProjectID:      photo.ProjectID,
		SizeKB:         &info.SizeKB,
		Modified:       &info.Modified,
		Width:          info.Width,
		Height:         info.Height,
		DateTaken:      info.DateTaken,
		MetadataStatus: database.StatusOK,
	})
	if err != nil {
		log.Printf("backfill: failed to store metadata for %s: %v", photo.Path, err)
		return false
	}
	return true
}
