package workers

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/camden-git/photovault/database"
	"github.com/camden-git/photovault/media"
	"github.com/camden-git/photovault/models"
)

// ScanResult summarizes one repository scan.
type ScanResult struct {
	Folders int64 `json:"folders"`
	Photos  int64 `json:"photos"`
	Videos  int64 `json:"videos"`
	Removed int64 `json:"removed"`
	Skipped int64 `json:"skipped"`
}

// Scanner walks a project's folder on disk and reconciles the database with
// what it finds: folder rows for every directory, metadata upserts for every
// media file, and removal of rows whose files are gone.
type Scanner struct {
	Store     *database.Store
	ProjectID int64
	Root      string

	// Progress, when set, is called once per processed file.
	Progress func(current, total int, path string)
}

// Run performs a full scan. It respects ctx between files, so cancellation
// leaves a partially updated but consistent database.
func (s *Scanner) Run(ctx context.Context) (ScanResult, error) {
	var result ScanResult

	type folderFiles struct {
		folderID int64
		photos   []string
		videos   []string
	}
	folders := map[string]*folderFiles{}
	var mediaFiles []string

	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("scan: skipping %s: %v", path, err)
			result.Skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			var parentID *int64
			if path != s.Root {
				parent, ok := folders[filepath.Dir(path)]
				if ok {
					parentID = &parent.folderID
				}
			}
			id, err := s.Store.EnsureFolder(s.ProjectID, filepath.Base(path), path, parentID)
			if err != nil {
				return fmt.Errorf("failed to ensure folder %s: %w", path, err)
			}
			folders[path] = &folderFiles{folderID: id}
			result.Folders++
			return nil
		}

		ff := folders[filepath.Dir(path)]
		if ff == nil {
			return nil
		}
		switch {
		case media.IsPhotoFile(path):
			ff.photos = append(ff.photos, path)
			mediaFiles = append(mediaFiles, path)
		case media.IsVideoFile(path):
			ff.videos = append(ff.videos, path)
			mediaFiles = append(mediaFiles, path)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to walk %s: %w", s.Root, err)
	}

	total := len(mediaFiles)
	current := 0
	for path, ff := range folders {
		for _, p := range ff.photos {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			current++
			if s.Progress != nil {
				s.Progress(current, total, p)
			}
			if err := s.upsertPhoto(ff.folderID, p); err != nil {
				log.Printf("scan: failed to index photo %s: %v", p, err)
				result.Skipped++
				continue
			}
			result.Photos++
		}
		for _, v := range ff.videos {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			current++
			if s.Progress != nil {
				s.Progress(current, total, v)
			}
			if err := s.upsertVideo(ff.folderID, v); err != nil {
				log.Printf("scan: failed to index video %s: %v", v, err)
				result.Skipped++
				continue
			}
			result.Videos++
		}

		removed, err := s.Store.DeletePhotosNotIn(ff.folderID, ff.photos)
		if err != nil {
			return result, fmt.Errorf("failed to prune folder %s: %w", path, err)
		}
		result.Removed += removed
		removed, err = s.Store.DeleteVideosNotIn(ff.folderID, ff.videos)
		if err != nil {
			return result, fmt.Errorf("failed to prune folder %s: %w", path, err)
		}
		result.Removed += removed
	}

	added, err := s.Store.AddProjectImages(s.ProjectID, database.BranchAll, mediaFiles)
	if err != nil {
		return result, fmt.Errorf("failed to register scanned files: %w", err)
	}
	// drop all-branch assignments whose files vanished
	if _, err := s.Store.RemoveBranchImagesNotIn(s.ProjectID, database.BranchAll, mediaFiles); err != nil {
		return result, fmt.Errorf("failed to prune stale assignments: %w", err)
	}
	log.Printf("scan: project %d indexed %d photos, %d videos (%d new assignments)",
		s.ProjectID, result.Photos, result.Videos, added)
	return result, nil
}

func (s *Scanner) upsertPhoto(folderID int64, path string) error {
	info, err := media.ExtractPhotoMetadata(path)
	if err != nil {
		return err
	}
	status := database.StatusPending
	if info.DateTaken != nil {
		status = database.StatusOK
	}
	return s.Store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path:           path,
		FolderID:       folderID,
		ProjectID:      s.ProjectID,
		SizeKB:         &info.SizeKB,
		Modified:       &info.Modified,
		Width:          info.Width,
		Height:         info.Height,
		DateTaken:      info.DateTaken,
		MetadataStatus: status,
	})
}

func (s *Scanner) upsertVideo(folderID int64, path string) error {
	info, err := media.ExtractVideoMetadata(path)
	if err != nil {
		return err
	}
	return s.Store.UpsertVideoMetadata(models.VideoMetadata{
		Path:           path,
		FolderID:       folderID,
		ProjectID:      s.ProjectID,
		SizeKB:         &info.SizeKB,
		Modified:       &info.Modified,
		MetadataStatus: database.StatusPending,
	})
}
