package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/camden-git/photovault/models"
)

const videoColumns = "id, path, folder_id, project_id, size_kb, modified, duration_seconds, " +
	"width, height, fps, codec, bitrate, date_taken, updated_at, " +
	"metadata_status, thumbnail_status, created_ts, created_date, created_year"

func scanVideoRow(scanner interface{ Scan(...interface{}) error }) (models.VideoMetadata, error) {
	var v models.VideoMetadata
	err := scanner.Scan(
		&v.ID, &v.Path, &v.FolderID, &v.ProjectID, &v.SizeKB, &v.Modified,
		&v.DurationSeconds, &v.Width, &v.Height, &v.FPS, &v.Codec, &v.Bitrate,
		&v.DateTaken, &v.UpdatedAt, &v.MetadataStatus, &v.ThumbnailStatus,
		&v.CreatedTS, &v.CreatedDate, &v.CreatedYear,
	)
	return v, err
}

// videoUpsertSQL mirrors the photo upsert: file facts win, stream and
// capture fields only overwrite non-NULL, status promotes to ok only.
const videoUpsertSQL = `
INSERT INTO video_metadata
	(path, folder_id, project_id, size_kb, modified, duration_seconds,
	 width, height, fps, codec, bitrate, date_taken, updated_at,
	 metadata_status, created_ts, created_date, created_year)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, project_id) DO UPDATE SET
	folder_id = excluded.folder_id,
	size_kb = excluded.size_kb,
	modified = excluded.modified,
	duration_seconds = COALESCE(excluded.duration_seconds, video_metadata.duration_seconds),
	width = COALESCE(excluded.width, video_metadata.width),
	height = COALESCE(excluded.height, video_metadata.height),
	fps = COALESCE(excluded.fps, video_metadata.fps),
	codec = COALESCE(excluded.codec, video_metadata.codec),
	bitrate = COALESCE(excluded.bitrate, video_metadata.bitrate),
	date_taken = COALESCE(excluded.date_taken, video_metadata.date_taken),
	updated_at = excluded.updated_at,
	metadata_status = CASE
		WHEN excluded.metadata_status = 'ok' THEN 'ok'
		ELSE video_metadata.metadata_status
	END,
	created_ts = COALESCE(excluded.created_ts, video_metadata.created_ts),
	created_date = COALESCE(excluded.created_date, video_metadata.created_date),
	created_year = COALESCE(excluded.created_year, video_metadata.created_year)`

// UpsertVideoMetadata writes one video's metadata, deriving created_* the
// same way as photos.
func (s *Store) UpsertVideoMetadata(v models.VideoMetadata) error {
	ts, date, year := deriveCreatedFields(v.DateTaken, v.Modified)
	status := v.MetadataStatus
	if status == "" {
		status = StatusPending
	}
	_, err := s.exec(videoUpsertSQL,
		v.Path, v.FolderID, v.ProjectID, v.SizeKB, v.Modified, v.DurationSeconds,
		v.Width, v.Height, v.FPS, v.Codec, v.Bitrate, v.DateTaken,
		s.now().Format("2006-01-02 15:04:05"), status,
		ts, date, year,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert video metadata for %s: %w", v.Path, err)
	}
	return nil
}

// GetVideoByPath returns one video row, or sql.ErrNoRows.
func (s *Store) GetVideoByPath(projectID int64, path string) (models.VideoMetadata, error) {
	row := s.db.QueryRow(
		"SELECT "+videoColumns+" FROM video_metadata WHERE project_id = ? AND path = ?",
		projectID, path,
	)
	return scanVideoRow(row)
}

// ListVideosInFolder returns the videos of a single folder ordered by path.
func (s *Store) ListVideosInFolder(folderID int64) ([]models.VideoMetadata, error) {
	rows, err := s.db.Query(
		"SELECT "+videoColumns+" FROM video_metadata WHERE folder_id = ? ORDER BY path",
		folderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query folder videos: %w", err)
	}
	defer rows.Close()

	var videos []models.VideoMetadata
	for rows.Next() {
		v, err := scanVideoRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// SetVideoThumbnailStatus records the outcome of thumbnail extraction.
// DeleteVideosNotIn removes rows of a folder whose paths are no longer
// present on disk, returning the number removed. An empty keep list clears
// the folder.
func (s *Store) DeleteVideosNotIn(folderID int64, keepPaths []string) (int64, error) {
	if len(keepPaths) == 0 {
		res, err := s.exec("DELETE FROM video_metadata WHERE folder_id = ?", folderID)
		if err != nil {
			return 0, fmt.Errorf("failed to clear folder videos: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keepPaths)), ",")
	args := make([]interface{}, 0, len(keepPaths)+1)
	args = append(args, folderID)
	for _, p := range keepPaths {
		args = append(args, p)
	}
	res, err := s.exec(
		"DELETE FROM video_metadata WHERE folder_id = ? AND path NOT IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune folder videos: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) SetVideoThumbnailStatus(videoID int64, status string) error {
	res, err := s.exec(
		"UPDATE video_metadata SET thumbnail_status = ? WHERE id = ?",
		status, videoID,
	)
	if err != nil {
		return fmt.Errorf("failed to set video thumbnail status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
