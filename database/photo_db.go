package database

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/photovault/models"
)

const photoColumns = "id, path, folder_id, project_id, size_kb, modified, width, height, " +
	"date_taken, tags, updated_at, metadata_status, metadata_fail_count, " +
	"created_ts, created_date, created_year"

func scanPhotoRow(scanner interface{ Scan(...interface{}) error }) (models.PhotoMetadata, error) {
	var p models.PhotoMetadata
	err := scanner.Scan(
		&p.ID, &p.Path, &p.FolderID, &p.ProjectID, &p.SizeKB, &p.Modified,
		&p.Width, &p.Height, &p.DateTaken, &p.Tags, &p.UpdatedAt,
		&p.MetadataStatus, &p.MetadataFailCount,
		&p.CreatedTS, &p.CreatedDate, &p.CreatedYear,
	)
	return p, err
}

// photoUpsertSQL inserts a photo row or refreshes the existing one keyed on
// (path, project_id). File facts always win; capture-derived fields only
// overwrite when the new value is non-NULL, so a rescan that could not read
// EXIF never erases a previously extracted date. metadata_status is promoted
// to ok when the incoming row says ok and otherwise left alone, which also
// resets the fail counter on success.
const photoUpsertSQL = `
INSERT INTO photo_metadata
	(path, folder_id, project_id, size_kb, modified, width, height,
	 date_taken, updated_at, metadata_status,
	 created_ts, created_date, created_year)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, project_id) DO UPDATE SET
	folder_id = excluded.folder_id,
	size_kb = excluded.size_kb,
	modified = excluded.modified,
	width = COALESCE(excluded.width, photo_metadata.width),
	height = COALESCE(excluded.height, photo_metadata.height),
	date_taken = COALESCE(excluded.date_taken, photo_metadata.date_taken),
	updated_at = excluded.updated_at,
	metadata_status = CASE
		WHEN excluded.metadata_status = 'ok' THEN 'ok'
		ELSE photo_metadata.metadata_status
	END,
	metadata_fail_count = CASE
		WHEN excluded.metadata_status = 'ok' THEN 0
		ELSE photo_metadata.metadata_fail_count
	END,
	created_ts = COALESCE(excluded.created_ts, photo_metadata.created_ts),
	created_date = COALESCE(excluded.created_date, photo_metadata.created_date),
	created_year = COALESCE(excluded.created_year, photo_metadata.created_year)`

// UpsertPhotoMetadata writes one photo's metadata, deriving the created_*
// fields from DateTaken with Modified as fallback. The caller only needs to
// populate the extracted fields; CreatedTS/CreatedDate/CreatedYear on the
// input are ignored.
func (s *Store) UpsertPhotoMetadata(p models.PhotoMetadata) error {
	ts, date, year := deriveCreatedFields(p.DateTaken, p.Modified)
	status := p.MetadataStatus
	if status == "" {
		status = StatusPending
	}
	_, err := s.exec(photoUpsertSQL,
		p.Path, p.FolderID, p.ProjectID, p.SizeKB, p.Modified, p.Width, p.Height,
		p.DateTaken, s.now().Format("2006-01-02 15:04:05"), status,
		ts, date, year,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert photo metadata for %s: %w", p.Path, err)
	}
	return nil
}

// GetPhotoByPath returns one photo row, or sql.ErrNoRows.
func (s *Store) GetPhotoByPath(projectID int64, path string) (models.PhotoMetadata, error) {
	row := s.db.QueryRow(
		"SELECT "+photoColumns+" FROM photo_metadata WHERE project_id = ? AND path = ?",
		projectID, path,
	)
	return scanPhotoRow(row)
}

// ListPhotosInFolder returns the photos of a single folder ordered by path.
func (s *Store) ListPhotosInFolder(folderID int64) ([]models.PhotoMetadata, error) {
	rows, err := s.db.Query(
		"SELECT "+photoColumns+" FROM photo_metadata WHERE folder_id = ? ORDER BY path",
		folderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query folder photos: %w", err)
	}
	return collectPhotos(rows)
}

// ListPhotosInFolderTree returns the photos of a folder and every folder
// below it, ordered by path. The subtree is resolved level by level before
// the single photo query runs.
func (s *Store) ListPhotosInFolderTree(folderID int64) ([]models.PhotoMetadata, error) {
	ids, err := s.DescendantFolderIDs(folderID)
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := psql.
		Select(strings.Split(photoColumns, ", ")...).
		From("photo_metadata").
		Where(sq.Eq{"folder_id": ids}).
		OrderBy("path").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for subtree photos: %w", err)
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtree photos: %w", err)
	}
	return collectPhotos(rows)
}

// SetPhotoEmbedding stores the packed embedding blob for a photo.
func (s *Store) SetPhotoEmbedding(photoID int64, embedding []byte) error {
	res, err := s.exec(
		"UPDATE photo_metadata SET embedding = ? WHERE id = ?",
		embedding, photoID,
	)
	if err != nil {
		return fmt.Errorf("failed to set photo embedding: %w", err)
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

// PhotoEmbedding loads a photo's embedding blob; nil when none is stored.
func (s *Store) PhotoEmbedding(photoID int64) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRow(
		"SELECT embedding FROM photo_metadata WHERE id = ?", photoID,
	).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("failed to load photo embedding: %w", err)
	}
	return blob, nil
}

// DeletePhotosNotIn removes rows of a folder whose paths are no longer
// present on disk, returning the number removed. An empty keep list clears
// the folder.
func (s *Store) DeletePhotosNotIn(folderID int64, keepPaths []string) (int64, error) {
	if len(keepPaths) == 0 {
		res, err := s.exec("DELETE FROM photo_metadata WHERE folder_id = ?", folderID)
		if err != nil {
			return 0, fmt.Errorf("failed to clear folder photos: %w", err)
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
		"DELETE FROM photo_metadata WHERE folder_id = ? AND path NOT IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune folder photos: %w", err)
	}
	return res.RowsAffected()
}

// SearchPhotos returns photos of a project whose path matches the given
// substring, case-insensitively, capped at limit rows.
func (s *Store) SearchPhotos(projectID int64, query string, limit uint64) ([]models.PhotoMetadata, error) {
	sqlStr, args, err := psql.
		Select(photoColumns).
		From("photo_metadata").
		Where(sq.Eq{"project_id": projectID}).
		Where("path LIKE ? COLLATE NOCASE", "%"+query+"%").
		OrderBy("path").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for photo search: %w", err)
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search photos: %w", err)
	}
	return collectPhotos(rows)
}

func collectPhotos(rows *sql.Rows) ([]models.PhotoMetadata, error) {
	defer rows.Close()
	var photos []models.PhotoMetadata
	for rows.Next() {
		p, err := scanPhotoRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo row: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
