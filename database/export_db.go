package database

import (
	"encoding/json"
	"fmt"

	"github.com/camden-git/photovault/models"
)

// RecordExport logs one completed export. Source and destination paths are
// stored as JSON arrays alongside the destination folder.
func (s *Store) RecordExport(projectID *int64, branchKey *string, destFolder string, sourcePaths, destPaths []string) (int64, error) {
	srcJSON, err := json.Marshal(sourcePaths)
	if err != nil {
		return 0, fmt.Errorf("failed to encode source paths: %w", err)
	}
	dstJSON, err := json.Marshal(destPaths)
	if err != nil {
		return 0, fmt.Errorf("failed to encode destination paths: %w", err)
	}
	res, err := s.exec(
		"INSERT INTO export_history (project_id, branch_key, photo_count, source_paths, dest_paths, dest_folder, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)",
		projectID, branchKey, len(sourcePaths), string(srcJSON), string(dstJSON),
		destFolder, s.now().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record export: %w", err)
	}
	return res.LastInsertId()
}

// ListExports returns the newest export records up to limit.
func (s *Store) ListExports(limit uint64) ([]models.ExportRecord, error) {
	rows, err := s.db.Query(
		"SELECT id, project_id, branch_key, photo_count, dest_folder, timestamp"+
			" FROM export_history ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query export history: %w", err)
	}
	defer rows.Close()

	var records []models.ExportRecord
	for rows.Next() {
		var r models.ExportRecord
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.BranchKey, &r.PhotoCount, &r.DestFolder, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ExportPaths returns the stored source and destination path lists of one
// export record.
func (s *Store) ExportPaths(exportID int64) (sources, dests []string, err error) {
	var srcJSON, dstJSON string
	err = s.db.QueryRow(
		"SELECT source_paths, dest_paths FROM export_history WHERE id = ?", exportID,
	).Scan(&srcJSON, &dstJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load export paths: %w", err)
	}
	if err := json.Unmarshal([]byte(srcJSON), &sources); err != nil {
		return nil, nil, fmt.Errorf("failed to decode source paths: %w", err)
	}
	if err := json.Unmarshal([]byte(dstJSON), &dests); err != nil {
		return nil, nil, fmt.Errorf("failed to decode destination paths: %w", err)
	}
	return sources, dests, nil
}
