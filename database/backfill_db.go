package database

import (
	"database/sql"
	"fmt"

	"github.com/camden-git/photovault/models"
)

// BackfillStats summarizes extraction state over one metadata table.
type BackfillStats struct {
	Pending     int64 `json:"pending"`
	OK          int64 `json:"ok"`
	FailedRetry int64 `json:"failed_retry"`
	Failed      int64 `json:"failed"`
	Backfilled  int64 `json:"backfilled"`
}

// PendingPhotoMetadata returns up to limit photos still owed an extraction
// attempt: rows in pending, rows in failed_retry that have not hit the
// retry ceiling, and ok rows whose core fields are still null (a scan found
// the capture date but could not read the rest). Rows in failed are never
// returned.
func (s *Store) PendingPhotoMetadata(projectID *int64, limit uint64) ([]models.PhotoMetadata, error) {
	scope, args := scopeClause(projectID)
	args = append(args, StatusPending, StatusFailedRetry, DefaultMaxRetries, StatusOK, limit)
	rows, err := s.db.Query(
		"SELECT "+photoColumns+" FROM photo_metadata WHERE "+scope+
			" AND (metadata_status = ?"+
			" OR (metadata_status = ? AND metadata_fail_count < ?)"+
			" OR (metadata_status = ? AND (width IS NULL OR height IS NULL OR date_taken IS NULL)))"+
			" ORDER BY id LIMIT ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending photo metadata: %w", err)
	}
	return collectPhotos(rows)
}

// MarkPhotoMetadataOK records a successful extraction, clearing the fail
// counter.
func (s *Store) MarkPhotoMetadataOK(photoID int64) error {
	return s.markMetadataOK("photo_metadata", photoID)
}

// MarkPhotoMetadataFailed records a failed extraction attempt and advances
// the state machine: pending moves to failed_retry, and failed_retry moves
// to failed once the fail counter reaches the retry ceiling. Every failure
// also appends a match_audit row naming the resulting status.
func (s *Store) MarkPhotoMetadataFailed(photoID int64, reason string) (string, error) {
	var path, status string
	err := s.withTx(func(tx *sql.Tx) error {
		var failCount int64
		err := tx.QueryRow(
			"SELECT path, metadata_status, metadata_fail_count FROM photo_metadata WHERE id = ?",
			photoID,
		).Scan(&path, &status, &failCount)
		if err != nil {
			return fmt.Errorf("failed to load photo for failure mark: %w", err)
		}

		failCount++
		switch {
		case failCount >= DefaultMaxRetries:
			status = StatusFailed
		default:
			status = StatusFailedRetry
		}

		_, err = tx.Exec(
			"UPDATE photo_metadata SET metadata_status = ?, metadata_fail_count = ? WHERE id = ?",
			status, failCount, photoID,
		)
		if err != nil {
			return fmt.Errorf("failed to update photo failure state: %w", err)
		}

		_, err = tx.Exec(
			"INSERT INTO match_audit (filename, matched_label, match_mode, timestamp) VALUES (?, ?, ?, ?)",
			path, reason, "[meta_fail:"+status+"]", s.now().Format("2006-01-02 15:04:05"),
		)
		if err != nil {
			return fmt.Errorf("failed to record failure audit: %w", err)
		}
		return nil
	})
	return status, err
}

// MarkVideoMetadataOK records a successful video extraction.
func (s *Store) MarkVideoMetadataOK(videoID int64) error {
	return s.markMetadataOK("video_metadata", videoID)
}

func (s *Store) markMetadataOK(table string, id int64) error {
	var set string
	if table == "photo_metadata" {
		set = ", metadata_fail_count = 0"
	}
	res, err := s.exec(
		"UPDATE "+table+" SET metadata_status = ?, updated_at = ?"+set+" WHERE id = ?",
		StatusOK, s.now().Format("2006-01-02 15:04:05"), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark %s ok: %w", table, err)
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

// ResetMetadataFailures puts a retired or retrying photo back in the
// extraction queue with a clean failure count. Operator action for files
// that were fixed out of band.
func (s *Store) ResetMetadataFailures(projectID int64, path string) error {
	res, err := s.exec(`
		UPDATE photo_metadata
		SET metadata_status = ?, metadata_fail_count = 0
		WHERE path = ? AND project_id = ?`,
		StatusPending, path, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset metadata failures for %s: %w", path, err)
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

// BackfillCreatedFields recomputes created_ts/created_date/created_year for
// rows where they are missing but a source timestamp exists, returning the
// number of rows repaired. Older databases accumulated such rows before the
// derived columns existed.
func (s *Store) BackfillCreatedFields(projectID *int64) (int64, error) {
	return s.backfillCreatedFieldsIn("photo_metadata", projectID)
}

// BackfillVideoCreatedFields is BackfillCreatedFields for video rows.
func (s *Store) BackfillVideoCreatedFields(projectID *int64) (int64, error) {
	return s.backfillCreatedFieldsIn("video_metadata", projectID)
}

func (s *Store) backfillCreatedFieldsIn(table string, projectID *int64) (int64, error) {
	scope, scopeArgs := scopeClause(projectID)

	type candidate struct {
		id        int64
		dateTaken *string
		modified  *string
	}
	rows, err := s.db.Query(
		"SELECT id, date_taken, modified FROM "+table+" WHERE "+scope+
			" AND created_date IS NULL AND (date_taken IS NOT NULL OR modified IS NOT NULL)",
		scopeArgs...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query backfill candidates: %w", err)
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.dateTaken, &c.modified); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan backfill candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var repaired int64
	err = s.withTx(func(tx *sql.Tx) error {
		for _, c := range candidates {
			ts, date, year := deriveCreatedFields(c.dateTaken, c.modified)
			if date == nil {
				continue
			}
			_, err := tx.Exec(
				"UPDATE "+table+" SET created_ts = ?, created_date = ?, created_year = ? WHERE id = ?",
				ts, date, year, c.id,
			)
			if err != nil {
				return fmt.Errorf("failed to backfill created fields: %w", err)
			}
			repaired++
		}
		return nil
	})
	return repaired, err
}

// PhotoBackfillStats tallies photo rows per extraction status.
func (s *Store) PhotoBackfillStats(projectID *int64) (BackfillStats, error) {
	scope, scopeArgs := scopeClause(projectID)
	rows, err := s.db.Query(
		"SELECT metadata_status, COUNT(*) FROM photo_metadata WHERE "+scope+" GROUP BY metadata_status",
		scopeArgs...,
	)
	if err != nil {
		return BackfillStats{}, fmt.Errorf("failed to query backfill stats: %w", err)
	}
	defer rows.Close()

	var stats BackfillStats
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return BackfillStats{}, fmt.Errorf("failed to scan backfill stat row: %w", err)
		}
		switch status {
		case StatusPending:
			stats.Pending = n
		case StatusOK:
			stats.OK = n
		case StatusFailedRetry:
			stats.FailedRetry = n
		case StatusFailed:
			stats.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return BackfillStats{}, err
	}

	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM photo_metadata WHERE "+scope+" AND created_date IS NOT NULL",
		scopeArgs...,
	).Scan(&stats.Backfilled)
	if err != nil {
		return BackfillStats{}, fmt.Errorf("failed to count backfilled rows: %w", err)
	}
	return stats, nil
}

// RecordMatchAudit appends one audit row.
func (s *Store) RecordMatchAudit(filename string, matchedLabel *string, confidence *float64, matchMode string) error {
	_, err := s.exec(
		"INSERT INTO match_audit (filename, matched_label, confidence, match_mode, timestamp) VALUES (?, ?, ?, ?, ?)",
		filename, matchedLabel, confidence, matchMode, s.now().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to record match audit: %w", err)
	}
	return nil
}

// ListMatchAudit returns the newest audit rows up to limit.
func (s *Store) ListMatchAudit(limit uint64) ([]models.MatchAuditEntry, error) {
	rows, err := s.db.Query(
		"SELECT id, filename, matched_label, confidence, match_mode, timestamp FROM match_audit ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query match audit: %w", err)
	}
	defer rows.Close()

	var entries []models.MatchAuditEntry
	for rows.Next() {
		var e models.MatchAuditEntry
		if err := rows.Scan(&e.ID, &e.Filename, &e.MatchedLabel, &e.Confidence, &e.MatchMode, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
