package database

import (
	"fmt"
	"log"
)

// IntegrityReport is the outcome of an integrity sweep: the raw result of
// PRAGMA integrity_check plus counts of rows whose parent went missing
// through the non-cascading foreign keys.
type IntegrityReport struct {
	Check           string `json:"check"`
	OrphanedPhotos  int64  `json:"orphaned_photos"`
	OrphanedVideos  int64  `json:"orphaned_videos"`
	OrphanedFolders int64  `json:"orphaned_folders"`
}

// OK reports whether the sweep found nothing wrong.
func (r IntegrityReport) OK() bool {
	return r.Check == "ok" && r.OrphanedPhotos == 0 && r.OrphanedVideos == 0 && r.OrphanedFolders == 0
}

// CheckIntegrity runs PRAGMA integrity_check and counts metadata and folder
// rows whose project or parent folder no longer exists.
func (s *Store) CheckIntegrity() (IntegrityReport, error) {
	var report IntegrityReport
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&report.Check); err != nil {
		return report, fmt.Errorf("failed to run integrity check: %w", err)
	}

	orphanQueries := []struct {
		dest  *int64
		query string
	}{
		{&report.OrphanedPhotos,
			"SELECT COUNT(*) FROM photo_metadata WHERE project_id NOT IN (SELECT id FROM projects)"},
		{&report.OrphanedVideos,
			"SELECT COUNT(*) FROM video_metadata WHERE project_id NOT IN (SELECT id FROM projects)"},
		{&report.OrphanedFolders,
			"SELECT COUNT(*) FROM photo_folders WHERE parent_id IS NOT NULL AND parent_id NOT IN (SELECT id FROM photo_folders)"},
	}
	for _, q := range orphanQueries {
		if err := s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			return report, fmt.Errorf("failed to count orphaned rows: %w", err)
		}
	}
	return report, nil
}

// VacuumAnalyze compacts the database file and refreshes planner statistics.
// VACUUM cannot run inside a transaction, so this takes the writer lock
// directly.
func (s *Store) VacuumAnalyze() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	if _, err := s.db.Exec("ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}
	log.Printf("database: vacuum and analyze completed for %s", s.path)
	return nil
}

// OptimizeIndexes runs PRAGMA optimize, letting SQLite rebuild whatever
// statistics it considers stale.
func (s *Store) OptimizeIndexes() error {
	if _, err := s.exec("PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize indexes: %w", err)
	}
	return nil
}
