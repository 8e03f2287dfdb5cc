package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/camden-git/photovault/models"
)

func scanFaceCropRow(scanner interface{ Scan(...interface{}) error }) (models.FaceCrop, error) {
	var c models.FaceCrop
	var rep int64
	err := scanner.Scan(&c.ID, &c.ProjectID, &c.BranchKey, &c.ImagePath, &c.CropPath, &rep)
	c.IsRepresentative = rep != 0
	return c, err
}

// AddFaceCrop records one detected face. Re-adding the same crop path to the
// same branch is a no-op; the return value reports whether a row was
// inserted.
func (s *Store) AddFaceCrop(projectID int64, branchKey, imagePath, cropPath string) (bool, error) {
	res, err := s.exec(
		"INSERT OR IGNORE INTO face_crops (project_id, branch_key, image_path, crop_path) VALUES (?, ?, ?, ?)",
		projectID, branchKey, imagePath, cropPath,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add face crop: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFaceCrops returns the crops of one face branch in insertion order.
func (s *Store) ListFaceCrops(projectID int64, branchKey string) ([]models.FaceCrop, error) {
	rows, err := s.db.Query(
		"SELECT id, project_id, branch_key, image_path, crop_path, is_representative"+
			" FROM face_crops WHERE project_id = ? AND branch_key = ? ORDER BY id",
		projectID, branchKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query face crops: %w", err)
	}
	return collectFaceCrops(rows)
}

// ProcessedImagePaths returns the set of image paths that already have at
// least one face crop, so detection can skip them on re-runs.
func (s *Store) ProcessedImagePaths(projectID int64) (map[string]bool, error) {
	rows, err := s.db.Query(
		"SELECT DISTINCT image_path FROM face_crops WHERE project_id = ?", projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed images: %w", err)
	}
	defer rows.Close()

	paths := map[string]bool{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan image path: %w", err)
		}
		paths[p] = true
	}
	return paths, rows.Err()
}

// NextFaceBranchKey allocates the next unused face_<n> key for a project.
func (s *Store) NextFaceBranchKey(projectID int64) (string, error) {
	rows, err := s.db.Query(
		"SELECT DISTINCT branch_key FROM face_crops WHERE project_id = ? AND branch_key LIKE ?",
		projectID, FaceBranchPrefix+"%",
	)
	if err != nil {
		return "", fmt.Errorf("failed to query face branch keys: %w", err)
	}
	defer rows.Close()

	max := -1
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return "", fmt.Errorf("failed to scan branch key: %w", err)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(key, FaceBranchPrefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return FaceBranchPrefix + strconv.Itoa(max+1), nil
}

// UpsertBranchRep writes the full summary row for a face branch.
func (s *Store) UpsertBranchRep(rep models.BranchRep) error {
	_, err := s.exec(`
		INSERT INTO face_branch_reps (project_id, branch_key, label, count, centroid, rep_path, rep_thumb_png)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, branch_key) DO UPDATE SET
			label = excluded.label,
			count = excluded.count,
			centroid = excluded.centroid,
			rep_path = excluded.rep_path,
			rep_thumb_png = excluded.rep_thumb_png`,
		rep.ProjectID, rep.BranchKey, rep.Label, rep.Count, rep.Centroid, rep.RepPath, rep.RepThumbPNG,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert branch rep: %w", err)
	}
	return nil
}

// GetBranchRep returns one face branch's summary row, or sql.ErrNoRows.
func (s *Store) GetBranchRep(projectID int64, branchKey string) (models.BranchRep, error) {
	var r models.BranchRep
	err := s.db.QueryRow(
		"SELECT project_id, branch_key, label, count, centroid, rep_path, rep_thumb_png"+
			" FROM face_branch_reps WHERE project_id = ? AND branch_key = ?",
		projectID, branchKey,
	).Scan(&r.ProjectID, &r.BranchKey, &r.Label, &r.Count, &r.Centroid, &r.RepPath, &r.RepThumbPNG)
	return r, err
}

// ListBranchReps returns every face branch summary of a project, largest
// cluster first.
func (s *Store) ListBranchReps(projectID int64) ([]models.BranchRep, error) {
	rows, err := s.db.Query(
		"SELECT project_id, branch_key, label, count, centroid, rep_path, rep_thumb_png"+
			" FROM face_branch_reps WHERE project_id = ? ORDER BY count DESC, branch_key",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query branch reps: %w", err)
	}
	defer rows.Close()

	var reps []models.BranchRep
	for rows.Next() {
		var r models.BranchRep
		if err := rows.Scan(&r.ProjectID, &r.BranchKey, &r.Label, &r.Count, &r.Centroid, &r.RepPath, &r.RepThumbPNG); err != nil {
			return nil, fmt.Errorf("failed to scan branch rep row: %w", err)
		}
		reps = append(reps, r)
	}
	return reps, rows.Err()
}

// SetBranchLabel names a face cluster.
func (s *Store) SetBranchLabel(projectID int64, branchKey, label string) error {
	res, err := s.exec(
		"UPDATE face_branch_reps SET label = ? WHERE project_id = ? AND branch_key = ?",
		label, projectID, branchKey,
	)
	if err != nil {
		return fmt.Errorf("failed to set branch label: %w", err)
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

// RecomputeBranchRep refreshes a branch's crop count and representative crop
// from the face_crops table. The first crop of the branch becomes the
// representative when none is flagged. The stored centroid is left alone:
// recomputing it needs the original embeddings, which live with the
// detection pipeline, not here.
func (s *Store) RecomputeBranchRep(projectID int64, branchKey string) (models.BranchRep, error) {
	var rep models.BranchRep
	err := s.withTx(func(tx *sql.Tx) error {
		var count int64
		err := tx.QueryRow(
			"SELECT COUNT(*) FROM face_crops WHERE project_id = ? AND branch_key = ?",
			projectID, branchKey,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count branch crops: %w", err)
		}

		var repPath *string
		err = tx.QueryRow(
			"SELECT crop_path FROM face_crops WHERE project_id = ? AND branch_key = ?"+
				" ORDER BY is_representative DESC, id LIMIT 1",
			projectID, branchKey,
		).Scan(&repPath)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to pick representative crop: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO face_branch_reps (project_id, branch_key, count, rep_path)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(project_id, branch_key) DO UPDATE SET
				count = excluded.count,
				rep_path = excluded.rep_path`,
			projectID, branchKey, count, repPath,
		)
		if err != nil {
			return fmt.Errorf("failed to store recomputed rep: %w", err)
		}

		return tx.QueryRow(
			"SELECT project_id, branch_key, label, count, centroid, rep_path, rep_thumb_png"+
				" FROM face_branch_reps WHERE project_id = ? AND branch_key = ?",
			projectID, branchKey,
		).Scan(&rep.ProjectID, &rep.BranchKey, &rep.Label, &rep.Count, &rep.Centroid, &rep.RepPath, &rep.RepThumbPNG)
	})
	return rep, err
}

func collectFaceCrops(rows *sql.Rows) ([]models.FaceCrop, error) {
	defer rows.Close()
	var crops []models.FaceCrop
	for rows.Next() {
		c, err := scanFaceCropRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan face crop row: %w", err)
		}
		crops = append(crops, c)
	}
	return crops, rows.Err()
}
