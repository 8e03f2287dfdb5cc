package database

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/photovault/models"
)

// AddProjectImages bulk-assigns image paths to a branch of a project. The
// unique (project_id, branch_key, image_path) index makes re-adding an
// already assigned image a no-op; the return value is the number of rows
// actually inserted.
func (s *Store) AddProjectImages(projectID int64, branchKey string, imagePaths []string) (int64, error) {
	if len(imagePaths) == 0 {
		return 0, nil
	}
	var added int64
	err := s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			"INSERT OR IGNORE INTO project_images (project_id, branch_key, image_path) VALUES (?, ?, ?)",
		)
		if err != nil {
			return fmt.Errorf("failed to prepare image insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range imagePaths {
			res, err := stmt.Exec(projectID, branchKey, p)
			if err != nil {
				return fmt.Errorf("failed to insert project image %s: %w", p, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += n
		}
		return nil
	})
	return added, err
}

// RemoveProjectImage unassigns one image from one branch.
func (s *Store) RemoveProjectImage(projectID int64, branchKey, imagePath string) error {
	res, err := s.exec(
		"DELETE FROM project_images WHERE project_id = ? AND branch_key = ? AND image_path = ?",
		projectID, branchKey, imagePath,
	)
	if err != nil {
		return fmt.Errorf("failed to remove project image: %w", err)
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

// ListBranchImages returns the image paths of a branch in natural-sort-ready
// insertion order.
func (s *Store) ListBranchImages(projectID int64, branchKey string) ([]string, error) {
	sqlStr, args, err := psql.
		Select("image_path").
		From("project_images").
		Where(sq.Eq{"project_id": projectID, "branch_key": branchKey}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for branch images: %w", err)
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query branch images: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan image path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListProjectImages returns every assignment row of a project.
func (s *Store) ListProjectImages(projectID int64) ([]models.ProjectImage, error) {
	sqlStr, args, err := psql.
		Select("id", "project_id", "branch_key", "image_path", "label").
		From("project_images").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for project images: %w", err)
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query project images: %w", err)
	}
	defer rows.Close()

	var images []models.ProjectImage
	for rows.Next() {
		var img models.ProjectImage
		if err := rows.Scan(&img.ID, &img.ProjectID, &img.BranchKey, &img.ImagePath, &img.Label); err != nil {
			return nil, fmt.Errorf("failed to scan project image row: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// RemoveBranchImagesNotIn prunes a branch's assignments down to the given
// path list, returning the number removed. An empty keep list clears the
// branch.
func (s *Store) RemoveBranchImagesNotIn(projectID int64, branchKey string, keepPaths []string) (int64, error) {
	if len(keepPaths) == 0 {
		res, err := s.exec(
			"DELETE FROM project_images WHERE project_id = ? AND branch_key = ?",
			projectID, branchKey,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to clear branch images: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keepPaths)), ",")
	args := make([]interface{}, 0, len(keepPaths)+2)
	args = append(args, projectID, branchKey)
	for _, p := range keepPaths {
		args = append(args, p)
	}
	res, err := s.exec(
		"DELETE FROM project_images WHERE project_id = ? AND branch_key = ? AND image_path NOT IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune branch images: %w", err)
	}
	return res.RowsAffected()
}

// BranchImageCount returns the number of images assigned to a branch.
func (s *Store) BranchImageCount(projectID int64, branchKey string) (int64, error) {
	var n int64
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM project_images WHERE project_id = ? AND branch_key = ?",
		projectID, branchKey,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count branch images: %w", err)
	}
	return n, nil
}
