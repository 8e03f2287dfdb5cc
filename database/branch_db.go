package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/photovault/models"
)

func scanBranchRow(scanner interface{ Scan(...interface{}) error }) (models.Branch, error) {
	var b models.Branch
	err := scanner.Scan(&b.ID, &b.ProjectID, &b.BranchKey, &b.DisplayName)
	return b, err
}

// EnsureBranch creates the branch if it does not already exist. The unique
// (project_id, branch_key) index makes the insert a no-op on conflict.
func (s *Store) EnsureBranch(projectID int64, branchKey, displayName string) error {
	_, err := s.exec(
		"INSERT OR IGNORE INTO branches (project_id, branch_key, display_name) VALUES (?, ?, ?)",
		projectID, branchKey, displayName,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure branch %s: %w", branchKey, err)
	}
	return nil
}

// GetBranch returns a single branch, or sql.ErrNoRows.
func (s *Store) GetBranch(projectID int64, branchKey string) (models.Branch, error) {
	sqlStr, args, err := psql.
		Select("id", "project_id", "branch_key", "display_name").
		From("branches").
		Where(sq.Eq{"project_id": projectID, "branch_key": branchKey}).
		ToSql()
	if err != nil {
		return models.Branch{}, fmt.Errorf("failed to build SQL for branch select: %w", err)
	}
	return scanBranchRow(s.db.QueryRow(sqlStr, args...))
}

// ListBranches returns every branch of a project ordered by branch key.
func (s *Store) ListBranches(projectID int64) ([]models.Branch, error) {
	sqlStr, args, err := psql.
		Select("id", "project_id", "branch_key", "display_name").
		From("branches").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("branch_key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for branch list: %w", err)
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches: %w", err)
	}
	defer rows.Close()

	var branches []models.Branch
	for rows.Next() {
		b, err := scanBranchRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan branch row: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// RenameBranch updates a branch's display name.
func (s *Store) RenameBranch(projectID int64, branchKey, displayName string) error {
	sqlStr, args, err := psql.Update("branches").
		Set("display_name", displayName).
		Where(sq.Eq{"project_id": projectID, "branch_key": branchKey}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for branch rename: %w", err)
	}
	res, err := s.exec(sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to rename branch: %w", err)
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

// DeleteBranch removes a branch row along with its image assignments, face
// crops and summary row. The branch's images remain in the "all" branch.
func (s *Store) DeleteBranch(projectID int64, branchKey string) error {
	if branchKey == BranchAll {
		return fmt.Errorf("the %q branch cannot be deleted", BranchAll)
	}
	return s.withTx(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM project_images WHERE project_id = ? AND branch_key = ?",
			"DELETE FROM face_crops WHERE project_id = ? AND branch_key = ?",
			"DELETE FROM face_branch_reps WHERE project_id = ? AND branch_key = ?",
		} {
			if _, err := tx.Exec(stmt, projectID, branchKey); err != nil {
				return fmt.Errorf("failed to clear branch rows: %w", err)
			}
		}
		res, err := tx.Exec(
			"DELETE FROM branches WHERE project_id = ? AND branch_key = ?",
			projectID, branchKey,
		)
		if err != nil {
			return fmt.Errorf("failed to delete branch: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
