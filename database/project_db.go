package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/photovault/models"
)

func scanProjectRow(scanner interface{ Scan(...interface{}) error }) (models.Project, error) {
	var p models.Project
	err := scanner.Scan(&p.ID, &p.Name, &p.Folder, &p.Mode, &p.CreatedAt)
	return p, err
}

// CreateProject inserts a project and seeds its "all" branch in the same
// transaction, returning the new project ID.
func (s *Store) CreateProject(name, folder, mode string) (int64, error) {
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		sqlStr, args, err := psql.Insert("projects").
			Columns("name", "folder", "mode").
			Values(name, folder, mode).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build SQL for project insert: %w", err)
		}
		res, err := tx.Exec(sqlStr, args...)
		if err != nil {
			return fmt.Errorf("failed to insert project: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO branches (project_id, branch_key, display_name) VALUES (?, ?, ?)",
			id, BranchAll, "All Images",
		)
		if err != nil {
			return fmt.Errorf("failed to seed all branch: %w", err)
		}
		return nil
	})
	return id, err
}

// GetProject returns the project with the given ID, or sql.ErrNoRows.
func (s *Store) GetProject(id int64) (models.Project, error) {
	sqlStr, args, err := psql.
		Select("id", "name", "folder", "mode", "created_at").
		From("projects").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Project{}, fmt.Errorf("failed to build SQL for project select: %w", err)
	}
	return scanProjectRow(s.db.QueryRow(sqlStr, args...))
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects() ([]models.Project, error) {
	sqlStr, args, err := psql.
		Select("id", "name", "folder", "mode", "created_at").
		From("projects").
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for project list: %w", err)
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// RenameProject updates a project's display name.
func (s *Store) RenameProject(id int64, name string) error {
	return s.updateProjectField(id, "name", name)
}

// SetProjectMode updates a project's mode string.
func (s *Store) SetProjectMode(id int64, mode string) error {
	return s.updateProjectField(id, "mode", mode)
}

func (s *Store) updateProjectField(id int64, column string, value interface{}) error {
	sqlStr, args, err := psql.Update("projects").
		Set(column, value).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for project update: %w", err)
	}
	res, err := s.exec(sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
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

// DeleteProject removes a project. Child rows in branches, project_images,
// face_crops and face_branch_reps go with it via cascade; metadata tables do
// not cascade on project, so they are cleared explicitly here.
func (s *Store) DeleteProject(id int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM photo_metadata WHERE project_id = ?",
			"DELETE FROM video_metadata WHERE project_id = ?",
			"DELETE FROM photo_folders WHERE project_id = ?",
			"DELETE FROM face_merge_history WHERE project_id = ?",
		} {
			if _, err := tx.Exec(stmt, id); err != nil {
				return fmt.Errorf("failed to clear project rows: %w", err)
			}
		}
		res, err := tx.Exec("DELETE FROM projects WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
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
