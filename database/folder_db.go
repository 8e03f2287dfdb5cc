package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/photovault/models"
)

func scanFolderRow(scanner interface{ Scan(...interface{}) error }) (models.PhotoFolder, error) {
	var f models.PhotoFolder
	err := scanner.Scan(&f.ID, &f.Name, &f.Path, &f.ParentID, &f.ProjectID)
	return f, err
}

// EnsureFolder inserts a folder row keyed on (project_id, path) if missing
// and returns the row's ID either way. parentID is nil for roots.
func (s *Store) EnsureFolder(projectID int64, name, path string, parentID *int64) (int64, error) {
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO photo_folders (name, path, parent_id, project_id) VALUES (?, ?, ?, ?)",
			name, path, parentID, projectID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert folder %s: %w", path, err)
		}
		err = tx.QueryRow(
			"SELECT id FROM photo_folders WHERE project_id = ? AND path = ?",
			projectID, path,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to look up folder %s: %w", path, err)
		}
		return nil
	})
	return id, err
}

// GetFolder returns a folder by ID, or sql.ErrNoRows.
func (s *Store) GetFolder(id int64) (models.PhotoFolder, error) {
	sqlStr, args, err := psql.
		Select("id", "name", "path", "parent_id", "project_id").
		From("photo_folders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.PhotoFolder{}, fmt.Errorf("failed to build SQL for folder select: %w", err)
	}
	return scanFolderRow(s.db.QueryRow(sqlStr, args...))
}

// GetFolderByPath returns the folder with the given path within a project.
func (s *Store) GetFolderByPath(projectID int64, path string) (models.PhotoFolder, error) {
	sqlStr, args, err := psql.
		Select("id", "name", "path", "parent_id", "project_id").
		From("photo_folders").
		Where(sq.Eq{"project_id": projectID, "path": path}).
		ToSql()
	if err != nil {
		return models.PhotoFolder{}, fmt.Errorf("failed to build SQL for folder lookup: %w", err)
	}
	return scanFolderRow(s.db.QueryRow(sqlStr, args...))
}

// ListChildFolders returns a folder's direct children ordered by name. Pass a
// nil parentID to list roots.
func (s *Store) ListChildFolders(projectID int64, parentID *int64) ([]models.PhotoFolder, error) {
	q := psql.
		Select("id", "name", "path", "parent_id", "project_id").
		From("photo_folders").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("name")
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where(sq.Eq{"parent_id": *parentID})
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for child folders: %w", err)
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query child folders: %w", err)
	}
	defer rows.Close()

	var folders []models.PhotoFolder
	for rows.Next() {
		f, err := scanFolderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder row: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// ListFolders returns every folder of a project ordered by path.
func (s *Store) ListFolders(projectID int64) ([]models.PhotoFolder, error) {
	sqlStr, args, err := psql.
		Select("id", "name", "path", "parent_id", "project_id").
		From("photo_folders").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("path").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for folder list: %w", err)
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []models.PhotoFolder
	for rows.Next() {
		f, err := scanFolderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder row: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// DescendantFolderIDs returns the IDs of a folder's subtree, the folder
// itself first, walking the hierarchy one level per query.
func (s *Store) DescendantFolderIDs(folderID int64) ([]int64, error) {
	ids := []int64{folderID}
	frontier := []int64{folderID}
	for len(frontier) > 0 {
		sqlStr, args, err := psql.
			Select("id").
			From("photo_folders").
			Where(sq.Eq{"parent_id": frontier}).
			OrderBy("id").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build SQL for descendant folders: %w", err)
		}
		rows, err := s.db.Query(sqlStr, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query descendant folders: %w", err)
		}
		var next []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan folder id: %w", err)
			}
			next = append(next, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		ids = append(ids, next...)
		frontier = next
	}
	return ids, nil
}

// DeleteFolder removes a folder row. Metadata rows referencing it are left
// for the caller to reconcile on the next scan.
func (s *Store) DeleteFolder(id int64) error {
	res, err := s.exec("DELETE FROM photo_folders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
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
