package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/camden-git/photovault/models"
)

// EnsureTag returns the ID of the tag with the given name, creating it if
// necessary. Names compare case-insensitively, so "Beach" and "beach"
// resolve to the same row.
func (s *Store) EnsureTag(name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("tag name cannot be empty")
	}
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT OR IGNORE INTO tags (name) VALUES (?)", name)
		if err != nil {
			return fmt.Errorf("failed to insert tag %s: %w", name, err)
		}
		err = tx.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to look up tag %s: %w", name, err)
		}
		return nil
	})
	return id, err
}

// TagPhoto attaches a tag to a photo; attaching twice is a no-op.
func (s *Store) TagPhoto(photoID, tagID int64) error {
	_, err := s.exec(
		"INSERT OR IGNORE INTO photo_tags (photo_id, tag_id) VALUES (?, ?)",
		photoID, tagID,
	)
	if err != nil {
		return fmt.Errorf("failed to tag photo: %w", err)
	}
	return nil
}

// UntagPhoto detaches a tag from a photo.
func (s *Store) UntagPhoto(photoID, tagID int64) error {
	res, err := s.exec(
		"DELETE FROM photo_tags WHERE photo_id = ? AND tag_id = ?",
		photoID, tagID,
	)
	if err != nil {
		return fmt.Errorf("failed to untag photo: %w", err)
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

// PhotoTags returns the tags attached to a photo, sorted by name.
func (s *Store) PhotoTags(photoID int64) ([]models.Tag, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name FROM tags t
		JOIN photo_tags pt ON pt.tag_id = t.id
		WHERE pt.photo_id = ?
		ORDER BY t.name`, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photo tags: %w", err)
	}
	return collectTags(rows)
}

// ListTags returns all tags with usage counts, most used first.
func (s *Store) ListTags() ([]models.Tag, map[int64]int64, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, COUNT(pt.photo_id)
		FROM tags t
		LEFT JOIN photo_tags pt ON pt.tag_id = t.id
		GROUP BY t.id
		ORDER BY COUNT(pt.photo_id) DESC, t.name`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	counts := map[int64]int64{}
	for rows.Next() {
		var t models.Tag
		var n int64
		if err := rows.Scan(&t.ID, &t.Name, &n); err != nil {
			return nil, nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, t)
		counts[t.ID] = n
	}
	return tags, counts, rows.Err()
}

// PhotosWithTag returns the photos of a project carrying the given tag.
func (s *Store) PhotosWithTag(projectID, tagID int64) ([]models.PhotoMetadata, error) {
	rows, err := s.db.Query(`
		SELECT `+prefixColumns("p", photoColumns)+` FROM photo_metadata p
		JOIN photo_tags pt ON pt.photo_id = p.id
		WHERE p.project_id = ? AND pt.tag_id = ?
		ORDER BY p.path`, projectID, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tagged photos: %w", err)
	}
	return collectPhotos(rows)
}

// RenameTag changes a tag's name. If another tag already carries the new
// name (case-insensitively), the two merge: photo associations re-point to
// the existing tag and the old row is deleted. Returns the surviving tag ID.
func (s *Store) RenameTag(tagID int64, newName string) (int64, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return 0, fmt.Errorf("tag name cannot be empty")
	}
	survivor := tagID
	err := s.withTx(func(tx *sql.Tx) error {
		var oldName string
		err := tx.QueryRow("SELECT name FROM tags WHERE id = ?", tagID).Scan(&oldName)
		if err != nil {
			return err
		}

		var existingID int64
		err = tx.QueryRow("SELECT id FROM tags WHERE name = ? AND id != ?", newName, tagID).Scan(&existingID)
		if err == sql.ErrNoRows {
			_, err = tx.Exec("UPDATE tags SET name = ? WHERE id = ?", newName, tagID)
			if err != nil {
				return fmt.Errorf("failed to rename tag %s: %w", oldName, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up tag %s: %w", newName, err)
		}

		// merge: move associations, drop duplicates, delete the old tag
		_, err = tx.Exec(`
			UPDATE OR IGNORE photo_tags SET tag_id = ? WHERE tag_id = ?`,
			existingID, tagID)
		if err != nil {
			return fmt.Errorf("failed to move tag associations: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM photo_tags WHERE tag_id = ?", tagID); err != nil {
			return fmt.Errorf("failed to clear old tag associations: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM tags WHERE id = ?", tagID); err != nil {
			return fmt.Errorf("failed to delete merged tag %s: %w", oldName, err)
		}
		survivor = existingID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return survivor, nil
}

// DeleteTag removes a tag and, via cascade, its photo associations.
func (s *Store) DeleteTag(tagID int64) error {
	res, err := s.exec("DELETE FROM tags WHERE id = ?", tagID)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
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

func collectTags(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()
	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// prefixColumns rewrites a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
