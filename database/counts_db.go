package database

import (
	"fmt"
	"strings"
)

// MediaCounts is the recursive photo/video tally for one folder subtree.
type MediaCounts struct {
	Photos int64 `json:"photos"`
	Videos int64 `json:"videos"`
}

// folderTreeCTE expands a set of starting folders into (folder, root) pairs
// covering every descendant, so a single GROUP BY root_id yields subtree
// aggregates for all requested folders in one pass.
func folderTreeCTE(n int) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", n), ",")
	return `WITH RECURSIVE folder_tree(id, parent_id, root_id) AS (
		SELECT id, parent_id, id FROM photo_folders WHERE id IN (` + placeholders + `)
		UNION ALL
		SELECT f.id, f.parent_id, ft.root_id
		FROM photo_folders f
		JOIN folder_tree ft ON f.parent_id = ft.id
	)`
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func (s *Store) subtreeCountsBatch(table string, folderIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(folderIDs))
	if len(folderIDs) == 0 {
		return counts, nil
	}
	for _, id := range folderIDs {
		counts[id] = 0
	}

	query := folderTreeCTE(len(folderIDs)) + `
		SELECT ft.root_id, COUNT(m.id)
		FROM folder_tree ft
		LEFT JOIN ` + table + ` m ON m.folder_id = ft.id
		GROUP BY ft.root_id`

	rows, err := s.db.Query(query, int64Args(folderIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s subtree counts: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var root, n int64
		if err := rows.Scan(&root, &n); err != nil {
			return nil, fmt.Errorf("failed to scan subtree count row: %w", err)
		}
		counts[root] = n
	}
	return counts, rows.Err()
}

// FolderPhotoCountsBatch returns, for each requested folder, the number of
// photos in that folder and all of its descendants. Folders with no photos
// are present in the result with a zero count.
func (s *Store) FolderPhotoCountsBatch(folderIDs []int64) (map[int64]int64, error) {
	return s.subtreeCountsBatch("photo_metadata", folderIDs)
}

// FolderVideoCountsBatch is FolderPhotoCountsBatch for videos.
func (s *Store) FolderVideoCountsBatch(folderIDs []int64) (map[int64]int64, error) {
	return s.subtreeCountsBatch("video_metadata", folderIDs)
}

// FolderMediaCountsBatch combines the photo and video subtree tallies into
// one result per folder.
func (s *Store) FolderMediaCountsBatch(folderIDs []int64) (map[int64]MediaCounts, error) {
	photos, err := s.FolderPhotoCountsBatch(folderIDs)
	if err != nil {
		return nil, err
	}
	videos, err := s.FolderVideoCountsBatch(folderIDs)
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]MediaCounts, len(folderIDs))
	for _, id := range folderIDs {
		counts[id] = MediaCounts{Photos: photos[id], Videos: videos[id]}
	}
	return counts, nil
}

// RecursiveImageCount returns the photo count of one folder subtree.
func (s *Store) RecursiveImageCount(folderID int64) (int64, error) {
	counts, err := s.FolderPhotoCountsBatch([]int64{folderID})
	if err != nil {
		return 0, err
	}
	return counts[folderID], nil
}

// ProjectMediaCounts returns a project's total photo and video row counts.
func (s *Store) ProjectMediaCounts(projectID int64) (MediaCounts, error) {
	var c MediaCounts
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM photo_metadata WHERE project_id = ?", projectID,
	).Scan(&c.Photos)
	if err != nil {
		return c, fmt.Errorf("failed to count project photos: %w", err)
	}
	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM video_metadata WHERE project_id = ?", projectID,
	).Scan(&c.Videos)
	if err != nil {
		return c, fmt.Errorf("failed to count project videos: %w", err)
	}
	return c, nil
}
