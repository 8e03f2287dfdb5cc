package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/camden-git/photovault/media"
)

// mergeSnapshot is the undo record stored with each merge. It captures every
// row the merge touches well enough to restore them byte for byte: full crop
// and project-image rows of the affected branches, the source branch rows,
// and the full summary rows including centroid and thumbnail blobs. Rows the
// merge deletes as duplicates are recreated from here, so the snapshot keeps
// whole rows, not just IDs. Blob fields round-trip through JSON as base64.
type mergeSnapshot struct {
	Target      string               `json:"target"`
	Sources     []string             `json:"sources"`
	Crops       []snapshotCrop       `json:"crops"`
	Assignments []snapshotAssignment `json:"assignments"`
	Branches    []snapshotBranch     `json:"branches"`
	Reps        []snapshotRep        `json:"reps"`
}

type snapshotCrop struct {
	ID               int64  `json:"id"`
	BranchKey        string `json:"branch_key"`
	ImagePath        string `json:"image_path"`
	CropPath         string `json:"crop_path"`
	IsRepresentative bool   `json:"is_representative"`
}

type snapshotAssignment struct {
	ID        int64   `json:"id"`
	BranchKey string  `json:"branch_key"`
	ImagePath string  `json:"image_path"`
	Label     *string `json:"label"`
}

type snapshotBranch struct {
	BranchKey   string `json:"branch_key"`
	DisplayName string `json:"display_name"`
}

type snapshotRep struct {
	BranchKey   string  `json:"branch_key"`
	Label       *string `json:"label"`
	Count       int64   `json:"count"`
	Centroid    []byte  `json:"centroid"`
	RepPath     *string `json:"rep_path"`
	RepThumbPNG []byte  `json:"rep_thumb_png"`
}

// MergeResult reports what a merge did.
type MergeResult struct {
	Target         string `json:"target"`
	MovedCrops     int64  `json:"moved_crops"`
	MovedImages    int64  `json:"moved_images"`
	SourcesRemoved int    `json:"sources_removed"`
	HistoryID      int64  `json:"history_id"`
}

// UndoResult reports what an undo restored.
type UndoResult struct {
	Target          string   `json:"target"`
	RestoredSources []string `json:"restored_sources"`
}

// MergeSuggestion is a pair of face branches whose centroids are close
// enough to plausibly be the same person. Distance is Euclidean; smaller
// means more similar.
type MergeSuggestion struct {
	BranchA  string  `json:"branch_a"`
	BranchB  string  `json:"branch_b"`
	Distance float64 `json:"distance"`
}

// MergeFaceClusters folds one or more source face branches into a target
// branch inside a single transaction. Crops and project-image assignments
// move to the target, so branch-based views keep resolving; a row already
// present there keeps the target copy and drops the source row. The
// source branch and summary rows are deleted and the target count becomes
// the real post-merge crop count. The target's centroid and representative
// are not recomputed; call RecomputeBranchRep for the representative, or
// rerun detection for the centroid. A snapshot of everything touched is
// appended to face_merge_history so the merge can be undone.
func (s *Store) MergeFaceClusters(projectID int64, target string, sources []string) (MergeResult, error) {
	if len(sources) == 0 {
		return MergeResult{}, fmt.Errorf("merge needs at least one source branch")
	}
	for _, src := range sources {
		if src == target {
			return MergeResult{}, fmt.Errorf("branch %s cannot be merged into itself", target)
		}
	}

	result := MergeResult{Target: target}
	err := s.withTx(func(tx *sql.Tx) error {
		snap, err := buildMergeSnapshot(tx, projectID, target, sources)
		if err != nil {
			return err
		}
		sourceCrops := 0
		for _, c := range snap.Crops {
			if c.BranchKey != target {
				sourceCrops++
			}
		}
		if sourceCrops == 0 {
			return fmt.Errorf("source branches have no face crops to merge")
		}

		for _, src := range sources {
			// move what can move, then drop crops the target already holds
			res, err := tx.Exec(`
				UPDATE face_crops SET branch_key = ?
				WHERE project_id = ? AND branch_key = ?
				AND crop_path NOT IN (
					SELECT crop_path FROM face_crops WHERE project_id = ? AND branch_key = ?
				)`,
				target, projectID, src, projectID, target,
			)
			if err != nil {
				return fmt.Errorf("failed to move crops from %s: %w", src, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			result.MovedCrops += n

			if _, err := tx.Exec(
				"DELETE FROM face_crops WHERE project_id = ? AND branch_key = ?",
				projectID, src,
			); err != nil {
				return fmt.Errorf("failed to drop duplicate crops of %s: %w", src, err)
			}

			// assignment rows follow their branch
			res, err = tx.Exec(
				"UPDATE OR IGNORE project_images SET branch_key = ? WHERE project_id = ? AND branch_key = ?",
				target, projectID, src,
			)
			if err != nil {
				return fmt.Errorf("failed to move assignments from %s: %w", src, err)
			}
			n, err = res.RowsAffected()
			if err != nil {
				return err
			}
			result.MovedImages += n
			if _, err := tx.Exec(
				"DELETE FROM project_images WHERE project_id = ? AND branch_key = ?",
				projectID, src,
			); err != nil {
				return fmt.Errorf("failed to drop duplicate assignments of %s: %w", src, err)
			}

			if _, err := tx.Exec(
				"DELETE FROM face_branch_reps WHERE project_id = ? AND branch_key = ?",
				projectID, src,
			); err != nil {
				return fmt.Errorf("failed to delete source rep %s: %w", src, err)
			}
			if _, err := tx.Exec(
				"DELETE FROM branches WHERE project_id = ? AND branch_key = ?",
				projectID, src,
			); err != nil {
				return fmt.Errorf("failed to delete source branch %s: %w", src, err)
			}
		}

		if _, err := tx.Exec(`
			UPDATE face_branch_reps
			SET count = (SELECT COUNT(*) FROM face_crops WHERE project_id = ? AND branch_key = ?)
			WHERE project_id = ? AND branch_key = ?`,
			projectID, target, projectID, target,
		); err != nil {
			return fmt.Errorf("failed to update target count: %w", err)
		}

		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to encode merge snapshot: %w", err)
		}
		res, err := tx.Exec(
			"INSERT INTO face_merge_history (project_id, target_branch, source_branches, snapshot, created_at) VALUES (?, ?, ?, ?, ?)",
			projectID, target, strings.Join(sources, ","), string(payload),
			s.now().Format("2006-01-02 15:04:05"),
		)
		if err != nil {
			return fmt.Errorf("failed to record merge history: %w", err)
		}
		result.HistoryID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		result.SourcesRemoved = len(sources)
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}
	return result, nil
}

func buildMergeSnapshot(tx *sql.Tx, projectID int64, target string, sources []string) (mergeSnapshot, error) {
	snap := mergeSnapshot{Target: target, Sources: sources}
	branches := append([]string{target}, sources...)

	for _, key := range branches {
		rows, err := tx.Query(
			"SELECT id, branch_key, image_path, crop_path, is_representative"+
				" FROM face_crops WHERE project_id = ? AND branch_key = ? ORDER BY id",
			projectID, key,
		)
		if err != nil {
			return snap, fmt.Errorf("failed to snapshot crops of %s: %w", key, err)
		}
		for rows.Next() {
			var c snapshotCrop
			if err := rows.Scan(&c.ID, &c.BranchKey, &c.ImagePath, &c.CropPath, &c.IsRepresentative); err != nil {
				rows.Close()
				return snap, fmt.Errorf("failed to scan crop snapshot: %w", err)
			}
			snap.Crops = append(snap.Crops, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return snap, err
		}

		rows, err = tx.Query(
			"SELECT id, branch_key, image_path, label"+
				" FROM project_images WHERE project_id = ? AND branch_key = ? ORDER BY id",
			projectID, key,
		)
		if err != nil {
			return snap, fmt.Errorf("failed to snapshot assignments of %s: %w", key, err)
		}
		for rows.Next() {
			var a snapshotAssignment
			if err := rows.Scan(&a.ID, &a.BranchKey, &a.ImagePath, &a.Label); err != nil {
				rows.Close()
				return snap, fmt.Errorf("failed to scan assignment snapshot: %w", err)
			}
			snap.Assignments = append(snap.Assignments, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return snap, err
		}

		var rep snapshotRep
		err = tx.QueryRow(
			"SELECT branch_key, label, count, centroid, rep_path, rep_thumb_png"+
				" FROM face_branch_reps WHERE project_id = ? AND branch_key = ?",
			projectID, key,
		).Scan(&rep.BranchKey, &rep.Label, &rep.Count, &rep.Centroid, &rep.RepPath, &rep.RepThumbPNG)
		switch err {
		case nil:
			snap.Reps = append(snap.Reps, rep)
		case sql.ErrNoRows:
		default:
			return snap, fmt.Errorf("failed to snapshot rep of %s: %w", key, err)
		}
	}

	for _, key := range sources {
		var b snapshotBranch
		err := tx.QueryRow(
			"SELECT branch_key, display_name FROM branches WHERE project_id = ? AND branch_key = ?",
			projectID, key,
		).Scan(&b.BranchKey, &b.DisplayName)
		switch err {
		case nil:
			snap.Branches = append(snap.Branches, b)
		case sql.ErrNoRows:
		default:
			return snap, fmt.Errorf("failed to snapshot branch %s: %w", key, err)
		}
	}
	return snap, nil
}

// UndoLastFaceMerge reverses the most recent merge of a project by replaying
// its snapshot: crop and assignment rows are written back exactly as
// recorded, IDs included, which also resurrects rows the merge deleted as
// duplicates. Source branch rows are recreated and every summary row is
// restored, thumbnail bytes included. The consumed history row is deleted.
func (s *Store) UndoLastFaceMerge(projectID int64) (UndoResult, error) {
	var result UndoResult
	err := s.withTx(func(tx *sql.Tx) error {
		var historyID int64
		var payload string
		err := tx.QueryRow(
			"SELECT id, snapshot FROM face_merge_history WHERE project_id = ? ORDER BY id DESC LIMIT 1",
			projectID,
		).Scan(&historyID, &payload)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("no merge to undo for project %d: %w", projectID, err)
			}
			return fmt.Errorf("failed to load merge history: %w", err)
		}

		var snap mergeSnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return fmt.Errorf("failed to decode merge snapshot: %w", err)
		}

		for _, b := range snap.Branches {
			if _, err := tx.Exec(
				"INSERT OR IGNORE INTO branches (project_id, branch_key, display_name) VALUES (?, ?, ?)",
				projectID, b.BranchKey, b.DisplayName,
			); err != nil {
				return fmt.Errorf("failed to restore branch %s: %w", b.BranchKey, err)
			}
		}
		for _, c := range snap.Crops {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO face_crops (id, project_id, branch_key, image_path, crop_path, is_representative)
				VALUES (?, ?, ?, ?, ?, ?)`,
				c.ID, projectID, c.BranchKey, c.ImagePath, c.CropPath, c.IsRepresentative,
			); err != nil {
				return fmt.Errorf("failed to restore crop %d: %w", c.ID, err)
			}
		}
		for _, a := range snap.Assignments {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO project_images (id, project_id, branch_key, image_path, label)
				VALUES (?, ?, ?, ?, ?)`,
				a.ID, projectID, a.BranchKey, a.ImagePath, a.Label,
			); err != nil {
				return fmt.Errorf("failed to restore assignment %d: %w", a.ID, err)
			}
		}
		for _, r := range snap.Reps {
			if _, err := tx.Exec(`
				INSERT INTO face_branch_reps (project_id, branch_key, label, count, centroid, rep_path, rep_thumb_png)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(project_id, branch_key) DO UPDATE SET
					label = excluded.label,
					count = excluded.count,
					centroid = excluded.centroid,
					rep_path = excluded.rep_path,
					rep_thumb_png = excluded.rep_thumb_png`,
				projectID, r.BranchKey, r.Label, r.Count, r.Centroid, r.RepPath, r.RepThumbPNG,
			); err != nil {
				return fmt.Errorf("failed to restore rep %s: %w", r.BranchKey, err)
			}
		}

		if _, err := tx.Exec("DELETE FROM face_merge_history WHERE id = ?", historyID); err != nil {
			return fmt.Errorf("failed to consume merge history: %w", err)
		}

		result.Target = snap.Target
		result.RestoredSources = snap.Sources
		return nil
	})
	if err != nil {
		return UndoResult{}, err
	}
	return result, nil
}

// MergeHistoryCount returns the number of undoable merges for a project.
func (s *Store) MergeHistoryCount(projectID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM face_merge_history WHERE project_id = ?", projectID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count merge history: %w", err)
	}
	return n, nil
}

// MergeSuggestions compares the stored centroids of every face branch pair
// with at least minMembers crops and returns the pairs within maxDistance of
// each other, closest first, capped at maxPairs. Branches without a centroid
// are skipped. The comparison is all-pairs; cluster counts stay small enough
// that this is fine.
func (s *Store) MergeSuggestions(projectID int64, maxDistance float64, minMembers int64, maxPairs int) ([]MergeSuggestion, error) {
	reps, err := s.ListBranchReps(projectID)
	if err != nil {
		return nil, err
	}

	type centroid struct {
		key string
		vec []float32
	}
	var centroids []centroid
	for _, r := range reps {
		if len(r.Centroid) == 0 || r.Count < minMembers {
			continue
		}
		vec, err := media.DecodeEmbedding(r.Centroid)
		if err != nil {
			return nil, fmt.Errorf("failed to decode centroid of %s: %w", r.BranchKey, err)
		}
		centroids = append(centroids, centroid{key: r.BranchKey, vec: vec})
	}

	var suggestions []MergeSuggestion
	for i := 0; i < len(centroids); i++ {
		for j := i + 1; j < len(centroids); j++ {
			dist := media.EuclideanDistance(centroids[i].vec, centroids[j].vec)
			if dist <= maxDistance {
				suggestions = append(suggestions, MergeSuggestion{
					BranchA:  centroids[i].key,
					BranchB:  centroids[j].key,
					Distance: dist,
				})
			}
		}
	}
	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Distance < suggestions[j].Distance
	})
	if maxPairs > 0 && len(suggestions) > maxPairs {
		suggestions = suggestions[:maxPairs]
	}
	return suggestions, nil
}
