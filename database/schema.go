package database

import (
	"fmt"
	"log"
)

// createTableStmts are issued in dependency order on every startup. All are
// IF NOT EXISTS so the call is idempotent on both fresh and existing files.
//
// Note the deliberate cascade asymmetry, kept from the historical schema:
// branches, project_images, face_crops and face_branch_reps cascade on
// project deletion, photo_metadata and video_metadata do not. Project
// deletion therefore leaves metadata rows behind unless the caller cleans
// them up explicitly (see DeleteProject).
var createTableStmts = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		folder TEXT NOT NULL,
		mode TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS branches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		branch_key TEXT NOT NULL,
		display_name TEXT NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		UNIQUE(project_id, branch_key)
	)`,
	`CREATE TABLE IF NOT EXISTS project_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		branch_key TEXT,
		image_path TEXT NOT NULL,
		label TEXT,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		UNIQUE(project_id, branch_key, image_path)
	)`,
	`CREATE TABLE IF NOT EXISTS face_crops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		branch_key TEXT NOT NULL,
		image_path TEXT NOT NULL,
		crop_path TEXT NOT NULL,
		is_representative INTEGER DEFAULT 0,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		UNIQUE(project_id, branch_key, crop_path)
	)`,
	`CREATE TABLE IF NOT EXISTS face_branch_reps (
		project_id INTEGER NOT NULL,
		branch_key TEXT NOT NULL,
		label TEXT,
		count INTEGER DEFAULT 0,
		centroid BLOB,
		rep_path TEXT,
		rep_thumb_png BLOB,
		PRIMARY KEY (project_id, branch_key),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS face_merge_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		target_branch TEXT NOT NULL,
		source_branches TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS export_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER,
		branch_key TEXT,
		photo_count INTEGER,
		source_paths TEXT,
		dest_paths TEXT,
		dest_folder TEXT,
		timestamp TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS match_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		matched_label TEXT,
		confidence REAL,
		match_mode TEXT,
		timestamp TEXT DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS photo_folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		parent_id INTEGER NULL,
		project_id INTEGER,
		FOREIGN KEY(parent_id) REFERENCES photo_folders(id),
		UNIQUE(project_id, path)
	)`,
	`CREATE TABLE IF NOT EXISTS photo_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		folder_id INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		size_kb REAL,
		modified TEXT,
		width INTEGER,
		height INTEGER,
		embedding BLOB,
		date_taken TEXT,
		tags TEXT,
		updated_at TEXT,
		metadata_status TEXT DEFAULT 'pending',
		metadata_fail_count INTEGER DEFAULT 0,
		created_ts INTEGER,
		created_date TEXT,
		created_year INTEGER,
		FOREIGN KEY(folder_id) REFERENCES photo_folders(id),
		UNIQUE(path, project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS video_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		folder_id INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		size_kb REAL,
		modified TEXT,
		duration_seconds REAL,
		width INTEGER,
		height INTEGER,
		fps REAL,
		codec TEXT,
		bitrate INTEGER,
		date_taken TEXT,
		updated_at TEXT,
		metadata_status TEXT DEFAULT 'pending',
		thumbnail_status TEXT DEFAULT 'pending',
		created_ts INTEGER,
		created_date TEXT,
		created_year INTEGER,
		FOREIGN KEY(folder_id) REFERENCES photo_folders(id),
		UNIQUE(path, project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL COLLATE NOCASE
	)`,
	`CREATE TABLE IF NOT EXISTS photo_tags (
		photo_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		PRIMARY KEY (photo_id, tag_id),
		FOREIGN KEY (photo_id) REFERENCES photo_metadata(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	)`,
}

// wantedColumns lists columns that may be missing on databases created by
// older releases. They are added with ALTER TABLE only when introspection
// shows them absent; add failures are logged and swallowed so a concurrently
// upgraded or locked database never blocks startup.
var wantedColumns = map[string][]struct {
	name string
	decl string
}{
	"photo_metadata": {
		{"size_kb", "REAL"},
		{"modified", "TEXT"},
		{"embedding", "BLOB"},
		{"date_taken", "TEXT"},
		{"tags", "TEXT"},
		{"updated_at", "TEXT"},
		{"metadata_status", "TEXT DEFAULT 'pending'"},
		{"metadata_fail_count", "INTEGER DEFAULT 0"},
		{"created_ts", "INTEGER"},
		{"created_date", "TEXT"},
		{"created_year", "INTEGER"},
	},
	"video_metadata": {
		{"duration_seconds", "REAL"},
		{"fps", "REAL"},
		{"codec", "TEXT"},
		{"bitrate", "INTEGER"},
		{"updated_at", "TEXT"},
		{"metadata_status", "TEXT DEFAULT 'pending'"},
		{"thumbnail_status", "TEXT DEFAULT 'pending'"},
		{"created_ts", "INTEGER"},
		{"created_date", "TEXT"},
		{"created_year", "INTEGER"},
	},
	"photo_folders": {
		{"project_id", "INTEGER"},
	},
	"project_images": {
		{"label", "TEXT"},
	},
}

var createIndexStmts = []string{
	`CREATE INDEX IF NOT EXISTS idx_branches_project ON branches(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_branches_key ON branches(project_id, branch_key)`,
	`CREATE INDEX IF NOT EXISTS idx_projimgs_project ON project_images(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_projimgs_branch ON project_images(project_id, branch_key)`,
	`CREATE INDEX IF NOT EXISTS idx_projimgs_path ON project_images(image_path)`,
	`CREATE INDEX IF NOT EXISTS idx_face_crops_proj ON face_crops(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_face_crops_proj_branch ON face_crops(project_id, branch_key)`,
	`CREATE INDEX IF NOT EXISTS idx_face_crops_proj_rep ON face_crops(project_id, is_representative)`,
	`CREATE INDEX IF NOT EXISTS idx_fbreps_proj ON face_branch_reps(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fbreps_proj_branch ON face_branch_reps(project_id, branch_key)`,
	`CREATE INDEX IF NOT EXISTS idx_folder_parent ON photo_folders(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_meta_date ON photo_metadata(date_taken)`,
	`CREATE INDEX IF NOT EXISTS idx_meta_modified ON photo_metadata(modified)`,
	`CREATE INDEX IF NOT EXISTS idx_meta_updated ON photo_metadata(updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_meta_folder ON photo_metadata(folder_id)`,
	`CREATE INDEX IF NOT EXISTS idx_meta_status ON photo_metadata(metadata_status)`,
	`CREATE INDEX IF NOT EXISTS idx_meta_path ON photo_metadata(path)`,
	`CREATE INDEX IF NOT EXISTS idx_photo_created_year ON photo_metadata(created_year)`,
	`CREATE INDEX IF NOT EXISTS idx_photo_created_date ON photo_metadata(created_date)`,
	`CREATE INDEX IF NOT EXISTS idx_photo_created_ts ON photo_metadata(created_ts)`,
	`CREATE INDEX IF NOT EXISTS idx_video_created_date ON video_metadata(created_date)`,
	`CREATE INDEX IF NOT EXISTS idx_video_folder ON video_metadata(folder_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name)`,
	`CREATE INDEX IF NOT EXISTS idx_photo_tags_photo ON photo_tags(photo_id)`,
	`CREATE INDEX IF NOT EXISTS idx_photo_tags_tag ON photo_tags(tag_id)`,
}

// ensureSchema creates missing tables, applies additive column migrations and
// creates indexes. Calling it N times yields the same schema as calling it
// once.
func (s *Store) ensureSchema() error {
	if err := s.renameLegacyTables(); err != nil {
		return err
	}

	for _, stmt := range createTableStmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for table, cols := range wantedColumns {
		existing, err := s.tableColumns(table)
		if err != nil {
			return fmt.Errorf("failed to inspect columns of %s: %w", table, err)
		}
		for _, col := range cols {
			if existing[col.name] {
				continue
			}
			alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.name, col.decl)
			if _, err := s.db.Exec(alter); err != nil {
				// best-effort: older locked or concurrently migrated databases
				// must not prevent startup
				log.Printf("warning: failed to add column %s.%s: %v", table, col.name, err)
			}
		}
	}

	for _, stmt := range createIndexStmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// renameLegacyTables performs the one-time singular->plural rename for
// databases created before the face_crops table was pluralized.
func (s *Store) renameLegacyTables() error {
	hasOld, err := s.tableExists("face_crop")
	if err != nil {
		return err
	}
	hasNew, err := s.tableExists("face_crops")
	if err != nil {
		return err
	}
	if hasOld && !hasNew {
		if _, err := s.db.Exec("ALTER TABLE face_crop RENAME TO face_crops"); err != nil {
			return fmt.Errorf("failed to rename legacy face_crop table: %w", err)
		}
		log.Println("database: renamed legacy face_crop table to face_crops")
	}
	return nil
}

func (s *Store) tableExists(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", name, err)
	}
	return n > 0, nil
}

// tableColumns returns the set of column names currently present on table.
func (s *Store) tableColumns(table string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
