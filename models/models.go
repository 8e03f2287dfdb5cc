package models

// Project is a top-level workspace rooted at a folder on disk.
type Project struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Folder    string `json:"folder"`
	Mode      string `json:"mode"`
	CreatedAt string `json:"created_at"`
}

// Branch is a named grouping of images within a project. The "all" branch
// holds every image; face_<n> branches hold face clusters; by_date:* branches
// hold capture-date groupings.
type Branch struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	BranchKey   string `json:"branch_key"`
	DisplayName string `json:"display_name"`
}

// ProjectImage associates an image path with a branch of a project.
type ProjectImage struct {
	ID        int64   `json:"id"`
	ProjectID int64   `json:"project_id"`
	BranchKey *string `json:"branch_key"`
	ImagePath string  `json:"image_path"`
	Label     *string `json:"label,omitempty"`
}

// FaceCrop is a single detected face, stored as a crop file on disk and
// assigned to a face branch.
type FaceCrop struct {
	ID               int64  `json:"id"`
	ProjectID        int64  `json:"project_id"`
	BranchKey        string `json:"branch_key"`
	ImagePath        string `json:"image_path"`
	CropPath         string `json:"crop_path"`
	IsRepresentative bool   `json:"is_representative"`
}

// BranchRep is the denormalized summary row for a face branch: a display
// label, crop count, embedding centroid, and a representative crop with its
// cached PNG thumbnail.
type BranchRep struct {
	ProjectID   int64   `json:"project_id"`
	BranchKey   string  `json:"branch_key"`
	Label       *string `json:"label"`
	Count       int64   `json:"count"`
	Centroid    []byte  `json:"centroid,omitempty"`
	RepPath     *string `json:"rep_path"`
	RepThumbPNG []byte  `json:"rep_thumb_png,omitempty"`
}

// PhotoFolder is one directory in the scanned tree. ParentID is nil for
// roots.
type PhotoFolder struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	ParentID  *int64 `json:"parent_id"`
	ProjectID *int64 `json:"project_id"`
}

// PhotoMetadata is the per-photo record. Nullable columns map to pointers;
// CreatedTS/CreatedDate/CreatedYear are derived from DateTaken falling back
// to Modified and are what date queries group on.
type PhotoMetadata struct {
	ID                int64    `json:"id"`
	Path              string   `json:"path"`
	FolderID          int64    `json:"folder_id"`
	ProjectID         int64    `json:"project_id"`
	SizeKB            *float64 `json:"size_kb"`
	Modified          *string  `json:"modified"`
	Width             *int64   `json:"width"`
	Height            *int64   `json:"height"`
	Embedding         []byte   `json:"-"`
	DateTaken         *string  `json:"date_taken"`
	Tags              *string  `json:"tags"`
	UpdatedAt         *string  `json:"updated_at"`
	MetadataStatus    string   `json:"metadata_status"`
	MetadataFailCount int64    `json:"metadata_fail_count"`
	CreatedTS         *int64   `json:"created_ts"`
	CreatedDate       *string  `json:"created_date"`
	CreatedYear       *int64   `json:"created_year"`
}

// VideoMetadata mirrors PhotoMetadata for video files, with stream-level
// fields and a separate thumbnail extraction status.
type VideoMetadata struct {
	ID              int64    `json:"id"`
	Path            string   `json:"path"`
	FolderID        int64    `json:"folder_id"`
	ProjectID       int64    `json:"project_id"`
	SizeKB          *float64 `json:"size_kb"`
	Modified        *string  `json:"modified"`
	DurationSeconds *float64 `json:"duration_seconds"`
	Width           *int64   `json:"width"`
	Height          *int64   `json:"height"`
	FPS             *float64 `json:"fps"`
	Codec           *string  `json:"codec"`
	Bitrate         *int64   `json:"bitrate"`
	DateTaken       *string  `json:"date_taken"`
	UpdatedAt       *string  `json:"updated_at"`
	MetadataStatus  string   `json:"metadata_status"`
	ThumbnailStatus string   `json:"thumbnail_status"`
	CreatedTS       *int64   `json:"created_ts"`
	CreatedDate     *string  `json:"created_date"`
	CreatedYear     *int64   `json:"created_year"`
}

// Tag is a case-insensitively unique label attached to photos.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ExportRecord is one row of export history.
type ExportRecord struct {
	ID         int64   `json:"id"`
	ProjectID  *int64  `json:"project_id"`
	BranchKey  *string `json:"branch_key"`
	PhotoCount int64   `json:"photo_count"`
	DestFolder string  `json:"dest_folder"`
	Timestamp  string  `json:"timestamp"`
}

// MatchAuditEntry records one matching or metadata-extraction event for later
// inspection.
type MatchAuditEntry struct {
	ID           int64    `json:"id"`
	Filename     string   `json:"filename"`
	MatchedLabel *string  `json:"matched_label"`
	Confidence   *float64 `json:"confidence"`
	MatchMode    *string  `json:"match_mode"`
	Timestamp    string   `json:"timestamp"`
}
