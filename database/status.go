package database

// Metadata extraction lifecycle. A row starts as pending, moves to ok on a
// successful extraction, and cycles pending -> failed_retry until the retry
// ceiling turns it into the terminal failed state.
const (
	StatusPending     = "pending"
	StatusOK          = "ok"
	StatusFailedRetry = "failed_retry"
	StatusFailed      = "failed"
)

// DefaultMaxRetries is the ceiling for metadata_fail_count before a row is
// marked terminally failed.
const DefaultMaxRetries = 3

// Branch key conventions.
const (
	BranchAll        = "all"
	DateBranchPrefix = "by_date:"
	FaceBranchPrefix = "face_"
)
