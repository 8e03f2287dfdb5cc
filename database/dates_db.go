package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/camden-git/photovault/models"
)

// Quick-date window keys.
const (
	WindowToday           = "today"
	WindowThisWeek        = "this-week"
	WindowThisMonth       = "this-month"
	WindowLast30Days      = "last-30d"
	WindowThisYear        = "this-year"
	WindowRecentlyIndexed = "indexed-7d"
)

// QuickDateCounts holds the media count of each predefined capture-date
// window. All windows except RecentlyIndexed are computed over created_date;
// RecentlyIndexed is computed over updated_at, so it reflects scan time
// rather than capture time.
type QuickDateCounts struct {
	Today           int64 `json:"today"`
	ThisWeek        int64 `json:"this_week"`
	ThisMonth       int64 `json:"this_month"`
	Last30Days      int64 `json:"last_30_days"`
	ThisYear        int64 `json:"this_year"`
	RecentlyIndexed int64 `json:"recently_indexed"`
}

// DayCount is one calendar day's media tally.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// MonthCount is one calendar month's tally with its per-day breakdown.
type MonthCount struct {
	Month string     `json:"month"`
	Count int64      `json:"count"`
	Days  []DayCount `json:"days"`
}

// YearCount is one year's tally with its per-month breakdown.
type YearCount struct {
	Year   int64        `json:"year"`
	Count  int64        `json:"count"`
	Months []MonthCount `json:"months"`
}

// windowStart returns the inclusive start date of a capture-date window
// relative to now. ThisWeek starts on Monday.
func windowStart(key string, now time.Time) (string, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch key {
	case WindowToday:
		return today.Format("2006-01-02"), nil
	case WindowThisWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -offset).Format("2006-01-02"), nil
	case WindowThisMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02"), nil
	case WindowLast30Days:
		return today.AddDate(0, 0, -30).Format("2006-01-02"), nil
	case WindowThisYear:
		return time.Date(y, 1, 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02"), nil
	}
	return "", fmt.Errorf("unknown date window %q", key)
}

// scopeClause narrows a query to one project, or leaves it global when
// projectID is nil.
func scopeClause(projectID *int64) (string, []interface{}) {
	if projectID == nil {
		return "1=1", nil
	}
	return "project_id = ?", []interface{}{*projectID}
}

func (s *Store) windowCount(table, key string, projectID *int64) (int64, error) {
	scope, args := scopeClause(projectID)
	var query string
	if key == WindowRecentlyIndexed {
		cutoff := s.now().AddDate(0, 0, -7).Format("2006-01-02 15:04:05")
		query = "SELECT COUNT(*) FROM " + table + " WHERE " + scope + " AND updated_at >= ?"
		args = append(args, cutoff)
	} else {
		start, err := windowStart(key, s.now())
		if err != nil {
			return 0, err
		}
		end := s.now().Format("2006-01-02")
		query = "SELECT COUNT(*) FROM " + table + " WHERE " + scope +
			" AND created_date IS NOT NULL AND created_date BETWEEN ? AND ?"
		args = append(args, start, end)
	}
	var n int64
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s window %s: %w", table, key, err)
	}
	return n, nil
}

// CountQuickDates computes every quick-date window over photos and videos
// combined, scoped to one project or global when projectID is nil.
func (s *Store) CountQuickDates(projectID *int64) (QuickDateCounts, error) {
	var c QuickDateCounts
	targets := []struct {
		key  string
		dest *int64
	}{
		{WindowToday, &c.Today},
		{WindowThisWeek, &c.ThisWeek},
		{WindowThisMonth, &c.ThisMonth},
		{WindowLast30Days, &c.Last30Days},
		{WindowThisYear, &c.ThisYear},
		{WindowRecentlyIndexed, &c.RecentlyIndexed},
	}
	for _, t := range targets {
		for _, table := range []string{"photo_metadata", "video_metadata"} {
			n, err := s.windowCount(table, t.key, projectID)
			if err != nil {
				return QuickDateCounts{}, err
			}
			*t.dest += n
		}
	}
	return c, nil
}

// CountByDate returns the full year/month/day capture-date hierarchy in one
// round trip. Photos and videos are tallied together; month and year totals
// are rolled up in memory from the per-day rows. Rows without a derivable
// capture date are excluded.
func (s *Store) CountByDate(projectID *int64) ([]YearCount, error) {
	scope, scopeArgs := scopeClause(projectID)
	query := `
		SELECT created_year, substr(created_date, 1, 7) AS month, created_date, COUNT(*) FROM (
			SELECT project_id, created_year, created_date FROM photo_metadata
			UNION ALL
			SELECT project_id, created_year, created_date FROM video_metadata
		) WHERE ` + scope + ` AND created_date IS NOT NULL AND created_year IS NOT NULL
		GROUP BY created_year, month, created_date
		ORDER BY created_year DESC, month DESC, created_date DESC`

	rows, err := s.db.Query(query, scopeArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query date counts: %w", err)
	}
	defer rows.Close()

	var years []YearCount
	for rows.Next() {
		var year int64
		var month, date string
		var n int64
		if err := rows.Scan(&year, &month, &date, &n); err != nil {
			return nil, fmt.Errorf("failed to scan date count row: %w", err)
		}

		if len(years) == 0 || years[len(years)-1].Year != year {
			years = append(years, YearCount{Year: year})
		}
		yc := &years[len(years)-1]
		yc.Count += n

		if len(yc.Months) == 0 || yc.Months[len(yc.Months)-1].Month != month {
			yc.Months = append(yc.Months, MonthCount{Month: month})
		}
		mc := &yc.Months[len(yc.Months)-1]
		mc.Count += n
		mc.Days = append(mc.Days, DayCount{Date: date, Count: n})
	}
	return years, rows.Err()
}

// PhotosByDateRange returns the photos whose capture date falls inside
// [start, end], both inclusive YYYY-MM-DD strings, newest first.
func (s *Store) PhotosByDateRange(projectID *int64, start, end string) ([]models.PhotoMetadata, error) {
	scope, args := scopeClause(projectID)
	args = append(args, start, end)
	rows, err := s.db.Query(
		"SELECT "+photoColumns+" FROM photo_metadata WHERE "+scope+
			" AND created_date BETWEEN ? AND ? ORDER BY created_ts DESC, path",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos by date range: %w", err)
	}
	return collectPhotos(rows)
}

// PhotosByDate returns the photos captured on one calendar day.
func (s *Store) PhotosByDate(projectID *int64, date string) ([]models.PhotoMetadata, error) {
	return s.PhotosByDateRange(projectID, date, date)
}

// PhotosByMonth returns the photos of one YYYY-MM month.
func (s *Store) PhotosByMonth(projectID *int64, month string) ([]models.PhotoMetadata, error) {
	scope, args := scopeClause(projectID)
	args = append(args, month)
	rows, err := s.db.Query(
		"SELECT "+photoColumns+" FROM photo_metadata WHERE "+scope+
			" AND substr(created_date, 1, 7) = ? ORDER BY created_ts DESC, path",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos by month: %w", err)
	}
	return collectPhotos(rows)
}

// PhotosByYear returns the photos of one year.
func (s *Store) PhotosByYear(projectID *int64, year int64) ([]models.PhotoMetadata, error) {
	scope, args := scopeClause(projectID)
	args = append(args, year)
	rows, err := s.db.Query(
		"SELECT "+photoColumns+" FROM photo_metadata WHERE "+scope+
			" AND created_year = ? ORDER BY created_ts DESC, path",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos by year: %w", err)
	}
	return collectPhotos(rows)
}

// PhotosInWindow returns the photos of one quick-date window, newest first.
func (s *Store) PhotosInWindow(projectID *int64, key string) ([]models.PhotoMetadata, error) {
	scope, args := scopeClause(projectID)
	var query string
	if key == WindowRecentlyIndexed {
		cutoff := s.now().AddDate(0, 0, -7).Format("2006-01-02 15:04:05")
		query = "SELECT " + photoColumns + " FROM photo_metadata WHERE " + scope +
			" AND updated_at >= ? ORDER BY updated_at DESC, path"
		args = append(args, cutoff)
	} else {
		start, err := windowStart(key, s.now())
		if err != nil {
			return nil, err
		}
		query = "SELECT " + photoColumns + " FROM photo_metadata WHERE " + scope +
			" AND created_date BETWEEN ? AND ? ORDER BY created_ts DESC, path"
		args = append(args, start, s.now().Format("2006-01-02"))
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query window photos: %w", err)
	}
	return collectPhotos(rows)
}

// PhotosForQuickKey resolves a user-facing date key to the matching photos.
// Beyond the named windows it accepts concrete dates: a "date:" prefix is
// stripped, then "YYYY", "YYYY-MM" and "YYYY-MM-DD" select a year, month or
// day directly.
func (s *Store) PhotosForQuickKey(projectID *int64, key string) ([]models.PhotoMetadata, error) {
	key = strings.TrimPrefix(key, "date:")
	switch key {
	case WindowToday, WindowThisWeek, WindowThisMonth, WindowLast30Days, WindowThisYear, WindowRecentlyIndexed:
		return s.PhotosInWindow(projectID, key)
	}
	switch len(key) {
	case 4:
		year, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid date key %q", key)
		}
		return s.PhotosByYear(projectID, year)
	case 7:
		return s.PhotosByMonth(projectID, key)
	case 10:
		return s.PhotosByDate(projectID, key)
	}
	return nil, fmt.Errorf("invalid date key %q", key)
}

// BuildDateBranches materializes by_date:YYYY-MM branches for a project and
// assigns each dated photo to its month branch. Existing assignments are
// kept; the return value is the number of new assignments.
func (s *Store) BuildDateBranches(projectID int64) (int64, error) {
	var added int64
	err := s.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT substr(created_date, 1, 7) AS month, path
			FROM photo_metadata
			WHERE project_id = ? AND created_date IS NOT NULL
			ORDER BY month`, projectID)
		if err != nil {
			return fmt.Errorf("failed to query dated photos: %w", err)
		}
		type assignment struct{ month, path string }
		var assignments []assignment
		for rows.Next() {
			var a assignment
			if err := rows.Scan(&a.month, &a.path); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan dated photo: %w", err)
			}
			assignments = append(assignments, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, a := range assignments {
			key := DateBranchPrefix + a.month
			_, err := tx.Exec(
				"INSERT OR IGNORE INTO branches (project_id, branch_key, display_name) VALUES (?, ?, ?)",
				projectID, key, a.month,
			)
			if err != nil {
				return fmt.Errorf("failed to ensure date branch %s: %w", key, err)
			}
			res, err := tx.Exec(
				"INSERT OR IGNORE INTO project_images (project_id, branch_key, image_path) VALUES (?, ?, ?)",
				projectID, key, a.path,
			)
			if err != nil {
				return fmt.Errorf("failed to assign photo to date branch: %w", err)
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
