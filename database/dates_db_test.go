package database

import (
	"testing"
	"time"

	"github.com/camden-git/photovault/models"
)

// seedDatedPhoto inserts a photo whose capture date is fixed.
func seedDatedPhoto(t *testing.T, store *Store, projectID, folderID int64, path, taken string) {
	t.Helper()
	err := store.UpsertPhotoMetadata(models.PhotoMetadata{
		Path:      path,
		FolderID:  folderID,
		ProjectID: projectID,
		DateTaken: &taken,
	})
	if err != nil {
		t.Fatalf("seedDatedPhoto(%s) failed: %v", path, err)
	}
}

func TestWindowStart(t *testing.T) {
	// 2024-06-15 is a Saturday
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		key  string
		want string
	}{
		{WindowToday, "2024-06-15"},
		{WindowThisWeek, "2024-06-10"}, // preceding Monday
		{WindowThisMonth, "2024-06-01"},
		{WindowLast30Days, "2024-05-16"},
		{WindowThisYear, "2024-01-01"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, err := windowStart(tc.key, now)
			if err != nil {
				t.Fatalf("windowStart(%s) failed: %v", tc.key, err)
			}
			if got != tc.want {
				t.Errorf("windowStart(%s) = %s; want %s", tc.key, got, tc.want)
			}
		})
	}

	if _, err := windowStart("bogus", now); err == nil {
		t.Error("windowStart(bogus) succeeded; want error")
	}
}

func TestWindowStartMondayOnMonday(t *testing.T) {
	// a Monday is its own week start
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	got, err := windowStart(WindowThisWeek, now)
	if err != nil {
		t.Fatalf("windowStart failed: %v", err)
	}
	if got != "2024-06-10" {
		t.Errorf("week start on a Monday = %s; want 2024-06-10", got)
	}
}

func TestCountQuickDates(t *testing.T) {
	store := openTestStore(t)
	setNow(store, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	projectID := mustCreateProject(t, store, "quick")
	folderID := seedFolder(t, store, projectID)

	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/today.jpg", "2024:06:15 08:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/january.jpg", "2024:01:05 08:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/lastyear.jpg", "2023:12:31 08:00:00")

	counts, err := store.CountQuickDates(&projectID)
	if err != nil {
		t.Fatalf("CountQuickDates() failed: %v", err)
	}
	if counts.Today != 1 {
		t.Errorf("Today = %d; want 1", counts.Today)
	}
	if counts.ThisWeek != 1 {
		t.Errorf("ThisWeek = %d; want 1", counts.ThisWeek)
	}
	if counts.ThisMonth != 1 {
		t.Errorf("ThisMonth = %d; want 1", counts.ThisMonth)
	}
	if counts.ThisYear != 2 {
		t.Errorf("ThisYear = %d; want 2", counts.ThisYear)
	}
	// all three rows were just written, so updated_at is within 7 days
	if counts.RecentlyIndexed != 3 {
		t.Errorf("RecentlyIndexed = %d; want 3", counts.RecentlyIndexed)
	}
}

func TestCountQuickDatesGlobalScope(t *testing.T) {
	store := openTestStore(t)
	setNow(store, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	p1 := mustCreateProject(t, store, "one")
	p2 := mustCreateProject(t, store, "two")
	f1 := seedFolder(t, store, p1)
	f2, err := store.EnsureFolder(p2, "photos", "/photos/other", nil)
	if err != nil {
		t.Fatalf("EnsureFolder() failed: %v", err)
	}

	seedDatedPhoto(t, store, p1, f1, "/photos/root/a.jpg", "2024:06:15 08:00:00")
	seedDatedPhoto(t, store, p2, f2, "/photos/other/b.jpg", "2024:06:15 09:00:00")

	global, err := store.CountQuickDates(nil)
	if err != nil {
		t.Fatalf("CountQuickDates(nil) failed: %v", err)
	}
	if global.Today != 2 {
		t.Errorf("global Today = %d; want 2", global.Today)
	}

	scoped, err := store.CountQuickDates(&p1)
	if err != nil {
		t.Fatalf("CountQuickDates(p1) failed: %v", err)
	}
	if scoped.Today != 1 {
		t.Errorf("scoped Today = %d; want 1", scoped.Today)
	}
}

func TestCountByDateRollup(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "hierarchy")
	folderID := seedFolder(t, store, projectID)

	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/a.jpg", "2024:06:15 08:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/b.jpg", "2024:06:15 09:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/c.jpg", "2024:06:01 09:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/d.jpg", "2024:01:05 09:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/e.jpg", "2023:12:31 09:00:00")

	// videos join the same hierarchy
	taken := "2024-06-15 10:00:00"
	err := store.UpsertVideoMetadata(models.VideoMetadata{
		Path: "/photos/root/v.mp4", FolderID: folderID, ProjectID: projectID, DateTaken: &taken,
	})
	if err != nil {
		t.Fatalf("UpsertVideoMetadata() failed: %v", err)
	}

	years, err := store.CountByDate(&projectID)
	if err != nil {
		t.Fatalf("CountByDate() failed: %v", err)
	}
	if len(years) != 2 {
		t.Fatalf("len(years) = %d; want 2", len(years))
	}
	if years[0].Year != 2024 || years[0].Count != 5 {
		t.Errorf("years[0] = %d/%d; want 2024/5", years[0].Year, years[0].Count)
	}
	if years[1].Year != 2023 || years[1].Count != 1 {
		t.Errorf("years[1] = %d/%d; want 2023/1", years[1].Year, years[1].Count)
	}

	june := years[0].Months[0]
	if june.Month != "2024-06" || june.Count != 4 {
		t.Fatalf("first month = %s/%d; want 2024-06/4", june.Month, june.Count)
	}
	if len(june.Days) != 2 {
		t.Fatalf("len(june.Days) = %d; want 2", len(june.Days))
	}
	if june.Days[0].Date != "2024-06-15" || june.Days[0].Count != 3 {
		t.Errorf("june.Days[0] = %s/%d; want 2024-06-15/3", june.Days[0].Date, june.Days[0].Count)
	}
}

func TestPhotosInWindow(t *testing.T) {
	store := openTestStore(t)
	setNow(store, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	projectID := mustCreateProject(t, store, "window")
	folderID := seedFolder(t, store, projectID)
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/today.jpg", "2024:06:15 08:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/old.jpg", "2020:01:01 08:00:00")

	photos, err := store.PhotosInWindow(&projectID, WindowToday)
	if err != nil {
		t.Fatalf("PhotosInWindow() failed: %v", err)
	}
	if len(photos) != 1 || photos[0].Path != "/photos/root/today.jpg" {
		t.Errorf("window photos = %+v; want only today.jpg", photos)
	}
}

func TestPhotosForQuickKey(t *testing.T) {
	store := openTestStore(t)
	setNow(store, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	projectID := mustCreateProject(t, store, "quickkey")
	folderID := seedFolder(t, store, projectID)
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/today.jpg", "2024:06:15 08:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/spring.jpg", "2024:04:01 08:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/old.jpg", "2020:01:01 08:00:00")

	tests := []struct {
		key  string
		want int
	}{
		{"date:today", 1},
		{WindowThisYear, 2},
		{"2020", 1},
		{"2024-04", 1},
		{"date:2024-06-15", 1},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			photos, err := store.PhotosForQuickKey(&projectID, tt.key)
			if err != nil {
				t.Fatalf("PhotosForQuickKey(%s) failed: %v", tt.key, err)
			}
			if len(photos) != tt.want {
				t.Errorf("len = %d; want %d", len(photos), tt.want)
			}
		})
	}

	if _, err := store.PhotosForQuickKey(&projectID, "next-tuesday"); err == nil {
		t.Error("PhotosForQuickKey(next-tuesday) succeeded; want error")
	}
}

func TestBuildDateBranches(t *testing.T) {
	store := openTestStore(t)
	projectID := mustCreateProject(t, store, "datebranches")
	folderID := seedFolder(t, store, projectID)

	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/a.jpg", "2024:06:15 08:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/b.jpg", "2024:06:20 08:00:00")
	seedDatedPhoto(t, store, projectID, folderID, "/photos/root/c.jpg", "2024:01:05 08:00:00")

	added, err := store.BuildDateBranches(projectID)
	if err != nil {
		t.Fatalf("BuildDateBranches() failed: %v", err)
	}
	if added != 3 {
		t.Errorf("added = %d; want 3", added)
	}

	june, err := store.ListBranchImages(projectID, DateBranchPrefix+"2024-06")
	if err != nil {
		t.Fatalf("ListBranchImages() failed: %v", err)
	}
	if len(june) != 2 {
		t.Errorf("june branch has %d images; want 2", len(june))
	}

	// rebuilding assigns nothing new
	added, err = store.BuildDateBranches(projectID)
	if err != nil {
		t.Fatalf("second BuildDateBranches() failed: %v", err)
	}
	if added != 0 {
		t.Errorf("rebuild added = %d; want 0", added)
	}
}
