package database

import (
	"sort"
	"strings"

	"github.com/facette/natsort"

	"github.com/camden-git/photovault/models"
)

// Sort orders accepted by SortPhotos and SortPaths.
const (
	SortByName    = "name"
	SortByDate    = "date"
	SortBySize    = "size"
	SortByUpdated = "updated"
)

// SortPaths orders image paths naturally, so img2.jpg sorts before
// img10.jpg.
func SortPaths(paths []string) {
	natsort.Sort(paths)
}

// SortPhotos orders a photo slice in place. Name uses natural ordering on
// the path; date and updated fall back to path order for rows missing the
// field, keeping the result deterministic.
func SortPhotos(photos []models.PhotoMetadata, order string, descending bool) {
	var less func(a, b models.PhotoMetadata) bool
	switch order {
	case SortByDate:
		less = func(a, b models.PhotoMetadata) bool {
			av, bv := int64(0), int64(0)
			if a.CreatedTS != nil {
				av = *a.CreatedTS
			}
			if b.CreatedTS != nil {
				bv = *b.CreatedTS
			}
			if av != bv {
				return av < bv
			}
			return natsort.Compare(a.Path, b.Path)
		}
	case SortBySize:
		less = func(a, b models.PhotoMetadata) bool {
			av, bv := 0.0, 0.0
			if a.SizeKB != nil {
				av = *a.SizeKB
			}
			if b.SizeKB != nil {
				bv = *b.SizeKB
			}
			if av != bv {
				return av < bv
			}
			return natsort.Compare(a.Path, b.Path)
		}
	case SortByUpdated:
		less = func(a, b models.PhotoMetadata) bool {
			av, bv := "", ""
			if a.UpdatedAt != nil {
				av = *a.UpdatedAt
			}
			if b.UpdatedAt != nil {
				bv = *b.UpdatedAt
			}
			if c := strings.Compare(av, bv); c != 0 {
				return c < 0
			}
			return natsort.Compare(a.Path, b.Path)
		}
	default:
		less = func(a, b models.PhotoMetadata) bool {
			return natsort.Compare(a.Path, b.Path)
		}
	}

	sort.SliceStable(photos, func(i, j int) bool {
		if descending {
			return less(photos[j], photos[i])
		}
		return less(photos[i], photos[j])
	})
}
