package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
)

var photoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tiff": true, ".tif": true, ".webp": true, ".heic": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".m4v": true, ".webm": true, ".wmv": true, ".mts": true,
}

// IsPhotoFile reports whether the path has a recognized photo extension.
func IsPhotoFile(path string) bool {
	return photoExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsVideoFile reports whether the path has a recognized video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// PhotoInfo is what extraction gathers for one photo file. DateTaken keeps
// the raw EXIF string; Width and Height are nil when the image could not be
// decoded.
type PhotoInfo struct {
	SizeKB    float64
	Modified  string
	Width     *int64
	Height    *int64
	DateTaken *string
}

// ExtractPhotoMetadata stats the file, reads its pixel dimensions and pulls
// the capture timestamp from EXIF. A missing or unreadable EXIF block is not
// an error; only a failed stat is.
func ExtractPhotoMetadata(path string) (PhotoInfo, error) {
	var info PhotoInfo

	fi, err := os.Stat(path)
	if err != nil {
		return info, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	info.SizeKB = float64(fi.Size()) / 1024.0
	info.Modified = fi.ModTime().Format("2006-01-02 15:04:05")

	if f, err := os.Open(path); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			w, h := int64(cfg.Width), int64(cfg.Height)
			info.Width, info.Height = &w, &h
		}
		f.Close()
	}

	if dt := extractExifDateTime(path); dt != "" {
		info.DateTaken = &dt
	}
	return info, nil
}

// extractExifDateTime returns the EXIF capture timestamp in its native
// colon-separated form, or "" when absent.
func extractExifDateTime(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return ""
	}
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if val, err := tag.StringVal(); err == nil && val != "" {
			return val
		}
	}
	return ""
}

// VideoInfo is the stat-level subset gathered for video files. Stream
// probing is left to the detector layer.
type VideoInfo struct {
	SizeKB   float64
	Modified string
}

// ExtractVideoMetadata stats a video file.
func ExtractVideoMetadata(path string) (VideoInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return VideoInfo{
		SizeKB:   float64(fi.Size()) / 1024.0,
		Modified: fi.ModTime().Format("2006-01-02 15:04:05"),
	}, nil
}
