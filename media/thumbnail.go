package media

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// thumbnail edge length in pixels
const thumbSize = 128

// CropFace cuts a face rectangle out of an image, padding the box by 20% on
// each side so crops keep some context around the face.
func CropFace(img image.Image, box image.Rectangle) image.Image {
	padX := box.Dx() / 5
	padY := box.Dy() / 5
	padded := image.Rect(box.Min.X-padX, box.Min.Y-padY, box.Max.X+padX, box.Max.Y+padY)
	return imaging.Crop(img, padded.Intersect(img.Bounds()))
}

// ThumbnailPNG scales an image to fit the thumbnail square and encodes it as
// PNG bytes, suitable for BLOB storage.
func ThumbnailPNG(img image.Image) ([]byte, error) {
	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveCrop writes a face crop into dir under a fresh UUID filename and
// returns the crop's path.
func SaveCrop(dir string, crop image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create crop directory: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".jpg")
	if err := imaging.Save(crop, path, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("failed to save face crop: %w", err)
	}
	return path, nil
}

// LoadImage opens and decodes an image file.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return img, nil
}
