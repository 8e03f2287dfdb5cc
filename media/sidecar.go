package media

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
)

// sidecarFace is one entry of a detection sidecar file: the face box as
// [x0, y0, x1, y1] pixels plus the descriptor vector.
type sidecarFace struct {
	Box        [4]int    `json:"box"`
	Embedding  []float32 `json:"embedding"`
	Confidence float64   `json:"confidence"`
}

// SidecarDetector reads face detections from JSON sidecar files written by
// an external detection model, one <image>.faces.json per image. Images
// without a sidecar yield no detections.
type SidecarDetector struct{}

// DetectFaces implements FaceDetector.
func (SidecarDetector) DetectFaces(ctx context.Context, imagePath string) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(imagePath + ".faces.json")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read detection sidecar for %s: %w", imagePath, err)
	}

	var faces []sidecarFace
	if err := json.Unmarshal(data, &faces); err != nil {
		return nil, fmt.Errorf("failed to decode detection sidecar for %s: %w", imagePath, err)
	}

	detections := make([]Detection, 0, len(faces))
	for _, f := range faces {
		detections = append(detections, Detection{
			Box:        image.Rect(f.Box[0], f.Box[1], f.Box[2], f.Box[3]),
			Embedding:  f.Embedding,
			Confidence: f.Confidence,
		})
	}
	return detections, nil
}
