package media

import (
	"context"
	"image"
)

// Detection is one face found in an image: where it sits, the descriptor
// vector for clustering, and the detector's confidence in [0, 1].
type Detection struct {
	Box        image.Rectangle
	Embedding  []float32
	Confidence float64
}

// Area returns the pixel area of the detection box, used to keep only the
// largest faces when an image has more than the configured cap.
func (d Detection) Area() int {
	return d.Box.Dx() * d.Box.Dy()
}

// FaceDetector finds faces in an image file. Implementations wrap whatever
// model backend is available; tests supply a stub.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imagePath string) ([]Detection, error)
}
