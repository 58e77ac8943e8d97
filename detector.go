package hardmine

import (
	"fmt"
	"image"
	"os"

	"github.com/esimov/hardmine/utils"
	pigo "github.com/esimov/pigo/core"
)

// DetectorOptions configures the pigo cascade run.
type DetectorOptions struct {
	MinSize     int
	MaxSize     int
	ShiftFactor float64
	ScaleFactor float64
	// Angle is the cascade rotation. 0.0 is 0 radians and 1.0 is 2*pi radians.
	Angle float64
	// IoUThreshold is used to cluster overlapping detections.
	IoUThreshold float64
	// MinQuality drops detections scoring below it.
	MinQuality float64
}

// DefaultDetectorOptions returns the cascade parameters used by the collection step.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5,
	}
}

// PigoDetector proposes candidates with a pigo pixel intensity comparison cascade.
type PigoDetector struct {
	opts       DetectorOptions
	classifier *pigo.Pigo
}

var _ Detector = (*PigoDetector)(nil)

// NewPigoDetector unpacks the cascade file found at path.
func NewPigoDetector(path string, opts DetectorOptions) (*PigoDetector, error) {
	cascadeFile, err := os.ReadFile(path)
	if err != nil {
		return nil, &PreconditionError{Op: "read cascade file", Err: err}
	}
	return NewPigoDetectorFromBytes(cascadeFile, opts)
}

// NewPigoDetectorFromBytes unpacks an in-memory cascade file.
func NewPigoDetectorFromBytes(cascade []byte, opts DetectorOptions) (det *PigoDetector, err error) {
	// Unpack indexes into the packet without bounds checks.
	if len(cascade) < 16 {
		return nil, fmt.Errorf("error unpacking the cascade file: %d bytes is too short", len(cascade))
	}
	defer func() {
		if r := recover(); r != nil {
			det, err = nil, fmt.Errorf("error unpacking the cascade file: %v", r)
		}
	}()

	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %v", err)
	}
	return &PigoDetector{opts: opts, classifier: classifier}, nil
}

// Detect runs the cascade over the grayscale image and clusters the result.
func (d *PigoDetector) Detect(img *image.NRGBA) ([]Detection, error) {
	cols, rows := img.Bounds().Dx(), img.Bounds().Dy()

	maxSize := d.opts.MaxSize
	if maxSize <= 0 {
		maxSize = utils.Min(cols, rows)
	}
	params := pigo.CascadeParams{
		MinSize:     d.opts.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.opts.ShiftFactor,
		ScaleFactor: d.opts.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: rgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(params, d.opts.Angle)
	dets = d.classifier.ClusterDetections(dets, d.opts.IoUThreshold)

	return fromPigo(dets, d.opts.MinQuality), nil
}

// fromPigo converts pigo's center/scale detections into corner boxes.
func fromPigo(dets []pigo.Detection, minQuality float64) []Detection {
	res := make([]Detection, 0, len(dets))
	for _, det := range dets {
		if float64(det.Q) < minQuality {
			continue
		}
		half := float64(det.Scale) / 2
		x1 := float64(det.Col) - half
		y1 := float64(det.Row) - half
		res = append(res, Detection{
			X1:    x1,
			Y1:    y1,
			X2:    x1 + float64(det.Scale) - 1,
			Y2:    y1 + float64(det.Scale) - 1,
			Score: float64(det.Q),
		})
	}
	return res
}
