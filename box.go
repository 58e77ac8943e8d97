package hardmine

import (
	"fmt"
	"image"
	"math"

	"github.com/esimov/hardmine/utils"
)

// Box is an axis aligned box in pixel space with inclusive corners,
// so a box with X1 == X2 is one pixel wide.
type Box struct {
	X1, Y1, X2, Y2 int
}

// Width returns the inclusive box width.
func (b Box) Width() int { return b.X2 - b.X1 + 1 }

// Height returns the inclusive box height.
func (b Box) Height() int { return b.Y2 - b.Y1 + 1 }

// Area returns the number of pixels covered by the box.
func (b Box) Area() int { return b.Width() * b.Height() }

// Rect converts the inclusive box into a half-open image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2+1, b.Y2+1)
}

// Inside reports whether every corner of the box lies in [0, w-1] x [0, h-1].
func (b Box) Inside(w, h int) bool {
	return b.X1 >= 0 && b.Y1 >= 0 && b.X2 <= w-1 && b.Y2 <= h-1
}

// Detection converts the box into an unscored detection.
func (b Box) Detection() Detection {
	return Detection{
		X1: float64(b.X1),
		Y1: float64(b.Y1),
		X2: float64(b.X2),
		Y2: float64(b.Y2),
	}
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// Detection is a candidate box produced by an upstream detector. Coordinates
// are real valued until the box is squared and rounded onto the pixel grid.
type Detection struct {
	X1    float64 `cbor:"1,keyasint"`
	Y1    float64 `cbor:"2,keyasint"`
	X2    float64 `cbor:"3,keyasint"`
	Y2    float64 `cbor:"4,keyasint"`
	Score float64 `cbor:"5,keyasint"`
}

// Square returns the square of side max(w, h) sharing the detection's center.
// The result is neither rounded nor clamped to the image.
func (d Detection) Square() Detection {
	w := d.X2 - d.X1 + 1
	h := d.Y2 - d.Y1 + 1
	side := utils.Max(w, h)

	sq := d
	sq.X1 = d.X1 + w*0.5 - side*0.5
	sq.Y1 = d.Y1 + h*0.5 - side*0.5
	sq.X2 = sq.X1 + side - 1
	sq.Y2 = sq.Y1 + side - 1
	return sq
}

// Box rounds the detection onto the integer grid. Halves are rounded to the
// nearest even integer.
func (d Detection) Box() Box {
	return Box{
		X1: int(math.RoundToEven(d.X1)),
		Y1: int(math.RoundToEven(d.Y1)),
		X2: int(math.RoundToEven(d.X2)),
		Y2: int(math.RoundToEven(d.Y2)),
	}
}

// ToSquare squares the detection around its center and rounds it onto the pixel grid.
func ToSquare(d Detection) Box {
	return d.Square().Box()
}

// IoU computes the intersection over union of box against every box in gts,
// in order. Areas use inclusive pixel counting. An empty gts yields an empty slice.
func IoU(box Box, gts []Box) []float64 {
	res := make([]float64, len(gts))
	area := float64(box.Area())
	for i, gt := range gts {
		w := utils.Min(box.X2, gt.X2) - utils.Max(box.X1, gt.X1) + 1
		h := utils.Min(box.Y2, gt.Y2) - utils.Max(box.Y1, gt.Y1) + 1

		inter := float64(utils.Max(0, w) * utils.Max(0, h))
		res[i] = inter / (area + float64(gt.Area()) - inter)
	}
	return res
}

// MaxIoU returns the index of the best matching ground truth box and its IoU.
// The first box wins on ties. With no ground truth it returns -1 and 0.
func MaxIoU(box Box, gts []Box) (int, float64) {
	idx, best := utils.ArgMax(IoU(box, gts))
	if idx < 0 {
		return -1, 0
	}
	return idx, best
}

// Offsets holds the bounding box regression target (dx1, dy1, dx2, dy2),
// each corner delta expressed as a fraction of the candidate's width or height.
type Offsets [4]float64

// RegressionOffsets computes the offsets that move box onto gt. No clamping is applied.
func RegressionOffsets(box, gt Box) Offsets {
	w := float64(box.Width())
	h := float64(box.Height())
	return Offsets{
		float64(gt.X1-box.X1) / w,
		float64(gt.Y1-box.Y1) / h,
		float64(gt.X2-box.X2) / w,
		float64(gt.Y2-box.Y2) / h,
	}
}

// Apply inverts RegressionOffsets, returning the real valued corners
// (x1, y1, x2, y2) the offsets point at relative to box.
func (o Offsets) Apply(box Box) [4]float64 {
	w := float64(box.Width())
	h := float64(box.Height())
	return [4]float64{
		float64(box.X1) + o[0]*w,
		float64(box.Y1) + o[1]*h,
		float64(box.X2) + o[2]*w,
		float64(box.Y2) + o[3]*h,
	}
}
