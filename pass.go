package hardmine

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/cyclopcam/logs"
	"github.com/esimov/hardmine/utils"
)

// Stats counts what a pass did with its input.
type Stats struct {
	Images        int
	EmptyImages   int
	SkippedImages int
	Rejected      int
	Ambiguous     int
	Dropped       int
	InvalidGT     int
	Samples       [3]int
}

// Total returns the number of samples written.
func (s Stats) Total() int {
	return s.Samples[Negative] + s.Samples[Positive] + s.Samples[Part]
}

func (s Stats) String() string {
	return fmt.Sprintf("%d images (%d empty, %d skipped), %d samples: %d pos (%s), %d part (%s), %d neg (%s); %d rejected, %d ambiguous, %d dropped, %d invalid gt",
		s.Images, s.EmptyImages, s.SkippedImages, s.Total(),
		s.Samples[Positive], utils.FormatRatio(s.Samples[Positive], s.Total()),
		s.Samples[Part], utils.FormatRatio(s.Samples[Part], s.Total()),
		s.Samples[Negative], utils.FormatRatio(s.Samples[Negative], s.Total()),
		s.Rejected, s.Ambiguous, s.Dropped, s.InvalidGT)
}

// Miner turns annotated images into labeled training crops.
type Miner struct {
	// Progress, when set, is called after every image with the number of
	// images handled so far and the dataset size.
	Progress func(done, total int)

	opts       *Options
	log        logs.Log
	classifier *Classifier
}

// NewMiner validates the options and returns a miner logging to log.
func NewMiner(log logs.Log, opts *Options) (*Miner, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Miner{
		opts:       opts,
		log:        log,
		classifier: NewClassifier(opts),
	}, nil
}

func (m *Miner) sampler(netSize int) NegativeSampler {
	if m.opts.Sampler != nil {
		return m.opts.Sampler
	}
	return SamplerForStage(netSize, m.opts)
}

// loadImage decodes a source image. It returns a nil image and no error when
// the image is unreadable and the options allow skipping it.
func (m *Miner) loadImage(path string, stats *Stats) (*image.NRGBA, error) {
	img, err := decodeImg(path)
	if err == nil {
		return img, nil
	}
	if !m.opts.SkipUnreadable {
		return nil, &ImageError{Path: path, Err: err}
	}
	m.log.Warnf("Skipping unreadable image %s: %v", path, err)
	stats.SkippedImages++
	return nil, nil
}

// MineHardExamples labels every candidate of every image and writes the kept
// samples. cands must hold one set per dataset image, in dataset order.
// The context is checked between images.
func (m *Miner) MineHardExamples(ctx context.Context, ds *Dataset, cands Candidates, w *Writer) (Stats, error) {
	var stats Stats

	m.log.Infof("processing %d images in total", ds.Len())
	if len(cands) != ds.Len() {
		return stats, &PreconditionError{
			Op:  "mine hard examples",
			Err: fmt.Errorf("%w: %d candidate sets for %d images", ErrCandidateMismatch, len(cands), ds.Len()),
		}
	}

	netSize := w.Layout().NetSize
	sampler := m.sampler(netSize)

	for i, s := range ds.Samples {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if i%100 == 0 {
			m.log.Infof("%d images done", i)
		}
		m.progress(i, ds.Len())
		stats.Images++

		dets := cands[i]
		if len(dets) == 0 {
			stats.EmptyImages++
			continue
		}
		img, err := m.loadImage(s.Image, &stats)
		if err != nil {
			return stats, err
		}
		if img == nil {
			continue
		}
		imgW, imgH := img.Bounds().Dx(), img.Bounds().Dy()

		for _, det := range dets {
			res := m.classifier.Classify(det, s.Boxes, imgW, imgH)
			switch res.Verdict {
			case Rejected:
				stats.Rejected++
				continue
			case Ambiguous:
				stats.Ambiguous++
				continue
			}
			if res.Tier == Negative && !sampler.Keep(res) {
				stats.Dropped++
				continue
			}
			if _, err := w.Emit(res.Tier, cropResize(img, res.Box, netSize), res.Offsets); err != nil {
				return stats, err
			}
			stats.Samples[res.Tier]++
		}
	}
	m.progress(ds.Len(), ds.Len())
	m.log.Infof("%d images done", ds.Len())
	return stats, nil
}

// MineGroundTruth writes one positive sample per usable ground truth box,
// cropped from a square around the box.
func (m *Miner) MineGroundTruth(ctx context.Context, ds *Dataset, w *Writer) (Stats, error) {
	var stats Stats

	m.log.Infof("processing %d images in total", ds.Len())
	netSize := w.Layout().NetSize

	for i, s := range ds.Samples {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if i%100 == 0 {
			m.log.Infof("%d images done", i)
		}
		m.progress(i, ds.Len())
		stats.Images++

		img, err := m.loadImage(s.Image, &stats)
		if err != nil {
			return stats, err
		}
		if img == nil {
			continue
		}
		imgW, imgH := img.Bounds().Dx(), img.Bounds().Dy()

		for _, gt := range s.Boxes {
			if utils.Max(gt.Width(), gt.Height()) < m.opts.MinFaceSize || gt.X1 < 0 || gt.Y1 < 0 {
				stats.InvalidGT++
				continue
			}
			sq := m.squareGT(gt)
			if !sq.Inside(imgW, imgH) {
				stats.InvalidGT++
				continue
			}
			if _, err := w.Emit(Positive, cropResize(img, sq, netSize), RegressionOffsets(sq, gt)); err != nil {
				return stats, err
			}
			stats.Samples[Positive]++
		}
	}
	m.progress(ds.Len(), ds.Len())
	m.log.Infof("%d images done", ds.Len())
	return stats, nil
}

// squareGT returns the square crop used for a ground truth box.
// Only the top-left corner is rounded, so the crop is always side x side.
func (m *Miner) squareGT(gt Box) Box {
	w, h := gt.Width(), gt.Height()

	var x1, y1, side int
	if m.opts.GTSideGeoMean {
		side = int(math.Sqrt(float64(w * h)))
		x1 = utils.Max(gt.X1+floorDiv(w-side, 2), 0)
		y1 = utils.Max(gt.Y1+floorDiv(h-side, 2), 0)
	} else {
		side = utils.Max(w, h)
		sq := gt.Detection().Square()
		x1 = int(math.RoundToEven(sq.X1))
		y1 = int(math.RoundToEven(sq.Y1))
	}
	return Box{X1: x1, Y1: y1, X2: x1 + side - 1, Y2: y1 + side - 1}
}

func (m *Miner) progress(done, total int) {
	if m.Progress != nil {
		m.Progress(done, total)
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
