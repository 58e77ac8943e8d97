package hardmine

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Options holds the calibration of the mining passes.
type Options struct {
	Thresholds Thresholds
	// MinCandidateSize is the smallest squared candidate width kept.
	MinCandidateSize int
	// MinFaceSize is the smallest max(w, h) of a ground truth box used by the gt-only pass.
	MinFaceSize int
	// GTSideGeoMean squares ground truth boxes with side floor(sqrt(w*h))
	// instead of max(w, h), clamping the top-left corner at zero.
	GTSideGeoMean bool

	// DropProbability and MinNegativeScore configure the hard negative sampler
	// used at the CoarseSizes cascade stages.
	DropProbability  float64
	MinNegativeScore float64
	CoarseSizes      []int
	Seed             uint64

	// SkipUnreadable downgrades unreadable source images to a warning.
	SkipUnreadable bool
	// Sampler overrides the stage derived negative sampler.
	Sampler NegativeSampler
}

// DefaultOptions returns the calibrated defaults.
func DefaultOptions() *Options {
	return &Options{
		Thresholds:       DefaultThresholds(),
		MinCandidateSize: 20,
		MinFaceSize:      24,
		DropProbability:  0.7,
		MinNegativeScore: 0.6,
		CoarseSizes:      []int{18, 24},
		Seed:             1,
	}
}

// Validate checks the thresholds are ordered and probabilities are in range.
func (o *Options) Validate() error {
	t := o.Thresholds
	if !(0 <= t.Negative && t.Negative <= t.Part && t.Part <= t.Positive && t.Positive <= 1) {
		return fmt.Errorf("thresholds must satisfy 0 <= negative <= part <= positive <= 1, got %v/%v/%v",
			t.Negative, t.Part, t.Positive)
	}
	if o.DropProbability < 0 || o.DropProbability > 1 {
		return fmt.Errorf("drop probability %v out of [0,1]", o.DropProbability)
	}
	if o.MinCandidateSize < 1 {
		return fmt.Errorf("minimum candidate size must be positive, got %d", o.MinCandidateSize)
	}
	return nil
}

// ParseSizes parses a comma separated list of cascade sizes, eg "18,24".
func ParseSizes(s string) ([]int, error) {
	var sizes []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid cascade size %q: %w", f, err)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

// Layout describes where a pass writes its samples.
type Layout struct {
	// DataDir is the root holding one directory per cascade size.
	DataDir string
	// NetSize is the square input size of the cascade stage being trained.
	NetSize int
	// Mode is the dataset split, eg "train" or "val".
	Mode string
	// Tag is inserted after the mode in every directory and label file name.
	Tag string
	// Ext is the image extension, including the dot. Defaults to ".jpg".
	Ext string
	// Quality is the JPEG quality. Defaults to 95.
	Quality int
	// Resume keeps existing label files and continues numbering from their line count.
	Resume bool
}

func (l Layout) ext() string {
	if l.Ext == "" {
		return ".jpg"
	}
	return l.Ext
}

// SizeDir returns the directory holding every output of the stage.
func (l Layout) SizeDir() string {
	return filepath.Join(l.DataDir, strconv.Itoa(l.NetSize))
}

func (l Layout) tierDirName(t Tier) string {
	return fmt.Sprintf("%s_%s%s", l.Mode, l.Tag, t)
}

// TierDir returns the directory the tier's images are written to.
func (l Layout) TierDir(t Tier) string {
	return filepath.Join(l.SizeDir(), l.tierDirName(t))
}

// LabelFile returns the path of the tier's label file.
func (l Layout) LabelFile(t Tier) string {
	return filepath.Join(l.SizeDir(), fmt.Sprintf("%s_%s%s_%d.txt", l.Mode, l.Tag, t.short(), l.NetSize))
}

// RelPath returns the path written into the label file for the idx-th sample of the tier.
// It is relative to DataDir and always uses forward slashes.
func (l Layout) RelPath(t Tier, idx int) string {
	return fmt.Sprintf("%d/%s/%d%s", l.NetSize, l.tierDirName(t), idx, l.ext())
}
