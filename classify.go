package hardmine

// Tier is the label class a sample is written under.
type Tier int

const (
	Negative Tier = iota
	Positive
	Part
)

// Tiers lists every tier in counter order.
var Tiers = []Tier{Negative, Positive, Part}

// Label returns the numeric class written to the label file.
func (t Tier) Label() int {
	switch t {
	case Positive:
		return 1
	case Part:
		return -1
	default:
		return 0
	}
}

// String returns the tier name used for the sample directories.
func (t Tier) String() string {
	switch t {
	case Positive:
		return "positive"
	case Part:
		return "part"
	default:
		return "negative"
	}
}

// short returns the tier name used for the label files.
func (t Tier) short() string {
	switch t {
	case Positive:
		return "pos"
	case Part:
		return "part"
	default:
		return "neg"
	}
}

// Verdict tells whether a classified candidate produces a sample.
type Verdict int

const (
	// Accepted candidates carry a tier and, for Positive and Part, offsets.
	Accepted Verdict = iota
	// Rejected candidates are too small or cross the image border.
	Rejected
	// Ambiguous candidates fall between the negative and part thresholds.
	Ambiguous
)

// Thresholds defines the IoU tiers. Boxes with IoU below Negative are
// background, at or above Positive are faces and in [Part, Positive) are
// part faces. The range [Negative, Part) produces no sample.
type Thresholds struct {
	Negative float64
	Part     float64
	Positive float64
}

// DefaultThresholds returns the calibrated IoU thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Negative: 0.3,
		Part:     0.4,
		Positive: 0.65,
	}
}

// Decide maps the best IoU of a candidate onto its tier.
// It returns false for the ambiguous band.
func (t Thresholds) Decide(iou float64) (Tier, bool) {
	switch {
	case iou < t.Negative:
		return Negative, true
	case iou >= t.Positive:
		return Positive, true
	case iou >= t.Part:
		return Part, true
	default:
		return Negative, false
	}
}

// Result is the outcome of classifying one candidate against an image's ground truth.
type Result struct {
	Verdict Verdict
	Tier    Tier
	// Box is the squared and rounded candidate; crops and offsets refer to it.
	Box   Box
	Score float64
	IoU   float64
	// Match indexes the matched ground truth box, -1 for negatives.
	Match   int
	Offsets Offsets
}

// Classifier labels candidate boxes against ground truth.
type Classifier struct {
	Thresholds Thresholds
	// MinSize is the smallest accepted candidate width in pixels.
	MinSize int
}

// NewClassifier returns a classifier using the options' thresholds.
func NewClassifier(opts *Options) *Classifier {
	return &Classifier{
		Thresholds: opts.Thresholds,
		MinSize:    opts.MinCandidateSize,
	}
}

// Classify squares the candidate, checks it against the image bounds and
// assigns its tier from the best IoU over gts.
func (c *Classifier) Classify(d Detection, gts []Box, imgWidth, imgHeight int) Result {
	box := ToSquare(d)
	res := Result{
		Box:   box,
		Score: d.Score,
		Match: -1,
	}
	if box.Width() < c.MinSize || !box.Inside(imgWidth, imgHeight) {
		res.Verdict = Rejected
		return res
	}
	return c.label(res, gts)
}

func (c *Classifier) label(res Result, gts []Box) Result {
	idx, iou := MaxIoU(res.Box, gts)
	res.IoU = iou

	tier, ok := c.Thresholds.Decide(iou)
	if !ok {
		res.Verdict = Ambiguous
		return res
	}
	res.Verdict = Accepted
	res.Tier = tier
	if tier != Negative {
		res.Match = idx
		res.Offsets = RegressionOffsets(res.Box, gts[idx])
	}
	return res
}
