package hardmine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholds_Boundaries(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		iou  float64
		tier Tier
		ok   bool
	}{
		{0, Negative, true},
		{0.2999, Negative, true},
		{0.3, Negative, false},
		{0.35, Negative, false},
		{0.3999, Negative, false},
		{0.4, Part, true},
		{0.5, Part, true},
		{0.6499, Part, true},
		{0.65, Positive, true},
		{1, Positive, true},
	}
	for _, c := range cases {
		tier, ok := th.Decide(c.iou)
		assert.Equal(t, c.ok, ok, "iou %v", c.iou)
		if ok {
			assert.Equal(t, c.tier, tier, "iou %v", c.iou)
		}
	}
}

func TestTier_Labels(t *testing.T) {
	assert.Equal(t, 0, Negative.Label())
	assert.Equal(t, 1, Positive.Label())
	assert.Equal(t, -1, Part.Label())
	assert.Equal(t, "negative", Negative.String())
	assert.Equal(t, "positive", Positive.String())
	assert.Equal(t, "part", Part.String())
}

func TestClassify_ThreeTiers(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	gts := []Box{{10, 10, 39, 39}}

	pos := c.Classify(Detection{X1: 10, Y1: 10, X2: 39, Y2: 39, Score: 0.99}, gts, 100, 100)
	assert.Equal(t, Accepted, pos.Verdict)
	assert.Equal(t, Positive, pos.Tier)
	assert.Equal(t, 0, pos.Match)
	assert.Equal(t, Offsets{0, 0, 0, 0}, pos.Offsets)
	assert.Equal(t, 0.99, pos.Score)

	neg := c.Classify(Detection{X1: 60, Y1: 60, X2: 79, Y2: 79}, gts, 100, 100)
	assert.Equal(t, Accepted, neg.Verdict)
	assert.Equal(t, Negative, neg.Tier)
	assert.Equal(t, -1, neg.Match)
	assert.Equal(t, Offsets{}, neg.Offsets)

	part := c.Classify(Detection{X1: 15, Y1: 15, X2: 44, Y2: 44}, gts, 100, 100)
	assert.Equal(t, Accepted, part.Verdict)
	assert.Equal(t, Part, part.Tier)
	assert.InDelta(t, 625.0/1175.0, part.IoU, 1e-12)
	assert.InDeltaSlice(t, []float64{-5.0 / 30, -5.0 / 30, -5.0 / 30, -5.0 / 30}, part.Offsets[:], 1e-12)
}

func TestClassify_AmbiguousBand(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	// 16x30 overlap of two 30x30 boxes: 480 / 1320, inside [0.3, 0.4).
	res := c.Classify(Detection{X1: 0, Y1: 0, X2: 29, Y2: 29}, []Box{{14, 0, 43, 29}}, 100, 100)
	assert.Equal(t, Ambiguous, res.Verdict)
	assert.InDelta(t, 480.0/1320.0, res.IoU, 1e-12)
}

func TestClassify_Rejects(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	gts := []Box{{10, 10, 39, 39}}
	cases := []struct {
		name string
		det  Detection
	}{
		{"too small", Detection{X1: 10, Y1: 10, X2: 28, Y2: 28}},
		{"left border", Detection{X1: -1, Y1: 10, X2: 28, Y2: 39}},
		{"top border", Detection{X1: 10, Y1: -1, X2: 39, Y2: 28}},
		{"right border", Detection{X1: 80, Y1: 10, X2: 100, Y2: 30}},
		{"bottom border", Detection{X1: 10, Y1: 80, X2: 30, Y2: 100}},
		// Squaring a 10x20 box at the left edge moves it to x = -5.
		{"square crosses border", Detection{X1: 0, Y1: 0, X2: 9, Y2: 19}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := c.Classify(tc.det, gts, 100, 100)
			assert.Equal(t, Rejected, res.Verdict)
		})
	}
}

func TestClassify_MinimumSizeIsInclusive(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	res := c.Classify(Detection{X1: 60, Y1: 60, X2: 79, Y2: 79}, nil, 100, 100)
	assert.Equal(t, 20, res.Box.Width())
	assert.Equal(t, Accepted, res.Verdict)
}

func TestClassify_NoGroundTruthIsNegative(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	res := c.Classify(Detection{X1: 10, Y1: 10, X2: 39, Y2: 39}, nil, 100, 100)
	assert.Equal(t, Accepted, res.Verdict)
	assert.Equal(t, Negative, res.Tier)
	assert.Equal(t, 0.0, res.IoU)
}

func TestClassify_MatchesBestGroundTruth(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	gts := []Box{{60, 60, 89, 89}, {12, 12, 41, 41}, {10, 10, 39, 39}}
	res := c.Classify(Detection{X1: 10, Y1: 10, X2: 39, Y2: 39}, gts, 100, 100)
	assert.Equal(t, Positive, res.Tier)
	assert.Equal(t, 2, res.Match)
}

func TestClassify_CustomThresholds(t *testing.T) {
	opts := DefaultOptions()
	opts.Thresholds = Thresholds{Negative: 0.1, Part: 0.2, Positive: 0.5}
	c := NewClassifier(opts)

	res := c.Classify(Detection{X1: 15, Y1: 15, X2: 44, Y2: 44}, []Box{{10, 10, 39, 39}}, 100, 100)
	assert.Equal(t, Positive, res.Tier)
}
