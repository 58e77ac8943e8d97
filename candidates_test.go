package hardmine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedDetector returns the same candidates for every image and records the sizes it saw.
type fixedDetector struct {
	dets  []Detection
	sizes []image.Point
}

func (d *fixedDetector) Detect(img *image.NRGBA) ([]Detection, error) {
	d.sizes = append(d.sizes, img.Bounds().Size())
	return d.dets, nil
}

func TestCandidates_SaveLoad(t *testing.T) {
	cands := Candidates{
		{{X1: 1.5, Y1: 2, X2: 30.25, Y2: 40, Score: 0.91}, {X1: 0, Y1: 0, X2: 19, Y2: 19, Score: 0.2}},
		{},
		{{X1: 10, Y1: 10, X2: 39, Y2: 39, Score: 0.6}},
	}
	path := filepath.Join(t.TempDir(), "24", "cands.cbor")
	require.NoError(t, SaveCandidates(path, "train", cands))

	got, mode, err := LoadCandidates(path)
	require.NoError(t, err)
	assert.Equal(t, "train", mode)
	require.Len(t, got, 3)
	assert.Equal(t, cands[0], got[0])
	assert.Empty(t, got[1])
	assert.Equal(t, cands[2], got[2])
}

func TestCandidates_LoadFailuresArePreconditions(t *testing.T) {
	dir := t.TempDir()
	var pe *PreconditionError

	_, _, err := LoadCandidates(filepath.Join(dir, "missing.cbor"))
	assert.True(t, errors.As(err, &pe))

	garbage := filepath.Join(dir, "garbage.cbor")
	require.NoError(t, os.WriteFile(garbage, []byte{0xff, 0x00, 0x13}, 0644))
	_, _, err = LoadCandidates(garbage)
	assert.True(t, errors.As(err, &pe))
}

func TestCandidates_RejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandidates(&buf, "train", nil))
	data := buf.Bytes()

	// The version is the first map value: key 1 followed by the integer 1.
	i := bytes.Index(data, []byte{0x01, 0x01})
	require.GreaterOrEqual(t, i, 0)
	data[i+1] = 0x07

	_, _, err := ReadCandidates(bytes.NewReader(data))
	assert.ErrorContains(t, err, "version 7")
}

func TestCollect_OneSetPerImage(t *testing.T) {
	dir := t.TempDir()
	ds := &Dataset{Mode: "train"}
	for i, size := range []int{40, 64} {
		path := filepath.Join(dir, string(rune('a'+i))+".png")
		require.NoError(t, saveImg(path, image.NewNRGBA(image.Rect(0, 0, size, size)), 0))
		ds.Samples = append(ds.Samples, Sample{Image: path})
	}

	det := &fixedDetector{dets: []Detection{{X1: 1, Y1: 1, X2: 21, Y2: 21, Score: 0.7}}}
	cands, err := Collect(context.Background(), logs.NewTestingLog(t), det, ds)
	require.NoError(t, err)
	assert.Len(t, cands, ds.Len())
	assert.Equal(t, []image.Point{{40, 40}, {64, 64}}, det.sizes)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds := &Dataset{Samples: []Sample{{Image: "unused.jpg"}}}
	_, err := Collect(ctx, logs.NewTestingLog(t), &fixedDetector{}, ds)
	assert.ErrorIs(t, err, context.Canceled)
}
